package email

import (
	"fmt"
	"net/smtp"

	"github.com/shopspring/decimal"
)

// Service sends transactional mail over SMTP
type Service struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewService(host, port, username, password, from string) *Service {
	return &Service{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// SendOrderConfirmation mails the buyer after a successful payment
func (s *Service) SendOrderConfirmation(to, orderID string, total decimal.Decimal, items []OrderItem) error {
	subject := fmt.Sprintf("Order confirmed: %s", shortID(orderID))
	return s.send(to, subject, BuildOrderConfirmationBody(orderID, total, items))
}

// SendReturnApproved mails the buyer when a librarian approves a return
func (s *Service) SendReturnApproved(to, orderID, bookTitle string) error {
	subject := fmt.Sprintf("Return approved for order %s", shortID(orderID))
	return s.send(to, subject, BuildReturnApprovedBody(orderID, bookTitle))
}

// SendRefundProcessed mails the buyer when their refund has been paid out
func (s *Service) SendRefundProcessed(to, orderID string, amount decimal.Decimal, method string) error {
	subject := fmt.Sprintf("Refund sent for order %s", shortID(orderID))
	return s.send(to, subject, BuildRefundProcessedBody(orderID, amount, method))
}

// SendBorrowReceipt mails a member the due date when they borrow a book
func (s *Service) SendBorrowReceipt(to, bookTitle, dueDate string) error {
	subject := fmt.Sprintf("Borrowed: %s", bookTitle)
	return s.send(to, subject, BuildBorrowReceiptBody(bookTitle, dueDate))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	var a smtp.Auth
	if s.username != "" {
		a = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	return smtp.SendMail(addr, a, s.from, []string{to}, []byte(msg))
}
