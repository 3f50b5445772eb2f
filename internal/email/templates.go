package email

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderItem is one book line rendered in an order confirmation email
type OrderItem struct {
	BookID   string
	Title    string
	Quantity int
	Price    decimal.Decimal
}

func wrap(heading, inner string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #2c3e50; padding: 24px; border-radius: 8px 8px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 22px;">%s</h1>
	</div>
	<div style="background: #fff; padding: 24px; border: 1px solid #eee; border-top: none; border-radius: 0 0 8px 8px;">
		%s
		<p style="color: #999; font-size: 12px; margin-bottom: 0;">This is an automated message from the online library. Please do not reply.</p>
	</div>
</body>
</html>`, heading, inner)
}

// BuildOrderConfirmationBody renders the HTML body for the order
// confirmation mail.
func BuildOrderConfirmationBody(orderID string, total decimal.Decimal, items []OrderItem) string {
	var rows strings.Builder
	for _, item := range items {
		title := item.Title
		if title == "" {
			title = item.BookID
		}
		rows.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 10px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 10px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
				<td style="padding: 10px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
			</tr>`,
			title, item.Quantity, item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).StringFixed(2),
		))
	}

	inner := fmt.Sprintf(`
		<p style="margin-top: 0;">Thank you for your order. Your payment was received and we are preparing your books.</p>
		<div style="background: #f8f9fa; padding: 12px; border-radius: 5px; margin: 16px 0;">
			<p style="margin: 0; font-size: 13px; color: #666;">Order number</p>
			<p style="margin: 4px 0 0 0; font-weight: bold; font-family: monospace;">%s</p>
		</div>
		<table style="width: 100%%; border-collapse: collapse; margin: 16px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 10px; text-align: left;">Book</th>
					<th style="padding: 10px; text-align: center;">Qty</th>
					<th style="padding: 10px; text-align: right;">Subtotal</th>
				</tr>
			</thead>
			<tbody>%s</tbody>
		</table>
		<p style="text-align: right; font-size: 16px;"><strong>Total: %s</strong></p>`,
		orderID, rows.String(), total.StringFixed(2))

	return wrap("Thank you for your order", inner)
}

// BuildReturnApprovedBody renders the return approval mail
func BuildReturnApprovedBody(orderID, bookTitle string) string {
	inner := fmt.Sprintf(`
		<p style="margin-top: 0;">Your return request for <strong>%s</strong> on order <code>%s</code> has been approved.</p>
		<p>Please send the book back to us. Once it arrives we will process your refund.</p>`,
		bookTitle, orderID)
	return wrap("Return approved", inner)
}

// BuildRefundProcessedBody renders the refund confirmation mail
func BuildRefundProcessedBody(orderID string, amount decimal.Decimal, method string) string {
	inner := fmt.Sprintf(`
		<p style="margin-top: 0;">We have sent your refund of <strong>%s</strong> via %s for order <code>%s</code>.</p>
		<p>Depending on your provider it may take a few business days to arrive.</p>`,
		amount.StringFixed(2), method, orderID)
	return wrap("Refund sent", inner)
}

// BuildBorrowReceiptBody renders the borrow receipt mail
func BuildBorrowReceiptBody(bookTitle, dueDate string) string {
	inner := fmt.Sprintf(`
		<p style="margin-top: 0;">You borrowed <strong>%s</strong>.</p>
		<div style="background: #fff3cd; padding: 12px; border-radius: 5px; margin: 16px 0;">
			<p style="margin: 0;">Due back by <strong>%s</strong>. A late fee applies for every day past the due date.</p>
		</div>`,
		bookTitle, dueDate)
	return wrap("Borrow receipt", inner)
}
