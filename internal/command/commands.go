package command

import "github.com/shopspring/decimal"

// Catalog commands

type AddBook struct {
	CategoryID    string          `json:"category_id"`
	Title         string          `json:"title"`
	Author        string          `json:"author"`
	Publisher     string          `json:"publisher"`
	Description   string          `json:"description"`
	ISBN          string          `json:"isbn"`
	Price         decimal.Decimal `json:"price"`
	InitialCopies int             `json:"initial_copies"`
}

type UpdateBook struct {
	BookID      string          `json:"book_id"`
	CategoryID  string          `json:"category_id"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Publisher   string          `json:"publisher"`
	Description string          `json:"description"`
	ISBN        string          `json:"isbn"`
	Price       decimal.Decimal `json:"price"`
}

type RemoveBook struct {
	BookID string `json:"book_id"`
}

type UpdateBookFiles struct {
	BookID   string `json:"book_id"`
	ImageURL string `json:"image_url"`
	PDFURL   string `json:"pdf_url"`
}

type AddCopies struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

type CreateCategory struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateCategory struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type DeleteCategory struct {
	CategoryID string `json:"category_id"`
}

// Cart commands

type AddToCart struct {
	UserID   string `json:"user_id"`
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

type RemoveFromCart struct {
	UserID string `json:"user_id"`
	BookID string `json:"book_id"`
}

type ClearCart struct {
	UserID string `json:"user_id"`
}

// Checkout and payment commands

type PlaceOrder struct {
	UserID          string `json:"user_id"`
	ShippingName    string `json:"shipping_name"`
	ShippingPhone   string `json:"shipping_phone"`
	ShippingAddress string `json:"shipping_address"`
}

// PaymentSuccess is the gateway's success callback for a transaction
type PaymentSuccess struct {
	TransactionID     string `json:"tran_id"`
	BankTransactionID string `json:"bank_tran_id"`
	CardType          string `json:"card_type"`
}

type PaymentFail struct {
	TransactionID string `json:"tran_id"`
	Reason        string `json:"reason"`
}

type PaymentCancel struct {
	TransactionID string `json:"tran_id"`
}

// PaymentIPN is the gateway's asynchronous instant payment notification
type PaymentIPN struct {
	TransactionID     string `json:"tran_id"`
	ValidationID      string `json:"val_id"`
	Status            string `json:"status"`
	BankTransactionID string `json:"bank_tran_id"`
	CardType          string `json:"card_type"`
}

// Fulfilment and return commands

type UpdateOrderStatus struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type RequestReturn struct {
	OrderID       string `json:"order_id"`
	UserID        string `json:"user_id"`
	ItemID        string `json:"item_id"`
	AccountNumber string `json:"account_number"`
	PaymentMethod string `json:"payment_method"`
}

type CancelReturn struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	ItemID  string `json:"item_id"`
}

type ApproveReturn struct {
	OrderID string `json:"order_id"`
	ItemID  string `json:"item_id"`
}

type MarkReturnReceived struct {
	OrderID string `json:"order_id"`
	ItemID  string `json:"item_id"`
}

type ProcessRefund struct {
	OrderID string `json:"order_id"`
	ItemID  string `json:"item_id"`
}

// Borrowing and membership commands

type BorrowBook struct {
	UserID string `json:"user_id"`
	BookID string `json:"book_id"`
}

type ReturnBorrowedBook struct {
	BorrowID string `json:"borrow_id"`
	UserID   string `json:"user_id"`
}

type PayFine struct {
	BorrowID string `json:"borrow_id"`
	UserID   string `json:"user_id"`
}

type ApplyMembership struct {
	UserID string `json:"user_id"`
}

type ApproveMembership struct {
	MembershipID string `json:"membership_id"`
}

type RejectMembership struct {
	MembershipID string `json:"membership_id"`
}

type MarkNotificationRead struct {
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
}

type MarkAllNotificationsRead struct {
	UserID string `json:"user_id"`
}
