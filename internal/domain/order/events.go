package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced          = "OrderPlaced"
	EventGatewaySessionOpened = "GatewaySessionOpened"
	EventPaymentSucceeded     = "PaymentSucceeded"
	EventPaymentFailed        = "PaymentFailed"
	EventPaymentCancelled     = "PaymentCancelled"
	EventOrderStatusUpdated   = "OrderStatusUpdated"
	EventReturnRequested      = "ReturnRequested"
	EventReturnCancelled      = "ReturnCancelled"
	EventReturnApproved       = "ReturnApproved"
	EventReturnReceived       = "ReturnReceived"
	EventRefundProcessed      = "RefundProcessed"
)

// Item is one book line in an order. Title and price are snapshots taken at
// order time.
type Item struct {
	ID        string          `json:"id"`
	BookID    string          `json:"book_id"`
	BookTitle string          `json:"book_title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Status    ItemStatus      `json:"status"`

	// Payout details the customer supplies when requesting a return.
	RefundAccountNumber string `json:"refund_account_number,omitempty"`
	RefundPaymentMethod string `json:"refund_payment_method,omitempty"`
}

// ShippingInfo is the delivery contact captured at checkout
type ShippingInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type OrderPlaced struct {
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	TransactionID string          `json:"transaction_id"`
	Items         []Item          `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Shipping      ShippingInfo    `json:"shipping"`
	PlacedAt      time.Time       `json:"placed_at"`
}

// GatewaySessionOpened records the payment session the gateway opened for
// this order.
type GatewaySessionOpened struct {
	OrderID    string    `json:"order_id"`
	SessionKey string    `json:"session_key"`
	OpenedAt   time.Time `json:"opened_at"`
}

type PaymentSucceeded struct {
	OrderID           string    `json:"order_id"`
	BankTransactionID string    `json:"bank_transaction_id"`
	CardType          string    `json:"card_type"`
	PaidAt            time.Time `json:"paid_at"`
}

type PaymentFailed struct {
	OrderID  string    `json:"order_id"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

type PaymentCancellation struct {
	OrderID     string    `json:"order_id"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type OrderStatusUpdated struct {
	OrderID   string    `json:"order_id"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ReturnRequested struct {
	OrderID       string    `json:"order_id"`
	ItemID        string    `json:"item_id"`
	AccountNumber string    `json:"account_number"`
	PaymentMethod string    `json:"payment_method"`
	RequestedAt   time.Time `json:"requested_at"`
}

type ReturnCancelled struct {
	OrderID     string    `json:"order_id"`
	ItemID      string    `json:"item_id"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type ReturnApproved struct {
	OrderID    string    `json:"order_id"`
	ItemID     string    `json:"item_id"`
	ApprovedAt time.Time `json:"approved_at"`
}

type ReturnReceived struct {
	OrderID    string    `json:"order_id"`
	ItemID     string    `json:"item_id"`
	BookID     string    `json:"book_id"`
	Quantity   int       `json:"quantity"`
	ReceivedAt time.Time `json:"received_at"`
}

type RefundProcessed struct {
	OrderID       string          `json:"order_id"`
	ItemID        string          `json:"item_id"`
	Amount        decimal.Decimal `json:"amount"`
	AccountNumber string          `json:"account_number"`
	PaymentMethod string          `json:"payment_method"`
	ProcessedAt   time.Time       `json:"processed_at"`
}
