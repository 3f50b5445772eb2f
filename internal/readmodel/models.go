package readmodel

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookReadModel is the read model for catalog books
type BookReadModel struct {
	ID          string          `json:"id"`
	CategoryID  string          `json:"category_id"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Publisher   string          `json:"publisher"`
	Description string          `json:"description"`
	ISBN        string          `json:"isbn"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url,omitempty"`
	PDFURL      string          `json:"pdf_url,omitempty"`
	Rating      float64         `json:"rating"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CategoryReadModel is the read model for book categories
type CategoryReadModel struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CartItemReadModel represents an item in the cart
type CartItemReadModel struct {
	BookID   string          `json:"book_id"`
	Title    string          `json:"title"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// CartReadModel is the read model for shopping carts
type CartReadModel struct {
	ID     string              `json:"id"`
	UserID string              `json:"user_id"`
	Items  []CartItemReadModel `json:"items"`
	Total  decimal.Decimal     `json:"total"`
}

// OrderItemReadModel is one book line within an order. Title and price are
// snapshots taken at order time so historical orders survive catalog edits.
type OrderItemReadModel struct {
	ID                  string           `json:"id"`
	BookID              string           `json:"book_id"`
	BookTitle           string           `json:"book_title"`
	Price               decimal.Decimal  `json:"price"`
	Quantity            int              `json:"quantity"`
	Status              string           `json:"status"`
	ReturnRequestedAt   *time.Time       `json:"return_requested_at,omitempty"`
	ReturnApprovedAt    *time.Time       `json:"return_approved_at,omitempty"`
	ReceivedAt          *time.Time       `json:"received_at,omitempty"`
	RefundedAt          *time.Time       `json:"refunded_at,omitempty"`
	RefundAmount        *decimal.Decimal `json:"refund_amount,omitempty"`
	RefundAccountNumber string           `json:"refund_account_number,omitempty"`
	RefundPaymentMethod string           `json:"refund_payment_method,omitempty"`
}

// OrderReadModel is the read model for orders
type OrderReadModel struct {
	ID                string               `json:"id"`
	UserID            string               `json:"user_id"`
	TransactionID     string               `json:"transaction_id"`
	Items             []OrderItemReadModel `json:"items"`
	TotalAmount       decimal.Decimal      `json:"total_amount"`
	OrderStatus       string               `json:"order_status"`
	PaymentStatus     string               `json:"payment_status"`
	ShippingName      string               `json:"shipping_name"`
	ShippingPhone     string               `json:"shipping_phone"`
	ShippingAddress   string               `json:"shipping_address"`
	SessionKey        string               `json:"session_key,omitempty"`
	BankTransactionID string               `json:"bank_transaction_id,omitempty"`
	CardType          string               `json:"card_type,omitempty"`
	PaymentDate       *time.Time           `json:"payment_date,omitempty"`
	OrderDate         time.Time            `json:"order_date"`
	ShippedDate       *time.Time           `json:"shipped_date,omitempty"`
	DeliveredDate     *time.Time           `json:"delivered_date,omitempty"`
}

// InventoryReadModel tracks copy counts per book
type InventoryReadModel struct {
	BookID      string `json:"book_id"`
	TotalCopies int    `json:"total_copies"`
}

// UserReadModel is the read model for users
type UserReadModel struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionReadModel is the read model for user sessions
type SessionReadModel struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	RefreshTokenHash string    `json:"-"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	IPAddress        string    `json:"ip_address"`
	UserAgent        string    `json:"user_agent"`
}

// NotificationReadModel is an in-app notification row
type NotificationReadModel struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"` // info | success | error | system
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// BorrowReadModel is the read model for borrow transactions
type BorrowReadModel struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	BookID     string          `json:"book_id"`
	BookTitle  string          `json:"book_title"`
	BorrowDate time.Time       `json:"borrow_date"`
	DueDate    time.Time       `json:"due_date"`
	ReturnDate *time.Time      `json:"return_date,omitempty"`
	IsReturned bool            `json:"is_returned"`
	FineAmount decimal.Decimal `json:"fine_amount"`
	IsFinePaid bool            `json:"is_fine_paid"`
}

// MembershipReadModel is the read model for library memberships
type MembershipReadModel struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Status     string     `json:"status"` // Pending | Approved | Rejected
	AppliedAt  time.Time  `json:"applied_at"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	IsActive   bool       `json:"is_active"`
}
