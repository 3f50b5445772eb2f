package inventory

import "time"

const (
	EventCopiesAdded     = "CopiesAdded"
	EventCopiesDeducted  = "CopiesDeducted"
	EventCopiesRestocked = "CopiesRestocked"
)

type CopiesAdded struct {
	BookID   string    `json:"book_id"`
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"added_at"`
}

// CopiesDeducted is emitted when copies leave the shelf for a paid order
type CopiesDeducted struct {
	BookID     string    `json:"book_id"`
	OrderID    string    `json:"order_id"`
	Quantity   int       `json:"quantity"`
	DeductedAt time.Time `json:"deducted_at"`
}

// CopiesRestocked is emitted when returned copies arrive back
type CopiesRestocked struct {
	BookID      string    `json:"book_id"`
	OrderID     string    `json:"order_id"`
	Quantity    int       `json:"quantity"`
	RestockedAt time.Time `json:"restocked_at"`
}
