package borrow

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventBookBorrowed       = "BookBorrowed"
	EventBookReturned       = "BookReturned"
	EventFinePaid           = "FinePaid"
	EventMembershipApplied  = "MembershipApplied"
	EventMembershipApproved = "MembershipApproved"
	EventMembershipRejected = "MembershipRejected"
)

type BookBorrowed struct {
	BorrowID   string    `json:"borrow_id"`
	UserID     string    `json:"user_id"`
	BookID     string    `json:"book_id"`
	BookTitle  string    `json:"book_title"`
	BorrowedAt time.Time `json:"borrowed_at"`
	DueAt      time.Time `json:"due_at"`
}

// BookReturned carries the fine assessed at return time, zero when the book
// came back on time.
type BookReturned struct {
	BorrowID   string          `json:"borrow_id"`
	ReturnedAt time.Time       `json:"returned_at"`
	FineAmount decimal.Decimal `json:"fine_amount"`
}

type FinePaid struct {
	BorrowID string          `json:"borrow_id"`
	Amount   decimal.Decimal `json:"amount"`
	PaidAt   time.Time       `json:"paid_at"`
}

type MembershipApplied struct {
	MembershipID string    `json:"membership_id"`
	UserID       string    `json:"user_id"`
	AppliedAt    time.Time `json:"applied_at"`
}

type MembershipApproval struct {
	MembershipID string    `json:"membership_id"`
	ApprovedAt   time.Time `json:"approved_at"`
}

type MembershipRejection struct {
	MembershipID string    `json:"membership_id"`
	RejectedAt   time.Time `json:"rejected_at"`
}
