package borrow

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/example/online-library/internal/domain/aggregate"
	"github.com/example/online-library/internal/infrastructure/store"
)

const AggregateType = "Borrow"

// BorrowPeriodDays is how long a borrowed book may be kept
const BorrowPeriodDays = 7

// MaxActiveBorrows is the per-user limit of unreturned books
const MaxActiveBorrows = 3

// FinePerDay is the fine charged per day a return is overdue
var FinePerDay = decimal.NewFromInt(10)

var (
	ErrBorrowNotFound  = errors.New("borrow record not found")
	ErrBorrowLimit     = errors.New("active borrow limit reached")
	ErrAlreadyBorrowed = errors.New("book is already borrowed by this user")
	ErrAlreadyReturned = errors.New("book is already returned")
	ErrNotReturned     = errors.New("book has not been returned")
	ErrNoFineDue       = errors.New("no unpaid fine on this borrow")
	ErrNotBorrower     = errors.New("borrow record belongs to another user")
)

// Borrow is one lending of one book to one user
type Borrow struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	BookID     string          `json:"book_id"`
	BookTitle  string          `json:"book_title"`
	BorrowedAt time.Time       `json:"borrowed_at"`
	DueAt      time.Time       `json:"due_at"`
	ReturnedAt *time.Time      `json:"returned_at,omitempty"`
	IsReturned bool            `json:"is_returned"`
	FineAmount decimal.Decimal `json:"fine_amount"`
	IsFinePaid bool            `json:"is_fine_paid"`
	Version    int             `json:"version"`
}

func (b *Borrow) GetID() string    { return b.ID }
func (b *Borrow) GetVersion() int  { return b.Version }
func (b *Borrow) SetVersion(v int) { b.Version = v }

// ApplyEvent applies a single event to the borrow state (implements aggregate.Aggregate)
func (b *Borrow) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventBookBorrowed:
		var data BookBorrowed
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		b.ID = data.BorrowID
		b.UserID = data.UserID
		b.BookID = data.BookID
		b.BookTitle = data.BookTitle
		b.BorrowedAt = data.BorrowedAt
		b.DueAt = data.DueAt
		b.FineAmount = decimal.Zero
	case EventBookReturned:
		var data BookReturned
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		b.IsReturned = true
		b.ReturnedAt = &data.ReturnedAt
		b.FineAmount = data.FineAmount
	case EventFinePaid:
		b.IsFinePaid = true
	}
	b.Version = event.Version
	return nil
}

// FineFor computes the overdue fine for a return at the given time. Partial
// days count as a full day.
func FineFor(dueAt, returnedAt time.Time) decimal.Decimal {
	if !returnedAt.After(dueAt) {
		return decimal.Zero
	}
	overdueDays := int(math.Ceil(returnedAt.Sub(dueAt).Hours() / 24))
	return FinePerDay.Mul(decimal.NewFromInt(int64(overdueDays)))
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

func (s *Service) loadBorrow(ctx context.Context, borrowID string) (*Borrow, error) {
	b, found, err := aggregate.LoadAggregate(ctx, s.eventStore, borrowID, func() *Borrow {
		return &Borrow{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrBorrowNotFound
	}
	return b, nil
}

// Load returns the current state of a borrow record
func (s *Service) Load(ctx context.Context, borrowID string) (*Borrow, error) {
	return s.loadBorrow(ctx, borrowID)
}

func (s *Service) append(ctx context.Context, b *Borrow, eventType string, data any) error {
	storedEvent, err := s.eventStore.Append(ctx, b.ID, AggregateType, eventType, data)
	if err != nil {
		return err
	}
	if storedEvent != nil {
		b.Version = storedEvent.Version
	}

	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, b, AggregateType); err != nil {
		log.Error().Err(err).Str("borrow_id", b.ID).Msg("failed to create borrow snapshot")
	}
	return nil
}

// Borrow lends a book to a user for the standard period. Membership and
// per-user limits are checked by the caller against the read models.
func (s *Service) Borrow(ctx context.Context, userID, bookID, bookTitle string) (*Borrow, error) {
	borrowID := uuid.New().String()
	now := time.Now()
	dueAt := now.AddDate(0, 0, BorrowPeriodDays)

	event := BookBorrowed{
		BorrowID:   borrowID,
		UserID:     userID,
		BookID:     bookID,
		BookTitle:  bookTitle,
		BorrowedAt: now,
		DueAt:      dueAt,
	}

	b := &Borrow{
		ID:         borrowID,
		UserID:     userID,
		BookID:     bookID,
		BookTitle:  bookTitle,
		BorrowedAt: now,
		DueAt:      dueAt,
		FineAmount: decimal.Zero,
	}

	if err := s.append(ctx, b, EventBookBorrowed, event); err != nil {
		return nil, err
	}
	return b, nil
}

// Return records the book coming back and assesses the overdue fine.
// Returns the fine amount, zero when on time.
func (s *Service) Return(ctx context.Context, borrowID, userID string) (decimal.Decimal, error) {
	b, err := s.loadBorrow(ctx, borrowID)
	if err != nil {
		return decimal.Zero, err
	}

	if b.UserID != userID {
		return decimal.Zero, ErrNotBorrower
	}
	if b.IsReturned {
		return decimal.Zero, ErrAlreadyReturned
	}

	now := time.Now()
	fine := FineFor(b.DueAt, now)

	event := BookReturned{
		BorrowID:   borrowID,
		ReturnedAt: now,
		FineAmount: fine,
	}

	b.IsReturned = true
	b.ReturnedAt = &now
	b.FineAmount = fine
	if err := s.append(ctx, b, EventBookReturned, event); err != nil {
		return decimal.Zero, err
	}
	return fine, nil
}

// PayFine settles the outstanding fine on a returned borrow
func (s *Service) PayFine(ctx context.Context, borrowID, userID string) (decimal.Decimal, error) {
	b, err := s.loadBorrow(ctx, borrowID)
	if err != nil {
		return decimal.Zero, err
	}

	if b.UserID != userID {
		return decimal.Zero, ErrNotBorrower
	}
	if !b.IsReturned {
		return decimal.Zero, ErrNotReturned
	}
	if b.IsFinePaid || b.FineAmount.IsZero() {
		return decimal.Zero, ErrNoFineDue
	}

	event := FinePaid{
		BorrowID: borrowID,
		Amount:   b.FineAmount,
		PaidAt:   time.Now(),
	}

	b.IsFinePaid = true
	if err := s.append(ctx, b, EventFinePaid, event); err != nil {
		return decimal.Zero, err
	}
	return b.FineAmount, nil
}
