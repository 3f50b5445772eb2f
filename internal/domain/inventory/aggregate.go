package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/example/online-library/internal/domain/aggregate"
	"github.com/example/online-library/internal/infrastructure/store"
)

const AggregateType = "Inventory"

var (
	ErrInsufficientCopies = errors.New("not enough copies in stock")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
)

// Inventory tracks the copy count of one book. The aggregate ID is the
// book ID.
type Inventory struct {
	BookID      string `json:"book_id"`
	TotalCopies int    `json:"total_copies"`
	Version     int    `json:"version"`
}

func (i *Inventory) GetID() string    { return i.BookID }
func (i *Inventory) GetVersion() int  { return i.Version }
func (i *Inventory) SetVersion(v int) { i.Version = v }

// ApplyEvent applies a single event to the inventory state (implements aggregate.Aggregate)
func (i *Inventory) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventCopiesAdded:
		var data CopiesAdded
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		i.BookID = data.BookID
		i.TotalCopies += data.Quantity
	case EventCopiesDeducted:
		var data CopiesDeducted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		i.TotalCopies -= data.Quantity
		if i.TotalCopies < 0 {
			i.TotalCopies = 0
		}
	case EventCopiesRestocked:
		var data CopiesRestocked
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		i.BookID = data.BookID
		i.TotalCopies += data.Quantity
	}
	i.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// Load returns the current inventory for a book. An unknown book has zero
// copies.
func (s *Service) Load(ctx context.Context, bookID string) (*Inventory, error) {
	inv, found, err := aggregate.LoadAggregate(ctx, s.eventStore, bookID, func() *Inventory {
		return &Inventory{BookID: bookID}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return &Inventory{BookID: bookID}, nil
	}
	return inv, nil
}

func (s *Service) append(ctx context.Context, inv *Inventory, eventType string, data any) error {
	storedEvent, err := s.eventStore.Append(ctx, inv.BookID, AggregateType, eventType, data)
	if err != nil {
		return err
	}
	if storedEvent != nil {
		inv.Version = storedEvent.Version
	}

	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, inv, AggregateType); err != nil {
		log.Error().Err(err).Str("book_id", inv.BookID).Msg("failed to create inventory snapshot")
	}
	return nil
}

// AddCopies increases the stock of a book
func (s *Service) AddCopies(ctx context.Context, bookID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	inv, err := s.Load(ctx, bookID)
	if err != nil {
		return err
	}

	event := CopiesAdded{
		BookID:   bookID,
		Quantity: quantity,
		AddedAt:  time.Now(),
	}

	inv.TotalCopies += quantity
	return s.append(ctx, inv, EventCopiesAdded, event)
}

// Deduct removes copies from stock for a paid order. Fails when fewer copies
// remain than requested.
func (s *Service) Deduct(ctx context.Context, bookID, orderID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	inv, err := s.Load(ctx, bookID)
	if err != nil {
		return err
	}
	if inv.TotalCopies < quantity {
		return ErrInsufficientCopies
	}

	event := CopiesDeducted{
		BookID:     bookID,
		OrderID:    orderID,
		Quantity:   quantity,
		DeductedAt: time.Now(),
	}

	inv.TotalCopies -= quantity
	return s.append(ctx, inv, EventCopiesDeducted, event)
}

// Restock puts returned copies back on the shelf
func (s *Service) Restock(ctx context.Context, bookID, orderID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	inv, err := s.Load(ctx, bookID)
	if err != nil {
		return err
	}

	event := CopiesRestocked{
		BookID:      bookID,
		OrderID:     orderID,
		Quantity:    quantity,
		RestockedAt: time.Now(),
	}

	inv.TotalCopies += quantity
	return s.append(ctx, inv, EventCopiesRestocked, event)
}
