package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/example/online-library/internal/domain/aggregate"
	"github.com/example/online-library/internal/infrastructure/store"
)

const AggregateType = "Cart"

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidBook     = errors.New("book_id is required")
)

type CartItem struct {
	BookID   string          `json:"book_id"`
	Title    string          `json:"title"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type Cart struct {
	ID      string              `json:"id"`
	UserID  string              `json:"user_id"`
	Items   map[string]CartItem `json:"items"` // bookID -> item
	Version int                 `json:"version"`
}

// GetCartID returns the cart ID for a user. One cart per user.
func GetCartID(userID string) string {
	return "cart-" + userID
}

func (c *Cart) GetID() string    { return c.ID }
func (c *Cart) GetVersion() int  { return c.Version }
func (c *Cart) SetVersion(v int) { c.Version = v }

// Total is the sum over items of price * quantity
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// ApplyEvent applies a single event to the cart state (implements aggregate.Aggregate)
func (c *Cart) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventItemAdded:
		var data ItemAddedToCart
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if c.Items == nil {
			c.Items = make(map[string]CartItem)
		}
		c.ID = data.CartID
		c.UserID = data.UserID
		if existing, ok := c.Items[data.BookID]; ok {
			existing.Quantity += data.Quantity
			existing.Price = data.Price
			c.Items[data.BookID] = existing
		} else {
			c.Items[data.BookID] = CartItem{
				BookID:   data.BookID,
				Title:    data.Title,
				Quantity: data.Quantity,
				Price:    data.Price,
			}
		}
	case EventItemRemoved:
		var data ItemRemovedFromCart
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		delete(c.Items, data.BookID)
	case EventCartCleared:
		c.Items = make(map[string]CartItem)
	}
	c.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// Load returns the current cart for a user. A user with no cart events gets
// an empty cart.
func (s *Service) Load(ctx context.Context, userID string) (*Cart, error) {
	cartID := GetCartID(userID)
	cart, found, err := aggregate.LoadAggregate(ctx, s.eventStore, cartID, func() *Cart {
		return &Cart{Items: make(map[string]CartItem)}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return &Cart{ID: cartID, UserID: userID, Items: make(map[string]CartItem)}, nil
	}
	return cart, nil
}

func (s *Service) append(ctx context.Context, cart *Cart, eventType string, data any) error {
	storedEvent, err := s.eventStore.Append(ctx, cart.ID, AggregateType, eventType, data)
	if err != nil {
		return err
	}
	if storedEvent != nil {
		cart.Version = storedEvent.Version
	}

	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, cart, AggregateType); err != nil {
		log.Error().Err(err).Str("cart_id", cart.ID).Msg("failed to create cart snapshot")
	}
	return nil
}

func (s *Service) AddItem(ctx context.Context, userID, bookID, title string, quantity int, price decimal.Decimal) error {
	if bookID == "" {
		return ErrInvalidBook
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	cart, err := s.Load(ctx, userID)
	if err != nil {
		return err
	}

	event := ItemAddedToCart{
		CartID:   cart.ID,
		UserID:   userID,
		BookID:   bookID,
		Title:    title,
		Quantity: quantity,
		Price:    price,
		AddedAt:  time.Now(),
	}

	return s.append(ctx, cart, EventItemAdded, event)
}

func (s *Service) RemoveItem(ctx context.Context, userID, bookID string) error {
	if bookID == "" {
		return ErrInvalidBook
	}

	cart, err := s.Load(ctx, userID)
	if err != nil {
		return err
	}

	event := ItemRemovedFromCart{
		CartID:    cart.ID,
		UserID:    userID,
		BookID:    bookID,
		RemovedAt: time.Now(),
	}

	return s.append(ctx, cart, EventItemRemoved, event)
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	cart, err := s.Load(ctx, userID)
	if err != nil {
		return err
	}

	event := CartCleared{
		CartID:    cart.ID,
		UserID:    userID,
		ClearedAt: time.Now(),
	}

	return s.append(ctx, cart, EventCartCleared, event)
}
