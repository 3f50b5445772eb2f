package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/example/online-library/internal/domain/aggregate"
	"github.com/example/online-library/internal/infrastructure/store"
)

const AggregateType = "Order"

// Status is the fulfilment status of the whole order
type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusPacked    Status = "Packed"
	StatusShipped   Status = "Shipped"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

// PaymentStatus is the gateway payment status of the order
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentSuccess   PaymentStatus = "Success"
	PaymentFailure   PaymentStatus = "Failed"
	PaymentCancelled PaymentStatus = "Cancelled"
)

// ItemStatus tracks the per-item return workflow
type ItemStatus string

const (
	ItemActive          ItemStatus = "Active"
	ItemReturnRequested ItemStatus = "ReturnRequested"
	ItemReturnApproved  ItemStatus = "ReturnApproved"
	ItemReceived        ItemStatus = "Received"
	ItemRefunded        ItemStatus = "Refunded"
)

// RefundRate is the fraction of the item subtotal refunded on a processed
// return.
var RefundRate = decimal.RequireFromString("0.5")

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyOrder        = errors.New("order must have at least one item")
	ErrInvalidQuantity   = errors.New("item quantity must be positive")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrOrderAlreadyPaid  = errors.New("order is already paid")
	ErrPaymentFinalized  = errors.New("payment is already finalized")
	ErrOrderNotPaid      = errors.New("order has not been paid")
	ErrOrderCancelled    = errors.New("order is cancelled")
	ErrNotOrderOwner     = errors.New("order belongs to another user")
	ErrOrderNotDelivered = errors.New("order has not been delivered")
	ErrItemNotFound      = errors.New("order item not found")
	ErrInvalidItemState  = errors.New("invalid order item state for this operation")
)

// fulfilmentStatuses are the statuses a librarian may set directly
var fulfilmentStatuses = map[Status]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusPacked:    true,
	StatusShipped:   true,
	StatusDelivered: true,
	StatusCancelled: true,
}

type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	TransactionID string          `json:"transaction_id"`
	Items         []Item          `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        Status          `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Shipping      ShippingInfo    `json:"shipping"`
	SessionKey    string          `json:"session_key,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

// Aggregate interface implementation
func (o *Order) GetID() string    { return o.ID }
func (o *Order) GetVersion() int  { return o.Version }
func (o *Order) SetVersion(v int) { o.Version = v }

func (o *Order) findItem(itemID string) *Item {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// ApplyEvent applies a single event to the order state (implements aggregate.Aggregate)
func (o *Order) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventOrderPlaced:
		var data OrderPlaced
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.ID = data.OrderID
		o.UserID = data.UserID
		o.TransactionID = data.TransactionID
		o.Items = data.Items
		o.TotalAmount = data.TotalAmount
		o.Shipping = data.Shipping
		o.Status = StatusPending
		o.PaymentStatus = PaymentPending
		o.CreatedAt = data.PlacedAt
		o.UpdatedAt = data.PlacedAt
	case EventGatewaySessionOpened:
		var data GatewaySessionOpened
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.SessionKey = data.SessionKey
		o.UpdatedAt = data.OpenedAt
	case EventPaymentSucceeded:
		var data PaymentSucceeded
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.PaymentStatus = PaymentSuccess
		o.Status = StatusConfirmed
		o.UpdatedAt = data.PaidAt
	case EventPaymentFailed:
		var data PaymentFailed
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.PaymentStatus = PaymentFailure
		o.Status = StatusCancelled
		o.UpdatedAt = data.FailedAt
	case EventPaymentCancelled:
		var data PaymentCancellation
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.PaymentStatus = PaymentCancelled
		o.Status = StatusCancelled
		o.UpdatedAt = data.CancelledAt
	case EventOrderStatusUpdated:
		var data OrderStatusUpdated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.Status = data.Status
		o.UpdatedAt = data.UpdatedAt
	case EventReturnRequested:
		var data ReturnRequested
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if item := o.findItem(data.ItemID); item != nil {
			item.Status = ItemReturnRequested
			item.RefundAccountNumber = data.AccountNumber
			item.RefundPaymentMethod = data.PaymentMethod
		}
		o.UpdatedAt = data.RequestedAt
	case EventReturnCancelled:
		var data ReturnCancelled
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if item := o.findItem(data.ItemID); item != nil {
			item.Status = ItemActive
			item.RefundAccountNumber = ""
			item.RefundPaymentMethod = ""
		}
		o.UpdatedAt = data.CancelledAt
	case EventReturnApproved:
		var data ReturnApproved
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if item := o.findItem(data.ItemID); item != nil {
			item.Status = ItemReturnApproved
		}
		o.UpdatedAt = data.ApprovedAt
	case EventReturnReceived:
		var data ReturnReceived
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if item := o.findItem(data.ItemID); item != nil {
			item.Status = ItemReceived
		}
		o.UpdatedAt = data.ReceivedAt
	case EventRefundProcessed:
		var data RefundProcessed
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if item := o.findItem(data.ItemID); item != nil {
			item.Status = ItemRefunded
		}
		o.UpdatedAt = data.ProcessedAt
	}
	o.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

func (s *Service) loadOrder(ctx context.Context, orderID string) (*Order, error) {
	order, found, err := aggregate.LoadAggregate(ctx, s.eventStore, orderID, func() *Order {
		return &Order{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// Load returns the current state of an order
func (s *Service) Load(ctx context.Context, orderID string) (*Order, error) {
	return s.loadOrder(ctx, orderID)
}

func (s *Service) append(ctx context.Context, order *Order, eventType string, data any) error {
	storedEvent, err := s.eventStore.Append(ctx, order.ID, AggregateType, eventType, data)
	if err != nil {
		return err
	}
	if storedEvent != nil {
		order.Version = storedEvent.Version
	}

	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, order, AggregateType); err != nil {
		log.Error().Err(err).Str("order_id", order.ID).Msg("failed to create order snapshot")
	}
	return nil
}

// NewTransactionID builds the gateway-facing transaction reference:
// "ORD" + yyyyMMddHHmmss + 6 random hex characters.
func NewTransactionID(t time.Time) string {
	u := uuid.New()
	return fmt.Sprintf("ORD%s%x", t.Format("20060102150405"), u[:3])
}

// Place creates a new order in Pending/Pending state. Items with a zero or
// negative quantity are rejected.
func (s *Service) Place(ctx context.Context, userID string, items []Item, shipping ShippingInfo) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	orderID := uuid.New().String()
	now := time.Now()
	transactionID := NewTransactionID(now)

	total := decimal.Zero
	for i := range items {
		if items[i].Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if items[i].ID == "" {
			items[i].ID = uuid.New().String()
		}
		items[i].Status = ItemActive
		total = total.Add(items[i].Price.Mul(decimal.NewFromInt(int64(items[i].Quantity))))
	}

	event := OrderPlaced{
		OrderID:       orderID,
		UserID:        userID,
		TransactionID: transactionID,
		Items:         items,
		TotalAmount:   total,
		Shipping:      shipping,
		PlacedAt:      now,
	}

	order := &Order{
		ID:            orderID,
		UserID:        userID,
		TransactionID: transactionID,
		Items:         items,
		TotalAmount:   total,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		Shipping:      shipping,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.append(ctx, order, EventOrderPlaced, event); err != nil {
		return nil, err
	}

	return order, nil
}

// AttachGatewaySession records the payment session key the gateway returned
// for this order.
func (s *Service) AttachGatewaySession(ctx context.Context, orderID, sessionKey string) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}

	event := GatewaySessionOpened{
		OrderID:    orderID,
		SessionKey: sessionKey,
		OpenedAt:   time.Now(),
	}

	order.SessionKey = sessionKey
	return s.append(ctx, order, EventGatewaySessionOpened, event)
}

// MarkPaymentSucceeded records a successful gateway payment. The order moves
// to Confirmed. Calling it on an already-paid order returns
// ErrOrderAlreadyPaid so callbacks can be retried safely.
func (s *Service) MarkPaymentSucceeded(ctx context.Context, orderID, bankTransactionID, cardType string) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}

	switch order.PaymentStatus {
	case PaymentSuccess:
		return ErrOrderAlreadyPaid
	case PaymentFailure, PaymentCancelled:
		return ErrPaymentFinalized
	}

	event := PaymentSucceeded{
		OrderID:           orderID,
		BankTransactionID: bankTransactionID,
		CardType:          cardType,
		PaidAt:            time.Now(),
	}

	order.PaymentStatus = PaymentSuccess
	order.Status = StatusConfirmed
	return s.append(ctx, order, EventPaymentSucceeded, event)
}

// MarkPaymentFailed records a failed gateway payment and cancels the order.
func (s *Service) MarkPaymentFailed(ctx context.Context, orderID, reason string) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}

	if order.PaymentStatus != PaymentPending {
		return ErrPaymentFinalized
	}

	event := PaymentFailed{
		OrderID:  orderID,
		Reason:   reason,
		FailedAt: time.Now(),
	}

	order.PaymentStatus = PaymentFailure
	order.Status = StatusCancelled
	return s.append(ctx, order, EventPaymentFailed, event)
}

// MarkPaymentCancelled records a payment the customer abandoned at the
// gateway and cancels the order.
func (s *Service) MarkPaymentCancelled(ctx context.Context, orderID string) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}

	if order.PaymentStatus != PaymentPending {
		return ErrPaymentFinalized
	}

	event := PaymentCancellation{
		OrderID:     orderID,
		CancelledAt: time.Now(),
	}

	order.PaymentStatus = PaymentCancelled
	order.Status = StatusCancelled
	return s.append(ctx, order, EventPaymentCancelled, event)
}

// UpdateFulfilmentStatus sets the fulfilment status from the back office.
// Any status in the enum may be set, but forward fulfilment requires a paid
// order; Cancelled is always allowed.
func (s *Service) UpdateFulfilmentStatus(ctx context.Context, orderID string, target Status) error {
	if !fulfilmentStatuses[target] {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, target)
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}

	if target != StatusCancelled && order.PaymentStatus != PaymentSuccess {
		return ErrOrderNotPaid
	}

	event := OrderStatusUpdated{
		OrderID:   orderID,
		Status:    target,
		UpdatedAt: time.Now(),
	}

	order.Status = target
	return s.append(ctx, order, EventOrderStatusUpdated, event)
}

// RequestReturn starts the return workflow for one item of a delivered order.
// Only the order owner may request a return, and only for an item that is
// still Active. The customer supplies the account the refund should be paid
// to, captured here and used later when the refund is processed.
func (s *Service) RequestReturn(ctx context.Context, orderID, userID, itemID, accountNumber, paymentMethod string) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}

	if order.UserID != userID {
		return ErrNotOrderOwner
	}
	if order.Status != StatusDelivered {
		return ErrOrderNotDelivered
	}

	item := order.findItem(itemID)
	if item == nil {
		return ErrItemNotFound
	}
	if item.Status != ItemActive {
		return ErrInvalidItemState
	}

	event := ReturnRequested{
		OrderID:       orderID,
		ItemID:        itemID,
		AccountNumber: accountNumber,
		PaymentMethod: paymentMethod,
		RequestedAt:   time.Now(),
	}

	item.Status = ItemReturnRequested
	item.RefundAccountNumber = accountNumber
	item.RefundPaymentMethod = paymentMethod
	return s.append(ctx, order, EventReturnRequested, event)
}

// CancelReturn withdraws a pending return request, putting the item back to
// Active. Only allowed while the request has not been approved.
func (s *Service) CancelReturn(ctx context.Context, orderID, userID, itemID string) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}

	if order.UserID != userID {
		return ErrNotOrderOwner
	}

	item := order.findItem(itemID)
	if item == nil {
		return ErrItemNotFound
	}
	if item.Status != ItemReturnRequested {
		return ErrInvalidItemState
	}

	event := ReturnCancelled{
		OrderID:     orderID,
		ItemID:      itemID,
		CancelledAt: time.Now(),
	}

	item.Status = ItemActive
	return s.append(ctx, order, EventReturnCancelled, event)
}

// ApproveReturn lets a librarian approve a requested return.
func (s *Service) ApproveReturn(ctx context.Context, orderID, itemID string) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}

	item := order.findItem(itemID)
	if item == nil {
		return ErrItemNotFound
	}
	if item.Status != ItemReturnRequested {
		return ErrInvalidItemState
	}

	event := ReturnApproved{
		OrderID:    orderID,
		ItemID:     itemID,
		ApprovedAt: time.Now(),
	}

	item.Status = ItemReturnApproved
	return s.append(ctx, order, EventReturnApproved, event)
}

// MarkReturnReceived records that the returned copies arrived back. Returns
// the book id and quantity so the caller can restock.
func (s *Service) MarkReturnReceived(ctx context.Context, orderID, itemID string) (bookID string, quantity int, err error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return "", 0, err
	}

	item := order.findItem(itemID)
	if item == nil {
		return "", 0, ErrItemNotFound
	}
	if item.Status != ItemReturnApproved {
		return "", 0, ErrInvalidItemState
	}

	event := ReturnReceived{
		OrderID:    orderID,
		ItemID:     itemID,
		BookID:     item.BookID,
		Quantity:   item.Quantity,
		ReceivedAt: time.Now(),
	}

	item.Status = ItemReceived
	if err := s.append(ctx, order, EventReturnReceived, event); err != nil {
		return "", 0, err
	}
	return item.BookID, item.Quantity, nil
}

// ProcessRefund issues the refund for a received return, paid to the account
// the customer gave when requesting it. The refund is half the item subtotal.
// Returns the refunded amount.
func (s *Service) ProcessRefund(ctx context.Context, orderID, itemID string) (decimal.Decimal, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}

	item := order.findItem(itemID)
	if item == nil {
		return decimal.Zero, ErrItemNotFound
	}
	if item.Status != ItemReceived {
		return decimal.Zero, ErrInvalidItemState
	}

	amount := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Mul(RefundRate)

	event := RefundProcessed{
		OrderID:       orderID,
		ItemID:        itemID,
		Amount:        amount,
		AccountNumber: item.RefundAccountNumber,
		PaymentMethod: item.RefundPaymentMethod,
		ProcessedAt:   time.Now(),
	}

	item.Status = ItemRefunded
	if err := s.append(ctx, order, EventRefundProcessed, event); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}
