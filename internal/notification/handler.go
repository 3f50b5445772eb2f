package notification

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/example/online-library/internal/domain/borrow"
	"github.com/example/online-library/internal/domain/order"
	"github.com/example/online-library/internal/email"
	"github.com/example/online-library/internal/infrastructure/store"
	"github.com/example/online-library/internal/readmodel"
)

// Mailer is the outbound email surface the notifier needs
type Mailer interface {
	SendOrderConfirmation(to, orderID string, total decimal.Decimal, items []email.OrderItem) error
	SendReturnApproved(to, orderID, bookTitle string) error
	SendRefundProcessed(to, orderID string, amount decimal.Decimal, method string) error
	SendBorrowReceipt(to, bookTitle, dueDate string) error
}

// Handler turns selected domain events into outbound email. It reads user
// and order details from the projected read models, so it must consume the
// same stream the projector does, after the projector.
type Handler struct {
	mailer    Mailer
	readStore store.ReadStoreInterface
}

func NewHandler(mailer Mailer, readStore store.ReadStoreInterface) *Handler {
	return &Handler{mailer: mailer, readStore: readStore}
}

// HandleMessage decodes a transported event and dispatches it
func (h *Handler) HandleMessage(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		log.Error().Err(err).Msg("notifier: undecodable event")
		return err
	}
	return h.HandleEvent(ctx, event)
}

func (h *Handler) HandleEvent(ctx context.Context, event store.Event) error {
	switch event.EventType {
	case order.EventPaymentSucceeded:
		return h.handlePaymentSucceeded(event)
	case order.EventReturnApproved:
		return h.handleReturnApproved(event)
	case order.EventRefundProcessed:
		return h.handleRefundProcessed(event)
	case borrow.EventBookBorrowed:
		return h.handleBookBorrowed(event)
	}
	return nil
}

// lookupOrder resolves an order read model plus its owner's email. Missing
// rows are not an error: the read model may simply lag, and a retry comes
// with the next delivery.
func (h *Handler) lookupOrder(orderID string) (*readmodel.OrderReadModel, string, bool) {
	data, ok := h.readStore.Get(store.CollectionOrders, orderID)
	if !ok {
		log.Warn().Str("order_id", orderID).Msg("notifier: order not projected yet")
		return nil, "", false
	}
	o := data.(*readmodel.OrderReadModel)

	userData, ok := h.readStore.Get(store.CollectionUsers, o.UserID)
	if !ok {
		log.Warn().Str("user_id", o.UserID).Msg("notifier: user not projected yet")
		return nil, "", false
	}
	return o, userData.(*readmodel.UserReadModel).Email, true
}

func (h *Handler) handlePaymentSucceeded(event store.Event) error {
	var e order.PaymentSucceeded
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return err
	}

	o, to, ok := h.lookupOrder(e.OrderID)
	if !ok {
		return nil
	}

	items := make([]email.OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, email.OrderItem{
			BookID:   item.BookID,
			Title:    item.BookTitle,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}

	if err := h.mailer.SendOrderConfirmation(to, o.ID, o.TotalAmount, items); err != nil {
		log.Error().Err(err).Str("order_id", o.ID).Msg("notifier: order confirmation mail failed")
		return err
	}
	return nil
}

func (h *Handler) handleReturnApproved(event store.Event) error {
	var e order.ReturnApproved
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return err
	}

	o, to, ok := h.lookupOrder(e.OrderID)
	if !ok {
		return nil
	}

	title := ""
	for _, item := range o.Items {
		if item.ID == e.ItemID {
			title = item.BookTitle
			break
		}
	}

	if err := h.mailer.SendReturnApproved(to, o.ID, title); err != nil {
		log.Error().Err(err).Str("order_id", o.ID).Msg("notifier: return approval mail failed")
		return err
	}
	return nil
}

func (h *Handler) handleRefundProcessed(event store.Event) error {
	var e order.RefundProcessed
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return err
	}

	o, to, ok := h.lookupOrder(e.OrderID)
	if !ok {
		return nil
	}

	if err := h.mailer.SendRefundProcessed(to, o.ID, e.Amount, e.PaymentMethod); err != nil {
		log.Error().Err(err).Str("order_id", o.ID).Msg("notifier: refund mail failed")
		return err
	}
	return nil
}

func (h *Handler) handleBookBorrowed(event store.Event) error {
	var e borrow.BookBorrowed
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return err
	}

	userData, ok := h.readStore.Get(store.CollectionUsers, e.UserID)
	if !ok {
		log.Warn().Str("user_id", e.UserID).Msg("notifier: user not projected yet")
		return nil
	}
	to := userData.(*readmodel.UserReadModel).Email

	if err := h.mailer.SendBorrowReceipt(to, e.BookTitle, e.DueAt.Format("02 Jan 2006")); err != nil {
		log.Error().Err(err).Str("borrow_id", e.BorrowID).Msg("notifier: borrow receipt mail failed")
		return err
	}
	return nil
}
