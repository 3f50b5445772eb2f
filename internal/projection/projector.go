package projection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/example/online-library/internal/domain/book"
	"github.com/example/online-library/internal/domain/borrow"
	"github.com/example/online-library/internal/domain/cart"
	"github.com/example/online-library/internal/domain/category"
	"github.com/example/online-library/internal/domain/inventory"
	"github.com/example/online-library/internal/domain/order"
	"github.com/example/online-library/internal/domain/user"
	"github.com/example/online-library/internal/infrastructure/store"
	"github.com/example/online-library/internal/readmodel"
)

// Projector folds domain events into the read models. It is safe to replay
// the full event log through it: every handler is deterministic, and derived
// notification rows get stable IDs so replays do not duplicate them.
type Projector struct {
	readStore store.ReadStoreInterface
}

func NewProjector(readStore store.ReadStoreInterface) *Projector {
	return &Projector{readStore: readStore}
}

// HandleMessage decodes a transported event and applies it
func (p *Projector) HandleMessage(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}
	return p.HandleEvent(ctx, event)
}

func (p *Projector) HandleEvent(ctx context.Context, event store.Event) error {
	log.Debug().
		Str("event_type", event.EventType).
		Str("aggregate_type", event.AggregateType).
		Str("aggregate_id", event.AggregateID).
		Msg("projecting event")

	switch event.AggregateType {
	case book.AggregateType:
		return p.handleBookEvent(event)
	case category.AggregateType:
		return p.handleCategoryEvent(event)
	case cart.AggregateType:
		return p.handleCartEvent(event)
	case order.AggregateType:
		return p.handleOrderEvent(event)
	case inventory.AggregateType:
		return p.handleInventoryEvent(event)
	case user.AggregateType:
		return p.handleUserEvent(event)
	case borrow.AggregateType:
		return p.handleBorrowEvent(event)
	case borrow.MembershipAggregateType:
		return p.handleMembershipEvent(event)
	}

	return nil
}

func (p *Projector) handleBookEvent(event store.Event) error {
	switch event.EventType {
	case book.EventBookAdded:
		var e book.BookAdded
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set(store.CollectionBooks, e.BookID, &readmodel.BookReadModel{
			ID:          e.BookID,
			CategoryID:  e.CategoryID,
			Title:       e.Title,
			Author:      e.Author,
			Publisher:   e.Publisher,
			Description: e.Description,
			ISBN:        e.ISBN,
			Price:       e.Price,
			CreatedAt:   e.AddedAt,
			UpdatedAt:   e.AddedAt,
		})

	case book.EventBookUpdated:
		var e book.BookUpdated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(store.CollectionBooks, e.BookID, func(current any) any {
			b := current.(*readmodel.BookReadModel)
			b.CategoryID = e.CategoryID
			b.Title = e.Title
			b.Author = e.Author
			b.Publisher = e.Publisher
			b.Description = e.Description
			b.ISBN = e.ISBN
			b.Price = e.Price
			b.UpdatedAt = e.UpdatedAt
			return b
		})

	case book.EventBookFilesUpdated:
		var e book.BookFilesUpdated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(store.CollectionBooks, e.BookID, func(current any) any {
			b := current.(*readmodel.BookReadModel)
			b.ImageURL = e.ImageURL
			b.PDFURL = e.PDFURL
			b.UpdatedAt = e.UpdatedAt
			return b
		})

	case book.EventBookRemoved:
		var e book.BookRemoved
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Delete(store.CollectionBooks, e.BookID)
		p.readStore.Delete(store.CollectionInventory, e.BookID)
	}

	return nil
}

func (p *Projector) handleCategoryEvent(event store.Event) error {
	switch event.EventType {
	case category.EventCategoryCreated:
		var e category.CategoryCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set(store.CollectionCategories, e.CategoryID, &readmodel.CategoryReadModel{
			ID:          e.CategoryID,
			Name:        e.Name,
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
			UpdatedAt:   e.CreatedAt,
		})

	case category.EventCategoryUpdated:
		var e category.CategoryUpdated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(store.CollectionCategories, e.CategoryID, func(current any) any {
			c := current.(*readmodel.CategoryReadModel)
			c.Name = e.Name
			c.Description = e.Description
			c.UpdatedAt = e.UpdatedAt
			return c
		})

	case category.EventCategoryDeleted:
		var e category.CategoryDeleted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Delete(store.CollectionCategories, e.CategoryID)
	}

	return nil
}

func (p *Projector) handleCartEvent(event store.Event) error {
	switch event.EventType {
	case cart.EventItemAdded:
		var e cart.ItemAddedToCart
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		if _, ok := p.readStore.Get(store.CollectionCarts, e.CartID); !ok {
			p.readStore.Set(store.CollectionCarts, e.CartID, &readmodel.CartReadModel{
				ID:     e.CartID,
				UserID: e.UserID,
				Items:  []readmodel.CartItemReadModel{},
			})
		}
		p.readStore.Update(store.CollectionCarts, e.CartID, func(current any) any {
			c := current.(*readmodel.CartReadModel)
			merged := false
			for i := range c.Items {
				if c.Items[i].BookID == e.BookID {
					c.Items[i].Quantity += e.Quantity
					merged = true
					break
				}
			}
			if !merged {
				c.Items = append(c.Items, readmodel.CartItemReadModel{
					BookID:   e.BookID,
					Title:    e.Title,
					Quantity: e.Quantity,
					Price:    e.Price,
				})
			}
			c.Total = cartTotal(c.Items)
			return c
		})

	case cart.EventItemRemoved:
		var e cart.ItemRemovedFromCart
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(store.CollectionCarts, e.CartID, func(current any) any {
			c := current.(*readmodel.CartReadModel)
			items := c.Items[:0]
			for _, item := range c.Items {
				if item.BookID != e.BookID {
					items = append(items, item)
				}
			}
			c.Items = items
			c.Total = cartTotal(c.Items)
			return c
		})

	case cart.EventCartCleared:
		var e cart.CartCleared
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Delete(store.CollectionCarts, e.CartID)
	}

	return nil
}

func cartTotal(items []readmodel.CartItemReadModel) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func (p *Projector) handleOrderEvent(event store.Event) error {
	switch event.EventType {
	case order.EventOrderPlaced:
		var e order.OrderPlaced
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		items := make([]readmodel.OrderItemReadModel, 0, len(e.Items))
		for _, item := range e.Items {
			items = append(items, readmodel.OrderItemReadModel{
				ID:        item.ID,
				BookID:    item.BookID,
				BookTitle: item.BookTitle,
				Price:     item.Price,
				Quantity:  item.Quantity,
				Status:    string(order.ItemActive),
			})
		}
		p.readStore.Set(store.CollectionOrders, e.OrderID, &readmodel.OrderReadModel{
			ID:              e.OrderID,
			UserID:          e.UserID,
			TransactionID:   e.TransactionID,
			Items:           items,
			TotalAmount:     e.TotalAmount,
			OrderStatus:     string(order.StatusPending),
			PaymentStatus:   string(order.PaymentPending),
			ShippingName:    e.Shipping.Name,
			ShippingPhone:   e.Shipping.Phone,
			ShippingAddress: e.Shipping.Address,
			OrderDate:       e.PlacedAt,
		})

	case order.EventGatewaySessionOpened:
		var e order.GatewaySessionOpened
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(store.CollectionOrders, e.OrderID, func(current any) any {
			o := current.(*readmodel.OrderReadModel)
			o.SessionKey = e.SessionKey
			return o
		})

	case order.EventPaymentSucceeded:
		var e order.PaymentSucceeded
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		var userID string
		p.readStore.Update(store.CollectionOrders, e.OrderID, func(current any) any {
			o := current.(*readmodel.OrderReadModel)
			o.PaymentStatus = string(order.PaymentSuccess)
			o.OrderStatus = string(order.StatusConfirmed)
			o.BankTransactionID = e.BankTransactionID
			o.CardType = e.CardType
			paidAt := e.PaidAt
			o.PaymentDate = &paidAt
			userID = o.UserID
			return o
		})
		p.notify(userID, "Order confirmed",
			"Your payment was received and your order is confirmed.",
			"success", event)

	case order.EventPaymentFailed:
		var e order.PaymentFailed
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		var userID string
		p.readStore.Update(store.CollectionOrders, e.OrderID, func(current any) any {
			o := current.(*readmodel.OrderReadModel)
			o.PaymentStatus = string(order.PaymentFailure)
			o.OrderStatus = string(order.StatusCancelled)
			userID = o.UserID
			return o
		})
		p.notify(userID, "Payment failed",
			"Your payment did not go through and the order was cancelled.",
			"error", event)

	case order.EventPaymentCancelled:
		var e order.PaymentCancellation
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(store.CollectionOrders, e.OrderID, func(current any) any {
			o := current.(*readmodel.OrderReadModel)
			o.PaymentStatus = string(order.PaymentCancelled)
			o.OrderStatus = string(order.StatusCancelled)
			return o
		})

	case order.EventOrderStatusUpdated:
		var e order.OrderStatusUpdated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		var userID string
		p.readStore.Update(store.CollectionOrders, e.OrderID, func(current any) any {
			o := current.(*readmodel.OrderReadModel)
			o.OrderStatus = string(e.Status)
			at := e.UpdatedAt
			switch e.Status {
			case order.StatusShipped:
				o.ShippedDate = &at
			case order.StatusDelivered:
				o.DeliveredDate = &at
			}
			userID = o.UserID
			return o
		})
		switch e.Status {
		case order.StatusShipped:
			p.notify(userID, "Order shipped", "Your books are on the way.", "info", event)
		case order.StatusDelivered:
			p.notify(userID, "Order delivered", "Your books have been delivered. Happy reading!", "success", event)
		}

	case order.EventReturnRequested:
		var e order.ReturnRequested
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.updateOrderItem(e.OrderID, e.ItemID, func(item *readmodel.OrderItemReadModel) {
			item.Status = string(order.ItemReturnRequested)
			at := e.RequestedAt
			item.ReturnRequestedAt = &at
			item.RefundAccountNumber = e.AccountNumber
			item.RefundPaymentMethod = e.PaymentMethod
		})
		p.notifyLibrarians("Return requested",
			fmt.Sprintf("A return was requested on order %s.", e.OrderID),
			event)

	case order.EventReturnCancelled:
		var e order.ReturnCancelled
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.updateOrderItem(e.OrderID, e.ItemID, func(item *readmodel.OrderItemReadModel) {
			item.Status = string(order.ItemActive)
			item.ReturnRequestedAt = nil
			item.RefundAccountNumber = ""
			item.RefundPaymentMethod = ""
		})

	case order.EventReturnApproved:
		var e order.ReturnApproved
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		userID := p.orderOwner(e.OrderID)
		p.updateOrderItem(e.OrderID, e.ItemID, func(item *readmodel.OrderItemReadModel) {
			item.Status = string(order.ItemReturnApproved)
			at := e.ApprovedAt
			item.ReturnApprovedAt = &at
		})
		p.notify(userID, "Return approved",
			"Your return request was approved. Please send the book back to us.",
			"success", event)

	case order.EventReturnReceived:
		var e order.ReturnReceived
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.updateOrderItem(e.OrderID, e.ItemID, func(item *readmodel.OrderItemReadModel) {
			item.Status = string(order.ItemReceived)
			at := e.ReceivedAt
			item.ReceivedAt = &at
		})

	case order.EventRefundProcessed:
		var e order.RefundProcessed
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		userID := p.orderOwner(e.OrderID)
		p.updateOrderItem(e.OrderID, e.ItemID, func(item *readmodel.OrderItemReadModel) {
			item.Status = string(order.ItemRefunded)
			at := e.ProcessedAt
			item.RefundedAt = &at
			amount := e.Amount
			item.RefundAmount = &amount
			item.RefundAccountNumber = e.AccountNumber
			item.RefundPaymentMethod = e.PaymentMethod
		})
		p.notify(userID, "Refund processed",
			fmt.Sprintf("Your refund of %s has been sent via %s.", e.Amount.StringFixed(2), e.PaymentMethod),
			"success", event)
	}

	return nil
}

func (p *Projector) orderOwner(orderID string) string {
	if data, ok := p.readStore.Get(store.CollectionOrders, orderID); ok {
		return data.(*readmodel.OrderReadModel).UserID
	}
	return ""
}

func (p *Projector) updateOrderItem(orderID, itemID string, fn func(*readmodel.OrderItemReadModel)) {
	p.readStore.Update(store.CollectionOrders, orderID, func(current any) any {
		o := current.(*readmodel.OrderReadModel)
		for i := range o.Items {
			if o.Items[i].ID == itemID {
				fn(&o.Items[i])
				break
			}
		}
		return o
	})
}

func (p *Projector) handleInventoryEvent(event store.Event) error {
	adjust := func(bookID string, delta int) {
		if _, ok := p.readStore.Get(store.CollectionInventory, bookID); !ok {
			p.readStore.Set(store.CollectionInventory, bookID, &readmodel.InventoryReadModel{BookID: bookID})
		}
		p.readStore.Update(store.CollectionInventory, bookID, func(current any) any {
			inv := current.(*readmodel.InventoryReadModel)
			inv.TotalCopies += delta
			return inv
		})
	}

	switch event.EventType {
	case inventory.EventCopiesAdded:
		var e inventory.CopiesAdded
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		adjust(e.BookID, e.Quantity)

	case inventory.EventCopiesDeducted:
		var e inventory.CopiesDeducted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		adjust(e.BookID, -e.Quantity)

	case inventory.EventCopiesRestocked:
		var e inventory.CopiesRestocked
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		adjust(e.BookID, e.Quantity)
	}

	return nil
}

func (p *Projector) handleUserEvent(event store.Event) error {
	switch event.EventType {
	case user.EventUserRegistered:
		var e user.UserRegistered
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set(store.CollectionUsers, e.UserID, &readmodel.UserReadModel{
			ID:           e.UserID,
			Email:        e.Email,
			PasswordHash: e.PasswordHash,
			Name:         e.Name,
			Phone:        e.Phone,
			Address:      e.Address,
			Role:         e.Role,
			IsActive:     true,
			CreatedAt:    e.CreatedAt,
			UpdatedAt:    e.CreatedAt,
		})

	case user.EventUserProfileUpdated:
		var e user.UserProfileUpdated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(store.CollectionUsers, e.UserID, func(current any) any {
			u := current.(*readmodel.UserReadModel)
			u.Name = e.Name
			u.Phone = e.Phone
			u.Address = e.Address
			u.UpdatedAt = e.UpdatedAt
			return u
		})

	case user.EventUserPasswordChanged:
		var e user.UserPasswordChanged
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(store.CollectionUsers, e.UserID, func(current any) any {
			u := current.(*readmodel.UserReadModel)
			u.PasswordHash = e.PasswordHash
			u.UpdatedAt = e.ChangedAt
			return u
		})

	case user.EventUserDeactivated:
		var e user.UserDeactivated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(store.CollectionUsers, e.UserID, func(current any) any {
			u := current.(*readmodel.UserReadModel)
			u.IsActive = false
			u.UpdatedAt = e.DeactivatedAt
			return u
		})

	case user.EventUserActivated:
		var e user.UserActivated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(store.CollectionUsers, e.UserID, func(current any) any {
			u := current.(*readmodel.UserReadModel)
			u.IsActive = true
			u.UpdatedAt = e.ActivatedAt
			return u
		})
	}

	return nil
}

func (p *Projector) handleBorrowEvent(event store.Event) error {
	switch event.EventType {
	case borrow.EventBookBorrowed:
		var e borrow.BookBorrowed
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set(store.CollectionBorrows, e.BorrowID, &readmodel.BorrowReadModel{
			ID:         e.BorrowID,
			UserID:     e.UserID,
			BookID:     e.BookID,
			BookTitle:  e.BookTitle,
			BorrowDate: e.BorrowedAt,
			DueDate:    e.DueAt,
			IsFinePaid: true,
		})
		p.notify(e.UserID, "Book borrowed",
			fmt.Sprintf("You borrowed %q. It is due back on %s.", e.BookTitle, e.DueAt.Format("02 Jan 2006")),
			"info", event)

	case borrow.EventBookReturned:
		var e borrow.BookReturned
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(store.CollectionBorrows, e.BorrowID, func(current any) any {
			b := current.(*readmodel.BorrowReadModel)
			b.IsReturned = true
			at := e.ReturnedAt
			b.ReturnDate = &at
			b.FineAmount = e.FineAmount
			b.IsFinePaid = e.FineAmount.IsZero()
			return b
		})

	case borrow.EventFinePaid:
		var e borrow.FinePaid
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(store.CollectionBorrows, e.BorrowID, func(current any) any {
			b := current.(*readmodel.BorrowReadModel)
			b.IsFinePaid = true
			return b
		})
	}

	return nil
}

func (p *Projector) handleMembershipEvent(event store.Event) error {
	switch event.EventType {
	case borrow.EventMembershipApplied:
		var e borrow.MembershipApplied
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set(store.CollectionMemberships, e.MembershipID, &readmodel.MembershipReadModel{
			ID:        e.MembershipID,
			UserID:    e.UserID,
			Status:    string(borrow.MembershipPending),
			AppliedAt: e.AppliedAt,
		})
		p.notifyLibrarians("Membership application",
			"A new library membership application is waiting for review.",
			event)

	case borrow.EventMembershipApproved:
		var e borrow.MembershipApproval
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		var userID string
		p.readStore.Update(store.CollectionMemberships, e.MembershipID, func(current any) any {
			m := current.(*readmodel.MembershipReadModel)
			m.Status = string(borrow.MembershipApproved)
			at := e.ApprovedAt
			m.ApprovedAt = &at
			m.IsActive = true
			userID = m.UserID
			return m
		})
		p.notify(userID, "Membership approved",
			"Your library membership is active. You can now borrow books.",
			"success", event)

	case borrow.EventMembershipRejected:
		var e borrow.MembershipRejection
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		var userID string
		p.readStore.Update(store.CollectionMemberships, e.MembershipID, func(current any) any {
			m := current.(*readmodel.MembershipReadModel)
			m.Status = string(borrow.MembershipRejected)
			m.IsActive = false
			userID = m.UserID
			return m
		})
		p.notify(userID, "Membership application rejected",
			"Your library membership application was not approved.",
			"error", event)
	}

	return nil
}

// notify writes an in-app notification row. The row ID is derived from the
// source event so replaying the log overwrites instead of duplicating.
func (p *Projector) notify(userID, title, message, typ string, event store.Event) {
	if userID == "" {
		return
	}
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("notification:"+event.ID+":"+userID)).String()
	p.readStore.Set(store.CollectionNotifications, id, &readmodel.NotificationReadModel{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      typ,
		CreatedAt: event.Timestamp,
	})
}

// notifyLibrarians fans a back-office notification out to every staff account
func (p *Projector) notifyLibrarians(title, message string, event store.Event) {
	for _, item := range p.readStore.GetAll(store.CollectionUsers) {
		u := item.(*readmodel.UserReadModel)
		if u.Role == user.RoleLibrarian || u.Role == user.RoleAdmin {
			p.notify(u.ID, title, message, "system", event)
		}
	}
}
