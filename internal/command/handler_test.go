package command

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/online-library/internal/domain/book"
	"github.com/example/online-library/internal/domain/borrow"
	"github.com/example/online-library/internal/domain/cart"
	"github.com/example/online-library/internal/domain/category"
	"github.com/example/online-library/internal/domain/inventory"
	"github.com/example/online-library/internal/domain/order"
	"github.com/example/online-library/internal/infrastructure/store"
	"github.com/example/online-library/internal/infrastructure/store/mocks"
	"github.com/example/online-library/internal/payment"
	"github.com/example/online-library/internal/readmodel"
)

// stubGateway records session requests and returns canned responses
type stubGateway struct {
	createErr      error
	validateErr    error
	lastRequest    payment.SessionRequest
	validatedIDs   []string
	sessionsOpened int
}

func (g *stubGateway) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	g.lastRequest = req
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.sessionsOpened++
	return &payment.Session{SessionKey: "sess-1", GatewayPageURL: "https://gateway.example.com/pay/sess-1"}, nil
}

func (g *stubGateway) ValidateTransaction(_ context.Context, validationID string) error {
	g.validatedIDs = append(g.validatedIDs, validationID)
	return g.validateErr
}

// stubIdem is an in-memory idempotency checker
type stubIdem struct {
	keys map[string]bool
}

func newStubIdem() *stubIdem { return &stubIdem{keys: map[string]bool{}} }

func (s *stubIdem) Seen(_ context.Context, key string) (bool, error) {
	if s.keys[key] {
		return true, nil
	}
	s.keys[key] = true
	return false, nil
}

func (s *stubIdem) Forget(_ context.Context, key string) error {
	delete(s.keys, key)
	return nil
}

type handlerFixture struct {
	handler    *Handler
	eventStore *mocks.MockEventStore
	readStore  *store.ReadStore
	gateway    *stubGateway
	idem       *stubIdem
}

func newHandlerFixture() *handlerFixture {
	es := mocks.NewMockEventStore()
	rs := store.NewReadStore()
	gw := &stubGateway{}
	idem := newStubIdem()

	h := NewHandler(
		book.NewService(es),
		category.NewService(es),
		cart.NewService(es),
		order.NewService(es),
		inventory.NewService(es),
		borrow.NewService(es),
		borrow.NewMembershipService(es),
		rs,
		gw,
		idem,
		CallbackURLs{
			Success: "https://shop.example.com/api/payment/success",
			Fail:    "https://shop.example.com/api/payment/fail",
			Cancel:  "https://shop.example.com/api/payment/cancel",
			IPN:     "https://shop.example.com/api/payment/ipn",
		},
	)

	return &handlerFixture{handler: h, eventStore: es, readStore: rs, gateway: gw, idem: idem}
}

func (f *handlerFixture) seedBook(id, title string, price string, copies int) {
	f.readStore.Set(store.CollectionBooks, id, &readmodel.BookReadModel{
		ID:    id,
		Title: title,
		Price: decimal.RequireFromString(price),
	})
	f.readStore.Set(store.CollectionInventory, id, &readmodel.InventoryReadModel{
		BookID:      id,
		TotalCopies: copies,
	})
	// Keep the event-sourced stock in step with the read model
	if copies > 0 {
		_ = inventory.NewService(f.eventStore).AddCopies(context.Background(), id, copies)
	}
}

func (f *handlerFixture) seedCart(userID string, items ...readmodel.CartItemReadModel) {
	cartID := cart.GetCartID(userID)
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	f.readStore.Set(store.CollectionCarts, cartID, &readmodel.CartReadModel{
		ID:     cartID,
		UserID: userID,
		Items:  items,
		Total:  total,
	})
}

func (f *handlerFixture) seedUser(id, email string) {
	f.readStore.Set(store.CollectionUsers, id, &readmodel.UserReadModel{
		ID:       id,
		Email:    email,
		Name:     "Test Reader",
		Role:     "student",
		IsActive: true,
	})
}

func (f *handlerFixture) seedMembership(id, userID string, status borrow.MembershipStatus) {
	f.readStore.Set(store.CollectionMemberships, id, &readmodel.MembershipReadModel{
		ID:     id,
		UserID: userID,
		Status: string(status),
	})
}

// placeOrder runs a full checkout for one user with one seeded cart line
// and mirrors the resulting order into the read store, the way the
// projector would.
func (f *handlerFixture) placeOrder(t *testing.T, userID string) *order.Order {
	t.Helper()

	f.seedUser(userID, userID+"@example.com")
	f.seedBook("book-1", "The Go Programming Language", "450", 10)
	f.seedCart(userID, readmodel.CartItemReadModel{
		BookID:   "book-1",
		Title:    "The Go Programming Language",
		Quantity: 2,
		Price:    decimal.RequireFromString("450"),
	})

	result, err := f.handler.PlaceOrder(context.Background(), PlaceOrder{
		UserID:          userID,
		ShippingName:    "Test Reader",
		ShippingPhone:   "01700000000",
		ShippingAddress: "12 College Road, Dhaka",
	})
	require.NoError(t, err)

	f.projectOrder(result.Order)
	return result.Order
}

func (f *handlerFixture) projectOrder(o *order.Order) {
	items := make([]readmodel.OrderItemReadModel, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, readmodel.OrderItemReadModel{
			ID:        item.ID,
			BookID:    item.BookID,
			BookTitle: item.BookTitle,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Status:    string(item.Status),
		})
	}
	f.readStore.Set(store.CollectionOrders, o.ID, &readmodel.OrderReadModel{
		ID:            o.ID,
		UserID:        o.UserID,
		TransactionID: o.TransactionID,
		Items:         items,
		TotalAmount:   o.TotalAmount,
		OrderStatus:   string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
	})
}

func TestHandlerAddBookWithInitialCopies(t *testing.T) {
	f := newHandlerFixture()

	bookID, err := f.handler.AddBook(context.Background(), AddBook{
		CategoryID:    "cat-1",
		Title:         "Learning Go",
		Author:        "Jon Bodner",
		Price:         decimal.RequireFromString("520"),
		InitialCopies: 5,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, bookID)

	inv, err := inventory.NewService(f.eventStore).Load(context.Background(), bookID)
	require.NoError(t, err)
	assert.Equal(t, 5, inv.TotalCopies)
}

func TestHandlerAddCopiesUnknownBook(t *testing.T) {
	f := newHandlerFixture()

	err := f.handler.AddCopies(context.Background(), AddCopies{BookID: "missing", Quantity: 3})

	assert.ErrorIs(t, err, book.ErrBookNotFound)
}

func TestHandlerAddToCartSnapshotsPrice(t *testing.T) {
	f := newHandlerFixture()
	f.seedBook("book-1", "Clean Architecture", "600", 4)

	err := f.handler.AddToCart(context.Background(), AddToCart{
		UserID:   "user-1",
		BookID:   "book-1",
		Quantity: 2,
	})
	require.NoError(t, err)

	c, err := cart.NewService(f.eventStore).Load(context.Background(), "user-1")
	require.NoError(t, err)
	item, ok := c.Items["book-1"]
	require.True(t, ok)
	assert.Equal(t, "Clean Architecture", item.Title)
	assert.True(t, item.Price.Equal(decimal.RequireFromString("600")))
}

func TestHandlerAddToCartUnknownBook(t *testing.T) {
	f := newHandlerFixture()

	err := f.handler.AddToCart(context.Background(), AddToCart{UserID: "user-1", BookID: "nope", Quantity: 1})

	assert.ErrorIs(t, err, book.ErrBookNotFound)
}

func TestHandlerPlaceOrderOpensGatewaySession(t *testing.T) {
	f := newHandlerFixture()

	o := f.placeOrder(t, "user-1")

	assert.Equal(t, 1, f.gateway.sessionsOpened)
	assert.Equal(t, o.TransactionID, f.gateway.lastRequest.TransactionID)
	assert.True(t, f.gateway.lastRequest.Amount.Equal(decimal.RequireFromString("900")))
	assert.Equal(t, "user-1@example.com", f.gateway.lastRequest.CustomerEmail)
	assert.Equal(t, "https://shop.example.com/api/payment/ipn", f.gateway.lastRequest.IPNURL)

	loaded, err := order.NewService(f.eventStore).Load(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", loaded.SessionKey)
	assert.Equal(t, order.StatusPending, loaded.Status)
}

func TestHandlerPlaceOrderEmptyCart(t *testing.T) {
	f := newHandlerFixture()

	_, err := f.handler.PlaceOrder(context.Background(), PlaceOrder{UserID: "user-1"})

	assert.ErrorIs(t, err, order.ErrEmptyOrder)
	assert.Equal(t, 0, f.gateway.sessionsOpened)
}

func TestHandlerPlaceOrderInsufficientStock(t *testing.T) {
	f := newHandlerFixture()
	f.seedUser("user-1", "user-1@example.com")
	f.seedBook("book-1", "The Go Programming Language", "450", 1)
	f.seedCart("user-1", readmodel.CartItemReadModel{
		BookID:   "book-1",
		Title:    "The Go Programming Language",
		Quantity: 2,
		Price:    decimal.RequireFromString("450"),
	})

	_, err := f.handler.PlaceOrder(context.Background(), PlaceOrder{UserID: "user-1"})

	assert.ErrorIs(t, err, inventory.ErrInsufficientCopies)
	assert.Equal(t, 0, f.gateway.sessionsOpened)
}

func TestHandlerPlaceOrderGatewayDown(t *testing.T) {
	f := newHandlerFixture()
	f.gateway.createErr = payment.ErrGatewayUnreachable
	f.seedUser("user-1", "user-1@example.com")
	f.seedBook("book-1", "The Go Programming Language", "450", 10)
	f.seedCart("user-1", readmodel.CartItemReadModel{
		BookID:   "book-1",
		Title:    "The Go Programming Language",
		Quantity: 1,
		Price:    decimal.RequireFromString("450"),
	})

	_, err := f.handler.PlaceOrder(context.Background(), PlaceOrder{UserID: "user-1"})

	assert.ErrorIs(t, err, payment.ErrGatewayUnreachable)
}

func TestHandlerPaymentSuccessConfirmsAndDeductsStock(t *testing.T) {
	f := newHandlerFixture()
	o := f.placeOrder(t, "user-1")

	err := f.handler.HandlePaymentSuccess(context.Background(), PaymentSuccess{
		TransactionID:     o.TransactionID,
		BankTransactionID: "bank-100",
		CardType:          "VISA",
	})
	require.NoError(t, err)

	loaded, err := order.NewService(f.eventStore).Load(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, loaded.Status)
	assert.Equal(t, order.PaymentSuccess, loaded.PaymentStatus)

	inv, err := inventory.NewService(f.eventStore).Load(context.Background(), "book-1")
	require.NoError(t, err)
	assert.Equal(t, 8, inv.TotalCopies)
}

func TestHandlerPaymentSuccessIsIdempotent(t *testing.T) {
	f := newHandlerFixture()
	o := f.placeOrder(t, "user-1")

	cmd := PaymentSuccess{TransactionID: o.TransactionID, BankTransactionID: "bank-100", CardType: "VISA"}
	require.NoError(t, f.handler.HandlePaymentSuccess(context.Background(), cmd))

	before := len(f.eventStore.GetEvents(o.ID))
	require.NoError(t, f.handler.HandlePaymentSuccess(context.Background(), cmd))
	assert.Equal(t, before, len(f.eventStore.GetEvents(o.ID)))
}

func TestHandlerPaymentSuccessUnknownTransaction(t *testing.T) {
	f := newHandlerFixture()

	err := f.handler.HandlePaymentSuccess(context.Background(), PaymentSuccess{TransactionID: "nope"})

	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestHandlerPaymentFailCancelsOrder(t *testing.T) {
	f := newHandlerFixture()
	o := f.placeOrder(t, "user-1")

	err := f.handler.HandlePaymentFail(context.Background(), PaymentFail{
		TransactionID: o.TransactionID,
		Reason:        "insufficient funds",
	})
	require.NoError(t, err)

	loaded, err := order.NewService(f.eventStore).Load(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, loaded.Status)
	assert.Equal(t, order.PaymentFailure, loaded.PaymentStatus)
}

func TestHandlerPaymentFailAfterSuccessIsNoOp(t *testing.T) {
	f := newHandlerFixture()
	o := f.placeOrder(t, "user-1")

	require.NoError(t, f.handler.HandlePaymentSuccess(context.Background(), PaymentSuccess{
		TransactionID: o.TransactionID,
	}))

	// A late fail redirect must not cancel a paid order
	err := f.handler.HandlePaymentFail(context.Background(), PaymentFail{TransactionID: o.TransactionID})
	require.NoError(t, err)

	loaded, err := order.NewService(f.eventStore).Load(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, loaded.Status)
}

func TestHandlerPaymentCancel(t *testing.T) {
	f := newHandlerFixture()
	o := f.placeOrder(t, "user-1")

	err := f.handler.HandlePaymentCancel(context.Background(), PaymentCancel{TransactionID: o.TransactionID})
	require.NoError(t, err)

	loaded, err := order.NewService(f.eventStore).Load(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, loaded.Status)
	assert.Equal(t, order.PaymentCancelled, loaded.PaymentStatus)
}

func TestHandlerIPNValidatesBeforeFinalizing(t *testing.T) {
	f := newHandlerFixture()
	o := f.placeOrder(t, "user-1")

	err := f.handler.HandlePaymentIPN(context.Background(), PaymentIPN{
		TransactionID: o.TransactionID,
		ValidationID:  "val-77",
		Status:        "VALID",
		CardType:      "VISA",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"val-77"}, f.gateway.validatedIDs)

	loaded, err := order.NewService(f.eventStore).Load(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentSuccess, loaded.PaymentStatus)
}

func TestHandlerIPNIgnoresNonValidStatus(t *testing.T) {
	f := newHandlerFixture()
	o := f.placeOrder(t, "user-1")

	err := f.handler.HandlePaymentIPN(context.Background(), PaymentIPN{
		TransactionID: o.TransactionID,
		ValidationID:  "val-77",
		Status:        "FAILED",
	})
	require.NoError(t, err)

	assert.Empty(t, f.gateway.validatedIDs)
	loaded, err := order.NewService(f.eventStore).Load(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPending, loaded.PaymentStatus)
}

func TestHandlerIPNValidationFailure(t *testing.T) {
	f := newHandlerFixture()
	o := f.placeOrder(t, "user-1")
	f.gateway.validateErr = payment.ErrInvalidPayment

	err := f.handler.HandlePaymentIPN(context.Background(), PaymentIPN{
		TransactionID: o.TransactionID,
		ValidationID:  "val-77",
		Status:        "VALID",
	})

	assert.ErrorIs(t, err, payment.ErrInvalidPayment)
	loaded, lerr := order.NewService(f.eventStore).Load(context.Background(), o.ID)
	require.NoError(t, lerr)
	assert.Equal(t, order.PaymentPending, loaded.PaymentStatus)
}

func TestHandlerReturnReceivedRestocks(t *testing.T) {
	f := newHandlerFixture()
	o := f.placeOrder(t, "user-1")
	ctx := context.Background()

	require.NoError(t, f.handler.HandlePaymentSuccess(ctx, PaymentSuccess{TransactionID: o.TransactionID}))
	require.NoError(t, f.handler.UpdateOrderStatus(ctx, UpdateOrderStatus{OrderID: o.ID, Status: string(order.StatusDelivered)}))

	itemID := o.Items[0].ID
	require.NoError(t, f.handler.RequestReturn(ctx, RequestReturn{OrderID: o.ID, UserID: "user-1", ItemID: itemID, AccountNumber: "01700000000", PaymentMethod: "bkash"}))
	require.NoError(t, f.handler.ApproveReturn(ctx, ApproveReturn{OrderID: o.ID, ItemID: itemID}))

	invSvc := inventory.NewService(f.eventStore)
	before, err := invSvc.Load(ctx, "book-1")
	require.NoError(t, err)

	require.NoError(t, f.handler.MarkReturnReceived(ctx, MarkReturnReceived{OrderID: o.ID, ItemID: itemID}))

	after, err := invSvc.Load(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, before.TotalCopies+2, after.TotalCopies)
}

func TestHandlerProcessRefund(t *testing.T) {
	f := newHandlerFixture()
	o := f.placeOrder(t, "user-1")
	ctx := context.Background()

	require.NoError(t, f.handler.HandlePaymentSuccess(ctx, PaymentSuccess{TransactionID: o.TransactionID}))
	require.NoError(t, f.handler.UpdateOrderStatus(ctx, UpdateOrderStatus{OrderID: o.ID, Status: string(order.StatusDelivered)}))

	itemID := o.Items[0].ID
	require.NoError(t, f.handler.RequestReturn(ctx, RequestReturn{OrderID: o.ID, UserID: "user-1", ItemID: itemID, AccountNumber: "01700000000", PaymentMethod: "bkash"}))
	require.NoError(t, f.handler.ApproveReturn(ctx, ApproveReturn{OrderID: o.ID, ItemID: itemID}))
	require.NoError(t, f.handler.MarkReturnReceived(ctx, MarkReturnReceived{OrderID: o.ID, ItemID: itemID}))

	err := f.handler.ProcessRefund(ctx, ProcessRefund{OrderID: o.ID, ItemID: itemID})
	require.NoError(t, err)

	loaded, err := order.NewService(f.eventStore).Load(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ItemRefunded, loaded.Items[0].Status)
}

func TestHandlerBorrowBookRequiresMembership(t *testing.T) {
	f := newHandlerFixture()
	f.seedBook("book-1", "The Go Programming Language", "450", 3)

	_, err := f.handler.BorrowBook(context.Background(), BorrowBook{UserID: "user-1", BookID: "book-1"})

	assert.ErrorIs(t, err, borrow.ErrNotMember)
}

func TestHandlerBorrowBookDeductsCopy(t *testing.T) {
	f := newHandlerFixture()
	f.seedBook("book-1", "The Go Programming Language", "450", 3)
	f.seedMembership("mem-1", "user-1", borrow.MembershipApproved)

	b, err := f.handler.BorrowBook(context.Background(), BorrowBook{UserID: "user-1", BookID: "book-1"})
	require.NoError(t, err)
	assert.Equal(t, "The Go Programming Language", b.BookTitle)

	inv, err := inventory.NewService(f.eventStore).Load(context.Background(), "book-1")
	require.NoError(t, err)
	assert.Equal(t, 2, inv.TotalCopies)
}

func TestHandlerBorrowBookLimit(t *testing.T) {
	f := newHandlerFixture()
	f.seedMembership("mem-1", "user-1", borrow.MembershipApproved)
	f.seedBook("book-4", "Fourth Book", "100", 2)
	for i := 0; i < borrow.MaxActiveBorrows; i++ {
		id := string(rune('a' + i))
		f.readStore.Set(store.CollectionBorrows, "borrow-"+id, &readmodel.BorrowReadModel{
			ID:     "borrow-" + id,
			UserID: "user-1",
			BookID: "book-" + id,
		})
	}

	_, err := f.handler.BorrowBook(context.Background(), BorrowBook{UserID: "user-1", BookID: "book-4"})

	assert.ErrorIs(t, err, borrow.ErrBorrowLimit)
}

func TestHandlerBorrowBookAlreadyHeld(t *testing.T) {
	f := newHandlerFixture()
	f.seedMembership("mem-1", "user-1", borrow.MembershipApproved)
	f.seedBook("book-1", "The Go Programming Language", "450", 3)
	f.readStore.Set(store.CollectionBorrows, "borrow-1", &readmodel.BorrowReadModel{
		ID:     "borrow-1",
		UserID: "user-1",
		BookID: "book-1",
	})

	_, err := f.handler.BorrowBook(context.Background(), BorrowBook{UserID: "user-1", BookID: "book-1"})

	assert.ErrorIs(t, err, borrow.ErrAlreadyBorrowed)
}

func TestHandlerReturnBorrowedBookRestocks(t *testing.T) {
	f := newHandlerFixture()
	f.seedBook("book-1", "The Go Programming Language", "450", 3)
	f.seedMembership("mem-1", "user-1", borrow.MembershipApproved)
	ctx := context.Background()

	b, err := f.handler.BorrowBook(ctx, BorrowBook{UserID: "user-1", BookID: "book-1"})
	require.NoError(t, err)

	fine, err := f.handler.ReturnBorrowedBook(ctx, ReturnBorrowedBook{BorrowID: b.ID, UserID: "user-1"})
	require.NoError(t, err)
	assert.True(t, fine.IsZero())

	inv, err := inventory.NewService(f.eventStore).Load(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 3, inv.TotalCopies)
}

func TestHandlerApplyMembershipRejectsDuplicate(t *testing.T) {
	f := newHandlerFixture()
	f.seedMembership("mem-1", "user-1", borrow.MembershipPending)

	_, err := f.handler.ApplyMembership(context.Background(), ApplyMembership{UserID: "user-1"})

	assert.ErrorIs(t, err, borrow.ErrMembershipExists)
}

func TestHandlerApplyMembershipAfterRejection(t *testing.T) {
	f := newHandlerFixture()
	f.seedMembership("mem-1", "user-1", borrow.MembershipRejected)

	m, err := f.handler.ApplyMembership(context.Background(), ApplyMembership{UserID: "user-1"})

	require.NoError(t, err)
	assert.Equal(t, borrow.MembershipPending, m.Status)
}

func TestHandlerMembershipReview(t *testing.T) {
	f := newHandlerFixture()
	ctx := context.Background()

	m, err := f.handler.ApplyMembership(ctx, ApplyMembership{UserID: "user-1"})
	require.NoError(t, err)

	require.NoError(t, f.handler.ApproveMembership(ctx, ApproveMembership{MembershipID: m.ID}))

	err = f.handler.RejectMembership(ctx, RejectMembership{MembershipID: m.ID})
	assert.ErrorIs(t, err, borrow.ErrMembershipDecided)
}

func TestHandlerUpdateOrderStatusRejectsUnpaid(t *testing.T) {
	f := newHandlerFixture()
	o := f.placeOrder(t, "user-1")

	err := f.handler.UpdateOrderStatus(context.Background(), UpdateOrderStatus{
		OrderID: o.ID,
		Status:  string(order.StatusShipped),
	})

	assert.ErrorIs(t, err, order.ErrOrderNotPaid)
}

func TestHandlerCategoryPassthrough(t *testing.T) {
	f := newHandlerFixture()
	ctx := context.Background()

	id, err := f.handler.CreateCategory(ctx, CreateCategory{Name: "Programming", Description: "Software books"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, f.handler.UpdateCategory(ctx, UpdateCategory{CategoryID: id, Name: "Tech"}))
	require.NoError(t, f.handler.DeleteCategory(ctx, DeleteCategory{CategoryID: id}))

	err = f.handler.DeleteCategory(ctx, DeleteCategory{CategoryID: id})
	assert.True(t, errors.Is(err, category.ErrCategoryNotFound))
}

func TestMarkNotificationRead(t *testing.T) {
	f := newHandlerFixture()
	f.readStore.Set(store.CollectionNotifications, "n1", &readmodel.NotificationReadModel{
		ID: "n1", UserID: "user-1", Title: "Order confirmed",
	})

	err := f.handler.MarkNotificationRead(context.Background(), MarkNotificationRead{
		NotificationID: "n1", UserID: "user-2",
	})
	assert.ErrorIs(t, err, ErrNotNotificationOwner)

	err = f.handler.MarkNotificationRead(context.Background(), MarkNotificationRead{
		NotificationID: "n1", UserID: "user-1",
	})
	require.NoError(t, err)

	data, ok := f.readStore.Get(store.CollectionNotifications, "n1")
	require.True(t, ok)
	assert.True(t, data.(*readmodel.NotificationReadModel).IsRead)

	err = f.handler.MarkNotificationRead(context.Background(), MarkNotificationRead{
		NotificationID: "missing", UserID: "user-1",
	})
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestMarkAllNotificationsRead(t *testing.T) {
	f := newHandlerFixture()
	f.readStore.Set(store.CollectionNotifications, "n1", &readmodel.NotificationReadModel{ID: "n1", UserID: "user-1"})
	f.readStore.Set(store.CollectionNotifications, "n2", &readmodel.NotificationReadModel{ID: "n2", UserID: "user-1", IsRead: true})
	f.readStore.Set(store.CollectionNotifications, "n3", &readmodel.NotificationReadModel{ID: "n3", UserID: "user-2"})

	marked := f.handler.MarkAllNotificationsRead(context.Background(), MarkAllNotificationsRead{UserID: "user-1"})
	assert.Equal(t, 1, marked)

	data, _ := f.readStore.Get(store.CollectionNotifications, "n3")
	assert.False(t, data.(*readmodel.NotificationReadModel).IsRead)
}
