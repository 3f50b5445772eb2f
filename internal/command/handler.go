package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/example/online-library/internal/domain/book"
	"github.com/example/online-library/internal/domain/borrow"
	"github.com/example/online-library/internal/domain/cart"
	"github.com/example/online-library/internal/domain/inventory"
	"github.com/example/online-library/internal/domain/order"
	"github.com/example/online-library/internal/infrastructure/store"
	"github.com/example/online-library/internal/payment"
	"github.com/example/online-library/internal/readmodel"
)

// PaymentGateway abstracts the hosted payment gateway client
type PaymentGateway interface {
	CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
	ValidateTransaction(ctx context.Context, validationID string) error
}

// IdempotencyChecker de-duplicates gateway callbacks
type IdempotencyChecker interface {
	Seen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

// CallbackURLs are the gateway redirect and IPN endpoints for this deployment
type CallbackURLs struct {
	Success string
	Fail    string
	Cancel  string
	IPN     string
}

type Handler struct {
	bookSvc       *book.Service
	categorySvc   CategoryService
	cartSvc       *cart.Service
	orderSvc      *order.Service
	inventorySvc  *inventory.Service
	borrowSvc     *borrow.Service
	membershipSvc *borrow.MembershipService
	readStore     store.ReadStoreInterface
	gateway       PaymentGateway
	idem          IdempotencyChecker
	callbacks     CallbackURLs
}

// CategoryService is the slice of the category domain the handler needs
type CategoryService interface {
	Create(ctx context.Context, name, description string) (string, error)
	Update(ctx context.Context, categoryID, name, description string) error
	Delete(ctx context.Context, categoryID string) error
}

func NewHandler(
	bookSvc *book.Service,
	categorySvc CategoryService,
	cartSvc *cart.Service,
	orderSvc *order.Service,
	inventorySvc *inventory.Service,
	borrowSvc *borrow.Service,
	membershipSvc *borrow.MembershipService,
	readStore store.ReadStoreInterface,
	gateway PaymentGateway,
	idem IdempotencyChecker,
	callbacks CallbackURLs,
) *Handler {
	return &Handler{
		bookSvc:       bookSvc,
		categorySvc:   categorySvc,
		cartSvc:       cartSvc,
		orderSvc:      orderSvc,
		inventorySvc:  inventorySvc,
		borrowSvc:     borrowSvc,
		membershipSvc: membershipSvc,
		readStore:     readStore,
		gateway:       gateway,
		idem:          idem,
		callbacks:     callbacks,
	}
}

// ============================================
// Catalog
// ============================================

// AddBook adds a catalog book with its initial stock
func (h *Handler) AddBook(ctx context.Context, cmd AddBook) (string, error) {
	bookID, err := h.bookSvc.Add(ctx, book.Details{
		CategoryID:  cmd.CategoryID,
		Title:       cmd.Title,
		Author:      cmd.Author,
		Publisher:   cmd.Publisher,
		Description: cmd.Description,
		ISBN:        cmd.ISBN,
		Price:       cmd.Price,
	})
	if err != nil {
		return "", err
	}

	if cmd.InitialCopies > 0 {
		if err := h.inventorySvc.AddCopies(ctx, bookID, cmd.InitialCopies); err != nil {
			return "", err
		}
	}
	return bookID, nil
}

func (h *Handler) UpdateBook(ctx context.Context, cmd UpdateBook) error {
	return h.bookSvc.Update(ctx, cmd.BookID, book.Details{
		CategoryID:  cmd.CategoryID,
		Title:       cmd.Title,
		Author:      cmd.Author,
		Publisher:   cmd.Publisher,
		Description: cmd.Description,
		ISBN:        cmd.ISBN,
		Price:       cmd.Price,
	})
}

func (h *Handler) RemoveBook(ctx context.Context, cmd RemoveBook) error {
	return h.bookSvc.Remove(ctx, cmd.BookID)
}

func (h *Handler) UpdateBookFiles(ctx context.Context, cmd UpdateBookFiles) error {
	return h.bookSvc.UpdateFiles(ctx, cmd.BookID, cmd.ImageURL, cmd.PDFURL)
}

func (h *Handler) AddCopies(ctx context.Context, cmd AddCopies) error {
	if _, ok := h.readStore.Get(store.CollectionBooks, cmd.BookID); !ok {
		return book.ErrBookNotFound
	}
	return h.inventorySvc.AddCopies(ctx, cmd.BookID, cmd.Quantity)
}

func (h *Handler) CreateCategory(ctx context.Context, cmd CreateCategory) (string, error) {
	return h.categorySvc.Create(ctx, cmd.Name, cmd.Description)
}

func (h *Handler) UpdateCategory(ctx context.Context, cmd UpdateCategory) error {
	return h.categorySvc.Update(ctx, cmd.CategoryID, cmd.Name, cmd.Description)
}

func (h *Handler) DeleteCategory(ctx context.Context, cmd DeleteCategory) error {
	return h.categorySvc.Delete(ctx, cmd.CategoryID)
}

// ============================================
// Cart
// ============================================

// AddToCart adds an item to the cart, snapshotting the current book price
func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) error {
	b, ok := h.readStore.Get(store.CollectionBooks, cmd.BookID)
	if !ok {
		return book.ErrBookNotFound
	}
	bookModel := b.(*readmodel.BookReadModel)

	return h.cartSvc.AddItem(ctx, cmd.UserID, cmd.BookID, bookModel.Title, cmd.Quantity, bookModel.Price)
}

func (h *Handler) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) error {
	return h.cartSvc.RemoveItem(ctx, cmd.UserID, cmd.BookID)
}

func (h *Handler) ClearCart(ctx context.Context, cmd ClearCart) error {
	return h.cartSvc.Clear(ctx, cmd.UserID)
}

// ============================================
// Checkout
// ============================================

// PlaceOrderResult carries the placed order and the gateway page the
// customer must be redirected to.
type PlaceOrderResult struct {
	Order      *order.Order
	GatewayURL string
}

// PlaceOrder turns the user's cart into an order and opens a payment
// session. The cart stays as it is until payment succeeds.
func (h *Handler) PlaceOrder(ctx context.Context, cmd PlaceOrder) (*PlaceOrderResult, error) {
	cartID := cart.GetCartID(cmd.UserID)
	c, ok := h.readStore.Get(store.CollectionCarts, cartID)
	if !ok {
		return nil, order.ErrEmptyOrder
	}
	cartModel := c.(*readmodel.CartReadModel)
	if len(cartModel.Items) == 0 {
		return nil, order.ErrEmptyOrder
	}

	// Reject the order up front when any line has fewer copies in stock
	// than requested
	var items []order.Item
	for _, item := range cartModel.Items {
		inv, ok := h.readStore.Get(store.CollectionInventory, item.BookID)
		if !ok || inv.(*readmodel.InventoryReadModel).TotalCopies < item.Quantity {
			return nil, fmt.Errorf("%w: %s", inventory.ErrInsufficientCopies, item.Title)
		}
		items = append(items, order.Item{
			BookID:    item.BookID,
			BookTitle: item.Title,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	o, err := h.orderSvc.Place(ctx, cmd.UserID, items, order.ShippingInfo{
		Name:    cmd.ShippingName,
		Phone:   cmd.ShippingPhone,
		Address: cmd.ShippingAddress,
	})
	if err != nil {
		return nil, err
	}

	email := ""
	if u, ok := h.readStore.Get(store.CollectionUsers, cmd.UserID); ok {
		email = u.(*readmodel.UserReadModel).Email
	}

	session, err := h.gateway.CreateSession(ctx, payment.SessionRequest{
		TransactionID:   o.TransactionID,
		Amount:          o.TotalAmount,
		Currency:        "BDT",
		SuccessURL:      h.callbacks.Success,
		FailURL:         h.callbacks.Fail,
		CancelURL:       h.callbacks.Cancel,
		IPNURL:          h.callbacks.IPN,
		CustomerName:    cmd.ShippingName,
		CustomerEmail:   email,
		CustomerPhone:   cmd.ShippingPhone,
		CustomerAddress: cmd.ShippingAddress,
		ProductName:     "Books",
		ProductCategory: "Books",
	})
	if err != nil {
		// The order stays Pending/unpaid; the customer can retry checkout
		return nil, err
	}

	if err := h.orderSvc.AttachGatewaySession(ctx, o.ID, session.SessionKey); err != nil {
		return nil, err
	}

	return &PlaceOrderResult{Order: o, GatewayURL: session.GatewayPageURL}, nil
}

// findOrderByTransaction resolves a gateway transaction id to an order
func (h *Handler) findOrderByTransaction(transactionID string) (*readmodel.OrderReadModel, error) {
	for _, o := range h.readStore.GetAll(store.CollectionOrders) {
		if om := o.(*readmodel.OrderReadModel); om.TransactionID == transactionID {
			return om, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

// HandlePaymentSuccess finalizes a successful payment. It is safe to call
// more than once for the same transaction: duplicates are dropped by the
// idempotency store and by the already-paid check.
func (h *Handler) HandlePaymentSuccess(ctx context.Context, cmd PaymentSuccess) error {
	om, err := h.findOrderByTransaction(cmd.TransactionID)
	if err != nil {
		return err
	}

	if h.idem != nil {
		seen, err := h.idem.Seen(ctx, "payment:success:"+cmd.TransactionID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}

	err = h.orderSvc.MarkPaymentSucceeded(ctx, om.ID, cmd.BankTransactionID, cmd.CardType)
	if errors.Is(err, order.ErrOrderAlreadyPaid) {
		return nil
	}
	if err != nil {
		if h.idem != nil {
			// Let the callback be retried
			if ferr := h.idem.Forget(ctx, "payment:success:"+cmd.TransactionID); ferr != nil {
				log.Error().Err(ferr).Str("tran_id", cmd.TransactionID).Msg("failed to release idempotency key")
			}
		}
		return err
	}

	// Deduct stock per line. A line that can no longer be covered is
	// skipped rather than failing the whole payment.
	for _, item := range om.Items {
		if err := h.inventorySvc.Deduct(ctx, item.BookID, om.ID, item.Quantity); err != nil {
			log.Warn().Err(err).
				Str("order_id", om.ID).
				Str("book_id", item.BookID).
				Msg("could not deduct stock for paid order line")
		}
	}

	if err := h.cartSvc.Clear(ctx, om.UserID); err != nil {
		log.Error().Err(err).Str("user_id", om.UserID).Msg("failed to clear cart after payment")
	}
	return nil
}

// HandlePaymentFail cancels the order for a failed payment
func (h *Handler) HandlePaymentFail(ctx context.Context, cmd PaymentFail) error {
	om, err := h.findOrderByTransaction(cmd.TransactionID)
	if err != nil {
		return err
	}

	err = h.orderSvc.MarkPaymentFailed(ctx, om.ID, cmd.Reason)
	if errors.Is(err, order.ErrPaymentFinalized) {
		return nil
	}
	return err
}

// HandlePaymentCancel cancels the order for a payment abandoned at the gateway
func (h *Handler) HandlePaymentCancel(ctx context.Context, cmd PaymentCancel) error {
	om, err := h.findOrderByTransaction(cmd.TransactionID)
	if err != nil {
		return err
	}

	err = h.orderSvc.MarkPaymentCancelled(ctx, om.ID)
	if errors.Is(err, order.ErrPaymentFinalized) {
		return nil
	}
	return err
}

// HandlePaymentIPN processes the gateway's asynchronous notification. The
// payload is never trusted directly: a VALID notification is re-validated
// with the gateway before the payment is finalized.
func (h *Handler) HandlePaymentIPN(ctx context.Context, cmd PaymentIPN) error {
	if cmd.Status != "VALID" {
		log.Info().Str("tran_id", cmd.TransactionID).Str("status", cmd.Status).Msg("ignoring non-valid IPN")
		return nil
	}

	if err := h.gateway.ValidateTransaction(ctx, cmd.ValidationID); err != nil {
		return err
	}

	return h.HandlePaymentSuccess(ctx, PaymentSuccess{
		TransactionID:     cmd.TransactionID,
		BankTransactionID: cmd.BankTransactionID,
		CardType:          cmd.CardType,
	})
}

// ============================================
// Fulfilment and returns
// ============================================

func (h *Handler) UpdateOrderStatus(ctx context.Context, cmd UpdateOrderStatus) error {
	return h.orderSvc.UpdateFulfilmentStatus(ctx, cmd.OrderID, order.Status(cmd.Status))
}

func (h *Handler) RequestReturn(ctx context.Context, cmd RequestReturn) error {
	return h.orderSvc.RequestReturn(ctx, cmd.OrderID, cmd.UserID, cmd.ItemID, cmd.AccountNumber, cmd.PaymentMethod)
}

func (h *Handler) CancelReturn(ctx context.Context, cmd CancelReturn) error {
	return h.orderSvc.CancelReturn(ctx, cmd.OrderID, cmd.UserID, cmd.ItemID)
}

func (h *Handler) ApproveReturn(ctx context.Context, cmd ApproveReturn) error {
	return h.orderSvc.ApproveReturn(ctx, cmd.OrderID, cmd.ItemID)
}

// MarkReturnReceived records arrived returns and restocks the copies
func (h *Handler) MarkReturnReceived(ctx context.Context, cmd MarkReturnReceived) error {
	bookID, quantity, err := h.orderSvc.MarkReturnReceived(ctx, cmd.OrderID, cmd.ItemID)
	if err != nil {
		return err
	}

	if err := h.inventorySvc.Restock(ctx, bookID, cmd.OrderID, quantity); err != nil {
		log.Error().Err(err).
			Str("order_id", cmd.OrderID).
			Str("book_id", bookID).
			Msg("failed to restock received return")
	}
	return nil
}

// ProcessRefund issues the half-price refund for a received return
func (h *Handler) ProcessRefund(ctx context.Context, cmd ProcessRefund) error {
	_, err := h.orderSvc.ProcessRefund(ctx, cmd.OrderID, cmd.ItemID)
	return err
}

// ============================================
// Borrowing and membership
// ============================================

// hasApprovedMembership checks the read models for an approved membership
func (h *Handler) hasApprovedMembership(userID string) bool {
	for _, m := range h.readStore.GetAll(store.CollectionMemberships) {
		mm := m.(*readmodel.MembershipReadModel)
		if mm.UserID == userID && mm.Status == string(borrow.MembershipApproved) {
			return true
		}
	}
	return false
}

// BorrowBook lends one copy of a book to a member. The borrower needs an
// approved membership, fewer than the limit of active borrows, and must not
// already hold the same book.
func (h *Handler) BorrowBook(ctx context.Context, cmd BorrowBook) (*borrow.Borrow, error) {
	if !h.hasApprovedMembership(cmd.UserID) {
		return nil, borrow.ErrNotMember
	}

	active := 0
	for _, b := range h.readStore.GetAll(store.CollectionBorrows) {
		bm := b.(*readmodel.BorrowReadModel)
		if bm.UserID != cmd.UserID || bm.IsReturned {
			continue
		}
		if bm.BookID == cmd.BookID {
			return nil, borrow.ErrAlreadyBorrowed
		}
		active++
	}
	if active >= borrow.MaxActiveBorrows {
		return nil, borrow.ErrBorrowLimit
	}

	b, ok := h.readStore.Get(store.CollectionBooks, cmd.BookID)
	if !ok {
		return nil, book.ErrBookNotFound
	}
	bookModel := b.(*readmodel.BookReadModel)

	borrowed, err := h.borrowSvc.Borrow(ctx, cmd.UserID, cmd.BookID, bookModel.Title)
	if err != nil {
		return nil, err
	}

	// One physical copy leaves the shelf
	if err := h.inventorySvc.Deduct(ctx, cmd.BookID, borrowed.ID, 1); err != nil {
		return nil, err
	}

	return borrowed, nil
}

// ReturnBorrowedBook takes a borrowed book back and reshelves the copy.
// Returns the overdue fine, zero when on time.
func (h *Handler) ReturnBorrowedBook(ctx context.Context, cmd ReturnBorrowedBook) (decimal.Decimal, error) {
	b, err := h.borrowSvc.Load(ctx, cmd.BorrowID)
	if err != nil {
		return decimal.Zero, err
	}

	fine, err := h.borrowSvc.Return(ctx, cmd.BorrowID, cmd.UserID)
	if err != nil {
		return decimal.Zero, err
	}

	if err := h.inventorySvc.Restock(ctx, b.BookID, cmd.BorrowID, 1); err != nil {
		log.Error().Err(err).Str("borrow_id", cmd.BorrowID).Msg("failed to reshelve returned book")
	}

	return fine, nil
}

func (h *Handler) PayFine(ctx context.Context, cmd PayFine) error {
	_, err := h.borrowSvc.PayFine(ctx, cmd.BorrowID, cmd.UserID)
	return err
}

// ApplyMembership files a membership application, one live application per
// user.
func (h *Handler) ApplyMembership(ctx context.Context, cmd ApplyMembership) (*borrow.Membership, error) {
	for _, m := range h.readStore.GetAll(store.CollectionMemberships) {
		mm := m.(*readmodel.MembershipReadModel)
		if mm.UserID == cmd.UserID && mm.Status != string(borrow.MembershipRejected) {
			return nil, borrow.ErrMembershipExists
		}
	}
	return h.membershipSvc.Apply(ctx, cmd.UserID)
}

func (h *Handler) ApproveMembership(ctx context.Context, cmd ApproveMembership) error {
	return h.membershipSvc.Approve(ctx, cmd.MembershipID)
}

func (h *Handler) RejectMembership(ctx context.Context, cmd RejectMembership) error {
	return h.membershipSvc.Reject(ctx, cmd.MembershipID)
}

// ============================================
// Notifications
// ============================================

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotNotificationOwner = errors.New("notification belongs to another user")
)

// MarkNotificationRead flips one of the user's notification rows to read.
// Notifications are read-model-only rows, so this writes the read store
// directly rather than going through an aggregate.
func (h *Handler) MarkNotificationRead(ctx context.Context, cmd MarkNotificationRead) error {
	data, ok := h.readStore.Get(store.CollectionNotifications, cmd.NotificationID)
	if !ok {
		return ErrNotificationNotFound
	}
	if data.(*readmodel.NotificationReadModel).UserID != cmd.UserID {
		return ErrNotNotificationOwner
	}

	h.readStore.Update(store.CollectionNotifications, cmd.NotificationID, func(current any) any {
		n := current.(*readmodel.NotificationReadModel)
		n.IsRead = true
		return n
	})
	return nil
}

// MarkAllNotificationsRead marks every unread notification of the user and
// reports how many rows changed.
func (h *Handler) MarkAllNotificationsRead(ctx context.Context, cmd MarkAllNotificationsRead) int {
	marked := 0
	for _, item := range h.readStore.GetAll(store.CollectionNotifications) {
		n := item.(*readmodel.NotificationReadModel)
		if n.UserID != cmd.UserID || n.IsRead {
			continue
		}
		h.readStore.Update(store.CollectionNotifications, n.ID, func(current any) any {
			row := current.(*readmodel.NotificationReadModel)
			row.IsRead = true
			return row
		})
		marked++
	}
	return marked
}
