package query

import (
	"sort"
	"strings"
	"time"

	"github.com/example/online-library/internal/domain/cart"
	"github.com/example/online-library/internal/infrastructure/store"
	"github.com/example/online-library/internal/readmodel"
	"github.com/shopspring/decimal"
)

// Handler serves the read side. All methods work off projected read
// models and never touch the event store.
type Handler struct {
	readStore store.ReadStoreInterface
}

func NewHandler(readStore store.ReadStoreInterface) *Handler {
	return &Handler{readStore: readStore}
}

// BookFilter narrows ListBooks results. Zero values mean no filtering.
type BookFilter struct {
	CategoryID string
	Search     string
}

func (f BookFilter) matches(b *readmodel.BookReadModel) bool {
	if f.CategoryID != "" && b.CategoryID != f.CategoryID {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(b.Title), q) &&
			!strings.Contains(strings.ToLower(b.Author), q) {
			return false
		}
	}
	return true
}

// Books

func (h *Handler) GetBook(id string) (*readmodel.BookReadModel, bool) {
	data, ok := h.readStore.Get(store.CollectionBooks, id)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.BookReadModel), true
}

func (h *Handler) ListBooks(filter BookFilter) []*readmodel.BookReadModel {
	items := h.readStore.GetAll(store.CollectionBooks)
	books := make([]*readmodel.BookReadModel, 0, len(items))
	for _, item := range items {
		b := item.(*readmodel.BookReadModel)
		if filter.matches(b) {
			books = append(books, b)
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books
}

// BookView is a book row joined with its category name for listings.
type BookView struct {
	*readmodel.BookReadModel
	CategoryName string `json:"category_name,omitempty"`
}

func (h *Handler) ListBookViews(filter BookFilter) []BookView {
	names := h.categoryNames()
	books := h.ListBooks(filter)
	views := make([]BookView, 0, len(books))
	for _, b := range books {
		views = append(views, BookView{BookReadModel: b, CategoryName: names[b.CategoryID]})
	}
	return views
}

func (h *Handler) categoryNames() map[string]string {
	names := make(map[string]string)
	for _, item := range h.readStore.GetAll(store.CollectionCategories) {
		c := item.(*readmodel.CategoryReadModel)
		names[c.ID] = c.Name
	}
	return names
}

// Categories

func (h *Handler) GetCategory(id string) (*readmodel.CategoryReadModel, bool) {
	data, ok := h.readStore.Get(store.CollectionCategories, id)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.CategoryReadModel), true
}

func (h *Handler) ListCategories() []*readmodel.CategoryReadModel {
	items := h.readStore.GetAll(store.CollectionCategories)
	categories := make([]*readmodel.CategoryReadModel, 0, len(items))
	for _, item := range items {
		categories = append(categories, item.(*readmodel.CategoryReadModel))
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories
}

// Cart

func (h *Handler) GetCart(userID string) *readmodel.CartReadModel {
	cartID := cart.GetCartID(userID)
	data, ok := h.readStore.Get(store.CollectionCarts, cartID)
	if !ok {
		// A user who never added anything still has an empty cart
		return &readmodel.CartReadModel{
			ID:     cartID,
			UserID: userID,
			Items:  []readmodel.CartItemReadModel{},
			Total:  decimal.Zero,
		}
	}
	return data.(*readmodel.CartReadModel)
}

// Inventory

func (h *Handler) GetInventory(bookID string) (*readmodel.InventoryReadModel, bool) {
	data, ok := h.readStore.Get(store.CollectionInventory, bookID)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.InventoryReadModel), true
}

// Orders

func (h *Handler) GetOrder(id string) (*readmodel.OrderReadModel, bool) {
	data, ok := h.readStore.Get(store.CollectionOrders, id)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.OrderReadModel), true
}

func (h *Handler) ListOrdersByUser(userID string) []*readmodel.OrderReadModel {
	orders := make([]*readmodel.OrderReadModel, 0)
	for _, item := range h.readStore.GetAll(store.CollectionOrders) {
		o := item.(*readmodel.OrderReadModel)
		if o.UserID == userID {
			orders = append(orders, o)
		}
	}
	sortOrders(orders)
	return orders
}

// ListAllOrders is the librarian's view of every order
func (h *Handler) ListAllOrders() []*readmodel.OrderReadModel {
	items := h.readStore.GetAll(store.CollectionOrders)
	orders := make([]*readmodel.OrderReadModel, 0, len(items))
	for _, item := range items {
		orders = append(orders, item.(*readmodel.OrderReadModel))
	}
	sortOrders(orders)
	return orders
}

// ListReturnRequests returns the librarian work queue: every order with at
// least one item in the return workflow. Orders still awaiting action come
// first; fully refunded ones sink to the bottom of the list.
func (h *Handler) ListReturnRequests() []*readmodel.OrderReadModel {
	open := make([]*readmodel.OrderReadModel, 0)
	settled := make([]*readmodel.OrderReadModel, 0)
	for _, item := range h.readStore.GetAll(store.CollectionOrders) {
		o := item.(*readmodel.OrderReadModel)
		switch {
		case hasOpenReturn(o):
			open = append(open, o)
		case hasRefundedItem(o):
			settled = append(settled, o)
		}
	}
	sortOrders(open)
	sortOrders(settled)
	return append(open, settled...)
}

func hasOpenReturn(o *readmodel.OrderReadModel) bool {
	for _, line := range o.Items {
		switch line.Status {
		case "ReturnRequested", "ReturnApproved", "Received":
			return true
		}
	}
	return false
}

func hasRefundedItem(o *readmodel.OrderReadModel) bool {
	for _, line := range o.Items {
		if line.Status == "Refunded" {
			return true
		}
	}
	return false
}

// RefundReport aggregates refunds paid out across all orders.
type RefundReport struct {
	TotalRefunded decimal.Decimal `json:"total_refunded"`
	RefundedItems int             `json:"refunded_items"`
	Orders        int             `json:"orders"`
}

func (h *Handler) RefundSummary() RefundReport {
	report := RefundReport{TotalRefunded: decimal.Zero}
	for _, item := range h.readStore.GetAll(store.CollectionOrders) {
		o := item.(*readmodel.OrderReadModel)
		touched := false
		for _, line := range o.Items {
			if line.Status == "Refunded" && line.RefundAmount != nil {
				report.TotalRefunded = report.TotalRefunded.Add(*line.RefundAmount)
				report.RefundedItems++
				touched = true
			}
		}
		if touched {
			report.Orders++
		}
	}
	return report
}

func sortOrders(orders []*readmodel.OrderReadModel) {
	sort.Slice(orders, func(i, j int) bool { return orders[i].OrderDate.After(orders[j].OrderDate) })
}

// Users

func (h *Handler) GetUser(id string) (*readmodel.UserReadModel, bool) {
	data, ok := h.readStore.Get(store.CollectionUsers, id)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.UserReadModel), true
}

func (h *Handler) GetUserByEmail(email string) (*readmodel.UserReadModel, bool) {
	for _, item := range h.readStore.GetAll(store.CollectionUsers) {
		u := item.(*readmodel.UserReadModel)
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return nil, false
}

func (h *Handler) ListUsers() []*readmodel.UserReadModel {
	items := h.readStore.GetAll(store.CollectionUsers)
	users := make([]*readmodel.UserReadModel, 0, len(items))
	for _, item := range items {
		users = append(users, item.(*readmodel.UserReadModel))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users
}

// Notifications

func (h *Handler) ListNotificationsByUser(userID string) []*readmodel.NotificationReadModel {
	notifications := make([]*readmodel.NotificationReadModel, 0)
	for _, item := range h.readStore.GetAll(store.CollectionNotifications) {
		n := item.(*readmodel.NotificationReadModel)
		if n.UserID == userID {
			notifications = append(notifications, n)
		}
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications
}

func (h *Handler) CountUnreadNotifications(userID string) int {
	count := 0
	for _, n := range h.ListNotificationsByUser(userID) {
		if !n.IsRead {
			count++
		}
	}
	return count
}

// Borrows

func (h *Handler) GetBorrow(id string) (*readmodel.BorrowReadModel, bool) {
	data, ok := h.readStore.Get(store.CollectionBorrows, id)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.BorrowReadModel), true
}

func (h *Handler) ListBorrowsByUser(userID string) []*readmodel.BorrowReadModel {
	borrows := make([]*readmodel.BorrowReadModel, 0)
	for _, item := range h.readStore.GetAll(store.CollectionBorrows) {
		b := item.(*readmodel.BorrowReadModel)
		if b.UserID == userID {
			borrows = append(borrows, b)
		}
	}
	sortBorrows(borrows)
	return borrows
}

// ListAllBorrows is the librarian's view of the lending ledger
func (h *Handler) ListAllBorrows() []*readmodel.BorrowReadModel {
	items := h.readStore.GetAll(store.CollectionBorrows)
	borrows := make([]*readmodel.BorrowReadModel, 0, len(items))
	for _, item := range items {
		borrows = append(borrows, item.(*readmodel.BorrowReadModel))
	}
	sortBorrows(borrows)
	return borrows
}

// ListOverdueBorrows returns unreturned borrows past their due date
func (h *Handler) ListOverdueBorrows(now time.Time) []*readmodel.BorrowReadModel {
	borrows := make([]*readmodel.BorrowReadModel, 0)
	for _, item := range h.readStore.GetAll(store.CollectionBorrows) {
		b := item.(*readmodel.BorrowReadModel)
		if !b.IsReturned && now.After(b.DueDate) {
			borrows = append(borrows, b)
		}
	}
	sortBorrows(borrows)
	return borrows
}

func sortBorrows(borrows []*readmodel.BorrowReadModel) {
	sort.Slice(borrows, func(i, j int) bool { return borrows[i].BorrowDate.After(borrows[j].BorrowDate) })
}

// Memberships

func (h *Handler) GetMembershipByUser(userID string) (*readmodel.MembershipReadModel, bool) {
	var latest *readmodel.MembershipReadModel
	for _, item := range h.readStore.GetAll(store.CollectionMemberships) {
		m := item.(*readmodel.MembershipReadModel)
		if m.UserID != userID {
			continue
		}
		if latest == nil || m.AppliedAt.After(latest.AppliedAt) {
			latest = m
		}
	}
	return latest, latest != nil
}

func (h *Handler) ListPendingMemberships() []*readmodel.MembershipReadModel {
	memberships := make([]*readmodel.MembershipReadModel, 0)
	for _, item := range h.readStore.GetAll(store.CollectionMemberships) {
		m := item.(*readmodel.MembershipReadModel)
		if m.Status == "Pending" {
			memberships = append(memberships, m)
		}
	}
	sort.Slice(memberships, func(i, j int) bool {
		return memberships[i].AppliedAt.Before(memberships[j].AppliedAt)
	})
	return memberships
}
