package query

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/online-library/internal/infrastructure/store"
	"github.com/example/online-library/internal/readmodel"
)

func newTestHandler() (*Handler, *store.ReadStore) {
	rs := store.NewReadStore()
	return NewHandler(rs), rs
}

func TestListBooksFilters(t *testing.T) {
	h, rs := newTestHandler()
	rs.Set(store.CollectionBooks, "b1", &readmodel.BookReadModel{
		ID: "b1", CategoryID: "cat-prog", Title: "The Go Programming Language", Author: "Donovan",
	})
	rs.Set(store.CollectionBooks, "b2", &readmodel.BookReadModel{
		ID: "b2", CategoryID: "cat-prog", Title: "Clean Architecture", Author: "Martin",
	})
	rs.Set(store.CollectionBooks, "b3", &readmodel.BookReadModel{
		ID: "b3", CategoryID: "cat-fiction", Title: "Gitanjali", Author: "Tagore",
	})

	all := h.ListBooks(BookFilter{})
	assert.Len(t, all, 3)
	// Sorted by title
	assert.Equal(t, "Clean Architecture", all[0].Title)

	programming := h.ListBooks(BookFilter{CategoryID: "cat-prog"})
	assert.Len(t, programming, 2)

	byTitle := h.ListBooks(BookFilter{Search: "go programming"})
	require.Len(t, byTitle, 1)
	assert.Equal(t, "b1", byTitle[0].ID)

	byAuthor := h.ListBooks(BookFilter{Search: "tagore"})
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "b3", byAuthor[0].ID)

	none := h.ListBooks(BookFilter{CategoryID: "cat-fiction", Search: "architecture"})
	assert.Empty(t, none)
}

func TestListBookViewsJoinsCategoryNames(t *testing.T) {
	h, rs := newTestHandler()
	rs.Set(store.CollectionCategories, "cat-prog", &readmodel.CategoryReadModel{ID: "cat-prog", Name: "Programming"})
	rs.Set(store.CollectionBooks, "b1", &readmodel.BookReadModel{ID: "b1", CategoryID: "cat-prog", Title: "Learning Go"})
	rs.Set(store.CollectionBooks, "b2", &readmodel.BookReadModel{ID: "b2", CategoryID: "cat-gone", Title: "Orphan"})

	views := h.ListBookViews(BookFilter{})
	require.Len(t, views, 2)
	assert.Equal(t, "Programming", views[0].CategoryName)
	// A book whose category was deleted still lists, without a name
	assert.Equal(t, "", views[1].CategoryName)
}

func TestGetBook(t *testing.T) {
	h, rs := newTestHandler()
	rs.Set(store.CollectionBooks, "b1", &readmodel.BookReadModel{ID: "b1", Title: "Learning Go"})

	b, ok := h.GetBook("b1")
	require.True(t, ok)
	assert.Equal(t, "Learning Go", b.Title)

	_, ok = h.GetBook("missing")
	assert.False(t, ok)
}

func TestGetCartReturnsEmptyForNewUser(t *testing.T) {
	h, _ := newTestHandler()

	c := h.GetCart("user-1")

	assert.Equal(t, "cart-user-1", c.ID)
	assert.Empty(t, c.Items)
	assert.True(t, c.Total.IsZero())
}

func TestGetCartExisting(t *testing.T) {
	h, rs := newTestHandler()
	rs.Set(store.CollectionCarts, "cart-user-1", &readmodel.CartReadModel{
		ID:     "cart-user-1",
		UserID: "user-1",
		Items: []readmodel.CartItemReadModel{
			{BookID: "b1", Title: "Learning Go", Quantity: 2, Price: decimal.RequireFromString("520")},
		},
		Total: decimal.RequireFromString("1040"),
	})

	c := h.GetCart("user-1")

	require.Len(t, c.Items, 1)
	assert.True(t, c.Total.Equal(decimal.RequireFromString("1040")))
}

func TestListOrdersByUserSortedNewestFirst(t *testing.T) {
	h, rs := newTestHandler()
	now := time.Now()
	rs.Set(store.CollectionOrders, "o1", &readmodel.OrderReadModel{
		ID: "o1", UserID: "user-1", OrderDate: now.Add(-2 * time.Hour),
	})
	rs.Set(store.CollectionOrders, "o2", &readmodel.OrderReadModel{
		ID: "o2", UserID: "user-1", OrderDate: now,
	})
	rs.Set(store.CollectionOrders, "o3", &readmodel.OrderReadModel{
		ID: "o3", UserID: "user-2", OrderDate: now,
	})

	orders := h.ListOrdersByUser("user-1")

	require.Len(t, orders, 2)
	assert.Equal(t, "o2", orders[0].ID)
	assert.Equal(t, "o1", orders[1].ID)

	assert.Len(t, h.ListAllOrders(), 3)
}

func TestListReturnRequests(t *testing.T) {
	h, rs := newTestHandler()
	rs.Set(store.CollectionOrders, "o1", &readmodel.OrderReadModel{
		ID: "o1", Items: []readmodel.OrderItemReadModel{{ID: "i1", Status: "Active"}},
	})
	rs.Set(store.CollectionOrders, "o2", &readmodel.OrderReadModel{
		ID: "o2", Items: []readmodel.OrderItemReadModel{
			{ID: "i1", Status: "Active"},
			{ID: "i2", Status: "ReturnRequested"},
		},
	})
	rs.Set(store.CollectionOrders, "o3", &readmodel.OrderReadModel{
		ID: "o3", Items: []readmodel.OrderItemReadModel{{ID: "i1", Status: "Refunded"}},
	})
	rs.Set(store.CollectionOrders, "o4", &readmodel.OrderReadModel{
		ID: "o4", Items: []readmodel.OrderItemReadModel{{ID: "i1", Status: "Received"}},
	})

	requests := h.ListReturnRequests()

	require.Len(t, requests, 3)
	ids := []string{requests[0].ID, requests[1].ID}
	assert.ElementsMatch(t, []string{"o2", "o4"}, ids)
	// the fully refunded order sinks to the end of the queue
	assert.Equal(t, "o3", requests[2].ID)
}

func TestRefundSummary(t *testing.T) {
	h, rs := newTestHandler()
	amount := decimal.NewFromInt(250)
	rs.Set(store.CollectionOrders, "o1", &readmodel.OrderReadModel{
		ID: "o1", Items: []readmodel.OrderItemReadModel{
			{ID: "i1", Status: "Refunded", RefundAmount: &amount},
			{ID: "i2", Status: "Refunded", RefundAmount: &amount},
			{ID: "i3", Status: "Active"},
		},
	})
	rs.Set(store.CollectionOrders, "o2", &readmodel.OrderReadModel{
		ID: "o2", Items: []readmodel.OrderItemReadModel{{ID: "i1", Status: "Active"}},
	})

	report := h.RefundSummary()
	assert.True(t, report.TotalRefunded.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 2, report.RefundedItems)
	assert.Equal(t, 1, report.Orders)
}

func TestGetUserByEmail(t *testing.T) {
	h, rs := newTestHandler()
	rs.Set(store.CollectionUsers, "u1", &readmodel.UserReadModel{ID: "u1", Email: "reader@example.com"})

	u, ok := h.GetUserByEmail("Reader@Example.com")
	require.True(t, ok)
	assert.Equal(t, "u1", u.ID)

	_, ok = h.GetUserByEmail("nobody@example.com")
	assert.False(t, ok)
}

func TestNotificationsByUser(t *testing.T) {
	h, rs := newTestHandler()
	now := time.Now()
	rs.Set(store.CollectionNotifications, "n1", &readmodel.NotificationReadModel{
		ID: "n1", UserID: "user-1", Title: "Order confirmed", CreatedAt: now.Add(-time.Hour),
	})
	rs.Set(store.CollectionNotifications, "n2", &readmodel.NotificationReadModel{
		ID: "n2", UserID: "user-1", Title: "Refund processed", IsRead: true, CreatedAt: now,
	})
	rs.Set(store.CollectionNotifications, "n3", &readmodel.NotificationReadModel{
		ID: "n3", UserID: "user-2", Title: "Order confirmed", CreatedAt: now,
	})

	list := h.ListNotificationsByUser("user-1")
	require.Len(t, list, 2)
	assert.Equal(t, "n2", list[0].ID)

	assert.Equal(t, 1, h.CountUnreadNotifications("user-1"))
}

func TestListOverdueBorrows(t *testing.T) {
	h, rs := newTestHandler()
	now := time.Now()
	rs.Set(store.CollectionBorrows, "br1", &readmodel.BorrowReadModel{
		ID: "br1", UserID: "user-1", DueDate: now.Add(-24 * time.Hour),
	})
	rs.Set(store.CollectionBorrows, "br2", &readmodel.BorrowReadModel{
		ID: "br2", UserID: "user-1", DueDate: now.Add(24 * time.Hour),
	})
	rs.Set(store.CollectionBorrows, "br3", &readmodel.BorrowReadModel{
		ID: "br3", UserID: "user-2", DueDate: now.Add(-48 * time.Hour), IsReturned: true,
	})

	overdue := h.ListOverdueBorrows(now)

	require.Len(t, overdue, 1)
	assert.Equal(t, "br1", overdue[0].ID)
}

func TestGetMembershipByUserPicksLatest(t *testing.T) {
	h, rs := newTestHandler()
	now := time.Now()
	rs.Set(store.CollectionMemberships, "m1", &readmodel.MembershipReadModel{
		ID: "m1", UserID: "user-1", Status: "Rejected", AppliedAt: now.Add(-48 * time.Hour),
	})
	rs.Set(store.CollectionMemberships, "m2", &readmodel.MembershipReadModel{
		ID: "m2", UserID: "user-1", Status: "Approved", AppliedAt: now,
	})

	m, ok := h.GetMembershipByUser("user-1")
	require.True(t, ok)
	assert.Equal(t, "m2", m.ID)

	_, ok = h.GetMembershipByUser("user-2")
	assert.False(t, ok)
}

func TestListPendingMemberships(t *testing.T) {
	h, rs := newTestHandler()
	now := time.Now()
	rs.Set(store.CollectionMemberships, "m1", &readmodel.MembershipReadModel{
		ID: "m1", UserID: "user-1", Status: "Pending", AppliedAt: now,
	})
	rs.Set(store.CollectionMemberships, "m2", &readmodel.MembershipReadModel{
		ID: "m2", UserID: "user-2", Status: "Pending", AppliedAt: now.Add(-time.Hour),
	})
	rs.Set(store.CollectionMemberships, "m3", &readmodel.MembershipReadModel{
		ID: "m3", UserID: "user-3", Status: "Approved", AppliedAt: now,
	})

	pending := h.ListPendingMemberships()

	require.Len(t, pending, 2)
	assert.Equal(t, "m2", pending[0].ID) // oldest application first
}
