package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/online-library/internal/api/middleware"
	"github.com/example/online-library/internal/command"
	"github.com/example/online-library/internal/domain/book"
	"github.com/example/online-library/internal/domain/borrow"
	"github.com/example/online-library/internal/domain/cart"
	"github.com/example/online-library/internal/domain/category"
	"github.com/example/online-library/internal/domain/inventory"
	"github.com/example/online-library/internal/domain/order"
	"github.com/example/online-library/internal/query"
	"github.com/example/online-library/internal/readmodel"
)

type Handlers struct {
	commands *command.Handler
	queries  *query.Handler
}

func NewHandlers(commands *command.Handler, queries *query.Handler) *Handlers {
	return &Handlers{commands: commands, queries: queries}
}

// ============================================
// Catalog
// ============================================

func (h *Handlers) GetBooks(w http.ResponseWriter, r *http.Request) {
	books := h.queries.ListBookViews(query.BookFilter{
		CategoryID: r.URL.Query().Get("category"),
		Search:     r.URL.Query().Get("q"),
	})
	respondJSON(w, http.StatusOK, books)
}

func (h *Handlers) GetBook(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/books/")
	b, ok := h.queries.GetBook(id)
	if !ok {
		respondJSONError(w, "Book not found", http.StatusNotFound)
		return
	}

	copies := 0
	if inv, ok := h.queries.GetInventory(id); ok {
		copies = inv.TotalCopies
	}

	categoryName := ""
	if c, ok := h.queries.GetCategory(b.CategoryID); ok {
		categoryName = c.Name
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"book":             b,
		"category_name":    categoryName,
		"available_copies": copies,
	})
}

func (h *Handlers) CreateBook(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddBook
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	bookID, err := h.commands.AddBook(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"id": bookID})
}

func (h *Handlers) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/books/")

	var cmd command.UpdateBook
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.BookID = id

	if err := h.commands.UpdateBook(r.Context(), cmd); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Book updated"})
}

func (h *Handlers) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/books/")

	if err := h.commands.RemoveBook(r.Context(), command.RemoveBook{BookID: id}); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Book removed"})
}

func (h *Handlers) UpdateBookFiles(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/api/books/"), "/files")

	var cmd command.UpdateBookFiles
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.BookID = id

	if err := h.commands.UpdateBookFiles(r.Context(), cmd); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Book files updated"})
}

func (h *Handlers) AddCopies(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/api/books/"), "/copies")

	var cmd command.AddCopies
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.BookID = id

	if err := h.commands.AddCopies(r.Context(), cmd); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Copies added"})
}

func (h *Handlers) GetCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queries.ListCategories())
}

func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateCategory
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, err := h.commands.CreateCategory(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handlers) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/categories/")

	var cmd command.UpdateCategory
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.CategoryID = id

	if err := h.commands.UpdateCategory(r.Context(), cmd); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Category updated"})
}

func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/categories/")

	if err := h.commands.DeleteCategory(r.Context(), command.DeleteCategory{CategoryID: id}); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Category deleted"})
}

// ============================================
// Cart
// ============================================

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queries.GetCart(middleware.GetUserID(r.Context())))
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddToCart
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.UserID = middleware.GetUserID(r.Context())

	if err := h.commands.AddToCart(r.Context(), cmd); err != nil {
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	cmd := command.RemoveFromCart{
		UserID: middleware.GetUserID(r.Context()),
		BookID: extractPathParam(r.URL.Path, "/api/cart/items/"),
	}

	if err := h.commands.RemoveFromCart(r.Context(), cmd); err != nil {
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	cmd := command.ClearCart{UserID: middleware.GetUserID(r.Context())}

	if err := h.commands.ClearCart(r.Context(), cmd); err != nil {
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ============================================
// Checkout and orders
// ============================================

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var cmd command.PlaceOrder
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.UserID = middleware.GetUserID(r.Context())

	result, err := h.commands.PlaceOrder(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	ordersPlacedTotal.Inc()
	respondJSON(w, http.StatusCreated, map[string]any{
		"order":       result.Order,
		"gateway_url": result.GatewayURL,
	})
}

// orderView adds the derived return-eligibility flag the order list shows.
type orderView struct {
	*readmodel.OrderReadModel
	CanRequestReturn bool `json:"can_request_return"`
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.queries.ListOrdersByUser(middleware.GetUserID(r.Context()))
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, orderView{
			OrderReadModel:   o,
			CanRequestReturn: o.OrderStatus == string(order.StatusDelivered),
		})
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/orders/")

	o, ok := h.queries.GetOrder(id)
	if !ok {
		respondJSONError(w, "Order not found", http.StatusNotFound)
		return
	}

	if o.UserID != middleware.GetUserID(r.Context()) && !isStaff(r) {
		respondJSONError(w, "Forbidden", http.StatusForbidden)
		return
	}

	respondJSON(w, http.StatusOK, o)
}

// orderItemPath splits "/api/orders/{orderID}/items/{itemID}/<action>"
func orderItemPath(path, action string) (orderID, itemID string, ok bool) {
	rest := strings.TrimPrefix(path, "/api/orders/")
	rest = strings.TrimSuffix(rest, "/"+action)
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "items" {
		return "", "", false
	}
	return parts[0], parts[2], true
}

func (h *Handlers) RequestReturn(w http.ResponseWriter, r *http.Request) {
	orderID, itemID, ok := orderItemPath(r.URL.Path, "return")
	if !ok {
		respondJSONError(w, "Invalid path", http.StatusBadRequest)
		return
	}

	var cmd command.RequestReturn
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.OrderID = orderID
	cmd.UserID = middleware.GetUserID(r.Context())
	cmd.ItemID = itemID

	if err := h.commands.RequestReturn(r.Context(), cmd); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Return requested"})
}

func (h *Handlers) CancelReturn(w http.ResponseWriter, r *http.Request) {
	orderID, itemID, ok := orderItemPath(r.URL.Path, "return")
	if !ok {
		respondJSONError(w, "Invalid path", http.StatusBadRequest)
		return
	}

	cmd := command.CancelReturn{
		OrderID: orderID,
		UserID:  middleware.GetUserID(r.Context()),
		ItemID:  itemID,
	}
	if err := h.commands.CancelReturn(r.Context(), cmd); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Return request cancelled"})
}

// ============================================
// Borrowing and membership
// ============================================

func (h *Handlers) BorrowBook(w http.ResponseWriter, r *http.Request) {
	var cmd command.BorrowBook
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.UserID = middleware.GetUserID(r.Context())

	b, err := h.commands.BorrowBook(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	booksBorrowedTotal.Inc()
	respondJSON(w, http.StatusCreated, b)
}

func (h *Handlers) GetBorrows(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queries.ListBorrowsByUser(middleware.GetUserID(r.Context())))
}

func (h *Handlers) ReturnBorrowedBook(w http.ResponseWriter, r *http.Request) {
	borrowID := strings.TrimSuffix(extractPathParam(r.URL.Path, "/api/borrows/"), "/return")

	cmd := command.ReturnBorrowedBook{
		BorrowID: borrowID,
		UserID:   middleware.GetUserID(r.Context()),
	}
	fine, err := h.commands.ReturnBorrowedBook(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Book returned",
		"fine":    fine,
	})
}

func (h *Handlers) PayFine(w http.ResponseWriter, r *http.Request) {
	borrowID := strings.TrimSuffix(extractPathParam(r.URL.Path, "/api/borrows/"), "/fine")

	cmd := command.PayFine{
		BorrowID: borrowID,
		UserID:   middleware.GetUserID(r.Context()),
	}
	if err := h.commands.PayFine(r.Context(), cmd); err != nil {
		respondDomainError(w, err)
		return
	}

	finesCollectedTotal.Inc()
	respondJSON(w, http.StatusOK, map[string]string{"message": "Fine paid"})
}

func (h *Handlers) ApplyMembership(w http.ResponseWriter, r *http.Request) {
	cmd := command.ApplyMembership{UserID: middleware.GetUserID(r.Context())}

	m, err := h.commands.ApplyMembership(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, m)
}

func (h *Handlers) GetMembership(w http.ResponseWriter, r *http.Request) {
	m, ok := h.queries.GetMembershipByUser(middleware.GetUserID(r.Context()))
	if !ok {
		respondJSONError(w, "No membership application", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

// ============================================
// Notifications
// ============================================

func (h *Handlers) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{
		"notifications": h.queries.ListNotificationsByUser(userID),
		"unread":        h.queries.CountUnreadNotifications(userID),
	})
}

// MarkNotificationRead handles POST /api/notifications/{id}/read
func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/api/notifications/"), "/read")
	err := h.commands.MarkNotificationRead(r.Context(), command.MarkNotificationRead{
		NotificationID: id,
		UserID:         middleware.GetUserID(r.Context()),
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	marked := h.commands.MarkAllNotificationsRead(r.Context(), command.MarkAllNotificationsRead{
		UserID: middleware.GetUserID(r.Context()),
	})
	respondJSON(w, http.StatusOK, map[string]any{"marked": marked})
}

// ============================================
// Helpers
// ============================================

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

func isStaff(r *http.Request) bool {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return false
	}
	return claims.Role == "librarian" || claims.Role == "admin"
}

// respondDomainError maps domain errors onto HTTP status codes
func respondDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, book.ErrBookNotFound),
		errors.Is(err, category.ErrCategoryNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrItemNotFound),
		errors.Is(err, borrow.ErrBorrowNotFound),
		errors.Is(err, borrow.ErrMembershipNotFound),
		errors.Is(err, command.ErrNotificationNotFound):
		status = http.StatusNotFound

	case errors.Is(err, order.ErrNotOrderOwner),
		errors.Is(err, borrow.ErrNotBorrower),
		errors.Is(err, borrow.ErrNotMember),
		errors.Is(err, command.ErrNotNotificationOwner):
		status = http.StatusForbidden

	case errors.Is(err, order.ErrOrderAlreadyPaid),
		errors.Is(err, order.ErrPaymentFinalized),
		errors.Is(err, order.ErrOrderNotPaid),
		errors.Is(err, order.ErrOrderCancelled),
		errors.Is(err, order.ErrOrderNotDelivered),
		errors.Is(err, order.ErrInvalidItemState),
		errors.Is(err, borrow.ErrAlreadyReturned),
		errors.Is(err, borrow.ErrNotReturned),
		errors.Is(err, borrow.ErrNoFineDue),
		errors.Is(err, borrow.ErrBorrowLimit),
		errors.Is(err, borrow.ErrAlreadyBorrowed),
		errors.Is(err, borrow.ErrMembershipExists),
		errors.Is(err, borrow.ErrMembershipDecided),
		errors.Is(err, inventory.ErrInsufficientCopies):
		status = http.StatusConflict

	case errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, book.ErrInvalidTitle),
		errors.Is(err, book.ErrInvalidPrice),
		errors.Is(err, category.ErrInvalidName),
		errors.Is(err, cart.ErrInvalidBook),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInvalidQuantity):
		status = http.StatusBadRequest
	}

	respondJSONError(w, err.Error(), status)
}
