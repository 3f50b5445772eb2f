package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/example/online-library/internal/command"
)

// Librarian back-office endpoints. The router guards all of these with the
// librarian/admin role.

func (h *Handlers) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queries.ListAllOrders())
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/api/librarian/orders/"), "/status")

	var cmd command.UpdateOrderStatus
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.OrderID = id

	if err := h.commands.UpdateOrderStatus(r.Context(), cmd); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Order status updated"})
}

func (h *Handlers) GetReturnRequests(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queries.ListReturnRequests())
}

// librarianOrderItemPath splits
// "/api/librarian/orders/{orderID}/items/{itemID}/<action>"
func librarianOrderItemPath(path, action string) (orderID, itemID string, ok bool) {
	rest := strings.TrimPrefix(path, "/api/librarian/orders/")
	rest = strings.TrimSuffix(rest, "/"+action)
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "items" {
		return "", "", false
	}
	return parts[0], parts[2], true
}

func (h *Handlers) ApproveReturn(w http.ResponseWriter, r *http.Request) {
	orderID, itemID, ok := librarianOrderItemPath(r.URL.Path, "approve-return")
	if !ok {
		respondJSONError(w, "Invalid path", http.StatusBadRequest)
		return
	}

	cmd := command.ApproveReturn{OrderID: orderID, ItemID: itemID}
	if err := h.commands.ApproveReturn(r.Context(), cmd); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Return approved"})
}

func (h *Handlers) MarkReturnReceived(w http.ResponseWriter, r *http.Request) {
	orderID, itemID, ok := librarianOrderItemPath(r.URL.Path, "receive-return")
	if !ok {
		respondJSONError(w, "Invalid path", http.StatusBadRequest)
		return
	}

	cmd := command.MarkReturnReceived{OrderID: orderID, ItemID: itemID}
	if err := h.commands.MarkReturnReceived(r.Context(), cmd); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Return received and restocked"})
}

func (h *Handlers) ProcessRefund(w http.ResponseWriter, r *http.Request) {
	orderID, itemID, ok := librarianOrderItemPath(r.URL.Path, "refund")
	if !ok {
		respondJSONError(w, "Invalid path", http.StatusBadRequest)
		return
	}

	cmd := command.ProcessRefund{OrderID: orderID, ItemID: itemID}
	if err := h.commands.ProcessRefund(r.Context(), cmd); err != nil {
		respondDomainError(w, err)
		return
	}

	refundsProcessedTotal.Inc()
	respondJSON(w, http.StatusOK, map[string]string{"message": "Refund processed"})
}

func (h *Handlers) GetPendingMemberships(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queries.ListPendingMemberships())
}

func (h *Handlers) ApproveMembership(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/api/librarian/memberships/"), "/approve")

	cmd := command.ApproveMembership{MembershipID: id}
	if err := h.commands.ApproveMembership(r.Context(), cmd); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Membership approved"})
}

func (h *Handlers) RejectMembership(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/api/librarian/memberships/"), "/reject")

	cmd := command.RejectMembership{MembershipID: id}
	if err := h.commands.RejectMembership(r.Context(), cmd); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Membership rejected"})
}

func (h *Handlers) GetAllBorrows(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queries.ListAllBorrows())
}

func (h *Handlers) GetOverdueBorrows(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queries.ListOverdueBorrows(time.Now()))
}

// GetRefundReport handles GET /api/librarian/reports/refunds
func (h *Handlers) GetRefundReport(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queries.RefundSummary())
}
