package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/example/online-library/internal/api/middleware"
	"github.com/example/online-library/internal/auth"
	"github.com/example/online-library/internal/domain/user"
)

// NewRouter wires all HTTP endpoints. Catalog browsing and gateway
// callbacks are public; everything under /api that mutates state requires a
// valid access token, and the librarian back office additionally requires a
// staff role.
func NewRouter(handlers *Handlers, authHandlers *AuthHandlers, jwtService *auth.JWTService) http.Handler {
	mux := http.NewServeMux()

	requireAuth := middleware.Auth(jwtService)
	requireStaff := func(next http.Handler) http.Handler {
		return requireAuth(middleware.RequireRole(user.RoleLibrarian, user.RoleAdmin)(next))
	}

	// Health and metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Auth
	mux.HandleFunc("/api/auth/register", methodHandler(http.MethodPost, authHandlers.Register))
	mux.HandleFunc("/api/auth/login", methodHandler(http.MethodPost, authHandlers.Login))
	mux.HandleFunc("/api/auth/refresh", methodHandler(http.MethodPost, authHandlers.Refresh))
	mux.Handle("/api/auth/logout", requireAuth(methodHandler(http.MethodPost, authHandlers.Logout)))
	mux.Handle("/api/auth/me", requireAuth(methodHandler(http.MethodGet, authHandlers.Me)))
	mux.Handle("/api/auth/profile", requireAuth(methodHandler(http.MethodPut, authHandlers.UpdateProfile)))
	mux.Handle("/api/auth/password", requireAuth(methodHandler(http.MethodPut, authHandlers.ChangePassword)))

	// Catalog: reads are public, writes are staff-only
	mux.HandleFunc("/api/books", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetBooks(w, r)
		case http.MethodPost:
			requireStaff(http.HandlerFunc(handlers.CreateBook)).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/books/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/files") && r.Method == http.MethodPut:
			requireStaff(http.HandlerFunc(handlers.UpdateBookFiles)).ServeHTTP(w, r)
		case strings.HasSuffix(path, "/copies") && r.Method == http.MethodPost:
			requireStaff(http.HandlerFunc(handlers.AddCopies)).ServeHTTP(w, r)
		case r.Method == http.MethodGet:
			handlers.GetBook(w, r)
		case r.Method == http.MethodPut:
			requireStaff(http.HandlerFunc(handlers.UpdateBook)).ServeHTTP(w, r)
		case r.Method == http.MethodDelete:
			requireStaff(http.HandlerFunc(handlers.DeleteBook)).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetCategories(w, r)
		case http.MethodPost:
			requireStaff(http.HandlerFunc(handlers.CreateCategory)).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/categories/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			requireStaff(http.HandlerFunc(handlers.UpdateCategory)).ServeHTTP(w, r)
		case http.MethodDelete:
			requireStaff(http.HandlerFunc(handlers.DeleteCategory)).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	// Cart
	mux.Handle("/api/cart", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetCart(w, r)
		case http.MethodDelete:
			handlers.ClearCart(w, r)
		default:
			methodNotAllowed(w)
		}
	})))
	mux.Handle("/api/cart/items", requireAuth(methodHandler(http.MethodPost, handlers.AddToCart)))
	mux.Handle("/api/cart/items/", requireAuth(methodHandler(http.MethodDelete, handlers.RemoveFromCart)))

	// Checkout and orders
	mux.Handle("/api/checkout", requireAuth(methodHandler(http.MethodPost, handlers.Checkout)))
	mux.Handle("/api/orders", requireAuth(methodHandler(http.MethodGet, handlers.GetOrders)))
	mux.Handle("/api/orders/", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/return") && r.Method == http.MethodPost:
			handlers.RequestReturn(w, r)
		case strings.HasSuffix(path, "/return") && r.Method == http.MethodDelete:
			handlers.CancelReturn(w, r)
		case r.Method == http.MethodGet:
			handlers.GetOrder(w, r)
		default:
			methodNotAllowed(w)
		}
	})))

	// Payment gateway callbacks (no auth, the gateway calls these)
	mux.HandleFunc("/api/payment/success", methodHandler(http.MethodPost, handlers.PaymentSuccess))
	mux.HandleFunc("/api/payment/fail", methodHandler(http.MethodPost, handlers.PaymentFail))
	mux.HandleFunc("/api/payment/cancel", methodHandler(http.MethodPost, handlers.PaymentCancel))
	mux.HandleFunc("/api/payment/ipn", methodHandler(http.MethodPost, handlers.PaymentIPN))

	// Borrowing and membership
	mux.Handle("/api/borrows", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetBorrows(w, r)
		case http.MethodPost:
			handlers.BorrowBook(w, r)
		default:
			methodNotAllowed(w)
		}
	})))
	mux.Handle("/api/borrows/", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/return") && r.Method == http.MethodPost:
			handlers.ReturnBorrowedBook(w, r)
		case strings.HasSuffix(path, "/fine") && r.Method == http.MethodPost:
			handlers.PayFine(w, r)
		default:
			methodNotAllowed(w)
		}
	})))
	mux.Handle("/api/membership", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetMembership(w, r)
		case http.MethodPost:
			handlers.ApplyMembership(w, r)
		default:
			methodNotAllowed(w)
		}
	})))

	// Notifications
	mux.Handle("/api/notifications", requireAuth(methodHandler(http.MethodGet, handlers.GetNotifications)))
	mux.Handle("/api/notifications/read-all", requireAuth(methodHandler(http.MethodPost, handlers.MarkAllNotificationsRead)))
	mux.Handle("/api/notifications/", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/read") && r.Method == http.MethodPost {
			handlers.MarkNotificationRead(w, r)
			return
		}
		methodNotAllowed(w)
	})))

	// Librarian back office
	mux.Handle("/api/librarian/orders", requireStaff(methodHandler(http.MethodGet, handlers.GetAllOrders)))
	mux.Handle("/api/librarian/orders/", requireStaff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/status") && r.Method == http.MethodPut:
			handlers.UpdateOrderStatus(w, r)
		case strings.HasSuffix(path, "/approve-return") && r.Method == http.MethodPost:
			handlers.ApproveReturn(w, r)
		case strings.HasSuffix(path, "/receive-return") && r.Method == http.MethodPost:
			handlers.MarkReturnReceived(w, r)
		case strings.HasSuffix(path, "/refund") && r.Method == http.MethodPost:
			handlers.ProcessRefund(w, r)
		default:
			methodNotAllowed(w)
		}
	})))
	mux.Handle("/api/librarian/returns", requireStaff(methodHandler(http.MethodGet, handlers.GetReturnRequests)))
	mux.Handle("/api/librarian/memberships", requireStaff(methodHandler(http.MethodGet, handlers.GetPendingMemberships)))
	mux.Handle("/api/librarian/memberships/", requireStaff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/approve") && r.Method == http.MethodPost:
			handlers.ApproveMembership(w, r)
		case strings.HasSuffix(path, "/reject") && r.Method == http.MethodPost:
			handlers.RejectMembership(w, r)
		default:
			methodNotAllowed(w)
		}
	})))
	mux.Handle("/api/librarian/borrows", requireStaff(methodHandler(http.MethodGet, handlers.GetAllBorrows)))
	mux.Handle("/api/librarian/borrows/overdue", requireStaff(methodHandler(http.MethodGet, handlers.GetOverdueBorrows)))
	mux.Handle("/api/librarian/reports/refunds", requireStaff(methodHandler(http.MethodGet, handlers.GetRefundReport)))

	return withLogging(mux)
}

func methodHandler(method string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			methodNotAllowed(w)
			return
		}
		fn(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	respondJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
