package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "library_orders_placed_total",
		Help: "Number of orders placed through checkout.",
	})

	paymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_payments_total",
		Help: "Payment gateway callbacks processed, by outcome.",
	}, []string{"outcome"})

	refundsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "library_refunds_processed_total",
		Help: "Number of item refunds processed.",
	})

	booksBorrowedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "library_books_borrowed_total",
		Help: "Number of books lent out to members.",
	})

	finesCollectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "library_fines_collected_total",
		Help: "Number of overdue fines paid.",
	})
)
