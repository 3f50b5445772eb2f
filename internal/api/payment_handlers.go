package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/example/online-library/internal/command"
)

// Gateway callback endpoints. The gateway drives the customer's browser to
// success/fail/cancel with a form POST and delivers the IPN server to
// server, so none of these sit behind auth. The redirect endpoints only
// move the order along after the command layer accepts the callback; the
// IPN is additionally re-validated with the gateway before it counts.

func (h *Handlers) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondJSONError(w, "Invalid form payload", http.StatusBadRequest)
		return
	}

	cmd := command.PaymentSuccess{
		TransactionID:     r.PostFormValue("tran_id"),
		BankTransactionID: r.PostFormValue("bank_tran_id"),
		CardType:          r.PostFormValue("card_type"),
	}
	if cmd.TransactionID == "" {
		respondJSONError(w, "tran_id is required", http.StatusBadRequest)
		return
	}

	if err := h.commands.HandlePaymentSuccess(r.Context(), cmd); err != nil {
		log.Error().Err(err).Str("tran_id", cmd.TransactionID).Msg("payment success callback failed")
		paymentsTotal.WithLabelValues("error").Inc()
		respondDomainError(w, err)
		return
	}

	paymentsTotal.WithLabelValues("success").Inc()
	http.Redirect(w, r, "/payment/success?tran_id="+cmd.TransactionID, http.StatusSeeOther)
}

func (h *Handlers) PaymentFail(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondJSONError(w, "Invalid form payload", http.StatusBadRequest)
		return
	}

	cmd := command.PaymentFail{
		TransactionID: r.PostFormValue("tran_id"),
		Reason:        r.PostFormValue("error"),
	}
	if cmd.TransactionID == "" {
		respondJSONError(w, "tran_id is required", http.StatusBadRequest)
		return
	}

	if err := h.commands.HandlePaymentFail(r.Context(), cmd); err != nil {
		log.Error().Err(err).Str("tran_id", cmd.TransactionID).Msg("payment fail callback failed")
		respondDomainError(w, err)
		return
	}

	paymentsTotal.WithLabelValues("failed").Inc()
	http.Redirect(w, r, "/payment/failed?tran_id="+cmd.TransactionID, http.StatusSeeOther)
}

func (h *Handlers) PaymentCancel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondJSONError(w, "Invalid form payload", http.StatusBadRequest)
		return
	}

	cmd := command.PaymentCancel{TransactionID: r.PostFormValue("tran_id")}
	if cmd.TransactionID == "" {
		respondJSONError(w, "tran_id is required", http.StatusBadRequest)
		return
	}

	if err := h.commands.HandlePaymentCancel(r.Context(), cmd); err != nil {
		log.Error().Err(err).Str("tran_id", cmd.TransactionID).Msg("payment cancel callback failed")
		respondDomainError(w, err)
		return
	}

	paymentsTotal.WithLabelValues("cancelled").Inc()
	http.Redirect(w, r, "/payment/cancelled?tran_id="+cmd.TransactionID, http.StatusSeeOther)
}

func (h *Handlers) PaymentIPN(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondJSONError(w, "Invalid form payload", http.StatusBadRequest)
		return
	}

	cmd := command.PaymentIPN{
		TransactionID:     r.PostFormValue("tran_id"),
		ValidationID:      r.PostFormValue("val_id"),
		Status:            r.PostFormValue("status"),
		BankTransactionID: r.PostFormValue("bank_tran_id"),
		CardType:          r.PostFormValue("card_type"),
	}
	if cmd.TransactionID == "" {
		respondJSONError(w, "tran_id is required", http.StatusBadRequest)
		return
	}

	if err := h.commands.HandlePaymentIPN(r.Context(), cmd); err != nil {
		log.Error().Err(err).Str("tran_id", cmd.TransactionID).Msg("payment IPN rejected")
		paymentsTotal.WithLabelValues("ipn_rejected").Inc()
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
