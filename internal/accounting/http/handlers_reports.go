package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

func (h *Handler) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDate(r, "as_of")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), tenant(r).CompanyID, asOf)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) handleProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if from == nil || to == nil {
		h.fail(w, r, httpx.WithKind(httpx.ErrValidation, errors.New("from and to are required")))
		return
	}
	pl, err := h.service.ProfitAndLoss(r.Context(), tenant(r).CompanyID, *from, *to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pl)
}

func (h *Handler) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDate(r, "as_of")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	date := time.Now().UTC()
	if asOf != nil {
		date = *asOf
	}
	bs, err := h.service.BalanceSheet(r.Context(), tenant(r).CompanyID, date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}
