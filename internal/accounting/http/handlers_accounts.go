package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	filter := accounting.AccountFilter{
		CompanyID:  tenant(r).CompanyID,
		ActiveOnly: queryBool(r, "active"),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			filter.Types = append(filter.Types, accounting.AccountType(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	accounts, err := h.service.ListAccounts(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, newAccountView(a))
	}
	httpx.JSON(w, http.StatusOK, listResponse[accountView]{Data: views})
}

func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	account, err := h.service.CreateAccount(r.Context(), accounting.CreateAccountInput{
		CompanyID:     tenant(r).CompanyID,
		Code:          strings.TrimSpace(req.Code),
		Name:          strings.TrimSpace(req.Name),
		Type:          accounting.AccountType(req.Type),
		SubType:       accounting.AccountSubType(req.SubType),
		NormalBalance: accounting.NormalBalance(req.NormalBalance),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newAccountView(account))
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	account, err := h.service.GetAccount(r.Context(), tenant(r).CompanyID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newAccountView(account))
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	t := tenant(r)
	if err := h.service.DeleteAccount(r.Context(), t.CompanyID, id, t.ActorID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleArchiveAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	t := tenant(r)
	account, err := h.service.ArchiveAccount(r.Context(), t.CompanyID, id, t.ActorID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newAccountView(account))
}

func (h *Handler) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	asOf, err := queryDate(r, "as_of")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	balance, err := h.service.AccountBalanceAsOf(r.Context(), tenant(r).CompanyID, id, asOf)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newBalanceView(balance))
}

func (h *Handler) handleAccountLedger(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
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
	rows, err := h.service.ListLedgerRows(r.Context(), accounting.LedgerFilter{
		CompanyID: tenant(r).CompanyID,
		AccountID: id,
		From:      from,
		To:        to,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse[ledgerRowView]{Data: newLedgerViews(rows)})
}

func (h *Handler) handleReconcileAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.service.ReconcileAccountBalance(r.Context(), tenant(r).CompanyID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type reconcileQueued struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

func (h *Handler) handleReconcileAll(w http.ResponseWriter, r *http.Request) {
	companyID := tenant(r).CompanyID
	if queryBool(r, "async") {
		if h.enqueuer == nil {
			h.fail(w, r, httpx.WithKind(httpx.ErrValidation, errors.New("async reconciliation is not available")))
			return
		}
		taskID, err := h.enqueuer.EnqueueReconcile(r.Context(), companyID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, reconcileQueued{TaskID: taskID, Status: "queued"})
		return
	}
	summary, err := h.service.ReconcileAllAccountBalances(r.Context(), companyID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
