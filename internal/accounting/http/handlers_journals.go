package http

import (
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

func (h *Handler) handleListJournals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := accounting.JournalFilter{
		CompanyID: tenant(r).CompanyID,
		Status:    accounting.JournalStatus(strings.ToUpper(q.Get("status"))),
		Type:      accounting.EntryType(strings.ToUpper(q.Get("entry_type"))),
	}
	var err error
	if filter.From, err = queryDate(r, "from"); err != nil {
		h.fail(w, r, err)
		return
	}
	if filter.To, err = queryDate(r, "to"); err != nil {
		h.fail(w, r, err)
		return
	}
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		h.fail(w, r, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset"); err != nil {
		h.fail(w, r, err)
		return
	}
	entries, err := h.service.ListJournalEntries(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	views := make([]journalView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newJournalView(e))
	}
	httpx.JSON(w, http.StatusOK, listResponse[journalView]{Data: views})
}

func (h *Handler) handleCreateJournal(w http.ResponseWriter, r *http.Request) {
	var req createJournalRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	t := tenant(r)
	entry, err := h.service.CreateJournalEntry(r.Context(), accounting.CreateJournalInput{
		CompanyID:       t.CompanyID,
		ActorID:         t.ActorID,
		Date:            date,
		ReferenceNumber: req.ReferenceNumber,
		Description:     req.Description,
		Type:            accounting.EntryType(req.EntryType),
		SourceID:        req.SourceID,
		Lines:           toLineInputs(req.Lines),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newJournalView(entry))
}

func (h *Handler) handleGetJournal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entry, err := h.service.GetJournalEntry(r.Context(), tenant(r).CompanyID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newJournalView(entry))
}

func (h *Handler) handleUpdateJournal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req updateJournalRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	input := accounting.UpdateJournalInput{
		CompanyID:       tenant(r).CompanyID,
		EntryID:         id,
		ReferenceNumber: req.ReferenceNumber,
		Description:     req.Description,
		Lines:           toLineInputs(req.Lines),
	}
	if req.Date != nil {
		date, err := parseDate("date", *req.Date)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		input.Date = &date
	}
	entry, err := h.service.UpdateJournalEntry(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newJournalView(entry))
}

func (h *Handler) handleDeleteJournal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	t := tenant(r)
	if err := h.service.DeleteJournalEntry(r.Context(), t.CompanyID, id, t.ActorID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePostJournal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	t := tenant(r)
	entry, err := h.service.PostJournalEntry(r.Context(), t.CompanyID, id, t.ActorID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newJournalView(entry))
}

func (h *Handler) handleVoidJournal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	t := tenant(r)
	entry, err := h.service.VoidJournalEntry(r.Context(), t.CompanyID, id, t.ActorID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newJournalView(entry))
}

func (h *Handler) handleJournalLedger(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.service.ListLedgerRows(r.Context(), accounting.LedgerFilter{
		CompanyID:      tenant(r).CompanyID,
		JournalEntryID: id,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse[ledgerRowView]{Data: newLedgerViews(rows)})
}
