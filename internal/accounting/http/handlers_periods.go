package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

func (h *Handler) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "fiscal_year")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	periods, err := h.service.ListPeriods(r.Context(), accounting.PeriodFilter{
		CompanyID:  tenant(r).CompanyID,
		FiscalYear: year,
		Status:     accounting.PeriodStatus(strings.ToUpper(r.URL.Query().Get("status"))),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	views := make([]periodView, 0, len(periods))
	for _, p := range periods {
		views = append(views, newPeriodView(p))
	}
	httpx.JSON(w, http.StatusOK, listResponse[periodView]{Data: views})
}

func (h *Handler) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req createPeriodRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	t := tenant(r)
	period, err := h.service.CreatePeriod(r.Context(), accounting.CreatePeriodInput{
		CompanyID:  t.CompanyID,
		ActorID:    t.ActorID,
		Name:       req.Name,
		Type:       accounting.PeriodType(req.Type),
		FiscalYear: req.FiscalYear,
		StartDate:  start,
		EndDate:    end,
		Notes:      req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newPeriodView(period))
}

type periodLookupView struct {
	Found  bool        `json:"found"`
	Period *periodView `json:"period,omitempty"`
}

func (h *Handler) handleLookupPeriod(w http.ResponseWriter, r *http.Request) {
	date, err := queryDate(r, "date")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if date == nil {
		h.fail(w, r, httpx.WithKind(httpx.ErrValidation, errors.New("date is required")))
		return
	}
	period, found, err := h.service.FindPeriodForDate(r.Context(), tenant(r).CompanyID, *date, queryBool(r, "closed_only"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := periodLookupView{Found: found}
	if found {
		view := newPeriodView(period)
		resp.Period = &view
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	period, err := h.service.GetPeriod(r.Context(), tenant(r).CompanyID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newPeriodView(period))
}

func (h *Handler) handleUpdatePeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req updatePeriodRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	t := tenant(r)
	input := accounting.UpdatePeriodInput{
		CompanyID: t.CompanyID,
		PeriodID:  id,
		ActorID:   t.ActorID,
		Name:      req.Name,
		Notes:     req.Notes,
	}
	if req.Type != nil {
		pt := accounting.PeriodType(*req.Type)
		input.Type = &pt
	}
	if req.StartDate != nil {
		start, err := parseDate("start_date", *req.StartDate)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		input.StartDate = &start
	}
	if req.EndDate != nil {
		end, err := parseDate("end_date", *req.EndDate)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		input.EndDate = &end
	}
	period, err := h.service.UpdatePeriod(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newPeriodView(period))
}

func (h *Handler) handleDeletePeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	t := tenant(r)
	if err := h.service.DeletePeriod(r.Context(), t.CompanyID, id, t.ActorID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClosePeriod(w http.ResponseWriter, r *http.Request) {
	h.transitionPeriod(w, r, h.service.ClosePeriod)
}

func (h *Handler) handleReopenPeriod(w http.ResponseWriter, r *http.Request) {
	h.transitionPeriod(w, r, h.service.ReopenPeriod)
}

func (h *Handler) handleLockPeriod(w http.ResponseWriter, r *http.Request) {
	h.transitionPeriod(w, r, h.service.LockPeriod)
}

type periodTransition func(ctx context.Context, companyID, periodID, actorID int64) (accounting.Period, error)

func (h *Handler) transitionPeriod(w http.ResponseWriter, r *http.Request, transition periodTransition) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	t := tenant(r)
	period, err := transition(r.Context(), t.CompanyID, id, t.ActorID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newPeriodView(period))
}
