package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/bankmore/internal/api/httpx"
	"github.com/baharkarakas/bankmore/internal/middleware"
	"github.com/baharkarakas/bankmore/internal/models"
	"github.com/baharkarakas/bankmore/internal/services"
)

type FeeHandler struct {
	Svc *services.FeeService
}

func NewFeeHandler(s *services.FeeService) *FeeHandler {
	return &FeeHandler{Svc: s}
}

func writeFees(w http.ResponseWriter, r *http.Request, fs []models.Fee, err error) {
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if fs == nil {
		fs = []models.Fee{}
	}
	httpx.WriteJSON(w, http.StatusOK, fs)
}

func (h *FeeHandler) ByAccountNumber(w http.ResponseWriter, r *http.Request) {
	fs, err := h.Svc.ListByAccountNumber(r.Context(), chi.URLParam(r, "number"))
	writeFees(w, r, fs, err)
}

func (h *FeeHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())
	fs, err := h.Svc.ListByAccountID(r.Context(), claims.AccountID)
	writeFees(w, r, fs, err)
}

func (h *FeeHandler) Detail(w http.ResponseWriter, r *http.Request) {
	f, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, f)
}
