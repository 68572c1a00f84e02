package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/bankmore/internal/api/httpx"
	"github.com/baharkarakas/bankmore/internal/middleware"
	"github.com/baharkarakas/bankmore/internal/models"
	"github.com/baharkarakas/bankmore/internal/services"
)

type TransferHandler struct {
	Svc *services.TransferService
}

func NewTransferHandler(s *services.TransferService) *TransferHandler {
	return &TransferHandler{Svc: s}
}

func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())
	var req models.TransferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	res, err := h.Svc.Create(r.Context(), claims, req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *TransferHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())
	ts, err := h.Svc.List(r.Context(), claims.AccountID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if ts == nil {
		ts = []models.Transfer{}
	}
	httpx.WriteJSON(w, http.StatusOK, ts)
}

func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())
	t, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"), claims.AccountID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}
