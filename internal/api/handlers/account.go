package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/bankmore/internal/api/httpx"
	"github.com/baharkarakas/bankmore/internal/apperr"
	"github.com/baharkarakas/bankmore/internal/gateway"
	"github.com/baharkarakas/bankmore/internal/middleware"
	"github.com/baharkarakas/bankmore/internal/services"
)

type AccountHandler struct {
	Svc *services.AccountService
}

func NewAccountHandler(s *services.AccountService) *AccountHandler {
	return &AccountHandler{Svc: s}
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	res, err := h.Svc.Register(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

type loginReq struct {
	// Login is a CPF or an account number.
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	res, err := h.Svc.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type passwordReq struct {
	Password string `json:"password"`
}

func (h *AccountHandler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())
		var req passwordReq
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		var err error
		if active {
			err = h.Svc.Activate(r.Context(), claims.AccountID, req.Password)
		} else {
			err = h.Svc.Deactivate(r.Context(), claims.AccountID, req.Password)
		}
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *AccountHandler) Deactivate() http.HandlerFunc { return h.setActive(false) }
func (h *AccountHandler) Activate() http.HandlerFunc   { return h.setActive(true) }

// Movement is the gateway endpoint.
func (h *AccountHandler) Movement(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())
	var req gateway.MovementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.Svc.ApplyMovement(r.Context(), claims, req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())
	b, err := h.Svc.Balance(r.Context(), claims.AccountID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

// BalanceByNumber honours ?fresh=1, used by the transfer service before it
// debits.
func (h *AccountHandler) BalanceByNumber(w http.ResponseWriter, r *http.Request) {
	fresh, _ := strconv.ParseBool(r.URL.Query().Get("fresh"))
	b, err := h.Svc.BalanceByNumber(r.Context(), chi.URLParam(r, "number"), fresh)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *AccountHandler) Exists(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Svc.Exists(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"exists": ok})
}

func (h *AccountHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	info, err := h.Svc.Resolve(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, info)
}

func (h *AccountHandler) Statement(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpx.WriteError(w, r, apperr.E(apperr.InvalidArgument, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	ms, err := h.Svc.Statement(r.Context(), claims.AccountID, limit)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ms)
}
