package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/foodies-backoffice/internal/auth"
	"github.com/ariefcatur/foodies-backoffice/internal/inventory"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type LowStockLister interface {
	LowStock(ctx context.Context, companyID int64) ([]inventory.LowStockItem, error)
}

// InventoryHandler serves the low-stock alerts of the caller's company.
type InventoryHandler struct {
	Alerts LowStockLister
	Log    zerolog.Logger
}

type LowStockResp struct {
	CompanyID int64                    `json:"company_id"`
	Items     []inventory.LowStockItem `json:"items"`
}

func (h *InventoryHandler) Register(r chi.Router, authn func(http.Handler) http.Handler) {
	r.With(authn).Get("/inventory/api/low-stock/", h.lowStock)
}

func (h *InventoryHandler) lowStock(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Authentication credentials were not provided."})
		return
	}
	items, err := h.Alerts.LowStock(r.Context(), p.CompanyID)
	if err != nil {
		h.Log.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int64("company_id", p.CompanyID).
			Msg("list low stock")
		writeJSON(w, http.StatusServiceUnavailable, Envelope{Status: statusError, Message: err.Error()})
		return
	}
	if items == nil {
		items = []inventory.LowStockItem{}
	}
	writeJSON(w, http.StatusOK, LowStockResp{CompanyID: p.CompanyID, Items: items})
}
