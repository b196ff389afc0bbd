package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tradingbot/internal/repository"
)

// PortfolioHandler exposes the read side of the ledger: holdings, account
// balance and the trade audit trail.
type PortfolioHandler struct {
	Repo      repository.Repository
	AccountID uint64
}

func (h *PortfolioHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/holdings", h.holdings)
	r.GET("/api/v1/account", h.account)
	r.GET("/api/v1/records", h.records)
}

func (h *PortfolioHandler) holdings(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListHoldings(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func (h *PortfolioHandler) account(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item, err := h.Repo.GetAccount(c.Request.Context(), h.AccountID)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "account not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *PortfolioHandler) records(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListTradingRecordsParams{
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}
	if v := strings.TrimSpace(c.Query("stock_code")); v != "" {
		params.StockCode = &v
	}
	if v := strings.ToUpper(strings.TrimSpace(c.Query("type"))); v != "" {
		params.Type = &v
	}
	items, err := h.Repo.ListTradingRecords(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}
