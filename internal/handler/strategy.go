package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"tradingbot/internal/models"
	"tradingbot/internal/repository"
)

// StrategyHandler is the entry path for upstream-generated strategies; the
// analysis side posts them here and the producer picks them up on the next
// session tick.
type StrategyHandler struct {
	Repo repository.Repository
}

func (h *StrategyHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/strategies")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.delete)
}

type createStrategyRequest struct {
	StockCode string   `json:"stock_code" binding:"required"`
	StockName string   `json:"stock_name" binding:"required"`
	Exchange  string   `json:"exchange" binding:"required"`
	Patterns  []string `json:"patterns"`
	BuyPrice  string   `json:"buy_price" binding:"required"`
	SellPrice string   `json:"sell_price" binding:"required"`
	StopLoss  string   `json:"stop_loss" binding:"required"`
	Signal    int      `json:"signal" binding:"required"`
}

func (h *StrategyHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListStrategiesParams{
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}
	if v := strings.TrimSpace(c.Query("exchange")); v != "" {
		params.Exchange = &v
	}
	items, err := h.Repo.ListStrategies(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func (h *StrategyHandler) create(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req createStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if req.Signal != models.SignalBuy && req.Signal != models.SignalSell {
		Error(c, http.StatusBadRequest, "signal must be 1 or -1", nil)
		return
	}
	buyPrice, err := decimal.NewFromString(req.BuyPrice)
	if err != nil || buyPrice.Sign() <= 0 {
		Error(c, http.StatusBadRequest, "buy_price must be a positive decimal", nil)
		return
	}
	sellPrice, err := decimal.NewFromString(req.SellPrice)
	if err != nil || sellPrice.Sign() <= 0 {
		Error(c, http.StatusBadRequest, "sell_price must be a positive decimal", nil)
		return
	}
	stopLoss, err := decimal.NewFromString(req.StopLoss)
	if err != nil || stopLoss.Sign() <= 0 {
		Error(c, http.StatusBadRequest, "stop_loss must be a positive decimal", nil)
		return
	}
	item := &models.TradingStrategy{
		StockCode: strings.TrimSpace(req.StockCode),
		StockName: strings.TrimSpace(req.StockName),
		Exchange:  strings.TrimSpace(req.Exchange),
		Patterns:  datatypes.NewJSONSlice(req.Patterns),
		BuyPrice:  buyPrice,
		SellPrice: sellPrice,
		StopLoss:  stopLoss,
		Signal:    req.Signal,
	}
	if err := h.Repo.CreateStrategy(c.Request.Context(), item); err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *StrategyHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetStrategyByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "strategy not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *StrategyHandler) delete(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if err := h.Repo.DeleteStrategy(c.Request.Context(), id); err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, nil, nil)
}
