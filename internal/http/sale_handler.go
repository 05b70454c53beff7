package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/VNGato/sistema-estoque/internal/cache"
	"github.com/VNGato/sistema-estoque/internal/events"
	"github.com/VNGato/sistema-estoque/internal/sale"
)

// SaleCommitter is the service-layer entry point for atomic sale commits.
type SaleCommitter interface {
	Commit(ctx context.Context, saleID string, lines []sale.Line, amountPaid decimal.Decimal) (sale.CommitResult, error)
}

type SaleHandler struct {
	svc    SaleCommitter
	cache  *cache.Cache
	pub    EventPublisher
	logger zerolog.Logger
}

func NewSaleHandler(svc SaleCommitter, c *cache.Cache, pub EventPublisher, logger zerolog.Logger) *SaleHandler {
	return &SaleHandler{svc: svc, cache: c, pub: pub, logger: logger}
}

type commitSaleRequest struct {
	SaleID     string          `json:"saleId"`
	Lines      []sale.Line     `json:"lines"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
}

type insufficientResponse struct {
	Error string                  `json:"error"`
	Code  string                  `json:"code"`
	Lines []sale.InsufficientLine `json:"lines"`
}

// CommitSale applies a whole cart in one store transaction. It either
// decrements every line and records the sale, or changes nothing.
func (h *SaleHandler) CommitSale(w http.ResponseWriter, r *http.Request) {
	var req commitSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid json")
		return
	}
	if req.SaleID == "" {
		req.SaleID = uuid.NewString()
	}

	res, err := h.svc.Commit(r.Context(), req.SaleID, req.Lines, req.AmountPaid)
	if err != nil {
		if errors.Is(err, sale.ErrEmptyCart) || errors.Is(err, sale.ErrInvalidLine) {
			writeError(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("saleId", req.SaleID).Msg("commit sale")
		writeError(w, http.StatusInternalServerError, CodeStoreFailure, "failed to commit sale")
		return
	}

	if len(res.Insufficient) > 0 {
		writeJSON(w, http.StatusConflict, insufficientResponse{
			Error: "insufficient stock",
			Code:  CodeInsufficientStock,
			Lines: res.Insufficient,
		})
		return
	}

	h.cache.Del(r.Context(), productListCacheKey)
	h.publishSaleEvents(r.Context(), res)
	writeJSON(w, http.StatusCreated, res.Sale)
}

// publishSaleEvents emits sale.completed plus stock.low for every product the
// sale pushed below its minimum. Best effort, logged on failure.
func (h *SaleHandler) publishSaleEvents(ctx context.Context, res sale.CommitResult) {
	if h.pub == nil || res.Sale == nil {
		return
	}

	meta := events.EventMeta{PartitionKey: res.Sale.ID}
	if err := h.pub.PublishSaleCompleted(ctx, meta, res.Sale); err != nil {
		h.logger.Warn().Err(err).Str("saleId", res.Sale.ID).Msg("publish sale.completed")
	}

	now := time.Now().UTC()
	for _, lvl := range res.Levels {
		if lvl.Stock >= lvl.MinStock {
			continue
		}
		payload := events.StockLowPayload{
			ProductID: lvl.ProductID,
			Stock:     lvl.Stock,
			MinStock:  lvl.MinStock,
			Timestamp: now,
		}
		lowMeta := events.EventMeta{
			CausationID:  res.Sale.ID,
			PartitionKey: strconv.FormatInt(lvl.ProductID, 10),
		}
		if err := h.pub.PublishStockLow(ctx, lowMeta, payload); err != nil {
			h.logger.Warn().Err(err).Int64("productId", lvl.ProductID).Msg("publish stock.low")
		}
	}
}
