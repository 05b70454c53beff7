package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/VNGato/sistema-estoque/internal/cache"
	"github.com/VNGato/sistema-estoque/internal/events"
	"github.com/VNGato/sistema-estoque/internal/product"
	"github.com/VNGato/sistema-estoque/internal/sale"
)

const productListCacheKey = "products:list"

// EventPublisher is what the handlers need from the AMQP publisher.
// A nil publisher disables events.
type EventPublisher interface {
	PublishSaleCompleted(ctx context.Context, meta events.EventMeta, s *sale.Sale) error
	PublishStockLow(ctx context.Context, meta events.EventMeta, payload events.StockLowPayload) error
}

type ProductHandler struct {
	repo   product.Repository
	cache  *cache.Cache
	pub    EventPublisher
	logger zerolog.Logger
}

func NewProductHandler(repo product.Repository, c *cache.Cache, pub EventPublisher, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{repo: repo, cache: c, pub: pub, logger: logger}
}

func (h *ProductHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type registerRequest struct {
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	CostPrice decimal.Decimal `json:"costPrice"`
	SalePrice decimal.Decimal `json:"salePrice"`
	Stock     int             `json:"stock"`
	MinStock  int             `json:"minStock"`
}

func (req registerRequest) validate() string {
	switch {
	case req.Name == "":
		return "name is required"
	case req.SKU == "":
		return "sku is required"
	case req.CostPrice.IsNegative() || req.SalePrice.IsNegative():
		return "prices must not be negative"
	case req.Stock < 0 || req.MinStock < 0:
		return "stock and minStock must not be negative"
	default:
		return ""
	}
}

func (h *ProductHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid json")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, msg)
		return
	}

	p, err := h.repo.Create(r.Context(), product.Fields{
		Name:      req.Name,
		SKU:       req.SKU,
		CostPrice: req.CostPrice,
		SalePrice: req.SalePrice,
		Stock:     req.Stock,
		MinStock:  req.MinStock,
	})
	if err != nil {
		if errors.Is(err, product.ErrDuplicateSKU) {
			writeError(w, http.StatusBadRequest, CodeDuplicateSKU, "a product with this sku already exists")
			return
		}
		h.logger.Error().Err(err).Str("sku", req.SKU).Msg("register product")
		writeError(w, http.StatusInternalServerError, CodeStoreFailure, "failed to create product")
		return
	}

	h.cache.Del(r.Context(), productListCacheKey)
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	var products []product.Product
	if h.cache.Get(r.Context(), productListCacheKey, &products) {
		writeJSON(w, http.StatusOK, products)
		return
	}

	products, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list products")
		writeError(w, http.StatusInternalServerError, CodeStoreFailure, "failed to list products")
		return
	}
	if products == nil {
		products = []product.Product{}
	}

	h.cache.Set(r.Context(), productListCacheKey, products)
	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, err, "load product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type amountRequest struct {
	Amount int `json:"amount"`
}

// readAmount decodes the optional {amount} body. Missing body or zero
// amount means 1; negative amounts are rejected by the caller.
func readAmount(r *http.Request) (int, error) {
	var req amountRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	if req.Amount == 0 {
		return 1, nil
	}
	return req.Amount, nil
}

func (h *ProductHandler) Sell(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, -1)
}

func (h *ProductHandler) Restock(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, +1)
}

func (h *ProductHandler) adjust(w http.ResponseWriter, r *http.Request, sign int) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	amount, err := readAmount(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid json")
		return
	}
	if amount < 0 {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "amount must be positive")
		return
	}

	p, err := h.repo.AdjustStock(r.Context(), id, sign*amount)
	if err != nil {
		h.respondRepoError(w, err, "adjust stock")
		return
	}

	h.cache.Del(r.Context(), productListCacheKey)
	if sign < 0 {
		h.notifyLowStock(r.Context(), p)
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid json")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, msg)
		return
	}

	p, err := h.repo.Update(r.Context(), id, product.Fields{
		Name:      req.Name,
		SKU:       req.SKU,
		CostPrice: req.CostPrice,
		SalePrice: req.SalePrice,
		Stock:     req.Stock,
		MinStock:  req.MinStock,
	})
	if err != nil {
		if errors.Is(err, product.ErrDuplicateSKU) {
			writeError(w, http.StatusBadRequest, CodeDuplicateSKU, "a product with this sku already exists")
			return
		}
		h.respondRepoError(w, err, "update product")
		return
	}

	h.cache.Del(r.Context(), productListCacheKey)
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.respondRepoError(w, err, "delete product")
		return
	}

	h.cache.Del(r.Context(), productListCacheKey)
	w.WriteHeader(http.StatusOK)
}

// notifyLowStock publishes stock.low when the product dropped below its
// minimum. Best effort: a broker failure never fails the request.
func (h *ProductHandler) notifyLowStock(ctx context.Context, p product.Product) {
	if h.pub == nil || !p.LowStock() {
		return
	}

	payload := events.StockLowPayload{
		ProductID: p.ID,
		SKU:       p.SKU,
		Stock:     p.Stock,
		MinStock:  p.MinStock,
		Timestamp: time.Now().UTC(),
	}
	meta := events.EventMeta{PartitionKey: strconv.FormatInt(p.ID, 10)}
	if err := h.pub.PublishStockLow(ctx, meta, payload); err != nil {
		h.logger.Warn().Err(err).Int64("productId", p.ID).Msg("publish stock.low")
	}
}

func (h *ProductHandler) respondRepoError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, product.ErrNotFound) {
		writeError(w, http.StatusNotFound, CodeNotFound, "product not found")
		return
	}
	h.logger.Error().Err(err).Msg(op)
	writeError(w, http.StatusInternalServerError, CodeStoreFailure, "internal error")
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid product id")
		return 0, false
	}
	return id, true
}
