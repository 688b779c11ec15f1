package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/LuizNicolao/terceirize-foods-sub000/config"
	"github.com/LuizNicolao/terceirize-foods-sub000/pkg/redis"
)

// ErrGenericoNaoEncontrado means the origin product has no generic
// product mapped in the catalog.
var ErrGenericoNaoEncontrado = errors.New("produto genérico não encontrado para o produto de origem")

// Generico is a generic product as resolved from the foods catalog.
type Generico struct {
	ID             int64           `json:"id"`
	Nome           string          `json:"nome"`
	Unidade        string          `json:"unidade"`
	FatorConversao decimal.Decimal `json:"fator_conversao"`
}

// ProductCatalog resolves products against the foods catalog service.
type ProductCatalog interface {
	// GenericForProduct returns the generic product mapped to an origin
	// product, or ErrGenericoNaoEncontrado.
	GenericForProduct(ctx context.Context, produtoID int64) (*Generico, error)
	// GetProduct returns a generic product by its own id.
	GetProduct(ctx context.Context, produtoID int64) (*Generico, error)
}

// foodsCatalog is the HTTP client for the foods catalog, with a redis
// read-through cache in front. A nil cache client bypasses caching.
type foodsCatalog struct {
	baseURL string
	client  *http.Client
	cache   *redis.Client
	cfg     config.CatalogConfig
	logger  *zap.Logger
}

// NewFoodsCatalog creates the catalog client. cache may be nil.
func NewFoodsCatalog(cfg *config.CatalogConfig, cache *redis.Client, logger *zap.Logger) ProductCatalog {
	return &foodsCatalog{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		cache:   cache,
		cfg:     *cfg,
		logger:  logger,
	}
}

func (c *foodsCatalog) GenericForProduct(ctx context.Context, produtoID int64) (*Generico, error) {
	key := fmt.Sprintf("catalog:generico:%d", produtoID)
	path := fmt.Sprintf("%s/api/v1/produtos/%d/generico", c.baseURL, produtoID)
	return c.fetch(ctx, key, path)
}

func (c *foodsCatalog) GetProduct(ctx context.Context, produtoID int64) (*Generico, error) {
	key := fmt.Sprintf("catalog:produto:%d", produtoID)
	path := fmt.Sprintf("%s/api/v1/produtos/%d", c.baseURL, produtoID)
	return c.fetch(ctx, key, path)
}

func (c *foodsCatalog) fetch(ctx context.Context, cacheKey, url string) (*Generico, error) {
	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, cacheKey); err != nil {
			c.logger.Warn("falha ao ler cache do catálogo", zap.Error(err))
		} else if raw != "" {
			var g Generico
			if err := json.Unmarshal([]byte(raw), &g); err == nil {
				return &g, nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("falha ao consultar catálogo de produtos: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrGenericoNaoEncontrado
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catálogo de produtos respondeu %d", resp.StatusCode)
	}

	var envelope struct {
		Code    int      `json:"code"`
		Message string   `json:"message"`
		Data    Generico `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("resposta inválida do catálogo de produtos: %w", err)
	}
	if envelope.Code != 0 {
		return nil, fmt.Errorf("catálogo de produtos recusou a consulta: %s", envelope.Message)
	}

	if c.cache != nil {
		if raw, err := json.Marshal(envelope.Data); err == nil {
			if err := c.cache.Set(ctx, cacheKey, string(raw), c.cfg.CacheTTL); err != nil {
				c.logger.Warn("falha ao gravar cache do catálogo", zap.Error(err))
			}
		}
	}

	return &envelope.Data, nil
}
