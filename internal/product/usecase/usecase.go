package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/cache"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/fekuna/omnipos-pos-sync/internal/product"
	"github.com/fekuna/omnipos-pos-sync/internal/product/dto"
	"github.com/fekuna/omnipos-pos-sync/internal/search"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	IndexName    = "products"
	listCacheTTL = 5 * time.Minute
)

const indexMapping = `{
	"mappings": {
		"properties": {
			"merchant_id": { "type": "keyword" },
			"external_id": { "type": "keyword" },
			"category_id": { "type": "keyword" },
			"name": { "type": "text" },
			"description": { "type": "text" },
			"brand": { "type": "text" },
			"sku": { "type": "keyword" },
			"upc": { "type": "keyword" },
			"price_cents": { "type": "long" },
			"is_visible": { "type": "boolean" },
			"is_active": { "type": "boolean" },
			"created_at": { "type": "date" }
		}
	}
}`

// cache and es are optional. With neither, the use case is a plain
// repository front.
type productUseCase struct {
	repo   product.Repository
	cache  *cache.RedisClient
	es     *search.Client
	logger logger.ZapLogger
}

func NewProductUseCase(repo product.Repository, cache *cache.RedisClient, es *search.Client, log logger.ZapLogger) product.UseCase {
	return &productUseCase{
		repo:   repo,
		cache:  cache,
		es:     es,
		logger: log,
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || input.PriceCents < 0 {
		return nil, product.ErrInvalidInput
	}
	if err := uc.checkCodes(ctx, input.MerchantID, input.SKU, input.UPC, ""); err != nil {
		return nil, err
	}

	visible := true
	if input.IsVisible != nil {
		visible = *input.IsVisible
	}

	now := time.Now().UTC()
	p := &model.Product{
		BaseModel: model.BaseModel{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		MerchantID:  input.MerchantID,
		CategoryID:  nullable(input.CategoryID),
		Name:        name,
		Description: nullable(input.Description),
		Brand:       nullable(input.Brand),
		PriceCents:  input.PriceCents,
		SKU:         nullable(input.SKU),
		UPC:         nullable(input.UPC),
		IsVisible:   visible,
		IsActive:    true,
	}

	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	uc.InvalidateListCache(ctx, p.MerchantID)
	uc.index(ctx, p)
	return p, nil
}

func (uc *productUseCase) GetProduct(ctx context.Context, merchantID, id string) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, product.ErrNotFound
	}
	return p, nil
}

type cachedList struct {
	Products []model.Product
	Count    int
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	// 1. Cache
	cacheKey := ""
	if uc.cache != nil {
		if key, err := listCacheKey(filters); err == nil {
			cacheKey = key
			if val, err := uc.cache.Client.Get(ctx, cacheKey).Result(); err == nil {
				var hit cachedList
				if err := json.Unmarshal([]byte(val), &hit); err == nil {
					return hit.Products, hit.Count, nil
				}
			}
		}
	}

	// 2. Elasticsearch for free-text queries
	if filters.SearchQuery != "" && uc.es != nil {
		products, total, err := uc.search(ctx, filters)
		if err == nil {
			return products, total, nil
		}
		uc.logger.Error("ES search failed, falling back to DB", zap.Error(err))
	}

	// 3. Database
	products, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	if cacheKey != "" {
		if data, err := json.Marshal(cachedList{Products: products, Count: count}); err == nil {
			if err := uc.cache.Client.Set(ctx, cacheKey, data, listCacheTTL).Err(); err != nil {
				uc.logger.Warn("failed to cache product list", zap.Error(err))
			}
		}
	}
	return products, count, nil
}

func (uc *productUseCase) search(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	page := max(filters.Page, 1)
	q := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []map[string]any{
					{
						"query_string": map[string]any{
							"query":  fmt.Sprintf("*%s*", filters.SearchQuery),
							"fields": []string{"name^3", "sku", "upc", "brand", "description"},
						},
					},
					{"term": map[string]any{"merchant_id": filters.MerchantID}},
				},
			},
		},
	}
	if filters.PageSize > 0 {
		q["from"] = (page - 1) * filters.PageSize
		q["size"] = filters.PageSize
	}

	res, err := uc.es.Search(ctx, IndexName, q)
	if err != nil {
		return nil, 0, err
	}
	products := make([]model.Product, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var p model.Product
		if err := json.Unmarshal(hit.Source, &p); err == nil {
			products = append(products, p)
		}
	}
	return products, res.Hits.Total.Value, nil
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || input.PriceCents < 0 {
		return nil, product.ErrInvalidInput
	}

	p, err := uc.GetProduct(ctx, input.MerchantID, input.ID)
	if err != nil {
		return nil, err
	}

	sku, upc := "", ""
	if deref(p.SKU) != input.SKU {
		sku = input.SKU
	}
	if deref(p.UPC) != input.UPC {
		upc = input.UPC
	}
	if err := uc.checkCodes(ctx, input.MerchantID, sku, upc, p.ID); err != nil {
		return nil, err
	}

	p.CategoryID = nullable(input.CategoryID)
	p.Name = name
	p.Description = nullable(input.Description)
	p.Brand = nullable(input.Brand)
	p.PriceCents = input.PriceCents
	p.SKU = nullable(input.SKU)
	p.UPC = nullable(input.UPC)
	p.IsVisible = input.IsVisible
	p.IsActive = input.IsActive
	p.UpdatedAt = time.Now().UTC()

	if err := uc.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	uc.InvalidateListCache(ctx, p.MerchantID)
	uc.index(ctx, p)
	return p, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, merchantID, id string) error {
	if _, err := uc.GetProduct(ctx, merchantID, id); err != nil {
		return err
	}
	if err := uc.repo.Delete(ctx, merchantID, id); err != nil {
		return err
	}

	uc.InvalidateListCache(ctx, merchantID)
	if uc.es != nil {
		if err := uc.es.Delete(ctx, IndexName, id); err != nil {
			uc.logger.Error("failed to remove product from index", zap.String("product_id", id), zap.Error(err))
		}
	}
	return nil
}

// IndexProducts pushes a batch of products to the search index in one bulk
// request.
func (uc *productUseCase) IndexProducts(ctx context.Context, products []model.Product) error {
	if uc.es == nil || len(products) == 0 {
		return nil
	}
	if err := uc.es.CreateIndex(ctx, IndexName, indexMapping); err != nil {
		return err
	}
	docs := make(map[string]any, len(products))
	for i := range products {
		docs[products[i].ID] = products[i]
	}
	return uc.es.BulkIndex(ctx, IndexName, docs)
}

// InvalidateListCache drops every cached product list page of the merchant.
func (uc *productUseCase) InvalidateListCache(ctx context.Context, merchantID string) {
	if uc.cache == nil {
		return
	}
	n, err := uc.cache.DeletePattern(ctx, fmt.Sprintf("products:list:%s:*", merchantID))
	if err != nil {
		uc.logger.Warn("failed to invalidate product list cache", zap.String("merchant_id", merchantID), zap.Error(err))
		return
	}
	uc.logger.Debug("product list cache invalidated", zap.String("merchant_id", merchantID), zap.Int("keys", n))
}

func (uc *productUseCase) index(ctx context.Context, p *model.Product) {
	if uc.es == nil {
		return
	}
	err := uc.es.CreateIndex(ctx, IndexName, indexMapping)
	if err == nil {
		err = uc.es.Index(ctx, IndexName, p.ID, p)
	}
	if err != nil {
		uc.logger.Error("failed to index product", zap.String("product_id", p.ID), zap.Error(err))
	}
}

// checkCodes verifies SKU and UPC uniqueness. Empty codes are not checked.
func (uc *productUseCase) checkCodes(ctx context.Context, merchantID, sku, upc, excludeID string) error {
	if sku != "" {
		unique, err := uc.repo.IsSKUUnique(ctx, merchantID, sku, excludeID)
		if err != nil {
			return err
		}
		if !unique {
			return product.ErrDuplicateSKU
		}
	}
	if upc != "" {
		unique, err := uc.repo.IsUPCUnique(ctx, merchantID, upc, excludeID)
		if err != nil {
			return err
		}
		if !unique {
			return product.ErrDuplicateUPC
		}
	}
	return nil
}

func listCacheKey(filters *dto.ProductFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("products:list:%s:%x", filters.MerchantID, md5.Sum(data)), nil
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
