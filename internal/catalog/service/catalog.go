package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quanghuy/freshmart/internal/catalog/repo"
	"github.com/quanghuy/freshmart/internal/catalog/transport"
	"github.com/quanghuy/freshmart/internal/logging"
	"github.com/quanghuy/freshmart/internal/models"
	"github.com/quanghuy/freshmart/internal/mykafka"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
)

const ProductIndex = "product"

type CatalogService struct {
	Repo     *repo.GormRepo
	Producer mykafka.Publisher
	ES       *elasticsearch.Client
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.Repo.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return product, err
}

func (s *CatalogService) GetProducts(ctx context.Context, filter *transport.ProductFilter, sorts []transport.SortOption, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.GetProducts(ctx, filter, sorts, offset, limit)
}

func (s *CatalogService) CreateProduct(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}

	prod := &models.Product{
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		Stock:        req.Stock,
		CategoryID:   req.CategoryID,
		Brand:        req.Brand,
		Origin:       req.Origin,
		Packaging:    req.Packaging,
		IsVegetarian: req.IsVegetarian,
		IsVegan:      req.IsVegan,
		Allergens:    req.Allergens,
	}
	if err := s.Repo.CreateProduct(ctx, prod); err != nil {
		return nil, err
	}

	s.index(ctx, prod)
	s.publish(ctx, map[string]any{"type": "product_created", "productID": prod.ID})
	return prod, nil
}

func (s *CatalogService) PatchProduct(ctx context.Context, req transport.PatchProductRequest, id uuid.UUID) (*models.Product, error) {
	if req.Price != nil && *req.Price < 0 {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}

	prod, err := s.Repo.PatchProduct(ctx, req, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	s.index(ctx, prod)
	s.publish(ctx, map[string]any{"type": "product_updated", "productID": prod.ID})
	return prod, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	err := s.Repo.DeleteProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}

	s.deindex(ctx, id)
	s.publish(ctx, map[string]any{"type": "product_deleted", "productID": id})
	return nil
}

// index mirrors the product into elasticsearch; search staleness is
// preferable to failing the write, so errors only get logged.
func (s *CatalogService) index(ctx context.Context, prod *models.Product) {
	if s.ES == nil {
		return
	}
	l := logging.FromContext(ctx)

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(prod); err != nil {
		l.Warn("es_index_failed", "productID", prod.ID, "error", err)
		return
	}
	res, err := s.ES.Index(ProductIndex, &buf,
		s.ES.Index.WithDocumentID(prod.ID.String()),
		s.ES.Index.WithContext(ctx),
	)
	if err != nil {
		l.Warn("es_index_failed", "productID", prod.ID, "error", err)
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		l.Warn("es_index_failed", "productID", prod.ID, "status", res.Status())
	}
}

func (s *CatalogService) deindex(ctx context.Context, id uuid.UUID) {
	if s.ES == nil {
		return
	}
	res, err := s.ES.Delete(ProductIndex, id.String(), s.ES.Delete.WithContext(ctx))
	if err != nil {
		logging.FromContext(ctx).Warn("es_delete_failed", "productID", id, "error", err)
		return
	}
	res.Body.Close()
}

func (s *CatalogService) publish(ctx context.Context, event map[string]any) {
	if s.Producer == nil {
		return
	}
	if err := s.Producer.PublishEvent(ctx, mykafka.TopicProductEvents, fmt.Sprint(event["productID"]), event); err != nil {
		logging.FromContext(ctx).Warn("publish_failed", "topic", mykafka.TopicProductEvents, "error", err)
	}
}
