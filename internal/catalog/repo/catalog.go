package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quanghuy/freshmart/internal/catalog/transport"
	"github.com/quanghuy/freshmart/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

var sortColumns = map[string]string{
	"id":        "id",
	"name":      "name",
	"price":     "price",
	"rating":    "rating",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

func (r *GormRepo) GetProducts(ctx context.Context, filter *transport.ProductFilter, sorts []transport.SortOption, offset, limit int) (int64, []models.Product, error) {
	q := r.DB.WithContext(ctx).Model(&models.Product{})

	if filter != nil {
		if filter.Name != "" {
			q = q.Where("name LIKE ?", "%"+filter.Name+"%")
		}
		if filter.CategoryID != nil {
			q = q.Where("category_id = ?", *filter.CategoryID)
		}
		if filter.MinPrice != nil {
			q = q.Where("price >= ?", *filter.MinPrice)
		}
		if filter.MaxPrice != nil {
			q = q.Where("price <= ?", *filter.MaxPrice)
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	for _, s := range sorts {
		col, ok := sortColumns[s.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if strings.EqualFold(s.Order, "DESC") {
			dir = "DESC"
		}
		q = q.Order(col + " " + dir)
	}
	// id tiebreak keeps pagination stable
	q = q.Order("id ASC")

	var items []models.Product
	if err := q.Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	return r.DB.WithContext(ctx).Create(prod).Error
}

func (r *GormRepo) PatchProduct(ctx context.Context, req transport.PatchProductRequest, id uuid.UUID) (*models.Product, error) {
	var prod models.Product
	if err := r.DB.WithContext(ctx).First(&prod, "id = ?", id).Error; err != nil {
		return nil, err
	}

	if req.Name != nil {
		prod.Name = *req.Name
	}
	if req.Description != nil {
		prod.Description = *req.Description
	}
	if req.Price != nil {
		prod.Price = *req.Price
	}
	if req.Stock != nil {
		prod.Stock = *req.Stock
	}
	if req.CategoryID != nil {
		prod.CategoryID = req.CategoryID
	}
	if req.Brand != nil {
		prod.Brand = *req.Brand
	}
	if req.Origin != nil {
		prod.Origin = *req.Origin
	}
	if req.Packaging != nil {
		prod.Packaging = *req.Packaging
	}
	if req.Allergens != nil {
		prod.Allergens = *req.Allergens
	}

	if err := r.DB.WithContext(ctx).Save(&prod).Error; err != nil {
		return nil, err
	}
	return &prod, nil
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res := r.DB.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
