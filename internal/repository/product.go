package repository

import (
	"context"

	"doku-template-store/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Seed(ctx context.Context) error
	Upsert(ctx context.Context, product *model.Product) error
	FindBySlug(ctx context.Context, slug string) (*model.Product, error)
	ListActive(ctx context.Context) ([]*model.Product, error)
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{
		db: db,
	}
}

func (r *productRepoImpl) Seed(ctx context.Context) error {
	products := []model.Product{
		{Slug: "landing-starter", Name: "Landing Page Starter", Price: 149000, Currency: "IDR", DownloadURL: "https://downloads.example.com/templates/landing-starter.zip", Active: true},
		{Slug: "portfolio-pro", Name: "Portfolio Pro", Price: 299000, Currency: "IDR", DownloadURL: "https://downloads.example.com/templates/portfolio-pro.zip", Active: true},
		{Slug: "shop-lite", Name: "Shop Lite", Price: 499000, Currency: "IDR", DownloadURL: "https://downloads.example.com/templates/shop-lite.zip", Active: true},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&products).Error
}

func (r *productRepoImpl) Upsert(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "price", "currency", "download_url", "active", "updated_at"}),
	}).Create(product).Error
}

// FindBySlug returns active products only.
func (r *productRepoImpl) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("slug = ? AND active = ?", slug, true).
		First(&product).Error

	if err != nil {
		return nil, notFound(err)
	}

	return &product, nil
}

func (r *productRepoImpl) ListActive(ctx context.Context) ([]*model.Product, error) {
	var products []*model.Product
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("slug").
		Find(&products).
		Error

	if err != nil {
		return nil, err
	}

	return products, nil
}
