package repository

import (
	"context"

	"gorm.io/gorm"

	"placely_ingest_v1_202601/internal/model"
)

// ==================== 接口定义 ====================

// CatalogItemRepository 目录条目仓储接口
// 所有读写都以 (listing_id, kind) 为作用域，条目按 id 定位，不同条目的写互不冲突
type CatalogItemRepository interface {
	Create(ctx context.Context, item *model.CatalogItem) error
	GetByID(ctx context.Context, listingID int64, kind model.OfferingKind, id int64) (*model.CatalogItem, error)
	Update(ctx context.Context, item *model.CatalogItem) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, listingID int64, kind model.OfferingKind, id int64) error
	List(ctx context.Context, listingID int64, kind model.OfferingKind) ([]model.CatalogItem, error)
	Count(ctx context.Context, listingID int64, kind model.OfferingKind) (int64, error)

	WithTx(tx *gorm.DB) CatalogItemRepository
}

// ==================== 仓储实现 ====================

type catalogItemRepo struct {
	db *gorm.DB
}

// NewCatalogItemRepository 创建目录条目仓储
func NewCatalogItemRepository(db *gorm.DB) CatalogItemRepository {
	return &catalogItemRepo{db: db}
}

func (r *catalogItemRepo) Create(ctx context.Context, item *model.CatalogItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *catalogItemRepo) GetByID(ctx context.Context, listingID int64, kind model.OfferingKind, id int64) (*model.CatalogItem, error) {
	var item model.CatalogItem
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND kind = ?", listingID, kind).
		First(&item, id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *catalogItemRepo) Update(ctx context.Context, item *model.CatalogItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *catalogItemRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.CatalogItem{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// Delete 物理删除，无软删除/撤销（确认交互属于 UI 层职责）
func (r *catalogItemRepo) Delete(ctx context.Context, listingID int64, kind model.OfferingKind, id int64) error {
	return r.db.WithContext(ctx).
		Where("listing_id = ? AND kind = ?", listingID, kind).
		Delete(&model.CatalogItem{}, id).Error
}

// List 按 (sort_order ASC, name ASC) 排序，sort_order 相同或缺省时用名称决出次序
func (r *catalogItemRepo) List(ctx context.Context, listingID int64, kind model.OfferingKind) ([]model.CatalogItem, error) {
	var items []model.CatalogItem
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND kind = ?", listingID, kind).
		Order("sort_order ASC, name ASC").
		Find(&items).Error
	return items, err
}

func (r *catalogItemRepo) Count(ctx context.Context, listingID int64, kind model.OfferingKind) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.CatalogItem{}).
		Where("listing_id = ? AND kind = ?", listingID, kind).
		Count(&count).Error
	return count, err
}

func (r *catalogItemRepo) WithTx(tx *gorm.DB) CatalogItemRepository {
	return &catalogItemRepo{db: tx}
}
