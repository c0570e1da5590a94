package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"placely_ingest_v1_202601/internal/model"
	"placely_ingest_v1_202601/internal/repository"
)

// ==================== 错误定义 ====================

var (
	ErrItemNotFound = errors.New("条目不存在")
	ErrNameRequired = errors.New("条目名称不能为空")
)

// ==================== 服务定义 ====================

// CatalogService 目录条目服务
// 入库边界统一做归一化：价格钳制为非负、空白描述/分组写 NULL、新条目追加到末尾
type CatalogService struct {
	items repository.CatalogItemRepository
}

// NewCatalogService 创建目录条目服务
func NewCatalogService(items repository.CatalogItemRepository) *CatalogService {
	return &CatalogService{items: items}
}

// UpsertItemInput 创建/更新条目的输入
// ID 为 0 表示创建；指针字段缺省表示更新时不改动
type UpsertItemInput struct {
	ID          int64
	Name        string
	Description *string
	Price       *decimal.Decimal
	Currency    string
	Category    *string
	Available   *bool
	SortOrder   *int
}

// ==================== 查询 ====================

// List 商户某品类的全部条目，按 (sort_order ASC, name ASC) 排序
func (s *CatalogService) List(ctx context.Context, listingID int64, kind model.OfferingKind) ([]model.CatalogItem, error) {
	return s.items.List(ctx, listingID, kind)
}

// CategoryGroup 展示用的分组
type CategoryGroup struct {
	Category string              `json:"category"`
	Items    []model.CatalogItem `json:"items"`
}

// ListGrouped 按分组归拢条目，未分类条目落入默认桶
// 分组按其中第一个条目的出现顺序排列，组内保持整体排序
func (s *CatalogService) ListGrouped(ctx context.Context, listingID int64, kind model.OfferingKind) ([]CategoryGroup, error) {
	items, err := s.items.List(ctx, listingID, kind)
	if err != nil {
		return nil, err
	}

	groups := make([]CategoryGroup, 0)
	index := make(map[string]int)
	for _, item := range items {
		category := item.CategoryOrDefault()
		i, ok := index[category]
		if !ok {
			i = len(groups)
			index[category] = i
			groups = append(groups, CategoryGroup{Category: category})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups, nil
}

// GetItem 按 ID 获取条目
func (s *CatalogService) GetItem(ctx context.Context, listingID int64, kind model.OfferingKind, id int64) (*model.CatalogItem, error) {
	item, err := s.items.GetByID(ctx, listingID, kind, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	return item, err
}

// ==================== 写入 ====================

// Upsert 创建或更新条目
func (s *CatalogService) Upsert(ctx context.Context, listingID int64, kind model.OfferingKind, input UpsertItemInput) (*model.CatalogItem, error) {
	if input.ID == 0 {
		return s.create(ctx, listingID, kind, input)
	}
	return s.update(ctx, listingID, kind, input)
}

func (s *CatalogService) create(ctx context.Context, listingID int64, kind model.OfferingKind, input UpsertItemInput) (*model.CatalogItem, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	item := &model.CatalogItem{
		ListingID:   listingID,
		Kind:        kind,
		Name:        name,
		Description: normalizeOptionalText(input.Description),
		Price:       coercePrice(input.Price),
		Currency:    normalizeCurrency(input.Currency),
		Category:    normalizeOptionalText(input.Category),
		Available:   true,
	}
	if input.Available != nil {
		item.Available = *input.Available
	}

	if input.SortOrder != nil {
		item.SortOrder = *input.SortOrder
	} else {
		// 缺省追加到末尾：当前条目数即下一个排序号
		count, err := s.items.Count(ctx, listingID, kind)
		if err != nil {
			return nil, err
		}
		item.SortOrder = int(count)
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("创建条目失败: %w", err)
	}
	return item, nil
}

func (s *CatalogService) update(ctx context.Context, listingID int64, kind model.OfferingKind, input UpsertItemInput) (*model.CatalogItem, error) {
	item, err := s.GetItem(ctx, listingID, kind, input.ID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if trimmed := strings.TrimSpace(input.Name); trimmed != "" && trimmed != item.Name {
		fields["name"] = trimmed
	}
	if input.Description != nil {
		fields["description"] = normalizeOptionalText(input.Description)
	}
	if input.Price != nil {
		fields["price"] = coercePrice(input.Price)
	}
	if input.Currency != "" {
		fields["currency"] = normalizeCurrency(input.Currency)
	}
	if input.Category != nil {
		fields["category"] = normalizeOptionalText(input.Category)
	}
	if input.Available != nil {
		fields["available"] = *input.Available
	}
	if input.SortOrder != nil {
		fields["sort_order"] = *input.SortOrder
	}

	if len(fields) > 0 {
		if err := s.items.UpdateFields(ctx, item.ID, fields); err != nil {
			return nil, fmt.Errorf("更新条目失败: %w", err)
		}
	}
	return s.GetItem(ctx, listingID, kind, input.ID)
}

// Delete 物理删除条目
func (s *CatalogService) Delete(ctx context.Context, listingID int64, kind model.OfferingKind, id int64) error {
	if _, err := s.GetItem(ctx, listingID, kind, id); err != nil {
		return err
	}
	return s.items.Delete(ctx, listingID, kind, id)
}

// QuickAdd 解析快捷文本并逐条创建条目，返回创建结果（保持输入顺序）
// 解析不出任何条目时返回空列表，不报错
func (s *CatalogService) QuickAdd(ctx context.Context, listingID int64, kind model.OfferingKind, text string) ([]model.CatalogItem, error) {
	parsed := ParseItemsFromText(text)
	created := make([]model.CatalogItem, 0, len(parsed))
	for _, p := range parsed {
		price := p.Price
		item, err := s.create(ctx, listingID, kind, UpsertItemInput{
			Name:     p.Name,
			Price:    &price,
			Currency: p.Currency,
		})
		if err != nil {
			return created, err
		}
		created = append(created, *item)
	}
	return created, nil
}

// Reorder 按给定 ID 顺序重写排序号
// 未出现在列表里的条目保持原排序号，依靠 name 次级排序保证整体可重现
func (s *CatalogService) Reorder(ctx context.Context, listingID int64, kind model.OfferingKind, orderedIDs []int64) error {
	for position, id := range orderedIDs {
		item, err := s.GetItem(ctx, listingID, kind, id)
		if err != nil {
			return err
		}
		if item.SortOrder == position {
			continue
		}
		if err := s.items.UpdateFields(ctx, id, map[string]interface{}{"sort_order": position}); err != nil {
			return err
		}
	}
	return nil
}

// ==================== 归一化 ====================

// coercePrice 价格钳制：缺省或负数一律归零
func coercePrice(p *decimal.Decimal) decimal.Decimal {
	if p == nil || p.IsNegative() {
		return decimal.Zero
	}
	return *p
}

// normalizeOptionalText 空白文本归一化为 NULL，其余去首尾空白
func normalizeOptionalText(p *string) *string {
	if p == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*p)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// normalizeCurrency 货币代码统一大写，缺省为 EUR
func normalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "EUR"
	}
	return code
}
