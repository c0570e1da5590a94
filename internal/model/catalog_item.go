package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ==================== 品类枚举 ====================

// OfferingKind 条目品类（菜单项/服务/通用供应/门票/房型）
// 全系统只有这一套品类词表；旧版抓取接口的别名通过 KindFromIngestAlias 在边界处翻译
type OfferingKind string

const (
	KindMenuItems OfferingKind = "menuItems"
	KindServices  OfferingKind = "services"
	KindOfferings OfferingKind = "offerings"
	KindTickets   OfferingKind = "tickets"
	KindRoomTypes OfferingKind = "roomTypes"
)

// AllOfferingKinds 全部合法品类
func AllOfferingKinds() []OfferingKind {
	return []OfferingKind{KindMenuItems, KindServices, KindOfferings, KindTickets, KindRoomTypes}
}

// Valid 是否为合法品类
func (k OfferingKind) Valid() bool {
	for _, v := range AllOfferingKinds() {
		if k == v {
			return true
		}
	}
	return false
}

// ingestKindAliases 旧版抓取词表 → 统一品类
var ingestKindAliases = map[string]OfferingKind{
	"menu":     KindMenuItems,
	"service":  KindServices,
	"offering": KindOfferings,
	"ticket":   KindTickets,
	"rooms":    KindRoomTypes,
}

// KindFromIngestAlias 解析品类，同时接受统一值和旧版别名
// 这是两套词表之间唯一的翻译点
func KindFromIngestAlias(raw string) (OfferingKind, error) {
	if k := OfferingKind(raw); k.Valid() {
		return k, nil
	}
	if k, ok := ingestKindAliases[raw]; ok {
		return k, nil
	}
	return "", fmt.Errorf("不支持的品类: %s", raw)
}

// ==================== 数据库模型 ====================

// DefaultCategory 未分类条目的展示分组
const DefaultCategory = "Uncategorized"

// CatalogItem 目录条目
// 唯一性作用域为 (listing_id, kind)；只做物理删除，不留软删除记录
type CatalogItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ListingID   int64           `gorm:"index:idx_catalog_listing_kind;not null;comment:商户ID" json:"listing_id"`
	Kind        OfferingKind    `gorm:"size:32;index:idx_catalog_listing_kind;not null;comment:品类" json:"kind"`
	Name        string          `gorm:"size:255;not null;comment:条目名称" json:"name"`
	Description *string         `gorm:"size:2048;comment:描述(空白归一化为NULL)" json:"description,omitempty"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);comment:价格(非负)" json:"price"`
	Currency    string          `gorm:"size:3;default:EUR;comment:货币代码" json:"currency"`
	Category    *string         `gorm:"size:255;comment:分组(空白归一化为NULL)" json:"category,omitempty"`
	Available   bool            `gorm:"default:true;comment:是否可售" json:"available"`
	SortOrder   int             `gorm:"default:0;comment:排序号(新增追加到末尾)" json:"sort_order"`
}

func (*CatalogItem) TableName() string {
	return "catalog_items"
}

// CategoryOrDefault 分组名，未分类落入默认桶
func (i *CatalogItem) CategoryOrDefault() string {
	if i.Category == nil || *i.Category == "" {
		return DefaultCategory
	}
	return *i.Category
}
