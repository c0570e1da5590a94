package model

import "testing"

// ==================== 品类枚举测试 ====================

func TestAllOfferingKinds_Valid(t *testing.T) {
	for _, k := range AllOfferingKinds() {
		if !k.Valid() {
			t.Errorf("品类 %q 应为合法值", k)
		}
	}
	if OfferingKind("beverages").Valid() {
		t.Error("未知品类不应合法")
	}
}

func TestKindFromIngestAlias(t *testing.T) {
	tests := []struct {
		raw  string
		want OfferingKind
	}{
		// 统一词表原样接受
		{"menuItems", KindMenuItems},
		{"roomTypes", KindRoomTypes},
		// 旧版抓取别名翻译
		{"menu", KindMenuItems},
		{"service", KindServices},
		{"offering", KindOfferings},
		{"ticket", KindTickets},
		{"rooms", KindRoomTypes},
	}

	for _, tt := range tests {
		got, err := KindFromIngestAlias(tt.raw)
		if err != nil {
			t.Errorf("%q 解析失败: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q 解析为 %q，期望 %q", tt.raw, got, tt.want)
		}
	}

	if _, err := KindFromIngestAlias("beverages"); err == nil {
		t.Error("未知品类应报错")
	}
}

func TestCatalogItem_CategoryOrDefault(t *testing.T) {
	cat := "Drinks"
	item := &CatalogItem{Category: &cat}
	if item.CategoryOrDefault() != "Drinks" {
		t.Errorf("分组不符: %q", item.CategoryOrDefault())
	}

	empty := ""
	for _, it := range []*CatalogItem{{}, {Category: &empty}} {
		if it.CategoryOrDefault() != DefaultCategory {
			t.Errorf("未分类应落入默认桶: %q", it.CategoryOrDefault())
		}
	}
}
