package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

// ==================== 文本解析测试 ====================

func TestParseItemsFromText_PricePatterns(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantName     string
		wantPrice    string
		wantCurrency string
	}{
		{"符号前缀", "Margherita €12", "Margherita", "12", "EUR"},
		{"符号前缀带空格", "Espresso € 2.5", "Espresso", "2.5", "EUR"},
		{"符号前缀小数", "Latte €3.50", "Latte", "3.50", "EUR"},
		{"符号后缀", "Margherita 12€", "Margherita", "12", "EUR"},
		{"代码后缀", "Margherita 2.50 EUR", "Margherita", "2.50", "EUR"},
		{"代码后缀小写", "Kebap 250 try", "Kebap", "250", "TRY"},
		{"美元符号", "Burger $8", "Burger", "8", "USD"},
		{"英镑符号", "Fish and Chips £9.95", "Fish and Chips", "9.95", "GBP"},
		{"里拉符号", "Çay ₺15", "Çay", "15", "TRY"},
		{"名称尾部破折号", "Margherita - €12", "Margherita", "12", "EUR"},
		{"名称尾部冒号", "Espresso: €2", "Espresso", "2", "EUR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := ParseItemsFromText(tt.text)
			if len(items) != 1 {
				t.Fatalf("期望解析出 1 条，得到 %d 条", len(items))
			}
			got := items[0]
			if got.Name != tt.wantName {
				t.Errorf("名称不符: got=%q want=%q", got.Name, tt.wantName)
			}
			wantPrice, _ := decimal.NewFromString(tt.wantPrice)
			if !got.Price.Equal(wantPrice) {
				t.Errorf("价格不符: got=%s want=%s", got.Price, wantPrice)
			}
			if got.Currency != tt.wantCurrency {
				t.Errorf("货币不符: got=%q want=%q", got.Currency, tt.wantCurrency)
			}
		})
	}
}

func TestParseItemsFromText_SymbolSuffixNoSpace(t *testing.T) {
	// 数字和符号之间有空格时不算符号后缀
	items := ParseItemsFromText("Margherita 12 €")
	if len(items) != 0 {
		t.Fatalf("期望解析不出条目，得到 %d 条", len(items))
	}
}

func TestParseItemsFromText_MultipleSegments(t *testing.T) {
	text := "Margherita €12, Quattro Formaggi €14\nTiramisu 6.50 EUR"
	items := ParseItemsFromText(text)
	if len(items) != 3 {
		t.Fatalf("期望 3 条，得到 %d 条", len(items))
	}
	// 解析结果保持输入顺序
	wantNames := []string{"Margherita", "Quattro Formaggi", "Tiramisu"}
	for i, want := range wantNames {
		if items[i].Name != want {
			t.Errorf("第 %d 条名称不符: got=%q want=%q", i, items[i].Name, want)
		}
	}
}

func TestParseItemsFromText_DropsSegmentsWithoutPrice(t *testing.T) {
	text := "我们的招牌菜, Margherita €12, 欢迎光临"
	items := ParseItemsFromText(text)
	if len(items) != 1 {
		t.Fatalf("期望 1 条，得到 %d 条", len(items))
	}
	if items[0].Name != "Margherita" {
		t.Errorf("名称不符: %q", items[0].Name)
	}
}

func TestParseItemsFromText_DropsEmptyName(t *testing.T) {
	// 只有价格没有名称的片段丢弃
	items := ParseItemsFromText("€12, - €5")
	if len(items) != 0 {
		t.Fatalf("期望 0 条，得到 %d 条", len(items))
	}
}

func TestParseItemsFromText_CapsAtLimit(t *testing.T) {
	segments := make([]string, 15)
	for i := range segments {
		segments[i] = fmt.Sprintf("Item %d €1", i)
	}
	items := ParseItemsFromText(strings.Join(segments, ", "))
	if len(items) != MaxQuickParseItems {
		t.Fatalf("期望截断到 %d 条，得到 %d 条", MaxQuickParseItems, len(items))
	}
	// 保留的是最前面的片段
	if items[0].Name != "Item 0" || items[9].Name != "Item 9" {
		t.Errorf("截断后顺序不对: first=%q last=%q", items[0].Name, items[9].Name)
	}
}

func TestParseItemsFromText_Empty(t *testing.T) {
	if items := ParseItemsFromText(""); len(items) != 0 {
		t.Errorf("空输入期望 0 条，得到 %d 条", len(items))
	}
	if items := ParseItemsFromText("   \n  ,, "); len(items) != 0 {
		t.Errorf("空白输入期望 0 条，得到 %d 条", len(items))
	}
}

// ==================== 名称归一化测试 ====================

func TestNormalizeItemName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Margherita", "margherita"},
		{"  Margherita  ", "margherita"},
		{"Quattro   Formaggi", "quattro formaggi"},
		{"Coca-Cola®", "cocacola"},
		{"Latte (large)", "latte large"},
		{"Fish & Chips", "fish chips"},
		{"CAPPUCCINO", "cappuccino"},
		{"№42", "42"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		if got := NormalizeItemName(tt.raw); got != tt.want {
			t.Errorf("NormalizeItemName(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
