package service

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ==================== 快捷文本解析 ====================

// MaxQuickParseItems 单条消息最多解析出的条目数（防刷硬上限，不可配置）
const MaxQuickParseItems = 10

// ParsedItem 快捷文本解析出的候选条目（临时结果，从不落库）
type ParsedItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

// 价格模式，按优先级排列：符号前缀 → 符号后缀 → ISO 代码后缀
var (
	// €12 / $ 2.50 / ₺250（符号后允许一个空格）
	reSymbolPrefix = regexp.MustCompile(`([€$£₺]) ?(\d+(?:\.\d+)?)`)
	// 12€ / 2.50$（数字紧跟符号，中间无空格）
	reSymbolSuffix = regexp.MustCompile(`(\d+(?:\.\d+)?)([€$£₺])`)
	// 2.50 EUR / 250 try（数字 + 空白 + 三字母代码，大小写不敏感）
	reCodeSuffix = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s+([a-z]{3})\b`)
)

// symbolCurrencies 货币符号解析表
var symbolCurrencies = map[string]string{
	"€": "EUR",
	"$": "USD",
	"£": "GBP",
	"₺": "TRY",
}

// segmentSeparators 切分输入的分隔符：逗号和换行
var segmentSeparators = regexp.MustCompile(`[,\n]`)

// ParseItemsFromText 把一段自由文本解析为有序候选条目
// 没有价格记号的片段静默丢弃——它不是条目，也不是错误；
// 累计到 MaxQuickParseItems 个后停止扫描，后续片段即使合法也忽略
func ParseItemsFromText(text string) []ParsedItem {
	items := make([]ParsedItem, 0)

	for _, segment := range segmentSeparators.Split(text, -1) {
		if len(items) >= MaxQuickParseItems {
			break
		}

		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		item, ok := parseSegment(segment)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	return items
}

// parseSegment 在单个片段里按优先级找价格记号
func parseSegment(segment string) (ParsedItem, bool) {
	// 符号前缀：€12
	if loc := reSymbolPrefix.FindStringSubmatchIndex(segment); loc != nil {
		symbol := segment[loc[2]:loc[3]]
		return buildItem(segment[:loc[0]], segment[loc[4]:loc[5]], symbolCurrencies[symbol])
	}

	// 符号后缀：12€
	if loc := reSymbolSuffix.FindStringSubmatchIndex(segment); loc != nil {
		symbol := segment[loc[4]:loc[5]]
		return buildItem(segment[:loc[0]], segment[loc[2]:loc[3]], symbolCurrencies[symbol])
	}

	// ISO 代码后缀：2.50 EUR
	if loc := reCodeSuffix.FindStringSubmatchIndex(segment); loc != nil {
		code := strings.ToUpper(segment[loc[4]:loc[5]])
		return buildItem(segment[:loc[0]], segment[loc[2]:loc[3]], code)
	}

	return ParsedItem{}, false
}

// buildItem 组装条目：价格记号之前的文本去掉尾部标点即为名称
func buildItem(rawName, rawPrice, currency string) (ParsedItem, bool) {
	name := strings.TrimSpace(rawName)
	name = strings.TrimRight(name, " \t-–—:;,.·")
	if name == "" || currency == "" {
		return ParsedItem{}, false
	}

	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return ParsedItem{}, false
	}

	return ParsedItem{Name: name, Price: price, Currency: currency}, true
}

// ==================== 名称归一化 ====================

// NormalizeItemName 条目名称归一化：去首尾空白、内部空白折叠为单个空格、
// 转小写，再剔除 [a-z0-9 ] 之外的一切字符（商标符、括号修饰、标点）
// 用于跨大小写/装饰性写法比较和去重条目名
func NormalizeItemName(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Join(strings.Fields(s), " ")

	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}

	// 剔除字符可能留下相邻空格，再折叠一次
	return strings.Join(strings.Fields(b.String()), " ")
}
