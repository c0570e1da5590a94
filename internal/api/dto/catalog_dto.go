package dto

// ==================== 请求 DTO ====================

// UpsertItemRequest 创建/更新条目请求
// ID 为 0 表示创建；指针字段缺省表示不改动
type UpsertItemRequest struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Available   *bool    `json:"available,omitempty"`
	SortOrder   *int     `json:"sort_order,omitempty"`
}

// QuickAddRequest 快捷文本建条目请求
type QuickAddRequest struct {
	Text string `json:"text" binding:"required"`
}

// ReorderRequest 条目重排请求：按期望顺序给出全部条目 ID
type ReorderRequest struct {
	ItemIDs []int64 `json:"item_ids" binding:"required,min=1"`
}

// ==================== 响应 DTO ====================

// QuickAddResponse 快捷文本建条目响应
type QuickAddResponse struct {
	CreatedCount int         `json:"created_count"`
	Items        interface{} `json:"items"`
}
