package dto

// ==================== 请求 DTO ====================

// IngestSourceRequest 抽取来源
// url 来源填 url；image/pdf 来源填 storage_path（先走上传接口换取）
type IngestSourceRequest struct {
	Type        string `json:"type" binding:"required"`
	URL         string `json:"url,omitempty"`
	StoragePath string `json:"storage_path,omitempty"`
}

// CreateIngestJobRequest 创建抽取任务请求
type CreateIngestJobRequest struct {
	MarketID int64                 `json:"market_id" binding:"required"`
	Kind     string                `json:"kind" binding:"required"`
	Sources  []IngestSourceRequest `json:"sources" binding:"required,min=1"`
}

// ExtractedItemRequest worker 回写的单个候选条目
type ExtractedItemRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Currency    *string  `json:"currency,omitempty"`
	Category    *string  `json:"category,omitempty"`
}

// CompleteJobRequest worker 抽取成功回写请求
type CompleteJobRequest struct {
	Items    []ExtractedItemRequest `json:"items" binding:"required,min=1"`
	Warnings []string               `json:"warnings,omitempty"`
}

// FailJobRequest worker 抽取失败回写请求
type FailJobRequest struct {
	Error string `json:"error" binding:"required"`
}

// ==================== 响应 DTO ====================

// UploadSourceResponse 来源文件上传响应
type UploadSourceResponse struct {
	StoragePath string `json:"storage_path"`
}
