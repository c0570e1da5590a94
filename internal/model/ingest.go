package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ==================== 状态常量 ====================

const (
	// 抽取任务状态（仅外部 worker 推进，applied 由提案应用间接到达）
	JobStatusQueued      = "queued"
	JobStatusProcessing  = "processing"
	JobStatusNeedsReview = "needs_review"
	JobStatusFailed      = "failed"
	JobStatusApplied     = "applied"

	// 提案状态（proposed → applied | rejected，终态不可逆）
	ProposalStatusProposed = "proposed"
	ProposalStatusApplied  = "applied"
	ProposalStatusRejected = "rejected"

	// 来源类型
	SourceTypeURL   = "url"
	SourceTypeImage = "image"
	SourceTypePDF   = "pdf"
)

// ==================== JSON 类型 ====================

// IngestSource 抽取来源：url 带地址，image/pdf 带对象存储路径（从不携带原始字节）
type IngestSource struct {
	Type        string `json:"type"`
	URL         string `json:"url,omitempty"`
	StoragePath string `json:"storage_path,omitempty"`
}

// IngestSources 来源列表（JSON 存储）
type IngestSources []IngestSource

func (s *IngestSources) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

func (s *IngestSources) Scan(value interface{}) error {
	if value == nil {
		*s = IngestSources{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if str, ok := value.(string); ok {
			bytes = []byte(str)
		} else {
			return errors.New("type assertion to []byte failed")
		}
	}
	return json.Unmarshal(bytes, s)
}

// StringSlice 字符串切片（JSON 存储）
type StringSlice []string

func (s *StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if str, ok := value.(string); ok {
			bytes = []byte(str)
		} else {
			return errors.New("type assertion to []byte failed")
		}
	}
	return json.Unmarshal(bytes, s)
}

// ==================== 候选条目 ====================

// ExtractedItemCandidate 候选条目
// 两个来源：快捷文本解析（临时，不落库）或 worker 抽取结果（内嵌在提案里）
// 可缺省字段用指针建模，空白在入库边界归一化一次，下游不再判空串
type ExtractedItemCandidate struct {
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Currency    *string          `json:"currency,omitempty"`
	Category    *string          `json:"category,omitempty"`
}

// ==================== 数据库模型 ====================

// IngestJob 抽取任务
// 客户端创建一次，之后只有外部 worker 改写；记录位于 markets/{marketId}/catalogIngestJobs/{jobId}
type IngestJob struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	MarketID   int64         `gorm:"index;not null;comment:市场ID" json:"market_id"`
	ListingID  int64         `gorm:"index;not null;comment:商户ID" json:"listing_id"`
	Kind       OfferingKind  `gorm:"size:32;not null;comment:品类" json:"kind"`
	Sources    IngestSources `gorm:"type:json;comment:抽取来源" json:"sources"`
	Status     string        `gorm:"size:32;index;default:queued;comment:任务状态" json:"status"`
	ProposalID *int64        `gorm:"index;comment:关联提案ID" json:"proposal_id,omitempty"`
	Error      string        `gorm:"size:1024;comment:worker上报的失败原因(原样展示)" json:"error,omitempty"`
}

func (*IngestJob) TableName() string {
	return "catalog_ingest_jobs"
}

// IsTerminal 客户端视角是否已到终点（needs_review 对客户端即终点）
func (j *IngestJob) IsTerminal() bool {
	switch j.Status {
	case JobStatusNeedsReview, JobStatusFailed, JobStatusApplied:
		return true
	}
	return false
}

// IngestProposal 抽取提案（待人工审核的结果）
// extracted_items 创建后不可变；记录位于 listings/{listingId}/ingestProposals/{proposalId}
type IngestProposal struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	ListingID      int64          `gorm:"index;not null;comment:商户ID" json:"listing_id"`
	Kind           OfferingKind   `gorm:"size:32;not null;comment:品类" json:"kind"`
	Status         string         `gorm:"size:32;index;default:proposed;comment:提案状态" json:"status"`
	ExtractedItems datatypes.JSON `gorm:"comment:候选条目(创建后不可变)" json:"extracted_items"`
	Warnings       StringSlice    `gorm:"type:json;comment:worker警告" json:"warnings"`
	ResolvedAt     *time.Time     `gorm:"comment:终态时间" json:"resolved_at,omitempty"`
}

func (*IngestProposal) TableName() string {
	return "ingest_proposals"
}

// IsResolved 是否已到终态
func (p *IngestProposal) IsResolved() bool {
	return p.Status != ProposalStatusProposed
}

// Candidates 解码候选条目
func (p *IngestProposal) Candidates() ([]ExtractedItemCandidate, error) {
	if len(p.ExtractedItems) == 0 {
		return nil, nil
	}
	var items []ExtractedItemCandidate
	if err := json.Unmarshal(p.ExtractedItems, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// SetCandidates 编码候选条目（仅创建时调用一次）
func (p *IngestProposal) SetCandidates(items []ExtractedItemCandidate) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	p.ExtractedItems = datatypes.JSON(data)
	return nil
}
