package ingest

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"placely_ingest_v1_202601/internal/model"
)

// ==================== 客户端 ====================

// Client 抽取流水线的 HTTP 客户端
// 封装建任务、传文件、轮询和提案审核，供商户端集成方使用
type Client struct {
	http *resty.Client

	// 轮询节奏，测试时可调快
	pollInterval time.Duration
	pollBudget   int
}

// Option 客户端配置项
type Option func(*Client)

// WithPollInterval 自定义轮询间隔
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithPollBudget 自定义轮询次数上限
func WithPollBudget(n int) Option {
	return func(c *Client) { c.pollBudget = n }
}

// NewClient 创建客户端
func NewClient(baseURL, token string, opts ...Option) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetTimeout(20 * time.Second)

	c := &Client{
		http:         httpClient,
		pollInterval: 2 * time.Second,
		pollBudget:   60, // 默认约两分钟后放弃
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiEnvelope 服务端统一响应包
type apiEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jobEnvelope struct {
	apiEnvelope
	Data *model.IngestJob `json:"data"`
}

type proposalEnvelope struct {
	apiEnvelope
	Data *model.IngestProposal `json:"data"`
}

type uploadEnvelope struct {
	apiEnvelope
	Data struct {
		StoragePath string `json:"storage_path"`
	} `json:"data"`
}

type applyEnvelope struct {
	apiEnvelope
	Data struct {
		CreatedCount   int  `json:"created_count"`
		SkippedCount   int  `json:"skipped_count"`
		AlreadyApplied bool `json:"already_applied"`
	} `json:"data"`
}

func checkEnvelope(resp *resty.Response, env *apiEnvelope) error {
	if resp.IsError() || env.Code != 0 {
		return fmt.Errorf("请求失败: HTTP %d code=%d message=%s",
			resp.StatusCode(), env.Code, env.Message)
	}
	return nil
}

// ==================== 任务操作 ====================

// CreateJob 创建抽取任务
func (c *Client) CreateJob(ctx context.Context, listingID, marketID int64, kind string, sources []model.IngestSource) (*model.IngestJob, error) {
	var result jobEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"market_id": marketID,
			"kind":      kind,
			"sources":   sources,
		}).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("/api/listings/%d/ingest/jobs", listingID))
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope(resp, &result.apiEnvelope); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// UploadSource 上传来源文件，返回可填进任务来源的存储路径
func (c *Client) UploadSource(ctx context.Context, listingID int64, filename string, data []byte) (string, error) {
	var result uploadEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(data)).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("/api/listings/%d/ingest/uploads", listingID))
	if err != nil {
		return "", err
	}
	if err := checkEnvelope(resp, &result.apiEnvelope); err != nil {
		return "", err
	}
	return result.Data.StoragePath, nil
}

// CreateJobFromFile 上传文件并以其为来源创建任务（image/pdf 的一步到位入口）
func (c *Client) CreateJobFromFile(ctx context.Context, listingID, marketID int64, kind, sourceType, filename string, data []byte) (*model.IngestJob, error) {
	storagePath, err := c.UploadSource(ctx, listingID, filename, data)
	if err != nil {
		return nil, err
	}
	return c.CreateJob(ctx, listingID, marketID, kind, []model.IngestSource{
		{Type: sourceType, StoragePath: storagePath},
	})
}

// GetJob 查询任务状态
func (c *Client) GetJob(ctx context.Context, listingID, jobID int64) (*model.IngestJob, error) {
	var result jobEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&result).
		Get(fmt.Sprintf("/api/listings/%d/ingest/jobs/%d", listingID, jobID))
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope(resp, &result.apiEnvelope); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// ==================== 提案操作 ====================

// GetLatestProposal 商户某品类最近一条待审提案，没有则返回 nil
func (c *Client) GetLatestProposal(ctx context.Context, listingID int64, kind string) (*model.IngestProposal, error) {
	var result proposalEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("kind", kind).
		SetResult(&result).
		SetError(&result).
		Get(fmt.Sprintf("/api/listings/%d/proposals/latest", listingID))
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope(resp, &result.apiEnvelope); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// GetProposal 按 ID 获取提案详情
func (c *Client) GetProposal(ctx context.Context, listingID, proposalID int64) (*model.IngestProposal, error) {
	var result proposalEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&result).
		Get(fmt.Sprintf("/api/listings/%d/proposals/%d", listingID, proposalID))
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope(resp, &result.apiEnvelope); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// ApplyResult 应用提案的结果
type ApplyResult struct {
	CreatedCount   int
	SkippedCount   int
	AlreadyApplied bool
}

// ApplyProposal 应用提案（服务端幂等，可安全重试）
func (c *Client) ApplyProposal(ctx context.Context, listingID, proposalID int64) (*ApplyResult, error) {
	var result applyEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("/api/listings/%d/proposals/%d/apply", listingID, proposalID))
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope(resp, &result.apiEnvelope); err != nil {
		return nil, err
	}
	return &ApplyResult{
		CreatedCount:   result.Data.CreatedCount,
		SkippedCount:   result.Data.SkippedCount,
		AlreadyApplied: result.Data.AlreadyApplied,
	}, nil
}

// RejectProposal 驳回提案
func (c *Client) RejectProposal(ctx context.Context, listingID, proposalID int64) error {
	var result apiEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("/api/listings/%d/proposals/%d/reject", listingID, proposalID))
	if err != nil {
		return err
	}
	return checkEnvelope(resp, &result)
}
