package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"placely_ingest_v1_202601/internal/model"
	"placely_ingest_v1_202601/internal/repository"
)

// ==================== 错误定义 ====================

var (
	ErrJobNotFound    = errors.New("抽取任务不存在")
	ErrNoSources      = errors.New("至少需要一个抽取来源")
	ErrInvalidSource  = errors.New("抽取来源不合法")
	ErrJobNotQueued   = errors.New("任务不在排队状态")
	ErrJobNotRunning  = errors.New("任务不在处理状态")
	ErrEmptyProposal  = errors.New("worker 结果不含任何候选条目")
	ErrEmptyJobSource = errors.New("上传内容为空")
)

// ==================== 服务定义 ====================

// IngestService 抽取任务服务
// 任务由客户端创建一次，之后的状态只允许外部 worker 通过 Start/Complete/Fail 推进；
// needs_review → applied 的迁移不走这里，由提案应用间接完成
type IngestService struct {
	uow     *repository.IngestUnitOfWork
	storage *StorageService
}

// NewIngestService 创建抽取任务服务
func NewIngestService(uow *repository.IngestUnitOfWork, storage *StorageService) *IngestService {
	return &IngestService{uow: uow, storage: storage}
}

// ==================== 任务创建与查询 ====================

// CreateJobInput 创建任务的输入
type CreateJobInput struct {
	MarketID  int64
	ListingID int64
	Kind      model.OfferingKind
	Sources   []model.IngestSource
}

// CreateJob 创建抽取任务（queued 状态落库，等待 worker 认领）
func (s *IngestService) CreateJob(ctx context.Context, input CreateJobInput) (*model.IngestJob, error) {
	if len(input.Sources) == 0 {
		return nil, ErrNoSources
	}

	sources := make(model.IngestSources, 0, len(input.Sources))
	for _, src := range input.Sources {
		switch src.Type {
		case model.SourceTypeURL:
			src.URL = strings.TrimSpace(src.URL)
			if src.URL == "" {
				return nil, fmt.Errorf("%w: url 来源缺少地址", ErrInvalidSource)
			}
			src.StoragePath = ""
		case model.SourceTypeImage, model.SourceTypePDF:
			if strings.TrimSpace(src.StoragePath) == "" {
				return nil, fmt.Errorf("%w: %s 来源缺少存储路径", ErrInvalidSource, src.Type)
			}
			src.URL = ""
		default:
			return nil, fmt.Errorf("%w: 未知来源类型 %s", ErrInvalidSource, src.Type)
		}
		sources = append(sources, src)
	}

	job := &model.IngestJob{
		MarketID:  input.MarketID,
		ListingID: input.ListingID,
		Kind:      input.Kind,
		Sources:   sources,
		Status:    model.JobStatusQueued,
	}
	if err := s.uow.Jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("创建任务失败: %w", err)
	}

	log.Printf("[Ingest] 任务已创建 job=%d listing=%d kind=%s sources=%d",
		job.ID, job.ListingID, job.Kind, len(sources))
	return job, nil
}

// UploadSource 把客户端上传的文件写入对象存储，返回可填进任务来源的存储路径
// 任务来源从不内嵌原始字节，只携带存储键
func (s *IngestService) UploadSource(ctx context.Context, listingID int64, filename string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyJobSource
	}
	key := s.storage.ImportKey(listingID, filename)
	if err := s.storage.Upload(ctx, data, key, contentType); err != nil {
		return "", fmt.Errorf("上传来源文件失败: %w", err)
	}
	return key, nil
}

// GetJob 查询任务（轮询端点的后端）
func (s *IngestService) GetJob(ctx context.Context, id int64) (*model.IngestJob, error) {
	job, err := s.uow.Jobs.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	return job, err
}

// ==================== worker 回写 ====================

// StartJob worker 认领任务：queued → processing
// 已被其他 worker 认领或已终态的任务返回 ErrJobNotQueued
func (s *IngestService) StartJob(ctx context.Context, id int64) error {
	rows, err := s.uow.Jobs.UpdateStatusIf(ctx, id, model.JobStatusQueued, map[string]interface{}{
		"status": model.JobStatusProcessing,
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := s.GetJob(ctx, id); err != nil {
			return err
		}
		return ErrJobNotQueued
	}
	log.Printf("[Ingest] 任务开始处理 job=%d", id)
	return nil
}

// CompleteJobInput worker 抽取成功的回写
type CompleteJobInput struct {
	Items    []model.ExtractedItemCandidate
	Warnings []string
}

// CompleteJob worker 回写结果：同一事务里创建提案并把任务迁到 needs_review
// 任务不在 processing 状态时整体回滚
func (s *IngestService) CompleteJob(ctx context.Context, id int64, input CompleteJobInput) (*model.IngestProposal, error) {
	if len(input.Items) == 0 {
		return nil, ErrEmptyProposal
	}

	var proposal *model.IngestProposal
	err := s.uow.Transaction(ctx, func(uow *repository.IngestUnitOfWork) error {
		job, err := uow.Jobs.GetByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrJobNotFound
		}
		if err != nil {
			return err
		}

		p := &model.IngestProposal{
			ListingID: job.ListingID,
			Kind:      job.Kind,
			Status:    model.ProposalStatusProposed,
			Warnings:  input.Warnings,
		}
		if err := p.SetCandidates(input.Items); err != nil {
			return fmt.Errorf("编码候选条目失败: %w", err)
		}
		if err := uow.Proposals.Create(ctx, p); err != nil {
			return err
		}

		rows, err := uow.Jobs.UpdateStatusIf(ctx, id, model.JobStatusProcessing, map[string]interface{}{
			"status":      model.JobStatusNeedsReview,
			"proposal_id": p.ID,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrJobNotRunning
		}

		proposal = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Ingest] 任务待审核 job=%d proposal=%d items=%d warnings=%d",
		id, proposal.ID, len(input.Items), len(input.Warnings))
	return proposal, nil
}

// FailJob worker 上报失败：processing → failed，原因原样保存并展示给用户
func (s *IngestService) FailJob(ctx context.Context, id int64, reason string) error {
	rows, err := s.uow.Jobs.UpdateStatusIf(ctx, id, model.JobStatusProcessing, map[string]interface{}{
		"status": model.JobStatusFailed,
		"error":  reason,
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := s.GetJob(ctx, id); err != nil {
			return err
		}
		return ErrJobNotRunning
	}
	log.Printf("[Ingest] 任务失败 job=%d reason=%s", id, reason)
	return nil
}

// ==================== 数据保留 ====================

// CleanupBefore 删除早于截止时间的终态数据：已解决的提案、终态任务及其存储的来源文件
// 返回清掉的任务数和提案数
func (s *IngestService) CleanupBefore(ctx context.Context, before time.Time) (jobsDeleted, proposalsDeleted int, err error) {
	jobs, err := s.uow.Jobs.FindTerminalBefore(ctx, before)
	if err != nil {
		return 0, 0, err
	}
	for _, job := range jobs {
		for _, src := range job.Sources {
			if src.StoragePath == "" {
				continue
			}
			if err := s.storage.Delete(ctx, src.StoragePath); err != nil {
				log.Printf("[Ingest] 清理来源文件失败 job=%d key=%s err=%v", job.ID, src.StoragePath, err)
			}
		}
		if err := s.uow.Jobs.Delete(ctx, job.ID); err != nil {
			return jobsDeleted, proposalsDeleted, err
		}
		jobsDeleted++
	}

	proposals, err := s.uow.Proposals.FindResolvedBefore(ctx, before)
	if err != nil {
		return jobsDeleted, proposalsDeleted, err
	}
	for _, p := range proposals {
		if err := s.uow.Proposals.Delete(ctx, p.ID); err != nil {
			return jobsDeleted, proposalsDeleted, err
		}
		proposalsDeleted++
	}

	return jobsDeleted, proposalsDeleted, nil
}
