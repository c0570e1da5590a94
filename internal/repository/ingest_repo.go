package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"placely_ingest_v1_202601/internal/model"
)

// ==================== 仓储接口 ====================

// IngestJobRepository 抽取任务仓储接口
type IngestJobRepository interface {
	Create(ctx context.Context, job *model.IngestJob) error
	GetByID(ctx context.Context, id int64) (*model.IngestJob, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	// UpdateStatusIf 条件更新：仅当前状态等于 from 时写入，返回受影响行数
	UpdateStatusIf(ctx context.Context, id int64, from string, fields map[string]interface{}) (int64, error)
	// MarkAppliedByProposal 提案应用后，引用它的任务间接到达 applied
	MarkAppliedByProposal(ctx context.Context, proposalID int64) error
	FindTerminalBefore(ctx context.Context, before time.Time) ([]*model.IngestJob, error)
	Delete(ctx context.Context, id int64) error

	WithTx(tx *gorm.DB) IngestJobRepository
}

// IngestProposalRepository 抽取提案仓储接口
type IngestProposalRepository interface {
	Create(ctx context.Context, proposal *model.IngestProposal) error
	GetByID(ctx context.Context, id int64) (*model.IngestProposal, error)
	// ListByListing 商户最近的提案，新的在前，limit 限页
	ListByListing(ctx context.Context, listingID int64, limit int) ([]model.IngestProposal, error)
	// UpdateStatusIf 条件状态迁移（compare-and-set）：仅当前状态等于 from 时写入，返回受影响行数
	UpdateStatusIf(ctx context.Context, id int64, from, to string, resolvedAt time.Time) (int64, error)
	FindResolvedBefore(ctx context.Context, before time.Time) ([]*model.IngestProposal, error)
	Delete(ctx context.Context, id int64) error

	WithTx(tx *gorm.DB) IngestProposalRepository
}

// ==================== IngestJob 仓储实现 ====================

type ingestJobRepo struct {
	db *gorm.DB
}

// NewIngestJobRepository 创建抽取任务仓储
func NewIngestJobRepository(db *gorm.DB) IngestJobRepository {
	return &ingestJobRepo{db: db}
}

func (r *ingestJobRepo) Create(ctx context.Context, job *model.IngestJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *ingestJobRepo) GetByID(ctx context.Context, id int64) (*model.IngestJob, error) {
	var job model.IngestJob
	if err := r.db.WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *ingestJobRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.IngestJob{}).Where("id = ?", id).Updates(fields).Error
}

func (r *ingestJobRepo) UpdateStatusIf(ctx context.Context, id int64, from string, fields map[string]interface{}) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.IngestJob{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	return result.RowsAffected, result.Error
}

func (r *ingestJobRepo) MarkAppliedByProposal(ctx context.Context, proposalID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.IngestJob{}).
		Where("proposal_id = ? AND status = ?", proposalID, model.JobStatusNeedsReview).
		Update("status", model.JobStatusApplied).Error
}

func (r *ingestJobRepo) FindTerminalBefore(ctx context.Context, before time.Time) ([]*model.IngestJob, error) {
	var jobs []*model.IngestJob
	err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?",
			[]string{model.JobStatusFailed, model.JobStatusApplied}, before).
		Find(&jobs).Error
	return jobs, err
}

func (r *ingestJobRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.IngestJob{}, id).Error
}

func (r *ingestJobRepo) WithTx(tx *gorm.DB) IngestJobRepository {
	return &ingestJobRepo{db: tx}
}

// ==================== IngestProposal 仓储实现 ====================

type ingestProposalRepo struct {
	db *gorm.DB
}

// NewIngestProposalRepository 创建抽取提案仓储
func NewIngestProposalRepository(db *gorm.DB) IngestProposalRepository {
	return &ingestProposalRepo{db: db}
}

func (r *ingestProposalRepo) Create(ctx context.Context, proposal *model.IngestProposal) error {
	return r.db.WithContext(ctx).Create(proposal).Error
}

func (r *ingestProposalRepo) GetByID(ctx context.Context, id int64) (*model.IngestProposal, error) {
	var proposal model.IngestProposal
	if err := r.db.WithContext(ctx).First(&proposal, id).Error; err != nil {
		return nil, err
	}
	return &proposal, nil
}

func (r *ingestProposalRepo) ListByListing(ctx context.Context, listingID int64, limit int) ([]model.IngestProposal, error) {
	if limit <= 0 {
		limit = 20
	}
	var proposals []model.IngestProposal
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&proposals).Error
	return proposals, err
}

// UpdateStatusIf 幂等应用/驳回的权威防线：并发迁移只有一个会话的 UPDATE 命中
func (r *ingestProposalRepo) UpdateStatusIf(ctx context.Context, id int64, from, to string, resolvedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.IngestProposal{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":      to,
			"resolved_at": resolvedAt,
		})
	return result.RowsAffected, result.Error
}

func (r *ingestProposalRepo) FindResolvedBefore(ctx context.Context, before time.Time) ([]*model.IngestProposal, error) {
	var proposals []*model.IngestProposal
	err := r.db.WithContext(ctx).
		Where("status IN ? AND resolved_at < ?",
			[]string{model.ProposalStatusApplied, model.ProposalStatusRejected}, before).
		Find(&proposals).Error
	return proposals, err
}

func (r *ingestProposalRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.IngestProposal{}, id).Error
}

func (r *ingestProposalRepo) WithTx(tx *gorm.DB) IngestProposalRepository {
	return &ingestProposalRepo{db: tx}
}

// ==================== 事务支持 ====================

// IngestUnitOfWork 摄取工作单元（事务）
// 应用提案时，状态迁移和条目写入必须落在同一个事务里
type IngestUnitOfWork struct {
	db        *gorm.DB
	Jobs      IngestJobRepository
	Proposals IngestProposalRepository
	Items     CatalogItemRepository
}

// NewIngestUnitOfWork 创建工作单元
func NewIngestUnitOfWork(db *gorm.DB) *IngestUnitOfWork {
	return &IngestUnitOfWork{
		db:        db,
		Jobs:      NewIngestJobRepository(db),
		Proposals: NewIngestProposalRepository(db),
		Items:     NewCatalogItemRepository(db),
	}
}

// Transaction 执行事务
func (u *IngestUnitOfWork) Transaction(ctx context.Context, fn func(uow *IngestUnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txUow := &IngestUnitOfWork{
			db:        tx,
			Jobs:      NewIngestJobRepository(tx),
			Proposals: NewIngestProposalRepository(tx),
			Items:     NewCatalogItemRepository(tx),
		}
		return fn(txUow)
	})
}
