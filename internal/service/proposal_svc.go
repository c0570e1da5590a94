package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"placely_ingest_v1_202601/internal/model"
	"placely_ingest_v1_202601/internal/repository"
)

// ==================== 错误定义 ====================

var (
	ErrProposalNotFound  = errors.New("提案不存在")
	ErrProposalRejected  = errors.New("提案已驳回，无法应用")
	ErrProposalApplied   = errors.New("提案已应用，无法驳回")
	ErrProposalMismatch  = errors.New("提案不属于该商户")
	ErrMalformedProposal = errors.New("提案候选条目解码失败")
)

// ==================== 服务定义 ====================

// ProposalService 提案审核服务
// 应用/驳回以数据库条件更新做幂等防线：重复应用是无害 no-op，驳回后应用报错
type ProposalService struct {
	uow *repository.IngestUnitOfWork
}

// NewProposalService 创建提案审核服务
func NewProposalService(uow *repository.IngestUnitOfWork) *ProposalService {
	return &ProposalService{uow: uow}
}

// ==================== 查询 ====================

// GetProposal 按 ID 获取提案，并校验归属商户
func (s *ProposalService) GetProposal(ctx context.Context, listingID, id int64) (*model.IngestProposal, error) {
	proposal, err := s.uow.Proposals.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProposalNotFound
	}
	if err != nil {
		return nil, err
	}
	if proposal.ListingID != listingID {
		return nil, ErrProposalMismatch
	}
	return proposal, nil
}

// LoadLatest 商户某品类最近一条待审提案；只看最近一页（20 条），没有则返回 nil
// 更老的待审提案视为已过期，不再浮出
func (s *ProposalService) LoadLatest(ctx context.Context, listingID int64, kind model.OfferingKind) (*model.IngestProposal, error) {
	proposals, err := s.uow.Proposals.ListByListing(ctx, listingID, 20)
	if err != nil {
		return nil, err
	}
	for i := range proposals {
		p := &proposals[i]
		if p.Kind == kind && p.Status == model.ProposalStatusProposed {
			return p, nil
		}
	}
	return nil, nil
}

// ==================== 应用 ====================

// ApplyResult 应用提案的结果
type ApplyResult struct {
	CreatedCount   int  `json:"created_count"`
	SkippedCount   int  `json:"skipped_count"`
	AlreadyApplied bool `json:"already_applied"`
}

// Apply 把提案的候选条目写入目录
// 状态迁移和条目写入在同一事务里：条件更新没命中时重读状态分流——
// 已应用返回幂等 no-op（不再写条目），已驳回报错
func (s *ProposalService) Apply(ctx context.Context, listingID, id int64) (*ApplyResult, error) {
	result := &ApplyResult{}

	err := s.uow.Transaction(ctx, func(uow *repository.IngestUnitOfWork) error {
		proposal, err := uow.Proposals.GetByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProposalNotFound
		}
		if err != nil {
			return err
		}
		if proposal.ListingID != listingID {
			return ErrProposalMismatch
		}

		rows, err := uow.Proposals.UpdateStatusIf(ctx, id,
			model.ProposalStatusProposed, model.ProposalStatusApplied, time.Now())
		if err != nil {
			return err
		}
		if rows == 0 {
			// 并发会话可能在首次读取之后抢先迁移，必须重读再分流
			current, err := uow.Proposals.GetByID(ctx, id)
			if err != nil {
				return err
			}
			switch current.Status {
			case model.ProposalStatusApplied:
				result.AlreadyApplied = true
				return nil
			case model.ProposalStatusRejected:
				return ErrProposalRejected
			}
			return fmt.Errorf("提案状态迁移失败: status=%s", current.Status)
		}

		candidates, err := proposal.Candidates()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedProposal, err)
		}

		created, skipped, err := s.applyCandidates(ctx, uow, proposal, candidates)
		if err != nil {
			return err
		}
		result.CreatedCount = created
		result.SkippedCount = skipped

		// 引用该提案且还停在 needs_review 的任务间接到达 applied
		return uow.Jobs.MarkAppliedByProposal(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyApplied {
		log.Printf("[Proposal] 重复应用（幂等跳过） proposal=%d", id)
	} else {
		log.Printf("[Proposal] 提案已应用 proposal=%d created=%d skipped=%d",
			id, result.CreatedCount, result.SkippedCount)
	}
	return result, nil
}

// applyCandidates 逐条写入候选条目，按归一化名称去重
// 与现有条目或本批次更早候选重名的跳过；排序号从当前条目数起连续追加
func (s *ProposalService) applyCandidates(ctx context.Context, uow *repository.IngestUnitOfWork, proposal *model.IngestProposal, candidates []model.ExtractedItemCandidate) (created, skipped int, err error) {
	existing, err := uow.Items.List(ctx, proposal.ListingID, proposal.Kind)
	if err != nil {
		return 0, 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, item := range existing {
		seen[NormalizeItemName(item.Name)] = true
	}

	nextSort := len(existing)
	for _, c := range candidates {
		normalized := NormalizeItemName(c.Name)
		if normalized == "" || seen[normalized] {
			skipped++
			continue
		}
		seen[normalized] = true

		item := &model.CatalogItem{
			ListingID:   proposal.ListingID,
			Kind:        proposal.Kind,
			Name:        c.Name,
			Description: normalizeOptionalText(c.Description),
			Price:       coerceCandidatePrice(c.Price),
			Currency:    candidateCurrency(c.Currency),
			Category:    normalizeOptionalText(c.Category),
			Available:   true,
			SortOrder:   nextSort,
		}
		if err := uow.Items.Create(ctx, item); err != nil {
			return created, skipped, err
		}
		created++
		nextSort++
	}
	return created, skipped, nil
}

// coerceCandidatePrice 候选价格钳制：缺省、非法或负数一律归零
func coerceCandidatePrice(p *decimal.Decimal) decimal.Decimal {
	if p == nil || p.IsNegative() {
		return decimal.Zero
	}
	return *p
}

// candidateCurrency 候选货币缺省为 EUR
func candidateCurrency(p *string) string {
	if p == nil {
		return "EUR"
	}
	return normalizeCurrency(*p)
}

// ==================== 驳回 ====================

// Reject 驳回提案
// 重复驳回是无害 no-op；已应用的提案不可驳回
func (s *ProposalService) Reject(ctx context.Context, listingID, id int64) error {
	proposal, err := s.GetProposal(ctx, listingID, id)
	if err != nil {
		return err
	}

	rows, err := s.uow.Proposals.UpdateStatusIf(ctx, id,
		model.ProposalStatusProposed, model.ProposalStatusRejected, time.Now())
	if err != nil {
		return err
	}
	if rows == 0 {
		current, err := s.uow.Proposals.GetByID(ctx, id)
		if err != nil {
			return err
		}
		switch current.Status {
		case model.ProposalStatusRejected:
			return nil
		case model.ProposalStatusApplied:
			return ErrProposalApplied
		}
		return fmt.Errorf("提案状态迁移失败: status=%s", current.Status)
	}

	log.Printf("[Proposal] 提案已驳回 proposal=%d listing=%d kind=%s", id, proposal.ListingID, proposal.Kind)
	return nil
}
