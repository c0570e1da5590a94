package repository

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"placely_ingest_v1_202601/internal/model"
)

// ==================== 辅助函数 ====================

func setupRepoTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	err = db.AutoMigrate(&model.CatalogItem{}, &model.IngestJob{}, &model.IngestProposal{})
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	return db
}

func seedProposal(t *testing.T, repo IngestProposalRepository, listingID int64, status string) *model.IngestProposal {
	p := &model.IngestProposal{
		ListingID: listingID,
		Kind:      model.KindMenuItems,
		Status:    status,
	}
	if err := p.SetCandidates([]model.ExtractedItemCandidate{{Name: "Margherita"}}); err != nil {
		t.Fatalf("编码候选失败: %v", err)
	}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("创建提案失败: %v", err)
	}
	return p
}

// ==================== 条件更新测试 ====================

func TestIngestProposalRepo_UpdateStatusIf(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewIngestProposalRepository(db)
	ctx := context.Background()

	p := seedProposal(t, repo, 1, model.ProposalStatusProposed)

	// 状态匹配，迁移命中
	rows, err := repo.UpdateStatusIf(ctx, p.ID, model.ProposalStatusProposed, model.ProposalStatusApplied, time.Now())
	if err != nil {
		t.Fatalf("条件更新失败: %v", err)
	}
	if rows != 1 {
		t.Errorf("期望命中 1 行，命中 %d 行", rows)
	}

	// 状态已变，二次迁移落空
	rows, err = repo.UpdateStatusIf(ctx, p.ID, model.ProposalStatusProposed, model.ProposalStatusRejected, time.Now())
	if err != nil {
		t.Fatalf("条件更新失败: %v", err)
	}
	if rows != 0 {
		t.Errorf("状态不匹配时应命中 0 行，命中 %d 行", rows)
	}

	got, _ := repo.GetByID(ctx, p.ID)
	if got.Status != model.ProposalStatusApplied {
		t.Errorf("终态不应被覆盖: %q", got.Status)
	}
	if got.ResolvedAt == nil {
		t.Error("迁移应写入终态时间")
	}
}

func TestIngestProposalRepo_ListByListing(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewIngestProposalRepository(db)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		seedProposal(t, repo, 1, model.ProposalStatusProposed)
	}
	other := seedProposal(t, repo, 2, model.ProposalStatusProposed)

	// 默认一页 20 条，新的在前
	proposals, err := repo.ListByListing(ctx, 1, 0)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(proposals) != 20 {
		t.Fatalf("期望 20 条，得到 %d 条", len(proposals))
	}
	if proposals[0].ID < proposals[1].ID {
		t.Error("应按新旧排序，新的在前")
	}
	for _, p := range proposals {
		if p.ID == other.ID {
			t.Error("不应混入其他商户的提案")
		}
	}
}

func TestIngestJobRepo_MarkAppliedByProposal(t *testing.T) {
	db := setupRepoTestDB(t)
	jobs := NewIngestJobRepository(db)
	ctx := context.Background()

	proposalID := int64(9)
	reviewing := &model.IngestJob{
		MarketID: 10, ListingID: 1, Kind: model.KindMenuItems,
		Status: model.JobStatusNeedsReview, ProposalID: &proposalID,
	}
	failed := &model.IngestJob{
		MarketID: 10, ListingID: 1, Kind: model.KindMenuItems,
		Status: model.JobStatusFailed, ProposalID: &proposalID,
	}
	jobs.Create(ctx, reviewing)
	jobs.Create(ctx, failed)

	if err := jobs.MarkAppliedByProposal(ctx, proposalID); err != nil {
		t.Fatalf("间接迁移失败: %v", err)
	}

	got, _ := jobs.GetByID(ctx, reviewing.ID)
	if got.Status != model.JobStatusApplied {
		t.Errorf("needs_review 任务应到 applied: %q", got.Status)
	}
	// failed 不受提案应用影响
	got, _ = jobs.GetByID(ctx, failed.ID)
	if got.Status != model.JobStatusFailed {
		t.Errorf("failed 任务不应被改写: %q", got.Status)
	}
}

// ==================== 事务测试 ====================

func TestIngestUnitOfWork_Rollback(t *testing.T) {
	db := setupRepoTestDB(t)
	uow := NewIngestUnitOfWork(db)
	ctx := context.Background()

	err := uow.Transaction(ctx, func(tx *IngestUnitOfWork) error {
		p := &model.IngestProposal{ListingID: 1, Kind: model.KindMenuItems, Status: model.ProposalStatusProposed}
		if err := tx.Proposals.Create(ctx, p); err != nil {
			return err
		}
		return gorm.ErrInvalidTransaction // 故意失败
	})
	if err == nil {
		t.Fatal("期望事务失败")
	}

	var count int64
	db.Model(&model.IngestProposal{}).Count(&count)
	if count != 0 {
		t.Errorf("回滚后不应留下提案，剩余 %d 条", count)
	}
}
