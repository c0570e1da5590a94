package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"placely_ingest_v1_202601/internal/service"
)

// IngestCleanupTask 摄取数据保留任务
// 定期清掉过了保留期的终态任务（连同存储里的来源文件）和已解决的提案
type IngestCleanupTask struct {
	IngestService *service.IngestService
	Cron          *cron.Cron

	retention time.Duration
}

func NewIngestCleanupTask(ingestService *service.IngestService, retention time.Duration) *IngestCleanupTask {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour // 默认保留 90 天
	}
	return &IngestCleanupTask{
		IngestService: ingestService,
		Cron:          cron.New(cron.WithSeconds()), // 支持秒级控制
		retention:     retention,
	}
}

// Start 启动定时任务
func (t *IngestCleanupTask) Start() {
	// 首次执行
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		log.Println("[Task] 服务启动，正在执行首次摄取数据清理...")
		t.cleanupJob(ctx)
	}()

	// 每小时整点清一次
	_, err := t.Cron.AddFunc("0 0 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		t.cleanupJob(ctx)
	})

	if err != nil {
		log.Fatalf("无法启动摄取清理定时任务: %v", err)
	}

	t.Cron.Start()
	log.Println("摄取数据清理任务已启动 (每小时一次)")
}

// Stop 停止定时任务
func (t *IngestCleanupTask) Stop() {
	t.Cron.Stop()
}

func (t *IngestCleanupTask) cleanupJob(ctx context.Context) {
	before := time.Now().Add(-t.retention)

	jobs, proposals, err := t.IngestService.CleanupBefore(ctx, before)
	if err != nil {
		log.Printf("[Cron] 摄取数据清理失败: %v", err)
		return
	}

	if jobs > 0 || proposals > 0 {
		log.Printf("[Cron] 摄取数据清理完成：任务 %d 条，提案 %d 条", jobs, proposals)
	}
}
