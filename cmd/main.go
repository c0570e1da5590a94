package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"placely_ingest_v1_202601/internal/controller"
	"placely_ingest_v1_202601/internal/middleware"
	"placely_ingest_v1_202601/internal/model"
	"placely_ingest_v1_202601/internal/repository"
	"placely_ingest_v1_202601/internal/router"
	"placely_ingest_v1_202601/internal/service"
	"placely_ingest_v1_202601/internal/task"
	"placely_ingest_v1_202601/pkg/database"
)

func main() {
	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// 3. 启动定时任务
	initTasks(deps)

	// 4. 初始化路由
	r := router.SetupRouter(deps.Controllers)

	// 5. 启动服务
	startServer(r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers *router.Controllers
}

// Repositories 仓库集合
type Repositories struct {
	Items     repository.CatalogItemRepository
	Jobs      repository.IngestJobRepository
	Proposals repository.IngestProposalRepository
	IngestUow *repository.IngestUnitOfWork
}

// Services 服务集合
type Services struct {
	Catalog  *service.CatalogService
	Ingest   *service.IngestService
	Proposal *service.ProposalService
	Storage  *service.StorageService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	dsn := getEnv("DATABASE_DSN",
		"host=localhost user=postgres password=postgres dbname=catalog_ingest port=5432 sslmode=disable")
	return database.InitDB(dsn,
		// Catalog
		&model.CatalogItem{},
		// Ingest
		&model.IngestJob{}, &model.IngestProposal{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Items:     repository.NewCatalogItemRepository(db),
		Jobs:      repository.NewIngestJobRepository(db),
		Proposals: repository.NewIngestProposalRepository(db),
		IngestUow: repository.NewIngestUnitOfWork(db),
	}

	// -------- 存储服务 --------
	storageSvc := initStorageService()

	// -------- 业务服务 --------
	services := &Services{
		Storage:  storageSvc,
		Catalog:  service.NewCatalogService(repos.Items),
		Ingest:   service.NewIngestService(repos.IngestUow, storageSvc),
		Proposal: service.NewProposalService(repos.IngestUow),
	}

	// -------- JWT 配置 --------
	if secret := getEnv("JWT_SECRET", ""); secret != "" {
		cfg := middleware.DefaultJWTConfig()
		cfg.SecretKey = secret
		middleware.SetJWTConfig(cfg)
	}

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		Catalog: controller.NewCatalogController(services.Catalog),
		Ingest:  controller.NewIngestController(services.Ingest, services.Proposal),
		Worker:  controller.NewWorkerController(services.Ingest),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		Controllers: controllers,
	}
}

// initStorageService 初始化存储服务
func initStorageService() *service.StorageService {
	storageSvc, err := service.NewStorageService(&service.StorageConfig{
		Provider:  getEnv("STORAGE_PROVIDER", "s3"),
		Bucket:    getEnv("AWS_BUCKET", ""),
		Region:    getEnv("AWS_REGION", ""),
		AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
		BasePath:  getEnv("STORAGE_BASE_PATH", ""),
	})
	if err != nil {
		log.Fatalf("存储服务初始化失败: %v", err)
	}
	return storageSvc
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) {
	// 摄取数据保留清理
	retentionDays, _ := strconv.Atoi(getEnv("INGEST_RETENTION_DAYS", "90"))
	cleanupTask := task.NewIngestCleanupTask(
		deps.Services.Ingest,
		time.Duration(retentionDays)*24*time.Hour,
	)
	cleanupTask.Start()

	log.Println("定时任务已启动")
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
