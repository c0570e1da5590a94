package router

import (
	"github.com/gin-gonic/gin"

	"placely_ingest_v1_202601/internal/controller"
	"placely_ingest_v1_202601/internal/middleware"
)

// Controllers 控制器集合
type Controllers struct {
	Catalog *controller.CatalogController
	Ingest  *controller.IngestController
	Worker  *controller.WorkerController
}

// SetupRouter 创建引擎并注册全部路由
func SetupRouter(ctls *Controllers) *gin.Engine {
	r := gin.Default()
	InitRoutes(r, ctls.Catalog, ctls.Ingest, ctls.Worker)
	return r
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	catalogCtl *controller.CatalogController,
	ingestCtl *controller.IngestController,
	workerCtl *controller.WorkerController) {
	r.Use(middleware.RequestID())

	// 1. 商户运营 API 路由组
	api := r.Group("/api", middleware.JWTAuth(), middleware.RequireRole(middleware.RoleAdmin))
	{
		listings := api.Group("/listings/:listing_id")
		{
			// catalog 目录条目维护
			items := listings.Group("/catalog/:kind/items")
			{
				// GET /api/listings/:listing_id/catalog/:kind/items
				items.GET("", catalogCtl.ListItems)
				items.POST("", catalogCtl.UpsertItem)
				items.DELETE("/:item_id", catalogCtl.DeleteItem)
				items.POST("/quick-add", catalogCtl.QuickAdd)
				items.POST("/reorder", catalogCtl.Reorder)
			}
			// ingest 抽取任务
			ingest := listings.Group("/ingest")
			{
				// POST /api/listings/:listing_id/ingest/jobs
				ingest.POST("/jobs", ingestCtl.CreateJob)
				ingest.GET("/jobs/:job_id", ingestCtl.GetJob)
				ingest.POST("/uploads", ingestCtl.UploadSource)
			}
			// proposal 提案审核
			proposals := listings.Group("/proposals")
			{
				// GET /api/listings/:listing_id/proposals/latest
				proposals.GET("/latest", ingestCtl.GetLatestProposal)
				proposals.GET("/:proposal_id", ingestCtl.GetProposal)
				proposals.POST("/:proposal_id/apply", ingestCtl.ApplyProposal)
				proposals.POST("/:proposal_id/reject", ingestCtl.RejectProposal)
			}
		}
	}

	// 2. worker 回写路由组，单独的角色门禁
	worker := r.Group("/worker", middleware.JWTAuth(), middleware.RequireRole(middleware.RoleWorker))
	{
		jobs := worker.Group("/jobs")
		{
			jobs.POST("/:job_id/start", workerCtl.StartJob)
			jobs.POST("/:job_id/complete", workerCtl.CompleteJob)
			jobs.POST("/:job_id/fail", workerCtl.FailJob)
		}
	}
}
