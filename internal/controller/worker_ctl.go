package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"placely_ingest_v1_202601/internal/api/dto"
	"placely_ingest_v1_202601/internal/model"
	"placely_ingest_v1_202601/internal/service"
)

// ==================== 控制器 ====================

// WorkerController 外部抽取 worker 的回写入口
// 任务状态只从这里推进：start → complete/fail
type WorkerController struct {
	ingestService *service.IngestService
}

func NewWorkerController(ingestService *service.IngestService) *WorkerController {
	return &WorkerController{ingestService: ingestService}
}

func parseJobID(c *gin.Context) (int64, bool) {
	jobID, err := strconv.ParseInt(c.Param("job_id"), 10, 64)
	if err != nil || jobID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的任务ID",
		})
		return 0, false
	}
	return jobID, true
}

func workerErrStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrJobNotQueued), errors.Is(err, service.ErrJobNotRunning):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// ==================== API 方法 ====================

// StartJob worker 认领任务
// @Summary 任务开始处理（queued → processing）
// @Tags Worker
// @Param job_id path int true "任务ID"
// @Success 200 {object} map[string]interface{}
// @Router /worker/jobs/{job_id}/start [post]
func (ctrl *WorkerController) StartJob(c *gin.Context) {
	jobID, ok := parseJobID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := ctrl.ingestService.StartJob(ctx, jobID); err != nil {
		status := workerErrStatus(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
	})
}

// CompleteJob worker 回写抽取结果
// @Summary 回写抽取结果（processing → needs_review，创建提案）
// @Tags Worker
// @Accept json
// @Param job_id path int true "任务ID"
// @Param body body dto.CompleteJobRequest true "抽取结果"
// @Success 200 {object} map[string]interface{}
// @Router /worker/jobs/{job_id}/complete [post]
func (ctrl *WorkerController) CompleteJob(c *gin.Context) {
	jobID, ok := parseJobID(c)
	if !ok {
		return
	}

	var req dto.CompleteJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	items := make([]model.ExtractedItemCandidate, 0, len(req.Items))
	for _, it := range req.Items {
		candidate := model.ExtractedItemCandidate{
			Name:        it.Name,
			Description: it.Description,
			Currency:    it.Currency,
			Category:    it.Category,
		}
		if it.Price != nil {
			price := decimal.NewFromFloat(*it.Price)
			candidate.Price = &price
		}
		items = append(items, candidate)
	}

	ctx := c.Request.Context()
	proposal, err := ctrl.ingestService.CompleteJob(ctx, jobID, service.CompleteJobInput{
		Items:    items,
		Warnings: req.Warnings,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmptyProposal) {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": err.Error(),
			})
			return
		}
		status := workerErrStatus(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    proposal,
	})
}

// FailJob worker 上报失败
// @Summary 上报抽取失败（processing → failed）
// @Tags Worker
// @Accept json
// @Param job_id path int true "任务ID"
// @Param body body dto.FailJobRequest true "失败原因"
// @Success 200 {object} map[string]interface{}
// @Router /worker/jobs/{job_id}/fail [post]
func (ctrl *WorkerController) FailJob(c *gin.Context) {
	jobID, ok := parseJobID(c)
	if !ok {
		return
	}

	var req dto.FailJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	if err := ctrl.ingestService.FailJob(ctx, jobID, req.Error); err != nil {
		status := workerErrStatus(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
	})
}
