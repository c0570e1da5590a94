package controller

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"placely_ingest_v1_202601/internal/api/dto"
	"placely_ingest_v1_202601/internal/middleware"
	"placely_ingest_v1_202601/internal/model"
	"placely_ingest_v1_202601/internal/service"
)

// 上传的来源文件大小上限
const maxSourceUploadBytes = 20 << 20 // 20MB

// ==================== 控制器 ====================

// IngestController 抽取任务控制器（商户侧：建任务、传文件、轮询、审提案）
type IngestController struct {
	ingestService   *service.IngestService
	proposalService *service.ProposalService
}

func NewIngestController(ingestService *service.IngestService, proposalService *service.ProposalService) *IngestController {
	return &IngestController{
		ingestService:   ingestService,
		proposalService: proposalService,
	}
}

func parseListingID(c *gin.Context) (int64, bool) {
	listingID, err := strconv.ParseInt(c.Param("listing_id"), 10, 64)
	if err != nil || listingID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的商户ID",
		})
		return 0, false
	}
	return listingID, true
}

// ==================== 任务 ====================

// CreateJob 创建抽取任务
// @Summary 提交来源创建抽取任务
// @Tags Ingest
// @Accept json
// @Param listing_id path int true "商户ID"
// @Param body body dto.CreateIngestJobRequest true "创建请求"
// @Success 201 {object} map[string]interface{}
// @Router /api/listings/{listing_id}/ingest/jobs [post]
func (ctrl *IngestController) CreateJob(c *gin.Context) {
	listingID, ok := parseListingID(c)
	if !ok {
		return
	}

	var req dto.CreateIngestJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	kind, err := model.KindFromIngestAlias(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	sources := make([]model.IngestSource, 0, len(req.Sources))
	for _, s := range req.Sources {
		sources = append(sources, model.IngestSource{
			Type:        s.Type,
			URL:         s.URL,
			StoragePath: s.StoragePath,
		})
	}

	ctx := c.Request.Context()
	job, err := ctrl.ingestService.CreateJob(ctx, service.CreateJobInput{
		MarketID:  req.MarketID,
		ListingID: listingID,
		Kind:      kind,
		Sources:   sources,
	})
	if err != nil {
		if errors.Is(err, service.ErrNoSources) || errors.Is(err, service.ErrInvalidSource) {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "创建失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "success",
		"data":    job,
	})
}

// UploadSource 上传来源文件
// @Summary 上传 image/pdf 来源文件，换取存储路径
// @Tags Ingest
// @Accept multipart/form-data
// @Param listing_id path int true "商户ID"
// @Param file formData file true "来源文件"
// @Success 200 {object} dto.UploadSourceResponse
// @Router /api/listings/{listing_id}/ingest/uploads [post]
func (ctrl *IngestController) UploadSource(c *gin.Context) {
	listingID, ok := parseListingID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "缺少上传文件",
		})
		return
	}
	if fileHeader.Size > maxSourceUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "文件过大",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "读取文件失败: " + err.Error(),
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "读取文件失败: " + err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	key, err := ctrl.ingestService.UploadSource(ctx, listingID, fileHeader.Filename, data, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, service.ErrEmptyJobSource) {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "上传失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    dto.UploadSourceResponse{StoragePath: key},
	})
}

// GetJob 查询任务状态（客户端轮询端点）
// @Summary 查询抽取任务状态
// @Tags Ingest
// @Param listing_id path int true "商户ID"
// @Param job_id path int true "任务ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/listings/{listing_id}/ingest/jobs/{job_id} [get]
func (ctrl *IngestController) GetJob(c *gin.Context) {
	listingID, ok := parseListingID(c)
	if !ok {
		return
	}

	jobID, err := strconv.ParseInt(c.Param("job_id"), 10, 64)
	if err != nil || jobID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的任务ID",
		})
		return
	}

	ctx := c.Request.Context()
	job, err := ctrl.ingestService.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    404,
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询失败: " + err.Error(),
		})
		return
	}
	// 任务不跨商户可见
	if job.ListingID != listingID {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": "抽取任务不存在",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    job,
	})
}

// ==================== 提案 ====================

// GetLatestProposal 获取最近一条待审提案
// @Summary 商户某品类最近的待审提案，没有则 data 为空
// @Tags Proposal
// @Param listing_id path int true "商户ID"
// @Param kind query string true "品类"
// @Success 200 {object} map[string]interface{}
// @Router /api/listings/{listing_id}/proposals/latest [get]
func (ctrl *IngestController) GetLatestProposal(c *gin.Context) {
	listingID, ok := parseListingID(c)
	if !ok {
		return
	}

	kind, err := model.KindFromIngestAlias(c.Query("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	proposal, err := ctrl.proposalService.LoadLatest(ctx, listingID, kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    proposal,
	})
}

// GetProposal 获取提案详情
// @Summary 获取提案详情
// @Tags Proposal
// @Param listing_id path int true "商户ID"
// @Param proposal_id path int true "提案ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/listings/{listing_id}/proposals/{proposal_id} [get]
func (ctrl *IngestController) GetProposal(c *gin.Context) {
	listingID, ok := parseListingID(c)
	if !ok {
		return
	}

	proposalID, err := strconv.ParseInt(c.Param("proposal_id"), 10, 64)
	if err != nil || proposalID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的提案ID",
		})
		return
	}

	ctx := c.Request.Context()
	proposal, err := ctrl.proposalService.GetProposal(ctx, listingID, proposalID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
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

// ApplyProposal 应用提案
// @Summary 把提案候选条目写入目录（幂等）
// @Tags Proposal
// @Param listing_id path int true "商户ID"
// @Param proposal_id path int true "提案ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/listings/{listing_id}/proposals/{proposal_id}/apply [post]
func (ctrl *IngestController) ApplyProposal(c *gin.Context) {
	listingID, ok := parseListingID(c)
	if !ok {
		return
	}

	proposalID, err := strconv.ParseInt(c.Param("proposal_id"), 10, 64)
	if err != nil || proposalID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的提案ID",
		})
		return
	}

	ctx := c.Request.Context()
	result, err := ctrl.proposalService.Apply(ctx, listingID, proposalID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, service.ErrProposalNotFound), errors.Is(err, service.ErrProposalMismatch):
			status = http.StatusNotFound
		case errors.Is(err, service.ErrProposalRejected):
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{
			"code":    status,
			"message": err.Error(),
		})
		return
	}

	log.Printf("[Proposal] 提案 %d 已应用: 新增 %d 跳过 %d, 操作员 %s(%d), 请求 %s",
		proposalID, result.CreatedCount, result.SkippedCount,
		middleware.GetUsername(c), middleware.GetUserID(c), middleware.GetRequestID(c))

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    result,
	})
}

// RejectProposal 驳回提案
// @Summary 驳回提案（重复驳回为 no-op）
// @Tags Proposal
// @Param listing_id path int true "商户ID"
// @Param proposal_id path int true "提案ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/listings/{listing_id}/proposals/{proposal_id}/reject [post]
func (ctrl *IngestController) RejectProposal(c *gin.Context) {
	listingID, ok := parseListingID(c)
	if !ok {
		return
	}

	proposalID, err := strconv.ParseInt(c.Param("proposal_id"), 10, 64)
	if err != nil || proposalID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的提案ID",
		})
		return
	}

	ctx := c.Request.Context()
	if err := ctrl.proposalService.Reject(ctx, listingID, proposalID); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, service.ErrProposalNotFound), errors.Is(err, service.ErrProposalMismatch):
			status = http.StatusNotFound
		case errors.Is(err, service.ErrProposalApplied):
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{
			"code":    status,
			"message": err.Error(),
		})
		return
	}

	log.Printf("[Proposal] 提案 %d 已驳回, 操作员 %s(%d), 请求 %s",
		proposalID, middleware.GetUsername(c), middleware.GetUserID(c), middleware.GetRequestID(c))

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "驳回成功",
	})
}
