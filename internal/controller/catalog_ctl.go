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

// CatalogController 目录条目控制器
type CatalogController struct {
	catalogService *service.CatalogService
}

func NewCatalogController(catalogService *service.CatalogService) *CatalogController {
	return &CatalogController{catalogService: catalogService}
}

// parseScope 解析路径里的商户 ID 和品类（接受统一品类值和旧版别名）
func parseScope(c *gin.Context) (int64, model.OfferingKind, bool) {
	listingID, err := strconv.ParseInt(c.Param("listing_id"), 10, 64)
	if err != nil || listingID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的商户ID",
		})
		return 0, "", false
	}

	kind, err := model.KindFromIngestAlias(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return 0, "", false
	}
	return listingID, kind, true
}

// ==================== API 方法 ====================

// ListItems 获取条目列表
// @Summary 获取商户某品类的条目列表
// @Tags Catalog
// @Param listing_id path int true "商户ID"
// @Param kind path string true "品类"
// @Param grouped query bool false "按分组归拢"
// @Success 200 {object} map[string]interface{}
// @Router /api/listings/{listing_id}/catalog/{kind}/items [get]
func (ctrl *CatalogController) ListItems(c *gin.Context) {
	listingID, kind, ok := parseScope(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if c.Query("grouped") == "true" {
		groups, err := ctrl.catalogService.ListGrouped(ctx, listingID, kind)
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
			"data":    groups,
		})
		return
	}

	items, err := ctrl.catalogService.List(ctx, listingID, kind)
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
		"data":    items,
	})
}

// UpsertItem 创建或更新条目
// @Summary 创建或更新条目（id 为 0 表示创建）
// @Tags Catalog
// @Accept json
// @Param listing_id path int true "商户ID"
// @Param kind path string true "品类"
// @Param body body dto.UpsertItemRequest true "条目内容"
// @Success 200 {object} map[string]interface{}
// @Router /api/listings/{listing_id}/catalog/{kind}/items [post]
func (ctrl *CatalogController) UpsertItem(c *gin.Context) {
	listingID, kind, ok := parseScope(c)
	if !ok {
		return
	}

	var req dto.UpsertItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	input := service.UpsertItemInput{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Currency:    req.Currency,
		Category:    req.Category,
		Available:   req.Available,
		SortOrder:   req.SortOrder,
	}
	if req.Price != nil {
		price := decimal.NewFromFloat(*req.Price)
		input.Price = &price
	}

	ctx := c.Request.Context()
	item, err := ctrl.catalogService.Upsert(ctx, listingID, kind, input)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, service.ErrNameRequired):
			status = http.StatusBadRequest
		case errors.Is(err, service.ErrItemNotFound):
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"code":    status,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    item,
	})
}

// DeleteItem 删除条目
// @Summary 删除条目（物理删除）
// @Tags Catalog
// @Param listing_id path int true "商户ID"
// @Param kind path string true "品类"
// @Param item_id path int true "条目ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/listings/{listing_id}/catalog/{kind}/items/{item_id} [delete]
func (ctrl *CatalogController) DeleteItem(c *gin.Context) {
	listingID, kind, ok := parseScope(c)
	if !ok {
		return
	}

	itemID, err := strconv.ParseInt(c.Param("item_id"), 10, 64)
	if err != nil || itemID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的条目ID",
		})
		return
	}

	ctx := c.Request.Context()
	if err := ctrl.catalogService.Delete(ctx, listingID, kind, itemID); err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    404,
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "删除失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "删除成功",
	})
}

// QuickAdd 快捷文本建条目
// @Summary 从一段文本解析并批量创建条目
// @Tags Catalog
// @Accept json
// @Param listing_id path int true "商户ID"
// @Param kind path string true "品类"
// @Param body body dto.QuickAddRequest true "文本内容"
// @Success 200 {object} dto.QuickAddResponse
// @Router /api/listings/{listing_id}/catalog/{kind}/items/quick-add [post]
func (ctrl *CatalogController) QuickAdd(c *gin.Context) {
	listingID, kind, ok := parseScope(c)
	if !ok {
		return
	}

	var req dto.QuickAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	created, err := ctrl.catalogService.QuickAdd(ctx, listingID, kind, req.Text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "创建失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": dto.QuickAddResponse{
			CreatedCount: len(created),
			Items:        created,
		},
	})
}

// Reorder 条目重排
// @Summary 按给定顺序重写条目排序号
// @Tags Catalog
// @Accept json
// @Param listing_id path int true "商户ID"
// @Param kind path string true "品类"
// @Param body body dto.ReorderRequest true "条目ID顺序"
// @Success 200 {object} map[string]interface{}
// @Router /api/listings/{listing_id}/catalog/{kind}/items/reorder [post]
func (ctrl *CatalogController) Reorder(c *gin.Context) {
	listingID, kind, ok := parseScope(c)
	if !ok {
		return
	}

	var req dto.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	if err := ctrl.catalogService.Reorder(ctx, listingID, kind, req.ItemIDs); err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    404,
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "重排失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "重排成功",
	})
}
