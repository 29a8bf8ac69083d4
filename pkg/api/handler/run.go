package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/dag-engine/pkg/api/dto"
	"github.com/LENAX/dag-engine/pkg/core/engine"
	"github.com/LENAX/dag-engine/pkg/storage"
)

// RunHandler 运行历史API处理器
type RunHandler struct {
	engine *engine.Engine
}

// NewRunHandler 创建RunHandler
func NewRunHandler(eng *engine.Engine) *RunHandler {
	return &RunHandler{engine: eng}
}

// List 列出运行历史
// GET /api/v1/runs?dag=&limit=
func (h *RunHandler) List(c *gin.Context) {
	var query dto.RunQueryRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("查询参数错误: %v", err)))
		return
	}

	repo := h.engine.History()
	if repo == nil {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(503, "运行历史存储未配置"))
		return
	}

	runs, err := repo.ListRuns(c.Request.Context(), query.Dag, query.GetDefaultLimit())
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询运行历史失败: %v", err)))
		return
	}

	items := make([]dto.RunSummary, 0, len(runs))
	for _, r := range runs {
		items = append(items, toRunSummary(r))
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[dto.RunSummary]{
		Total: len(items),
		Items: items,
	}))
}

// Get 获取运行详情
// GET /api/v1/runs/:id
func (h *RunHandler) Get(c *gin.Context) {
	repo := h.engine.History()
	if repo == nil {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(503, "运行历史存储未配置"))
		return
	}

	id := c.Param("id")
	rec, err := repo.GetRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, fmt.Sprintf("运行记录 %s 不存在", id)))
			return
		}
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询运行记录失败: %v", err)))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(toRunResultFromRecord(rec)))
}
