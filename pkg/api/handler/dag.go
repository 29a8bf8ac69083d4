package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/dag-engine/pkg/api/dto"
	"github.com/LENAX/dag-engine/pkg/core/dag"
	"github.com/LENAX/dag-engine/pkg/core/engine"
	"github.com/LENAX/dag-engine/pkg/core/task"
)

// DagHandler DAG API处理器
type DagHandler struct {
	engine *engine.Engine
	cron   *engine.CronScheduler // 可为nil
}

// NewDagHandler 创建DagHandler
func NewDagHandler(eng *engine.Engine, cron *engine.CronScheduler) *DagHandler {
	return &DagHandler{engine: eng, cron: cron}
}

func (h *DagHandler) cronExprs() map[string]string {
	exprs := make(map[string]string)
	if h.cron == nil {
		return exprs
	}
	for _, e := range h.cron.Entries() {
		exprs[e.DagName] = e.CronExpr
	}
	return exprs
}

// List 列出所有已注册的DAG
// GET /api/v1/dags
func (h *DagHandler) List(c *gin.Context) {
	exprs := h.cronExprs()
	names := h.engine.DagNames()
	items := make([]dto.DagSummary, 0, len(names))
	for _, name := range names {
		d, ok := h.engine.Dag(name)
		if !ok {
			continue
		}
		items = append(items, dto.DagSummary{Name: name, TaskCount: d.Len(), CronExpr: exprs[name]})
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[dto.DagSummary]{
		Total: len(items),
		Items: items,
	}))
}

// Get 获取DAG详情
// GET /api/v1/dags/:name
func (h *DagHandler) Get(c *gin.Context) {
	name := c.Param("name")
	d, ok := h.engine.Dag(name)
	if !ok {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, fmt.Sprintf("DAG %s 不存在", name)))
		return
	}

	detail := dto.DagDetail{
		DagSummary: dto.DagSummary{Name: name, TaskCount: d.Len(), CronExpr: h.cronExprs()[name]},
		Tasks:      make([]dto.TaskSummary, 0, d.Len()),
	}
	for _, id := range d.IDs() {
		t, _ := d.Task(id)
		deps, _ := d.DependenciesOf(id)
		dependents, _ := d.DependentsOf(id)
		detail.Tasks = append(detail.Tasks, dto.TaskSummary{
			ID:           uint64(id),
			Name:         task.NameOf(t),
			Dependencies: toUint64s(deps),
			Dependents:   toUint64s(dependents),
		})
	}
	if order, err := d.TopologicalOrder(); err == nil {
		for _, level := range order.Levels {
			detail.Levels = append(detail.Levels, toUint64s(level))
		}
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(detail))
}

// Run 同步执行DAG并返回结果
// POST /api/v1/dags/:name/run
func (h *DagHandler) Run(c *gin.Context) {
	name := c.Param("name")
	result, err := h.engine.RunDag(c.Request.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrDagNotFound):
			c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, err.Error()))
		case dag.IsDagError(err):
			c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponse(422, err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("执行失败: %v", err)))
		}
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(toRunResult(result)))
}

// Last 获取最近一次运行结果
// GET /api/v1/dags/:name/last
func (h *DagHandler) Last(c *gin.Context) {
	name := c.Param("name")
	if _, ok := h.engine.Dag(name); !ok {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, fmt.Sprintf("DAG %s 不存在", name)))
		return
	}
	result, ok := h.engine.LastResult(name)
	if !ok {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, fmt.Sprintf("DAG %s 暂无运行结果", name)))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(toRunResult(result)))
}
