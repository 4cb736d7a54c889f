package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/thermal-printer/internal/models"
	"github.com/wfunc/thermal-printer/internal/repository"
)

// PrintLogAPI 通信日志API
type PrintLogAPI struct {
	repo *repository.PrintLogRepository
}

// NewPrintLogAPI 创建通信日志API
func NewPrintLogAPI(repo *repository.PrintLogRepository) *PrintLogAPI {
	return &PrintLogAPI{
		repo: repo,
	}
}

// RegisterRoutes 注册路由
func (api *PrintLogAPI) RegisterRoutes(router *gin.RouterGroup) {
	logs := router.Group("/logs")
	{
		logs.GET("", api.QueryLogs)            // 查询日志列表
		logs.GET("/latest", api.GetLatestLogs) // 获取最新日志
		logs.GET("/stats", api.GetStats)       // 获取统计信息
		logs.GET("/errors", api.GetErrorLogs)  // 获取错误日志
		logs.POST("/cleanup", api.CleanupLogs) // 清理旧日志
		logs.GET("/export", api.ExportLogs)    // 导出日志
	}
}

// parseLogQuery 解析查询参数
func parseLogQuery(c *gin.Context) *models.PrintLogQuery {
	query := &models.PrintLogQuery{}

	if kind := c.Query("kind"); kind != "" {
		query.Kind = models.PrintLogKind(kind)
	}
	if direction := c.Query("direction"); direction != "" {
		query.Direction = models.PrintLogDirection(direction)
	}
	query.Command = c.Query("command")
	query.RequestID = c.Query("request_id")

	// 时间范围
	if startTime := c.Query("start_time"); startTime != "" {
		if t, err := time.Parse(time.RFC3339, startTime); err == nil {
			query.StartTime = &t
		}
	}
	if endTime := c.Query("end_time"); endTime != "" {
		if t, err := time.Parse(time.RFC3339, endTime); err == nil {
			query.EndTime = &t
		}
	}

	// 是否有错误
	if hasError := c.Query("has_error"); hasError == "true" {
		b := true
		query.HasError = &b
	}

	// 分页参数
	query.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	query.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	query.OrderBy = c.DefaultQuery("order_by", "created_at DESC")

	return query
}

// QueryLogs 查询日志列表
// 带 page 参数时按页查询，否则按 limit/offset
func (api *PrintLogAPI) QueryLogs(c *gin.Context) {
	query := parseLogQuery(c)

	if pageStr := c.Query("page"); pageStr != "" {
		page, _ := strconv.Atoi(pageStr)
		pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
		pg := repository.NewPagination(page, pageSize)

		logs, err := api.repo.QueryPage(query, pg)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "查询失败",
				"message": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data":      logs,
			"total":     pg.Total,
			"page":      pg.Page,
			"page_size": pg.PageSize,
		})
		return
	}

	logs, total, err := api.repo.Query(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "查询失败",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   logs,
		"total":  total,
		"limit":  query.Limit,
		"offset": query.Offset,
	})
}

// GetLatestLogs 获取最新日志
func (api *PrintLogAPI) GetLatestLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	kind := models.PrintLogKind(c.Query("kind"))

	logs, err := api.repo.GetLatest(limit, kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "获取失败",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  logs,
		"count": len(logs),
	})
}

// GetStats 获取统计信息
func (api *PrintLogAPI) GetStats(c *gin.Context) {
	var startTime, endTime *time.Time

	// 解析时间范围
	if start := c.Query("start_time"); start != "" {
		if t, err := time.Parse(time.RFC3339, start); err == nil {
			startTime = &t
		}
	}
	if end := c.Query("end_time"); end != "" {
		if t, err := time.Parse(time.RFC3339, end); err == nil {
			endTime = &t
		}
	}

	stats, err := api.repo.GetStats(startTime, endTime)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "获取统计失败",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetErrorLogs 获取错误日志
func (api *PrintLogAPI) GetErrorLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := api.repo.GetErrorLogs(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "获取错误日志失败",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  logs,
		"count": len(logs),
	})
}

// CleanupLogs 清理旧日志
func (api *PrintLogAPI) CleanupLogs(c *gin.Context) {
	// 获取保留天数
	retentionDays, _ := strconv.Atoi(c.DefaultPostForm("retention_days", "30"))
	if retentionDays < 1 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "保留天数必须大于0",
		})
		return
	}

	count, err := api.repo.CleanupLogs(retentionDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "清理失败",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "清理成功",
		"deleted":        count,
		"retention_days": retentionDays,
	})
}

// ExportLogs 导出日志
func (api *PrintLogAPI) ExportLogs(c *gin.Context) {
	query := parseLogQuery(c)
	if query.Limit <= 0 || query.Limit > 10000 {
		query.Limit = 1000
	}

	logs, _, err := api.repo.Query(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "导出失败",
			"message": err.Error(),
		})
		return
	}

	data, err := json.MarshalIndent(logs, "", "  ")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "导出失败",
			"message": err.Error(),
		})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=print_logs_export.json")
	c.Data(http.StatusOK, "application/json", data)
}
