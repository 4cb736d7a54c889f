package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wfunc/thermal-printer/internal/printer"
	"github.com/wfunc/thermal-printer/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	printerHandler *PrinterHandler
	logAPI         *PrintLogAPI
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(db *gorm.DB, p *printer.Printer, deviceID string, log *zap.Logger) *Router {
	// 创建Gin引擎
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())

	var logRepo *repository.PrintLogRepository
	var deviceRepo repository.DeviceStatusRepository
	if db != nil {
		logRepo = repository.NewPrintLogRepository(db)
		deviceRepo = repository.NewDeviceStatusRepository(db)
	}

	router := &Router{
		engine:         engine,
		db:             db,
		printerHandler: NewPrinterHandler(p, logRepo, deviceRepo, deviceID, log),
		log:            log,
	}
	if logRepo != nil {
		router.logAPI = NewPrintLogAPI(logRepo)
	}

	// 设置路由
	router.setupRoutes()

	return router
}

// requestIDMiddleware 为每个请求生成请求ID，响应头带回
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		r.printerHandler.RegisterRoutes(v1)
		if r.logAPI != nil {
			r.logAPI.RegisterRoutes(v1)
		}
	}

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	if r.db != nil {
		// 检查数据库连接
		sqlDB, err := r.db.DB()
		if err != nil {
			c.JSON(500, gin.H{
				"status":  "unhealthy",
				"message": "数据库连接失败",
			})
			return
		}

		if err := sqlDB.Ping(); err != nil {
			c.JSON(500, gin.H{
				"status":  "unhealthy",
				"message": "数据库ping失败",
			})
			return
		}
	}

	c.JSON(200, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("Starting API server", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
