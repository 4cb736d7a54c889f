package api

import (
	"encoding/hex"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/thermal-printer/internal/errors"
	"github.com/wfunc/thermal-printer/internal/models"
	"github.com/wfunc/thermal-printer/internal/printer"
	"github.com/wfunc/thermal-printer/internal/repository"
	"go.uber.org/zap"
)

// PrinterHandler 打印机操作API
// 驱动本身非并发安全，所有操作经过同一把互斥锁串行化
type PrinterHandler struct {
	printer    *printer.Printer
	logRepo    *repository.PrintLogRepository
	deviceRepo repository.DeviceStatusRepository
	deviceID   string
	mu         sync.Mutex
	log        *zap.Logger
}

// NewPrinterHandler 创建打印机API处理器
func NewPrinterHandler(p *printer.Printer, logRepo *repository.PrintLogRepository,
	deviceRepo repository.DeviceStatusRepository, deviceID string, log *zap.Logger) *PrinterHandler {
	return &PrinterHandler{
		printer:    p,
		logRepo:    logRepo,
		deviceRepo: deviceRepo,
		deviceID:   deviceID,
		log:        log,
	}
}

// RegisterRoutes 注册路由
func (h *PrinterHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/print", h.PrintText)
	router.POST("/feed", h.Feed)
	router.POST("/barcode", h.PrintBarcode)
	router.POST("/bitmap", h.PrintBitmap)
	router.POST("/test", h.TestPage)
	router.GET("/status", h.GetStatus)
	router.GET("/paper", h.CheckPaper)
}

// PrintRequest 文本打印请求
type PrintRequest struct {
	Text string `json:"text" binding:"required"`
	Feed int    `json:"feed"` // 打印后走纸行数
}

// FeedRequest 走纸请求
type FeedRequest struct {
	Lines int `json:"lines" binding:"required,min=1,max=255"`
}

// BarcodeRequest 条码打印请求
type BarcodeRequest struct {
	Type string `json:"type" binding:"required"`
	Data string `json:"data" binding:"required"`
}

// 条码类型名到命令编号的映射
var barcodeTypes = map[string]printer.BarcodeType{
	"upc_a":   printer.BarcodeUPCA,
	"upc_e":   printer.BarcodeUPCE,
	"ean13":   printer.BarcodeEAN13,
	"ean8":    printer.BarcodeEAN8,
	"code39":  printer.BarcodeCode39,
	"itf":     printer.BarcodeITF,
	"codabar": printer.BarcodeCodabar,
	"code93":  printer.BarcodeCode93,
	"code128": printer.BarcodeCode128,
}

// PrintText 打印文本
func (h *PrinterHandler) PrintText(c *gin.Context) {
	var req PrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}

	h.mu.Lock()
	start := time.Now()
	err := h.printer.Print(req.Text)
	if err == nil && req.Feed > 0 {
		if req.Feed > 255 {
			req.Feed = 255
		}
		err = h.printer.Feed(byte(req.Feed))
	}
	duration := time.Since(start)
	h.mu.Unlock()

	h.recordLog(c, models.PrintLogKindText, "print", []byte(req.Text), duration, err)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"bytes":      len(req.Text),
		"request_id": requestID(c),
	})
}

// Feed 走纸
func (h *PrinterHandler) Feed(c *gin.Context) {
	var req FeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}

	h.mu.Lock()
	start := time.Now()
	err := h.printer.Feed(byte(req.Lines))
	duration := time.Since(start)
	h.mu.Unlock()

	h.recordLog(c, models.PrintLogKindFeed, "feed", []byte{byte(req.Lines)}, duration, err)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"lines":      req.Lines,
		"request_id": requestID(c),
	})
}

// PrintBarcode 打印条码
func (h *PrinterHandler) PrintBarcode(c *gin.Context) {
	var req BarcodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}

	barType, ok := barcodeTypes[req.Type]
	if !ok {
		respondError(c, errors.Newf(errors.ErrInvalidParam, "unknown barcode type: %s", req.Type))
		return
	}

	h.mu.Lock()
	start := time.Now()
	err := h.printer.PrintBarcode(req.Data, barType)
	duration := time.Since(start)
	h.mu.Unlock()

	h.recordLog(c, models.PrintLogKindBarcode, "print_barcode", []byte(req.Data), duration, err)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"type":       req.Type,
		"request_id": requestID(c),
	})
}

// PrintBitmap 打印位图
// 请求体为二进制位图数据。带 width/height 查询参数时请求体为纯点阵，
// 否则请求体以小端 16 位宽高开头
func (h *PrinterHandler) PrintBitmap(c *gin.Context) {
	width, _ := strconv.Atoi(c.Query("width"))
	height, _ := strconv.Atoi(c.Query("height"))

	h.mu.Lock()
	start := time.Now()
	var err error
	if width > 0 && height > 0 {
		err = h.printer.PrintBitmapFromReader(width, height, c.Request.Body)
	} else {
		err = h.printer.PrintBitmapStream(c.Request.Body)
	}
	duration := time.Since(start)
	h.mu.Unlock()

	h.recordLog(c, models.PrintLogKindBitmap, "print_bitmap", nil, duration, err)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"request_id": requestID(c),
	})
}

// TestPage 打印自检页
func (h *PrinterHandler) TestPage(c *gin.Context) {
	h.mu.Lock()
	start := time.Now()
	err := h.printer.TestPage()
	duration := time.Since(start)
	h.mu.Unlock()

	h.recordLog(c, models.PrintLogKindControl, "test_page", nil, duration, err)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"request_id": requestID(c),
	})
}

// GetStatus 查询打印机状态页
func (h *PrinterHandler) GetStatus(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "4"))
	if err != nil || page < 1 || page > 4 {
		respondError(c, errors.New(errors.ErrInvalidParam, "page must be 1-4"))
		return
	}

	h.mu.Lock()
	start := time.Now()
	status, err := h.printer.GetStatus(printer.StatusPage(page))
	duration := time.Since(start)
	h.mu.Unlock()

	log := h.buildLog(c, models.PrintLogKindStatus, "get_status", nil, duration, err)
	log.Direction = models.PrintLogDirectionReceive
	log.StatusByte = &status
	h.saveLog(log)

	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"page":       page,
		"status":     status,
		"available":  status != printer.StatusUnavailable,
		"request_id": requestID(c),
	})
}

// CheckPaper 查询纸卷传感器
func (h *PrinterHandler) CheckPaper(c *gin.Context) {
	h.mu.Lock()
	start := time.Now()
	hasPaper, err := h.printer.HasPaper()
	duration := time.Since(start)
	h.mu.Unlock()

	log := h.buildLog(c, models.PrintLogKindStatus, "check_paper", nil, duration, err)
	log.Direction = models.PrintLogDirectionReceive
	h.saveLog(log)

	if err != nil {
		respondError(c, err)
		return
	}

	if h.deviceRepo != nil {
		if dbErr := h.deviceRepo.UpdatePaperOut(c.Request.Context(), h.deviceID, !hasPaper); dbErr != nil {
			h.log.Warn("failed to persist paper state", zap.Error(dbErr))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"has_paper":  hasPaper,
		"request_id": requestID(c),
	})
}

// recordLog 记录一条发送方向的通信日志
func (h *PrinterHandler) recordLog(c *gin.Context, kind models.PrintLogKind, command string,
	data []byte, duration time.Duration, err error) {
	h.saveLog(h.buildLog(c, kind, command, data, duration, err))
}

func (h *PrinterHandler) buildLog(c *gin.Context, kind models.PrintLogKind, command string,
	data []byte, duration time.Duration, err error) *models.PrintLog {
	log := &models.PrintLog{
		Kind:       kind,
		Direction:  models.PrintLogDirectionSend,
		Command:    command,
		BytesCount: len(data),
		RequestID:  requestID(c),
		Duration:   duration.Milliseconds(),
	}
	if len(data) > 0 {
		log.RawData = string(data)
		log.HexData = hex.EncodeToString(data)
	}
	if err != nil {
		log.ErrorMsg = err.Error()
	}
	return log
}

func (h *PrinterHandler) saveLog(log *models.PrintLog) {
	if h.logRepo == nil {
		return
	}
	if err := h.logRepo.Create(log); err != nil {
		h.log.Warn("failed to persist print log", zap.Error(err))
	}
}

// requestID 取出中间件注入的请求ID
func requestID(c *gin.Context) string {
	if id, ok := c.Get("request_id"); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// respondError 统一错误响应
func respondError(c *gin.Context, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrUnknown)
	}
	c.JSON(appErr.HTTPStatus(), errors.NewErrorResponse(appErr, requestID(c)))
}
