package repository

import (
	"fmt"
	"time"

	"github.com/wfunc/thermal-printer/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PrintLogRepository 打印日志仓库
type PrintLogRepository struct {
	db *gorm.DB
}

// NewPrintLogRepository 创建打印日志仓库
func NewPrintLogRepository(db *gorm.DB) *PrintLogRepository {
	return &PrintLogRepository{
		db: db,
	}
}

// Create 创建日志记录
func (r *PrintLogRepository) Create(log *models.PrintLog) error {
	return r.db.Create(log).Error
}

// CreateBatch 批量创建日志记录
func (r *PrintLogRepository) CreateBatch(logs []*models.PrintLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.CreateInBatches(logs, 100).Error
}

// GetByID 根据ID获取日志
func (r *PrintLogRepository) GetByID(id uint) (*models.PrintLog, error) {
	var log models.PrintLog
	err := r.db.First(&log, id).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// GetByRequestID 根据请求ID获取日志（包括请求和响应）
func (r *PrintLogRepository) GetByRequestID(requestID string) ([]*models.PrintLog, error) {
	var logs []*models.PrintLog
	err := r.db.Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

// buildQuery 构建查询条件
func (r *PrintLogRepository) buildQuery(query *models.PrintLogQuery) *gorm.DB {
	db := r.db.Model(&models.PrintLog{})

	if query.Kind != "" {
		db = db.Where("kind = ?", query.Kind)
	}
	if query.Direction != "" {
		db = db.Where("direction = ?", query.Direction)
	}
	if query.Command != "" {
		db = db.Where("command LIKE ?", "%"+query.Command+"%")
	}
	if query.RequestID != "" {
		db = db.Where("request_id = ?", query.RequestID)
	}
	if query.StartTime != nil {
		db = db.Where("created_at >= ?", *query.StartTime)
	}
	if query.EndTime != nil {
		db = db.Where("created_at <= ?", *query.EndTime)
	}
	if query.HasError != nil && *query.HasError {
		db = db.Where("error_msg IS NOT NULL AND error_msg != ''")
	}
	return db
}

// orderClause 排序子句，默认按创建时间倒序
func orderClause(query *models.PrintLogQuery) string {
	if query.OrderBy == "" {
		return "created_at DESC"
	}
	return query.OrderBy
}

// Query 查询日志
func (r *PrintLogRepository) Query(query *models.PrintLogQuery) ([]*models.PrintLog, int64, error) {
	db := r.buildQuery(query)

	// 获取总数
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = db.Order(orderClause(query))

	// 分页
	if query.Limit > 0 {
		db = db.Limit(query.Limit)
	}
	if query.Offset > 0 {
		db = db.Offset(query.Offset)
	}

	// 查询数据
	var logs []*models.PrintLog
	if err := db.Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

// QueryPage 按页查询日志，总数回填到分页参数
func (r *PrintLogRepository) QueryPage(query *models.PrintLogQuery, pg *Pagination) ([]*models.PrintLog, error) {
	db := r.buildQuery(query)

	if err := db.Count(&pg.Total).Error; err != nil {
		return nil, err
	}

	var logs []*models.PrintLog
	err := db.Order(orderClause(query)).Scopes(Paginate(pg)).Find(&logs).Error
	return logs, err
}

// GetStats 获取统计信息
func (r *PrintLogRepository) GetStats(startTime, endTime *time.Time) (*models.PrintLogStats, error) {
	stats := &models.PrintLogStats{}
	db := r.db.Model(&models.PrintLog{})

	// 时间范围过滤
	if startTime != nil {
		db = db.Where("created_at >= ?", *startTime)
	}
	if endTime != nil {
		db = db.Where("created_at <= ?", *endTime)
	}

	// 总数统计
	if err := db.Count(&stats.TotalCount).Error; err != nil {
		return nil, err
	}

	// 发送/接收统计
	if err := r.db.Model(&models.PrintLog{}).
		Where("direction = ?", models.PrintLogDirectionSend).
		Count(&stats.TotalSend).Error; err != nil {
		return nil, err
	}
	stats.TotalReceive = stats.TotalCount - stats.TotalSend

	// 错误统计
	if err := r.db.Model(&models.PrintLog{}).
		Where("error_msg IS NOT NULL AND error_msg != ''").
		Count(&stats.TotalErrors).Error; err != nil {
		return nil, err
	}

	// 字节量统计
	type ByteStats struct {
		TotalBytes int64
	}
	var byteStats ByteStats
	if err := r.db.Model(&models.PrintLog{}).
		Select("SUM(bytes_count) as total_bytes").
		Where("bytes_count > 0").
		Scan(&byteStats).Error; err != nil {
		return nil, err
	}
	stats.TotalBytes = byteStats.TotalBytes

	// 性能统计
	type DurationStats struct {
		AvgDuration float64
		MaxDuration int64
		MinDuration int64
	}
	var durationStats DurationStats
	if err := r.db.Model(&models.PrintLog{}).
		Select("AVG(duration) as avg_duration, MAX(duration) as max_duration, MIN(duration) as min_duration").
		Where("duration > 0").
		Scan(&durationStats).Error; err != nil {
		return nil, err
	}
	stats.AvgDuration = durationStats.AvgDuration
	stats.MaxDuration = durationStats.MaxDuration
	stats.MinDuration = durationStats.MinDuration

	return stats, nil
}

// GetLatest 获取最新的日志记录
func (r *PrintLogRepository) GetLatest(limit int, kind models.PrintLogKind) ([]*models.PrintLog, error) {
	var logs []*models.PrintLog
	db := r.db.Order("created_at DESC").Limit(limit)
	if kind != "" {
		db = db.Where("kind = ?", kind)
	}
	err := db.Find(&logs).Error
	return logs, err
}

// DeleteOldLogs 删除旧日志
func (r *PrintLogRepository) DeleteOldLogs(beforeTime time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", beforeTime).Delete(&models.PrintLog{})
	return result.RowsAffected, result.Error
}

// CleanupLogs 清理日志（保留最近N天的数据）
func (r *PrintLogRepository) CleanupLogs(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be greater than 0")
	}
	beforeTime := time.Now().AddDate(0, 0, -retentionDays)
	return r.DeleteOldLogs(beforeTime)
}

// GetErrorLogs 获取错误日志
func (r *PrintLogRepository) GetErrorLogs(limit int) ([]*models.PrintLog, error) {
	var logs []*models.PrintLog
	err := r.db.Where("error_msg IS NOT NULL AND error_msg != ''").
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// UpdateLogDuration 更新日志的处理时长
func (r *PrintLogRepository) UpdateLogDuration(requestID string, duration int64) error {
	return r.db.Model(&models.PrintLog{}).
		Where("request_id = ? AND direction = ?", requestID, models.PrintLogDirectionReceive).
		Update("duration", duration).Error
}

// BulkInsertWithConflict 批量插入（忽略冲突）
func (r *PrintLogRepository) BulkInsertWithConflict(logs []*models.PrintLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		DoNothing: true,
	}).CreateInBatches(logs, 100).Error
}
