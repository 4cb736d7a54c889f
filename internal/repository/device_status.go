package repository

import (
	"context"
	"time"

	"github.com/wfunc/thermal-printer/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceStatusRepository 设备状态仓储接口
type DeviceStatusRepository interface {
	BaseRepository
	Create(ctx context.Context, status *models.DeviceStatus) error
	Update(ctx context.Context, status *models.DeviceStatus) error
	UpdateStatus(ctx context.Context, deviceID string, status string, extra map[string]interface{}) error
	UpdatePaperOut(ctx context.Context, deviceID string, paperOut bool) error
	UpdatePing(ctx context.Context, deviceID string) error
	FindByID(ctx context.Context, id uint) (*models.DeviceStatus, error)
	FindByDeviceID(ctx context.Context, deviceID string) (*models.DeviceStatus, error)
	FindByStatus(ctx context.Context, status string) ([]*models.DeviceStatus, error)
	GetOfflineDevices(ctx context.Context, offlineThreshold time.Duration) ([]*models.DeviceStatus, error)
	RegisterDevice(ctx context.Context, device *models.DeviceStatus) error
}

// deviceStatusRepo 设备状态仓储实现
type deviceStatusRepo struct {
	*BaseRepo
}

// NewDeviceStatusRepository 创建设备状态仓储
func NewDeviceStatusRepository(db *gorm.DB) DeviceStatusRepository {
	return &deviceStatusRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 创建设备状态
func (r *deviceStatusRepo) Create(ctx context.Context, status *models.DeviceStatus) error {
	return r.db.WithContext(ctx).Create(status).Error
}

// Update 更新设备状态
func (r *deviceStatusRepo) Update(ctx context.Context, status *models.DeviceStatus) error {
	return r.db.WithContext(ctx).Save(status).Error
}

// UpdateStatus 更新设备状态
func (r *deviceStatusRepo) UpdateStatus(ctx context.Context, deviceID string, status string, extra map[string]interface{}) error {
	updates := map[string]interface{}{
		"status":       status,
		"last_seen_at": time.Now(),
	}

	if extra != nil {
		updates["extra"] = models.JSONMap(extra)
	}

	return r.db.WithContext(ctx).
		Model(&models.DeviceStatus{}).
		Where("device_id = ?", deviceID).
		Updates(updates).Error
}

// UpdatePaperOut 更新缺纸标志
func (r *deviceStatusRepo) UpdatePaperOut(ctx context.Context, deviceID string, paperOut bool) error {
	return r.db.WithContext(ctx).
		Model(&models.DeviceStatus{}).
		Where("device_id = ?", deviceID).
		Updates(map[string]interface{}{
			"paper_out":    paperOut,
			"last_seen_at": time.Now(),
		}).Error
}

// UpdatePing 更新心跳时间
func (r *deviceStatusRepo) UpdatePing(ctx context.Context, deviceID string) error {
	return r.db.WithContext(ctx).
		Model(&models.DeviceStatus{}).
		Where("device_id = ?", deviceID).
		Update("last_seen_at", time.Now()).Error
}

// FindByID 根据ID查找
func (r *deviceStatusRepo) FindByID(ctx context.Context, id uint) (*models.DeviceStatus, error) {
	var status models.DeviceStatus
	err := r.db.WithContext(ctx).First(&status, id).Error
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// FindByDeviceID 根据设备ID查找
func (r *deviceStatusRepo) FindByDeviceID(ctx context.Context, deviceID string) (*models.DeviceStatus, error) {
	var status models.DeviceStatus
	err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		First(&status).Error
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// FindByStatus 根据状态查找
func (r *deviceStatusRepo) FindByStatus(ctx context.Context, status string) ([]*models.DeviceStatus, error) {
	var statuses []*models.DeviceStatus
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("last_seen_at desc").
		Find(&statuses).Error
	return statuses, err
}

// GetOfflineDevices 获取离线设备
func (r *deviceStatusRepo) GetOfflineDevices(ctx context.Context, offlineThreshold time.Duration) ([]*models.DeviceStatus, error) {
	var devices []*models.DeviceStatus
	threshold := time.Now().Add(-offlineThreshold)

	err := r.db.WithContext(ctx).
		Where("status = ? OR last_seen_at < ?", "offline", threshold).
		Order("last_seen_at desc").
		Find(&devices).Error

	return devices, err
}

// RegisterDevice 注册设备
func (r *deviceStatusRepo) RegisterDevice(ctx context.Context, device *models.DeviceStatus) error {
	// 使用 ON CONFLICT 策略
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "device_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"device_name", "port", "baud", "firmware", "status",
				"last_seen_at",
			}),
		}).
		Create(device).Error
}

// WithTx 使用事务
func (r *deviceStatusRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &deviceStatusRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
