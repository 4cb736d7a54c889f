package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/thermal-printer/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为测试套件设置测试数据库
func SetupTestDB() *gorm.DB {
	// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.PrintLog{},
		&models.DeviceStatus{},
	)
	if err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	// 关闭数据库连接
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SeedTestData 创建测试数据
func SeedTestData(t *testing.T, db *gorm.DB) {
	// 创建测试打印日志
	logs := []models.PrintLog{
		{
			Kind:       models.PrintLogKindText,
			Direction:  models.PrintLogDirectionSend,
			Command:    "print",
			RawData:    "Hello\n",
			HexData:    "48656c6c6f0a",
			BytesCount: 6,
			RequestID:  "req-001",
			Duration:   12,
		},
		{
			Kind:       models.PrintLogKindStatus,
			Direction:  models.PrintLogDirectionReceive,
			Command:    "paper_status",
			HexData:    "00",
			BytesCount: 1,
			RequestID:  "req-002",
		},
	}
	err := db.Create(&logs).Error
	require.NoError(t, err)

	// 创建测试设备状态
	devices := []models.DeviceStatus{
		{
			DeviceID:   "printer_001",
			DeviceName: "前台小票打印机",
			Port:       "/dev/ttyS0",
			Baud:       9600,
			Firmware:   268,
			Status:     "online",
			LastSeenAt: time.Now(),
		},
		{
			DeviceID:   "printer_002",
			DeviceName: "后厨打印机",
			Port:       "/dev/ttyUSB0",
			Baud:       19200,
			Firmware:   264,
			Status:     "offline",
			LastSeenAt: time.Now().Add(-10 * time.Minute),
		},
	}
	err = db.Create(&devices).Error
	require.NoError(t, err)
}

// AssertDeviceStatus 验证设备状态
func AssertDeviceStatus(t *testing.T, expected, actual *models.DeviceStatus) {
	assert.Equal(t, expected.DeviceID, actual.DeviceID)
	assert.Equal(t, expected.DeviceName, actual.DeviceName)
	assert.Equal(t, expected.Port, actual.Port)
	assert.Equal(t, expected.Status, actual.Status)
}

// CreateTestDeviceStatus 创建测试设备状态
func CreateTestDeviceStatus(deviceID, deviceName, port, status string) *models.DeviceStatus {
	return &models.DeviceStatus{
		DeviceID:   deviceID,
		DeviceName: deviceName,
		Port:       port,
		Baud:       9600,
		Firmware:   268,
		Status:     status,
		LastSeenAt: time.Now(),
	}
}

// CreateTestPrintLog 创建测试打印日志
func CreateTestPrintLog(kind models.PrintLogKind, direction models.PrintLogDirection, requestID string) *models.PrintLog {
	return &models.PrintLog{
		Kind:       kind,
		Direction:  direction,
		Command:    string(kind),
		HexData:    "1b40",
		BytesCount: 2,
		RequestID:  requestID,
	}
}
