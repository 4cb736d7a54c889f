package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceStatusRepository_Create(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewDeviceStatusRepository(db)
	ctx := context.Background()

	// 创建设备状态
	device := CreateTestDeviceStatus("printer_003", "测试打印机3", "/dev/ttyS1", "online")
	err := repo.Create(ctx, device)
	require.NoError(t, err)
	assert.NotZero(t, device.ID)

	// 验证设备已创建
	found, err := repo.FindByDeviceID(ctx, device.DeviceID)
	require.NoError(t, err)
	AssertDeviceStatus(t, device, found)
}

func TestDeviceStatusRepository_Update(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewDeviceStatusRepository(db)
	ctx := context.Background()

	// 创建设备
	device := CreateTestDeviceStatus("printer_update", "更新测试打印机", "/dev/ttyS1", "online")
	err := repo.Create(ctx, device)
	require.NoError(t, err)

	// 更新设备
	device.Status = "sleeping"
	device.Baud = 19200
	err = repo.Update(ctx, device)
	require.NoError(t, err)

	// 验证更新
	found, err := repo.FindByID(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, "sleeping", found.Status)
	assert.Equal(t, 19200, found.Baud)
}

func TestDeviceStatusRepository_UpdateStatus(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewDeviceStatusRepository(db)
	ctx := context.Background()

	// 创建设备
	device := CreateTestDeviceStatus("printer_status", "状态测试打印机", "/dev/ttyS1", "online")
	err := repo.Create(ctx, device)
	require.NoError(t, err)

	// 更新状态和额外信息
	extra := map[string]interface{}{
		"error_code": "E001",
		"message":    "串口写入失败",
	}
	err = repo.UpdateStatus(ctx, device.DeviceID, "error", extra)
	require.NoError(t, err)

	// 验证更新
	found, err := repo.FindByDeviceID(ctx, device.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, "error", found.Status)
}

func TestDeviceStatusRepository_UpdatePaperOut(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewDeviceStatusRepository(db)
	ctx := context.Background()

	// 创建设备
	device := CreateTestDeviceStatus("printer_paper", "缺纸测试打印机", "/dev/ttyS1", "online")
	err := repo.Create(ctx, device)
	require.NoError(t, err)
	assert.False(t, device.PaperOut)

	// 标记缺纸
	err = repo.UpdatePaperOut(ctx, device.DeviceID, true)
	require.NoError(t, err)

	found, err := repo.FindByDeviceID(ctx, device.DeviceID)
	require.NoError(t, err)
	assert.True(t, found.PaperOut)

	// 换纸后恢复
	err = repo.UpdatePaperOut(ctx, device.DeviceID, false)
	require.NoError(t, err)

	found, err = repo.FindByDeviceID(ctx, device.DeviceID)
	require.NoError(t, err)
	assert.False(t, found.PaperOut)
}

func TestDeviceStatusRepository_UpdatePing(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewDeviceStatusRepository(db)
	ctx := context.Background()

	// 创建设备
	device := CreateTestDeviceStatus("printer_ping", "心跳测试打印机", "/dev/ttyS1", "online")
	oldSeenTime := time.Now().Add(-1 * time.Hour)
	device.LastSeenAt = oldSeenTime
	err := repo.Create(ctx, device)
	require.NoError(t, err)

	// 更新心跳
	err = repo.UpdatePing(ctx, device.DeviceID)
	require.NoError(t, err)

	// 验证心跳时间已更新
	found, err := repo.FindByDeviceID(ctx, device.DeviceID)
	require.NoError(t, err)
	assert.True(t, found.LastSeenAt.After(oldSeenTime))
}

func TestDeviceStatusRepository_FindByStatus(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	SeedTestData(t, db)
	repo := NewDeviceStatusRepository(db)
	ctx := context.Background()

	online, err := repo.FindByStatus(ctx, "online")
	require.NoError(t, err)
	assert.Len(t, online, 1)
	assert.Equal(t, "printer_001", online[0].DeviceID)

	offline, err := repo.FindByStatus(ctx, "offline")
	require.NoError(t, err)
	assert.Len(t, offline, 1)
}

func TestDeviceStatusRepository_GetOfflineDevices(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	SeedTestData(t, db)
	repo := NewDeviceStatusRepository(db)
	ctx := context.Background()

	// printer_002 状态为 offline 且心跳超过阈值
	devices, err := repo.GetOfflineDevices(ctx, 5*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, devices)
	assert.Equal(t, "printer_002", devices[0].DeviceID)
}

func TestDeviceStatusRepository_RegisterDevice(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewDeviceStatusRepository(db)
	ctx := context.Background()

	// 首次注册
	device := CreateTestDeviceStatus("printer_reg", "注册测试打印机", "/dev/ttyS1", "online")
	err := repo.RegisterDevice(ctx, device)
	require.NoError(t, err)

	// 重复注册同一设备ID，应更新而非报错
	again := CreateTestDeviceStatus("printer_reg", "注册测试打印机v2", "/dev/ttyUSB0", "online")
	err = repo.RegisterDevice(ctx, again)
	require.NoError(t, err)

	found, err := repo.FindByDeviceID(ctx, "printer_reg")
	require.NoError(t, err)
	assert.Equal(t, "注册测试打印机v2", found.DeviceName)
	assert.Equal(t, "/dev/ttyUSB0", found.Port)
}
