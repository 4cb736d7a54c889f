package models

import "time"

// 设备状态取值
const (
	DeviceStatusOnline   = "online"
	DeviceStatusOffline  = "offline"
	DeviceStatusError    = "error"
	DeviceStatusSleeping = "sleeping"
)

// DeviceStatus 打印机设备状态表
type DeviceStatus struct {
	BaseModel
	DeviceID   string    `gorm:"uniqueIndex;size:100;not null" json:"device_id"`
	DeviceName string    `gorm:"size:100" json:"device_name"`
	Port       string    `gorm:"size:100" json:"port"`                    // 串口设备路径
	Baud       int       `gorm:"default:9600" json:"baud"`                // 波特率
	Firmware   int       `gorm:"default:268" json:"firmware"`             // 固件版本
	Status     string    `gorm:"size:20;default:'offline'" json:"status"` // online, offline, error, sleeping
	PaperOut   bool      `gorm:"default:false" json:"paper_out"`          // 缺纸标志
	LastSeenAt time.Time `json:"last_seen_at"`
	Extra      JSONMap   `gorm:"type:json" json:"extra"`
}

// TableName 指定表名
func (DeviceStatus) TableName() string {
	return "device_statuses"
}
