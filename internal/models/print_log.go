package models

import (
	"time"

	"gorm.io/gorm"
)

// PrintLogKind 打印日志类型
type PrintLogKind string

const (
	PrintLogKindText    PrintLogKind = "text"    // 文本打印
	PrintLogKindFeed    PrintLogKind = "feed"    // 走纸
	PrintLogKindBarcode PrintLogKind = "barcode" // 条形码
	PrintLogKindBitmap  PrintLogKind = "bitmap"  // 位图
	PrintLogKindStatus  PrintLogKind = "status"  // 状态查询
	PrintLogKindControl PrintLogKind = "control" // 控制命令（初始化、休眠、唤醒等）
)

// PrintLogDirection 数据方向
type PrintLogDirection string

const (
	PrintLogDirectionSend    PrintLogDirection = "SEND"
	PrintLogDirectionReceive PrintLogDirection = "RECEIVE"
)

// PrintLog 打印机通信日志
type PrintLog struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `gorm:"index;not null" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// 基础信息
	Kind      PrintLogKind      `gorm:"type:varchar(20);index;not null" json:"kind"`      // 命令类型
	Direction PrintLogDirection `gorm:"type:varchar(10);index;not null" json:"direction"` // 方向 (SEND/RECEIVE)

	// 命令相关
	Command string `gorm:"type:varchar(255);index" json:"command,omitempty"` // 命令名称 (如 "print", "set_barcode_height")

	// 数据内容
	RawData    string `gorm:"type:text" json:"raw_data,omitempty"` // 原始数据 (ASCII)
	HexData    string `gorm:"type:text" json:"hex_data,omitempty"` // 十六进制数据
	BytesCount int    `gorm:"default:0" json:"bytes_count"`        // 字节数

	// 响应相关
	StatusByte *int   `gorm:"index" json:"status_byte,omitempty"`   // 状态字节（DLE EOT 响应）
	ErrorMsg   string `gorm:"type:text" json:"error_msg,omitempty"` // 错误信息

	// 关联信息
	RequestID string `gorm:"type:varchar(100);index" json:"request_id,omitempty"` // 请求ID（用于关联请求和响应）

	// 性能指标
	Duration  int64 `gorm:"default:0" json:"duration,omitempty"` // 处理时长（毫秒）
	Timestamp int64 `gorm:"index" json:"timestamp"`              // Unix时间戳（毫秒）
}

// TableName 指定表名
func (PrintLog) TableName() string {
	return "print_logs"
}

// BeforeCreate 创建前的钩子
func (p *PrintLog) BeforeCreate(tx *gorm.DB) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.Timestamp == 0 {
		p.Timestamp = time.Now().UnixMilli()
	}
	return nil
}

// PrintLogQuery 查询参数
type PrintLogQuery struct {
	Kind      PrintLogKind      `json:"kind,omitempty"`
	Direction PrintLogDirection `json:"direction,omitempty"`
	Command   string            `json:"command,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	StartTime *time.Time        `json:"start_time,omitempty"`
	EndTime   *time.Time        `json:"end_time,omitempty"`
	HasError  *bool             `json:"has_error,omitempty"`
	Limit     int               `json:"limit,omitempty"`
	Offset    int               `json:"offset,omitempty"`
	OrderBy   string            `json:"order_by,omitempty"`
}

// PrintLogStats 统计信息
type PrintLogStats struct {
	TotalCount   int64   `json:"total_count"`
	TotalSend    int64   `json:"total_send"`
	TotalReceive int64   `json:"total_receive"`
	TotalErrors  int64   `json:"total_errors"`
	TotalBytes   int64   `json:"total_bytes"`
	AvgDuration  float64 `json:"avg_duration"`
	MaxDuration  int64   `json:"max_duration"`
	MinDuration  int64   `json:"min_duration"`
}
