package transport

// ByteStream 打印机字节流接口
// 抽象串口读写，便于在测试和模拟模式下替换实现
type ByteStream interface {
	// WriteByte 写入单个字节
	WriteByte(b byte) error
	// Write 写入多个字节
	Write(data []byte) (int, error)
	// ReadByte 读取单个字节，第二个返回值表示是否读到数据
	ReadByte() (byte, bool)
	// Available 检查是否有待读数据
	Available() bool
	// Close 关闭底层连接
	Close() error
}

// HandshakeLine 硬件流控线接口
// 打印机通过 DTR/Busy 引脚报告是否忙
type HandshakeLine interface {
	// Busy 返回打印机是否处于忙状态
	Busy() bool
}
