package transport

import "sync"

// MockStream 模拟字节流（用于测试和无硬件模式）
// 记录所有写入的字节，读取返回预先排好的数据
type MockStream struct {
	mu      sync.Mutex
	written []byte
	reads   []byte
	closed  bool
}

// NewMockStream 创建模拟字节流
func NewMockStream() *MockStream {
	return &MockStream{}
}

// WriteByte 写入单个字节
func (m *MockStream) WriteByte(b byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, b)
	return nil
}

// Write 写入多个字节
func (m *MockStream) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, data...)
	return len(data), nil
}

// ReadByte 读取单个字节
func (m *MockStream) ReadByte() (byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.reads) == 0 {
		return 0, false
	}
	b := m.reads[0]
	m.reads = m.reads[1:]
	return b, true
}

// Available 检查是否有待读数据
func (m *MockStream) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reads) > 0
}

// Close 关闭流
func (m *MockStream) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// QueueRead 排入待读数据
func (m *MockStream) QueueRead(data ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, data...)
}

// Written 返回已写入字节的副本
func (m *MockStream) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.written))
	copy(out, m.written)
	return out
}

// ResetWritten 清空写入记录
func (m *MockStream) ResetWritten() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = nil
}

// Closed 返回流是否已关闭
func (m *MockStream) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockHandshake 模拟流控线
type MockHandshake struct {
	mu   sync.Mutex
	busy bool
}

// NewMockHandshake 创建模拟流控线
func NewMockHandshake() *MockHandshake {
	return &MockHandshake{}
}

// Busy 返回当前忙状态
func (m *MockHandshake) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

// SetBusy 设置忙状态
func (m *MockHandshake) SetBusy(busy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = busy
}
