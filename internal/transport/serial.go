package transport

import (
	"sync"
	"time"

	"github.com/tarm/serial"
	"github.com/wfunc/thermal-printer/internal/errors"
	"github.com/wfunc/thermal-printer/internal/logger"
	"go.uber.org/zap"
)

// SerialConfig 串口配置
type SerialConfig struct {
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	DataBits    byte          `yaml:"data_bits"`
	StopBits    byte          `yaml:"stop_bits"`
	Parity      string        `yaml:"parity"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// SerialStream 基于串口的字节流实现
type SerialStream struct {
	config *SerialConfig
	port   *serial.Port
	mu     sync.Mutex

	// 预读缓冲，Available 探测时读到的字节先存在这里
	pending    byte
	hasPending bool

	logger *zap.Logger
}

// OpenSerial 打开串口并返回字节流
func OpenSerial(config *SerialConfig) (*SerialStream, error) {
	// 解析校验位
	parity := serial.ParityNone
	switch config.Parity {
	case "O", "odd":
		parity = serial.ParityOdd
	case "E", "even":
		parity = serial.ParityEven
	}

	readTimeout := config.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Millisecond
	}

	// 配置串口
	cfg := &serial.Config{
		Name:        config.Port,
		Baud:        config.Baud,
		Size:        config.DataBits,
		Parity:      parity,
		StopBits:    serial.StopBits(config.StopBits),
		ReadTimeout: readTimeout,
	}

	// 打开串口
	port, err := serial.OpenPort(cfg)
	if err != nil {
		logger.GetLogger().Error("打开串口失败",
			zap.String("port", config.Port),
			zap.Error(err))
		return nil, errors.Wrapf(err, errors.ErrSerialPortOpen, "open serial port %s", config.Port)
	}

	logger.GetLogger().Info("串口连接成功",
		zap.String("port", config.Port),
		zap.Int("baud", config.Baud))

	return &SerialStream{
		config: config,
		port:   port,
		logger: logger.GetLogger(),
	}, nil
}

// WriteByte 写入单个字节
func (s *SerialStream) WriteByte(b byte) error {
	_, err := s.Write([]byte{b})
	return err
}

// Write 写入多个字节
func (s *SerialStream) Write(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return 0, errors.New(errors.ErrSerialPortWrite, "serial port not open")
	}

	n, err := s.port.Write(data)
	if err != nil {
		return n, errors.Wrap(err, errors.ErrSerialPortWrite, "serial write")
	}

	logger.LogSerialTraffic("SEND", data)
	return n, nil
}

// ReadByte 读取单个字节
// 串口配置了短读超时，读不到数据时返回 false
func (s *SerialStream) ReadByte() (byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasPending {
		s.hasPending = false
		logger.LogSerialTraffic("RECV", []byte{s.pending})
		return s.pending, true
	}

	b, ok := s.readOne()
	if ok {
		logger.LogSerialTraffic("RECV", []byte{b})
	}
	return b, ok
}

// Available 检查是否有待读数据
// tarm/serial 不提供输入缓冲区查询，这里靠带超时的试读实现，
// 读到的字节缓存起来供下一次 ReadByte 返回
func (s *SerialStream) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasPending {
		return true
	}

	b, ok := s.readOne()
	if ok {
		s.pending = b
		s.hasPending = true
	}
	return ok
}

// readOne 从串口读一个字节，调用方需持有锁
func (s *SerialStream) readOne() (byte, bool) {
	if s.port == nil {
		return 0, false
	}

	buf := make([]byte, 1)
	n, err := s.port.Read(buf)
	if err != nil || n == 0 {
		return 0, false
	}
	return buf[0], true
}

// Close 关闭串口
func (s *SerialStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}

	err := s.port.Close()
	s.port = nil
	if err != nil {
		s.logger.Error("关闭串口失败", zap.Error(err))
		return err
	}

	s.logger.Info("串口已断开", zap.String("port", s.config.Port))
	return nil
}
