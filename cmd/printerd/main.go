package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/thermal-printer/internal/api"
	"github.com/wfunc/thermal-printer/internal/config"
	"github.com/wfunc/thermal-printer/internal/database"
	"github.com/wfunc/thermal-printer/internal/errors"
	"github.com/wfunc/thermal-printer/internal/logger"
	"github.com/wfunc/thermal-printer/internal/models"
	"github.com/wfunc/thermal-printer/internal/printer"
	"github.com/wfunc/thermal-printer/internal/repository"
	"github.com/wfunc/thermal-printer/internal/transport"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 守护进程实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	stream     transport.ByteStream
	handshake  transport.HandshakeLine
	printer    *printer.Printer
	deviceRepo repository.DeviceStatusRepository
	httpServer *http.Server
}

func main() {
	// 命令行参数
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	// 显示版本信息
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// 显示帮助信息
	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	// 打印启动信息
	printStartInfo(cfg)

	// 创建服务器实例
	server := NewServer(cfg)

	// 启动服务器
	if err := server.Start(); err != nil {
		logger.Fatal("打印服务启动失败", zap.Error(err))
	}

	// 等待退出信号
	server.WaitForShutdown()

	// 优雅关闭
	if err := server.Shutdown(); err != nil {
		logger.Error("打印服务关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("打印服务已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动热敏打印服务...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	if err := s.initDatabase(); err != nil {
		return err
	}
	if err := s.initTransport(); err != nil {
		return err
	}
	if err := s.initPrinter(); err != nil {
		return err
	}
	if err := s.registerDevice(); err != nil {
		return err
	}
	s.startHTTPServer()

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，打印参数将在下次重启后生效")
		s.cfg = newCfg
	})

	s.logger.Info("打印服务启动成功",
		zap.String("http", fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)),
		zap.String("port", s.cfg.Serial.Port),
		zap.Bool("mock", s.cfg.Serial.MockMode),
	)

	return nil
}

// initDatabase 初始化数据库
func (s *Server) initDatabase() error {
	s.logger.Info("初始化数据库...")

	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	// 自动迁移数据库
	if s.cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	if !database.IsConnected() {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}

	s.deviceRepo = repository.NewDeviceStatusRepository(database.GetDB())
	return nil
}

// initTransport 打开串口或模拟通道
func (s *Server) initTransport() error {
	if s.cfg.Serial.MockMode || !s.cfg.Serial.Enabled {
		s.logger.Warn("串口未启用，使用内存模拟通道")
		s.stream = transport.NewMockStream()
		return nil
	}

	stream, err := transport.OpenSerial(&transport.SerialConfig{
		Port:        s.cfg.Serial.Port,
		Baud:        s.cfg.Serial.BaudRate,
		DataBits:    byte(s.cfg.Serial.DataBits),
		StopBits:    byte(s.cfg.Serial.StopBits),
		Parity:      s.cfg.Serial.Parity,
		ReadTimeout: s.cfg.Serial.ReadTimeout,
	})
	if err != nil {
		return err
	}
	s.stream = stream

	if s.cfg.Printer.Handshake.Enabled {
		line, err := transport.OpenGPIOLine(s.cfg.Printer.Handshake.Pin)
		if err != nil {
			return err
		}
		s.handshake = line
	}

	return nil
}

// initPrinter 初始化打印机驱动
func (s *Server) initPrinter() error {
	opts := &printer.Options{
		Baud:         s.cfg.Serial.BaudRate,
		Handshake:    s.handshake,
		HeatDots:     byte(s.cfg.Printer.HeatDots),
		HeatTime:     byte(s.cfg.Printer.HeatTime),
		HeatInterval: byte(s.cfg.Printer.HeatInterval),
	}

	s.printer = printer.New(s.stream, opts)
	if err := s.printer.Begin(s.cfg.Printer.Firmware); err != nil {
		return err
	}

	// 节流参数校准
	if s.cfg.Printer.DotPrintTime > 0 && s.cfg.Printer.DotFeedTime > 0 {
		s.printer.SetTimes(s.cfg.Printer.DotPrintTime, s.cfg.Printer.DotFeedTime)
	}
	if s.cfg.Printer.MaxChunkHeight > 0 {
		s.printer.SetMaxChunkHeight(s.cfg.Printer.MaxChunkHeight)
	}

	return nil
}

// registerDevice 设备状态落库
func (s *Server) registerDevice() error {
	device := &models.DeviceStatus{
		DeviceID:   s.cfg.Printer.DeviceID,
		DeviceName: s.cfg.Printer.DeviceName,
		Port:       s.cfg.Serial.Port,
		Baud:       s.cfg.Serial.BaudRate,
		Firmware:   s.cfg.Printer.Firmware,
		Status:     models.DeviceStatusOnline,
		LastSeenAt: time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.deviceRepo.RegisterDevice(ctx, device)
}

// startHTTPServer 启动HTTP服务
func (s *Server) startHTTPServer() {
	if s.cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(database.GetDB(), s.printer, s.cfg.Printer.DeviceID, s.logger)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("HTTP服务异常退出", zap.Error(err))
		}
	}()
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)

	sig := <-sigCh
	s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭打印服务...")

	// 停止HTTP服务
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP服务关闭超时", zap.Error(err))
		}
	}

	// 打印机离线并休眠，断电前保护打印头
	if s.printer != nil {
		if err := s.printer.Offline(); err != nil {
			s.logger.Warn("打印机离线失败", zap.Error(err))
		}
		if err := s.printer.Sleep(); err != nil {
			s.logger.Warn("打印机休眠失败", zap.Error(err))
		}
	}

	// 设备状态标记为离线
	if s.deviceRepo != nil {
		if err := s.deviceRepo.UpdateStatus(shutdownCtx, s.cfg.Printer.DeviceID,
			models.DeviceStatusOffline, nil); err != nil {
			s.logger.Warn("更新设备状态失败", zap.Error(err))
		}
	}

	// 关闭串口
	if s.stream != nil {
		if err := s.stream.Close(); err != nil {
			s.logger.Warn("关闭串口失败", zap.Error(err))
		}
	}

	// 关闭数据库
	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}

	// 同步日志
	if err := logger.Sync(); err != nil {
		fmt.Printf("同步日志失败: %v\n", err)
	}

	return nil
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("热敏打印服务\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("热敏打印服务")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  printerd [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  THERMAL_PRINTER_SERIAL_PORT       串口设备路径")
	fmt.Println("  THERMAL_PRINTER_SERIAL_BAUD_RATE  串口波特率")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  printerd -config=/path/to/config.yaml")
	fmt.Println("  printerd -version")
}

// printStartInfo 打印启动信息
func printStartInfo(cfg *config.Config) {
	fmt.Printf("热敏打印服务 | 版本: %s | 模式: %s | PID: %d\n",
		Version, cfg.Server.Mode, os.Getpid())
	fmt.Printf("串口: %s @ %d | 固件: %d\n",
		cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Printer.Firmware)
}
