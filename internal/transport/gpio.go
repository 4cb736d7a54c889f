package transport

import (
	"github.com/wfunc/thermal-printer/internal/errors"
	"github.com/wfunc/thermal-printer/internal/logger"
	"go.uber.org/zap"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// GPIOLine 基于 GPIO 引脚的流控线实现
// 打印机的 DTR 引脚拉低表示可以接收数据
type GPIOLine struct {
	pin gpio.PinIn
}

// OpenGPIOLine 初始化 GPIO 并按名称打开流控引脚（如 "GPIO17"）
func OpenGPIOLine(name string) (*GPIOLine, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, errors.ErrHandshakeLine, "init gpio host")
	}

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, errors.Newf(errors.ErrHandshakeLine, "gpio pin %s not found", name)
	}

	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, errors.Wrapf(err, errors.ErrHandshakeLine, "configure gpio pin %s", name)
	}

	logger.GetLogger().Info("流控引脚就绪", zap.String("pin", name))
	return &GPIOLine{pin: pin}, nil
}

// Busy 引脚为高电平时打印机忙
func (g *GPIOLine) Busy() bool {
	return g.pin.Read() == gpio.High
}
