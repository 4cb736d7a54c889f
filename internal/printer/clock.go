package printer

import "time"

// Clock 时钟接口
// 驱动的所有限速逻辑都经过这个接口，测试时可以注入假时钟
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// systemClock 真实时钟
type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock 返回基于 time 包的真实时钟
func SystemClock() Clock {
	return systemClock{}
}
