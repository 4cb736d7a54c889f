package printer

import "time"

// 状态响应轮询参数
const (
	statusPollAttempts = 10
	statusPollInterval = 100 * time.Millisecond
)

// GetStatus 查询指定状态页，返回状态字节
// 打印机无响应时返回 StatusUnavailable
//
// 状态查询绕过节流直接发送。上盖打开时 DTR 一直为忙，
// 按正常节流等待会永久阻塞，而查询状态恰恰是此时最需要的操作。
// 这个命令不会让打印机出纸，跳过等待是安全的。
func (p *Printer) GetStatus(page StatusPage) (int, error) {
	if _, err := p.stream.Write([]byte{asciiDLE, 4, byte(page)}); err != nil {
		return StatusUnavailable, err
	}
	p.timeoutSet(3 * p.byteTime)

	for i := 0; i < statusPollAttempts; i++ {
		if p.stream.Available() {
			if b, ok := p.stream.ReadByte(); ok {
				return int(b), nil
			}
			break
		}
		p.clock.Sleep(statusPollInterval)
	}
	return StatusUnavailable, nil
}

// HasPaper 查询纸卷传感器，有纸返回 true
func (p *Printer) HasPaper() (bool, error) {
	status, err := p.GetStatus(StatusPagePaper)
	if err != nil {
		return false, err
	}
	return status&paperOutBits != paperOutBits, nil
}
