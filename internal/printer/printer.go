package printer

import (
	"time"

	"github.com/wfunc/thermal-printer/internal/logger"
	"github.com/wfunc/thermal-printer/internal/transport"
	"go.uber.org/zap"
)

// 打印机和主控之间没有流控（除非接了 DTR），必须按串口速率
// 和机械动作速率估算节流，否则会冲掉打印机的接收缓冲区。
// 每发出一个操作就设置一个恢复时间点，下一个操作开始前等到该时间点。

// 默认加热参数，ESC 7 命令的三个字节
const (
	defaultHeatDots     = 11  // 同时加热点数，单位 8 点
	defaultHeatTime     = 120 // 加热时长，单位 10 微秒
	defaultHeatInterval = 40  // 加热间隔，单位 10 微秒
)

// 无流控线时的默认节流参数
const (
	defaultDotPrintTime = 30000 * time.Microsecond // 打印一行点的时间
	defaultDotFeedTime  = 2100 * time.Microsecond  // 走纸一行点的时间
)

// DTR 流控轮询间隔
const busyPollInterval = 100 * time.Microsecond

// Options 驱动选项
type Options struct {
	// Baud 串口波特率，用于估算每字节的传输时间，默认 9600
	Baud int
	// Handshake 可选的 DTR 流控线，接上后节流走硬件握手
	Handshake transport.HandshakeLine
	// Clock 时钟，默认系统时钟
	Clock Clock
	// HeatDots/HeatTime/HeatInterval 加热参数，零值使用默认
	HeatDots     byte
	HeatTime     byte
	HeatInterval byte
}

// Printer GY-EH402 热敏打印机驱动
// 非并发安全，调用方需要自行串行化
type Printer struct {
	stream    transport.ByteStream
	handshake transport.HandshakeLine
	clock     Clock
	logger    *zap.Logger

	// 每字节的串口传输时间，11 位（含起止位和空闲位）
	byteTime time.Duration
	// 上一个操作的预计完成时间
	resumeAt time.Time
	// DTR 流控是否已在打印机侧启用
	dtrEnabled bool

	firmware int
	caps     Capabilities

	heatDots     byte
	heatTime     byte
	heatInterval byte

	dotPrintTime time.Duration
	dotFeedTime  time.Duration

	// 文本排版状态
	prevByte       byte
	column         int
	maxColumn      int
	charWidth      int
	charHeight     int
	lineSpacing    int
	barcodeHeight  int
	style          textStyle
	autoLineHeight bool
	maxChunkHeight int
}

// New 创建打印机驱动
func New(stream transport.ByteStream, opts *Options) *Printer {
	if opts == nil {
		opts = &Options{}
	}

	baud := opts.Baud
	if baud <= 0 {
		baud = 9600
	}

	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}

	heatDots := opts.HeatDots
	if heatDots == 0 {
		heatDots = defaultHeatDots
	}
	heatTime := opts.HeatTime
	if heatTime == 0 {
		heatTime = defaultHeatTime
	}
	heatInterval := opts.HeatInterval
	if heatInterval == 0 {
		heatInterval = defaultHeatInterval
	}

	return &Printer{
		stream:    stream,
		handshake: opts.Handshake,
		clock:     clock,
		logger:    logger.GetModuleLogger("printer"),

		byteTime: time.Duration((11*1000000+int64(baud)/2)/int64(baud)) * time.Microsecond,

		heatDots:     heatDots,
		heatTime:     heatTime,
		heatInterval: heatInterval,

		dotPrintTime: defaultDotPrintTime,
		dotFeedTime:  defaultDotFeedTime,

		autoLineHeight: true,
	}
}

// timeoutSet 设置刚发出的任务的预计完成时间
func (p *Printer) timeoutSet(d time.Duration) {
	if !p.dtrEnabled {
		p.resumeAt = p.clock.Now().Add(d)
	}
}

// timeoutWait 等待上一个任务完成
func (p *Printer) timeoutWait() {
	if p.dtrEnabled {
		for p.handshake.Busy() {
			p.clock.Sleep(busyPollInterval)
		}
		return
	}
	if wait := p.resumeAt.Sub(p.clock.Now()); wait > 0 {
		p.clock.Sleep(wait)
	}
}

// writeBytes 发送配置命令字节，不用于打印文本
func (p *Printer) writeBytes(data ...byte) error {
	p.timeoutWait()
	if _, err := p.stream.Write(data); err != nil {
		return err
	}
	p.timeoutSet(time.Duration(len(data)) * p.byteTime)
	return nil
}

// Write 打印文本，实现 io.Writer
// 回车符直接丢弃，换行和自动换行按字符高度和行距计时
func (p *Printer) Write(data []byte) (int, error) {
	for i := 0; i < len(data); i++ {
		if err := p.writeChar(data[i]); err != nil {
			return i, err
		}
	}
	return len(data), nil
}

func (p *Printer) writeChar(c byte) error {
	if c == asciiCR {
		return nil
	}

	p.timeoutWait()
	if err := p.stream.WriteByte(c); err != nil {
		return err
	}

	d := p.byteTime
	if c == asciiLF || p.column >= p.maxColumn-1 {
		// 换行，或该字符占满当前行；制表位可能越过行尾，也在这里回绕
		if p.prevByte == asciiLF {
			// 空行只需走纸
			d += time.Duration(p.charHeight+p.lineSpacing) * p.dotFeedTime
		} else {
			// 文本行需要打印加走纸
			d += time.Duration(p.charHeight)*p.dotPrintTime +
				time.Duration(p.lineSpacing)*p.dotFeedTime
		}
		p.column = 0
		c = asciiLF
	} else {
		p.column++
	}
	p.timeoutSet(d)
	p.prevByte = c
	return nil
}

// Print 打印字符串
func (p *Printer) Print(s string) error {
	_, err := p.Write([]byte(s))
	return err
}

// Println 打印字符串并换行
func (p *Printer) Println(s string) error {
	if err := p.Print(s); err != nil {
		return err
	}
	return p.writeChar(asciiLF)
}

// Begin 初始化打印机
// 打印机上电后需要约半秒冷启动时间才能接收数据
func (p *Printer) Begin(firmware int) error {
	p.firmware = firmware
	p.caps = capabilitiesFor(firmware)

	p.timeoutSet(500 * time.Millisecond)

	if err := p.Wake(); err != nil {
		return err
	}
	if err := p.Reset(); err != nil {
		return err
	}
	if err := p.SetHeatConfig(p.heatDots, p.heatTime, p.heatInterval); err != nil {
		return err
	}

	// 请求打印机启用 DTR 流控
	if p.handshake != nil {
		if err := p.writeBytes(asciiGS, 'a', 1<<5); err != nil {
			return err
		}
		p.dtrEnabled = true
	}

	p.dotPrintTime = defaultDotPrintTime
	p.dotFeedTime = defaultDotFeedTime
	p.maxChunkHeight = 255

	p.logger.Info("printer initialized",
		zap.Int("firmware", firmware),
		zap.Bool("dtr", p.dtrEnabled))
	return nil
}

// Reset 恢复打印机到默认状态
func (p *Printer) Reset() error {
	if err := p.writeBytes(asciiESC, '@'); err != nil {
		return err
	}
	p.prevByte = asciiLF // 视作上一行为空行
	p.column = 0
	p.maxColumn = 32
	p.charHeight = 24
	p.lineSpacing = 6
	p.barcodeHeight = 50

	if p.caps.TabStops {
		// 每 4 列一个制表位，0 结束列表
		if err := p.writeBytes(asciiESC, 'D'); err != nil {
			return err
		}
		if err := p.writeBytes(4, 8, 12, 16); err != nil {
			return err
		}
		if err := p.writeBytes(20, 24, 28, 0); err != nil {
			return err
		}
	}
	return nil
}

// SetDefaults 恢复文本排版参数到默认状态
func (p *Printer) SetDefaults() error {
	if err := p.Online(); err != nil {
		return err
	}
	if err := p.Justify('L'); err != nil {
		return err
	}
	if err := p.InverseOff(); err != nil {
		return err
	}
	if err := p.DoubleHeightOff(); err != nil {
		return err
	}
	if err := p.SetLineHeight(30); err != nil {
		return err
	}
	if err := p.BoldOff(); err != nil {
		return err
	}
	if err := p.UnderlineOff(); err != nil {
		return err
	}
	p.autoLineHeight = true
	if err := p.SetBarcodeHeight(50); err != nil {
		return err
	}
	p.style.font = FontA
	if err := p.SetSize('S'); err != nil {
		return err
	}
	if err := p.SetCharset(0); err != nil {
		return err
	}
	if err := p.SetCodePage(0); err != nil {
		return err
	}
	return p.CancelKanjiMode()
}

// CancelKanjiMode 关闭汉字模式
// 打印机默认把 128-255 的扩展字符当作中文处理
func (p *Printer) CancelKanjiMode() error {
	return p.writeBytes(asciiFS, '.')
}

// Test 打印一行测试文本
func (p *Printer) Test() error {
	if err := p.Println("Hello World!"); err != nil {
		return err
	}
	return p.Feed(2)
}

// TestPage 打印自检页
func (p *Printer) TestPage() error {
	if err := p.writeBytes(asciiDC2, 'T'); err != nil {
		return err
	}
	// 26 行文本（每行 24 点高、走纸 6 点）加末尾空行
	p.timeoutSet(p.dotPrintTime*24*26 + p.dotFeedTime*(6*26+30))
	return nil
}

// SetTimes 设置打印和走纸每点的耗时
// 实际速度受电源电压、纸张厚度等因素影响，可据此微调节流
func (p *Printer) SetTimes(printTime, feedTime time.Duration) {
	p.dotPrintTime = printTime
	p.dotFeedTime = feedTime
}

// SetMaxChunkHeight 设置位图分块的最大行数
func (p *Printer) SetMaxChunkHeight(val int) {
	p.maxChunkHeight = val
}

// Firmware 返回当前固件版本
func (p *Printer) Firmware() int {
	return p.firmware
}

// Capabilities 返回当前固件的命令集
func (p *Printer) Capabilities() Capabilities {
	return p.caps
}

// adjustCharValues 根据当前字体和打印模式重算字符尺寸和每行列数，
// 并下发字体和字号命令
func (p *Printer) adjustCharValues() error {
	switch p.style.font {
	case FontB:
		p.charWidth = 9
		p.charHeight = 24
	case FontC:
		p.charWidth = 9
		p.charHeight = 17
	case FontD:
		p.charWidth = 8
		p.charHeight = 16
	case FontE:
		p.charWidth = 16
		p.charHeight = 16
	default:
		p.charWidth = 12
		p.charHeight = 24
	}

	// 倍宽模式
	if p.style.doubleWidth {
		p.charWidth *= 2
		p.maxColumn /= 2
	}
	// 倍高模式
	if p.style.doubleHeight {
		p.charHeight *= 2
	}
	p.maxColumn = dotsPerLine / p.charWidth

	fontStyle := p.style.fontStyleByte()

	if err := p.writeBytes(asciiESC, 'M', byte(p.style.font), finCmd); err != nil {
		return err
	}
	if err := p.writeBytes(asciiGS, '!', fontStyle>>3, finCmd); err != nil {
		return err
	}

	if p.autoLineHeight {
		// 行高跟随新字体
		return p.writeBytes(asciiESC, '3', byte(p.charHeight+p.lineSpacing))
	}
	return nil
}

// applyStyle 下发模式字节并重算字符尺寸
func (p *Printer) applyStyle() error {
	if err := p.writePrintMode(); err != nil {
		return err
	}
	return p.adjustCharValues()
}

func (p *Printer) writePrintMode() error {
	return p.writeBytes(asciiESC, '!', p.style.printModeByte())
}

// Normal 清除所有打印模式，保留当前字体
func (p *Printer) Normal() error {
	p.style = textStyle{font: p.style.font}
	return p.writePrintMode()
}

// InverseOn 开启反白打印
func (p *Printer) InverseOn() error {
	if p.caps.InverseCommand {
		return p.writeBytes(asciiGS, 'B', 1)
	}
	p.style.inverse = true
	return p.applyStyle()
}

// InverseOff 关闭反白打印
func (p *Printer) InverseOff() error {
	if p.caps.InverseCommand {
		return p.writeBytes(asciiGS, 'B', 0)
	}
	p.style.inverse = false
	return p.applyStyle()
}

// UpsideDownOn 开启倒置打印
func (p *Printer) UpsideDownOn() error {
	if p.caps.UpsideDownCommand {
		return p.writeBytes(asciiESC, '{', 1)
	}
	p.style.upsideDown = true
	return p.applyStyle()
}

// UpsideDownOff 关闭倒置打印
func (p *Printer) UpsideDownOff() error {
	if p.caps.UpsideDownCommand {
		return p.writeBytes(asciiESC, '{', 0)
	}
	p.style.upsideDown = false
	return p.applyStyle()
}

// DoubleHeightOn 开启倍高
func (p *Printer) DoubleHeightOn() error {
	p.style.doubleHeight = true
	return p.applyStyle()
}

// DoubleHeightOff 关闭倍高
func (p *Printer) DoubleHeightOff() error {
	p.style.doubleHeight = false
	return p.applyStyle()
}

// DoubleWidthOn 开启倍宽
func (p *Printer) DoubleWidthOn() error {
	p.style.doubleWidth = true
	return p.applyStyle()
}

// DoubleWidthOff 关闭倍宽
func (p *Printer) DoubleWidthOff() error {
	p.style.doubleWidth = false
	return p.applyStyle()
}

// StrikeOn 开启删除线
func (p *Printer) StrikeOn() error {
	p.style.strike = true
	return p.applyStyle()
}

// StrikeOff 关闭删除线
func (p *Printer) StrikeOff() error {
	p.style.strike = false
	return p.applyStyle()
}

// BoldOn 开启加粗
func (p *Printer) BoldOn() error {
	p.style.bold = true
	return p.applyStyle()
}

// BoldOff 关闭加粗
func (p *Printer) BoldOff() error {
	p.style.bold = false
	return p.applyStyle()
}

// Justify 设置对齐方式，'L' 左对齐、'C' 居中、'R' 右对齐
func (p *Printer) Justify(value byte) error {
	if value >= 'a' && value <= 'z' {
		value -= 'a' - 'A'
	}

	var pos byte
	switch value {
	case 'L':
		pos = 0
	case 'C':
		pos = 1
	case 'R':
		pos = 2
	}

	return p.writeBytes(asciiESC, 'a', pos)
}

// Feed 走纸指定行数
func (p *Printer) Feed(lines byte) error {
	if p.caps.LineFeedCommand {
		if err := p.writeBytes(asciiESC, 'd', lines); err != nil {
			return err
		}
		p.timeoutSet(p.dotFeedTime * time.Duration(p.charHeight))
		p.prevByte = asciiLF
		p.column = 0
		return nil
	}

	// 旧固件的走纸命令会多走，逐个写换行符
	for ; lines > 0; lines-- {
		if err := p.writeChar(asciiLF); err != nil {
			return err
		}
	}
	return nil
}

// FeedRows 走纸指定点行数
func (p *Printer) FeedRows(rows byte) error {
	if err := p.writeBytes(asciiESC, 'J', rows); err != nil {
		return err
	}
	p.timeoutSet(time.Duration(rows) * p.dotFeedTime)
	p.prevByte = asciiLF
	p.column = 0
	return nil
}

// Flush 送出缓冲区内容
func (p *Printer) Flush() error {
	return p.writeBytes(asciiFF)
}

// SetSize 设置字号，'S' 标准、'M' 倍高、'L' 倍高倍宽
func (p *Printer) SetSize(value byte) error {
	if value >= 'a' && value <= 'z' {
		value -= 'a' - 'A'
	}

	switch value {
	case 'M': // 中：倍高
		if err := p.DoubleHeightOn(); err != nil {
			return err
		}
		return p.DoubleWidthOff()
	case 'L': // 大：倍高倍宽
		if err := p.DoubleHeightOn(); err != nil {
			return err
		}
		return p.DoubleWidthOn()
	default: // 小：标准宽高
		if err := p.DoubleWidthOff(); err != nil {
			return err
		}
		return p.DoubleHeightOff()
	}
}

// SetHeatConfig 设置加热参数
// dots 同时加热点数（单位 8 点），time 加热时长、interval 加热间隔（单位 10 微秒）
// 加热点越多电流峰值越大但打印越快，加热时间越长颜色越深但速度越慢
func (p *Printer) SetHeatConfig(dots, heatTime, interval byte) error {
	if err := p.writeBytes(asciiESC, '7'); err != nil {
		return err
	}
	return p.writeBytes(dots, heatTime, interval)
}

// SetPrintDensity 设置打印浓度
// density 的低 5 位为浓度（50% + 5% * n），高 3 位为间歇时间（n * 250 微秒）
func (p *Printer) SetPrintDensity(density, breakTime byte) error {
	return p.writeBytes(asciiDC2, '#', (density<<5)|breakTime)
}

// UnderlineOn 开启下划线，weight 1 普通、2 加粗
func (p *Printer) UnderlineOn(weight byte) error {
	if weight > 2 {
		weight = 2
	}
	return p.writeBytes(asciiESC, '-', weight)
}

// UnderlineOff 关闭下划线
func (p *Printer) UnderlineOff() error {
	return p.writeBytes(asciiESC, '-', 0)
}

// AutoLineHeightOn 行高跟随字体自动调整
func (p *Printer) AutoLineHeightOn() error {
	p.autoLineHeight = true
	return p.adjustCharValues()
}

// AutoLineHeightOff 关闭行高自动调整
func (p *Printer) AutoLineHeightOff() error {
	p.autoLineHeight = false
	return p.adjustCharValues()
}

// SetLineHeight 设置行高，最小 20
// 打印机设置行高时不考虑当前字符高度，效果更接近行间距
func (p *Printer) SetLineHeight(val int) error {
	if err := p.AutoLineHeightOff(); err != nil {
		return err
	}
	if val < 20 {
		val = 20
	}
	p.lineSpacing = val - 20

	return p.writeBytes(asciiESC, '3', byte(val))
}

// Offline 打印机离线，之后的打印命令被忽略直到 Online
func (p *Printer) Offline() error {
	return p.writeBytes(asciiESC, '=', 0)
}

// Online 打印机上线
func (p *Printer) Online() error {
	return p.writeBytes(asciiESC, '=', 1)
}

// Sleep 立即进入低功耗状态
func (p *Printer) Sleep() error {
	return p.SleepAfter(1) // 0 表示不休眠，不能用
}

// SleepAfter 在指定秒数后进入低功耗状态
func (p *Printer) SleepAfter(seconds uint16) error {
	if p.caps.WideSleepArg {
		return p.writeBytes(asciiESC, '8', byte(seconds), byte(seconds>>8))
	}
	return p.writeBytes(asciiESC, '8', byte(seconds))
}

// Wake 从低功耗状态唤醒
func (p *Printer) Wake() error {
	p.timeoutSet(0)
	if err := p.writeBytes(255); err != nil {
		return err
	}

	if p.caps.SleepOffOnWake {
		p.clock.Sleep(50 * time.Millisecond)
		// 必须关闭休眠，否则打印机很快又睡着
		return p.writeBytes(asciiESC, '8', 0, 0)
	}

	// 旧固件手册建议唤醒后等 50 毫秒，实测不够，
	// 穿插 NUL 空操作多等一会儿才稳定
	for i := 0; i < 10; i++ {
		if err := p.writeBytes(0); err != nil {
			return err
		}
		p.timeoutSet(10 * time.Millisecond)
	}
	return nil
}

// SetCharset 切换字符集，影响 0x23-0x7E 范围内的部分字符
func (p *Printer) SetCharset(val byte) error {
	if val > 15 {
		val = 15
	}
	return p.writeBytes(asciiESC, 'R', val)
}

// SetCodePage 切换代码页，影响 0x80-0xFF 的扩展字符
func (p *Printer) SetCodePage(val byte) error {
	if val > 47 {
		val = 47
	}
	return p.writeBytes(asciiESC, 't', val)
}

// Tab 前进到下一个制表位
func (p *Printer) Tab() error {
	if err := p.writeBytes(asciiTab); err != nil {
		return err
	}
	p.column = (p.column + 4) &^ 3
	return nil
}

// SetFont 切换字体，接受字母（'A'-'E'）或数字（0-4）
func (p *Printer) SetFont(font byte) error {
	if font >= 'A' {
		if font >= 'a' && font <= 'z' {
			font -= 'a' - 'A'
		}
		if font > 'E' {
			font = 'A'
		}
		if font < 'A' {
			font = 'A'
		}
		font -= 'A'
	} else if font > 4 {
		font = 0
	}
	p.style.font = Font(font)
	return p.adjustCharValues()
}

// SetCharSpacing 设置字符间距
func (p *Printer) SetCharSpacing(spacing byte) error {
	return p.writeBytes(asciiESC, ' ', spacing)
}

// UserCharacterSetOn 启用用户自定义字符集
func (p *Printer) UserCharacterSetOn() error {
	return p.writeBytes(asciiESC, '%', 1)
}

// UserCharacterSetOff 停用用户自定义字符集
func (p *Printer) UserCharacterSetOff() error {
	return p.writeBytes(asciiESC, '%', 0)
}

// DefineUserCharacters 连续定义一个或多个自定义字符
// 数据格式为每个字符 [宽度, 宽度*yBytes 个点阵字节] 依次排列
func (p *Printer) DefineUserCharacters(yBytes, codeFrom, codeTo byte, data []byte) error {
	if err := p.writeBytes(asciiESC, '&', yBytes, codeFrom, codeTo); err != nil {
		return err
	}
	for _, b := range data {
		p.timeoutWait()
		if err := p.stream.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

// ClearUserCharacter 清除自定义字符，恢复标准字符集
func (p *Printer) ClearUserCharacter(code byte) error {
	return p.writeBytes(asciiESC, '?', code)
}
