package printer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/thermal-printer/internal/transport"
)

// fakeClock 假时钟，Sleep 直接推进时间
type fakeClock struct {
	now   time.Time
	slept time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(0, 0)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	if d > 0 {
		c.now = c.now.Add(d)
		c.slept += d
	}
}

// newTestPrinter 创建接到模拟流的驱动并完成初始化
func newTestPrinter(t *testing.T, firmware int) (*Printer, *transport.MockStream, *fakeClock) {
	t.Helper()
	stream := transport.NewMockStream()
	clock := newFakeClock()
	p := New(stream, &Options{Clock: clock})
	require.NoError(t, p.Begin(firmware))
	stream.ResetWritten()
	return p, stream, clock
}

func TestByteTime(t *testing.T) {
	p := New(transport.NewMockStream(), nil)
	assert.Equal(t, 1146*time.Microsecond, p.byteTime)

	p = New(transport.NewMockStream(), &Options{Baud: 19200})
	assert.Equal(t, 573*time.Microsecond, p.byteTime)
}

func TestBeginSequence(t *testing.T) {
	stream := transport.NewMockStream()
	clock := newFakeClock()
	p := New(stream, &Options{Clock: clock})
	require.NoError(t, p.Begin(268))

	expected := []byte{
		255,                 // 唤醒
		asciiESC, '8', 0, 0, // 关闭休眠
		asciiESC, '@', // 初始化
		asciiESC, 'D', // 制表位
		4, 8, 12, 16,
		20, 24, 28, 0,
		asciiESC, '7', // 加热参数
		11, 120, 40,
	}
	assert.Equal(t, expected, stream.Written())

	assert.Equal(t, 30000*time.Microsecond, p.dotPrintTime)
	assert.Equal(t, 2100*time.Microsecond, p.dotFeedTime)
	assert.Equal(t, 255, p.maxChunkHeight)
	assert.Equal(t, 32, p.maxColumn)
	assert.Equal(t, 24, p.charHeight)
	assert.Equal(t, 6, p.lineSpacing)
	assert.Equal(t, 50, p.barcodeHeight)
}

func TestBeginOldFirmwareSkipsTabStops(t *testing.T) {
	stream := transport.NewMockStream()
	clock := newFakeClock()
	p := New(stream, &Options{Clock: clock})
	require.NoError(t, p.Begin(260))

	written := stream.Written()
	// 唤醒序列：255 后跟 10 个 NUL
	require.True(t, len(written) > 11)
	assert.Equal(t, byte(255), written[0])
	for i := 1; i <= 10; i++ {
		assert.Equal(t, byte(0), written[i])
	}
	// 不配置制表位
	assert.NotContains(t, string(written), string([]byte{asciiESC, 'D'}))
	_ = p
}

func TestCapabilitiesGates(t *testing.T) {
	caps := capabilitiesFor(260)
	assert.False(t, caps.TabStops)
	assert.False(t, caps.LineFeedCommand)
	assert.False(t, caps.BarcodeLetteredTypes)
	assert.False(t, caps.InverseCommand)

	caps = capabilitiesFor(264)
	assert.True(t, caps.TabStops)
	assert.True(t, caps.LineFeedCommand)
	assert.True(t, caps.WideSleepArg)
	assert.True(t, caps.SleepOffOnWake)
	assert.False(t, caps.InverseCommand)
	assert.False(t, caps.UpsideDownCommand)

	caps = capabilitiesFor(268)
	assert.True(t, caps.InverseCommand)
	assert.True(t, caps.UpsideDownCommand)
}

func TestWriteTiming(t *testing.T) {
	p, stream, clock := newTestPrinter(t, 268)

	// 让上一个操作的恢复点过去
	clock.Sleep(time.Second)

	_, err := p.Write([]byte("Hi\n"))
	require.NoError(t, err)
	assert.Equal(t, []byte("Hi\n"), stream.Written())

	// 换行字符的耗时：一个字节加一行文本
	// 24 点字符高 * 30000 微秒 + 6 点行距 * 2100 微秒
	expected := 1146*time.Microsecond +
		24*30000*time.Microsecond + 6*2100*time.Microsecond
	assert.Equal(t, expected, p.resumeAt.Sub(clock.Now()))
	assert.Equal(t, 0, p.column)
	assert.Equal(t, byte(asciiLF), p.prevByte)
}

func TestWriteBlankLineUsesFeedTiming(t *testing.T) {
	p, _, clock := newTestPrinter(t, 268)
	clock.Sleep(time.Second)

	// 连续两个换行，第二个视为空行，只按走纸计时
	_, err := p.Write([]byte("\n"))
	require.NoError(t, err)
	_, err = p.Write([]byte("\n"))
	require.NoError(t, err)

	expected := 1146*time.Microsecond + (24+6)*2100*time.Microsecond
	assert.Equal(t, expected, p.resumeAt.Sub(clock.Now()))
}

func TestWriteStripsCarriageReturn(t *testing.T) {
	p, stream, clock := newTestPrinter(t, 268)
	clock.Sleep(time.Second)

	_, err := p.Write([]byte("a\r\nb"))
	require.NoError(t, err)
	assert.Equal(t, []byte("a\nb"), stream.Written())
}

func TestWriteWrapsAtMaxColumn(t *testing.T) {
	p, _, clock := newTestPrinter(t, 268)
	clock.Sleep(time.Second)

	// maxColumn 为 32，第 32 个字符占满当前行并触发自动换行
	line := make([]byte, 31)
	for i := range line {
		line[i] = 'x'
	}
	_, err := p.Write(line)
	require.NoError(t, err)
	assert.Equal(t, 31, p.column)
	assert.Equal(t, byte('x'), p.prevByte)

	_, err = p.Write([]byte("y"))
	require.NoError(t, err)
	assert.Equal(t, 0, p.column)
	assert.Equal(t, byte(asciiLF), p.prevByte)

	// 自动换行按整行文本计时
	expected := 1146*time.Microsecond +
		24*30000*time.Microsecond + 6*2100*time.Microsecond
	assert.Equal(t, expected, p.resumeAt.Sub(clock.Now()))
}

func TestWriteColumnTracksCharCount(t *testing.T) {
	p, _, clock := newTestPrinter(t, 268)
	clock.Sleep(time.Hour)

	// 跨多行连续写入后，列号等于累计字符数对每行列数取模
	text := make([]byte, 70)
	for i := range text {
		text[i] = 'x'
	}
	_, err := p.Write(text)
	require.NoError(t, err)
	assert.Equal(t, 70%32, p.column)
}

func TestSetFontMetrics(t *testing.T) {
	tests := []struct {
		font      byte
		width     int
		height    int
		maxColumn int
	}{
		{'A', 12, 24, 32},
		{'B', 9, 24, 42},
		{'C', 9, 17, 42},
		{'D', 8, 16, 48},
		{'E', 16, 16, 24},
	}

	for _, tt := range tests {
		p, stream, _ := newTestPrinter(t, 268)
		require.NoError(t, p.SetFont(tt.font))
		assert.Equal(t, tt.width, p.charWidth, "font %c", tt.font)
		assert.Equal(t, tt.height, p.charHeight, "font %c", tt.font)
		assert.Equal(t, tt.maxColumn, p.maxColumn, "font %c", tt.font)

		// 字体命令带终止符
		fontIdx := tt.font - 'A'
		assert.Equal(t, []byte{
			asciiESC, 'M', fontIdx, finCmd,
			asciiGS, '!', 0, finCmd,
			asciiESC, '3', byte(tt.height + 6),
		}, stream.Written(), "font %c", tt.font)
	}
}

func TestSetFontAcceptsNumbersAndLowercase(t *testing.T) {
	p, _, _ := newTestPrinter(t, 268)

	require.NoError(t, p.SetFont(2))
	assert.Equal(t, 9, p.charWidth)
	assert.Equal(t, 17, p.charHeight)

	require.NoError(t, p.SetFont('d'))
	assert.Equal(t, 8, p.charWidth)

	// 超出范围回退到 FontA
	require.NoError(t, p.SetFont('Z'))
	assert.Equal(t, 12, p.charWidth)
	require.NoError(t, p.SetFont(9))
	assert.Equal(t, 12, p.charWidth)
}

func TestDoubleWidthHalvesColumns(t *testing.T) {
	p, _, _ := newTestPrinter(t, 268)

	require.NoError(t, p.DoubleWidthOn())
	assert.Equal(t, 24, p.charWidth)
	assert.Equal(t, 16, p.maxColumn)

	require.NoError(t, p.DoubleWidthOff())
	assert.Equal(t, 12, p.charWidth)
	assert.Equal(t, 32, p.maxColumn)
}

func TestDoubleHeightDoublesCharHeight(t *testing.T) {
	p, _, _ := newTestPrinter(t, 268)

	require.NoError(t, p.DoubleHeightOn())
	assert.Equal(t, 48, p.charHeight)
	assert.Equal(t, 12, p.charWidth)

	require.NoError(t, p.DoubleHeightOff())
	assert.Equal(t, 24, p.charHeight)
}

func TestAdjustCharValuesStyleBits(t *testing.T) {
	p, stream, _ := newTestPrinter(t, 268)

	// 倍高倍宽同时开启时 GS ! 参数高低半字节各置一位
	require.NoError(t, p.DoubleHeightOn())
	require.NoError(t, p.DoubleWidthOn())

	written := stream.Written()
	// 最后一组命令：ESC M font FIN, GS ! style FIN, ESC 3 n
	n := len(written)
	require.GreaterOrEqual(t, n, 11)
	tail := written[n-11:]
	assert.Equal(t, []byte{asciiESC, 'M', 0, finCmd}, tail[:4])
	// GS ! 参数：(倍宽 128 | 倍高 8) >> 3 = 17
	assert.Equal(t, []byte{asciiGS, '!', 17, finCmd}, tail[4:8])
	assert.Equal(t, []byte{asciiESC, '3', byte(48 + 6)}, tail[8:])
}

func TestInverseFirmwareGate(t *testing.T) {
	// 新固件用 GS B
	p, stream, _ := newTestPrinter(t, 268)
	require.NoError(t, p.InverseOn())
	assert.Equal(t, []byte{asciiGS, 'B', 1}, stream.Written())

	stream.ResetWritten()
	require.NoError(t, p.InverseOff())
	assert.Equal(t, []byte{asciiGS, 'B', 0}, stream.Written())

	// 旧固件走打印模式位
	p2, stream2, _ := newTestPrinter(t, 264)
	require.NoError(t, p2.InverseOn())
	written := stream2.Written()
	require.GreaterOrEqual(t, len(written), 3)
	assert.Equal(t, []byte{asciiESC, '!', inverseMask}, written[:3])
}

func TestUpsideDownFirmwareGate(t *testing.T) {
	p, stream, _ := newTestPrinter(t, 268)
	require.NoError(t, p.UpsideDownOn())
	assert.Equal(t, []byte{asciiESC, '{', 1}, stream.Written())

	p2, stream2, _ := newTestPrinter(t, 264)
	require.NoError(t, p2.UpsideDownOn())
	written := stream2.Written()
	require.GreaterOrEqual(t, len(written), 3)
	assert.Equal(t, []byte{asciiESC, '!', updownMask}, written[:3])
}

func TestJustify(t *testing.T) {
	p, stream, _ := newTestPrinter(t, 268)

	require.NoError(t, p.Justify('C'))
	require.NoError(t, p.Justify('r'))
	require.NoError(t, p.Justify('L'))
	require.NoError(t, p.Justify('?')) // 未知值按左对齐

	assert.Equal(t, []byte{
		asciiESC, 'a', 1,
		asciiESC, 'a', 2,
		asciiESC, 'a', 0,
		asciiESC, 'a', 0,
	}, stream.Written())
}

func TestFeedNewFirmware(t *testing.T) {
	p, stream, clock := newTestPrinter(t, 268)
	clock.Sleep(time.Second)

	require.NoError(t, p.Feed(3))
	assert.Equal(t, []byte{asciiESC, 'd', 3}, stream.Written())
	assert.Equal(t, time.Duration(24)*2100*time.Microsecond, p.resumeAt.Sub(clock.Now()))
	assert.Equal(t, 0, p.column)
	assert.Equal(t, byte(asciiLF), p.prevByte)
}

func TestFeedOldFirmwareWritesNewlines(t *testing.T) {
	p, stream, clock := newTestPrinter(t, 260)
	clock.Sleep(time.Second)

	require.NoError(t, p.Feed(2))
	assert.Equal(t, []byte{asciiLF, asciiLF}, stream.Written())
}

func TestFeedRows(t *testing.T) {
	p, stream, clock := newTestPrinter(t, 268)
	clock.Sleep(time.Second)

	require.NoError(t, p.FeedRows(10))
	assert.Equal(t, []byte{asciiESC, 'J', 10}, stream.Written())
	assert.Equal(t, 10*2100*time.Microsecond, p.resumeAt.Sub(clock.Now()))
}

func TestSetLineHeight(t *testing.T) {
	p, stream, _ := newTestPrinter(t, 268)

	require.NoError(t, p.SetLineHeight(50))
	assert.Equal(t, 30, p.lineSpacing)
	assert.False(t, p.autoLineHeight)
	written := stream.Written()
	// 末尾为 ESC 3 50
	require.GreaterOrEqual(t, len(written), 3)
	assert.Equal(t, []byte{asciiESC, '3', 50}, written[len(written)-3:])

	// 低于下限时取 20
	require.NoError(t, p.SetLineHeight(5))
	assert.Equal(t, 0, p.lineSpacing)
}

func TestSleepWake(t *testing.T) {
	p, stream, _ := newTestPrinter(t, 268)

	require.NoError(t, p.Sleep())
	assert.Equal(t, []byte{asciiESC, '8', 1, 0}, stream.Written())

	stream.ResetWritten()
	require.NoError(t, p.SleepAfter(300))
	assert.Equal(t, []byte{asciiESC, '8', 44, 1}, stream.Written())

	stream.ResetWritten()
	require.NoError(t, p.Wake())
	assert.Equal(t, []byte{255, asciiESC, '8', 0, 0}, stream.Written())
}

func TestSleepOldFirmwareSingleByte(t *testing.T) {
	p, stream, _ := newTestPrinter(t, 260)

	require.NoError(t, p.SleepAfter(5))
	assert.Equal(t, []byte{asciiESC, '8', 5}, stream.Written())
}

func TestOnlineOffline(t *testing.T) {
	p, stream, _ := newTestPrinter(t, 268)

	require.NoError(t, p.Offline())
	require.NoError(t, p.Online())
	assert.Equal(t, []byte{asciiESC, '=', 0, asciiESC, '=', 1}, stream.Written())
}

func TestTabAdvancesColumn(t *testing.T) {
	p, _, clock := newTestPrinter(t, 268)
	clock.Sleep(time.Second)

	_, err := p.Write([]byte("ab"))
	require.NoError(t, err)
	require.NoError(t, p.Tab())
	assert.Equal(t, 4, p.column)

	require.NoError(t, p.Tab())
	assert.Equal(t, 8, p.column)
}

func TestTabPastLineEndWraps(t *testing.T) {
	p, _, clock := newTestPrinter(t, 268)
	clock.Sleep(time.Second)

	// 制表位可以越过行尾（30 → 32），之后的字符必须回绕而不是无限累加
	text := make([]byte, 30)
	for i := range text {
		text[i] = 'x'
	}
	_, err := p.Write(text)
	require.NoError(t, err)
	require.NoError(t, p.Tab())
	assert.Equal(t, 32, p.column)

	_, err = p.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 2, p.column)
	assert.Less(t, p.column, p.maxColumn)
}

func TestSetCharsetAndCodePageClamp(t *testing.T) {
	p, stream, _ := newTestPrinter(t, 268)

	require.NoError(t, p.SetCharset(99))
	require.NoError(t, p.SetCodePage(99))
	assert.Equal(t, []byte{
		asciiESC, 'R', 15,
		asciiESC, 't', 47,
	}, stream.Written())
}

func TestUnderline(t *testing.T) {
	p, stream, _ := newTestPrinter(t, 268)

	require.NoError(t, p.UnderlineOn(1))
	require.NoError(t, p.UnderlineOn(9)) // 超重量取 2
	require.NoError(t, p.UnderlineOff())
	assert.Equal(t, []byte{
		asciiESC, '-', 1,
		asciiESC, '-', 2,
		asciiESC, '-', 0,
	}, stream.Written())
}

func TestSetPrintDensity(t *testing.T) {
	p, stream, _ := newTestPrinter(t, 268)

	require.NoError(t, p.SetPrintDensity(3, 2))
	assert.Equal(t, []byte{asciiDC2, '#', (3 << 5) | 2}, stream.Written())
}

func TestCancelKanjiMode(t *testing.T) {
	p, stream, _ := newTestPrinter(t, 268)

	require.NoError(t, p.CancelKanjiMode())
	assert.Equal(t, []byte{asciiFS, '.'}, stream.Written())
}

func TestUserCharacters(t *testing.T) {
	p, stream, _ := newTestPrinter(t, 268)

	require.NoError(t, p.UserCharacterSetOn())
	require.NoError(t, p.DefineUserCharacters(3, 32, 32, []byte{2, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}))
	require.NoError(t, p.UserCharacterSetOff())
	require.NoError(t, p.ClearUserCharacter(32))

	assert.Equal(t, []byte{
		asciiESC, '%', 1,
		asciiESC, '&', 3, 32, 32,
		2, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		asciiESC, '%', 0,
		asciiESC, '?', 32,
	}, stream.Written())
}

func TestSetDefaultsSequence(t *testing.T) {
	p, stream, clock := newTestPrinter(t, 268)
	clock.Sleep(time.Second)

	require.NoError(t, p.SetDefaults())

	expected := []byte{
		asciiESC, '=', 1, // 上线
		asciiESC, 'a', 0, // 左对齐
		asciiGS, 'B', 0, // 反白关
		asciiESC, '!', 0, asciiESC, 'M', 0, finCmd, asciiGS, '!', 0, finCmd, asciiESC, '3', 30, // 倍高关
		asciiESC, 'M', 0, finCmd, asciiGS, '!', 0, finCmd, asciiESC, '3', 30, // 行高 30
		asciiESC, '!', 0, asciiESC, 'M', 0, finCmd, asciiGS, '!', 0, finCmd, // 加粗关
		asciiESC, '-', 0, // 下划线关
		asciiGS, 'h', 50, // 条码高度
		asciiESC, '!', 0, asciiESC, 'M', 0, finCmd, asciiGS, '!', 0, finCmd, asciiESC, '3', 34, // 倍宽关
		asciiESC, '!', 0, asciiESC, 'M', 0, finCmd, asciiGS, '!', 0, finCmd, asciiESC, '3', 34, // 倍高关
		asciiESC, 'R', 0, // 字符集
		asciiESC, 't', 0, // 代码页
		asciiFS, '.', // 关闭汉字模式
	}
	assert.Equal(t, expected, stream.Written())

	assert.True(t, p.autoLineHeight)
	assert.Equal(t, 10, p.lineSpacing)
	assert.Equal(t, FontA, p.style.font)
	assert.Equal(t, 50, p.barcodeHeight)
}

func TestTestPrintsGreetingAndFeeds(t *testing.T) {
	p, stream, clock := newTestPrinter(t, 268)
	clock.Sleep(time.Second)

	require.NoError(t, p.Test())

	expected := append([]byte("Hello World!\n"), asciiESC, 'd', 2)
	assert.Equal(t, expected, stream.Written())
	assert.Equal(t, 0, p.column)
	assert.Equal(t, byte(asciiLF), p.prevByte)
}

func TestTestPageTiming(t *testing.T) {
	p, stream, clock := newTestPrinter(t, 268)
	clock.Sleep(time.Second)

	require.NoError(t, p.TestPage())
	assert.Equal(t, []byte{asciiDC2, 'T'}, stream.Written())

	expected := 30000*time.Microsecond*24*26 + 2100*time.Microsecond*(6*26+30)
	assert.Equal(t, expected, p.resumeAt.Sub(clock.Now()))
}

func TestSetTimes(t *testing.T) {
	p, _, clock := newTestPrinter(t, 268)
	clock.Sleep(time.Second)

	p.SetTimes(10*time.Millisecond, time.Millisecond)
	require.NoError(t, p.FeedRows(5))
	assert.Equal(t, 5*time.Millisecond, p.resumeAt.Sub(clock.Now()))
}
