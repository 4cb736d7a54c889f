package printer

// 打印机配置命令使用的 ASCII 控制码
const (
	asciiTab = '\t' // 水平制表符
	asciiLF  = '\n' // 换行
	asciiFF  = '\f' // 换页
	asciiCR  = '\r' // 回车
	asciiDC2 = 18   // 设备控制2
	asciiDLE = 16   // 数据链路转义（状态查询）
	asciiESC = 27   // 转义
	asciiFS  = 28   // 字段分隔符
	asciiGS  = 29   // 组分隔符

	// 指令终止符，字体和字号命令不带终止符时打印机不执行
	finCmd = 12
)

// 打印模式位掩码（ESC ! 命令参数）
const (
	fontMask         = 1 << 0 // 字体选择位
	inverseMask      = 1 << 1 // 反白打印
	updownMask       = 1 << 2 // 倒置打印
	boldMask         = 1 << 3 // 加粗
	doubleHeightMask = 1 << 4 // 倍高
	doubleWidthMask  = 1 << 5 // 倍宽
	strikeMask       = 1 << 6 // 删除线
)

// textStyle 排版状态的结构化表示
// 设备侧是位打包的模式寄存器，仅在编码命令字节时打包
type textStyle struct {
	font         Font
	inverse      bool
	upsideDown   bool
	bold         bool
	doubleHeight bool
	doubleWidth  bool
	strike       bool
}

// printModeByte 打包成 ESC ! 命令的模式字节
func (s textStyle) printModeByte() byte {
	var b byte
	if s.inverse {
		b |= inverseMask
	}
	if s.upsideDown {
		b |= updownMask
	}
	if s.bold {
		b |= boldMask
	}
	if s.doubleHeight {
		b |= doubleHeightMask
	}
	if s.doubleWidth {
		b |= doubleWidthMask
	}
	if s.strike {
		b |= strikeMask
	}
	return b
}

// fontStyleByte 打包成 GS ! 命令使用的样式字节
func (s textStyle) fontStyleByte() byte {
	var b byte
	if s.doubleWidth {
		b |= 128
	}
	if s.doubleHeight {
		b |= 8
	}
	return b
}

// Font 打印机内置字体
type Font byte

const (
	FontA Font = 0 // 12x24 标准字体
	FontB Font = 1 // 9x24 窄体
	FontC Font = 2 // 9x17 窄小字体
	FontD Font = 3 // 8x16 单线小字体
	FontE Font = 4 // 16x16 衬线宽字体
)

// BarcodeType 条码类型
type BarcodeType byte

const (
	BarcodeUPCA    BarcodeType = 0
	BarcodeUPCE    BarcodeType = 1
	BarcodeEAN13   BarcodeType = 2
	BarcodeEAN8    BarcodeType = 3
	BarcodeCode39  BarcodeType = 4
	BarcodeITF     BarcodeType = 5
	BarcodeCodabar BarcodeType = 6
	BarcodeCode93  BarcodeType = 7
	BarcodeCode128 BarcodeType = 8
)

// StatusPage DLE EOT 状态页
type StatusPage byte

const (
	StatusPagePrinter StatusPage = 1 // 打印机状态（离线指示）
	StatusPageOffline StatusPage = 2 // 离线原因（上盖打开指示）
	StatusPageError   StatusPage = 3 // 错误原因（含温度/电压超限标志）
	StatusPagePaper   StatusPage = 4 // 纸卷传感器状态
)

// StatusUnavailable 状态查询超时未响应时的哨兵值
const StatusUnavailable = 255

// 纸卷传感器状态位，两位同时置位表示缺纸
const paperOutBits = 0b01100000

// 打印头宽度（点）
const dotsPerLine = 384
