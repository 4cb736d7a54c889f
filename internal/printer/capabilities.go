package printer

// Capabilities 描述特定固件版本支持的命令集
// 固件版本号按十进制表示，如 2.68 对应 268
type Capabilities struct {
	// TabStops 固件是否支持 ESC D 配置制表位
	TabStops bool
	// LineFeedCommand 固件是否支持 ESC d 按行走纸
	// 旧固件的 ESC d 会多走纸，只能逐个写换行符
	LineFeedCommand bool
	// WideSleepArg ESC 8 休眠命令是否接受 16 位秒数
	WideSleepArg bool
	// BarcodeLetteredTypes 条码类型是否使用字母编码（类型值加 65）并带长度字节
	BarcodeLetteredTypes bool
	// SleepOffOnWake 唤醒后是否需要发送关闭休眠命令
	SleepOffOnWake bool
	// InverseCommand 反白是否使用独立的 GS B 命令（否则走打印模式位）
	InverseCommand bool
	// UpsideDownCommand 倒置是否使用独立的 ESC { 命令（否则走打印模式位）
	UpsideDownCommand bool
}

// capabilitiesFor 根据固件版本解析命令集
func capabilitiesFor(firmware int) Capabilities {
	return Capabilities{
		TabStops:             firmware >= 264,
		LineFeedCommand:      firmware >= 264,
		WideSleepArg:         firmware >= 264,
		BarcodeLetteredTypes: firmware >= 264,
		SleepOffOnWake:       firmware >= 264,
		InverseCommand:       firmware >= 268,
		UpsideDownCommand:    firmware >= 268,
	}
}
