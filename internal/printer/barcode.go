package printer

import "time"

// SetBarcodeHeight 设置条码高度（点），默认 50
func (p *Printer) SetBarcodeHeight(val byte) error {
	if val < 1 {
		val = 1
	}
	p.barcodeHeight = int(val)
	return p.writeBytes(asciiGS, 'h', val)
}

// PrintBarcode 打印条码，可读文本印在条码下方
func (p *Printer) PrintBarcode(text string, barType BarcodeType) error {
	// 新固件不先走一行纸就打不出条码
	if err := p.Feed(1); err != nil {
		return err
	}

	code := byte(barType)
	if p.caps.BarcodeLetteredTypes {
		code += 65
	}

	if err := p.writeBytes(asciiGS, 'H', 2); err != nil { // 文本印在条码下方
		return err
	}
	if err := p.writeBytes(asciiGS, 'w', 3); err != nil { // 条宽 3（细 0.375 / 粗 1.0 毫米）
		return err
	}
	if err := p.writeBytes(asciiGS, 'k', code); err != nil { // 条码类型
		return err
	}

	if p.caps.BarcodeLetteredTypes {
		// 新固件先发长度字节再发内容
		n := len(text)
		if n > 255 {
			n = 255
		}
		if err := p.writeBytes(byte(n)); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := p.writeBytes(text[i]); err != nil {
				return err
			}
		}
	} else {
		// 旧固件以 NUL 结尾
		for i := 0; i < len(text); i++ {
			if err := p.writeBytes(text[i]); err != nil {
				return err
			}
		}
		if err := p.writeBytes(0); err != nil {
			return err
		}
	}

	p.timeoutSet(time.Duration(p.barcodeHeight+40) * p.dotPrintTime)
	p.prevByte = asciiLF
	return nil
}
