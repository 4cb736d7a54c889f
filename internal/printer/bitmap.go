package printer

import (
	"bufio"
	"io"
	"time"

	"github.com/wfunc/thermal-printer/internal/errors"
)

// 位图一行最多 48 字节（384 点）
const maxRowBytes = dotsPerLine / 8

// bitmapChunkLimit 估算一次可以下发的最大行数
// 无流控时按 256 字节打印缓冲区计算，有流控时缓冲区无所谓
func (p *Printer) bitmapChunkLimit(rowBytesClipped int) int {
	if p.dtrEnabled {
		return 255
	}
	limit := 256 / rowBytesClipped
	if limit > p.maxChunkHeight {
		limit = p.maxChunkHeight
	} else if limit < 1 {
		limit = 1
	}
	return limit
}

// PrintBitmap 打印单色位图
// 位图按行存储，每字节 8 个点，高位在前；宽度超过 384 点的部分被裁掉
func (p *Printer) PrintBitmap(width, height int, bitmap []byte) error {
	if width < 1 || height < 1 {
		return errors.Newf(errors.ErrBitmapSource,
			"bitmap dimensions invalid: %dx%d", width, height)
	}

	rowBytes := (width + 7) / 8 // 向上取整到字节
	rowBytesClipped := rowBytes
	if rowBytesClipped >= maxRowBytes {
		rowBytesClipped = maxRowBytes
	}

	if len(bitmap) < rowBytes*height {
		return errors.Newf(errors.ErrBitmapSource,
			"bitmap data too short: need %d bytes, got %d", rowBytes*height, len(bitmap))
	}

	chunkHeightLimit := p.bitmapChunkLimit(rowBytesClipped)

	i := 0
	for rowStart := 0; rowStart < height; rowStart += chunkHeightLimit {
		// 每次最多下发 chunkHeightLimit 行
		chunkHeight := height - rowStart
		if chunkHeight > chunkHeightLimit {
			chunkHeight = chunkHeightLimit
		}

		if err := p.writeBytes(asciiDC2, '*', byte(chunkHeight), byte(rowBytesClipped)); err != nil {
			return err
		}

		for y := 0; y < chunkHeight; y++ {
			for x := 0; x < rowBytesClipped; x++ {
				p.timeoutWait()
				if err := p.stream.WriteByte(bitmap[i]); err != nil {
					return err
				}
				i++
			}
			// 跳过被裁掉的行尾字节
			i += rowBytes - rowBytesClipped
		}
		p.timeoutSet(time.Duration(chunkHeight) * p.dotPrintTime)
	}
	p.prevByte = asciiLF
	return nil
}

// PrintBitmapFromReader 从数据流打印单色位图
// 数据流必须恰好提供 rowBytes*height 字节，被裁掉的行尾字节照常消费
func (p *Printer) PrintBitmapFromReader(width, height int, r io.Reader) error {
	if width < 1 || height < 1 {
		return errors.Newf(errors.ErrBitmapSource,
			"bitmap dimensions invalid: %dx%d", width, height)
	}

	rowBytes := (width + 7) / 8
	rowBytesClipped := rowBytes
	if rowBytesClipped >= maxRowBytes {
		rowBytesClipped = maxRowBytes
	}

	chunkHeightLimit := p.bitmapChunkLimit(rowBytesClipped)

	br := bufio.NewReader(r)

	for rowStart := 0; rowStart < height; rowStart += chunkHeightLimit {
		chunkHeight := height - rowStart
		if chunkHeight > chunkHeightLimit {
			chunkHeight = chunkHeightLimit
		}

		if err := p.writeBytes(asciiDC2, '*', byte(chunkHeight), byte(rowBytesClipped)); err != nil {
			return err
		}

		for y := 0; y < chunkHeight; y++ {
			for x := 0; x < rowBytesClipped; x++ {
				b, err := br.ReadByte()
				if err != nil {
					return errors.Wrap(err, errors.ErrBitmapSource, "read bitmap data")
				}
				p.timeoutWait()
				if err := p.stream.WriteByte(b); err != nil {
					return err
				}
			}
			// 消费但不下发被裁掉的字节
			for i := rowBytes - rowBytesClipped; i > 0; i-- {
				if _, err := br.ReadByte(); err != nil {
					return errors.Wrap(err, errors.ErrBitmapSource, "read bitmap data")
				}
			}
		}
		p.timeoutSet(time.Duration(chunkHeight) * p.dotPrintTime)
	}
	p.prevByte = asciiLF
	return nil
}

// PrintBitmapStream 从带尺寸头的数据流打印单色位图
// 头部为小端 16 位宽度和高度，后接位图数据
func (p *Printer) PrintBitmapStream(r io.Reader) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return errors.Wrap(err, errors.ErrBitmapSource, "read bitmap header")
	}

	width := int(header[0]) | int(header[1])<<8
	height := int(header[2]) | int(header[3])<<8

	return p.PrintBitmapFromReader(width, height, r)
}
