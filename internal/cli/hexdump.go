package cli

import (
	"io"

	"github.com/valyala/bytebufferpool"
)

const hexDigits = "0123456789abcdef"

// writeHexdump writes p as 16-byte rows, each prefixed by its region offset
// starting at base and followed by the printable ASCII column.
func writeHexdump(w io.Writer, base uint32, p []byte) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	for row := 0; row < len(p); row += 16 {
		end := min(row+16, len(p))
		line := p[row:end]

		appendHex32(buf, base+uint32(row))
		_ = buf.WriteByte(' ')
		for i := 0; i < 16; i++ {
			_ = buf.WriteByte(' ')
			if i == 8 {
				_ = buf.WriteByte(' ')
			}
			if i < len(line) {
				_ = buf.WriteByte(hexDigits[line[i]>>4])
				_ = buf.WriteByte(hexDigits[line[i]&0x0f])
			} else {
				_, _ = buf.WriteString("  ")
			}
		}
		_, _ = buf.WriteString("  |")
		for _, b := range line {
			if b < 0x20 || b > 0x7e {
				b = '.'
			}
			_ = buf.WriteByte(b)
		}
		_, _ = buf.WriteString("|\n")
	}

	_, err := w.Write(buf.B)
	return err
}

func appendHex32(buf *bytebufferpool.ByteBuffer, v uint32) {
	for shift := 28; shift >= 0; shift -= 4 {
		_ = buf.WriteByte(hexDigits[(v>>uint(shift))&0x0f])
	}
}
