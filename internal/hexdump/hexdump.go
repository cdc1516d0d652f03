// Package hexdump renders the classic 16-bytes-per-line hex/ASCII dump used
// for --verbose frame tracing, ported byte-for-byte from the original
// hexdump.c layout.
package hexdump

import (
	"bytes"
	"fmt"
	"io"
)

const step = 16

// Dump writes title followed by a hex/ASCII dump of buf to w.
func Dump(w io.Writer, title string, buf []byte) {
	fmt.Fprintln(w, title)
	for i := 0; i < len(buf); i += step {
		fmt.Fprintf(w, "%04x |", i)
		for j := 0; j < step; j++ {
			k := i + j
			if j%4 == 0 {
				fmt.Fprint(w, " ")
			}
			if k < len(buf) {
				fmt.Fprintf(w, " %02x", buf[k])
			} else {
				fmt.Fprint(w, "   ")
			}
		}
		fmt.Fprint(w, " |")
		for j := 0; j < step; j++ {
			k := i + j
			c := byte(' ')
			if k < len(buf) {
				c = buf[k]
			}
			if c <= 32 {
				c = '.'
			}
			if j%4 == 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprintf(w, "%c", c)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}

// String is a convenience for callers (e.g. zerolog) that want the dump as
// a single string rather than written to an io.Writer.
func String(title string, buf []byte) string {
	var b bytes.Buffer
	Dump(&b, title, buf)
	return b.String()
}
