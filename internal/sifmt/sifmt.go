// Package sifmt formats numbers with an SI magnitude prefix (k, M, G, ...),
// used by the throughput meter for human-readable rate display.
package sifmt

import (
	"fmt"
	"math"
	"strings"
)

const prefixes = "yzafpnum kMGTPEZY"

// Format renders value with an SI prefix scaled so that the mantissa has
// roughly digits significant figures, followed by base unit (e.g.
// Format(12345, "B", 3) -> "12.3kB").
func Format(value float64, baseUnit string, digits int) string {
	if digits <= 0 {
		digits = 3
	}

	l1000 := 0
	if value != 0 {
		l1000 = int(math.Floor(math.Log10(math.Abs(value)) / 3))
	}
	iprefix := l1000 + 8
	if iprefix > len(prefixes)-1 {
		iprefix = len(prefixes) - 1
	}
	if iprefix < 0 {
		iprefix = 0
	}

	scaled := value * math.Pow(1000, float64(-(iprefix - 8)))
	prefix := prefixes[iprefix]

	var places int
	if scaled != 0 {
		places = digits - int(math.Floor(math.Log10(math.Abs(scaled)))) - 1
	} else {
		places = digits - 1
	}
	if places < 0 {
		places = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%.*f", places, scaled)
	if prefix != ' ' {
		b.WriteByte(prefix)
	}
	b.WriteString(baseUnit)
	return b.String()
}
