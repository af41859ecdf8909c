// Package scratch holds a frame-scoped byte buffer for building transient
// strings (debug overlays) without per-frame allocations. Single-threaded
// usage: Init once, Reset every frame.
package scratch

import "strconv"

var buf []byte

// Init sets up the global scratch buffer. Call once at startup.
func Init(capacity int) {
	if capacity <= 0 {
		capacity = 1024
	}
	buf = make([]byte, 0, capacity)
}

// Reset clears the buffer length without freeing memory. Call once per
// frame, before overlay text is built.
func Reset() { buf = buf[:0] }

// Cap returns the current capacity. Useful for tuning.
func Cap() int { return cap(buf) }

// Sprintf formats into the scratch buffer and returns a copied string.
// Supports a tiny subset: %s %d %f (with .prec) %%.
func Sprintf(format string, args ...any) string {
	var ai int
	mark := len(buf)
	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '%' {
			buf = append(buf, ch)
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			buf = append(buf, '%')
			i++
			continue
		}
		i++
		prec := -1
		if i < len(format) && format[i] == '.' {
			i++
			start := i
			for i < len(format) && format[i] >= '0' && format[i] <= '9' {
				i++
			}
			prec = parseUint(format[start:i])
		}
		if i >= len(format) || ai >= len(args) {
			break
		}
		switch format[i] {
		case 's':
			if s, ok := args[ai].(string); ok {
				buf = append(buf, s...)
			}
		case 'd':
			buf = strconv.AppendInt(buf, toInt64(args[ai]), 10)
		case 'f':
			p := 3
			if prec >= 0 {
				p = prec
			}
			buf = strconv.AppendFloat(buf, toFloat64(args[ai]), 'f', p, 64)
		default:
			buf = append(buf, '%', format[i])
		}
		ai++
	}
	return string(buf[mark:])
}

func parseUint(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch x := v.(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	default:
		return 0
	}
}
