package model

// Itoa is a minimal int-to-string converter for hot-path usage.
func Itoa(n int) string {
	if n == 0 {
		return "0"
	}
	buf := [20]byte{}
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// SeriesName builds display names such as "SMA_20" or "EMA_50".
func SeriesName(kind string, period int) string {
	return kind + "_" + Itoa(period)
}
