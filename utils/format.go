package utils

import (
	"fmt"
	"math"
	"strconv"
)

const (
	keyDisplayLen = 16
	ellipsis      = "…"
)

var byteUnits = []string{"", "K", "M", "G", "T"}

// FormatBytes scales n by 1024 until it fits and prints at most one decimal,
// rounding half to even. 512 -> "512", 2048 -> "2K", 1572864 -> "1.5M".
func FormatBytes(n int64) string {
	v := float64(n)
	for _, unit := range byteUnits {
		if math.Abs(v) < 1024 {
			return formatDecimal(v) + unit
		}
		v /= 1024
	}
	return formatDecimal(v) + "P"
}

func formatDecimal(v float64) string {
	r := math.RoundToEven(v*10) / 10
	if r == 0 {
		return "0"
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// FormatDuration renders a handshake age in its largest whole unit.
// Zero means no handshake and prints "N/A".
func FormatDuration(sec int64) string {
	switch {
	case sec == 0:
		return "N/A"
	case sec < 60:
		return fmt.Sprintf("%ds", sec)
	case sec < 3600:
		return fmt.Sprintf("%dm", sec/60)
	case sec < 86400:
		return fmt.Sprintf("%dh", sec/3600)
	default:
		return fmt.Sprintf("%dd", sec/86400)
	}
}

// TruncateKey keeps the first 16 characters of a public key.
func TruncateKey(key string) string {
	r := []rune(key)
	if len(r) > keyDisplayLen {
		r = r[:keyDisplayLen]
	}
	return string(r) + ellipsis
}
