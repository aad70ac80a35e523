package sources

import (
	"fmt"
	"math"
	"strings"
)

// formatUSD renders a dollar amount the way market sites do: $12.3B, $450.0M
func formatUSD(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	abs := math.Abs(v)
	sign := ""
	if v < 0 {
		sign = "-"
	}
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("%s$%.1fT", sign, abs/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("%s$%.1fB", sign, abs/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%s$%.1fM", sign, abs/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%s$%.1fK", sign, abs/1e3)
	case abs >= 1:
		return fmt.Sprintf("%s$%.2f", sign, abs)
	case abs == 0:
		return "$0"
	default:
		return fmt.Sprintf("%s$%.6g", sign, abs)
	}
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%+.1f%%", v)
}

func yesNo(flag string) string {
	switch strings.TrimSpace(flag) {
	case "1":
		return "yes"
	case "0":
		return "no"
	default:
		return "unknown"
	}
}

// joinParts joins the non-empty parts with ", "
func joinParts(parts ...string) string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
