package splitter

import (
	"math"
	"strconv"
	"strings"
)

// formatFloat 按 repr 风格输出浮点数：整数值保留 ".0"，极大极小值使用科学计数法。
// 错误信息中的数值格式是对外接口的一部分。
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	abs := math.Abs(v)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
