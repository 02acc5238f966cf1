// Package precision 处理交易所步长、精度与数值量化。
package precision

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FromStep 由步长字符串推导小数位数：首个 "1" 的下标减一，不小于 0。
// 交易所以 "0.01000000" 这样的字符串表达精度，"1.00000000" 得到 0。
func FromStep(step string) (int, error) {
	idx := strings.Index(step, "1")
	if idx < 0 {
		return 0, fmt.Errorf("precision: 步长 %q 中不存在数字 1", step)
	}
	if idx < 1 {
		return 0, nil
	}
	return idx - 1, nil
}

// Round 将数值四舍五入到指定小数位，负数位表示整数位取整。
func Round(value float64, places int) float64 {
	return decimal.NewFromFloat(value).Round(int32(places)).InexactFloat64()
}

// Format 生成提交给交易所的定点字符串。
func Format(value float64, places int) string {
	if places < 0 {
		places = 0
	}
	return decimal.NewFromFloat(value).StringFixed(int32(places))
}
