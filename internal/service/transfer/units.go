package transfer

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const ethDecimals = 18

// ParseUnits 把十进制金额转换为最小单位 (wei / token base units)
// 金额必须为正，小数位不能超过 decimals
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatUnits ParseUnits 的逆操作，用于展示
func FormatUnits(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}
