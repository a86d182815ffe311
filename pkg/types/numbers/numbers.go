package numbers

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// SumWei adds wei amounts stored as decimal strings. Sums are exact at
// arbitrary precision; uint256 balances overflow every native type.
func SumWei(values ...string) (string, error) {
	sum := decimal.Zero
	for _, v := range values {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return "", err
		}
		sum = sum.Add(d)
	}
	return sum.String(), nil
}

// WeiEqual compares two wei amounts numerically, so "01000" and "1000"
// are equal.
func WeiEqual(a, b string) (bool, error) {
	na, err := decimal.NewFromString(a)
	if err != nil {
		return false, err
	}
	nb, err := decimal.NewFromString(b)
	if err != nil {
		return false, err
	}
	return na.Equal(nb), nil
}

// WeiGreaterThan reports a > b for wei amounts stored as strings.
func WeiGreaterThan(a, b string) (bool, error) {
	na, err := decimal.NewFromString(a)
	if err != nil {
		return false, err
	}
	nb, err := decimal.NewFromString(b)
	if err != nil {
		return false, err
	}
	return na.GreaterThan(nb), nil
}

// HexToWei converts a 0x-prefixed hex quantity into a decimal wei string.
func HexToWei(hexValue string) (string, error) {
	if len(hexValue) < 3 || hexValue[0:2] != "0x" {
		return "", errors.Errorf("invalid hex quantity '%s'", hexValue)
	}
	v, ok := new(big.Int).SetString(hexValue[2:], 16)
	if !ok {
		return "", errors.Errorf("invalid hex quantity '%s'", hexValue)
	}
	return v.String(), nil
}
