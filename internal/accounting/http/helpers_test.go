package http_test

import (
	"strconv"

	"github.com/shopspring/decimal"
)

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func mustDecimal(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}
