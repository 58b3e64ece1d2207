package model

import "math"

// RoundMoney rounds a monetary amount to two decimal places, half up.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}
