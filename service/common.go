package service

import "math"

// round2 金额统一保留两位小数
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
