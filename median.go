package main

import (
	"github.com/montanaflynn/stats"
)

// median 返回样本的中位数
// 输入无需有序，调用方的切片不会被重排（stats 内部对副本排序）。
// 奇数个取中间值，偶数个取中间两个值的平均。
func median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, invalidInputf("median", "empty sample")
	}
	m, err := stats.Median(stats.Float64Data(values))
	if err != nil {
		return 0, newError(KindInvalidInput, "median", err)
	}
	return m, nil
}
