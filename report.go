package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"
)

// ===============================
// 统计计算
// ===============================

// 计算每个维度的汇总统计
func calculateSummaries(samples []TimingSample) ([]DimensionSummary, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	series := newTimingSeries(len(samples))
	for _, s := range samples {
		series.Append(s)
	}

	summaries := make([]DimensionSummary, 0, numDimensions)
	for _, d := range allDimensions {
		data := stats.Float64Data(series.Column(d))

		summary := DimensionSummary{Dimension: d.String()}
		var err error
		if summary.Min, err = stats.Min(data); err != nil {
			return nil, err
		}
		if summary.Max, err = stats.Max(data); err != nil {
			return nil, err
		}
		if summary.Mean, err = stats.Mean(data); err != nil {
			return nil, err
		}
		if summary.Median, err = median(data); err != nil {
			return nil, err
		}
		// 样本太少时 Percentile 返回越界错误，退化为最大值
		if summary.P90, err = stats.Percentile(data, 90); err != nil {
			summary.P90 = summary.Max
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// ===============================
// 输出
// ===============================

// 打印详细结果表格
func printDetailTable(w io.Writer, samples []TimingSample) {
	fmt.Fprintln(w, "\n📊 详细结果 (s):")

	header := []string{"序号", "IP", "状态码", "连接"}
	for _, d := range allDimensions {
		header = append(header, d.String())
	}
	table := tablewriter.NewTable(w, tablewriter.WithHeader(header))

	for _, s := range samples {
		reusedStr := "No"
		if s.Reused {
			reusedStr = "Yes"
		}
		row := []string{
			fmt.Sprintf("%d", s.Index),
			s.RemoteIP,
			fmt.Sprintf("%d", s.StatusCode),
			reusedStr,
		}
		for _, d := range allDimensions {
			row = append(row, fmt.Sprintf("%.6f", s.Value(d)))
		}
		table.Append(row)
	}

	table.Render()
}

// 打印汇总表格
func printSummaryTable(w io.Writer, agg *AggregateTiming, summaries []DimensionSummary) {
	fmt.Fprintf(w, "\n📈 汇总统计 (%s %d, %d 个样本):\n",
		agg.RemoteIP, agg.StatusCode, agg.Samples)

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"维度", "中位数", "均值", "P90", "最小", "最大"}),
	)

	for _, s := range summaries {
		table.Append([]string{
			s.Dimension,
			color.CyanString("%.6f", s.Median),
			fmt.Sprintf("%.6f", s.Mean),
			fmt.Sprintf("%.6f", s.P90),
			fmt.Sprintf("%.6f", s.Min),
			fmt.Sprintf("%.6f", s.Max),
		})
	}

	table.Render()
	fmt.Fprintln(w, "\n💡 说明: 所有时间单位均为秒(s)，均从每次请求开始累计")
	fmt.Fprintln(w, "   - redirect: 最终请求之前所有重定向的耗时")
	fmt.Fprintln(w, "   - 结果行只输出 namelookup/connect/starttransfer/total")
}
