package main

import (
	"context"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
)

// ===============================
// 采样与汇总
// ===============================

// TimingSeries 按 [维度][样本序号] 存放一次运行的全部测量值（秒）
type TimingSeries struct {
	columns [numDimensions][]float64
}

// newTimingSeries 预分配 n 个样本的空间
func newTimingSeries(n int) *TimingSeries {
	s := &TimingSeries{}
	for i := range s.columns {
		s.columns[i] = make([]float64, 0, n)
	}
	return s
}

// Append 记录一个样本的 7 个维度
func (s *TimingSeries) Append(sample TimingSample) {
	for _, d := range allDimensions {
		s.columns[d] = append(s.columns[d], sample.Value(d))
	}
}

// Len 返回样本数
func (s *TimingSeries) Len() int {
	return len(s.columns[0])
}

// Count 返回总值数（维度数 × 样本数）
func (s *TimingSeries) Count() int {
	n := 0
	for _, c := range s.columns {
		n += len(c)
	}
	return n
}

// Column 返回某个维度的全部取值
func (s *TimingSeries) Column(d Dimension) []float64 {
	return s.columns[d]
}

// Reduce 对每个维度取中位数
func (s *TimingSeries) Reduce() ([numDimensions]float64, error) {
	var out [numDimensions]float64
	for _, d := range allDimensions {
		m, err := median(s.columns[d])
		if err != nil {
			return out, err
		}
		out[d] = m
	}
	return out, nil
}

// Sampler 按配置顺序执行 N 次探测并汇总
type Sampler struct {
	Probe  Prober
	Logger log.Interface

	// Sleep 请求间隔等待，默认 time.Sleep（不可中断）
	Sleep func(time.Duration)

	// OnSample 每个成功样本的回调（可选）
	OnSample func(index, total int, sample TimingSample)
}

// Run 执行一次完整运行
// 任一请求失败即中止，不产生部分结果。
func (s *Sampler) Run(ctx context.Context, cfg *ProbeConfig) (*AggregateTiming, error) {
	logger := s.Logger
	if logger == nil {
		logger = &log.Logger{Handler: discard.Default}
	}
	sleep := s.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	n := cfg.NumRequests()
	if n < 0 {
		return nil, invalidInputf("run", "negative request count %d", n)
	}
	if n == 0 {
		n = DefaultNumRequests
	}
	interval := cfg.Interval()

	series := newTimingSeries(n)
	agg := &AggregateTiming{}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			logger.WithField("completed", i).Debug("aborted")
			return nil, newError(KindCanceled, "run", err)
		}

		logger.WithField("index", i+1).Debug("probing")
		sample, err := s.Probe.Probe(ctx)
		if err != nil {
			logger.WithError(err).WithField("index", i+1).Debug("aborted")
			return nil, err
		}
		sample.Index = i + 1

		series.Append(sample)
		if i == 0 {
			agg.RemoteIP = sample.RemoteIP
			agg.StatusCode = sample.StatusCode
		}
		if s.OnSample != nil {
			s.OnSample(i+1, n, sample)
		}

		if i < n-1 && interval > 0 {
			sleep(interval)
		}
	}

	logger.WithField("values", series.Count()).Debug("reducing")
	medians, err := series.Reduce()
	if err != nil {
		return nil, err
	}
	for _, d := range allDimensions {
		agg.setValue(d, medians[d])
	}
	agg.Samples = series.Len()

	logger.Debug("done")
	return agg, nil
}

// RunHTTP 使用真实 HTTP 探测器执行一次运行，结束后释放连接
func RunHTTP(ctx context.Context, cfg *ProbeConfig, logger log.Interface, onSample func(int, int, TimingSample)) (*AggregateTiming, error) {
	probe := NewHTTPProbe(cfg)
	defer probe.Close()

	s := &Sampler{
		Probe:    probe,
		Logger:   logger,
		OnSample: onSample,
	}
	return s.Run(ctx, cfg)
}
