package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// scriptedProbe 按顺序返回预设样本
type scriptedProbe struct {
	samples []TimingSample
	failAt  int // 第几次调用失败（从 1 开始），0 表示不失败
	calls   int
}

func (p *scriptedProbe) Probe(ctx context.Context) (TimingSample, error) {
	p.calls++
	if p.failAt == p.calls {
		return TimingSample{}, newError(KindTransportFailure, "probe", errors.New("connection refused"))
	}
	return p.samples[(p.calls-1)%len(p.samples)], nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func sampleMs(ip string, code int, nl, c, ac, pt, st, total, redir int) TimingSample {
	return TimingSample{
		RemoteIP:      ip,
		StatusCode:    code,
		NameLookup:    ms(nl),
		Connect:       ms(c),
		AppConnect:    ms(ac),
		PreTransfer:   ms(pt),
		StartTransfer: ms(st),
		Total:         ms(total),
		Redirect:      ms(redir),
	}
}

func configWith(t *testing.T, n, intervalMs int) *ProbeConfig {
	t.Helper()
	cfg := NewProbeConfig()
	if err := cfg.SetNumRequests(n); err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetIntervalMs(intervalMs); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestSamplerMedians(t *testing.T) {
	probe := &scriptedProbe{samples: []TimingSample{
		sampleMs("10.0.0.1", 200, 5, 10, 10, 11, 40, 50, 0),
		sampleMs("10.0.0.2", 301, 1, 3, 3, 4, 20, 90, 2),
		sampleMs("10.0.0.3", 200, 3, 7, 7, 8, 30, 70, 0),
		sampleMs("10.0.0.4", 200, 9, 20, 25, 26, 60, 60, 8),
		sampleMs("10.0.0.5", 200, 2, 4, 4, 5, 10, 80, 1),
	}}

	s := &Sampler{Probe: probe}
	agg, err := s.Run(context.Background(), configWith(t, 5, 0))
	if err != nil {
		t.Fatal(err)
	}

	want := &AggregateTiming{
		RemoteIP:      "10.0.0.1",
		StatusCode:    200,
		Samples:       5,
		NameLookup:    ms(3).Seconds(),
		Connect:       ms(7).Seconds(),
		AppConnect:    ms(7).Seconds(),
		PreTransfer:   ms(8).Seconds(),
		StartTransfer: ms(30).Seconds(),
		Total:         ms(70).Seconds(),
		Redirect:      ms(1).Seconds(),
	}
	if diff := cmp.Diff(want, agg, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Fatal(diff)
	}
	if probe.calls != 5 {
		t.Errorf("calls = %d", probe.calls)
	}
}

func TestSamplerEvenCount(t *testing.T) {
	probe := &scriptedProbe{samples: []TimingSample{
		sampleMs("10.0.0.1", 200, 4, 4, 4, 4, 4, 40, 0),
		sampleMs("10.0.0.1", 200, 1, 1, 1, 1, 1, 10, 0),
		sampleMs("10.0.0.1", 200, 2, 2, 2, 2, 2, 20, 0),
		sampleMs("10.0.0.1", 200, 3, 3, 3, 3, 3, 30, 0),
	}}
	agg, err := (&Sampler{Probe: probe}).Run(context.Background(), configWith(t, 4, 0))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(0.025, agg.Total, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff(0.0025, agg.NameLookup, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Error(diff)
	}
}

func TestSamplerAbortsOnFailure(t *testing.T) {
	probe := &scriptedProbe{
		samples: []TimingSample{sampleMs("10.0.0.1", 200, 1, 2, 2, 3, 4, 5, 0)},
		failAt:  3,
	}
	var seen []int
	s := &Sampler{
		Probe:    probe,
		OnSample: func(index, total int, _ TimingSample) { seen = append(seen, index) },
	}

	agg, err := s.Run(context.Background(), configWith(t, 5, 0))
	if agg != nil {
		t.Fatalf("expected no aggregate, got %+v", agg)
	}
	if !errors.Is(err, ErrTransportFailure) {
		t.Fatalf("expected TransportFailure, got %v", err)
	}
	if probe.calls != 3 {
		t.Errorf("calls = %d, want 3", probe.calls)
	}
	if diff := cmp.Diff([]int{1, 2}, seen); diff != "" {
		t.Error(diff)
	}
}

func TestSamplerZeroRequestsUsesDefault(t *testing.T) {
	probe := &scriptedProbe{samples: []TimingSample{sampleMs("10.0.0.1", 200, 1, 2, 2, 3, 4, 5, 0)}}
	agg, err := (&Sampler{Probe: probe}).Run(context.Background(), configWith(t, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if probe.calls != DefaultNumRequests || agg.Samples != DefaultNumRequests {
		t.Errorf("calls = %d, samples = %d", probe.calls, agg.Samples)
	}
}

func TestSamplerSleepsBetweenRequests(t *testing.T) {
	probe := &scriptedProbe{samples: []TimingSample{sampleMs("10.0.0.1", 200, 1, 2, 2, 3, 4, 5, 0)}}
	var sleeps []time.Duration
	s := &Sampler{
		Probe: probe,
		Sleep: func(d time.Duration) { sleeps = append(sleeps, d) },
	}
	if _, err := s.Run(context.Background(), configWith(t, 4, 150)); err != nil {
		t.Fatal(err)
	}
	want := []time.Duration{ms(150), ms(150), ms(150)}
	if diff := cmp.Diff(want, sleeps); diff != "" {
		t.Fatal(diff)
	}
}

func TestSamplerCanceled(t *testing.T) {
	probe := &scriptedProbe{samples: []TimingSample{sampleMs("10.0.0.1", 200, 1, 2, 2, 3, 4, 5, 0)}}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sampler{
		Probe: probe,
		OnSample: func(index, _ int, _ TimingSample) {
			if index == 2 {
				cancel()
			}
		},
	}
	agg, err := s.Run(ctx, configWith(t, 5, 0))
	if agg != nil || KindOf(err) != KindCanceled {
		t.Fatalf("agg = %v, err = %v", agg, err)
	}
	if probe.calls != 2 {
		t.Errorf("calls = %d, want 2", probe.calls)
	}
}

func TestTimingSeries(t *testing.T) {
	const n = 6
	series := newTimingSeries(n)
	for i := 0; i < n; i++ {
		series.Append(sampleMs("10.0.0.1", 200, i, i+1, i+2, i+3, i+4, i+5, i))
	}
	if series.Len() != n {
		t.Errorf("Len = %d", series.Len())
	}
	if series.Count() != numDimensions*n {
		t.Errorf("Count = %d, want %d", series.Count(), numDimensions*n)
	}

	medians, err := series.Reduce()
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range allDimensions {
		want, err := median(series.Column(d))
		if err != nil {
			t.Fatal(err)
		}
		if medians[d] != want {
			t.Errorf("%s: %v != %v", d, medians[d], want)
		}
	}

	if _, err := newTimingSeries(0).Reduce(); KindOf(err) != KindInvalidInput {
		t.Errorf("empty Reduce = %v", err)
	}
}

func TestSKTestLineEndToEnd(t *testing.T) {
	cfg := configWith(t, 3, 0)
	if err := cfg.AddHeader("X-Probe: 1"); err != nil {
		t.Fatal(err)
	}

	fixed := TimingSample{
		RemoteIP:      "93.184.216.34",
		StatusCode:    200,
		NameLookup:    12345 * time.Microsecond,
		Connect:       45678 * time.Microsecond,
		AppConnect:    45678 * time.Microsecond,
		PreTransfer:   45700 * time.Microsecond,
		StartTransfer: 67890 * time.Microsecond,
		Total:         123456 * time.Microsecond,
	}
	probe := &scriptedProbe{samples: []TimingSample{fixed}}

	agg, err := (&Sampler{Probe: probe}).Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if probe.calls != 3 {
		t.Errorf("calls = %d", probe.calls)
	}

	want := "SKTEST;93.184.216.34;200;0.012345;0.045678;0.067890;0.123456"
	if got := agg.SKTestLine(); got != want {
		t.Errorf("line = %q, want %q", got, want)
	}
}
