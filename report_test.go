package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestCalculateSummaries(t *testing.T) {
	var samples []TimingSample
	for i, total := range []int{10, 30, 20, 40} {
		samples = append(samples, TimingSample{
			Index: i + 1,
			Total: time.Duration(total) * time.Millisecond,
		})
	}

	summaries, err := calculateSummaries(samples)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != numDimensions {
		t.Fatalf("len = %d", len(summaries))
	}

	got := summaries[Total]
	want := DimensionSummary{
		Dimension: "total",
		Min:       0.010,
		Max:       0.040,
		Mean:      0.025,
		Median:    0.025,
		P90:       got.P90,
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Error(diff)
	}
	if got.P90 < got.Median || got.P90 > got.Max {
		t.Errorf("P90 = %v out of range", got.P90)
	}

	if s, err := calculateSummaries(nil); s != nil || err != nil {
		t.Errorf("empty: %v, %v", s, err)
	}
}

func TestPrintTables(t *testing.T) {
	samples := []TimingSample{
		{Index: 1, RemoteIP: "10.0.0.1", StatusCode: 200, Total: 12345 * time.Microsecond},
	}
	summaries, err := calculateSummaries(samples)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	printDetailTable(&buf, samples)
	printSummaryTable(&buf, &AggregateTiming{RemoteIP: "10.0.0.1", StatusCode: 200, Samples: 1}, summaries)

	out := buf.String()
	for _, want := range []string{"10.0.0.1", "0.012345", "redirect"} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}
