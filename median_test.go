package main

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMedian(t *testing.T) {
	cases := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{4, 1, 2, 3}, 2.5},
		{"single", []float64{5}, 5},
		{"duplicates", []float64{1, 1, 2, 2}, 1.5},
		{"negative", []float64{-3, 0, -1}, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := median(tc.values)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("median(%v) = %v, want %v", tc.values, got, tc.want)
			}
		})
	}
}

func TestMedianEmpty(t *testing.T) {
	_, err := median(nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
	if KindOf(err) != KindInvalidInput {
		t.Errorf("KindOf = %s", KindOf(err))
	}
}

func TestMedianDoesNotReorderInput(t *testing.T) {
	values := []float64{9, 3, 7, 1}
	orig := append([]float64(nil), values...)
	if _, err := median(values); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(orig, values); diff != "" {
		t.Fatal(diff)
	}
}

func TestMedianPermutationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	values := []float64{0.120, 0.031, 0.045, 0.300, 0.007, 0.099, 0.150}
	want, err := median(values)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		shuffled := append([]float64(nil), values...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got, err := median(shuffled)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("median(%v) = %v, want %v", shuffled, got, want)
		}
	}
}
