package core

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func TestSampler_Distribution(t *testing.T) {
	tracks := testTracks("A", "B", "C")
	overrides := []WeightOverride{
		{Name: "A", Weight: 1, Line: 1},
		{Name: "B", Weight: 3, Line: 2},
		{Name: "C", Weight: 6, Line: 3},
	}
	table, err := BuildWeightTable(tracks, overrides, nil)
	if err != nil {
		t.Fatalf("BuildWeightTable() error = %v", err)
	}

	sampler := NewSampler(rand.New(rand.NewPCG(1, 2)))
	const draws = 100000
	counts := make(map[string]int)
	for range draws {
		track, err := sampler.Sample(table)
		if err != nil {
			t.Fatalf("Sample() error = %v", err)
		}
		counts[track.ID]++
	}

	expected := map[string]float64{"id-A": 0.1, "id-B": 0.3, "id-C": 0.6}
	for id, want := range expected {
		got := float64(counts[id]) / draws
		if math.Abs(got-want) > 0.01 {
			t.Errorf("frequency of %s = %.4f, want %.2f ± 0.01", id, got, want)
		}
	}
}

func TestSampler_ZeroWeightNeverPicked(t *testing.T) {
	overrides := []WeightOverride{{Name: "B", Weight: 0, Line: 1}}
	table, err := BuildWeightTable(testTracks("A", "B", "C"), overrides, nil)
	if err != nil {
		t.Fatalf("BuildWeightTable() error = %v", err)
	}

	sampler := NewSampler(rand.New(rand.NewPCG(7, 7)))
	for range 10000 {
		track, err := sampler.Sample(table)
		if err != nil {
			t.Fatalf("Sample() error = %v", err)
		}
		if track.ID == "id-B" {
			t.Fatal("Sample() picked a zero-weight track")
		}
	}
}

func TestSampler_EmptyTable(t *testing.T) {
	allZero, err := BuildWeightTable(testTracks("A"), []WeightOverride{{Name: "A", Weight: 0}}, nil)
	if err != nil {
		t.Fatalf("BuildWeightTable() error = %v", err)
	}
	empty, err := BuildWeightTable(nil, nil, nil)
	if err != nil {
		t.Fatalf("BuildWeightTable() error = %v", err)
	}

	tests := []struct {
		name  string
		table *WeightTable
	}{
		{"No tracks", empty},
		{"All weights zero", allZero},
		{"Nil table", nil},
	}

	sampler := NewSampler(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sampler.Sample(tt.table); !errors.Is(err, ErrEmptyTable) {
				t.Errorf("Sample() error = %v, want ErrEmptyTable", err)
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	overrides := []WeightOverride{
		{Name: "A", Weight: 2, Line: 1},
		{Name: "B", Weight: 0, Line: 2},
	}
	table, err := BuildWeightTable(testTracks("A", "B", "C"), overrides, nil)
	if err != nil {
		t.Fatalf("BuildWeightTable() error = %v", err)
	}

	got := Snapshot(table)
	want := []string{"id-A", "id-A", "id-C"}
	if len(got) != len(want) {
		t.Fatalf("Snapshot() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
