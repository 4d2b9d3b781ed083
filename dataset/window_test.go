package dataset

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestWindowStarts(t *testing.T) {
	starts, err := WindowStarts(10, 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 2, 4, 6}
	if !reflect.DeepEqual(starts, want) {
		t.Errorf("starts = %v, want %v", starts, want)
	}
}

func TestWindowStartsErrors(t *testing.T) {
	if _, err := WindowStarts(10, 1, 1); err == nil {
		t.Error("expected error for horizon below 2")
	}
	if _, err := WindowStarts(10, 4, 0); err == nil {
		t.Error("expected error for zero stride")
	}
	if _, err := WindowStarts(3, 4, 1); err == nil {
		t.Error("expected error for series shorter than horizon")
	}
}

func TestWindowStartsExactFit(t *testing.T) {
	starts, err := WindowStarts(4, 4, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(starts) != 1 || starts[0] != 0 {
		t.Errorf("starts = %v, want [0]", starts)
	}
}

func TestBatchesDeterministicPerSeed(t *testing.T) {
	starts := []int{0, 1, 2, 3, 4, 5, 6, 7}

	a := Batches(starts, 3, rand.New(rand.NewSource(42)))
	b := Batches(starts, 3, rand.New(rand.NewSource(42)))
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different batch orders")
	}

	c := Batches(starts, 3, rand.New(rand.NewSource(43)))
	if reflect.DeepEqual(a, c) {
		t.Error("different seeds produced identical batch orders")
	}
}

func TestBatchesCoverEveryStartOnce(t *testing.T) {
	starts := []int{0, 1, 2, 3, 4, 5, 6}
	batches := Batches(starts, 2, rand.New(rand.NewSource(1)))

	seen := map[int]int{}
	for _, batch := range batches {
		if len(batch) > 2 {
			t.Fatalf("batch of size %d exceeds limit", len(batch))
		}
		for _, s := range batch {
			seen[s]++
		}
	}
	for _, s := range starts {
		if seen[s] != 1 {
			t.Errorf("start %d appeared %d times", s, seen[s])
		}
	}
}

func TestBatchesFullBatchWhenSizeZero(t *testing.T) {
	starts := []int{3, 1, 2}
	batches := Batches(starts, 0, rand.New(rand.NewSource(1)))
	if len(batches) != 1 || len(batches[0]) != 3 {
		t.Errorf("expected one full batch, got %v", batches)
	}
}
