package rng

import (
	"errors"
	"testing"
)

func TestKnownSequence(t *testing.T) {
	cases := []struct {
		seed uint64
		want []uint64
	}{
		{13371339, []uint64{13444238, 6469139582337405883, 17345283128061831349, 7311323717987944679}},
		{0, []uint64{74565, 4125748219644324638, 7137747012757225472, 1225568407535451820}},
		{42, []uint64{74607, 7388429157571046288, 3566473258469425152, 15586059210968897721}},
	}
	for _, tc := range cases {
		r := New(tc.seed)
		for i, w := range tc.want {
			if got := r.Next(); got != w {
				t.Fatalf("seed %d draw %d: expected %d, got %d", tc.seed, i, w, got)
			}
		}
	}
}

func TestBelowKnownValues(t *testing.T) {
	r := New(7)
	want := []uint64{2, 3, 8, 6, 2, 0, 7, 2, 3, 9}
	for i, w := range want {
		if got := r.Below(10); got != w {
			t.Fatalf("draw %d: expected %d, got %d", i, w, got)
		}
	}
}

func TestBelowTrivialBounds(t *testing.T) {
	r := New(1)
	before := *r
	if r.Below(0) != 0 || r.Below(1) != 0 {
		t.Fatalf("expected 0 for n <= 1")
	}
	if *r != before {
		t.Fatalf("expected no state consumed for n <= 1")
	}
}

func TestBelowUniform(t *testing.T) {
	r := New(0xC0FFEE)
	for _, n := range []uint64{2, 3, 7, 16, 50, 100} {
		const perBucket = 2000
		draws := int(n) * perBucket
		counts := make([]int, n)
		for i := 0; i < draws; i++ {
			v := r.Below(n)
			if v >= n {
				t.Fatalf("n=%d: got out of range value %d", n, v)
			}
			counts[v]++
		}
		for b, c := range counts {
			// ~±10% of the expectation is far beyond 4 standard deviations here.
			if c < perBucket*90/100 || c > perBucket*110/100 {
				t.Fatalf("n=%d bucket %d: count %d too far from %d", n, b, c, perBucket)
			}
		}
	}
}

func TestSameSeedSameStream(t *testing.T) {
	a, b := New(99), New(99)
	for i := 0; i < 1000; i++ {
		if a.Next() != b.Next() {
			t.Fatalf("streams diverged at %d", i)
		}
	}
}

func TestChoose(t *testing.T) {
	r := New(3)
	items := []string{"a", "b", "c"}
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		seen[Choose(r, items)] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected every element to be chosen, saw %v", seen)
	}
	if got := Choose(r, []int{5}); got != 5 {
		t.Fatalf("expected the only element, got %d", got)
	}
}

func TestChooseEmptyPanics(t *testing.T) {
	defer func() {
		rec := recover()
		err, ok := rec.(error)
		if !ok || !errors.Is(err, ErrEmptyChoice) {
			t.Fatalf("expected ErrEmptyChoice panic, got %v", rec)
		}
	}()
	Choose(New(1), []int{})
}
