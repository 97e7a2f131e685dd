package piece

import "testing"

func TestCanonicalIsDistinctAndComplete(t *testing.T) {
	set := Canonical()
	if len(set) != Count {
		t.Fatalf("expected %d pieces, got %d", Count, len(set))
	}
	seen := map[uint8]bool{}
	for i, p := range set {
		if seen[p.Bits()] {
			t.Fatalf("duplicate vector %d", p.Bits())
		}
		seen[p.Bits()] = true
		if int(p.Bits()) != i {
			t.Fatalf("expected canonical order, index %d holds %d", i, p.Bits())
		}
	}
	for v := 0; v < 16; v++ {
		if !seen[uint8(v)] {
			t.Fatalf("vector %d missing", v)
		}
	}
}

func TestHasAndWith(t *testing.T) {
	p := New(0)
	for _, a := range Attributes {
		if p.Has(a) {
			t.Fatalf("expected %s unset on empty piece", a)
		}
	}
	p = p.With(Tall, true).With(Light, true)
	if p.Bits() != uint8(Tall|Light) {
		t.Fatalf("expected tall|light, got %d", p.Bits())
	}
	if !p.Has(Tall) || !p.Has(Light) || p.Has(Round) || p.Has(Full) {
		t.Fatalf("unexpected attributes on %s", p)
	}
	p = p.With(Tall, false)
	if p.Has(Tall) {
		t.Fatalf("expected tall cleared")
	}
	if p != New(uint8(Light)) {
		t.Fatalf("expected equality by vector")
	}
}

func TestNewRejectsUpperBits(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for vector 0x10")
		}
	}()
	_ = New(0x10)
}

func TestString(t *testing.T) {
	if got := New(15).String(); got != "tall/round/full/light" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := New(0).String(); got != "short/square/hollow/dark" {
		t.Fatalf("unexpected name %q", got)
	}
}
