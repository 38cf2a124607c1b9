package money

import (
	"math"
	"testing"
)

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []float64{0, 1, 0.1234565, 15000.5555555, -42.9999995, 2181818}
	for _, v := range inputs {
		once := Normalize(v)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("normalize not idempotent for %v: %v != %v", v, once, twice)
		}
	}
}

func TestNormalizeScale(t *testing.T) {
	got := Normalize(15000.5555555)
	if got != 15000.555556 {
		t.Fatalf("expected 15000.555556, got %v", got)
	}
	got = Normalize(0.0000004)
	if got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	got = Normalize(0.0000005)
	if got != 0.000001 {
		t.Fatalf("expected half-up rounding to 0.000001, got %v", got)
	}
}

func TestNormalizeTiesAwayFromZero(t *testing.T) {
	if got := Normalize(-0.0000005); got != -0.000001 {
		t.Fatalf("expected -0.000001, got %v", got)
	}
}

func TestNormalizeNonFinite(t *testing.T) {
	if got := Normalize(math.NaN()); got != 0 {
		t.Fatalf("expected NaN to normalize to 0, got %v", got)
	}
	if got := Normalize(math.Inf(1)); got != 0 {
		t.Fatalf("expected +Inf to normalize to 0, got %v", got)
	}
	if got := Normalize(math.Inf(-1)); got != 0 {
		t.Fatalf("expected -Inf to normalize to 0, got %v", got)
	}
}

func TestNormalizeAnyRejectsNonNumeric(t *testing.T) {
	if got := NormalizeAny(nil); got != 0 {
		t.Fatalf("expected nil to normalize to 0, got %v", got)
	}
	if got := NormalizeAny("12.5"); got != 0 {
		t.Fatalf("expected string to normalize to 0, got %v", got)
	}
	if got := NormalizeAny(int64(7)); got != 7 {
		t.Fatalf("expected int64 7 to normalize to 7, got %v", got)
	}
}

func TestPercentOf(t *testing.T) {
	if got := PercentOf(10, 100); got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}
	if got := PercentOf(15000, 0); got != 0 {
		t.Fatalf("expected 0 for zero total, got %v", got)
	}
	if got := PercentOf(1, 3); got != 33.333333 {
		t.Fatalf("expected 33.333333, got %v", got)
	}
}

func TestRound4(t *testing.T) {
	if got := Round4(0.123456); got != 0.1235 {
		t.Fatalf("expected 0.1235, got %v", got)
	}
	if got := Round4(math.NaN()); got != 0 {
		t.Fatalf("expected 0 for NaN, got %v", got)
	}
}
