package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertBreakdown(t *testing.T, b Breakdown, items, shipping, tax, total string) {
	t.Helper()
	got := [4]string{b.Items.StringFixed(2), b.Shipping.StringFixed(2), b.Tax.StringFixed(2), b.Total.StringFixed(2)}
	want := [4]string{items, shipping, tax, total}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestComputeUnderThreshold(t *testing.T) {
	b := Compute([]Line{{d("40"), 2}, {d("10"), 1}})
	assertBreakdown(t, b, "90.00", "10.00", "13.50", "113.50")
}

func TestComputeOverThreshold(t *testing.T) {
	b := Compute([]Line{{d("60"), 2}})
	assertBreakdown(t, b, "120.00", "0.00", "18.00", "138.00")
}

func TestComputeBoundaryIsNotFree(t *testing.T) {
	b := Compute([]Line{{d("100.00"), 1}})
	assertBreakdown(t, b, "100.00", "10.00", "15.00", "125.00")

	b = Compute([]Line{{d("100.01"), 1}})
	assertBreakdown(t, b, "100.01", "0.00", "15.00", "115.01")
}

func TestComputeRoundsHalfUp(t *testing.T) {
	// 0.15 * 10.10 = 1.515 -> 1.52
	b := Compute([]Line{{d("10.10"), 1}})
	assertBreakdown(t, b, "10.10", "10.00", "1.52", "21.62")
}

func TestComputeEmpty(t *testing.T) {
	b := Compute(nil)
	assertBreakdown(t, b, "0.00", "10.00", "0.00", "10.00")
}

func TestComputeOrderIndependent(t *testing.T) {
	lines := []Line{{d("19.99"), 3}, {d("5.25"), 2}, {d("0.99"), 7}, {d("49.50"), 1}}
	want := Compute(lines)
	for i := 0; i < len(lines); i++ {
		rotated := append(append([]Line{}, lines[i:]...), lines[:i]...)
		got := Compute(rotated)
		if !got.Total.Equal(want.Total) || !got.Tax.Equal(want.Tax) {
			t.Fatalf("rotation %d changed totals: %v vs %v", i, got, want)
		}
	}
	if !want.Total.Equal(want.Items.Add(want.Shipping).Add(want.Tax)) {
		t.Fatal("total is not the sum of its parts")
	}
}

func TestCents(t *testing.T) {
	if Cents(d("113.50")) != 11350 || Cents(d("0.015")) != 2 {
		t.Fatalf("cents: %d %d", Cents(d("113.50")), Cents(d("0.015")))
	}
}
