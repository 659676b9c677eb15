package market

import (
	"errors"
	"math"
	"testing"
)

func TestPriceGrid(t *testing.T) {
	g, err := NewPriceGrid(0.01, 10, 100)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if g.Len() != 100 || g.Min() != 0.01 || g.Max() != 10 {
		t.Errorf("unexpected grid bounds %v..%v with %d prices", g.Min(), g.Max(), g.Len())
	}
	prices := g.Prices()
	step := prices[1] - prices[0]
	for i := 1; i < len(prices); i++ {
		if prices[i] <= prices[i-1] {
			t.Fatalf("grid not strictly increasing at %d", i)
		}
		if math.Abs(prices[i]-prices[i-1]-step) > 1e-9 {
			t.Fatalf("grid not equally spaced at %d", i)
		}
	}
	p, err := g.Price(50)
	if err != nil || math.Abs(p-5.055454545) > 1e-6 {
		t.Errorf("unexpected price at 50: %v, %v", p, err)
	}
	prices[0] = -1
	if g.Min() != 0.01 {
		t.Errorf("Prices should return a copy")
	}
}

func TestPriceGridErrors(t *testing.T) {
	if _, err := NewPriceGrid(1, 1, 5); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for empty interval, got %v", err)
	}
	if _, err := NewPriceGrid(0, 1, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for zero size, got %v", err)
	}
	if _, err := NewPriceGrid(0, math.Inf(1), 3); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for infinite bound, got %v", err)
	}
	g, _ := NewPriceGrid(0, 1, 3)
	for _, i := range []int{-1, 3} {
		if _, err := g.Price(i); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("index %d: expected ErrIndexOutOfRange, got %v", i, err)
		}
	}
	if err := g.Validate(0, 2, 5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestPriceGridSingleton(t *testing.T) {
	g, err := NewPriceGrid(3, 3, 1)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if g.Len() != 1 || g.Min() != 3 || g.Max() != 3 {
		t.Errorf("unexpected singleton grid %v", g.Prices())
	}
}

func TestPriceGridNearest(t *testing.T) {
	g, _ := NewPriceGrid(0, 1, 6)
	cases := []struct {
		p    float64
		want int
	}{
		{-3, 0},
		{0, 0},
		{0.09, 0},
		{0.11, 1},
		{0.5, 2},
		{0.79, 4},
		{1, 5},
		{7, 5},
	}
	for _, c := range cases {
		if got := g.Nearest(c.p); got != c.want {
			t.Errorf("Nearest(%v) = %d, expected %d", c.p, got, c.want)
		}
	}
}
