package checkout

import "testing"

func TestComputeQuoteCapsAtHalfSubtotal(t *testing.T) {
	cases := []struct {
		name        string
		subtotal    float64
		balance     int64
		usePoints   bool
		wantPoints  int64
		wantFinal   float64
		wantMaxDisc int64
	}{
		{"balance below cap", 300, 100, true, 100, 200, 150},
		{"balance above cap", 150, 100, true, 75, 75, 75},
		{"balance equals cap", 200, 100, true, 100, 100, 100},
		{"cap floors fractional half", 99, 500, true, 49, 50, 49},
		{"points declined", 150, 100, false, 0, 150, 75},
		{"zero balance", 150, 0, true, 0, 150, 75},
		{"zero subtotal", 0, 100, true, 0, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := ComputeQuote(tc.subtotal, tc.balance, tc.usePoints)
			if q.PointsToRedeem != tc.wantPoints {
				t.Fatalf("points = %d, want %d", q.PointsToRedeem, tc.wantPoints)
			}
			if q.MaxDiscount != tc.wantMaxDisc {
				t.Fatalf("max discount = %d, want %d", q.MaxDiscount, tc.wantMaxDisc)
			}
			if q.FinalAmount != tc.wantFinal {
				t.Fatalf("final = %.2f, want %.2f", q.FinalAmount, tc.wantFinal)
			}
			if q.Discount != float64(tc.wantPoints) {
				t.Fatalf("discount = %.2f, want %d", q.Discount, tc.wantPoints)
			}
		})
	}
}

func TestPointsEarnedFloors(t *testing.T) {
	cases := []struct {
		final float64
		want  int64
	}{
		{0, 0},
		{-10, 0},
		{99, 0},
		{100, 1},
		{199.99, 1},
		{200, 2},
		{2550, 25},
	}
	for _, tc := range cases {
		if got := PointsEarned(tc.final); got != tc.want {
			t.Fatalf("PointsEarned(%.2f) = %d, want %d", tc.final, got, tc.want)
		}
	}
}
