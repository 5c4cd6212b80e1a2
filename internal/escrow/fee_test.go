package escrow

import "testing"

func TestFeePolicy(t *testing.T) {
	cases := []struct {
		name    string
		bps     int64
		budget  int64
		wantFee int64
	}{
		{"five percent", 500, 1000, 50},
		{"rounds up", 500, 1001, 51},
		{"one bp rounds up", 1, 1, 1},
		{"zero bps", 0, 1000, 0},
		{"zero budget", 500, 0, 0},
		{"full rate", 10000, 1234, 1234},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := FeePolicy{Bps: c.bps}
			if got := p.Fee(c.budget); got != c.wantFee {
				t.Errorf("Fee(%d) = %d, want %d", c.budget, got, c.wantFee)
			}
			if got := p.Total(c.budget); got != c.budget+c.wantFee {
				t.Errorf("Total(%d) = %d, want %d", c.budget, got, c.budget+c.wantFee)
			}
		})
	}
}
