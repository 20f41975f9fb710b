package domain

import "testing"

func TestPoolStatusTransitions(t *testing.T) {
	tests := []struct {
		from PoolStatus
		to   PoolStatus
		want bool
	}{
		{PoolOpen, PoolFilled, true},
		{PoolOpen, PoolClosed, true},
		{PoolOpen, PoolDisbursed, false},
		{PoolFilled, PoolDisbursed, true},
		{PoolFilled, PoolClosed, true},
		{PoolFilled, PoolOpen, false},
		{PoolDisbursed, PoolClosed, true},
		{PoolDisbursed, PoolFilled, false},
		{PoolClosed, PoolOpen, false},
		{PoolClosed, PoolClosed, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTrancheAccessors(t *testing.T) {
	pool := &FundingPool{
		TargetAmount:   d("1000"),
		FundedAmount:   d("400"),
		PriorityTarget: d("800"),
		PriorityFunded: d("300"),
		CatalystTarget: d("200"),
		CatalystFunded: d("100"),
		PriorityRate:   d("9.5"),
		CatalystRate:   d("15"),
	}

	if got := pool.Remaining(); !got.Equal(d("600")) {
		t.Fatalf("remaining = %s, want 600", got)
	}
	if got := pool.TrancheRemaining(TranchePriority); !got.Equal(d("500")) {
		t.Fatalf("priority remaining = %s, want 500", got)
	}
	if got := pool.TrancheRemaining(TrancheCatalyst); !got.Equal(d("100")) {
		t.Fatalf("catalyst remaining = %s, want 100", got)
	}
	if got := pool.TrancheRate(TrancheCatalyst); !got.Equal(d("15")) {
		t.Fatalf("catalyst rate = %s, want 15", got)
	}
}
