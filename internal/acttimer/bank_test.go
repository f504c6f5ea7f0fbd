package acttimer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testBankConfig() BankConfig {
	return BankConfig{
		StartingPreflop:  30 * time.Second,
		StartingPostflop: 30 * time.Second,
		GrowthEveryHands: 10,
		GrowthStep:       5 * time.Second,
		GrowthCap:        60 * time.Second,
	}
}

func TestBankTrackerStartingPools(t *testing.T) {
	bt := NewBankTracker(testBankConfig())
	bt.AddSeat(0)
	assert.Equal(t, 30*time.Second, bt.Remaining(0, PoolPreflop))
	assert.Equal(t, 30*time.Second, bt.Remaining(0, PoolPostflop))
}

func TestBankTrackerGrowsEveryNHands(t *testing.T) {
	bt := NewBankTracker(testBankConfig())
	bt.AddSeat(0)

	for i := 0; i < 9; i++ {
		bt.HandDealt(0)
	}
	assert.Equal(t, 30*time.Second, bt.Remaining(0, PoolPreflop), "no growth before the 10th hand")

	bt.HandDealt(0)
	assert.Equal(t, 35*time.Second, bt.Remaining(0, PoolPreflop))
	assert.Equal(t, 35*time.Second, bt.Remaining(0, PoolPostflop))
}

func TestBankTrackerGrowthClampedToCap(t *testing.T) {
	cfg := testBankConfig()
	cfg.StartingPreflop = 58 * time.Second
	bt := NewBankTracker(cfg)
	bt.AddSeat(0)

	for i := 0; i < 10; i++ {
		bt.HandDealt(0)
	}
	assert.Equal(t, 60*time.Second, bt.Remaining(0, PoolPreflop))
}

func TestBankTrackerDeductFloorsAtZero(t *testing.T) {
	bt := NewBankTracker(testBankConfig())
	bt.AddSeat(0)

	bt.Deduct(0, PoolPreflop, 45*time.Second)
	assert.Equal(t, time.Duration(0), bt.Remaining(0, PoolPreflop))
}

func TestBankTrackerPoolsAreIndependent(t *testing.T) {
	bt := NewBankTracker(testBankConfig())
	bt.AddSeat(0)

	bt.Deduct(0, PoolPreflop, 10*time.Second)
	assert.Equal(t, 20*time.Second, bt.Remaining(0, PoolPreflop))
	assert.Equal(t, 30*time.Second, bt.Remaining(0, PoolPostflop))
}

func TestBankTrackerRemoveSeat(t *testing.T) {
	bt := NewBankTracker(testBankConfig())
	bt.AddSeat(0)
	bt.RemoveSeat(0)
	assert.Equal(t, time.Duration(0), bt.Remaining(0, PoolPreflop))
}
