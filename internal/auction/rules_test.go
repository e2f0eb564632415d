package auction

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auction-marketplace/internal/model"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNextStatus(t *testing.T) {
	start := base
	end := base.Add(time.Hour)

	cases := []struct {
		name   string
		stored model.AuctionStatus
		now    time.Time
		want   model.AuctionStatus
	}{
		{"before window", model.AuctionPending, start.Add(-time.Minute), model.AuctionPending},
		{"at start", model.AuctionPending, start, model.AuctionActive},
		{"inside window", model.AuctionPending, start.Add(30 * time.Minute), model.AuctionActive},
		{"just before end", model.AuctionActive, end.Add(-time.Nanosecond), model.AuctionActive},
		{"at end", model.AuctionActive, end, model.AuctionClosed},
		{"after end", model.AuctionActive, end.Add(time.Hour), model.AuctionClosed},
		// A pending auction whose whole window already passed skips
		// active entirely.
		{"window fully elapsed", model.AuctionPending, end.Add(time.Minute), model.AuctionClosed},
		// closed is terminal regardless of the window.
		{"closed stays closed inside window", model.AuctionClosed, start.Add(time.Minute), model.AuctionClosed},
		{"closed stays closed before window", model.AuctionClosed, start.Add(-time.Hour), model.AuctionClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextStatus(tc.stored, start, end, tc.now))
		})
	}
}

func TestNextStatusIdempotent(t *testing.T) {
	start := base
	end := base.Add(time.Hour)
	for _, stored := range []model.AuctionStatus{model.AuctionPending, model.AuctionActive, model.AuctionClosed} {
		for _, now := range []time.Time{start.Add(-time.Minute), start, end, end.Add(time.Minute)} {
			once := NextStatus(stored, start, end, now)
			assert.Equal(t, once, NextStatus(once, start, end, now),
				"second application must not move the status again")
		}
	}
}

func newAuction() *model.Auction {
	return &model.Auction{
		ID:            1,
		CreatorID:     10,
		StartingPrice: dec("100.00"),
		CurrentPrice:  dec("100.00"),
		StartTime:     base,
		EndTime:       base.Add(time.Hour),
		Status:        model.AuctionActive,
	}
}

func TestValidateBid(t *testing.T) {
	now := base.Add(10 * time.Minute)

	t.Run("accepts strictly higher amount", func(t *testing.T) {
		a := newAuction()
		require.NoError(t, ValidateBid(a, 20, dec("100.01"), now))
	})

	t.Run("rejects amount equal to current price", func(t *testing.T) {
		a := newAuction()
		assert.ErrorIs(t, ValidateBid(a, 20, dec("100.00"), now), ErrBidTooLow)
	})

	t.Run("rejects amount below current price", func(t *testing.T) {
		a := newAuction()
		a.CurrentPrice = dec("150.00")
		assert.ErrorIs(t, ValidateBid(a, 20, dec("149.99"), now), ErrBidTooLow)
	})

	t.Run("rejects creator bidding on own auction", func(t *testing.T) {
		a := newAuction()
		assert.ErrorIs(t, ValidateBid(a, a.CreatorID, dec("200.00"), now), ErrOwnAuction)
	})

	t.Run("rejects pending auction", func(t *testing.T) {
		a := newAuction()
		a.Status = model.AuctionPending
		assert.ErrorIs(t, ValidateBid(a, 20, dec("200.00"), base.Add(-time.Minute)), ErrNotActive)
	})

	t.Run("rejects closed auction", func(t *testing.T) {
		a := newAuction()
		a.Status = model.AuctionClosed
		assert.ErrorIs(t, ValidateBid(a, 20, dec("200.00"), now), ErrNotActive)
	})

	t.Run("rejects stored-active auction whose window elapsed", func(t *testing.T) {
		// The stored flag says active but the window is over; the live
		// derivation wins and the bid bounces.
		a := newAuction()
		assert.ErrorIs(t, ValidateBid(a, 20, dec("200.00"), a.EndTime), ErrNotActive)
	})

	t.Run("activity check outranks ownership and amount", func(t *testing.T) {
		a := newAuction()
		a.Status = model.AuctionClosed
		assert.ErrorIs(t, ValidateBid(a, a.CreatorID, dec("1.00"), now), ErrNotActive)
	})

	t.Run("ownership outranks amount", func(t *testing.T) {
		a := newAuction()
		assert.ErrorIs(t, ValidateBid(a, a.CreatorID, dec("1.00"), now), ErrOwnAuction)
	})
}

// Bidding ladder: price 100.00, a bid of 150.00 is accepted, an
// equal 150.00 is rejected, 150.01 is accepted.
func TestValidateBidSequence(t *testing.T) {
	now := base.Add(time.Minute)
	a := newAuction()

	require.NoError(t, ValidateBid(a, 20, dec("150.00"), now))
	a.CurrentPrice = dec("150.00")

	assert.ErrorIs(t, ValidateBid(a, 21, dec("150.00"), now), ErrBidTooLow)
	require.NoError(t, ValidateBid(a, 21, dec("150.01"), now))
}

func TestResolveWinner(t *testing.T) {
	bid := func(id, bidder uint64, amount string, at time.Time) model.Bid {
		return model.Bid{ID: id, BidderID: bidder, AuctionID: 1, Amount: dec(amount), CreatedAt: at}
	}

	t.Run("no bids means no winner", func(t *testing.T) {
		assert.Nil(t, ResolveWinner(nil))
		assert.Nil(t, ResolveWinner([]model.Bid{}))
	})

	t.Run("highest amount wins", func(t *testing.T) {
		w := ResolveWinner([]model.Bid{
			bid(1, 20, "110.00", base),
			bid(2, 21, "150.00", base.Add(time.Minute)),
			bid(3, 22, "120.00", base.Add(2*time.Minute)),
		})
		require.NotNil(t, w)
		assert.Equal(t, uint64(21), *w)
	})

	t.Run("tie goes to the earliest bid", func(t *testing.T) {
		w := ResolveWinner([]model.Bid{
			bid(1, 20, "150.00", base.Add(time.Minute)),
			bid(2, 21, "150.00", base), // earlier, same amount
		})
		require.NotNil(t, w)
		assert.Equal(t, uint64(21), *w)
	})

	t.Run("same instant tie goes to the lowest id", func(t *testing.T) {
		w := ResolveWinner([]model.Bid{
			bid(5, 20, "150.00", base),
			bid(3, 21, "150.00", base),
		})
		require.NotNil(t, w)
		assert.Equal(t, uint64(21), *w)
	})

	t.Run("equal decimals with different exponents compare equal", func(t *testing.T) {
		w := ResolveWinner([]model.Bid{
			bid(1, 20, "150", base.Add(time.Minute)),
			bid(2, 21, "150.00", base),
		})
		require.NotNil(t, w)
		assert.Equal(t, uint64(21), *w)
	})

	t.Run("single bid wins", func(t *testing.T) {
		w := ResolveWinner([]model.Bid{bid(1, 42, "100.01", base)})
		require.NotNil(t, w)
		assert.Equal(t, uint64(42), *w)
	})
}
