package auction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/auction-marketplace/internal/model"
)

// NextStatus derives the status an auction should hold at `now`.
// closed is terminal: once stored, it is returned unchanged no matter
// what the window says.  Otherwise the window decides:
//
//	start_time <= now < end_time  -> active
//	now >= end_time               -> closed
//	now < start_time              -> pending
//
// An auction whose whole window is already in the past therefore goes
// straight from pending to closed on its first evaluation; it is never
// observed as active.
//
// Every trigger that recomputes status (bid path, read path, sweep)
// calls this single function, so they cannot race to different
// conclusions.
func NextStatus(stored model.AuctionStatus, startTime, endTime, now time.Time) model.AuctionStatus {
	if stored == model.AuctionClosed {
		return model.AuctionClosed
	}
	switch {
	case !now.Before(endTime):
		return model.AuctionClosed
	case !now.Before(startTime):
		return model.AuctionActive
	default:
		return model.AuctionPending
	}
}

// ValidateBid checks a candidate bid against the auction state.  The
// checks run in a fixed order and the first failure determines the
// rejection reason:
//
//  1. the auction must be live right now (derived status active and
//     now inside the window, not merely the stored flag);
//  2. the bidder must not be the creator;
//  3. the amount must be strictly greater than the current price.
//
// A nil return means the bid is acceptable against this snapshot of
// the auction; the caller is responsible for holding the row lock so
// the snapshot cannot go stale between validation and insert.
func ValidateBid(a *model.Auction, bidderID uint64, amount decimal.Decimal, now time.Time) error {
	if NextStatus(a.Status, a.StartTime, a.EndTime, now) != model.AuctionActive {
		return ErrNotActive
	}
	if bidderID == a.CreatorID {
		return ErrOwnAuction
	}
	if !amount.GreaterThan(a.CurrentPrice) {
		return ErrBidTooLow
	}
	return nil
}

// ResolveWinner selects the winning bidder from the full bid set of an
// auction being closed: highest amount wins, ties go to the earliest
// bid (then lowest id, for bids created in the same instant).  It
// returns nil when no bids exist, in which case the auction closes
// without a winner.
func ResolveWinner(bids []model.Bid) *uint64 {
	if len(bids) == 0 {
		return nil
	}
	best := bids[0]
	for _, b := range bids[1:] {
		switch best.Amount.Cmp(b.Amount) {
		case -1:
			best = b
		case 0:
			if b.CreatedAt.Before(best.CreatedAt) ||
				(b.CreatedAt.Equal(best.CreatedAt) && b.ID < best.ID) {
				best = b
			}
		}
	}
	winner := best.BidderID
	return &winner
}
