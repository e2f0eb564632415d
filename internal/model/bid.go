package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid represents a row of the `bids` table.  Bids are immutable once
// created: they are never updated, and deletion is an administrative
// escape hatch only.  Rows are removed automatically when their
// auction is deleted (ON DELETE CASCADE).
//
// Fields:
//  ID        – primary key identifier.
//  AuctionID – auction the bid was placed on.
//  BidderID  – user who placed the bid.
//  Amount    – bid amount; strictly above the auction's price at
//              acceptance time.
//  CreatedAt – acceptance timestamp, sub-second precision so ties
//              order deterministically.
type Bid struct {
	ID        uint64          // bids.id
	AuctionID uint64          // bids.auction_id
	BidderID  uint64          // bids.bidder_id
	Amount    decimal.Decimal // bids.amount
	CreatedAt time.Time       // bids.created_at
}
