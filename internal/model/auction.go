package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus enumerates the lifecycle states of an auction.  The
// values are stored verbatim in auctions.status.
type AuctionStatus string

const (
	AuctionPending AuctionStatus = "pending" // window has not opened yet
	AuctionActive  AuctionStatus = "active"  // start_time <= now < end_time
	AuctionClosed  AuctionStatus = "closed"  // terminal; never reverts
)

// Auction represents a row of the `auctions` table.  Prices are
// DECIMAL(10,2) columns scanned into decimal.Decimal so comparisons
// are exact.  StartTime/EndTime are UTC DATETIME values.
//
// Invariants maintained by the auction package:
//   - status always equals what NextStatus derives from the window,
//     except that closed is terminal;
//   - current_price == max(starting_price, highest accepted bid);
//   - winner_id is non-null iff status is closed and at least one bid
//     existed at close time.
//
// Fields:
//  ID            – primary key identifier.
//  Title         – short listing title.
//  Description   – free-form listing text.
//  StartingPrice – price the first bid must exceed; >= 0.
//  CurrentPrice  – highest accepted bid, or the starting price.
//  CreatorID     – user who listed the auction.
//  StartTime     – when bidding opens.
//  EndTime       – when bidding closes; strictly after StartTime.
//  Status        – pending, active or closed.
//  WinnerID      – bidder of the highest bid, set once at close.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Auction struct {
	ID            uint64          // auctions.id
	Title         string          // auctions.title
	Description   string          // auctions.description
	StartingPrice decimal.Decimal // auctions.starting_price
	CurrentPrice  decimal.Decimal // auctions.current_price
	CreatorID     uint64          // auctions.creator_id
	StartTime     time.Time       // auctions.start_time
	EndTime       time.Time       // auctions.end_time
	Status        AuctionStatus   // auctions.status
	WinnerID      *uint64         // auctions.winner_id (nullable)
	CreatedAt     time.Time       // auctions.created_at
	UpdatedAt     time.Time       // auctions.updated_at
}
