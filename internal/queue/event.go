// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names. Both queues are declared durable by publisher and consumer.
const (
	AuctionClosedQueue = "auction.closed"
	BidPlacedQueue     = "bid.placed"
)

// AuctionClosedEvent is published when an auction transitions to
// closed, whether through the periodic sweep, a read-path refresh or a
// losing bid request that noticed the elapsed window.  It carries
// enough for downstream consumers to notify or log without querying
// the primary database.  WinnerID is null when the auction closed
// without bids.
type AuctionClosedEvent struct {
	EventID    string  `json:"event_id"`
	AuctionID  uint64  `json:"auction_id"`
	Title      string  `json:"title"`
	WinnerID   *uint64 `json:"winner_id"`
	FinalPrice string  `json:"final_price"`
	BidCount   int     `json:"bid_count"`
	ClosedAt   string  `json:"closed_at"`
}

// BidPlacedEvent is published after a bid has been accepted and
// committed.
type BidPlacedEvent struct {
	EventID   string `json:"event_id"`
	AuctionID uint64 `json:"auction_id"`
	BidID     uint64 `json:"bid_id"`
	BidderID  uint64 `json:"bidder_id"`
	Amount    string `json:"amount"`
	PlacedAt  string `json:"placed_at"`
}
