package auction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/auction-marketplace/internal/model"
	"github.com/iliyamo/auction-marketplace/internal/queue"
	"github.com/iliyamo/auction-marketplace/internal/repository"
)

// maxAttempts bounds the transparent retries of a per-auction
// mutation that lost its row lock race.
const maxAttempts = 3

// EventPublisher decouples the engine from the broker transport.  A
// nil publisher disables event emission; a failing one is ignored
// because events are strictly best-effort.
type EventPublisher interface {
	PublishAuctionClosed(ctx context.Context, ev queue.AuctionClosedEvent) error
	PublishBidPlaced(ctx context.Context, ev queue.BidPlacedEvent) error
}

// Service orchestrates the lifecycle rules over the database.  Every
// mutation of an auction's status, winner or current_price runs inside
// a transaction that first locks the auction row (SELECT ... FOR
// UPDATE), re-reads the committed state, and only then applies the
// rules.  The sweep, the bid path and the read path therefore always
// agree: whichever commits a close first determines the winner, and
// the loser observes the closed status and fails cleanly.
type Service struct {
	db       *sql.DB
	auctions *repository.AuctionRepo
	bids     *repository.BidRepo
	events   EventPublisher
	log      *logrus.Logger
	now      func() time.Time
}

// NewService wires the engine.  events may be nil.
func NewService(auctions *repository.AuctionRepo, bids *repository.BidRepo, events EventPublisher, log *logrus.Logger) *Service {
	return &Service{
		db:       auctions.DB(),
		auctions: auctions,
		bids:     bids,
		events:   events,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput carries the caller-supplied fields of a new auction.
type CreateInput struct {
	Title         string
	Description   string
	StartingPrice decimal.Decimal
	StartTime     time.Time
	EndTime       time.Time
	CreatorID     uint64
}

// Create validates and persists a new auction.  The window must be
// ordered and must not start in the past; the initial status is
// derived from the window (active when the start is this instant,
// pending otherwise) and current_price starts at starting_price.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Auction, error) {
	now := s.now()
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if in.StartingPrice.IsNegative() {
		return nil, ErrNegativePrice
	}
	if !in.EndTime.After(in.StartTime) {
		return nil, ErrInvalidWindow
	}
	if in.StartTime.Before(now) {
		return nil, ErrStartInPast
	}

	a := &model.Auction{
		Title:         title,
		Description:   in.Description,
		StartingPrice: in.StartingPrice,
		CurrentPrice:  in.StartingPrice,
		CreatorID:     in.CreatorID,
		StartTime:     in.StartTime.UTC(),
		EndTime:       in.EndTime.UTC(),
		Status:        NextStatus(model.AuctionPending, in.StartTime, in.EndTime, now),
	}
	if err := s.auctions.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// PlaceBid validates and records a bid.  Under the auction row lock
// it first refreshes the stored status (so an elapsed auction closes
// right here rather than accepting a late bid), then runs the
// acceptance rule and, on success, inserts the bid and bumps
// current_price in the same transaction.  Lock races are retried a
// bounded number of times before surfacing ErrConflict.
func (s *Service) PlaceBid(ctx context.Context, auctionID, bidderID uint64, amount decimal.Decimal) (*model.Bid, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		bid, closedEv, err := s.placeBidOnce(ctx, auctionID, bidderID, amount)
		s.emitClosed(ctx, closedEv)
		if err != nil {
			if isRetryable(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		s.emitBidPlaced(ctx, bid)
		return bid, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrConflict, lastErr)
}

func (s *Service) placeBidOnce(ctx context.Context, auctionID, bidderID uint64, amount decimal.Decimal) (*model.Bid, *queue.AuctionClosedEvent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	a, err := s.auctions.GetByIDForUpdateTx(ctx, tx, auctionID)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()

	_, ev, err := s.applyTransitionTx(ctx, tx, &a, now)
	if err != nil {
		return nil, nil, err
	}

	if err := ValidateBid(&a, bidderID, amount, now); err != nil {
		if ev == nil {
			return nil, nil, err
		}
		// The rejection stands, but the transition we just derived is
		// real: commit it so the close is not lost with the rollback.
		if cerr := tx.Commit(); cerr != nil {
			return nil, nil, cerr
		}
		committed = true
		return nil, ev, err
	}

	bid := &model.Bid{
		AuctionID: a.ID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: now,
	}
	if err := s.bids.CreateTx(ctx, tx, bid); err != nil {
		return nil, nil, err
	}
	if err := s.auctions.RaisePriceTx(ctx, tx, a.ID, amount); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	committed = true
	return bid, ev, nil
}

// Get returns an auction after opportunistically refreshing its
// status, so readers never observe a stale pending/active row whose
// window has elapsed.
func (s *Service) Get(ctx context.Context, id uint64) (*model.Auction, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		a, ev, _, err := s.refreshOnce(ctx, id)
		s.emitClosed(ctx, ev)
		if err != nil {
			if isRetryable(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return a, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrConflict, lastErr)
}

// Reconcile is the periodic sweep: it finds every auction whose stored
// status disagrees with its time window and applies the transition
// rule to each under its own row lock.  It returns the number of
// auctions transitioned.  Running it twice with no intervening writes
// transitions nothing the second time; per-auction failures are logged
// and skipped so one bad row cannot stall the sweep.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	ids, err := s.auctions.DueForTransition(ctx, s.now())
	if err != nil {
		return 0, err
	}
	count := 0
	for _, id := range ids {
		changed, err := s.refreshWithRetry(ctx, id)
		if err != nil {
			if s.log != nil {
				s.log.WithError(err).WithField("auction_id", id).Warn("reconcile: transition failed")
			}
			continue
		}
		if changed {
			count++
		}
	}
	return count, nil
}

func (s *Service) refreshWithRetry(ctx context.Context, id uint64) (bool, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		_, ev, changed, err := s.refreshOnce(ctx, id)
		s.emitClosed(ctx, ev)
		if err != nil {
			if isRetryable(err) {
				lastErr = err
				continue
			}
			return false, err
		}
		return changed, nil
	}
	return false, fmt.Errorf("%w: %v", ErrConflict, lastErr)
}

func (s *Service) refreshOnce(ctx context.Context, id uint64) (*model.Auction, *queue.AuctionClosedEvent, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	a, err := s.auctions.GetByIDForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, nil, false, err
	}
	transitioned, ev, err := s.applyTransitionTx(ctx, tx, &a, s.now())
	if err != nil {
		return nil, nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, false, err
	}
	committed = true
	return &a, ev, transitioned, nil
}

// applyTransitionTx recomputes the stored status from the window and
// persists the transition when it differs.  A close also resolves the
// winner from the bid set committed at this point; the status and
// winner are written in one statement so they cannot diverge.  The
// caller must hold the auction row lock.  The returned event, if any,
// must be published only after the transaction commits.
func (s *Service) applyTransitionTx(ctx context.Context, tx *sql.Tx, a *model.Auction, now time.Time) (bool, *queue.AuctionClosedEvent, error) {
	next := NextStatus(a.Status, a.StartTime, a.EndTime, now)
	if next == a.Status {
		return false, nil, nil
	}
	if next != model.AuctionClosed {
		if err := s.auctions.UpdateStatusTx(ctx, tx, a.ID, next, nil); err != nil {
			return false, nil, err
		}
		a.Status = next
		return true, nil, nil
	}

	bids, err := s.bids.ListByAuctionTx(ctx, tx, a.ID)
	if err != nil {
		return false, nil, err
	}
	winner := ResolveWinner(bids)
	if err := s.auctions.UpdateStatusTx(ctx, tx, a.ID, model.AuctionClosed, winner); err != nil {
		return false, nil, err
	}
	a.Status = model.AuctionClosed
	a.WinnerID = winner

	return true, &queue.AuctionClosedEvent{
		EventID:    uuid.NewString(),
		AuctionID:  a.ID,
		Title:      a.Title,
		WinnerID:   winner,
		FinalPrice: a.CurrentPrice.StringFixed(2),
		BidCount:   len(bids),
		ClosedAt:   now.Format(time.RFC3339),
	}, nil
}

// UpdateDetails rewrites an auction's title and description.  Closed
// auctions are read-only.
func (s *Service) UpdateDetails(ctx context.Context, id uint64, title, description string) (*model.Auction, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == model.AuctionClosed {
		return nil, ErrClosed
	}
	if err := s.auctions.UpdateDetails(ctx, id, title, description); err != nil {
		return nil, err
	}
	updated, err := s.auctions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an auction and, through the cascade, all of its bids.
func (s *Service) Delete(ctx context.Context, id uint64) error {
	return s.auctions.Delete(ctx, id)
}

// AdminDeleteBid removes a single bid.  The auction row is locked
// first so the deletion serializes with concurrent bid acceptance, and
// the stored status is refreshed under that lock: once the auction has
// closed, its bid history is frozen too.  current_price and winner are
// deliberately NOT recomputed after a deletion.
func (s *Service) AdminDeleteBid(ctx context.Context, bidID uint64) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		ev, err := s.adminDeleteBidOnce(ctx, bidID)
		s.emitClosed(ctx, ev)
		if err != nil && isRetryable(err) {
			lastErr = err
			continue
		}
		return err
	}
	return fmt.Errorf("%w: %v", ErrConflict, lastErr)
}

func (s *Service) adminDeleteBidOnce(ctx context.Context, bidID uint64) (*queue.AuctionClosedEvent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := s.bids.GetByIDTx(ctx, tx, bidID)
	if err != nil {
		return nil, err
	}
	a, err := s.auctions.GetByIDForUpdateTx(ctx, tx, b.AuctionID)
	if err != nil {
		return nil, err
	}
	_, ev, err := s.applyTransitionTx(ctx, tx, &a, s.now())
	if err != nil {
		return nil, err
	}
	if a.Status == model.AuctionClosed {
		// Keep the transition even though the deletion is refused.
		if ev != nil {
			if cerr := tx.Commit(); cerr != nil {
				return nil, cerr
			}
			committed = true
			return ev, ErrClosed
		}
		return nil, ErrClosed
	}
	if err := s.bids.DeleteTx(ctx, tx, bidID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return ev, nil
}

func (s *Service) emitClosed(ctx context.Context, ev *queue.AuctionClosedEvent) {
	if ev == nil || s.events == nil {
		return
	}
	// Best effort: the publisher logs its own failures.
	_ = s.events.PublishAuctionClosed(ctx, *ev)
}

func (s *Service) emitBidPlaced(ctx context.Context, b *model.Bid) {
	if b == nil || s.events == nil {
		return
	}
	_ = s.events.PublishBidPlaced(ctx, queue.BidPlacedEvent{
		EventID:   uuid.NewString(),
		AuctionID: b.AuctionID,
		BidID:     b.ID,
		BidderID:  b.BidderID,
		Amount:    b.Amount.StringFixed(2),
		PlacedAt:  b.CreatedAt.Format(time.RFC3339),
	})
}

// isRetryable reports whether err is a transient serialization
// failure: an InnoDB deadlock (1213) or lock wait timeout (1205).
func isRetryable(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213 || me.Number == 1205
	}
	return false
}
