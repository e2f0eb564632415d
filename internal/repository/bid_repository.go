package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/auction-marketplace/internal/model"
)

// ErrBidNotFound indicates that a bid was not located in the DB.
var ErrBidNotFound = errors.New("bid not found")

// BidRepo manages persistence for the `bids` table.  Bid rows are
// immutable: there is deliberately no update method, and Delete exists
// only for the administrative escape hatch.
type BidRepo struct {
	db *sql.DB
}

func NewBidRepo(db *sql.DB) *BidRepo { return &BidRepo{db: db} }

const bidCols = `id, auction_id, bidder_id, amount, created_at`

func scanBid(row interface{ Scan(...any) error }) (model.Bid, error) {
	var b model.Bid
	err := row.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.CreatedAt)
	return b, err
}

// CreateTx inserts a bid within the caller's transaction, which must
// hold the auction row lock.  created_at is supplied by the caller at
// microsecond precision so same-amount bids order deterministically.
func (r *BidRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Bid) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bids (auction_id, bidder_id, amount, created_at) VALUES (?, ?, ?, ?)`,
		b.AuctionID, b.BidderID, b.Amount, b.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// ListByAuctionTx returns every bid of one auction inside tx, highest
// amount first.  Used when closing an auction under the row lock so
// the winner is resolved from the bid set as committed at that point.
func (r *BidRepo) ListByAuctionTx(ctx context.Context, tx *sql.Tx, auctionID uint64) ([]model.Bid, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+bidCols+` FROM bids WHERE auction_id = ? ORDER BY amount DESC, created_at ASC, id ASC`,
		auctionID)
	if err != nil {
		return nil, err
	}
	return collectBids(rows)
}

// ListByAuction returns every bid of one auction, highest amount first.
func (r *BidRepo) ListByAuction(ctx context.Context, auctionID uint64) ([]model.Bid, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bidCols+` FROM bids WHERE auction_id = ? ORDER BY amount DESC, created_at ASC, id ASC`,
		auctionID)
	if err != nil {
		return nil, err
	}
	return collectBids(rows)
}

// ListByBidder returns a user's bids, newest first.  A non-zero
// auctionID narrows the result to a single auction.
func (r *BidRepo) ListByBidder(ctx context.Context, bidderID, auctionID uint64) ([]model.Bid, error) {
	q := `SELECT ` + bidCols + ` FROM bids WHERE bidder_id = ?`
	args := []any{bidderID}
	if auctionID != 0 {
		q += " AND auction_id = ?"
		args = append(args, auctionID)
	}
	q += " ORDER BY created_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectBids(rows)
}

// ListAll returns bids across all auctions, newest first, for admin
// listings.  A non-zero auctionID narrows to one auction.
func (r *BidRepo) ListAll(ctx context.Context, auctionID uint64) ([]model.Bid, error) {
	q := `SELECT ` + bidCols + ` FROM bids WHERE 1=1`
	args := []any{}
	if auctionID != 0 {
		q += " AND auction_id = ?"
		args = append(args, auctionID)
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT 500"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectBids(rows)
}

// GetByIDTx fetches a single bid inside tx.
func (r *BidRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Bid, error) {
	b, err := scanBid(tx.QueryRowContext(ctx,
		`SELECT `+bidCols+` FROM bids WHERE id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, ErrBidNotFound
	}
	return b, err
}

// DeleteTx removes a bid within the caller's transaction.  The caller
// must hold the auction row lock so the deletion serializes with
// concurrent bid acceptance on the same auction.
func (r *BidRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM bids WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBidNotFound
	}
	return nil
}

func collectBids(rows *sql.Rows) ([]model.Bid, error) {
	defer rows.Close()
	var bids []model.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}
