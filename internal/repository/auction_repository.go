// Package repository contains the data access layer.  Each repository
// owns one table and exposes sentinel errors so handlers can map
// failure scenarios to HTTP responses without string matching.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/auction-marketplace/internal/model"
)

// ErrAuctionNotFound indicates that an auction was not located in the DB.
var ErrAuctionNotFound = errors.New("auction not found")

// AuctionRepo manages persistence for the `auctions` table.  All
// timestamps are UTC.  Mutations of status, winner and current_price
// go through the ...Tx methods so callers can serialize them behind a
// SELECT ... FOR UPDATE row lock.
type AuctionRepo struct {
	db *sql.DB
}

func NewAuctionRepo(db *sql.DB) *AuctionRepo { return &AuctionRepo{db: db} }

// DB exposes the underlying sql.DB so callers can begin transactions
// spanning the auction and bid repositories.
func (r *AuctionRepo) DB() *sql.DB { return r.db }

const auctionCols = `id, title, description, starting_price, current_price, creator_id,
       start_time, end_time, status, winner_id, created_at, updated_at`

func scanAuction(row interface{ Scan(...any) error }) (model.Auction, error) {
	var (
		a      model.Auction
		winner sql.NullInt64
	)
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.StartingPrice, &a.CurrentPrice,
		&a.CreatorID, &a.StartTime, &a.EndTime, &a.Status, &winner, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Auction{}, err
	}
	if winner.Valid {
		w := uint64(winner.Int64)
		a.WinnerID = &w
	}
	return a, nil
}

// Create inserts a new auction and reads the row back so DB-assigned
// fields (id, created_at, updated_at) are populated on the argument.
func (r *AuctionRepo) Create(ctx context.Context, a *model.Auction) error {
	const q = `INSERT INTO auctions
	    (title, description, starting_price, current_price, creator_id, start_time, end_time, status)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		a.Title, a.Description, a.StartingPrice, a.CurrentPrice,
		a.CreatorID, a.StartTime.UTC(), a.EndTime.UTC(), a.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := scanAuction(r.db.QueryRowContext(ctx,
		`SELECT `+auctionCols+` FROM auctions WHERE id = ?`, id))
	if err != nil {
		return err
	}
	*a = stored
	return nil
}

// GetByID fetches an auction without locking.
func (r *AuctionRepo) GetByID(ctx context.Context, id uint64) (model.Auction, error) {
	a, err := scanAuction(r.db.QueryRowContext(ctx,
		`SELECT `+auctionCols+` FROM auctions WHERE id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, ErrAuctionNotFound
	}
	return a, err
}

// GetByIDForUpdateTx fetches an auction inside tx with a row lock.
// Every read-check-write sequence on status, winner or current_price
// must go through this lock so concurrent mutators observe each
// other's committed state instead of a stale snapshot.
func (r *AuctionRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Auction, error) {
	a, err := scanAuction(tx.QueryRowContext(ctx,
		`SELECT `+auctionCols+` FROM auctions WHERE id = ? LIMIT 1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, ErrAuctionNotFound
	}
	return a, err
}

// UpdateStatusTx stores a status transition.  The winner is written in
// the same statement so a close and its winner commit atomically; pass
// nil for transitions that do not set one.  The WHERE guard refuses to
// touch rows already closed, making a lost race visible to the caller
// through ErrAuctionNotFound.
func (r *AuctionRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.AuctionStatus, winnerID *uint64) error {
	var winner sql.NullInt64
	if winnerID != nil {
		winner = sql.NullInt64{Int64: int64(*winnerID), Valid: true}
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE auctions SET status = ?, winner_id = COALESCE(?, winner_id), updated_at = NOW(6)
		 WHERE id = ? AND status <> 'closed'`,
		status, winner, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAuctionNotFound
	}
	return nil
}

// RaisePriceTx bumps current_price to amount.  The guard keeps the
// price monotonic even if a stale caller slips through: rows are only
// touched when the new amount is strictly greater.
func (r *AuctionRepo) RaisePriceTx(ctx context.Context, tx *sql.Tx, id uint64, amount decimal.Decimal) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE auctions SET current_price = ?, updated_at = NOW(6)
		 WHERE id = ? AND current_price < ?`,
		amount, id, amount)
	return err
}

// UpdateDetails rewrites title and description.  Status, prices and
// the window are not editable through this path.
func (r *AuctionRepo) UpdateDetails(ctx context.Context, id uint64, title, description string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE auctions SET title = ?, description = ?, updated_at = NOW(6) WHERE id = ?`,
		title, description, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAuctionNotFound
	}
	return nil
}

// Delete removes an auction; its bids go with it via ON DELETE CASCADE.
func (r *AuctionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auctions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAuctionNotFound
	}
	return nil
}

// DueForTransition returns the ids of auctions whose stored status
// disagrees with what the time window implies at `now`: pending rows
// whose window has opened, and pending/active rows whose window has
// elapsed.  Closed rows never match, which keeps the sweep idempotent.
func (r *AuctionRepo) DueForTransition(ctx context.Context, now time.Time) ([]uint64, error) {
	const q = `SELECT id FROM auctions
	           WHERE (status = 'pending' AND start_time <= ?)
	              OR (status IN ('pending','active') AND end_time <= ?)
	           ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, now.UTC(), now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AuctionFilter narrows List results.  Zero values mean "no filter".
type AuctionFilter struct {
	Status    model.AuctionStatus // filter by stored status
	CreatorID uint64              // auctions listed by this user
	WinnerID  uint64              // auctions won by this user
	Search    string              // substring match on title/description
	Sort      string              // created_at|end_time|current_price, "-" prefix for desc
	Limit     int                 // max rows; 0 means the default of 100
}

// AuctionListItem is an auction together with its bid count, so list
// endpoints do not need a second query per row.
type AuctionListItem struct {
	Auction  model.Auction
	BidCount uint32
}

// sortColumns whitelists ORDER BY targets; anything else falls back to
// newest-first.
var sortColumns = map[string]string{
	"created_at":    "a.created_at",
	"end_time":      "a.end_time",
	"current_price": "a.current_price",
}

// List returns auctions matching the filter, newest first unless the
// filter says otherwise.
func (r *AuctionRepo) List(ctx context.Context, f AuctionFilter) ([]AuctionListItem, error) {
	q := `SELECT a.id, a.title, a.description, a.starting_price, a.current_price, a.creator_id,
	             a.start_time, a.end_time, a.status, a.winner_id, a.created_at, a.updated_at,
	             (SELECT COUNT(*) FROM bids b WHERE b.auction_id = a.id) AS bid_count
	      FROM auctions a WHERE 1=1`
	args := make([]any, 0, 6)
	if f.Status != "" {
		q += " AND a.status = ?"
		args = append(args, f.Status)
	}
	if f.CreatorID != 0 {
		q += " AND a.creator_id = ?"
		args = append(args, f.CreatorID)
	}
	if f.WinnerID != 0 {
		q += " AND a.winner_id = ?"
		args = append(args, f.WinnerID)
	}
	if f.Search != "" {
		q += " AND (a.title LIKE ? OR a.description LIKE ?)"
		like := "%" + f.Search + "%"
		args = append(args, like, like)
	}

	col, dir := "a.created_at", "DESC"
	sort := f.Sort
	if len(sort) > 0 && sort[0] == '-' {
		sort = sort[1:]
	} else if sort != "" {
		dir = "ASC"
	}
	if c, ok := sortColumns[sort]; ok {
		col = c
	} else {
		dir = "DESC"
	}
	q += " ORDER BY " + col + " " + dir + ", a.id " + dir

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []AuctionListItem
	for rows.Next() {
		var (
			it     AuctionListItem
			winner sql.NullInt64
		)
		a := &it.Auction
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.StartingPrice, &a.CurrentPrice,
			&a.CreatorID, &a.StartTime, &a.EndTime, &a.Status, &winner,
			&a.CreatedAt, &a.UpdatedAt, &it.BidCount); err != nil {
			return nil, err
		}
		if winner.Valid {
			w := uint64(winner.Int64)
			a.WinnerID = &w
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
