package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/auction-marketplace/internal/auction"
	"github.com/iliyamo/auction-marketplace/internal/model"
	"github.com/iliyamo/auction-marketplace/internal/repository"
)

// AuctionHandler bundles dependencies for the auction endpoints.  All
// lifecycle-sensitive operations go through the service; plain reads
// that tolerate a stale status (the list) hit the repository directly.
type AuctionHandler struct {
	Svc      *auction.Service
	Auctions *repository.AuctionRepo
	Bids     *repository.BidRepo
}

func NewAuctionHandler(svc *auction.Service, a *repository.AuctionRepo, b *repository.BidRepo) *AuctionHandler {
	return &AuctionHandler{Svc: svc, Auctions: a, Bids: b}
}

// ----- DTOs -----

type createAuctionReq struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	StartingPrice string    `json:"starting_price"` // decimal string, e.g. "100.00"
	StartTime     time.Time `json:"start_time"`     // RFC 3339
	EndTime       time.Time `json:"end_time"`       // RFC 3339
}

type updateAuctionReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type placeBidReq struct {
	Amount string `json:"amount"` // decimal string, strictly above current_price
}

type auctionResp struct {
	ID            uint64    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	StartingPrice string    `json:"starting_price"`
	CurrentPrice  string    `json:"current_price"`
	CreatorID     uint64    `json:"creator_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	WinnerID      *uint64   `json:"winner_id,omitempty"`
	TimeLeft      string    `json:"time_left"`
	BidCount      *uint32   `json:"bid_count,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type bidResp struct {
	ID        uint64    `json:"id"`
	AuctionID uint64    `json:"auction_id"`
	BidderID  uint64    `json:"bidder_id"`
	Amount    string    `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

func renderAuction(a *model.Auction, now time.Time) auctionResp {
	return auctionResp{
		ID:            a.ID,
		Title:         a.Title,
		Description:   a.Description,
		StartingPrice: a.StartingPrice.StringFixed(2),
		CurrentPrice:  a.CurrentPrice.StringFixed(2),
		CreatorID:     a.CreatorID,
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		Status:        string(a.Status),
		WinnerID:      a.WinnerID,
		TimeLeft:      timeLeft(a, now),
		CreatedAt:     a.CreatedAt,
	}
}

func renderBid(b model.Bid) bidResp {
	return bidResp{
		ID:        b.ID,
		AuctionID: b.AuctionID,
		BidderID:  b.BidderID,
		Amount:    b.Amount.StringFixed(2),
		CreatedAt: b.CreatedAt,
	}
}

// List returns auctions matching the query filters:
//
//	?status=pending|active|closed
//	?my=1      auctions listed by the caller
//	?won=1     closed auctions won by the caller
//	?q=...     substring match on title/description
//	?sort=created_at|end_time|current_price ("-" prefix for descending)
//	?limit=N
//
// The stored status is what the filter matches, so a row whose window
// elapsed since the last sweep can still appear as active here; the
// detail endpoint refreshes before answering.
func (h *AuctionHandler) List(c echo.Context) error {
	f := repository.AuctionFilter{
		Status: model.AuctionStatus(strings.ToLower(c.QueryParam("status"))),
		Search: strings.TrimSpace(c.QueryParam("q")),
		Sort:   c.QueryParam("sort"),
	}
	switch f.Status {
	case "", model.AuctionPending, model.AuctionActive, model.AuctionClosed:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	if c.QueryParam("my") == "1" {
		f.CreatorID = currentUserID(c)
	}
	if c.QueryParam("won") == "1" {
		f.WinnerID = currentUserID(c)
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		f.Limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Auctions.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	now := time.Now().UTC()
	out := make([]auctionResp, 0, len(items))
	for i := range items {
		r := renderAuction(&items[i].Auction, now)
		bc := items[i].BidCount
		r.BidCount = &bc
		out = append(out, r)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Create lists a new auction owned by the caller.
func (h *AuctionHandler) Create(c echo.Context) error {
	var req createAuctionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.StartingPrice))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid starting_price"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Svc.Create(ctx, auction.CreateInput{
		Title:         req.Title,
		Description:   req.Description,
		StartingPrice: price,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		CreatorID:     currentUserID(c),
	})
	if err != nil {
		return writeAuctionErr(c, err)
	}
	return c.JSON(http.StatusCreated, renderAuction(a, time.Now().UTC()))
}

// Get returns one auction with its bid history.  The read goes through
// the service so an elapsed window is closed (and its winner resolved)
// before the response is built.
func (h *AuctionHandler) Get(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Svc.Get(ctx, id)
	if err != nil {
		return writeAuctionErr(c, err)
	}
	bids, err := h.Bids.ListByAuction(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	r := renderAuction(a, time.Now().UTC())
	bc := uint32(len(bids))
	r.BidCount = &bc
	out := make([]bidResp, 0, len(bids))
	for _, b := range bids {
		out = append(out, renderBid(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"auction": r, "bids": out})
}

// Update rewrites title/description.  Only the creator or an admin may
// edit, and closed auctions are read-only.
func (h *AuctionHandler) Update(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateAuctionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Auctions.GetByID(ctx, id)
	if err != nil {
		return writeAuctionErr(c, err)
	}
	if a.CreatorID != currentUserID(c) && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your auction"})
	}

	updated, err := h.Svc.UpdateDetails(ctx, id, req.Title, req.Description)
	if err != nil {
		return writeAuctionErr(c, err)
	}
	return c.JSON(http.StatusOK, renderAuction(updated, time.Now().UTC()))
}

// Delete removes an auction and its bids.  Creator or admin only.
func (h *AuctionHandler) Delete(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Auctions.GetByID(ctx, id)
	if err != nil {
		return writeAuctionErr(c, err)
	}
	if a.CreatorID != currentUserID(c) && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your auction"})
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return writeAuctionErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListBids returns the bid history of one auction, highest first.
func (h *AuctionHandler) ListBids(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Auctions.GetByID(ctx, id); err != nil {
		return writeAuctionErr(c, err)
	}
	bids, err := h.Bids.ListByAuction(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]bidResp, 0, len(bids))
	for _, b := range bids {
		out = append(out, renderBid(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// PlaceBid submits a bid on an auction.  The service enforces the
// acceptance rule (auction active, bidder is not the creator, amount
// strictly above current_price) under the auction row lock.
func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req placeBidReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	bid, err := h.Svc.PlaceBid(ctx, id, currentUserID(c), amount)
	if err != nil {
		return writeAuctionErr(c, err)
	}
	return c.JSON(http.StatusCreated, renderBid(*bid))
}
