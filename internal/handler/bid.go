package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auction-marketplace/internal/auction"
	"github.com/iliyamo/auction-marketplace/internal/repository"
)

// BidHandler bundles dependencies for the bid endpoints that are not
// scoped under an auction: the caller's own bid history and the
// administrative listing/removal.
type BidHandler struct {
	Svc  *auction.Service
	Bids *repository.BidRepo
}

func NewBidHandler(svc *auction.Service, b *repository.BidRepo) *BidHandler {
	return &BidHandler{Svc: svc, Bids: b}
}

// List returns the caller's bids, newest first.  ?auction=ID narrows
// to one auction; admins may pass ?all=1 to see everyone's bids.
func (h *BidHandler) List(c echo.Context) error {
	var auctionID uint64
	if v := c.QueryParam("auction"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid auction id"})
		}
		auctionID = id
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if c.QueryParam("all") == "1" {
		if !isAdmin(c) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		all, lerr := h.Bids.ListAll(ctx, auctionID)
		if lerr != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		out := make([]bidResp, 0, len(all))
		for _, b := range all {
			out = append(out, renderBid(b))
		}
		return c.JSON(http.StatusOK, echo.Map{"items": out})
	}

	own, err := h.Bids.ListByBidder(ctx, currentUserID(c), auctionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]bidResp, 0, len(own))
	for _, b := range own {
		out = append(out, renderBid(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Delete removes a single bid (admin only; the route enforces the
// role).  The service refuses once the auction has closed, and it
// never recomputes current_price or the winner from the surviving
// bids.
func (h *BidHandler) Delete(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Svc.AdminDeleteBid(ctx, id); err != nil {
		return writeAuctionErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
