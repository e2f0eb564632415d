package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auction-marketplace/internal/auction"
	"github.com/iliyamo/auction-marketplace/internal/model"
	"github.com/iliyamo/auction-marketplace/internal/repository"
)

// currentUserID extracts the authenticated user id that JWTAuth stored
// in the context.  JWT numeric claims decode as float64; string subs
// are parsed for robustness.  0 means "not authenticated".
func currentUserID(c echo.Context) uint64 {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v)
	case uint64:
		return v
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleAdmin
}

// paramID parses the numeric :id path parameter.
func paramID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// writeAuctionErr maps the auction service error taxonomy onto HTTP.
// Malformed input is 400; a rule rejection is 409 with the sentinel
// text as the structured reason; not-found is 404; an exhausted lock
// race is 409 too, flagged retryable.
func writeAuctionErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auction.ErrTitleRequired),
		errors.Is(err, auction.ErrNegativePrice),
		errors.Is(err, auction.ErrInvalidWindow),
		errors.Is(err, auction.ErrStartInPast),
		errors.Is(err, auction.ErrInvalidAmount):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, auction.ErrNotActive),
		errors.Is(err, auction.ErrOwnAuction),
		errors.Is(err, auction.ErrBidTooLow),
		errors.Is(err, auction.ErrClosed):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, auction.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "concurrent update, retry", "retryable": true})
	case errors.Is(err, repository.ErrAuctionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "auction not found"})
	case errors.Is(err, repository.ErrBidNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bid not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// timeLeft renders the remaining window as a coarse human string.
// Closed auctions and elapsed windows report "ended"; pending ones
// count down to their start.
func timeLeft(a *model.Auction, now time.Time) string {
	var until time.Time
	switch a.Status {
	case model.AuctionClosed:
		return "ended"
	case model.AuctionPending:
		until = a.StartTime
	default:
		until = a.EndTime
	}
	d := until.Sub(now)
	if d <= 0 {
		return "ended"
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
