package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/auction-marketplace/internal/auction"
	"github.com/iliyamo/auction-marketplace/internal/model"
	"github.com/iliyamo/auction-marketplace/internal/repository"
)

func testCtx() echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestCurrentUserID(t *testing.T) {
	c := testCtx()
	assert.Equal(t, uint64(0), currentUserID(c))

	c.Set("user_id", float64(42)) // JWT numeric claims decode as float64
	assert.Equal(t, uint64(42), currentUserID(c))

	c.Set("user_id", "17")
	assert.Equal(t, uint64(17), currentUserID(c))

	c.Set("user_id", "not-a-number")
	assert.Equal(t, uint64(0), currentUserID(c))
}

func TestIsAdmin(t *testing.T) {
	c := testCtx()
	assert.False(t, isAdmin(c))
	c.Set("role", model.RoleUser)
	assert.False(t, isAdmin(c))
	c.Set("role", model.RoleAdmin)
	assert.True(t, isAdmin(c))
}

func TestWriteAuctionErrStatuses(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{auction.ErrTitleRequired, http.StatusBadRequest},
		{auction.ErrInvalidAmount, http.StatusBadRequest},
		{auction.ErrNotActive, http.StatusConflict},
		{auction.ErrOwnAuction, http.StatusConflict},
		{auction.ErrBidTooLow, http.StatusConflict},
		{auction.ErrClosed, http.StatusConflict},
		{auction.ErrConflict, http.StatusConflict},
		{repository.ErrAuctionNotFound, http.StatusNotFound},
		{repository.ErrBidNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
		assert.NoError(t, writeAuctionErr(c, tc.err))
		assert.Equal(t, tc.want, rec.Code, "error %v", tc.err)
	}
}

func TestTimeLeft(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := &model.Auction{
		StartTime: now.Add(30 * time.Minute),
		EndTime:   now.Add(90 * time.Minute),
		Status:    model.AuctionPending,
	}

	assert.Equal(t, "30m0s", timeLeft(a, now))

	a.Status = model.AuctionActive
	assert.Equal(t, "1h30m", timeLeft(a, now))

	assert.Equal(t, "45s", timeLeft(&model.Auction{
		Status:  model.AuctionActive,
		EndTime: now.Add(45 * time.Second),
	}, now))

	a.Status = model.AuctionClosed
	assert.Equal(t, "ended", timeLeft(a, now))

	// Stored status lagging an elapsed window still reads as ended.
	assert.Equal(t, "ended", timeLeft(&model.Auction{
		Status:  model.AuctionActive,
		EndTime: now.Add(-time.Minute),
	}, now))
}
