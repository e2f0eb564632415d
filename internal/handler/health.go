// Package handler exposes the HTTP endpoints: auth, auction CRUD,
// bidding and the administrative bid listing/removal.  Handlers bind
// and validate the request, call into repositories or the auction
// service, and translate the returned errors to HTTP statuses.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the load-balancer probe.  It answers "ok" as plain text.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
