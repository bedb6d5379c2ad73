// This file defines handlers for the public browsing API.  These routes
// let unauthenticated users browse movies and screenings before signing
// in to pick seats.  Responses are cached in Redis by the router.

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// PublicHandler serves the catalogue.
type PublicHandler struct {
	Catalog CatalogReader
	Timeout time.Duration
}

func NewPublicHandler(catalog CatalogReader, timeout time.Duration) *PublicHandler {
	return &PublicHandler{Catalog: catalog, Timeout: timeout}
}

// ListMovies returns every movie, newest first.
// GET /v1/movies
func (h *PublicHandler) ListMovies(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	movies, err := h.Catalog.ListMovies(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": movies, "count": len(movies)})
}

// ListScreenings lists upcoming screenings.  Query parameters: movie_id,
// q (title substring), from (RFC 3339 or YYYY-MM-DD, default now) and
// limit (default 50, max 200).
// GET /v1/screenings
func (h *PublicHandler) ListScreenings(c echo.Context) error {
	f := repository.ScreeningFilter{From: time.Now().UTC(), Title: c.QueryParam("q")}
	if s := c.QueryParam("movie_id"); s != "" {
		id, ok := parseID(s)
		if !ok {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid movie_id"})
		}
		f.MovieID = id
	}
	if s := c.QueryParam("from"); s != "" {
		from, err := parseWhen(s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid from"})
		}
		f.From = from
	}
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid limit"})
		}
		f.Limit = n
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	list, err := h.Catalog.ListScreenings(ctx, f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list, "count": len(list)})
}

// GetScreening returns one screening with its seat layout size.
// GET /v1/screenings/:id
func (h *PublicHandler) GetScreening(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid screening id"})
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	s, err := h.Catalog.GetScreening(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}
