package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// SeatHandler exposes the seat ledger.
type SeatHandler struct {
	Seats   SeatService
	Timeout time.Duration
}

func NewSeatHandler(seats SeatService, timeout time.Duration) *SeatHandler {
	return &SeatHandler{Seats: seats, Timeout: timeout}
}

type reserveReq struct {
	ScreeningID uint64 `json:"screening_id" validate:"required,gt=0"`
	Seat        string `json:"seat" validate:"required,max=8"`
}

type seatResp struct {
	ScreeningID uint64           `json:"screening_id"`
	Seat        string           `json:"seat"`
	Status      model.SeatStatus `json:"status"`
	ReservedAt  *time.Time       `json:"reserved_at,omitempty"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
}

// Reserve holds one seat for the caller.
// POST /seats/reserve
func (h *SeatHandler) Reserve(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	}
	var req reserveReq
	if ok, err := bind(c, &req); !ok {
		return err
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	seat, err := h.Seats.Reserve(ctx, req.ScreeningID, req.Seat, uid)
	if err != nil {
		return respondError(c, err)
	}
	resp := seatResp{ScreeningID: seat.ScreeningID, Seat: seat.Label, Status: seat.Status, ReservedAt: seat.ReservedAt}
	if seat.ReservedAt != nil {
		exp := seat.ReservedAt.Add(h.Seats.HoldDuration())
		resp.ExpiresAt = &exp
	}
	return c.JSON(http.StatusCreated, resp)
}

// Status reports the effective state of one seat.
// GET /seats/status?screening_id=1&seat=A1
func (h *SeatHandler) Status(c echo.Context) error {
	sid, ok := parseID(c.QueryParam("screening_id"))
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid screening_id"})
	}
	label := c.QueryParam("seat")
	if label == "" {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "seat is required"})
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	status, err := h.Seats.Status(ctx, sid, label)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, seatResp{ScreeningID: sid, Seat: model.NormalizeSeatLabel(label), Status: status})
}

// ReleaseExpired reverts stale reservations on demand.
// POST /seats/release-expired
func (h *SeatHandler) ReleaseExpired(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	n, err := h.Seats.ReleaseExpired(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"released": n})
}

// ListForScreening returns the seat map of a screening.
// GET /seats/screening/:id
func (h *SeatHandler) ListForScreening(c echo.Context) error {
	sid, ok := parseID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid screening id"})
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	seats, err := h.Seats.ListForScreening(ctx, sid)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]seatResp, 0, len(seats))
	for _, s := range seats {
		out = append(out, seatResp{ScreeningID: sid, Seat: s.Label, Status: s.Status})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"screening_id": sid,
		"hold_seconds": int(h.Seats.HoldDuration() / time.Second),
		"seats":        out,
	})
}
