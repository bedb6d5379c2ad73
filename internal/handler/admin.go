package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// AdminHandler serves the manager request workflow and the admin tools.
type AdminHandler struct {
	Approvals ApprovalService
	Seats     SeatService
	Reports   RevenueReporter
	Timeout   time.Duration
}

func NewAdminHandler(a ApprovalService, seats SeatService, reports RevenueReporter, timeout time.Duration) *AdminHandler {
	return &AdminHandler{Approvals: a, Seats: seats, Reports: reports, Timeout: timeout}
}

type submitRequestReq struct {
	Type    model.RequestKind `json:"type" validate:"required,oneof=movie promotion screening"`
	Payload json.RawMessage   `json:"payload" validate:"required"`
	Note    string            `json:"note" validate:"max=512"`
}

type decisionReq struct {
	Note string `json:"note" validate:"max=512"`
}

type adminReleaseReq struct {
	ScreeningID uint64   `json:"screening_id" validate:"required,gt=0"`
	Seats       []string `json:"seats" validate:"required,min=1,dive,required,max=8"`
}

// Submit files a new request for an admin to decide.
// POST /v1/requests
func (h *AdminHandler) Submit(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	}
	var req submitRequestReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	payload, err := model.DecodePayload(req.Type, req.Payload)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid payload"})
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	out, err := h.Approvals.Submit(ctx, uid, payload, strings.TrimSpace(req.Note))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// ListMine returns the caller's requests.
// GET /v1/requests/mine
func (h *AdminHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	list, err := h.Approvals.ListMine(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list, "count": len(list)})
}

// ListRequests returns requests, optionally filtered by ?status=.
// GET /v1/admin/requests
func (h *AdminHandler) ListRequests(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	list, err := h.Approvals.List(ctx, model.ApprovalStatus(strings.ToLower(c.QueryParam("status"))))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list, "count": len(list)})
}

// Approve applies a pending request.
// POST /v1/admin/requests/:id/approve
func (h *AdminHandler) Approve(c echo.Context) error {
	return h.decide(c, h.Approvals.Approve)
}

// Reject closes a pending request without applying it.
// POST /v1/admin/requests/:id/reject
func (h *AdminHandler) Reject(c echo.Context) error {
	return h.decide(c, h.Approvals.Reject)
}

type decideFunc func(ctx context.Context, id, adminID uint64, note string) (*model.ApprovalRequest, error)

func (h *AdminHandler) decide(c echo.Context, fn decideFunc) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	}
	id, ok := parseID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request id"})
	}
	var req decisionReq
	if ok, err := bind(c, &req); !ok {
		return err
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	out, err := fn(ctx, id, uid, strings.TrimSpace(req.Note))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Revenue sums paid bookings per movie.  from and to accept dates
// (2006-01-02) or RFC 3339 timestamps; the default is the last 30 days.
// GET /v1/admin/revenue
func (h *AdminHandler) Revenue(c echo.Context) error {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	var err error
	if s := c.QueryParam("from"); s != "" {
		if from, err = parseWhen(s); err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid from"})
		}
	}
	if s := c.QueryParam("to"); s != "" {
		if to, err = parseWhen(s); err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid to"})
		}
	}
	if !from.Before(to) {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "from must be before to"})
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	rows, err := h.Reports.RevenueByMovie(ctx, from, to)
	if err != nil {
		return respondError(c, err)
	}
	var total int64
	for _, r := range rows {
		total += r.Revenue
	}
	return c.JSON(http.StatusOK, echo.Map{"from": from, "to": to, "movies": rows, "total": total})
}

// ReleaseSeats frees seats regardless of their state.
// POST /v1/admin/seats/release
func (h *AdminHandler) ReleaseSeats(c echo.Context) error {
	var req adminReleaseReq
	if ok, err := bind(c, &req); !ok {
		return err
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	n, err := h.Seats.AdminRelease(ctx, req.ScreeningID, req.Seats)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"released": n})
}

func parseWhen(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("expected YYYY-MM-DD or RFC 3339")
	}
	return t.UTC(), nil
}
