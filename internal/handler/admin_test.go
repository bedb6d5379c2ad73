package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

func adminRoutes(uid uint64, role string) (*echo.Echo, *MockApprovals, *MockSeats, *MockReports) {
	approvals, seats, reports := new(MockApprovals), new(MockSeats), new(MockReports)
	h := NewAdminHandler(approvals, seats, reports, 0)
	e := newEcho()
	req := e.Group("/v1/requests", as(uid, role))
	req.POST("", h.Submit)
	req.GET("/mine", h.ListMine)
	adm := e.Group("/v1/admin", as(uid, role))
	adm.GET("/requests", h.ListRequests)
	adm.POST("/requests/:id/approve", h.Approve)
	adm.POST("/requests/:id/reject", h.Reject)
	adm.GET("/revenue", h.Revenue)
	adm.POST("/seats/release", h.ReleaseSeats)
	return e, approvals, seats, reports
}

func TestAdminHandler_Submit(t *testing.T) {
	t.Run("promotion", func(t *testing.T) {
		e, approvals, _, _ := adminRoutes(2, model.RoleManager)
		approvals.On("Submit", mock.Anything, uint64(2), model.PromotionRequest{Code: "SPRING", DiscountPercent: 10}, "for the festival").
			Return(&model.ApprovalRequest{ID: 5, SubmittedBy: 2, Status: model.ApprovalPending, Payload: model.PromotionRequest{Code: "SPRING", DiscountPercent: 10}}, nil)

		rec := do(e, http.MethodPost, "/v1/requests", map[string]any{
			"type":    "promotion",
			"payload": map[string]any{"code": "SPRING", "discount_percent": 10},
			"note":    " for the festival ",
		})
		assert.Equal(t, http.StatusCreated, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "promotion", body["type"])
		assert.Equal(t, "pending", body["status"])
		approvals.AssertExpectations(t)
	})

	t.Run("unknown type", func(t *testing.T) {
		e, approvals, _, _ := adminRoutes(2, model.RoleManager)
		rec := do(e, http.MethodPost, "/v1/requests", map[string]any{"type": "concert", "payload": map[string]any{}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		approvals.AssertNumberOfCalls(t, "Submit", 0)
	})

	t.Run("payload of the wrong shape", func(t *testing.T) {
		e, approvals, _, _ := adminRoutes(2, model.RoleManager)
		rec := do(e, http.MethodPost, "/v1/requests", `{"type":"movie","payload":{"title":42}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid payload", decode(t, rec)["error"])
		approvals.AssertNumberOfCalls(t, "Submit", 0)
	})

	t.Run("rejected by validation", func(t *testing.T) {
		e, approvals, _, _ := adminRoutes(2, model.RoleManager)
		approvals.On("Submit", mock.Anything, uint64(2), mock.Anything, "").
			Return(nil, service.ErrValidation)

		rec := do(e, http.MethodPost, "/v1/requests", map[string]any{"type": "movie", "payload": map[string]any{"title": ""}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAdminHandler_Decide(t *testing.T) {
	e, approvals, _, _ := adminRoutes(9, model.RoleAdmin)
	admin := uint64(9)
	approvals.On("Approve", mock.Anything, uint64(5), admin, "ok").
		Return(&model.ApprovalRequest{ID: 5, Status: model.ApprovalApproved, DecidedBy: &admin, Payload: model.MovieRequest{Title: "Heat"}}, nil)
	approvals.On("Reject", mock.Anything, uint64(6), admin, "").
		Return(nil, service.ErrConflict)

	rec := do(e, http.MethodPost, "/v1/admin/requests/5/approve", map[string]any{"note": "ok"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "approved", decode(t, rec)["status"])

	rec = do(e, http.MethodPost, "/v1/admin/requests/6/reject", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodPost, "/v1/admin/requests/abc/approve", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminHandler_ListRequests(t *testing.T) {
	e, approvals, _, _ := adminRoutes(9, model.RoleAdmin)
	approvals.On("List", mock.Anything, model.ApprovalPending).Return([]model.ApprovalRequest{
		{ID: 1, Status: model.ApprovalPending, Payload: model.MovieRequest{Title: "Heat"}},
	}, nil)
	approvals.On("ListMine", mock.Anything, uint64(9)).Return([]model.ApprovalRequest{}, nil)

	rec := do(e, http.MethodGet, "/v1/admin/requests?status=PENDING", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = do(e, http.MethodGet, "/v1/requests/mine", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["count"])
}

func TestAdminHandler_Revenue(t *testing.T) {
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	e, _, _, reports := adminRoutes(9, model.RoleAdmin)
	reports.On("RevenueByMovie", mock.Anything, sameTime(from), sameTime(to)).Return([]repository.RevenueRow{
		{MovieID: 1, MovieTitle: "Heat", Bookings: 3, Seats: 5, Revenue: 500000},
		{MovieID: 2, MovieTitle: "Ran", Bookings: 1, Seats: 2, Revenue: 180000},
	}, nil)

	rec := do(e, http.MethodGet, "/v1/admin/revenue?from=2026-05-01&to=2026-06-01T00:00:00Z", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(680000), body["total"])
	assert.Len(t, body["movies"], 2)

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/admin/revenue?from=yesterday", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/admin/revenue?from=2026-06-01&to=2026-05-01", nil).Code)
	reports.AssertNumberOfCalls(t, "RevenueByMovie", 1)
}

func TestAdminHandler_ReleaseSeats(t *testing.T) {
	e, _, seats, _ := adminRoutes(9, model.RoleAdmin)
	seats.On("AdminRelease", mock.Anything, uint64(3), []string{"A1", "B2"}).Return(2, nil)

	rec := do(e, http.MethodPost, "/v1/admin/seats/release", map[string]any{"screening_id": 3, "seats": []string{"A1", "B2"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["released"])

	rec = do(e, http.MethodPost, "/v1/admin/seats/release", map[string]any{"screening_id": 3, "seats": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func sameTime(want time.Time) any {
	return mock.MatchedBy(func(got time.Time) bool { return got.Equal(want) })
}
