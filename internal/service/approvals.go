package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// Approvals runs the manager request workflow: managers submit typed
// change requests, admins approve or reject them, and approval applies
// the payload to the catalogue.
type Approvals struct {
	repo    ApprovalRepository
	catalog CatalogWriter
	now     func() time.Time
	log     zerolog.Logger
}

func NewApprovals(repo ApprovalRepository, catalog CatalogWriter, log zerolog.Logger) *Approvals {
	return &Approvals{repo: repo, catalog: catalog, now: func() time.Time { return time.Now().UTC() }, log: log}
}

// Submit records a pending request.
func (a *Approvals) Submit(ctx context.Context, userID uint64, payload model.RequestPayload, note string) (*model.ApprovalRequest, error) {
	if payload == nil {
		return nil, validation("payload is required")
	}
	if err := payload.Validate(); err != nil {
		return nil, validation("%s request: %v", payload.Kind(), err)
	}
	if sr, ok := payload.(model.ScreeningRequest); ok {
		if _, err := a.catalog.GetMovie(ctx, sr.MovieID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, validation("movie %d does not exist", sr.MovieID)
			}
			return nil, err
		}
	}
	req := &model.ApprovalRequest{
		SubmittedBy: userID,
		Status:      model.ApprovalPending,
		Payload:     payload,
		Note:        strings.TrimSpace(note),
		CreatedAt:   a.now(),
	}
	if err := a.repo.Create(ctx, req); err != nil {
		return nil, err
	}
	a.log.Info().Uint64("request_id", req.ID).Str("kind", string(payload.Kind())).Uint64("submitted_by", userID).Msg("approval request submitted")
	return req, nil
}

// ListMine returns the requests submitted by userID.
func (a *Approvals) ListMine(ctx context.Context, userID uint64) ([]model.ApprovalRequest, error) {
	return a.repo.List(ctx, "", userID)
}

// List returns requests filtered by status; an empty status lists all.
func (a *Approvals) List(ctx context.Context, status model.ApprovalStatus) ([]model.ApprovalRequest, error) {
	switch status {
	case "", model.ApprovalPending, model.ApprovalApproved, model.ApprovalRejected:
	default:
		return nil, validation("unknown status %q", status)
	}
	return a.repo.List(ctx, status, 0)
}

// Approve marks the request approved and applies its payload.  When the
// payload cannot be applied the request goes back to pending.
func (a *Approvals) Approve(ctx context.Context, id, adminID uint64, note string) (*model.ApprovalRequest, error) {
	req, err := a.decide(ctx, id, adminID, model.ApprovalApproved, note)
	if err != nil {
		return nil, err
	}
	if err := a.apply(ctx, req.Payload); err != nil {
		ctx := context.WithoutCancel(ctx)
		if _, rerr := a.repo.Decide(ctx, id, model.ApprovalApproved, model.ApprovalPending, 0, "", time.Time{}); rerr != nil {
			a.log.Error().Err(rerr).Uint64("request_id", id).Msg("revert approval failed")
		}
		return nil, err
	}
	a.log.Info().Uint64("request_id", id).Uint64("admin_id", adminID).Str("kind", string(req.Payload.Kind())).Msg("approval request applied")
	return a.repo.Get(ctx, id)
}

// Reject marks the request rejected.
func (a *Approvals) Reject(ctx context.Context, id, adminID uint64, note string) (*model.ApprovalRequest, error) {
	if _, err := a.decide(ctx, id, adminID, model.ApprovalRejected, note); err != nil {
		return nil, err
	}
	return a.repo.Get(ctx, id)
}

func (a *Approvals) decide(ctx context.Context, id, adminID uint64, to model.ApprovalStatus, note string) (*model.ApprovalRequest, error) {
	req, err := a.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != model.ApprovalPending {
		return nil, &TransitionError{From: string(req.Status), To: string(to)}
	}
	ok, err := a.repo.Decide(ctx, id, model.ApprovalPending, to, adminID, strings.TrimSpace(note), a.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &TransitionError{From: "decided", To: string(to)}
	}
	return req, nil
}

func (a *Approvals) apply(ctx context.Context, payload model.RequestPayload) error {
	switch p := payload.(type) {
	case model.MovieRequest:
		return a.catalog.CreateMovie(ctx, &model.Movie{
			Title:       strings.TrimSpace(p.Title),
			PosterURL:   p.PosterURL,
			DurationMin: p.DurationMin,
			CreatedAt:   a.now(),
		})
	case model.PromotionRequest:
		return a.catalog.CreatePromotion(ctx, &model.Promotion{
			Code:            strings.ToUpper(strings.TrimSpace(p.Code)),
			DiscountAmount:  p.DiscountAmount,
			DiscountPercent: p.DiscountPercent,
			ExpiresAt:       p.ExpiresAt,
			Active:          true,
		})
	case model.ScreeningRequest:
		return a.catalog.CreateScreening(ctx, &model.Screening{
			MovieID:   p.MovieID,
			Theater:   strings.TrimSpace(p.Theater),
			Room:      strings.TrimSpace(p.Room),
			StartsAt:  p.StartsAt.UTC(),
			BasePrice: p.BasePrice,
			SeatRows:  p.SeatRows,
			SeatCols:  p.SeatCols,
		})
	}
	return fmt.Errorf("%w: %T", model.ErrUnknownRequestKind, payload)
}
