package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RequestKind discriminates the payload carried by an ApprovalRequest.
type RequestKind string

const (
	RequestMovie     RequestKind = "movie"
	RequestPromotion RequestKind = "promotion"
	RequestScreening RequestKind = "screening"
)

// ApprovalStatus is the decision state of a manager request.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ErrUnknownRequestKind is returned when decoding a payload whose type
// discriminator is not one of the known kinds.
var ErrUnknownRequestKind = errors.New("unknown request kind")

// RequestPayload is implemented by exactly the three request kinds below.
// Consumers dispatch with a type switch over MovieRequest,
// PromotionRequest and ScreeningRequest.
type RequestPayload interface {
	Kind() RequestKind
	Validate() error
	isRequestPayload()
}

// MovieRequest asks for a new movie to be added to the catalogue.
type MovieRequest struct {
	Title       string `json:"title"`
	PosterURL   string `json:"poster_url"`
	DurationMin int    `json:"duration_min"`
}

func (MovieRequest) Kind() RequestKind { return RequestMovie }
func (MovieRequest) isRequestPayload() {}

func (r MovieRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	if r.DurationMin <= 0 {
		return errors.New("duration_min must be positive")
	}
	return nil
}

// PromotionRequest asks for a new promotion code.
type PromotionRequest struct {
	Code            string     `json:"code"`
	DiscountAmount  int64      `json:"discount_amount"`
	DiscountPercent int        `json:"discount_percent"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

func (PromotionRequest) Kind() RequestKind { return RequestPromotion }
func (PromotionRequest) isRequestPayload() {}

func (r PromotionRequest) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return errors.New("code is required")
	}
	if r.DiscountAmount < 0 || r.DiscountPercent < 0 || r.DiscountPercent > 100 {
		return errors.New("discount out of range")
	}
	if r.DiscountAmount == 0 && r.DiscountPercent == 0 {
		return errors.New("discount_amount or discount_percent is required")
	}
	return nil
}

// ScreeningRequest asks for a new screening of an existing movie.
type ScreeningRequest struct {
	MovieID   uint64    `json:"movie_id"`
	Theater   string    `json:"theater"`
	Room      string    `json:"room"`
	StartsAt  time.Time `json:"starts_at"`
	BasePrice int64     `json:"base_price"`
	SeatRows  int       `json:"seat_rows"`
	SeatCols  int       `json:"seat_cols"`
}

func (ScreeningRequest) Kind() RequestKind { return RequestScreening }
func (ScreeningRequest) isRequestPayload() {}

func (r ScreeningRequest) Validate() error {
	if r.MovieID == 0 {
		return errors.New("movie_id is required")
	}
	if strings.TrimSpace(r.Theater) == "" || strings.TrimSpace(r.Room) == "" {
		return errors.New("theater and room are required")
	}
	if r.StartsAt.IsZero() {
		return errors.New("starts_at is required")
	}
	if r.BasePrice < 0 {
		return errors.New("base_price must not be negative")
	}
	if r.SeatRows <= 0 || r.SeatCols <= 0 {
		return errors.New("seat_rows and seat_cols must be positive")
	}
	return nil
}

// DecodePayload turns a discriminator and its raw JSON body into the
// matching typed payload.
func DecodePayload(kind RequestKind, raw json.RawMessage) (RequestPayload, error) {
	switch kind {
	case RequestMovie:
		var p MovieRequest
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode movie request: %w", err)
		}
		return p, nil
	case RequestPromotion:
		var p PromotionRequest
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode promotion request: %w", err)
		}
		return p, nil
	case RequestScreening:
		var p ScreeningRequest
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode screening request: %w", err)
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRequestKind, kind)
}

// ApprovalRequest is a change submitted by a manager and decided by an
// admin.  Approving applies the payload.
type ApprovalRequest struct {
	ID          uint64         `json:"id"`
	SubmittedBy uint64         `json:"submitted_by"`
	Status      ApprovalStatus `json:"status"`
	Payload     RequestPayload `json:"-"`
	Note        string         `json:"note,omitempty"`
	DecidedBy   *uint64        `json:"decided_by,omitempty"`
	DecidedAt   *time.Time     `json:"decided_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

type approvalJSON struct {
	ID          uint64          `json:"id"`
	Type        RequestKind     `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	SubmittedBy uint64          `json:"submitted_by"`
	Status      ApprovalStatus  `json:"status"`
	Note        string          `json:"note,omitempty"`
	DecidedBy   *uint64         `json:"decided_by,omitempty"`
	DecidedAt   *time.Time      `json:"decided_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MarshalJSON renders the request with an explicit "type" discriminator
// next to its payload.
func (a ApprovalRequest) MarshalJSON() ([]byte, error) {
	out := approvalJSON{
		ID:          a.ID,
		SubmittedBy: a.SubmittedBy,
		Status:      a.Status,
		Note:        a.Note,
		DecidedBy:   a.DecidedBy,
		DecidedAt:   a.DecidedAt,
		CreatedAt:   a.CreatedAt,
	}
	if a.Payload != nil {
		raw, err := json.Marshal(a.Payload)
		if err != nil {
			return nil, err
		}
		out.Type = a.Payload.Kind()
		out.Payload = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (a *ApprovalRequest) UnmarshalJSON(b []byte) error {
	var in approvalJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	p, err := DecodePayload(in.Type, in.Payload)
	if err != nil {
		return err
	}
	*a = ApprovalRequest{
		ID:          in.ID,
		SubmittedBy: in.SubmittedBy,
		Status:      in.Status,
		Payload:     p,
		Note:        in.Note,
		DecidedBy:   in.DecidedBy,
		DecidedAt:   in.DecidedAt,
		CreatedAt:   in.CreatedAt,
	}
	return nil
}
