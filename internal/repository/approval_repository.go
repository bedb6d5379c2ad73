package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// ApprovalRepo stores manager requests.  The payload is kept as JSON next
// to its kind discriminator and decoded back into the typed payload on
// read.
type ApprovalRepo struct {
	db *sql.DB
}

func NewApprovalRepo(db *sql.DB) *ApprovalRepo { return &ApprovalRepo{db: db} }

const approvalColumns = `id, kind, payload, submitted_by, status, note, decided_by, decided_at, created_at`

// Create inserts a request and sets its id.
func (r *ApprovalRepo) Create(ctx context.Context, a *model.ApprovalRequest) error {
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO approval_requests (kind, payload, submitted_by, status, note, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		string(a.Payload.Kind()), string(payload), a.SubmittedBy, string(a.Status), a.Note, a.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// Get loads one request.
func (r *ApprovalRepo) Get(ctx context.Context, id uint64) (*model.ApprovalRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+approvalColumns+` FROM approval_requests WHERE id = ?`, id)
	a, err := scanApproval(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// List returns requests filtered by status and submitter; zero values do
// not filter.  Newest first.
func (r *ApprovalRepo) List(ctx context.Context, status model.ApprovalStatus, submittedBy uint64) ([]model.ApprovalRequest, error) {
	where := []string{}
	args := []any{}
	if status != "" {
		where = append(where, "status = ?")
		args = append(args, string(status))
	}
	if submittedBy != 0 {
		where = append(where, "submitted_by = ?")
		args = append(args, submittedBy)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+approvalColumns+` FROM approval_requests WHERE `+cond+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ApprovalRequest{}
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Decide moves a request from one status to another and reports whether
// the row was still in the from status.  Moving back to pending clears
// the decision.
func (r *ApprovalRepo) Decide(ctx context.Context, id uint64, from, to model.ApprovalStatus, decidedBy uint64, note string, at time.Time) (bool, error) {
	var (
		res sql.Result
		err error
	)
	if to == model.ApprovalPending {
		res, err = r.db.ExecContext(ctx,
			`UPDATE approval_requests SET status = ?, decided_by = NULL, decided_at = NULL WHERE id = ? AND status = ?`,
			string(to), id, string(from))
	} else {
		res, err = r.db.ExecContext(ctx,
			`UPDATE approval_requests SET status = ?, decided_by = ?, decided_at = ?, note = ? WHERE id = ? AND status = ?`,
			string(to), decidedBy, at.UTC(), note, id, string(from))
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func scanApproval(s rowScanner) (*model.ApprovalRequest, error) {
	var (
		a         model.ApprovalRequest
		kind      string
		payload   string
		status    string
		note      sql.NullString
		decidedBy sql.NullInt64
		decidedAt sql.NullTime
	)
	if err := s.Scan(&a.ID, &kind, &payload, &a.SubmittedBy, &status, &note, &decidedBy, &decidedAt, &a.CreatedAt); err != nil {
		return nil, err
	}
	p, err := model.DecodePayload(model.RequestKind(kind), json.RawMessage(payload))
	if err != nil {
		return nil, fmt.Errorf("approval %d: %w", a.ID, err)
	}
	a.Payload = p
	a.Status = model.ApprovalStatus(status)
	a.Note = note.String
	if decidedBy.Valid {
		u := uint64(decidedBy.Int64)
		a.DecidedBy = &u
	}
	if decidedAt.Valid {
		t := decidedAt.Time.UTC()
		a.DecidedAt = &t
	}
	return &a, nil
}
