package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/faith-connect-biz/faithconnect-go/internal/domain/model"
	"github.com/faith-connect-biz/faithconnect-go/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DemoSessionStore = (*DemoSessionRepo)(nil)

// DemoSessionRepo is the SQLite implementation of the DemoSessionStore port.
// Demo codes are short-lived development aids and stored in plaintext.
type DemoSessionRepo struct {
	db *DB
}

// NewDemoSessionRepo creates a new DemoSessionRepo.
func NewDemoSessionRepo(db *DB) *DemoSessionRepo {
	return &DemoSessionRepo{db: db}
}

// Put stores or replaces the demo session for its contact+method pair.
func (r *DemoSessionRepo) Put(ctx context.Context, sess model.DemoSession) error {
	const query = `INSERT OR REPLACE INTO demo_sessions (contact, method, code, subject_id, created_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`
	_, err := r.db.Writer.ExecContext(ctx, query, sess.Contact, sess.Method, sess.Code, sess.SubjectID)
	if err != nil {
		return fmt.Errorf("put demo session for %q/%q: %w", sess.Contact, sess.Method, err)
	}
	return nil
}

// Get returns the demo session for the pair, or (nil, nil) when none exists.
func (r *DemoSessionRepo) Get(ctx context.Context, contact, method string) (*model.DemoSession, error) {
	const query = `SELECT contact, method, code, subject_id, created_at FROM demo_sessions
		WHERE contact = ? AND method = ?`

	var sess model.DemoSession
	var createdAt string
	err := r.db.Reader.QueryRowContext(ctx, query, contact, method).
		Scan(&sess.Contact, &sess.Method, &sess.Code, &sess.SubjectID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get demo session for %q/%q: %w", contact, method, err)
	}

	sess.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for demo session %q/%q: %w", contact, method, err)
	}

	return &sess, nil
}

// Delete removes the demo session for the pair. Missing sessions are not an
// error.
func (r *DemoSessionRepo) Delete(ctx context.Context, contact, method string) error {
	const query = `DELETE FROM demo_sessions WHERE contact = ? AND method = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, contact, method); err != nil {
		return fmt.Errorf("delete demo session for %q/%q: %w", contact, method, err)
	}
	return nil
}

// parseTime parses the timestamp formats SQLite emits for CURRENT_TIMESTAMP.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
