// Package services contains application services for the trackerctl client.
// This file defines the session gate: local-only registration, credential
// checks, and the persisted session marker that guards detection commands.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/trackerctl/internal/client/repositories/kv"
	"github.com/dmitrijs2005/trackerctl/internal/common"
	"github.com/dmitrijs2005/trackerctl/internal/dbx"
	"github.com/dmitrijs2005/trackerctl/internal/logging"
)

// Local store keys, kept byte-compatible with the original front end's
// browser storage: "users" holds a JSON mapping email -> credential record,
// "auth_user" holds the marker email as a plain string.
const (
	usersKey    = "users"
	authUserKey = "auth_user"
)

// SessionService defines the local session gate.
//
// Contract:
//   - Register: writes/overwrites the credential record; always succeeds;
//     no format validation, no duplicate check (last write wins).
//   - Authenticate: true iff a record exists for email and its password
//     matches exactly. No rate limiting, no lockout.
//   - MarkAuthenticated: persists the session marker.
//   - CurrentUser: returns the marker, or common.ErrNoSession.
//   - RequireSession: like CurrentUser; callers bounce the user to the login
//     prompt on common.ErrNoSession.
//   - Logout: deletes the marker.
//
// Credentials are stored in plaintext. That is the documented behavior of
// the system being reimplemented, not an oversight; the gate only keeps
// honest users out.
type SessionService interface {
	Register(ctx context.Context, email, password string) error
	Authenticate(ctx context.Context, email, password string) (bool, error)
	MarkAuthenticated(ctx context.Context, email string) error
	CurrentUser(ctx context.Context) (string, error)
	RequireSession(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
}

// credentialRecord mirrors the stored shape of one account.
type credentialRecord struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionService struct {
	db  *sql.DB
	log logging.Logger
}

// NewSessionService constructs a SessionService over the local database.
func NewSessionService(db *sql.DB, log logging.Logger) SessionService {
	return &sessionService{db: db, log: log}
}

func (s *sessionService) repo(db dbx.DBTX) kv.Repository {
	return kv.NewSQLiteRepository(db)
}

// loadUsers reads and decodes the credential mapping. A missing key yields an
// empty mapping. Corrupt JSON fails closed: the mapping is treated as empty
// (and logged), never propagated as a crash.
func (s *sessionService) loadUsers(ctx context.Context, repo kv.Repository) (map[string]credentialRecord, error) {
	raw, err := repo.Get(ctx, usersKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return map[string]credentialRecord{}, nil
		}
		return nil, fmt.Errorf("load users: %w", err)
	}

	users := map[string]credentialRecord{}
	if err := json.Unmarshal(raw, &users); err != nil {
		s.log.Warn(ctx, "stored credential data is corrupt, treating as empty", "error", err)
		return map[string]credentialRecord{}, nil
	}
	return users, nil
}

func (s *sessionService) Register(ctx context.Context, email, password string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)

		users, err := s.loadUsers(ctx, repo)
		if err != nil {
			return err
		}

		users[email] = credentialRecord{Email: email, Password: password}

		raw, err := json.Marshal(users)
		if err != nil {
			return fmt.Errorf("encode users: %w", err)
		}
		return repo.Set(ctx, usersKey, raw)
	})
}

func (s *sessionService) Authenticate(ctx context.Context, email, password string) (bool, error) {
	users, err := s.loadUsers(ctx, s.repo(s.db))
	if err != nil {
		return false, err
	}

	rec, ok := users[email]
	if !ok {
		return false, nil
	}
	return rec.Password == password, nil
}

func (s *sessionService) MarkAuthenticated(ctx context.Context, email string) error {
	return s.repo(s.db).Set(ctx, authUserKey, []byte(email))
}

func (s *sessionService) CurrentUser(ctx context.Context) (string, error) {
	raw, err := s.repo(s.db).Get(ctx, authUserKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrNoSession
		}
		return "", fmt.Errorf("read session marker: %w", err)
	}
	if len(raw) == 0 {
		return "", common.ErrNoSession
	}
	return string(raw), nil
}

func (s *sessionService) RequireSession(ctx context.Context) (string, error) {
	return s.CurrentUser(ctx)
}

func (s *sessionService) Logout(ctx context.Context) error {
	return s.repo(s.db).Delete(ctx, authUserKey)
}
