package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// AuditService records successful logins in PostgreSQL for support and
// abuse investigations. Failures here must never block a login.
type AuditService struct {
	db *sql.DB
}

func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

// RecordLogin stores one login event. strategy is "local", "github" or
// "register".
func (s *AuditService) RecordLogin(ctx context.Context, userID, strategy, ip, userAgent string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO login_events (id, user_id, strategy, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), userID, strategy, ip, userAgent)
	if err != nil {
		return fmt.Errorf("record login event: %w", err)
	}
	return nil
}
