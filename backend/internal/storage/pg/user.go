package pg

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/sawatantra/api/shared/domain"
)

// Users lists the directory ordered by email.
func (s *Storage) Users(ctx context.Context) ([]domain.DirectoryEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	entries, err := s.directory(ctx, s.db, `SELECT email, name FROM users ORDER BY email`)
	return entries, wrap("Users", err)
}

// SearchUsers matches a case-insensitive substring of email or name.
func (s *Storage) SearchUsers(ctx context.Context, query string, limit int) ([]domain.DirectoryEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	entries, err := s.directory(ctx, s.db,
		`SELECT email, name FROM users
		 WHERE lower(email) LIKE $1 ESCAPE '\' OR lower(name) LIKE $1 ESCAPE '\'
		 ORDER BY email LIMIT $2`, pattern, limit)
	return entries, wrap("SearchUsers", err)
}

// UsersByEmails resolves directory entries for the given emails, case-insensitively.
func (s *Storage) UsersByEmails(ctx context.Context, emails []domain.Email) ([]domain.DirectoryEntry, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	lowered := make([]string, len(emails))
	for i, e := range emails {
		lowered[i] = strings.ToLower(e)
	}
	entries, err := s.directory(ctx, s.db,
		`SELECT email, name FROM users WHERE lower(email) = ANY($1)`, pq.Array(lowered))
	return entries, wrap("UsersByEmails", err)
}

func (s *Storage) directory(ctx context.Context, q Querier, query string, args ...any) ([]domain.DirectoryEntry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var entries []domain.DirectoryEntry
	for rows.Next() {
		var e domain.DirectoryEntry
		if err := rows.Scan(&e.Email, &e.Name); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return entries, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
