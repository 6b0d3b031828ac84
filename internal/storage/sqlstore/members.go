package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/clubsplit/internal/models"
	"github.com/mmynk/clubsplit/internal/storage"
)

// UpsertMember inserts a member or refreshes the directory fields.
func (s *Store) UpsertMember(ctx context.Context, member *models.Member) error {
	if member.ID == "" {
		return fmt.Errorf("member id required")
	}
	if member.CreatedAt == 0 {
		member.CreatedAt = time.Now().Unix()
	}

	query := `
		INSERT INTO members (id, club_id, display_name, email, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			club_id = excluded.club_id,
			display_name = excluded.display_name,
			email = excluded.email,
			role = excluded.role
	`

	_, err := s.db.ExecContext(ctx, s.q(query),
		member.ID,
		member.ClubID,
		member.DisplayName,
		member.Email,
		string(member.Role),
		member.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}

	return nil
}

// GetMember retrieves a member by ID.
func (s *Store) GetMember(ctx context.Context, memberID string) (*models.Member, error) {
	query := `
		SELECT id, club_id, display_name, email, role, created_at
		FROM members
		WHERE id = ?
	`

	member := &models.Member{}
	err := scanMember(s.db.QueryRowContext(ctx, s.q(query), memberID), member)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s: %w", memberID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

// ListMembersByClub returns the club directory ordered by ID.
func (s *Store) ListMembersByClub(ctx context.Context, clubID string) ([]*models.Member, error) {
	query := `
		SELECT id, club_id, display_name, email, role, created_at
		FROM members
		WHERE club_id = ?
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, s.q(query), clubID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		member := &models.Member{}
		if err := scanMember(rows, member); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

func scanMember(row scanner, m *models.Member) error {
	var role string
	if err := row.Scan(&m.ID, &m.ClubID, &m.DisplayName, &m.Email, &role, &m.CreatedAt); err != nil {
		return err
	}
	m.Role = models.Role(role)
	return nil
}
