package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sawatantra/api/shared/domain"
)

// ImportedStory is a story from an exported board document. Votes kept in the
// obsolete keyed-map shape go to LegacyVotes and are folded on first write.
type ImportedStory struct {
	Story       domain.Story
	LegacyVotes map[domain.Email]string
}

type ImportedBoard struct {
	Board   domain.Board
	Stories []ImportedStory // most recent first, as exported
}

// ImportBoard stores a board with its original ids and timestamps. It reports
// false without changes when the board id already exists.
func (s *Storage) ImportBoard(ctx context.Context, in ImportedBoard) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var imported bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		b := in.Board
		res, err := tx.ExecContext(ctx, `
			INSERT INTO poker_boards (board_id, name, description, created_by_email, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (board_id) DO NOTHING`,
			b.Id, b.Name, b.Description, b.CreatedByEmail, b.CreatedAt, b.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert board: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("failed to check affected rows for board import: %w", err)
		} else if n == 0 {
			return nil
		}
		imported = true

		for _, email := range b.Participants {
			if _, err := s.insertParticipant(ctx, tx, b.Id, email); err != nil {
				return err
			}
		}

		// oldest first so seq order matches the export
		var current *domain.StoryId
		for i := len(in.Stories) - 1; i >= 0; i-- {
			st := in.Stories[i]
			if err := s.importStory(ctx, tx, b.Id, st); err != nil {
				return err
			}
			if st.Story.Current {
				id := st.Story.Id
				current = &id
			}
		}
		if current != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE poker_boards SET current_story_id = $2 WHERE board_id = $1`, b.Id, *current); err != nil {
				return fmt.Errorf("failed to set current story: %w", err)
			}
		}
		return nil
	})
	return imported, wrap("ImportBoard", err)
}

func (s *Storage) importStory(ctx context.Context, q Querier, boardId domain.BoardId, in ImportedStory) error {
	var legacy sql.NullString
	if len(in.LegacyVotes) > 0 {
		raw, err := json.Marshal(in.LegacyVotes)
		if err != nil {
			return fmt.Errorf("failed to encode legacy votes: %w", err)
		}
		legacy = sql.NullString{String: string(raw), Valid: true}
	}
	st := in.Story
	if _, err := q.ExecContext(ctx, `
		INSERT INTO poker_stories (story_id, board_id, title, revealed, estimate, legacy_votes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		st.Id, boardId, st.Title, st.Revealed, st.Estimate, legacy, st.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert story %s: %w", st.Id, err)
	}
	for _, v := range st.Votes {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO poker_votes (story_id, email, vote) VALUES ($1, $2, $3)
			ON CONFLICT (story_id, email) DO UPDATE SET vote = EXCLUDED.vote`,
			st.Id, v.Email, v.Value); err != nil {
			return fmt.Errorf("failed to insert vote of story %s: %w", st.Id, err)
		}
	}
	return nil
}
