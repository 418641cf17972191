package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/sawatantra/api/backend/internal/storage/pg/migrations"
	"github.com/sawatantra/api/shared/domain"
	internal_errors "github.com/sawatantra/api/shared/errors"
)

// =========================================================================
// Public Methods (satisfy the service.PokerStorage interface)
// Every mutation runs in one transaction and returns the board as committed.
// =========================================================================

func (s *Storage) CreateBoard(ctx context.Context, id domain.BoardId, data domain.BoardCreationData) (domain.Board, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var board domain.Board
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO poker_boards (board_id, name, description, created_by_email) VALUES ($1, $2, $3, $4)`,
			id, data.Name, data.Description, data.CreatedByEmail); err != nil {
			return fmt.Errorf("failed to insert board: %w", err)
		}
		for _, email := range data.Participants {
			if _, err := s.insertParticipant(ctx, tx, id, email); err != nil {
				return err
			}
		}
		var err error
		board, err = s.board(ctx, tx, id)
		return err
	})
	return board, wrap("CreateBoard", err)
}

func (s *Storage) Board(ctx context.Context, id domain.BoardId) (domain.Board, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var board domain.Board
	err := s.withReadOnlyTx(ctx, func(tx *sql.Tx) error {
		var err error
		board, err = s.board(ctx, tx, id)
		return err
	})
	return board, wrap("Board", err)
}

func (s *Storage) BoardSummary(ctx context.Context, id domain.BoardId) (domain.BoardSummary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var summary domain.BoardSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT name, description, created_by_email FROM poker_boards WHERE board_id = $1`, id,
	).Scan(&summary.Name, &summary.Description, &summary.CreatedByEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BoardSummary{}, internal_errors.ErrBoardNotFound
	}
	if err != nil {
		return domain.BoardSummary{}, wrap("BoardSummary", fmt.Errorf("failed to query board: %w", err))
	}
	return summary, nil
}

func (s *Storage) Participants(ctx context.Context, id domain.BoardId) ([]domain.Email, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var participants []domain.Email
	err := s.withReadOnlyTx(ctx, func(tx *sql.Tx) error {
		if err := s.boardExists(ctx, tx, id); err != nil {
			return err
		}
		var err error
		participants, err = s.participants(ctx, tx, id)
		return err
	})
	return participants, wrap("Participants", err)
}

func (s *Storage) Stories(ctx context.Context, id domain.BoardId) ([]domain.Story, error) {
	board, err := s.Board(ctx, id)
	if err != nil {
		return nil, err
	}
	return board.Stories, nil
}

// AddParticipant appends email unless an entry already matches it case-insensitively.
// A no-op leaves updated_at untouched.
func (s *Storage) AddParticipant(ctx context.Context, id domain.BoardId, email domain.Email) (domain.Board, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var board domain.Board
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockBoard(ctx, tx, id); err != nil {
			return err
		}
		added, err := s.insertParticipant(ctx, tx, id, email)
		if err != nil {
			return err
		}
		if added {
			if err := s.touch(ctx, tx, id); err != nil {
				return err
			}
		}
		board, err = s.board(ctx, tx, id)
		return err
	})
	return board, wrap("AddParticipant", err)
}

func (s *Storage) DeleteParticipant(ctx context.Context, id domain.BoardId, email domain.Email) (domain.Board, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var board domain.Board
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockBoard(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM poker_board_participants WHERE board_id = $1 AND lower(email) = lower($2)`, id, email)
		if err != nil {
			return fmt.Errorf("failed to delete participant: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check affected rows for participant deletion: %w", err)
		}
		if n == 0 {
			return internal_errors.ErrParticipantNotFound
		}
		if err := s.touch(ctx, tx, id); err != nil {
			return err
		}
		board, err = s.board(ctx, tx, id)
		return err
	})
	return board, wrap("DeleteParticipant", err)
}

// AddStory inserts the story and makes it the board's current story in one transaction.
func (s *Storage) AddStory(ctx context.Context, id domain.BoardId, storyId domain.StoryId, title string) (domain.Board, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var board domain.Board
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockBoard(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO poker_stories (story_id, board_id, title) VALUES ($1, $2, $3)`,
			storyId, id, title); err != nil {
			return fmt.Errorf("failed to insert story: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE poker_boards SET current_story_id = $2, updated_at = now() WHERE board_id = $1`,
			id, storyId); err != nil {
			return fmt.Errorf("failed to set current story: %w", err)
		}
		var err error
		board, err = s.board(ctx, tx, id)
		return err
	})
	return board, wrap("AddStory", err)
}

// SubmitVote records the vote of email, replacing an earlier vote by the same email.
// Only participants and the board creator may vote; membership is checked under
// the board lock. The upsert is a single statement keyed by (story_id, email), so
// votes of distinct voters never overwrite each other.
func (s *Storage) SubmitVote(ctx context.Context, id domain.BoardId, storyId domain.StoryId, email domain.Email, vote string) (domain.Board, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var board domain.Board
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockStory(ctx, tx, id, storyId); err != nil {
			return err
		}
		if err := s.checkVoter(ctx, tx, id, email); err != nil {
			return err
		}
		if err := s.foldLegacyVotes(ctx, tx, storyId); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO poker_votes (story_id, email, vote) VALUES ($1, $2, $3)
			ON CONFLICT (story_id, email) DO UPDATE SET vote = EXCLUDED.vote`,
			storyId, email, vote); err != nil {
			return fmt.Errorf("failed to upsert vote: %w", err)
		}
		if err := s.touch(ctx, tx, id); err != nil {
			return err
		}
		var err error
		board, err = s.board(ctx, tx, id)
		return err
	})
	return board, wrap("SubmitVote", err)
}

func (s *Storage) RevealStory(ctx context.Context, id domain.BoardId, storyId domain.StoryId) (domain.Board, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var board domain.Board
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockStory(ctx, tx, id, storyId); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE poker_stories SET revealed = TRUE WHERE story_id = $1`, storyId); err != nil {
			return fmt.Errorf("failed to reveal story: %w", err)
		}
		if err := s.touch(ctx, tx, id); err != nil {
			return err
		}
		var err error
		board, err = s.board(ctx, tx, id)
		return err
	})
	return board, wrap("RevealStory", err)
}

// ResetStory drops every vote of the story, legacy ones included, and hides it again.
func (s *Storage) ResetStory(ctx context.Context, id domain.BoardId, storyId domain.StoryId) (domain.Board, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var board domain.Board
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockStory(ctx, tx, id, storyId); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE poker_stories SET revealed = FALSE, legacy_votes = NULL WHERE story_id = $1`, storyId); err != nil {
			return fmt.Errorf("failed to reset story: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM poker_votes WHERE story_id = $1`, storyId); err != nil {
			return fmt.Errorf("failed to delete votes: %w", err)
		}
		if err := s.touch(ctx, tx, id); err != nil {
			return err
		}
		var err error
		board, err = s.board(ctx, tx, id)
		return err
	})
	return board, wrap("ResetStory", err)
}

// =========================================================================
// Internal Methods (Core Database Logic)
// =========================================================================

func (s *Storage) lockBoard(ctx context.Context, q Querier, id domain.BoardId) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM poker_boards WHERE board_id = $1 FOR UPDATE`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return internal_errors.ErrBoardNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock board: %w", err)
	}
	return nil
}

func (s *Storage) boardExists(ctx context.Context, q Querier, id domain.BoardId) error {
	var exists bool
	if err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM poker_boards WHERE board_id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check board: %w", err)
	}
	if !exists {
		return internal_errors.ErrBoardNotFound
	}
	return nil
}

// lockStory locks the board row and checks that the story belongs to it.
// A missing board and a missing story are reported as different errors.
func (s *Storage) lockStory(ctx context.Context, q Querier, id domain.BoardId, storyId domain.StoryId) error {
	if err := s.lockBoard(ctx, q, id); err != nil {
		return err
	}
	var exists bool
	if err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM poker_stories WHERE story_id = $1 AND board_id = $2)`, storyId, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check story: %w", err)
	}
	if !exists {
		return internal_errors.ErrStoryNotFound
	}
	return nil
}

func (s *Storage) checkVoter(ctx context.Context, q Querier, id domain.BoardId, email domain.Email) error {
	var allowed bool
	if err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM poker_board_participants WHERE board_id = $1 AND lower(email) = lower($2)
		) OR EXISTS (
			SELECT 1 FROM poker_boards WHERE board_id = $1 AND lower(created_by_email) = lower($2)
		)`, id, email).Scan(&allowed); err != nil {
		return fmt.Errorf("failed to check voter: %w", err)
	}
	if !allowed {
		return internal_errors.ErrNotParticipant
	}
	return nil
}

func (s *Storage) touch(ctx context.Context, q Querier, id domain.BoardId) error {
	if _, err := q.ExecContext(ctx, `UPDATE poker_boards SET updated_at = now() WHERE board_id = $1`, id); err != nil {
		return fmt.Errorf("failed to touch board: %w", err)
	}
	return nil
}

func (s *Storage) insertParticipant(ctx context.Context, q Querier, id domain.BoardId, email domain.Email) (bool, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO poker_board_participants (board_id, email)
		SELECT $1, $2
		WHERE NOT EXISTS (
			SELECT 1 FROM poker_board_participants WHERE board_id = $1 AND lower(email) = lower($2)
		)`, id, email)
	if err != nil {
		return false, fmt.Errorf("failed to insert participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows for participant insert: %w", err)
	}
	return n == 1, nil
}

// foldLegacyVotes moves a keyed-map vote object into rows and clears the column.
func (s *Storage) foldLegacyVotes(ctx context.Context, q Querier, storyId domain.StoryId) error {
	var raw []byte
	err := q.QueryRowContext(ctx, `
		WITH old AS (
			SELECT story_id, legacy_votes FROM poker_stories
			WHERE story_id = $1 AND legacy_votes IS NOT NULL
			FOR UPDATE
		)
		UPDATE poker_stories p SET legacy_votes = NULL
		FROM old WHERE p.story_id = old.story_id
		RETURNING old.legacy_votes`, storyId).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to clear legacy votes: %w", err)
	}
	legacy, err := migrations.DecodeLegacyVotes(raw)
	if err != nil {
		return err
	}
	for _, email := range slices.Sorted(maps.Keys(legacy)) {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO poker_votes (story_id, email, vote) VALUES ($1, $2, $3) ON CONFLICT (story_id, email) DO NOTHING`,
			storyId, email, legacy[email]); err != nil {
			return fmt.Errorf("failed to fold legacy vote: %w", err)
		}
	}
	s.log.Info("folded legacy votes", "story_id", storyId, "count", len(legacy))
	return nil
}

func (s *Storage) participants(ctx context.Context, q Querier, id domain.BoardId) ([]domain.Email, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT email FROM poker_board_participants WHERE board_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	participants := []domain.Email{}
	for rows.Next() {
		var email domain.Email
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, email)
	}
	return participants, rows.Err()
}

// board loads the full aggregate. Stories still carrying legacy map votes are
// presented merged without touching storage.
func (s *Storage) board(ctx context.Context, q Querier, id domain.BoardId) (domain.Board, error) {
	var b domain.Board
	err := q.QueryRowContext(ctx, `
		SELECT board_id, name, description, created_by_email, current_story_id, created_at, updated_at
		FROM poker_boards WHERE board_id = $1`, id,
	).Scan(&b.Id, &b.Name, &b.Description, &b.CreatedByEmail, &b.CurrentStoryId, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Board{}, internal_errors.ErrBoardNotFound
	}
	if err != nil {
		return domain.Board{}, fmt.Errorf("failed to query board: %w", err)
	}

	if b.Participants, err = s.participants(ctx, q, id); err != nil {
		return domain.Board{}, err
	}

	votes, err := s.votesByStory(ctx, q, id)
	if err != nil {
		return domain.Board{}, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT story_id, title, revealed, estimate, legacy_votes, created_at
		FROM poker_stories WHERE board_id = $1 ORDER BY seq DESC`, id)
	if err != nil {
		return domain.Board{}, fmt.Errorf("failed to query stories: %w", err)
	}
	defer rows.Close()

	b.Stories = []domain.Story{}
	for rows.Next() {
		var st domain.Story
		var legacyRaw []byte
		if err := rows.Scan(&st.Id, &st.Title, &st.Revealed, &st.Estimate, &legacyRaw, &st.CreatedAt); err != nil {
			return domain.Board{}, fmt.Errorf("failed to scan story: %w", err)
		}
		legacy, err := migrations.DecodeLegacyVotes(legacyRaw)
		if err != nil {
			return domain.Board{}, fmt.Errorf("story %s: %w", st.Id, err)
		}
		st.Votes = domain.MergeVotes(votes[st.Id], legacy)
		if st.Votes == nil {
			st.Votes = []domain.Vote{}
		}
		st.Current = b.CurrentStoryId != nil && *b.CurrentStoryId == st.Id
		b.Stories = append(b.Stories, st)
	}
	if err := rows.Err(); err != nil {
		return domain.Board{}, fmt.Errorf("failed to iterate stories: %w", err)
	}
	return b, nil
}

func (s *Storage) votesByStory(ctx context.Context, q Querier, id domain.BoardId) (map[domain.StoryId][]domain.Vote, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT v.story_id, v.email, v.vote
		FROM poker_votes v JOIN poker_stories st ON st.story_id = v.story_id
		WHERE st.board_id = $1
		ORDER BY v.seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	votes := make(map[domain.StoryId][]domain.Vote)
	for rows.Next() {
		var storyId domain.StoryId
		var v domain.Vote
		if err := rows.Scan(&storyId, &v.Email, &v.Value); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes[storyId] = append(votes[storyId], v)
	}
	return votes, rows.Err()
}
