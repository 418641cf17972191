package migrations

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// FoldLegacyVotes converts every keyed-map vote object left by imported boards
// into poker_votes rows. Existing rows win over map entries for the same email.
func FoldLegacyVotes(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT story_id, legacy_votes FROM poker_stories WHERE legacy_votes IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("select legacy votes: %w", err)
	}

	folded := make(map[string]map[string]string)
	for rows.Next() {
		var storyId string
		var raw []byte
		if err := rows.Scan(&storyId, &raw); err != nil {
			rows.Close()
			return fmt.Errorf("scan legacy votes: %w", err)
		}
		votes, err := DecodeLegacyVotes(raw)
		if err != nil {
			rows.Close()
			return fmt.Errorf("story %s: %w", storyId, err)
		}
		folded[storyId] = votes
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	// sorted emails give folded votes a stable seq order
	for _, storyId := range slices.Sorted(maps.Keys(folded)) {
		votes := folded[storyId]
		for _, email := range slices.Sorted(maps.Keys(votes)) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO poker_votes (story_id, email, vote) VALUES ($1, $2, $3) ON CONFLICT (story_id, email) DO NOTHING`,
				storyId, email, votes[email]); err != nil {
				return fmt.Errorf("fold vote of %s into story %s: %w", email, storyId, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE poker_stories SET legacy_votes = NULL WHERE legacy_votes IS NOT NULL`); err != nil {
		return fmt.Errorf("clear legacy votes: %w", err)
	}
	return nil
}

// The fold is lossless, so there is nothing to restore.
func downFoldLegacyVotes(ctx context.Context, tx *sql.Tx) error {
	return nil
}

// DecodeLegacyVotes parses the keyed-map vote object. Values that are not JSON
// strings (old clients sent bare numbers) keep their literal text.
func DecodeLegacyVotes(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("legacy votes are not an object: %w", err)
	}
	votes := make(map[string]string, len(entries))
	for email, value := range entries {
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			votes[email] = s
			continue
		}
		if string(value) == "null" {
			continue
		}
		votes[email] = string(value)
	}
	return votes, nil
}
