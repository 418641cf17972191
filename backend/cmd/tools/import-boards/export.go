package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/sawatantra/api/backend/internal/storage/pg"
	"github.com/sawatantra/api/shared/domain"
)

// exportedBoard is one document of a mongoexport dump of planning-poker-boards.
// Dates and numbers may use either canonical or relaxed extended JSON.
type exportedBoard struct {
	BoardId        string          `bson:"boardId"`
	Name           string          `bson:"name"`
	Description    *string         `bson:"description"`
	CreatedByEmail *string         `bson:"createdByEmail"`
	Participants   []string        `bson:"participants"`
	Stories        []exportedStory `bson:"stories"`
	CreatedAt      time.Time       `bson:"createdAt"`
	UpdatedAt      time.Time       `bson:"updatedAt"`
}

type exportedStory struct {
	StoryId   string        `bson:"storyId"`
	Title     string        `bson:"title"`
	Votes     bson.RawValue `bson:"votes"` // array of {email, vote} or the old {email: vote} object
	Revealed  bool          `bson:"revealed"`
	Current   bool          `bson:"current"`
	Estimate  *float64      `bson:"estimate"`
	CreatedAt time.Time     `bson:"createdAt"`
}

type exportedVote struct {
	Email string        `bson:"email"`
	Vote  bson.RawValue `bson:"vote"`
}

// readExport decodes either a JSON array of documents or one document per line.
func readExport(r io.Reader) ([]exportedBoard, error) {
	dec := json.NewDecoder(r)
	var boards []exportedBoard
	decodeOne := func(raw []byte) error {
		var b exportedBoard
		if err := bson.UnmarshalExtJSON(raw, false, &b); err != nil {
			return fmt.Errorf("failed to decode board #%d: %w", len(boards)+1, err)
		}
		boards = append(boards, b)
		return nil
	}

	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == io.EOF {
			return boards, nil
		} else if err != nil {
			return nil, fmt.Errorf("failed to decode export: %w", err)
		}

		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '[' {
			if err := decodeOne(raw); err != nil {
				return nil, err
			}
			continue
		}

		var batch []json.RawMessage
		if err := json.Unmarshal(raw, &batch); err != nil {
			return nil, fmt.Errorf("failed to decode export: %w", err)
		}
		for _, doc := range batch {
			if err := decodeOne(doc); err != nil {
				return nil, err
			}
		}
	}
}

// toImported converts an exported document. now fills missing timestamps.
func toImported(in exportedBoard, now time.Time) (pg.ImportedBoard, error) {
	if in.BoardId == "" {
		return pg.ImportedBoard{}, fmt.Errorf("board %q has no boardId", in.Name)
	}

	board := domain.Board{
		Id:             in.BoardId,
		Name:           in.Name,
		Description:    in.Description,
		CreatedByEmail: normalizeEmailPtr(in.CreatedByEmail),
		CreatedAt:      orNow(in.CreatedAt, now),
		UpdatedAt:      orNow(in.UpdatedAt, now),
	}
	seen := make(map[string]bool, len(in.Participants))
	for _, p := range in.Participants {
		email := normalizeEmail(p)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		board.Participants = append(board.Participants, email)
	}

	out := pg.ImportedBoard{Board: board}
	for _, st := range in.Stories {
		if st.StoryId == "" {
			return pg.ImportedBoard{}, fmt.Errorf("board %s: story %q has no storyId", in.BoardId, st.Title)
		}
		imported := pg.ImportedStory{Story: domain.Story{
			Id:        st.StoryId,
			Title:     st.Title,
			Revealed:  st.Revealed,
			Current:   st.Current,
			Estimate:  st.Estimate,
			CreatedAt: orNow(st.CreatedAt, board.CreatedAt),
		}}

		votes, legacy, err := decodeVotes(st.Votes)
		if err != nil {
			return pg.ImportedBoard{}, fmt.Errorf("board %s story %s: %w", in.BoardId, st.StoryId, err)
		}
		imported.Story.Votes = votes
		imported.LegacyVotes = legacy
		out.Stories = append(out.Stories, imported)
	}
	return out, nil
}

// decodeVotes returns the vote list for the array shape, or the keyed map for
// the obsolete object shape.
func decodeVotes(raw bson.RawValue) ([]domain.Vote, map[domain.Email]string, error) {
	switch raw.Type {
	case 0, bson.TypeNull, bson.TypeUndefined:
		return nil, nil, nil

	case bson.TypeEmbeddedDocument:
		elems, err := raw.Document().Elements()
		if err != nil {
			return nil, nil, fmt.Errorf("invalid keyed votes: %w", err)
		}
		legacy := make(map[domain.Email]string, len(elems))
		for _, e := range elems {
			if v, ok := voteValue(e.Value()); ok {
				legacy[normalizeEmail(e.Key())] = v
			}
		}
		return nil, legacy, nil

	case bson.TypeArray:
		var list []exportedVote
		if err := raw.Unmarshal(&list); err != nil {
			return nil, nil, fmt.Errorf("invalid votes: %w", err)
		}
		// last vote per email wins, position of the first one is kept
		index := make(map[string]int, len(list))
		var votes []domain.Vote
		for _, v := range list {
			value, ok := voteValue(v.Vote)
			if !ok {
				continue
			}
			email := normalizeEmail(v.Email)
			if i, ok := index[email]; ok {
				votes[i].Value = value
				continue
			}
			index[email] = len(votes)
			votes = append(votes, domain.Vote{Email: email, Value: value})
		}
		return votes, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported votes type %s", raw.Type)
	}
}

// voteValue renders a stored vote as text. Old clients sent bare numbers.
func voteValue(v bson.RawValue) (string, bool) {
	switch v.Type {
	case bson.TypeString:
		return v.StringValue(), true
	case bson.TypeInt32:
		return strconv.FormatInt(int64(v.Int32()), 10), true
	case bson.TypeInt64:
		return strconv.FormatInt(v.Int64(), 10), true
	case bson.TypeDouble:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64), true
	case 0, bson.TypeNull, bson.TypeUndefined:
		return "", false
	default:
		return v.String(), true
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeEmailPtr(email *string) *string {
	if email == nil {
		return nil
	}
	e := normalizeEmail(*email)
	if e == "" {
		return nil
	}
	return &e
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}
