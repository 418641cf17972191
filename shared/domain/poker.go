package domain

import (
	"slices"
	"time"
)

type Board struct {
	Id             BoardId
	Name           string
	Description    *string
	CreatedByEmail *Email
	Participants   []Email // insertion order, unique
	Stories        []Story // most recent first
	CurrentStoryId *StoryId
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type BoardSummary struct {
	Name           string
	Description    *string
	CreatedByEmail *Email
}

type BoardCreationData struct {
	Name           string
	Description    *string
	Participants   []Email
	CreatedByEmail *Email
}

type Story struct {
	Id        StoryId
	Title     string
	Votes     []Vote
	Revealed  bool
	Current   bool
	Estimate  *float64
	CreatedAt time.Time
}

type Vote struct {
	Email Email
	Value string
}

// Participant is a board member with the display name resolved from the user directory.
// Name is nil when the directory has no matching user.
type Participant struct {
	Email Email
	Name  *string
}

func (b *Board) Story(id StoryId) (*Story, bool) {
	for i := range b.Stories {
		if b.Stories[i].Id == id {
			return &b.Stories[i], true
		}
	}
	return nil, false
}

// MergeVotes returns rows followed by legacy entries whose email has no row.
// Legacy emails are emitted in sorted order so reads are stable.
func MergeVotes(rows []Vote, legacy map[Email]string) []Vote {
	if len(legacy) == 0 {
		return rows
	}
	seen := make(map[Email]struct{}, len(rows))
	for _, v := range rows {
		seen[v.Email] = struct{}{}
	}
	keys := make([]Email, 0, len(legacy))
	for k := range legacy {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	merged := make([]Vote, 0, len(rows)+len(keys))
	merged = append(merged, rows...)
	for _, k := range keys {
		merged = append(merged, Vote{Email: k, Value: legacy[k]})
	}
	return merged
}
