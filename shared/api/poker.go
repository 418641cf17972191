package api

import (
	"time"

	"github.com/sawatantra/api/shared/domain"
)

// Request DTOs

type CreateBoardRequest struct {
	Name         string   `json:"name" validate:"required,max=200"`
	Description  *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Participants []string `json:"participants,omitempty" validate:"omitempty,dive,required,email"`
}

type AddParticipantRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type AddStoryRequest struct {
	Title string `json:"title" validate:"required,max=500"`
}

type SubmitVoteRequest struct {
	Vote string `json:"vote"`
}

// Response DTOs

type VoteResponse struct {
	Email string `json:"email"`
	Vote  string `json:"vote"`
}

type StoryResponse struct {
	StoryId   string         `json:"storyId"`
	Title     string         `json:"title"`
	Votes     []VoteResponse `json:"votes"`
	Revealed  bool           `json:"revealed"`
	Current   bool           `json:"current"`
	Estimate  *float64       `json:"estimate,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

type BoardResponse struct {
	BoardId        string          `json:"boardId"`
	Name           string          `json:"name"`
	Description    *string         `json:"description,omitempty"`
	CreatedByEmail *string         `json:"createdByEmail,omitempty"`
	Participants   []string        `json:"participants"`
	Stories        []StoryResponse `json:"stories"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type BoardSummaryResponse struct {
	Name           string  `json:"name"`
	Description    *string `json:"description"`
	CreatedByEmail *string `json:"createdByEmail"`
}

type ParticipantResponse struct {
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

func NewStoryResponses(stories []domain.Story) []StoryResponse {
	res := make([]StoryResponse, 0, len(stories))
	for _, s := range stories {
		votes := make([]VoteResponse, 0, len(s.Votes))
		for _, v := range s.Votes {
			votes = append(votes, VoteResponse{Email: v.Email, Vote: v.Value})
		}
		res = append(res, StoryResponse{
			StoryId:   s.Id,
			Title:     s.Title,
			Votes:     votes,
			Revealed:  s.Revealed,
			Current:   s.Current,
			Estimate:  s.Estimate,
			CreatedAt: s.CreatedAt,
		})
	}
	return res
}

func NewBoardResponse(b *domain.Board) BoardResponse {
	participants := b.Participants
	if participants == nil {
		participants = []string{}
	}
	return BoardResponse{
		BoardId:        b.Id,
		Name:           b.Name,
		Description:    b.Description,
		CreatedByEmail: b.CreatedByEmail,
		Participants:   participants,
		Stories:        NewStoryResponses(b.Stories),
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

func NewBoardSummaryResponse(s domain.BoardSummary) BoardSummaryResponse {
	return BoardSummaryResponse{Name: s.Name, Description: s.Description, CreatedByEmail: s.CreatedByEmail}
}

func NewParticipantResponses(ps []domain.Participant) []ParticipantResponse {
	res := make([]ParticipantResponse, 0, len(ps))
	for _, p := range ps {
		res = append(res, ParticipantResponse{Email: p.Email, Name: p.Name})
	}
	return res
}
