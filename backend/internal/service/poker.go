package service

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/sawatantra/api/backend/internal/service/utils"
	internal_utils "github.com/sawatantra/api/backend/internal/utils"
	"github.com/sawatantra/api/shared/domain"
	"github.com/sawatantra/api/shared/errors"
	"github.com/sawatantra/api/shared/logger"
	"github.com/sawatantra/api/shared/middleware/metrics"
)

// to mock service in tests
type PokerService interface {
	CreateBoard(ctx context.Context, data domain.BoardCreationData) (domain.Board, error)
	GetBoard(ctx context.Context, id domain.BoardId) (domain.BoardSummary, error)
	AddParticipant(ctx context.Context, id domain.BoardId, email domain.Email) (domain.Board, error)
	DeleteParticipant(ctx context.Context, id domain.BoardId, email domain.Email) (domain.Board, error)
	GetParticipants(ctx context.Context, id domain.BoardId) ([]domain.Participant, error)
	AddStory(ctx context.Context, id domain.BoardId, title string) (domain.Board, error)
	SubmitVote(ctx context.Context, id domain.BoardId, storyId domain.StoryId, email domain.Email, vote string) (domain.Board, error)
	RevealStoryVotes(ctx context.Context, id domain.BoardId, storyId domain.StoryId) (domain.Board, error)
	ResetStoryVotes(ctx context.Context, id domain.BoardId, storyId domain.StoryId) (domain.Board, error)
	GetStories(ctx context.Context, id domain.BoardId) ([]domain.Story, error)
}

type PokerStorage interface {
	CreateBoard(ctx context.Context, id domain.BoardId, data domain.BoardCreationData) (domain.Board, error)
	BoardSummary(ctx context.Context, id domain.BoardId) (domain.BoardSummary, error)
	Participants(ctx context.Context, id domain.BoardId) ([]domain.Email, error)
	Stories(ctx context.Context, id domain.BoardId) ([]domain.Story, error)
	AddParticipant(ctx context.Context, id domain.BoardId, email domain.Email) (domain.Board, error)
	DeleteParticipant(ctx context.Context, id domain.BoardId, email domain.Email) (domain.Board, error)
	AddStory(ctx context.Context, id domain.BoardId, storyId domain.StoryId, title string) (domain.Board, error)
	SubmitVote(ctx context.Context, id domain.BoardId, storyId domain.StoryId, email domain.Email, vote string) (domain.Board, error)
	RevealStory(ctx context.Context, id domain.BoardId, storyId domain.StoryId) (domain.Board, error)
	ResetStory(ctx context.Context, id domain.BoardId, storyId domain.StoryId) (domain.Board, error)
}

// DirectoryLookup resolves display names for a set of emails.
// Emails without a registered user are simply absent from the result.
type DirectoryLookup interface {
	UsersByEmails(ctx context.Context, emails []domain.Email) ([]domain.DirectoryEntry, error)
}

type Poker struct {
	storage   PokerStorage
	directory DirectoryLookup
}

func NewPoker(storage PokerStorage, directory DirectoryLookup) PokerService {
	return &Poker{storage: storage, directory: directory}
}

var (
	errEmptyName  = &errors.ErrorWithStatusCode{Message: "Board name is required", StatusCode: http.StatusBadRequest}
	errEmptyTitle = &errors.ErrorWithStatusCode{Message: "Story title is required", StatusCode: http.StatusBadRequest}
	errEmptyEmail = &errors.ErrorWithStatusCode{Message: "Email is required", StatusCode: http.StatusBadRequest}
)

func normalizeEmail(email domain.Email) domain.Email {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateBoard stores a new board. Initial participants are de-duplicated
// keeping the order of first occurrence.
func (p *Poker) CreateBoard(ctx context.Context, data domain.BoardCreationData) (domain.Board, error) {
	name := utils.SanitizeText(data.Name)
	if name == "" {
		return domain.Board{}, errEmptyName
	}

	seen := make(map[domain.Email]struct{}, len(data.Participants))
	participants := make([]domain.Email, 0, len(data.Participants))
	for _, e := range data.Participants {
		e = normalizeEmail(e)
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		participants = append(participants, e)
	}

	var createdBy *domain.Email
	if data.CreatedByEmail != nil && normalizeEmail(*data.CreatedByEmail) != "" {
		e := normalizeEmail(*data.CreatedByEmail)
		createdBy = &e
	}

	board, err := p.storage.CreateBoard(ctx, internal_utils.NewBoardId(), domain.BoardCreationData{
		Name:           name,
		Description:    utils.SanitizeOptional(data.Description),
		Participants:   participants,
		CreatedByEmail: createdBy,
	})
	if err != nil {
		return domain.Board{}, errors.Persistence("create board", err)
	}
	logger.Log.Info("planning poker board created", "board_id", board.Id, "participants", len(board.Participants))
	metrics.PokerEvents.WithLabelValues("board_created").Inc()
	return board, nil
}

func (p *Poker) GetBoard(ctx context.Context, id domain.BoardId) (domain.BoardSummary, error) {
	summary, err := p.storage.BoardSummary(ctx, id)
	if err != nil {
		return domain.BoardSummary{}, errors.Persistence("get board", err)
	}
	return summary, nil
}

func (p *Poker) AddParticipant(ctx context.Context, id domain.BoardId, email domain.Email) (domain.Board, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.Board{}, errEmptyEmail
	}
	board, err := p.storage.AddParticipant(ctx, id, email)
	if err != nil {
		return domain.Board{}, errors.Persistence("add participant", err)
	}
	metrics.PokerEvents.WithLabelValues("participant_added").Inc()
	return board, nil
}

func (p *Poker) DeleteParticipant(ctx context.Context, id domain.BoardId, email domain.Email) (domain.Board, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.Board{}, errEmptyEmail
	}
	board, err := p.storage.DeleteParticipant(ctx, id, email)
	if err != nil {
		return domain.Board{}, errors.Persistence("delete participant", err)
	}
	metrics.PokerEvents.WithLabelValues("participant_deleted").Inc()
	return board, nil
}

// GetParticipants returns the participant list with display names. A name is
// nil when the directory does not know the email or the directory is unavailable.
func (p *Poker) GetParticipants(ctx context.Context, id domain.BoardId) ([]domain.Participant, error) {
	emails, err := p.storage.Participants(ctx, id)
	if err != nil {
		return nil, errors.Persistence("get participants", err)
	}

	names := p.resolveNames(ctx, id, emails)
	res := make([]domain.Participant, 0, len(emails))
	for _, e := range emails {
		participant := domain.Participant{Email: e}
		if name, ok := names[strings.ToLower(e)]; ok {
			participant.Name = &name
		}
		res = append(res, participant)
	}
	return res, nil
}

func (p *Poker) resolveNames(ctx context.Context, id domain.BoardId, emails []domain.Email) map[domain.Email]string {
	if len(emails) == 0 || p.directory == nil {
		return nil
	}
	entries, err := p.directory.UsersByEmails(ctx, emails)
	if err != nil {
		logger.Log.Warn("failed to resolve participant names", "board_id", id, "error", err)
		return nil
	}
	names := make(map[domain.Email]string, len(entries))
	for _, e := range entries {
		names[strings.ToLower(e.Email)] = e.Name
	}
	return names
}

// AddStory prepends a new story and makes it the current one.
func (p *Poker) AddStory(ctx context.Context, id domain.BoardId, title string) (domain.Board, error) {
	title = utils.SanitizeText(title)
	if title == "" {
		return domain.Board{}, errEmptyTitle
	}
	board, err := p.storage.AddStory(ctx, id, internal_utils.NewStoryId(), title)
	if err != nil {
		return domain.Board{}, errors.Persistence("add story", err)
	}
	metrics.PokerEvents.WithLabelValues("story_added").Inc()
	return board, nil
}

// SubmitVote records the caller's vote, replacing a previous vote by the same email.
// Only participants and the board creator may vote.
func (p *Poker) SubmitVote(ctx context.Context, id domain.BoardId, storyId domain.StoryId, email domain.Email, vote string) (domain.Board, error) {
	email = normalizeEmail(email)
	board, err := p.storage.SubmitVote(ctx, id, storyId, email, vote)
	if stderrors.Is(err, errors.ErrNotParticipant) {
		logger.Log.Info("vote rejected, not a participant", "board_id", id, "story_id", storyId, "email", email)
	}
	if err != nil {
		return domain.Board{}, errors.Persistence("submit vote", err)
	}
	metrics.PokerEvents.WithLabelValues("vote_submitted").Inc()
	if st, ok := board.Story(storyId); ok {
		logger.Log.Debug("vote recorded", "board_id", id, "story_id", storyId, "votes", len(st.Votes))
	}
	return board, nil
}

func (p *Poker) RevealStoryVotes(ctx context.Context, id domain.BoardId, storyId domain.StoryId) (domain.Board, error) {
	board, err := p.storage.RevealStory(ctx, id, storyId)
	if err != nil {
		return domain.Board{}, errors.Persistence("reveal story", err)
	}
	metrics.PokerEvents.WithLabelValues("story_revealed").Inc()
	return board, nil
}

func (p *Poker) ResetStoryVotes(ctx context.Context, id domain.BoardId, storyId domain.StoryId) (domain.Board, error) {
	board, err := p.storage.ResetStory(ctx, id, storyId)
	if err != nil {
		return domain.Board{}, errors.Persistence("reset story", err)
	}
	metrics.PokerEvents.WithLabelValues("story_reset").Inc()
	return board, nil
}

func (p *Poker) GetStories(ctx context.Context, id domain.BoardId) ([]domain.Story, error) {
	stories, err := p.storage.Stories(ctx, id)
	if err != nil {
		return nil, errors.Persistence("get stories", err)
	}
	return stories, nil
}
