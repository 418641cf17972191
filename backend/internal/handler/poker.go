package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/sawatantra/api/shared/api"
	"github.com/sawatantra/api/shared/domain"
	"github.com/sawatantra/api/shared/errors"
	mw "github.com/sawatantra/api/shared/middleware"
	"github.com/sawatantra/api/shared/utils"
)

var errNotAuthorized = &errors.ErrorWithStatusCode{Message: "Not authorized", StatusCode: http.StatusUnauthorized}

func writeBoard(w http.ResponseWriter, status int, board domain.Board) {
	utils.WriteJSON(w, status, api.NewBoardResponse(&board))
}

func (h *Handler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		utils.WriteErrorAndStatusCode(w, errNotAuthorized)
		return
	}
	var body api.CreateBoardRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	board, err := h.poker.CreateBoard(r.Context(), domain.BoardCreationData{
		Name:           body.Name,
		Description:    body.Description,
		Participants:   body.Participants,
		CreatedByEmail: &user.Email,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeBoard(w, http.StatusCreated, board)
}

func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.poker.GetBoard(r.Context(), chi.URLParam(r, "boardId"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.NewBoardSummaryResponse(summary))
}

func (h *Handler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.poker.GetParticipants(r.Context(), chi.URLParam(r, "boardId"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.NewParticipantResponses(participants))
}

func (h *Handler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	var body api.AddParticipantRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	board, err := h.poker.AddParticipant(r.Context(), chi.URLParam(r, "boardId"), body.Email)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeBoard(w, http.StatusOK, board)
}

func (h *Handler) DeleteParticipant(w http.ResponseWriter, r *http.Request) {
	// chi leaves path params escaped
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err == nil {
		err = utils.ValidateVar(email, "required,email")
	}
	if err != nil {
		utils.WriteErrorAndStatusCode(w, &errors.ErrorWithStatusCode{Message: "Invalid email", StatusCode: http.StatusBadRequest})
		return
	}
	board, err := h.poker.DeleteParticipant(r.Context(), chi.URLParam(r, "boardId"), email)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeBoard(w, http.StatusOK, board)
}

func (h *Handler) AddStory(w http.ResponseWriter, r *http.Request) {
	var body api.AddStoryRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	board, err := h.poker.AddStory(r.Context(), chi.URLParam(r, "boardId"), body.Title)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeBoard(w, http.StatusCreated, board)
}

func (h *Handler) GetStories(w http.ResponseWriter, r *http.Request) {
	stories, err := h.poker.GetStories(r.Context(), chi.URLParam(r, "boardId"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.NewStoryResponses(stories))
}

// SubmitVote records a vote on behalf of the authenticated caller.
func (h *Handler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		utils.WriteErrorAndStatusCode(w, errNotAuthorized)
		return
	}
	// votes are opaque, any string is accepted
	var body api.SubmitVoteRequest
	if err := utils.Decode(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	board, err := h.poker.SubmitVote(r.Context(), chi.URLParam(r, "boardId"), chi.URLParam(r, "storyId"), user.Email, body.Vote)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeBoard(w, http.StatusOK, board)
}

func (h *Handler) RevealStoryVotes(w http.ResponseWriter, r *http.Request) {
	board, err := h.poker.RevealStoryVotes(r.Context(), chi.URLParam(r, "boardId"), chi.URLParam(r, "storyId"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeBoard(w, http.StatusOK, board)
}

func (h *Handler) ResetStoryVotes(w http.ResponseWriter, r *http.Request) {
	board, err := h.poker.ResetStoryVotes(r.Context(), chi.URLParam(r, "boardId"), chi.URLParam(r, "storyId"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeBoard(w, http.StatusOK, board)
}
