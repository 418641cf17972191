package handler

import (
	"net/http"
	"strconv"

	"github.com/sawatantra/api/shared/api"
	"github.com/sawatantra/api/shared/errors"
	"github.com/sawatantra/api/shared/utils"
)

func (h *Handler) QueryKnowledge(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	topK := 0
	if raw := query.Get("topK"); raw != "" {
		var err error
		if topK, err = strconv.Atoi(raw); err != nil || topK < 1 {
			utils.WriteErrorAndStatusCode(w, &errors.ErrorWithStatusCode{Message: "topK must be a positive integer", StatusCode: http.StatusBadRequest})
			return
		}
	}

	answer, err := h.knowledge.Query(r.Context(), query.Get("q"), topK)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.QueryResponse{Answer: answer.Text, AnswerHTML: answer.HTML})
}

func (h *Handler) SaveKnowledge(w http.ResponseWriter, r *http.Request) {
	var body api.SaveKnowledgeRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	id, err := h.knowledge.Save(r.Context(), body.Content)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, api.SaveKnowledgeResponse{Id: id})
}
