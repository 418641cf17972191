package api

import "github.com/sawatantra/api/shared/domain"

type UserResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func NewUserResponses(entries []domain.DirectoryEntry) []UserResponse {
	res := make([]UserResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, UserResponse{Email: e.Email, Name: e.Name})
	}
	return res
}
