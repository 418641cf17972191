package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateConfirmationCode returns a random hex code of the given length (at most 32).
func GenerateConfirmationCode(length int) string {
	code := strings.ReplaceAll(uuid.NewString(), "-", "")
	if length > len(code) {
		length = len(code)
	}
	return code[:length]
}

func NewBoardId() string {
	return "B" + uuid.NewString()
}

func NewStoryId() string {
	return "S" + uuid.NewString()
}
