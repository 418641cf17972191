package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/sawatantra/api/shared/config"
	internal_errors "github.com/sawatantra/api/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestNew_WithoutKeyIsDisabled(t *testing.T) {
	a, err := New(context.Background(), "", config.Assistant{})
	require.NoError(t, err)

	_, err = a.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, internal_errors.ErrAssistantDisabled)
	_, err = a.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, internal_errors.ErrAssistantDisabled)
	assert.NoError(t, a.Close())
}

func TestClassify(t *testing.T) {
	limited := fmt.Errorf("call: %w", &googleapi.Error{Code: http.StatusTooManyRequests})
	assert.True(t, IsRateLimited(limited))
	assert.ErrorIs(t, classify("generate", limited), internal_errors.ErrAssistantBusy)

	other := &googleapi.Error{Code: http.StatusBadRequest}
	assert.False(t, IsRateLimited(other))
	err := classify("embed", other)
	assert.NotErrorIs(t, err, internal_errors.ErrAssistantBusy)
	var gErr *googleapi.Error
	assert.True(t, errors.As(err, &gErr))

	assert.False(t, IsRateLimited(errors.New("boom")))
}

func TestResponseText(t *testing.T) {
	assert.Equal(t, "", responseText(nil))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello, "), genai.Text("world")}}},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
		},
	}
	assert.Equal(t, "Hello, world", responseText(resp))
}
