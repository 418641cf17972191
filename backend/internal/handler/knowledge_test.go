package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sawatantra/api/shared/domain"
	internal_errors "github.com/sawatantra/api/shared/errors"
	"github.com/stretchr/testify/assert"
)

type MockKnowledgeService struct {
	MockSave  func(content string) (int64, error)
	MockQuery func(question string, topK int) (domain.Answer, error)
}

func (m *MockKnowledgeService) Save(ctx context.Context, content string) (int64, error) {
	if m.MockSave != nil {
		return m.MockSave(content)
	}
	return 1, nil
}

func (m *MockKnowledgeService) Query(ctx context.Context, question string, topK int) (domain.Answer, error) {
	if m.MockQuery != nil {
		return m.MockQuery(question, topK)
	}
	return domain.Answer{}, nil
}

func TestQueryKnowledgeHandler(t *testing.T) {
	h := &Handler{cfg: testConfig()}
	router := chi.NewRouter()
	router.Get("/ai/query", h.QueryKnowledge)

	t.Run("answer", func(t *testing.T) {
		h.knowledge = &MockKnowledgeService{
			MockQuery: func(question string, topK int) (domain.Answer, error) {
				assert.Equal(t, "who is he?", question)
				assert.Equal(t, 3, topK)
				return domain.Answer{Text: "**A** developer", HTML: "<p><strong>A</strong> developer</p>"}, nil
			},
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, createRequest(t, http.MethodGet, "/ai/query?q=who+is+he%3F&topK=3", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"answer":"**A** developer","answer_html":"<p><strong>A</strong> developer</p>"}`, rr.Body.String())
	})

	t.Run("default topK", func(t *testing.T) {
		h.knowledge = &MockKnowledgeService{
			MockQuery: func(question string, topK int) (domain.Answer, error) {
				assert.Equal(t, 0, topK)
				return domain.Answer{}, nil
			},
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, createRequest(t, http.MethodGet, "/ai/query?q=x", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("bad topK", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, createRequest(t, http.MethodGet, "/ai/query?q=x&topK=abc", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("provider rate limit", func(t *testing.T) {
		h.knowledge = &MockKnowledgeService{
			MockQuery: func(question string, topK int) (domain.Answer, error) {
				return domain.Answer{}, internal_errors.ErrAssistantBusy
			},
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, createRequest(t, http.MethodGet, "/ai/query?q=x", nil))
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	})
}

func TestSaveKnowledgeHandler(t *testing.T) {
	h := &Handler{cfg: testConfig()}
	router := chi.NewRouter()
	router.Post("/ai/save", h.SaveKnowledge)

	t.Run("saved", func(t *testing.T) {
		h.knowledge = &MockKnowledgeService{
			MockSave: func(content string) (int64, error) {
				assert.Equal(t, "fact", content)
				return 9, nil
			},
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, createRequest(t, http.MethodPost, "/ai/save", []byte(`{"content":"fact"}`)))
		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.JSONEq(t, `{"id":9}`, rr.Body.String())
	})

	t.Run("missing content", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, createRequest(t, http.MethodPost, "/ai/save", []byte(`{}`)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("assistant disabled", func(t *testing.T) {
		h.knowledge = &MockKnowledgeService{
			MockSave: func(content string) (int64, error) {
				return 0, internal_errors.ErrAssistantDisabled
			},
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, createRequest(t, http.MethodPost, "/ai/save", []byte(`{"content":"fact"}`)))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}
