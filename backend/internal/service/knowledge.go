package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strings"

	"github.com/sawatantra/api/backend/internal/service/utils"
	"github.com/sawatantra/api/shared/config"
	"github.com/sawatantra/api/shared/domain"
	"github.com/sawatantra/api/shared/errors"
	"github.com/sawatantra/api/shared/logger"
	"github.com/sawatantra/api/shared/middleware/metrics"
)

type KnowledgeService interface {
	Save(ctx context.Context, content string) (int64, error)
	Query(ctx context.Context, question string, topK int) (domain.Answer, error)
}

type KnowledgeStorage interface {
	SaveDocument(ctx context.Context, content string, embedding []float64) (int64, error)
	Documents(ctx context.Context) ([]domain.KnowledgeDocument, error)
}

type Assistant interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Generate(ctx context.Context, prompt string) (string, error)
}

type Knowledge struct {
	storage   KnowledgeStorage
	assistant Assistant
	cfg       *config.Assistant
}

func NewKnowledge(storage KnowledgeStorage, assistant Assistant, cfg *config.Assistant) KnowledgeService {
	return &Knowledge{storage: storage, assistant: assistant, cfg: cfg}
}

var (
	errEmptyContent  = &errors.ErrorWithStatusCode{Message: "Content is required", StatusCode: http.StatusBadRequest}
	errEmptyQuestion = &errors.ErrorWithStatusCode{Message: "Query is required", StatusCode: http.StatusBadRequest}
)

// Save stores the content together with its embedding.
func (k *Knowledge) Save(ctx context.Context, content string) (int64, error) {
	content = utils.SanitizeText(content)
	if content == "" {
		return 0, errEmptyContent
	}
	embedding, err := k.assistant.Embed(ctx, content)
	if err != nil {
		k.record("save", err)
		return 0, err
	}
	id, err := k.storage.SaveDocument(ctx, content, embedding)
	if err != nil {
		err = errors.Persistence("save knowledge", err)
		k.record("save", err)
		return 0, err
	}
	k.record("save", nil)
	logger.Log.Info("knowledge document saved", "id", id, "dimensions", len(embedding))
	return id, nil
}

// Query answers the question using the topK most similar documents as context.
func (k *Knowledge) Query(ctx context.Context, question string, topK int) (domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, errEmptyQuestion
	}
	topK = k.clampTopK(topK)

	answer, err := k.query(ctx, question, topK)
	k.record("query", err)
	return answer, err
}

func (k *Knowledge) query(ctx context.Context, question string, topK int) (domain.Answer, error) {
	embedding, err := k.assistant.Embed(ctx, question)
	if err != nil {
		return domain.Answer{}, err
	}
	docs, err := k.storage.Documents(ctx)
	if err != nil {
		return domain.Answer{}, errors.Persistence("load knowledge", err)
	}

	relevant := rank(docs, embedding, topK)
	text, err := k.assistant.Generate(ctx, k.prompt(question, relevant))
	if err != nil {
		return domain.Answer{}, err
	}
	html, err := utils.RenderMarkdown(text)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("render answer: %w", err)
	}
	return domain.Answer{Text: text, HTML: html}, nil
}

func (k *Knowledge) clampTopK(topK int) int {
	if topK <= 0 {
		return k.cfg.DefaultTopK
	}
	return min(topK, k.cfg.MaxTopK)
}

func (k *Knowledge) prompt(question string, docs []domain.ScoredDocument) string {
	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, d.Document.Content)
	}
	subject := k.cfg.Subject
	return fmt.Sprintf(`You are an expert assistant who knows everything about %[1]s.

Below is information about %[1]s, extracted from a knowledge base.
Use only this information to answer the user's question as accurately as possible.

Knowledge Base:
%[2]s

User Question: %[3]s

Answer as the personal AI assistant of %[1]s. Address the user as "you".`,
		subject, strings.Join(texts, "\n---\n"), question)
}

func (k *Knowledge) record(op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case stderrors.Is(err, errors.ErrAssistantBusy):
		outcome = "rate_limited"
	case stderrors.Is(err, errors.ErrAssistantDisabled):
		outcome = "disabled"
	default:
		outcome = "error"
		logger.Log.Error("knowledge assistant failed", "op", op, "error", err)
	}
	metrics.AssistantRequests.WithLabelValues(op, outcome).Inc()
}

// rank orders documents by cosine similarity to query, best first, and keeps topK.
func rank(docs []domain.KnowledgeDocument, query []float64, topK int) []domain.ScoredDocument {
	scored := make([]domain.ScoredDocument, 0, len(docs))
	for _, d := range docs {
		scored = append(scored, domain.ScoredDocument{Document: d, Score: cosineSimilarity(d.Embedding, query)})
	}
	slices.SortStableFunc(scored, func(a, b domain.ScoredDocument) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// cosineSimilarity treats missing trailing components of b as zero.
// Zero vectors have similarity 0.
func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i, v := range a {
		if i < len(b) {
			dot += v * b[i]
		}
		normA += v * v
	}
	for _, v := range b {
		normB += v * v
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
