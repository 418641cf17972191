package domain

import "time"

type KnowledgeDocument struct {
	Id        int64
	Content   string
	Embedding []float64
	CreatedAt time.Time
}

// ScoredDocument is a knowledge document ranked against a query embedding.
type ScoredDocument struct {
	Document KnowledgeDocument
	Score    float64
}

// Answer is the assistant reply as markdown and as sanitized HTML.
type Answer struct {
	Text string
	HTML string
}
