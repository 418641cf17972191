package api

type SaveKnowledgeRequest struct {
	Content string `json:"content" validate:"required,max=20000"`
}

type SaveKnowledgeResponse struct {
	Id int64 `json:"id"`
}

type QueryResponse struct {
	Answer     string `json:"answer"`
	AnswerHTML string `json:"answer_html"`
}
