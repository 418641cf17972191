package handler

import (
	"github.com/sawatantra/api/backend/internal/service"
	"github.com/sawatantra/api/shared/config"
)

type Handler struct {
	auth      service.AuthService
	poker     service.PokerService
	directory service.DirectoryService
	knowledge service.KnowledgeService
	health    []HealthCheck
	cfg       *config.Config
}

func New(auth service.AuthService, poker service.PokerService, directory service.DirectoryService, knowledge service.KnowledgeService, health []HealthCheck, cfg *config.Config) *Handler {
	return &Handler{
		auth:      auth,
		poker:     poker,
		directory: directory,
		knowledge: knowledge,
		health:    health,
		cfg:       cfg,
	}
}
