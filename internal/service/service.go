package service

import (
	"go.uber.org/zap"

	"github.com/LuizNicolao/terceirize-foods-sub000/config"
	"github.com/LuizNicolao/terceirize-foods-sub000/internal/repository"
)

// Caller identifies the user behind a request. Role decides which
// pipeline stages the caller may act on.
type Caller struct {
	ID   string
	Nome string
	Role string // "nutricionista" | "coordenacao" | "logistica" | "gestor"
}

// Service is the aggregate entry point for business logic.
type Service struct {
	Need         NeedService
	Substitution SubstitutionService
}

// NewService creates the Service aggregate.
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	catalog ProductCatalog,
	logger *zap.Logger,
) *Service {
	runner := newTxRunner(repo, &cfg.Engine, logger)
	return &Service{
		Need:         NewNeedService(repo, runner, &cfg.Engine, logger),
		Substitution: NewSubstitutionService(repo, runner, catalog, &cfg.Engine, logger),
	}
}
