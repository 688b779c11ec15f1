package handler

import "github.com/LuizNicolao/terceirize-foods-sub000/internal/service"

// Handler is the aggregate entry point for HTTP handlers.
type Handler struct {
	Need         *NeedHandler
	Substitution *SubstitutionHandler
}

// NewHandler creates the Handler aggregate.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Need:         NewNeedHandler(svc.Need),
		Substitution: NewSubstitutionHandler(svc.Substitution),
	}
}
