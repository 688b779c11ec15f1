package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/LuizNicolao/terceirize-foods-sub000/internal/dto"
	"github.com/LuizNicolao/terceirize-foods-sub000/internal/service"
	pkgerrors "github.com/LuizNicolao/terceirize-foods-sub000/pkg/errors"
	"github.com/LuizNicolao/terceirize-foods-sub000/pkg/response"
)

// SubstitutionHandler serves the substitution workflow endpoints.
type SubstitutionHandler struct {
	subSvc service.SubstitutionService
}

// NewSubstitutionHandler creates a SubstitutionHandler.
func NewSubstitutionHandler(subSvc service.SubstitutionService) *SubstitutionHandler {
	return &SubstitutionHandler{subSvc: subSvc}
}

// Candidatos lists the need rows eligible for substitution in a week.
// GET /api/v1/substituicoes/candidatos
func (h *SubstitutionHandler) Candidatos(c *gin.Context) {
	semana := c.Query("semana_abastecimento")
	if semana == "" {
		response.BadRequest(c, 10001, "semana_abastecimento é obrigatória")
		return
	}
	escolaID, _ := strconv.ParseInt(c.Query("escola_id"), 10, 64)

	out, err := h.subSvc.ListCandidatos(c.Request.Context(), semana, escolaID)
	if err != nil {
		h.handleSubError(c, err)
		return
	}
	response.OK(c, out)
}

// List lists grouped substitutions with filters and pagination.
// GET /api/v1/substituicoes
func (h *SubstitutionHandler) List(c *gin.Context) {
	var q dto.SubstitutionListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "parâmetros de consulta inválidos")
		return
	}
	q.Normalize()

	groups, total, err := h.subSvc.ListAgrupadas(c.Request.Context(), &q)
	if err != nil {
		h.handleSubError(c, err)
		return
	}
	response.OKPage(c, groups, total, q.Page, q.PageSize)
}

// Salvar persists substitution rows.
// POST /api/v1/substituicoes
func (h *SubstitutionHandler) Salvar(c *gin.Context) {
	var req dto.SaveSubstituicaoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "falha na validação dos parâmetros")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.subSvc.Salvar(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleSubError(c, err)
		return
	}
	response.Created(c, result)
}

// LiberarParaAnalise releases a supply week to logistics analysis.
// POST /api/v1/substituicoes/liberar-analise
func (h *SubstitutionHandler) LiberarParaAnalise(c *gin.Context) {
	var req dto.LiberarAnaliseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "falha na validação dos parâmetros")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.subSvc.LiberarParaAnalise(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleSubError(c, err)
		return
	}
	response.OK(c, result)
}

// Decidir approves or rejects a grouped substitution.
// POST /api/v1/substituicoes/decidir
func (h *SubstitutionHandler) Decidir(c *gin.Context) {
	var req dto.DecisaoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "falha na validação dos parâmetros")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.subSvc.Decidir(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleSubError(c, err)
		return
	}
	response.OK(c, result)
}

// MarcarImpressao marks an approved group as printed.
// POST /api/v1/substituicoes/imprimir
func (h *SubstitutionHandler) MarcarImpressao(c *gin.Context) {
	var grupo dto.GrupoSubstituicao
	if err := c.ShouldBindJSON(&grupo); err != nil {
		response.BadRequest(c, 10001, "falha na validação dos parâmetros")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.subSvc.MarcarImpressao(c.Request.Context(), grupo, caller)
	if err != nil {
		h.handleSubError(c, err)
		return
	}
	response.OK(c, result)
}

// TrocarProduto exchanges the origin product of a group.
// POST /api/v1/substituicoes/trocar-produto
func (h *SubstitutionHandler) TrocarProduto(c *gin.Context) {
	var req dto.TrocarProdutoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "falha na validação dos parâmetros")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.subSvc.TrocarProduto(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleSubError(c, err)
		return
	}
	response.OK(c, result)
}

// DesfazerTroca reverses a previous product exchange.
// POST /api/v1/substituicoes/desfazer-troca
func (h *SubstitutionHandler) DesfazerTroca(c *gin.Context) {
	var req dto.DesfazerTrocaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "falha na validação dos parâmetros")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.subSvc.DesfazerTroca(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleSubError(c, err)
		return
	}
	response.OK(c, result)
}

// Excluir tombstones substitution rows.
// POST /api/v1/substituicoes/excluir
func (h *SubstitutionHandler) Excluir(c *gin.Context) {
	var req struct {
		IDs []int64 `json:"ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "falha na validação dos parâmetros")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.subSvc.Excluir(c.Request.Context(), req.IDs, caller)
	if err != nil {
		h.handleSubError(c, err)
		return
	}
	response.OK(c, result)
}

// Reativar revives one tombstoned substitution row.
// POST /api/v1/substituicoes/:id/reativar
func (h *SubstitutionHandler) Reativar(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, "id inválido")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.subSvc.Reativar(c.Request.Context(), id, caller); err != nil {
		h.handleSubError(c, err)
		return
	}
	response.OK(c, nil)
}

func (h *SubstitutionHandler) handleSubError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSelecaoVazia):
		response.BadRequest(c, 10001, err.Error())
	case errors.Is(err, service.ErrPerfilSemPermissao):
		response.Forbidden(c, 10003, err.Error())
	case errors.Is(err, service.ErrSubstituicaoNaoEncontrada),
		errors.Is(err, service.ErrGrupoVazio),
		errors.Is(err, service.ErrGenericoNaoEncontrado):
		response.NotFound(c, 10004, err.Error())
	case errors.Is(err, service.ErrSubstituicaoDuplicada),
		errors.Is(err, service.ErrSubstituicaoExcluida),
		errors.Is(err, service.ErrTrocaPendente),
		errors.Is(err, service.ErrSemTrocaParaDesfazer),
		errors.Is(err, service.ErrStatusSubInvalido):
		response.Conflict(c, 10005, err.Error())
	case errors.Is(err, pkgerrors.ErrConflict):
		response.Conflict(c, 10006, err.Error())
	default:
		response.InternalError(c)
	}
}
