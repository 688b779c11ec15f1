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

// NeedHandler serves the needs pipeline endpoints.
type NeedHandler struct {
	needSvc service.NeedService
}

// NewNeedHandler creates a NeedHandler.
func NewNeedHandler(needSvc service.NeedService) *NeedHandler {
	return &NeedHandler{needSvc: needSvc}
}

// List lists need rows with filters and pagination.
// GET /api/v1/necessidades
func (h *NeedHandler) List(c *gin.Context) {
	var q dto.NeedListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "parâmetros de consulta inválidos")
		return
	}
	q.Normalize()

	list, total, err := h.needSvc.List(c.Request.Context(), &q)
	if err != nil {
		h.handleNeedError(c, err)
		return
	}
	response.OKPage(c, list, total, q.Page, q.PageSize)
}

// Semanas lists the distinct week pairs available for filtering.
// GET /api/v1/necessidades/semanas
func (h *NeedHandler) Semanas(c *gin.Context) {
	escolaID, _ := strconv.ParseInt(c.Query("escola_id"), 10, 64)
	semanas, err := h.needSvc.Semanas(c.Request.Context(), escolaID)
	if err != nil {
		h.handleNeedError(c, err)
		return
	}
	response.OK(c, gin.H{"list": semanas})
}

// StatusConsulta summarizes the pipeline position per school/week.
// GET /api/v1/necessidades/status
func (h *NeedHandler) StatusConsulta(c *gin.Context) {
	consulta, err := h.needSvc.StatusConsulta(c.Request.Context(), c.Query("semana_abastecimento"))
	if err != nil {
		h.handleNeedError(c, err)
		return
	}
	response.OK(c, gin.H{"list": consulta})
}

// Gerar creates the need rows of one school for one supply week.
// POST /api/v1/necessidades/gerar
func (h *NeedHandler) Gerar(c *gin.Context) {
	var req dto.GerarNecessidadeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "falha na validação dos parâmetros")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.needSvc.Gerar(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleNeedError(c, err)
		return
	}
	response.Created(c, result)
}

// SalvarAjustes writes stage adjustments for a batch of rows.
// POST /api/v1/necessidades/ajustes
func (h *NeedHandler) SalvarAjustes(c *gin.Context) {
	var req dto.SalvarAjustesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "falha na validação dos parâmetros")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.needSvc.SalvarAjustes(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleNeedError(c, err)
		return
	}
	response.OK(c, result)
}

// IncluirProdutoExtra adds one product to an existing requisition.
// POST /api/v1/necessidades/produto-extra
func (h *NeedHandler) IncluirProdutoExtra(c *gin.Context) {
	var req dto.IncluirProdutoExtraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "falha na validação dos parâmetros")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	n, err := h.needSvc.IncluirProdutoExtra(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleNeedError(c, err)
		return
	}
	response.Created(c, n)
}

// transition wraps the shared body of the release endpoints.
func (h *NeedHandler) transition(c *gin.Context, fn func(caller service.Caller, req *dto.TransitionRequest) (*dto.BulkResult, error)) {
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "falha na validação dos parâmetros")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := fn(caller, &req)
	if err != nil {
		h.handleNeedError(c, err)
		return
	}
	response.OK(c, result)
}

// IniciarAjustes releases NEC rows to the nutritionist stage.
// POST /api/v1/necessidades/iniciar-ajustes
func (h *NeedHandler) IniciarAjustes(c *gin.Context) {
	h.transition(c, func(caller service.Caller, req *dto.TransitionRequest) (*dto.BulkResult, error) {
		return h.needSvc.IniciarAjustes(c.Request.Context(), req, caller)
	})
}

// LiberarParaCoordenacao releases NEC NUTRI rows to coordination.
// POST /api/v1/necessidades/liberar-coordenacao
func (h *NeedHandler) LiberarParaCoordenacao(c *gin.Context) {
	h.transition(c, func(caller service.Caller, req *dto.TransitionRequest) (*dto.BulkResult, error) {
		return h.needSvc.LiberarParaCoordenacao(c.Request.Context(), req, caller)
	})
}

// Confirmar confirms NEC COORD rows.
// POST /api/v1/necessidades/confirmar
func (h *NeedHandler) Confirmar(c *gin.Context) {
	h.transition(c, func(caller service.Caller, req *dto.TransitionRequest) (*dto.BulkResult, error) {
		return h.needSvc.Confirmar(c.Request.Context(), req, caller)
	})
}

// LiberarParaLogistica releases CONF rows to logistics.
// POST /api/v1/necessidades/liberar-logistica
func (h *NeedHandler) LiberarParaLogistica(c *gin.Context) {
	h.transition(c, func(caller service.Caller, req *dto.TransitionRequest) (*dto.BulkResult, error) {
		return h.needSvc.LiberarParaLogistica(c.Request.Context(), req, caller)
	})
}

// ConfirmacaoFinal releases NEC LOG rows to the final confirmation.
// POST /api/v1/necessidades/confirmacao-final
func (h *NeedHandler) ConfirmacaoFinal(c *gin.Context) {
	h.transition(c, func(caller service.Caller, req *dto.TransitionRequest) (*dto.BulkResult, error) {
		return h.needSvc.ConfirmacaoFinal(c.Request.Context(), req, caller)
	})
}

// Excluir tombstones the selected rows.
// POST /api/v1/necessidades/excluir
func (h *NeedHandler) Excluir(c *gin.Context) {
	h.transition(c, func(caller service.Caller, req *dto.TransitionRequest) (*dto.BulkResult, error) {
		return h.needSvc.Excluir(c.Request.Context(), req, caller)
	})
}

func (h *NeedHandler) handleNeedError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSelecaoVazia), errors.Is(err, service.ErrQuantidadeInvalida):
		response.BadRequest(c, 10001, err.Error())
	case errors.Is(err, service.ErrPerfilSemPermissao):
		response.Forbidden(c, 10003, err.Error())
	case errors.Is(err, service.ErrNecessidadeNaoEncontrada):
		response.NotFound(c, 10004, err.Error())
	case errors.Is(err, service.ErrChaveDuplicada), errors.Is(err, service.ErrProdutoExcluido):
		response.Conflict(c, 10005, err.Error())
	case errors.Is(err, pkgerrors.ErrConflict):
		response.Conflict(c, 10006, err.Error())
	default:
		response.InternalError(c)
	}
}
