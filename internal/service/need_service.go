package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/LuizNicolao/terceirize-foods-sub000/config"
	"github.com/LuizNicolao/terceirize-foods-sub000/internal/dto"
	"github.com/LuizNicolao/terceirize-foods-sub000/internal/model"
	"github.com/LuizNicolao/terceirize-foods-sub000/internal/repository"
	"github.com/LuizNicolao/terceirize-foods-sub000/pkg/txretry"
)

// ── needs module business errors ──

var (
	ErrNecessidadeNaoEncontrada = errors.New("necessidade não encontrada")
	ErrSelecaoVazia             = errors.New("nenhum registro selecionado")
	ErrPerfilSemPermissao       = errors.New("perfil sem permissão para esta etapa")
	ErrQuantidadeInvalida       = errors.New("quantidade não pode ser negativa")
	ErrChaveDuplicada           = errors.New("já existe necessidade ativa para esta escola, produto e semana")
	ErrProdutoExcluido          = errors.New("produto foi excluído nesta semana e não pode ser recriado automaticamente")
)

// NeedService is the business interface of the needs pipeline.
type NeedService interface {
	List(ctx context.Context, q *dto.NeedListQuery) ([]dto.NecessidadeResponse, int64, error)
	Semanas(ctx context.Context, escolaID int64) ([]dto.SemanaResponse, error)
	StatusConsulta(ctx context.Context, semana string) ([]dto.StatusConsultaResponse, error)

	Gerar(ctx context.Context, req *dto.GerarNecessidadeRequest, caller Caller) (*dto.BulkResult, error)
	SalvarAjustes(ctx context.Context, req *dto.SalvarAjustesRequest, caller Caller) (*dto.BulkResult, error)
	IncluirProdutoExtra(ctx context.Context, req *dto.IncluirProdutoExtraRequest, caller Caller) (*dto.NecessidadeResponse, error)

	IniciarAjustes(ctx context.Context, req *dto.TransitionRequest, caller Caller) (*dto.BulkResult, error)
	LiberarParaCoordenacao(ctx context.Context, req *dto.TransitionRequest, caller Caller) (*dto.BulkResult, error)
	Confirmar(ctx context.Context, req *dto.TransitionRequest, caller Caller) (*dto.BulkResult, error)
	LiberarParaLogistica(ctx context.Context, req *dto.TransitionRequest, caller Caller) (*dto.BulkResult, error)
	ConfirmacaoFinal(ctx context.Context, req *dto.TransitionRequest, caller Caller) (*dto.BulkResult, error)
	Excluir(ctx context.Context, req *dto.TransitionRequest, caller Caller) (*dto.BulkResult, error)
}

type needService struct {
	repo   *repository.Repository
	runner *txRunner
	engine config.EngineConfig
	logger *zap.Logger
}

// NewNeedService creates a NeedService instance.
func NewNeedService(repo *repository.Repository, runner *txRunner, engine *config.EngineConfig, logger *zap.Logger) NeedService {
	return &needService{repo: repo, runner: runner, engine: *engine, logger: logger}
}

// ────────────────────── queries ──────────────────────

func (s *needService) List(ctx context.Context, q *dto.NeedListQuery) ([]dto.NecessidadeResponse, int64, error) {
	q.Normalize()
	f := repository.NeedFilter{
		EscolaID:            q.EscolaID,
		ProdutoID:           q.ProdutoID,
		SemanaAbastecimento: q.SemanaAbastecimento,
		SemanaConsumo:       q.SemanaConsumo,
		Status:              model.NeedStatus(q.Status),
		Busca:               q.Busca,
	}
	rows, total, err := s.repo.Need.List(ctx, f, q.PageSize, q.Offset())
	if err != nil {
		s.logger.Error("falha ao listar necessidades", zap.Error(err))
		return nil, 0, err
	}
	out := make([]dto.NecessidadeResponse, len(rows))
	for i := range rows {
		out[i] = toNeedResponse(&rows[i])
	}
	return out, total, nil
}

func (s *needService) Semanas(ctx context.Context, escolaID int64) ([]dto.SemanaResponse, error) {
	semanas, err := s.repo.Need.DistinctSemanas(ctx, escolaID)
	if err != nil {
		s.logger.Error("falha ao listar semanas", zap.Error(err))
		return nil, err
	}
	out := make([]dto.SemanaResponse, len(semanas))
	for i, sem := range semanas {
		out[i] = dto.SemanaResponse{
			SemanaAbastecimento: sem.SemanaAbastecimento,
			SemanaConsumo:       sem.SemanaConsumo,
		}
	}
	return out, nil
}

func (s *needService) StatusConsulta(ctx context.Context, semana string) ([]dto.StatusConsultaResponse, error) {
	rows, err := s.repo.Need.StatusSummary(ctx, semana)
	if err != nil {
		s.logger.Error("falha ao consultar status", zap.Error(err))
		return nil, err
	}
	out := make([]dto.StatusConsultaResponse, len(rows))
	for i, r := range rows {
		out[i] = dto.StatusConsultaResponse{
			EscolaID:            r.EscolaID,
			EscolaNome:          r.EscolaNome,
			SemanaAbastecimento: r.SemanaAbastecimento,
			Status:              string(r.Status),
			TotalItens:          r.TotalItens,
		}
	}
	return out, nil
}

// ────────────────────── generation ──────────────────────

// Gerar creates the need rows of one school for one supply week. Rows
// created together share a fresh group uuid. A product already active
// for the key is reported as an error; a tombstoned product blocks
// regeneration and must be revived through IncluirProdutoExtra.
func (s *needService) Gerar(ctx context.Context, req *dto.GerarNecessidadeRequest, caller Caller) (*dto.BulkResult, error) {
	if !roleAllowed(caller, "nutricionista") {
		return nil, ErrPerfilSemPermissao
	}

	var result dto.BulkResult
	err := s.runner.run(ctx, func(r *repository.Repository) error {
		result = dto.BulkResult{}
		grupo := uuid.New()
		rows := make([]*model.Necessidade, 0, len(req.Itens))

		for _, item := range req.Itens {
			if item.Quantidade.IsNegative() {
				result.Erros++
				result.ErrosDetalhados = append(result.ErrosDetalhados, dto.ErroDetalhado{
					Motivo: fmt.Sprintf("produto %d: %v", item.ProdutoID, ErrQuantidadeInvalida),
				})
				continue
			}
			if _, err := r.Need.FindActiveByChave(ctx, req.EscolaID, item.ProdutoID, req.SemanaAbastecimento); err == nil {
				result.Erros++
				result.ErrosDetalhados = append(result.ErrosDetalhados, dto.ErroDetalhado{
					Motivo: fmt.Sprintf("produto %d: %v", item.ProdutoID, ErrChaveDuplicada),
				})
				continue
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if _, err := r.Need.FindTombstone(ctx, req.EscolaID, item.ProdutoID, req.SemanaAbastecimento); err == nil {
				result.Erros++
				result.ErrosDetalhados = append(result.ErrosDetalhados, dto.ErroDetalhado{
					Motivo: fmt.Sprintf("produto %d: %v", item.ProdutoID, ErrProdutoExcluido),
				})
				continue
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			n := &model.Necessidade{
				NecessidadeID:       grupo,
				EscolaID:            req.EscolaID,
				EscolaNome:          req.EscolaNome,
				ProdutoID:           item.ProdutoID,
				ProdutoNome:         item.ProdutoNome,
				ProdutoUnidade:      item.ProdutoUnidade,
				SemanaAbastecimento: req.SemanaAbastecimento,
				SemanaConsumo:       req.SemanaConsumo,
				Status:              model.NeedStatusNec,
				Ajuste:              decimal.NullDecimal{Decimal: item.Quantidade, Valid: true},
				Observacoes:         item.Observacoes,
				Ativo:               true,
			}
			n.CreatedBy = &caller.ID
			n.UpdatedBy = &caller.ID
			rows = append(rows, n)
		}

		if len(rows) > 0 {
			if err := r.Need.CreateBatch(ctx, rows); err != nil {
				return err
			}
		}
		result.Sucessos = len(rows)
		return nil
	})
	if err != nil {
		s.logger.Error("falha ao gerar necessidade", zap.Error(err))
		return nil, err
	}
	return &result, nil
}

// IncluirProdutoExtra adds one product to an existing requisition. When
// the key holds a tombstone, the explicit include revives it with a
// fresh quantity and cleared stage columns.
func (s *needService) IncluirProdutoExtra(ctx context.Context, req *dto.IncluirProdutoExtraRequest, caller Caller) (*dto.NecessidadeResponse, error) {
	if !roleAllowed(caller, "nutricionista", "coordenacao") {
		return nil, ErrPerfilSemPermissao
	}
	if req.Quantidade.IsNegative() {
		return nil, ErrQuantidadeInvalida
	}

	var out dto.NecessidadeResponse
	err := s.runner.run(ctx, func(r *repository.Repository) error {
		if _, err := r.Need.FindActiveByChave(ctx, req.EscolaID, req.ProdutoID, req.SemanaAbastecimento); err == nil {
			return ErrChaveDuplicada
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		tomb, err := r.Need.FindTombstone(ctx, req.EscolaID, req.ProdutoID, req.SemanaAbastecimento)
		if err == nil {
			if err := r.Need.Reactivate(ctx, tomb.ID, req.Quantidade, model.NeedStatusNec, caller.ID); err != nil {
				return err
			}
			revived, err := r.Need.GetByID(ctx, tomb.ID)
			if err != nil {
				return err
			}
			out = toNeedResponse(revived)
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// Joins the group of the school/week when one exists so the
		// extra product travels with the rest of the requisition.
		grupo := uuid.New()
		existing, _, err := r.Need.List(ctx, repository.NeedFilter{
			EscolaID:            req.EscolaID,
			SemanaAbastecimento: req.SemanaAbastecimento,
		}, 1, 0)
		if err != nil {
			return err
		}
		escolaNome := req.EscolaNome
		if len(existing) > 0 {
			grupo = existing[0].NecessidadeID
			if escolaNome == "" {
				escolaNome = existing[0].EscolaNome
			}
		}

		n := &model.Necessidade{
			NecessidadeID:       grupo,
			EscolaID:            req.EscolaID,
			EscolaNome:          escolaNome,
			ProdutoID:           req.ProdutoID,
			ProdutoNome:         req.ProdutoNome,
			ProdutoUnidade:      req.ProdutoUnidade,
			SemanaAbastecimento: req.SemanaAbastecimento,
			SemanaConsumo:       req.SemanaConsumo,
			Status:              model.NeedStatusNec,
			Ajuste:              decimal.NullDecimal{Decimal: req.Quantidade, Valid: true},
			Observacoes:         req.Observacoes,
			Ativo:               true,
		}
		n.CreatedBy = &caller.ID
		n.UpdatedBy = &caller.ID
		if err := r.Need.CreateBatch(ctx, []*model.Necessidade{n}); err != nil {
			return err
		}
		out = toNeedResponse(n)
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrChaveDuplicada) {
			s.logger.Error("falha ao incluir produto extra", zap.Error(err))
		}
		return nil, err
	}
	return &out, nil
}

// ────────────────────── adjustments ──────────────────────

// SalvarAjustes writes quantity adjustments into the stage column owned
// by each row's current status. Items are validated independently and
// the result reports partial success.
func (s *needService) SalvarAjustes(ctx context.Context, req *dto.SalvarAjustesRequest, caller Caller) (*dto.BulkResult, error) {
	if len(req.Itens) == 0 {
		return nil, ErrSelecaoVazia
	}

	ids := make([]int64, 0, len(req.Itens))
	for _, item := range req.Itens {
		ids = append(ids, item.ID)
	}

	var result dto.BulkResult
	err := s.runner.run(ctx, func(r *repository.Repository) error {
		result = dto.BulkResult{}

		locked := make(map[int64]*model.Necessidade)
		for _, chunk := range txretry.Chunk(ids, s.engine.ChunkSize) {
			rows, err := r.Need.LockByIDs(ctx, chunk)
			if err != nil {
				return err
			}
			for i := range rows {
				locked[rows[i].ID] = &rows[i]
			}
		}

		for _, item := range req.Itens {
			row, ok := locked[item.ID]
			if !ok {
				result.Erros++
				result.ErrosDetalhados = append(result.ErrosDetalhados, dto.ErroDetalhado{
					ID: item.ID, Motivo: ErrNecessidadeNaoEncontrada.Error(),
				})
				continue
			}
			col := model.StageForStatus(row.Status)
			if col == "" {
				result.Erros++
				result.ErrosDetalhados = append(result.ErrosDetalhados, dto.ErroDetalhado{
					ID: item.ID, Motivo: fmt.Sprintf("status %s não aceita ajustes", row.Status),
				})
				continue
			}
			if !model.RoleOwnsStatus(caller.Role, row.Status) {
				result.Erros++
				result.ErrosDetalhados = append(result.ErrosDetalhados, dto.ErroDetalhado{
					ID: item.ID, Motivo: ErrPerfilSemPermissao.Error(),
				})
				continue
			}
			if item.Quantidade != nil && item.Quantidade.IsNegative() {
				result.Erros++
				result.ErrosDetalhados = append(result.ErrosDetalhados, dto.ErroDetalhado{
					ID: item.ID, Motivo: ErrQuantidadeInvalida.Error(),
				})
				continue
			}

			v := decimal.NullDecimal{}
			if item.Quantidade != nil {
				v = decimal.NullDecimal{Decimal: *item.Quantidade, Valid: true}
			}
			anterior := row.EffectiveQuantity()
			affected, err := r.Need.UpdateAdjustment(ctx, row.ID, col, v, anterior, caller.ID)
			if err != nil {
				return err
			}
			if affected == 0 {
				result.Erros++
				result.ErrosDetalhados = append(result.ErrosDetalhados, dto.ErroDetalhado{
					ID: item.ID, Motivo: ErrNecessidadeNaoEncontrada.Error(),
				})
				continue
			}
			result.Sucessos++
		}
		return nil
	})
	if err != nil {
		s.logger.Error("falha ao salvar ajustes", zap.Error(err))
		return nil, err
	}
	return &result, nil
}

// ────────────────────── transitions ──────────────────────

func (s *needService) IniciarAjustes(ctx context.Context, req *dto.TransitionRequest, caller Caller) (*dto.BulkResult, error) {
	return s.transition(ctx, req, caller, model.NeedStatusNec, "nutricionista")
}

func (s *needService) LiberarParaCoordenacao(ctx context.Context, req *dto.TransitionRequest, caller Caller) (*dto.BulkResult, error) {
	return s.transition(ctx, req, caller, model.NeedStatusNecNutri, "nutricionista")
}

func (s *needService) Confirmar(ctx context.Context, req *dto.TransitionRequest, caller Caller) (*dto.BulkResult, error) {
	return s.transition(ctx, req, caller, model.NeedStatusNecCoord, "coordenacao")
}

func (s *needService) LiberarParaLogistica(ctx context.Context, req *dto.TransitionRequest, caller Caller) (*dto.BulkResult, error) {
	return s.transition(ctx, req, caller, model.NeedStatusConf, "coordenacao")
}

func (s *needService) ConfirmacaoFinal(ctx context.Context, req *dto.TransitionRequest, caller Caller) (*dto.BulkResult, error) {
	return s.transition(ctx, req, caller, model.NeedStatusNecLog, "logistica")
}

// transition moves rows one pipeline step forward. The target stage
// comes from the pipeline order, never from the caller. Rows are
// locked in ascending id order, the incoming stage column is
// backfilled with the effective quantity, and the guarded status
// update runs per chunk.
func (s *needService) transition(ctx context.Context, req *dto.TransitionRequest, caller Caller, from model.NeedStatus, roles ...string) (*dto.BulkResult, error) {
	if !roleAllowed(caller, roles...) {
		return nil, ErrPerfilSemPermissao
	}
	to := model.NextNeedStatus(from)
	if to == "" || !model.CanTransitionNeed(from, to) {
		return nil, fmt.Errorf("etapa %s não possui avanço previsto", from)
	}
	if len(req.IDs) == 0 && req.SemanaAbastecimento == "" {
		return nil, ErrSelecaoVazia
	}

	var result dto.BulkResult
	err := s.runner.run(ctx, func(r *repository.Repository) error {
		result = dto.BulkResult{}

		var rows []model.Necessidade
		if len(req.IDs) > 0 {
			seen := make(map[int64]bool, len(req.IDs))
			for _, chunk := range txretry.Chunk(req.IDs, s.engine.ChunkSize) {
				locked, err := r.Need.LockByIDs(ctx, chunk)
				if err != nil {
					return err
				}
				rows = append(rows, locked...)
				for _, row := range locked {
					seen[row.ID] = true
				}
			}
			for _, id := range req.IDs {
				if !seen[id] {
					result.Erros++
					result.ErrosDetalhados = append(result.ErrosDetalhados, dto.ErroDetalhado{
						ID: id, Motivo: ErrNecessidadeNaoEncontrada.Error(),
					})
				}
			}
		} else {
			locked, err := r.Need.LockByScope(ctx, req.EscolaID, req.SemanaAbastecimento, from)
			if err != nil {
				return err
			}
			rows = locked
		}

		eligible := make([]int64, 0, len(rows))
		for _, row := range rows {
			if row.Status != from {
				result.Erros++
				result.ErrosDetalhados = append(result.ErrosDetalhados, dto.ErroDetalhado{
					ID: row.ID, Motivo: fmt.Sprintf("status atual %s, esperado %s", row.Status, from),
				})
				continue
			}
			eligible = append(eligible, row.ID)
		}

		target := model.StageForStatus(to)
		for _, chunk := range txretry.Chunk(eligible, s.engine.ChunkSize) {
			if target != "" {
				if err := r.Need.BackfillStage(ctx, chunk, target); err != nil {
					return err
				}
			}
			affected, err := r.Need.UpdateStatus(ctx, chunk, from, to, caller.ID)
			if err != nil {
				return err
			}
			result.Sucessos += int(affected)
			if diff := len(chunk) - int(affected); diff > 0 {
				result.Erros += diff
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("falha na transição de status",
			zap.String("de", string(from)),
			zap.String("para", string(to)),
			zap.Error(err),
		)
		return nil, err
	}
	return &result, nil
}

// Excluir tombstones rows: they leave every listing but keep their key
// occupied so regeneration cannot silently recreate them.
func (s *needService) Excluir(ctx context.Context, req *dto.TransitionRequest, caller Caller) (*dto.BulkResult, error) {
	if !roleAllowed(caller, "nutricionista", "coordenacao") {
		return nil, ErrPerfilSemPermissao
	}
	if len(req.IDs) == 0 {
		return nil, ErrSelecaoVazia
	}

	var result dto.BulkResult
	err := s.runner.run(ctx, func(r *repository.Repository) error {
		result = dto.BulkResult{}
		for _, chunk := range txretry.Chunk(req.IDs, s.engine.ChunkSize) {
			rows, err := r.Need.LockByIDs(ctx, chunk)
			if err != nil {
				return err
			}
			ids := make([]int64, len(rows))
			for i, row := range rows {
				ids[i] = row.ID
			}
			if diff := len(chunk) - len(ids); diff > 0 {
				result.Erros += diff
			}
			if len(ids) == 0 {
				continue
			}
			affected, err := r.Need.Deactivate(ctx, ids, caller.ID)
			if err != nil {
				return err
			}
			result.Sucessos += int(affected)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("falha ao excluir necessidades", zap.Error(err))
		return nil, err
	}
	return &result, nil
}

// ────────────────────── helpers ──────────────────────

func roleAllowed(caller Caller, roles ...string) bool {
	if caller.Role == "gestor" {
		return true
	}
	for _, role := range roles {
		if caller.Role == role {
			return true
		}
	}
	return false
}

func nullDecPtr(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}

func toNeedResponse(n *model.Necessidade) dto.NecessidadeResponse {
	return dto.NecessidadeResponse{
		ID:                  n.ID,
		NecessidadeID:       n.NecessidadeID.String(),
		EscolaID:            n.EscolaID,
		EscolaNome:          n.EscolaNome,
		ProdutoID:           n.ProdutoID,
		ProdutoNome:         n.ProdutoNome,
		ProdutoUnidade:      n.ProdutoUnidade,
		SemanaAbastecimento: n.SemanaAbastecimento,
		SemanaConsumo:       n.SemanaConsumo,
		Status:              string(n.Status),
		Ajuste:              nullDecPtr(n.Ajuste),
		AjusteAnterior:      nullDecPtr(n.AjusteAnterior),
		AjusteNutricionista: nullDecPtr(n.AjusteNutricionista),
		AjusteCoordenacao:   nullDecPtr(n.AjusteCoordenacao),
		AjusteLogistica:     nullDecPtr(n.AjusteLogistica),
		AjusteConfNutri:     nullDecPtr(n.AjusteConfNutri),
		AjusteConfCoord:     nullDecPtr(n.AjusteConfCoord),
		QuantidadeEfetiva:   nullDecPtr(n.EffectiveQuantity()),
		Observacoes:         n.Observacoes,
		CreatedAt:           n.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:           n.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}
