package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/LuizNicolao/terceirize-foods-sub000/config"
	"github.com/LuizNicolao/terceirize-foods-sub000/internal/dto"
	"github.com/LuizNicolao/terceirize-foods-sub000/internal/model"
	"github.com/LuizNicolao/terceirize-foods-sub000/internal/repository"
	"github.com/LuizNicolao/terceirize-foods-sub000/pkg/txretry"
)

// ── substitution module business errors ──

var (
	ErrSubstituicaoNaoEncontrada = errors.New("substituição não encontrada")
	ErrSubstituicaoDuplicada     = errors.New("já existe substituição ativa para esta escola, produto e semana")
	ErrSubstituicaoExcluida      = errors.New("substituição foi excluída para esta chave e requer reativação explícita")
	ErrGrupoVazio                = errors.New("nenhuma substituição encontrada para o agrupamento informado")
	ErrTrocaPendente             = errors.New("produto já trocado; desfaça a troca antes de trocar novamente")
	ErrSemTrocaParaDesfazer      = errors.New("não há troca de produto para desfazer")
	ErrStatusSubInvalido         = errors.New("status da substituição não permite esta operação")
)

// SubstitutionService is the business interface of the substitution
// workflow.
type SubstitutionService interface {
	ListCandidatos(ctx context.Context, semana string, escolaID int64) (*dto.CandidatosResponse, error)
	ListAgrupadas(ctx context.Context, q *dto.SubstitutionListQuery) ([]dto.GrupoSubstituicaoResponse, int64, error)

	Salvar(ctx context.Context, req *dto.SaveSubstituicaoRequest, caller Caller) (*dto.BulkResult, error)
	LiberarParaAnalise(ctx context.Context, req *dto.LiberarAnaliseRequest, caller Caller) (*dto.BulkResult, error)
	Decidir(ctx context.Context, req *dto.DecisaoRequest, caller Caller) (*dto.BulkResult, error)
	MarcarImpressao(ctx context.Context, grupo dto.GrupoSubstituicao, caller Caller) (*dto.BulkResult, error)

	TrocarProduto(ctx context.Context, req *dto.TrocarProdutoRequest, caller Caller) (*dto.BulkResult, error)
	DesfazerTroca(ctx context.Context, req *dto.DesfazerTrocaRequest, caller Caller) (*dto.BulkResult, error)

	Excluir(ctx context.Context, ids []int64, caller Caller) (*dto.BulkResult, error)
	Reativar(ctx context.Context, id int64, caller Caller) error
}

type substitutionService struct {
	repo    *repository.Repository
	runner  *txRunner
	catalog ProductCatalog
	engine  config.EngineConfig
	logger  *zap.Logger
}

// NewSubstitutionService creates a SubstitutionService instance.
func NewSubstitutionService(repo *repository.Repository, runner *txRunner, catalog ProductCatalog, engine *config.EngineConfig, logger *zap.Logger) SubstitutionService {
	return &substitutionService{repo: repo, runner: runner, catalog: catalog, engine: *engine, logger: logger}
}

// quantidadeGenerico converts an origin quantity into the generic
// product's unit, always rounding up so no school is short-supplied.
func quantidadeGenerico(origem, fator decimal.Decimal) decimal.Decimal {
	if fator.IsZero() || fator.IsNegative() {
		return origem
	}
	return origem.Div(fator).Ceil()
}

// ────────────────────── queries ──────────────────────

// ListCandidatos returns the need rows eligible for substitution in a
// supply week, each paired with the generic product the catalog maps to
// its origin product. Rows without a mapping are listed separately.
func (s *substitutionService) ListCandidatos(ctx context.Context, semana string, escolaID int64) (*dto.CandidatosResponse, error) {
	rows, _, err := s.repo.Need.List(ctx, repository.NeedFilter{
		EscolaID:            escolaID,
		SemanaAbastecimento: semana,
		Status:              model.NeedStatusConf,
	}, -1, 0)
	if err != nil {
		s.logger.Error("falha ao listar candidatos de substituição", zap.Error(err))
		return nil, err
	}

	out := &dto.CandidatosResponse{}
	escolas := make(map[int64]bool)
	produtos := make(map[int64]bool)
	genericoPorProduto := make(map[int64]*Generico)

	for i := range rows {
		row := &rows[i]
		if row.SubstituicaoProcessada {
			continue
		}
		qt := row.EffectiveQuantity()
		if !qt.Valid {
			continue
		}
		// A tombstoned substitution on the same key means this pairing
		// was deliberately removed; the need is not offered again.
		if _, err := s.repo.Substitution.FindTombstone(ctx, row.EscolaID, row.ProdutoID, row.SemanaAbastecimento); err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		cand := dto.CandidatoResponse{
			NecessidadeRowID:     row.ID,
			EscolaID:             row.EscolaID,
			EscolaNome:           row.EscolaNome,
			ProdutoOrigemID:      row.ProdutoID,
			ProdutoOrigemNome:    row.ProdutoNome,
			ProdutoOrigemUnidade: row.ProdutoUnidade,
			QuantidadeOrigem:     qt.Decimal,
			SemanaAbastecimento:  row.SemanaAbastecimento,
			SemanaConsumo:        row.SemanaConsumo,
		}
		escolas[row.EscolaID] = true
		produtos[row.ProdutoID] = true

		gen, cached := genericoPorProduto[row.ProdutoID]
		if !cached {
			g, err := s.catalog.GenericForProduct(ctx, row.ProdutoID)
			if err != nil && !errors.Is(err, ErrGenericoNaoEncontrado) {
				return nil, err
			}
			gen = g
			genericoPorProduto[row.ProdutoID] = g
		}
		if gen == nil {
			out.SemGenerico = append(out.SemGenerico, cand)
			continue
		}

		qtGen := quantidadeGenerico(qt.Decimal, gen.FatorConversao)
		fator := gen.FatorConversao
		cand.ProdutoGenericoID = &gen.ID
		cand.ProdutoGenericoNome = &gen.Nome
		cand.ProdutoGenericoUnidade = &gen.Unidade
		cand.FatorConversao = &fator
		cand.QuantidadeGenerico = &qtGen
		out.Candidatos = append(out.Candidatos, cand)
	}

	out.TotalEscolas = len(escolas)
	out.TotalProdutos = len(produtos)
	return out, nil
}

// ListAgrupadas groups the per-school rows by (origin product, generic
// product, supply week, consumption week) and paginates the groups.
func (s *substitutionService) ListAgrupadas(ctx context.Context, q *dto.SubstitutionListQuery) ([]dto.GrupoSubstituicaoResponse, int64, error) {
	q.Normalize()
	f := repository.SubFilter{
		EscolaID:            q.EscolaID,
		ProdutoOrigemID:     q.ProdutoOrigemID,
		ProdutoGenericoID:   q.ProdutoGenericoID,
		SemanaAbastecimento: q.SemanaAbastecimento,
		SemanaConsumo:       q.SemanaConsumo,
		Status:              model.SubstitutionStatus(q.Status),
	}
	rows, _, err := s.repo.Substitution.List(ctx, f, -1, 0)
	if err != nil {
		s.logger.Error("falha ao listar substituições", zap.Error(err))
		return nil, 0, err
	}

	groups := make(map[repository.GrupoKey]*dto.GrupoSubstituicaoResponse)
	order := make([]repository.GrupoKey, 0)
	for i := range rows {
		row := &rows[i]
		key := repository.GrupoKey{
			ProdutoOrigemID:     row.ProdutoOrigemID,
			ProdutoGenericoID:   row.ProdutoGenericoID,
			SemanaAbastecimento: row.SemanaAbastecimento,
			SemanaConsumo:       row.SemanaConsumo,
		}
		g, ok := groups[key]
		if !ok {
			g = &dto.GrupoSubstituicaoResponse{
				ProdutoOrigemID:        row.ProdutoOrigemID,
				ProdutoOrigemNome:      row.ProdutoOrigemNome,
				ProdutoOrigemUnidade:   row.ProdutoOrigemUnidade,
				ProdutoGenericoID:      row.ProdutoGenericoID,
				ProdutoGenericoNome:    row.ProdutoGenericoNome,
				ProdutoGenericoUnidade: row.ProdutoGenericoUnidade,
				FatorConversao:         row.FatorConversao,
				SemanaAbastecimento:    row.SemanaAbastecimento,
				SemanaConsumo:          row.SemanaConsumo,
				Status:                 string(row.Status),
				Trocado:                row.Trocado(),
			}
			groups[key] = g
			order = append(order, key)
		}
		g.QuantidadeOrigemTotal = g.QuantidadeOrigemTotal.Add(row.QuantidadeOrigem)
		g.QuantidadeGenericoTotal = g.QuantidadeGenericoTotal.Add(row.QuantidadeGenerico)
		g.Escolas = append(g.Escolas, dto.EscolaSubstituicao{
			ID:                 row.ID,
			EscolaID:           row.EscolaID,
			EscolaNome:         row.EscolaNome,
			QuantidadeOrigem:   row.QuantidadeOrigem,
			QuantidadeGenerico: row.QuantidadeGenerico,
			Status:             string(row.Status),
		})
	}

	sort.SliceStable(order, func(i, j int) bool {
		gi, gj := groups[order[i]], groups[order[j]]
		if gi.ProdutoOrigemNome != gj.ProdutoOrigemNome {
			return gi.ProdutoOrigemNome < gj.ProdutoOrigemNome
		}
		return gi.SemanaAbastecimento > gj.SemanaAbastecimento
	})

	total := int64(len(order))
	start := q.Offset()
	if start > len(order) {
		start = len(order)
	}
	end := start + q.PageSize
	if end > len(order) {
		end = len(order)
	}

	out := make([]dto.GrupoSubstituicaoResponse, 0, end-start)
	for _, key := range order[start:end] {
		out = append(out, *groups[key])
	}
	return out, total, nil
}

// ────────────────────── persistence ──────────────────────

// Salvar persists substitution rows, one per school. Items fail or
// succeed independently; the natural-key dedup and the tombstone block
// both count as item errors, never as a whole-batch failure.
func (s *substitutionService) Salvar(ctx context.Context, req *dto.SaveSubstituicaoRequest, caller Caller) (*dto.BulkResult, error) {
	if !roleAllowed(caller, "nutricionista") {
		return nil, ErrPerfilSemPermissao
	}
	if len(req.Itens) == 0 {
		return nil, ErrSelecaoVazia
	}

	var result dto.BulkResult
	err := s.runner.run(ctx, func(r *repository.Repository) error {
		result = dto.BulkResult{}
		for _, item := range req.Itens {
			need, err := r.Need.GetByID(ctx, item.NecessidadeRowID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					result.Erros++
					result.ErrosDetalhados = append(result.ErrosDetalhados, dto.ErroDetalhado{
						ID: item.NecessidadeRowID, Motivo: ErrNecessidadeNaoEncontrada.Error(),
					})
					continue
				}
				return err
			}
			if need.Status != model.NeedStatusConf {
				result.Erros++
				result.ErrosDetalhados = append(result.ErrosDetalhados, dto.ErroDetalhado{
					ID: item.NecessidadeRowID, Escola: need.EscolaNome,
					Motivo: fmt.Sprintf("necessidade em status %s não pode ser substituída", need.Status),
				})
				continue
			}

			if _, err := r.Substitution.FindActiveByChave(ctx, need.EscolaID, need.ProdutoID, need.SemanaAbastecimento); err == nil {
				result.Erros++
				result.ErrosDetalhados = append(result.ErrosDetalhados, dto.ErroDetalhado{
					ID: item.NecessidadeRowID, Escola: need.EscolaNome, Motivo: ErrSubstituicaoDuplicada.Error(),
				})
				continue
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if _, err := r.Substitution.FindTombstone(ctx, need.EscolaID, need.ProdutoID, need.SemanaAbastecimento); err == nil {
				result.Erros++
				result.ErrosDetalhados = append(result.ErrosDetalhados, dto.ErroDetalhado{
					ID: item.NecessidadeRowID, Escola: need.EscolaNome, Motivo: ErrSubstituicaoExcluida.Error(),
				})
				continue
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			gen, err := s.catalog.GetProduct(ctx, item.ProdutoGenericoID)
			if err != nil {
				result.Erros++
				result.ErrosDetalhados = append(result.ErrosDetalhados, dto.ErroDetalhado{
					ID: item.NecessidadeRowID, Escola: need.EscolaNome,
					Motivo: fmt.Sprintf("produto genérico %d: %v", item.ProdutoGenericoID, err),
				})
				continue
			}
			fator := item.FatorConversao
			if fator.IsZero() || fator.IsNegative() {
				fator = gen.FatorConversao
			}

			qtOrigem := need.EffectiveQuantity()
			if !qtOrigem.Valid {
				result.Erros++
				result.ErrosDetalhados = append(result.ErrosDetalhados, dto.ErroDetalhado{
					ID: item.NecessidadeRowID, Escola: need.EscolaNome, Motivo: "necessidade sem quantidade definida",
				})
				continue
			}

			row := &model.NecessidadeSubstituicao{
				NecessidadeID:          need.NecessidadeID,
				EscolaID:               need.EscolaID,
				EscolaNome:             need.EscolaNome,
				ProdutoOrigemID:        need.ProdutoID,
				ProdutoOrigemNome:      need.ProdutoNome,
				ProdutoOrigemUnidade:   need.ProdutoUnidade,
				QuantidadeOrigem:       qtOrigem.Decimal,
				ProdutoGenericoID:      gen.ID,
				ProdutoGenericoNome:    gen.Nome,
				ProdutoGenericoUnidade: gen.Unidade,
				FatorConversao:         fator,
				QuantidadeGenerico:     quantidadeGenerico(qtOrigem.Decimal, fator),
				SemanaAbastecimento:    need.SemanaAbastecimento,
				SemanaConsumo:          need.SemanaConsumo,
				Status:                 model.SubStatusConf,
				Ativo:                  true,
			}
			row.CreatedBy = &caller.ID
			row.UpdatedBy = &caller.ID
			if err := r.Substitution.CreateBatch(ctx, []*model.NecessidadeSubstituicao{row}); err != nil {
				return err
			}
			result.Sucessos++
		}
		return nil
	})
	if err != nil {
		s.logger.Error("falha ao salvar substituições", zap.Error(err))
		return nil, err
	}
	return &result, nil
}

// LiberarParaAnalise releases a supply week's substitutions to the
// logistics analysis stage and flags the origin need rows as processed.
func (s *substitutionService) LiberarParaAnalise(ctx context.Context, req *dto.LiberarAnaliseRequest, caller Caller) (*dto.BulkResult, error) {
	if !roleAllowed(caller, "nutricionista") {
		return nil, ErrPerfilSemPermissao
	}

	var result dto.BulkResult
	err := s.runner.run(ctx, func(r *repository.Repository) error {
		result = dto.BulkResult{}
		rows, err := r.Substitution.LockBySemana(ctx, req.SemanaAbastecimento, req.SemanaConsumo, req.ProdutoOrigemID, model.SubStatusConf)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]int64, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
		}

		needIDs := make([]int64, 0, len(rows))
		for _, row := range rows {
			need, err := r.Need.FindActiveByChave(ctx, row.EscolaID, row.ProdutoOrigemID, row.SemanaAbastecimento)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return err
			}
			needIDs = append(needIDs, need.ID)
		}

		for _, chunk := range txretry.Chunk(ids, s.engine.ChunkSize) {
			affected, err := r.Substitution.UpdateStatus(ctx, chunk, model.SubStatusConf, model.SubStatusConfLog, caller.ID)
			if err != nil {
				return err
			}
			result.Sucessos += int(affected)
			if diff := len(chunk) - int(affected); diff > 0 {
				result.Erros += diff
			}
		}
		for _, chunk := range txretry.Chunk(needIDs, s.engine.ChunkSize) {
			if err := r.Need.MarkProcessed(ctx, chunk); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("falha ao liberar substituições para análise", zap.Error(err))
		return nil, err
	}
	return &result, nil
}

// Decidir is the coordination decision: it approves or rejects every
// school row of a grouped substitution under analysis. The group moves
// as a unit.
func (s *substitutionService) Decidir(ctx context.Context, req *dto.DecisaoRequest, caller Caller) (*dto.BulkResult, error) {
	if !roleAllowed(caller, "coordenacao") {
		return nil, ErrPerfilSemPermissao
	}
	to := model.SubStatusRejeitado
	if req.Aprovado {
		to = model.SubStatusAprovado
	}
	return s.transitionGrupo(ctx, req.Grupo, model.SubStatusConfLog, to, caller)
}

// MarcarImpressao marks a released group as printed. Printing closes
// the normal path; the coordination decision is the alternate outcome.
func (s *substitutionService) MarcarImpressao(ctx context.Context, grupo dto.GrupoSubstituicao, caller Caller) (*dto.BulkResult, error) {
	if !roleAllowed(caller, "logistica") {
		return nil, ErrPerfilSemPermissao
	}
	return s.transitionGrupo(ctx, grupo, model.SubStatusConfLog, model.SubStatusImpressao, caller)
}

func (s *substitutionService) transitionGrupo(ctx context.Context, grupo dto.GrupoSubstituicao, from, to model.SubstitutionStatus, caller Caller) (*dto.BulkResult, error) {
	if !model.CanTransitionSub(from, to) {
		return nil, fmt.Errorf("%w: %s não avança para %s", ErrStatusSubInvalido, from, to)
	}
	key := grupoKey(grupo)

	var result dto.BulkResult
	err := s.runner.run(ctx, func(r *repository.Repository) error {
		result = dto.BulkResult{}
		rows, err := r.Substitution.LockByGrupo(ctx, key)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return ErrGrupoVazio
		}
		for _, row := range rows {
			if row.Status != from {
				return fmt.Errorf("%w: escola %s em status %s", ErrStatusSubInvalido, row.EscolaNome, row.Status)
			}
		}

		ids := make([]int64, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
		}
		for _, chunk := range txretry.Chunk(ids, s.engine.ChunkSize) {
			affected, err := r.Substitution.UpdateStatus(ctx, chunk, from, to, caller.ID)
			if err != nil {
				return err
			}
			result.Sucessos += int(affected)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrGrupoVazio) && !errors.Is(err, ErrStatusSubInvalido) {
			s.logger.Error("falha na transição do grupo de substituição", zap.Error(err))
		}
		return nil, err
	}
	return &result, nil
}

// ────────────────────── product swap ──────────────────────

// TrocarProduto exchanges the origin product of a grouped substitution
// for another. The previous origin is parked on each row so the swap
// can be undone, and the new origin's default generic is re-resolved.
// The whole group moves or nothing does.
func (s *substitutionService) TrocarProduto(ctx context.Context, req *dto.TrocarProdutoRequest, caller Caller) (*dto.BulkResult, error) {
	if !roleAllowed(caller, "logistica", "nutricionista") {
		return nil, ErrPerfilSemPermissao
	}

	var result dto.BulkResult
	err := s.runner.run(ctx, func(r *repository.Repository) error {
		result = dto.BulkResult{}
		rows, err := r.Substitution.LockByGrupo(ctx, grupoKey(req.Grupo))
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return ErrGrupoVazio
		}

		// Resolve the new origin's default generic once per group. A
		// missing mapping keeps the current generic fields untouched.
		gen, err := s.catalog.GenericForProduct(ctx, req.NovoProdutoID)
		if err != nil && !errors.Is(err, ErrGenericoNaoEncontrado) {
			return err
		}

		for i := range rows {
			row := &rows[i]
			if row.Trocado() {
				return fmt.Errorf("%w: escola %s", ErrTrocaPendente, row.EscolaNome)
			}
			// The new origin key must be free per school, otherwise the
			// swap would stand up a second active row for the same
			// school, product and week.
			if _, err := r.Substitution.FindActiveByChave(ctx, row.EscolaID, req.NovoProdutoID, row.SemanaAbastecimento); err == nil {
				return fmt.Errorf("%w: escola %s", ErrSubstituicaoDuplicada, row.EscolaNome)
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			anteriorID := row.ProdutoOrigemID
			anteriorNome := row.ProdutoOrigemNome
			anteriorUnidade := row.ProdutoOrigemUnidade
			anteriorFator := row.FatorConversao

			row.ProdutoTrocadoID = &anteriorID
			row.ProdutoTrocadoNome = &anteriorNome
			row.ProdutoTrocadoUnidade = &anteriorUnidade
			row.ProdutoTrocadoFator = decimal.NullDecimal{Decimal: anteriorFator, Valid: true}

			row.ProdutoOrigemID = req.NovoProdutoID
			row.ProdutoOrigemNome = req.NovoProdutoNome
			row.ProdutoOrigemUnidade = req.NovoProdutoUnidade

			if gen != nil {
				fator := gen.FatorConversao
				if req.NovoFatorConversao.IsPositive() {
					fator = req.NovoFatorConversao
				}
				row.ProdutoGenericoID = gen.ID
				row.ProdutoGenericoNome = gen.Nome
				row.ProdutoGenericoUnidade = gen.Unidade
				row.FatorConversao = fator
				row.QuantidadeGenerico = quantidadeGenerico(row.QuantidadeOrigem, fator)
			}
			row.UpdatedBy = &caller.ID

			if err := r.Substitution.Save(ctx, row); err != nil {
				return err
			}
			result.Sucessos++
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrGrupoVazio) && !errors.Is(err, ErrTrocaPendente) && !errors.Is(err, ErrSubstituicaoDuplicada) {
			s.logger.Error("falha ao trocar produto da substituição", zap.Error(err))
		}
		return nil, err
	}
	return &result, nil
}

// DesfazerTroca restores the parked origin of a previously swapped
// group, re-resolves its default generic and recomputes the converted
// quantities. Without a mapping the generic fields stay untouched.
func (s *substitutionService) DesfazerTroca(ctx context.Context, req *dto.DesfazerTrocaRequest, caller Caller) (*dto.BulkResult, error) {
	if !roleAllowed(caller, "logistica", "nutricionista") {
		return nil, ErrPerfilSemPermissao
	}

	var result dto.BulkResult
	err := s.runner.run(ctx, func(r *repository.Repository) error {
		result = dto.BulkResult{}
		rows, err := r.Substitution.LockByGrupo(ctx, grupoKey(req.Grupo))
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return ErrGrupoVazio
		}

		for i := range rows {
			row := &rows[i]
			if !row.Trocado() {
				return fmt.Errorf("%w: escola %s", ErrSemTrocaParaDesfazer, row.EscolaNome)
			}

			row.ProdutoOrigemID = *row.ProdutoTrocadoID
			if row.ProdutoTrocadoNome != nil {
				row.ProdutoOrigemNome = *row.ProdutoTrocadoNome
			}
			if row.ProdutoTrocadoUnidade != nil {
				row.ProdutoOrigemUnidade = *row.ProdutoTrocadoUnidade
			}

			// Re-resolve the restored origin's default generic. When no
			// mapping exists the generic fields stay as they are.
			gen, err := s.catalog.GenericForProduct(ctx, row.ProdutoOrigemID)
			if err != nil && !errors.Is(err, ErrGenericoNaoEncontrado) {
				return err
			}
			if gen != nil {
				fator := gen.FatorConversao
				if row.ProdutoTrocadoFator.Valid {
					fator = row.ProdutoTrocadoFator.Decimal
				}
				row.ProdutoGenericoID = gen.ID
				row.ProdutoGenericoNome = gen.Nome
				row.ProdutoGenericoUnidade = gen.Unidade
				row.FatorConversao = fator
				row.QuantidadeGenerico = quantidadeGenerico(row.QuantidadeOrigem, fator)
			}

			row.ProdutoTrocadoID = nil
			row.ProdutoTrocadoNome = nil
			row.ProdutoTrocadoUnidade = nil
			row.ProdutoTrocadoFator = decimal.NullDecimal{}
			row.UpdatedBy = &caller.ID

			if err := r.Substitution.Save(ctx, row); err != nil {
				return err
			}
			result.Sucessos++
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrGrupoVazio) && !errors.Is(err, ErrSemTrocaParaDesfazer) {
			s.logger.Error("falha ao desfazer troca de produto", zap.Error(err))
		}
		return nil, err
	}
	return &result, nil
}

// ────────────────────── exclusion ──────────────────────

// Excluir tombstones substitution rows, keeping the natural key
// occupied so a later save cannot silently recreate them.
func (s *substitutionService) Excluir(ctx context.Context, ids []int64, caller Caller) (*dto.BulkResult, error) {
	if !roleAllowed(caller, "nutricionista", "logistica") {
		return nil, ErrPerfilSemPermissao
	}
	if len(ids) == 0 {
		return nil, ErrSelecaoVazia
	}

	var result dto.BulkResult
	err := s.runner.run(ctx, func(r *repository.Repository) error {
		result = dto.BulkResult{}
		for _, chunk := range txretry.Chunk(ids, s.engine.ChunkSize) {
			affected, err := r.Substitution.Deactivate(ctx, chunk, caller.ID)
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
		s.logger.Error("falha ao excluir substituições", zap.Error(err))
		return nil, err
	}
	return &result, nil
}

// Reativar revives one tombstoned substitution row. Reactivation is
// always explicit; no bulk path recreates excluded rows.
func (s *substitutionService) Reativar(ctx context.Context, id int64, caller Caller) error {
	if !roleAllowed(caller, "nutricionista") {
		return ErrPerfilSemPermissao
	}
	err := s.runner.run(ctx, func(r *repository.Repository) error {
		row, err := r.Substitution.GetAnyByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubstituicaoNaoEncontrada
			}
			return err
		}
		if row.Ativo {
			return ErrSubstituicaoDuplicada
		}
		// The natural key may have been taken by another row since
		// the exclusion, typically through a product swap. Reviving
		// would then stand up two active rows for the same school,
		// product and week.
		if _, err := r.Substitution.FindActiveByChave(ctx, row.EscolaID, row.ProdutoOrigemID, row.SemanaAbastecimento); err == nil {
			return ErrSubstituicaoDuplicada
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return r.Substitution.Reactivate(ctx, id, caller.ID)
	})
	if err != nil {
		if !errors.Is(err, ErrSubstituicaoDuplicada) && !errors.Is(err, ErrSubstituicaoNaoEncontrada) {
			s.logger.Error("falha ao reativar substituição", zap.Error(err))
		}
		return err
	}
	return nil
}

func grupoKey(g dto.GrupoSubstituicao) repository.GrupoKey {
	return repository.GrupoKey{
		ProdutoOrigemID:     g.ProdutoOrigemID,
		ProdutoGenericoID:   g.ProdutoGenericoID,
		SemanaAbastecimento: g.SemanaAbastecimento,
		SemanaConsumo:       g.SemanaConsumo,
	}
}
