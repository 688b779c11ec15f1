package service

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/LuizNicolao/terceirize-foods-sub000/internal/model"
	"github.com/LuizNicolao/terceirize-foods-sub000/internal/repository"
)

// ── Mock NeedRepository ──

type mockNeedRepo struct {
	seq  int64
	rows map[int64]*model.Necessidade
}

func newMockNeedRepo() *mockNeedRepo {
	return &mockNeedRepo{rows: make(map[int64]*model.Necessidade)}
}

func (m *mockNeedRepo) CreateBatch(_ context.Context, rows []*model.Necessidade) error {
	for _, n := range rows {
		m.seq++
		n.ID = m.seq
		cp := *n
		m.rows[n.ID] = &cp
	}
	return nil
}

func (m *mockNeedRepo) GetByID(_ context.Context, id int64) (*model.Necessidade, error) {
	if n, ok := m.rows[id]; ok && n.Ativo {
		cp := *n
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNeedRepo) FindActiveByChave(_ context.Context, escolaID, produtoID int64, semana string) (*model.Necessidade, error) {
	for _, n := range m.rows {
		if n.Ativo && n.EscolaID == escolaID && n.ProdutoID == produtoID && n.SemanaAbastecimento == semana {
			cp := *n
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNeedRepo) FindTombstone(_ context.Context, escolaID, produtoID int64, semana string) (*model.Necessidade, error) {
	for _, n := range m.rows {
		if !n.Ativo && n.Status == model.NeedStatusExcluido &&
			n.EscolaID == escolaID && n.ProdutoID == produtoID && n.SemanaAbastecimento == semana {
			cp := *n
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNeedRepo) matches(n *model.Necessidade, f repository.NeedFilter) bool {
	if !f.IncludeInactive && !n.Ativo {
		return false
	}
	if f.EscolaID > 0 && n.EscolaID != f.EscolaID {
		return false
	}
	if f.ProdutoID > 0 && n.ProdutoID != f.ProdutoID {
		return false
	}
	if f.SemanaAbastecimento != "" && n.SemanaAbastecimento != f.SemanaAbastecimento {
		return false
	}
	if f.SemanaConsumo != "" && n.SemanaConsumo != f.SemanaConsumo {
		return false
	}
	if f.Status != "" && n.Status != f.Status {
		return false
	}
	if f.Busca != "" && !strings.Contains(strings.ToLower(n.ProdutoNome), strings.ToLower(f.Busca)) {
		return false
	}
	return true
}

func (m *mockNeedRepo) List(_ context.Context, f repository.NeedFilter, limit, offset int) ([]model.Necessidade, int64, error) {
	var all []model.Necessidade
	for _, n := range m.rows {
		if m.matches(n, f) {
			all = append(all, *n)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit >= 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *mockNeedRepo) LockByIDs(_ context.Context, ids []int64) ([]model.Necessidade, error) {
	var out []model.Necessidade
	for _, id := range ids {
		if n, ok := m.rows[id]; ok && n.Ativo {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockNeedRepo) LockByScope(_ context.Context, escolaID int64, semana string, status model.NeedStatus) ([]model.Necessidade, error) {
	var out []model.Necessidade
	for _, n := range m.rows {
		if !n.Ativo || n.SemanaAbastecimento != semana || n.Status != status {
			continue
		}
		if escolaID > 0 && n.EscolaID != escolaID {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockNeedRepo) UpdateAdjustment(_ context.Context, id int64, col model.StageColumn, v decimal.NullDecimal, anterior decimal.NullDecimal, updatedBy string) (int64, error) {
	n, ok := m.rows[id]
	if !ok || !n.Ativo {
		return 0, nil
	}
	n.SetStageValue(col, v)
	n.AjusteAnterior = anterior
	n.UpdatedBy = &updatedBy
	return 1, nil
}

func (m *mockNeedRepo) UpdateStatus(_ context.Context, ids []int64, from, to model.NeedStatus, updatedBy string) (int64, error) {
	var affected int64
	for _, id := range ids {
		if n, ok := m.rows[id]; ok && n.Ativo && n.Status == from {
			n.Status = to
			n.UpdatedBy = &updatedBy
			affected++
		}
	}
	return affected, nil
}

func (m *mockNeedRepo) BackfillStage(_ context.Context, ids []int64, target model.StageColumn) error {
	for _, id := range ids {
		n, ok := m.rows[id]
		if !ok || !n.Ativo {
			continue
		}
		if v := n.StageValue(target); v.Valid {
			continue
		}
		n.SetStageValue(target, n.EffectiveQuantity())
	}
	return nil
}

func (m *mockNeedRepo) Reactivate(_ context.Context, id int64, quantidade decimal.Decimal, status model.NeedStatus, updatedBy string) error {
	n, ok := m.rows[id]
	if !ok || n.Ativo {
		return nil
	}
	n.Ativo = true
	n.Status = status
	n.Ajuste = decimal.NullDecimal{Decimal: quantidade, Valid: true}
	n.AjusteAnterior = decimal.NullDecimal{}
	n.AjusteNutricionista = decimal.NullDecimal{}
	n.AjusteCoordenacao = decimal.NullDecimal{}
	n.AjusteLogistica = decimal.NullDecimal{}
	n.AjusteConfNutri = decimal.NullDecimal{}
	n.AjusteConfCoord = decimal.NullDecimal{}
	n.UpdatedBy = &updatedBy
	return nil
}

func (m *mockNeedRepo) Deactivate(_ context.Context, ids []int64, deletedBy string) (int64, error) {
	var affected int64
	for _, id := range ids {
		if n, ok := m.rows[id]; ok && n.Ativo {
			n.Ativo = false
			n.Status = model.NeedStatusExcluido
			n.UpdatedBy = &deletedBy
			affected++
		}
	}
	return affected, nil
}

func (m *mockNeedRepo) MarkProcessed(_ context.Context, ids []int64) error {
	for _, id := range ids {
		if n, ok := m.rows[id]; ok {
			n.SubstituicaoProcessada = true
		}
	}
	return nil
}

func (m *mockNeedRepo) DistinctSemanas(_ context.Context, escolaID int64) ([]repository.Semana, error) {
	seen := make(map[repository.Semana]bool)
	var out []repository.Semana
	for _, n := range m.rows {
		if !n.Ativo {
			continue
		}
		if escolaID > 0 && n.EscolaID != escolaID {
			continue
		}
		s := repository.Semana{SemanaAbastecimento: n.SemanaAbastecimento, SemanaConsumo: n.SemanaConsumo}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SemanaAbastecimento > out[j].SemanaAbastecimento })
	return out, nil
}

func (m *mockNeedRepo) StatusSummary(_ context.Context, semana string) ([]repository.StatusSummaryRow, error) {
	type key struct {
		escola int64
		semana string
		status model.NeedStatus
	}
	agg := make(map[key]*repository.StatusSummaryRow)
	for _, n := range m.rows {
		if !n.Ativo {
			continue
		}
		if semana != "" && n.SemanaAbastecimento != semana {
			continue
		}
		k := key{n.EscolaID, n.SemanaAbastecimento, n.Status}
		if agg[k] == nil {
			agg[k] = &repository.StatusSummaryRow{
				EscolaID:            n.EscolaID,
				EscolaNome:          n.EscolaNome,
				SemanaAbastecimento: n.SemanaAbastecimento,
				Status:              n.Status,
			}
		}
		agg[k].TotalItens++
	}
	var out []repository.StatusSummaryRow
	for _, r := range agg {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EscolaID < out[j].EscolaID })
	return out, nil
}

// ── Mock SubstitutionRepository ──

type mockSubRepo struct {
	seq  int64
	rows map[int64]*model.NecessidadeSubstituicao
}

func newMockSubRepo() *mockSubRepo {
	return &mockSubRepo{rows: make(map[int64]*model.NecessidadeSubstituicao)}
}

func (m *mockSubRepo) CreateBatch(_ context.Context, rows []*model.NecessidadeSubstituicao) error {
	for _, s := range rows {
		m.seq++
		s.ID = m.seq
		cp := *s
		m.rows[s.ID] = &cp
	}
	return nil
}

func (m *mockSubRepo) GetByID(_ context.Context, id int64) (*model.NecessidadeSubstituicao, error) {
	if s, ok := m.rows[id]; ok && s.Ativo {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubRepo) GetAnyByID(_ context.Context, id int64) (*model.NecessidadeSubstituicao, error) {
	if s, ok := m.rows[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubRepo) FindActiveByChave(_ context.Context, escolaID, produtoOrigemID int64, semana string) (*model.NecessidadeSubstituicao, error) {
	for _, s := range m.rows {
		if s.Ativo && s.EscolaID == escolaID && s.ProdutoOrigemID == produtoOrigemID && s.SemanaAbastecimento == semana {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubRepo) FindTombstone(_ context.Context, escolaID, produtoOrigemID int64, semana string) (*model.NecessidadeSubstituicao, error) {
	for _, s := range m.rows {
		if !s.Ativo && s.Status == model.SubStatusExcluido &&
			s.EscolaID == escolaID && s.ProdutoOrigemID == produtoOrigemID && s.SemanaAbastecimento == semana {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubRepo) List(_ context.Context, f repository.SubFilter, limit, offset int) ([]model.NecessidadeSubstituicao, int64, error) {
	var all []model.NecessidadeSubstituicao
	for _, s := range m.rows {
		if !f.IncludeInactive && !s.Ativo {
			continue
		}
		if f.EscolaID > 0 && s.EscolaID != f.EscolaID {
			continue
		}
		if f.ProdutoOrigemID > 0 && s.ProdutoOrigemID != f.ProdutoOrigemID {
			continue
		}
		if f.ProdutoGenericoID > 0 && s.ProdutoGenericoID != f.ProdutoGenericoID {
			continue
		}
		if f.SemanaAbastecimento != "" && s.SemanaAbastecimento != f.SemanaAbastecimento {
			continue
		}
		if f.SemanaConsumo != "" && s.SemanaConsumo != f.SemanaConsumo {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit >= 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *mockSubRepo) inGrupo(s *model.NecessidadeSubstituicao, g repository.GrupoKey) bool {
	return s.Ativo &&
		s.ProdutoOrigemID == g.ProdutoOrigemID &&
		s.ProdutoGenericoID == g.ProdutoGenericoID &&
		s.SemanaAbastecimento == g.SemanaAbastecimento &&
		s.SemanaConsumo == g.SemanaConsumo
}

func (m *mockSubRepo) ListByGrupo(_ context.Context, g repository.GrupoKey) ([]model.NecessidadeSubstituicao, error) {
	var out []model.NecessidadeSubstituicao
	for _, s := range m.rows {
		if m.inGrupo(s, g) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockSubRepo) LockByGrupo(ctx context.Context, g repository.GrupoKey) ([]model.NecessidadeSubstituicao, error) {
	return m.ListByGrupo(ctx, g)
}

func (m *mockSubRepo) LockBySemana(_ context.Context, semana, semanaConsumo string, produtoOrigemID int64, status model.SubstitutionStatus) ([]model.NecessidadeSubstituicao, error) {
	var out []model.NecessidadeSubstituicao
	for _, s := range m.rows {
		if !s.Ativo || s.SemanaAbastecimento != semana || s.Status != status {
			continue
		}
		if semanaConsumo != "" && s.SemanaConsumo != semanaConsumo {
			continue
		}
		if produtoOrigemID > 0 && s.ProdutoOrigemID != produtoOrigemID {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockSubRepo) Save(_ context.Context, row *model.NecessidadeSubstituicao) error {
	cp := *row
	m.rows[row.ID] = &cp
	return nil
}

func (m *mockSubRepo) UpdateStatus(_ context.Context, ids []int64, from, to model.SubstitutionStatus, updatedBy string) (int64, error) {
	var affected int64
	for _, id := range ids {
		if s, ok := m.rows[id]; ok && s.Ativo && s.Status == from {
			s.Status = to
			s.UpdatedBy = &updatedBy
			affected++
		}
	}
	return affected, nil
}

func (m *mockSubRepo) Deactivate(_ context.Context, ids []int64, deletedBy string) (int64, error) {
	var affected int64
	for _, id := range ids {
		if s, ok := m.rows[id]; ok && s.Ativo {
			s.Ativo = false
			s.Status = model.SubStatusExcluido
			s.UpdatedBy = &deletedBy
			affected++
		}
	}
	return affected, nil
}

func (m *mockSubRepo) Reactivate(_ context.Context, id int64, updatedBy string) error {
	if s, ok := m.rows[id]; ok && !s.Ativo {
		s.Ativo = true
		s.Status = model.SubStatusConf
		s.UpdatedBy = &updatedBy
	}
	return nil
}

// ── Mock ProductCatalog ──

type mockCatalog struct {
	genericoPorOrigem map[int64]*Generico // origin product id → generic
	produtos          map[int64]*Generico // generic product id → product
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		genericoPorOrigem: make(map[int64]*Generico),
		produtos:          make(map[int64]*Generico),
	}
}

func (m *mockCatalog) addMapping(origemID int64, g Generico) {
	m.genericoPorOrigem[origemID] = &g
	m.produtos[g.ID] = &g
}

func (m *mockCatalog) GenericForProduct(_ context.Context, produtoID int64) (*Generico, error) {
	if g, ok := m.genericoPorOrigem[produtoID]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, ErrGenericoNaoEncontrado
}

func (m *mockCatalog) GetProduct(_ context.Context, produtoID int64) (*Generico, error) {
	if g, ok := m.produtos[produtoID]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, ErrGenericoNaoEncontrado
}
