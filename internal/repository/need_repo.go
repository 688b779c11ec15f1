package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/LuizNicolao/terceirize-foods-sub000/internal/model"
)

// NeedFilter narrows the needs listing.
type NeedFilter struct {
	EscolaID            int64
	ProdutoID           int64
	SemanaAbastecimento string
	SemanaConsumo       string
	Status              model.NeedStatus
	Busca               string
	IncludeInactive     bool
}

// Semana is one distinct week pair for the filter dropdowns.
type Semana struct {
	SemanaAbastecimento string
	SemanaConsumo       string
}

// StatusSummaryRow aggregates the pipeline position of one school/week.
type StatusSummaryRow struct {
	EscolaID            int64
	EscolaNome          string
	SemanaAbastecimento string
	Status              model.NeedStatus
	TotalItens          int64
}

// NeedRepository is the data access interface for need rows.
type NeedRepository interface {
	CreateBatch(ctx context.Context, rows []*model.Necessidade) error
	GetByID(ctx context.Context, id int64) (*model.Necessidade, error)
	FindActiveByChave(ctx context.Context, escolaID, produtoID int64, semana string) (*model.Necessidade, error)
	FindTombstone(ctx context.Context, escolaID, produtoID int64, semana string) (*model.Necessidade, error)
	List(ctx context.Context, f NeedFilter, limit, offset int) ([]model.Necessidade, int64, error)
	LockByIDs(ctx context.Context, ids []int64) ([]model.Necessidade, error)
	LockByScope(ctx context.Context, escolaID int64, semana string, status model.NeedStatus) ([]model.Necessidade, error)
	UpdateAdjustment(ctx context.Context, id int64, col model.StageColumn, v decimal.NullDecimal, anterior decimal.NullDecimal, updatedBy string) (int64, error)
	UpdateStatus(ctx context.Context, ids []int64, from, to model.NeedStatus, updatedBy string) (int64, error)
	BackfillStage(ctx context.Context, ids []int64, target model.StageColumn) error
	Reactivate(ctx context.Context, id int64, quantidade decimal.Decimal, status model.NeedStatus, updatedBy string) error
	Deactivate(ctx context.Context, ids []int64, deletedBy string) (int64, error)
	MarkProcessed(ctx context.Context, ids []int64) error
	DistinctSemanas(ctx context.Context, escolaID int64) ([]Semana, error)
	StatusSummary(ctx context.Context, semana string) ([]StatusSummaryRow, error)
}

type needRepo struct {
	db *gorm.DB
}

// NewNeedRepo creates a NeedRepository backed by gorm.
func NewNeedRepo(db *gorm.DB) NeedRepository {
	return &needRepo{db: db}
}

func (r *needRepo) CreateBatch(ctx context.Context, rows []*model.Necessidade) error {
	return r.db.WithContext(ctx).Create(rows).Error
}

func (r *needRepo) GetByID(ctx context.Context, id int64) (*model.Necessidade, error) {
	var n model.Necessidade
	err := r.db.WithContext(ctx).
		Where("id = ? AND ativo", id).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *needRepo) FindActiveByChave(ctx context.Context, escolaID, produtoID int64, semana string) (*model.Necessidade, error) {
	var n model.Necessidade
	err := r.db.WithContext(ctx).
		Where("escola_id = ? AND produto_id = ? AND semana_abastecimento = ? AND ativo", escolaID, produtoID, semana).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *needRepo) FindTombstone(ctx context.Context, escolaID, produtoID int64, semana string) (*model.Necessidade, error) {
	var n model.Necessidade
	err := r.db.WithContext(ctx).
		Where("escola_id = ? AND produto_id = ? AND semana_abastecimento = ? AND NOT ativo AND status = ?",
			escolaID, produtoID, semana, model.NeedStatusExcluido).
		Order("id DESC").
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *needRepo) List(ctx context.Context, f NeedFilter, limit, offset int) ([]model.Necessidade, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Necessidade{})
	if !f.IncludeInactive {
		q = q.Where("ativo")
	}
	if f.EscolaID > 0 {
		q = q.Where("escola_id = ?", f.EscolaID)
	}
	if f.ProdutoID > 0 {
		q = q.Where("produto_id = ?", f.ProdutoID)
	}
	if f.SemanaAbastecimento != "" {
		q = q.Where("semana_abastecimento = ?", f.SemanaAbastecimento)
	}
	if f.SemanaConsumo != "" {
		q = q.Where("semana_consumo = ?", f.SemanaConsumo)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Busca != "" {
		q = q.Where("produto_nome ILIKE ?", "%"+f.Busca+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.Necessidade
	err := q.Order("escola_nome ASC, produto_nome ASC, id ASC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// LockByIDs takes FOR UPDATE locks in ascending id order. Every caller
// locking multiple rows goes through here so lock acquisition order is
// consistent across concurrent commits.
func (r *needRepo) LockByIDs(ctx context.Context, ids []int64) ([]model.Necessidade, error) {
	var rows []model.Necessidade
	err := r.db.WithContext(ctx).
		Where("id IN ? AND ativo", ids).
		Order("id ASC").
		Set("gorm:query_option", "FOR UPDATE").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *needRepo) LockByScope(ctx context.Context, escolaID int64, semana string, status model.NeedStatus) ([]model.Necessidade, error) {
	q := r.db.WithContext(ctx).
		Where("semana_abastecimento = ? AND status = ? AND ativo", semana, status)
	if escolaID > 0 {
		q = q.Where("escola_id = ?", escolaID)
	}
	var rows []model.Necessidade
	err := q.Order("id ASC").
		Set("gorm:query_option", "FOR UPDATE").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *needRepo) UpdateAdjustment(ctx context.Context, id int64, col model.StageColumn, v decimal.NullDecimal, anterior decimal.NullDecimal, updatedBy string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Necessidade{}).
		Where("id = ? AND ativo", id).
		Updates(map[string]interface{}{
			string(col):       v,
			"ajuste_anterior": anterior,
			"updated_by":      updatedBy,
		})
	return res.RowsAffected, res.Error
}

// UpdateStatus moves rows from one stage to the next. The from guard
// keeps rows already moved by a concurrent commit untouched; the caller
// compares RowsAffected against its expectation.
func (r *needRepo) UpdateStatus(ctx context.Context, ids []int64, from, to model.NeedStatus, updatedBy string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Necessidade{}).
		Where("id IN ? AND status = ? AND ativo", ids, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_by": updatedBy,
		})
	return res.RowsAffected, res.Error
}

// backfillExpr builds the COALESCE expression that resolves the
// effective quantity from the target stage downwards.
func backfillExpr(target model.StageColumn) string {
	cols := make([]string, 0, len(model.BackfillChain))
	for i, c := range model.BackfillChain {
		if c == target {
			cols = append(cols, string(c))
			cols = append(cols, stageNames(model.BackfillChain[i+1:])...)
			break
		}
	}
	return "COALESCE(" + strings.Join(cols, ", ") + ")"
}

func stageNames(cols []model.StageColumn) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = string(c)
	}
	return out
}

// BackfillStage copies the effective quantity into the target stage
// column, so the next stage starts from the value that stood when the
// rows were released.
func (r *needRepo) BackfillStage(ctx context.Context, ids []int64, target model.StageColumn) error {
	expr := fmt.Sprintf("UPDATE necessidades SET %s = %s WHERE id IN ? AND ativo", target, backfillExpr(target))
	return r.db.WithContext(ctx).Exec(expr, ids).Error
}

// Reactivate revives a tombstoned row with a fresh quantity. The stage
// columns are cleared so the revived row restarts the adjustment flow.
func (r *needRepo) Reactivate(ctx context.Context, id int64, quantidade decimal.Decimal, status model.NeedStatus, updatedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Necessidade{}).
		Where("id = ? AND NOT ativo", id).
		Updates(map[string]interface{}{
			"ativo":                true,
			"status":               status,
			"ajuste":               quantidade,
			"ajuste_anterior":      nil,
			"ajuste_nutricionista": nil,
			"ajuste_coordenacao":   nil,
			"ajuste_logistica":     nil,
			"ajuste_conf_nutri":    nil,
			"ajuste_conf_coord":    nil,
			"updated_by":           updatedBy,
		}).Error
}

// Deactivate tombstones rows: ativo drops and the status lands on
// EXCLUÍDO. The row stays behind to block silent regeneration.
func (r *needRepo) Deactivate(ctx context.Context, ids []int64, deletedBy string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Necessidade{}).
		Where("id IN ? AND ativo", ids).
		Updates(map[string]interface{}{
			"ativo":      false,
			"status":     model.NeedStatusExcluido,
			"updated_by": deletedBy,
		})
	return res.RowsAffected, res.Error
}

func (r *needRepo) MarkProcessed(ctx context.Context, ids []int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Necessidade{}).
		Where("id IN ?", ids).
		Update("substituicao_processada", true).Error
}

func (r *needRepo) DistinctSemanas(ctx context.Context, escolaID int64) ([]Semana, error) {
	q := r.db.WithContext(ctx).
		Model(&model.Necessidade{}).
		Select("DISTINCT semana_abastecimento, semana_consumo").
		Where("ativo")
	if escolaID > 0 {
		q = q.Where("escola_id = ?", escolaID)
	}
	var out []Semana
	err := q.Order("semana_abastecimento DESC").Scan(&out).Error
	return out, err
}

func (r *needRepo) StatusSummary(ctx context.Context, semana string) ([]StatusSummaryRow, error) {
	q := r.db.WithContext(ctx).
		Model(&model.Necessidade{}).
		Select("escola_id, escola_nome, semana_abastecimento, status, COUNT(*) AS total_itens").
		Where("ativo").
		Group("escola_id, escola_nome, semana_abastecimento, status").
		Order("escola_nome ASC, semana_abastecimento DESC")
	if semana != "" {
		q = q.Where("semana_abastecimento = ?", semana)
	}
	var out []StatusSummaryRow
	err := q.Scan(&out).Error
	return out, err
}
