package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/LuizNicolao/terceirize-foods-sub000/internal/model"
)

// SubFilter narrows the substitution listing.
type SubFilter struct {
	EscolaID            int64
	ProdutoOrigemID     int64
	ProdutoGenericoID   int64
	SemanaAbastecimento string
	SemanaConsumo       string
	Status              model.SubstitutionStatus
	IncludeInactive     bool
}

// GrupoKey identifies one grouped substitution: the unit the analysis
// views operate on.
type GrupoKey struct {
	ProdutoOrigemID     int64
	ProdutoGenericoID   int64
	SemanaAbastecimento string
	SemanaConsumo       string
}

// SubstitutionRepository is the data access interface for substitution
// rows.
type SubstitutionRepository interface {
	CreateBatch(ctx context.Context, rows []*model.NecessidadeSubstituicao) error
	GetByID(ctx context.Context, id int64) (*model.NecessidadeSubstituicao, error)
	GetAnyByID(ctx context.Context, id int64) (*model.NecessidadeSubstituicao, error)
	FindActiveByChave(ctx context.Context, escolaID, produtoOrigemID int64, semana string) (*model.NecessidadeSubstituicao, error)
	FindTombstone(ctx context.Context, escolaID, produtoOrigemID int64, semana string) (*model.NecessidadeSubstituicao, error)
	List(ctx context.Context, f SubFilter, limit, offset int) ([]model.NecessidadeSubstituicao, int64, error)
	ListByGrupo(ctx context.Context, g GrupoKey) ([]model.NecessidadeSubstituicao, error)
	LockByGrupo(ctx context.Context, g GrupoKey) ([]model.NecessidadeSubstituicao, error)
	LockBySemana(ctx context.Context, semana, semanaConsumo string, produtoOrigemID int64, status model.SubstitutionStatus) ([]model.NecessidadeSubstituicao, error)
	Save(ctx context.Context, row *model.NecessidadeSubstituicao) error
	UpdateStatus(ctx context.Context, ids []int64, from, to model.SubstitutionStatus, updatedBy string) (int64, error)
	Deactivate(ctx context.Context, ids []int64, deletedBy string) (int64, error)
	Reactivate(ctx context.Context, id int64, updatedBy string) error
}

type substitutionRepo struct {
	db *gorm.DB
}

// NewSubstitutionRepo creates a SubstitutionRepository backed by gorm.
func NewSubstitutionRepo(db *gorm.DB) SubstitutionRepository {
	return &substitutionRepo{db: db}
}

func (r *substitutionRepo) CreateBatch(ctx context.Context, rows []*model.NecessidadeSubstituicao) error {
	return r.db.WithContext(ctx).Create(rows).Error
}

func (r *substitutionRepo) GetByID(ctx context.Context, id int64) (*model.NecessidadeSubstituicao, error) {
	var s model.NecessidadeSubstituicao
	err := r.db.WithContext(ctx).
		Where("id = ? AND ativo", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetAnyByID loads a row by id regardless of the ativo flag, so
// callers can inspect tombstones.
func (r *substitutionRepo) GetAnyByID(ctx context.Context, id int64) (*model.NecessidadeSubstituicao, error) {
	var s model.NecessidadeSubstituicao
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *substitutionRepo) FindActiveByChave(ctx context.Context, escolaID, produtoOrigemID int64, semana string) (*model.NecessidadeSubstituicao, error) {
	var s model.NecessidadeSubstituicao
	err := r.db.WithContext(ctx).
		Where("escola_id = ? AND produto_origem_id = ? AND semana_abastecimento = ? AND ativo",
			escolaID, produtoOrigemID, semana).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *substitutionRepo) FindTombstone(ctx context.Context, escolaID, produtoOrigemID int64, semana string) (*model.NecessidadeSubstituicao, error) {
	var s model.NecessidadeSubstituicao
	err := r.db.WithContext(ctx).
		Where("escola_id = ? AND produto_origem_id = ? AND semana_abastecimento = ? AND NOT ativo AND status = ?",
			escolaID, produtoOrigemID, semana, model.SubStatusExcluido).
		Order("id DESC").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *substitutionRepo) List(ctx context.Context, f SubFilter, limit, offset int) ([]model.NecessidadeSubstituicao, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.NecessidadeSubstituicao{})
	if !f.IncludeInactive {
		q = q.Where("ativo")
	}
	if f.EscolaID > 0 {
		q = q.Where("escola_id = ?", f.EscolaID)
	}
	if f.ProdutoOrigemID > 0 {
		q = q.Where("produto_origem_id = ?", f.ProdutoOrigemID)
	}
	if f.ProdutoGenericoID > 0 {
		q = q.Where("produto_generico_id = ?", f.ProdutoGenericoID)
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

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.NecessidadeSubstituicao
	err := q.Order("produto_origem_nome ASC, escola_nome ASC, id ASC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *substitutionRepo) grupoQuery(ctx context.Context, g GrupoKey) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("produto_origem_id = ? AND produto_generico_id = ? AND semana_abastecimento = ? AND semana_consumo = ? AND ativo",
			g.ProdutoOrigemID, g.ProdutoGenericoID, g.SemanaAbastecimento, g.SemanaConsumo)
}

func (r *substitutionRepo) ListByGrupo(ctx context.Context, g GrupoKey) ([]model.NecessidadeSubstituicao, error) {
	var rows []model.NecessidadeSubstituicao
	err := r.grupoQuery(ctx, g).Order("escola_nome ASC, id ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// LockByGrupo takes FOR UPDATE locks in ascending id order, matching
// the ordering discipline of the needs side.
func (r *substitutionRepo) LockByGrupo(ctx context.Context, g GrupoKey) ([]model.NecessidadeSubstituicao, error) {
	var rows []model.NecessidadeSubstituicao
	err := r.grupoQuery(ctx, g).
		Order("id ASC").
		Set("gorm:query_option", "FOR UPDATE").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *substitutionRepo) LockBySemana(ctx context.Context, semana, semanaConsumo string, produtoOrigemID int64, status model.SubstitutionStatus) ([]model.NecessidadeSubstituicao, error) {
	q := r.db.WithContext(ctx).
		Where("semana_abastecimento = ? AND status = ? AND ativo", semana, status)
	if semanaConsumo != "" {
		q = q.Where("semana_consumo = ?", semanaConsumo)
	}
	if produtoOrigemID > 0 {
		q = q.Where("produto_origem_id = ?", produtoOrigemID)
	}
	var rows []model.NecessidadeSubstituicao
	err := q.Order("id ASC").
		Set("gorm:query_option", "FOR UPDATE").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *substitutionRepo) Save(ctx context.Context, row *model.NecessidadeSubstituicao) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *substitutionRepo) UpdateStatus(ctx context.Context, ids []int64, from, to model.SubstitutionStatus, updatedBy string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.NecessidadeSubstituicao{}).
		Where("id IN ? AND status = ? AND ativo", ids, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_by": updatedBy,
		})
	return res.RowsAffected, res.Error
}

// Deactivate tombstones rows without erasing them, so the natural key
// stays occupied and regeneration cannot silently recreate them.
func (r *substitutionRepo) Deactivate(ctx context.Context, ids []int64, deletedBy string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.NecessidadeSubstituicao{}).
		Where("id IN ? AND ativo", ids).
		Updates(map[string]interface{}{
			"ativo":      false,
			"status":     model.SubStatusExcluido,
			"updated_by": deletedBy,
		})
	return res.RowsAffected, res.Error
}

func (r *substitutionRepo) Reactivate(ctx context.Context, id int64, updatedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.NecessidadeSubstituicao{}).
		Where("id = ? AND NOT ativo", id).
		Updates(map[string]interface{}{
			"ativo":      true,
			"status":     model.SubStatusConf,
			"updated_by": updatedBy,
		}).Error
}
