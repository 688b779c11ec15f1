package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NecessidadeSubstituicao is one per-school substitution row: an origin
// product replaced by a generic product for a supply week. The analysis
// views group these rows by (origin, generic, supply week, consumption
// week); persistence stays per school.
type NecessidadeSubstituicao struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	NecessidadeID uuid.UUID `gorm:"type:uuid;not null;index" json:"necessidade_id"`

	EscolaID   int64  `gorm:"not null" json:"escola_id"`
	EscolaNome string `gorm:"type:text;not null;default:''" json:"escola_nome"`

	ProdutoOrigemID      int64           `gorm:"not null" json:"produto_origem_id"`
	ProdutoOrigemNome    string          `gorm:"type:text;not null;default:''" json:"produto_origem_nome"`
	ProdutoOrigemUnidade string          `gorm:"type:text;not null;default:''" json:"produto_origem_unidade"`
	QuantidadeOrigem     decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"quantidade_origem"`

	ProdutoGenericoID      int64           `gorm:"not null" json:"produto_generico_id"`
	ProdutoGenericoNome    string          `gorm:"type:text;not null;default:''" json:"produto_generico_nome"`
	ProdutoGenericoUnidade string          `gorm:"type:text;not null;default:''" json:"produto_generico_unidade"`
	FatorConversao         decimal.Decimal `gorm:"type:numeric(14,6);not null;default:1" json:"fator_conversao"`
	QuantidadeGenerico     decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"quantidade_generico"`

	// Swap undo. When the origin product is exchanged, the previous
	// origin is parked here so the exchange can be reversed exactly.
	// At most one swap may stand at a time.
	ProdutoTrocadoID      *int64              `json:"produto_trocado_id,omitempty"`
	ProdutoTrocadoNome    *string             `gorm:"type:text" json:"produto_trocado_nome,omitempty"`
	ProdutoTrocadoUnidade *string             `gorm:"type:text" json:"produto_trocado_unidade,omitempty"`
	ProdutoTrocadoFator   decimal.NullDecimal `gorm:"type:numeric(14,6)" json:"produto_trocado_fator,omitempty"`

	SemanaAbastecimento string `gorm:"type:text;not null" json:"semana_abastecimento"`
	SemanaConsumo       string `gorm:"type:text;not null;default:''" json:"semana_consumo"`

	Status SubstitutionStatus `gorm:"type:text;not null;default:'conf'" json:"status"`
	Ativo  bool               `gorm:"not null;default:true" json:"ativo"`

	SoftDeleteModel
}

// TableName keeps the legacy table name.
func (NecessidadeSubstituicao) TableName() string { return "necessidades_substituicoes" }

// Trocado reports whether the row currently holds a swapped origin.
func (s *NecessidadeSubstituicao) Trocado() bool {
	return s.ProdutoTrocadoID != nil
}
