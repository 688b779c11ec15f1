package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Necessidade is one need row: a (school, product, supply week) cell of
// a requisition. Rows created together share the same NecessidadeID.
type Necessidade struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	NecessidadeID uuid.UUID `gorm:"type:uuid;not null;index" json:"necessidade_id"`

	EscolaID   int64  `gorm:"not null" json:"escola_id"`
	EscolaNome string `gorm:"type:text;not null;default:''" json:"escola_nome"`

	ProdutoID      int64  `gorm:"not null" json:"produto_id"`
	ProdutoNome    string `gorm:"type:text;not null;default:''" json:"produto_nome"`
	ProdutoUnidade string `gorm:"type:text;not null;default:''" json:"produto_unidade"`

	SemanaAbastecimento string `gorm:"type:text;not null" json:"semana_abastecimento"`
	SemanaConsumo       string `gorm:"type:text;not null;default:''" json:"semana_consumo"`

	Status NeedStatus `gorm:"type:text;not null;default:'NEC'" json:"status"`

	// Per-stage adjustment columns. A NULL column means the stage has
	// not touched the quantity; resolution follows BackfillChain.
	// AjusteConfCoord is carried for the legacy data model; no pipeline
	// stage writes it and it takes no part in BackfillChain.
	Ajuste              decimal.NullDecimal `gorm:"type:numeric(14,3)" json:"ajuste"`
	AjusteAnterior      decimal.NullDecimal `gorm:"type:numeric(14,3)" json:"ajuste_anterior"`
	AjusteNutricionista decimal.NullDecimal `gorm:"type:numeric(14,3)" json:"ajuste_nutricionista"`
	AjusteCoordenacao   decimal.NullDecimal `gorm:"type:numeric(14,3)" json:"ajuste_coordenacao"`
	AjusteLogistica     decimal.NullDecimal `gorm:"type:numeric(14,3)" json:"ajuste_logistica"`
	AjusteConfNutri     decimal.NullDecimal `gorm:"type:numeric(14,3)" json:"ajuste_conf_nutri"`
	AjusteConfCoord     decimal.NullDecimal `gorm:"type:numeric(14,3)" json:"ajuste_conf_coord"`

	Observacoes string `gorm:"type:text;not null;default:''" json:"observacoes"`

	Ativo                  bool `gorm:"not null;default:true" json:"ativo"`
	SubstituicaoProcessada bool `gorm:"not null;default:false" json:"substituicao_processada"`

	SoftDeleteModel
}

// TableName keeps the legacy table name.
func (Necessidade) TableName() string { return "necessidades" }

// StageValue returns the value of the given adjustment column.
func (n *Necessidade) StageValue(col StageColumn) decimal.NullDecimal {
	switch col {
	case StageAjuste:
		return n.Ajuste
	case StageNutricionista:
		return n.AjusteNutricionista
	case StageCoordenacao:
		return n.AjusteCoordenacao
	case StageLogistica:
		return n.AjusteLogistica
	case StageConfNutri:
		return n.AjusteConfNutri
	}
	return decimal.NullDecimal{}
}

// SetStageValue writes the given adjustment column.
func (n *Necessidade) SetStageValue(col StageColumn, v decimal.NullDecimal) {
	switch col {
	case StageAjuste:
		n.Ajuste = v
	case StageNutricionista:
		n.AjusteNutricionista = v
	case StageCoordenacao:
		n.AjusteCoordenacao = v
	case StageLogistica:
		n.AjusteLogistica = v
	case StageConfNutri:
		n.AjusteConfNutri = v
	}
}

// EffectiveQuantity resolves the quantity that currently stands, walking
// BackfillChain from the most recent stage back to the raw value.
func (n *Necessidade) EffectiveQuantity() decimal.NullDecimal {
	for _, col := range BackfillChain {
		if v := n.StageValue(col); v.Valid {
			return v
		}
	}
	return decimal.NullDecimal{}
}
