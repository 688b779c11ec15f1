package dto

import "github.com/shopspring/decimal"

// ── requests ──

// NeedListQuery filters the needs listing.
type NeedListQuery struct {
	PageQuery
	EscolaID            int64  `form:"escola_id"`
	ProdutoID           int64  `form:"produto_id"`
	SemanaAbastecimento string `form:"semana_abastecimento"`
	SemanaConsumo       string `form:"semana_consumo"`
	Status              string `form:"status"`
	Busca               string `form:"busca"` // product name search
}

// GerarNecessidadeItem is one product line of a new requisition.
type GerarNecessidadeItem struct {
	ProdutoID      int64           `json:"produto_id"      binding:"required"`
	ProdutoNome    string          `json:"produto_nome"    binding:"required"`
	ProdutoUnidade string          `json:"produto_unidade"`
	Quantidade     decimal.Decimal `json:"quantidade"      binding:"required"`
	Observacoes    string          `json:"observacoes"`
}

// GerarNecessidadeRequest creates the need rows of one school for one
// supply week.
type GerarNecessidadeRequest struct {
	EscolaID            int64                  `json:"escola_id"            binding:"required"`
	EscolaNome          string                 `json:"escola_nome"          binding:"required"`
	SemanaAbastecimento string                 `json:"semana_abastecimento" binding:"required"`
	SemanaConsumo       string                 `json:"semana_consumo"`
	Itens               []GerarNecessidadeItem `json:"itens"                binding:"required,min=1,dive"`
}

// AjusteItem is one quantity adjustment. Quantidade nil clears the
// current stage's value.
type AjusteItem struct {
	ID         int64            `json:"id"         binding:"required"`
	Quantidade *decimal.Decimal `json:"quantidade"`
}

// SalvarAjustesRequest writes stage adjustments for a batch of rows.
type SalvarAjustesRequest struct {
	Itens []AjusteItem `json:"itens" binding:"required,min=1,dive"`
}

// IncluirProdutoExtraRequest adds one product to an existing requisition
// after generation.
type IncluirProdutoExtraRequest struct {
	EscolaID            int64           `json:"escola_id"            binding:"required"`
	EscolaNome          string          `json:"escola_nome"`
	ProdutoID           int64           `json:"produto_id"           binding:"required"`
	ProdutoNome         string          `json:"produto_nome"         binding:"required"`
	ProdutoUnidade      string          `json:"produto_unidade"`
	Quantidade          decimal.Decimal `json:"quantidade"           binding:"required"`
	SemanaAbastecimento string          `json:"semana_abastecimento" binding:"required"`
	SemanaConsumo       string          `json:"semana_consumo"`
	Observacoes         string          `json:"observacoes"`
}

// TransitionRequest selects the rows of one bulk status transition.
// Either IDs or the (EscolaID, SemanaAbastecimento) scope must be set.
type TransitionRequest struct {
	IDs                 []int64 `json:"ids"`
	EscolaID            int64   `json:"escola_id"`
	SemanaAbastecimento string  `json:"semana_abastecimento"`
}

// ── responses ──

// NecessidadeResponse is one need row as seen by the API.
type NecessidadeResponse struct {
	ID                  int64            `json:"id"`
	NecessidadeID       string           `json:"necessidade_id"`
	EscolaID            int64            `json:"escola_id"`
	EscolaNome          string           `json:"escola_nome"`
	ProdutoID           int64            `json:"produto_id"`
	ProdutoNome         string           `json:"produto_nome"`
	ProdutoUnidade      string           `json:"produto_unidade"`
	SemanaAbastecimento string           `json:"semana_abastecimento"`
	SemanaConsumo       string           `json:"semana_consumo"`
	Status              string           `json:"status"`
	Ajuste              *decimal.Decimal `json:"ajuste,omitempty"`
	AjusteAnterior      *decimal.Decimal `json:"ajuste_anterior,omitempty"`
	AjusteNutricionista *decimal.Decimal `json:"ajuste_nutricionista,omitempty"`
	AjusteCoordenacao   *decimal.Decimal `json:"ajuste_coordenacao,omitempty"`
	AjusteLogistica     *decimal.Decimal `json:"ajuste_logistica,omitempty"`
	AjusteConfNutri     *decimal.Decimal `json:"ajuste_conf_nutri,omitempty"`
	AjusteConfCoord     *decimal.Decimal `json:"ajuste_conf_coord,omitempty"`
	QuantidadeEfetiva   *decimal.Decimal `json:"quantidade_efetiva,omitempty"`
	Observacoes         string           `json:"observacoes,omitempty"`
	CreatedAt           string           `json:"created_at"`
	UpdatedAt           string           `json:"updated_at"`
}

// SemanaResponse is one distinct week option for the filter dropdowns.
type SemanaResponse struct {
	SemanaAbastecimento string `json:"semana_abastecimento"`
	SemanaConsumo       string `json:"semana_consumo,omitempty"`
}

// StatusConsultaResponse summarizes the pipeline position of one
// school/week requisition.
type StatusConsultaResponse struct {
	EscolaID            int64  `json:"escola_id"`
	EscolaNome          string `json:"escola_nome"`
	SemanaAbastecimento string `json:"semana_abastecimento"`
	Status              string `json:"status"`
	TotalItens          int64  `json:"total_itens"`
}
