package dto

import "github.com/shopspring/decimal"

// ── requests ──

// SubstitutionListQuery filters the substitution listing and the
// grouped analysis views.
type SubstitutionListQuery struct {
	PageQuery
	EscolaID            int64  `form:"escola_id"`
	ProdutoOrigemID     int64  `form:"produto_origem_id"`
	ProdutoGenericoID   int64  `form:"produto_generico_id"`
	SemanaAbastecimento string `form:"semana_abastecimento"`
	SemanaConsumo       string `form:"semana_consumo"`
	Status              string `form:"status"`
}

// SubstituicaoItem is one school row of a substitution save: the origin
// product of that school replaced by the given generic product.
type SubstituicaoItem struct {
	NecessidadeRowID  int64           `json:"necessidade_row_id" binding:"required"`
	ProdutoGenericoID int64           `json:"produto_generico_id" binding:"required"`
	FatorConversao    decimal.Decimal `json:"fator_conversao"`
}

// SaveSubstituicaoRequest persists substitution rows. Items are
// processed independently; the response reports partial success.
type SaveSubstituicaoRequest struct {
	Itens []SubstituicaoItem `json:"itens" binding:"required,min=1,dive"`
}

// GrupoSubstituicao identifies one grouped substitution as shown by the
// analysis views.
type GrupoSubstituicao struct {
	ProdutoOrigemID     int64  `json:"produto_origem_id"     binding:"required"`
	ProdutoGenericoID   int64  `json:"produto_generico_id"   binding:"required"`
	SemanaAbastecimento string `json:"semana_abastecimento"  binding:"required"`
	SemanaConsumo       string `json:"semana_consumo"`
}

// LiberarAnaliseRequest releases a supply week's substitutions for
// logistics analysis. SemanaConsumo and ProdutoOrigemID narrow the
// release when set; a supply week can feed more than one consumption
// week.
type LiberarAnaliseRequest struct {
	SemanaAbastecimento string `json:"semana_abastecimento" binding:"required"`
	SemanaConsumo       string `json:"semana_consumo"`
	ProdutoOrigemID     int64  `json:"produto_origem_id"`
}

// TrocarProdutoRequest exchanges the origin product of one grouped
// substitution for another. The default generic mapping of the new
// origin is re-resolved; NovoFatorConversao overrides its factor when
// positive.
type TrocarProdutoRequest struct {
	Grupo              GrupoSubstituicao `json:"grupo"                 binding:"required"`
	NovoProdutoID      int64             `json:"novo_produto_id"       binding:"required"`
	NovoProdutoNome    string            `json:"novo_produto_nome"     binding:"required"`
	NovoProdutoUnidade string            `json:"novo_produto_unidade"`
	NovoFatorConversao decimal.Decimal   `json:"novo_fator_conversao"`
}

// DesfazerTrocaRequest reverses a previous product exchange.
type DesfazerTrocaRequest struct {
	Grupo GrupoSubstituicao `json:"grupo" binding:"required"`
}

// DecisaoRequest approves or rejects a grouped substitution under
// analysis.
type DecisaoRequest struct {
	Grupo    GrupoSubstituicao `json:"grupo"    binding:"required"`
	Aprovado bool              `json:"aprovado"`
}

// ── responses ──

// EscolaSubstituicao is one school line inside a grouped substitution.
type EscolaSubstituicao struct {
	ID                 int64           `json:"id"`
	EscolaID           int64           `json:"escola_id"`
	EscolaNome         string          `json:"escola_nome"`
	QuantidadeOrigem   decimal.Decimal `json:"quantidade_origem"`
	QuantidadeGenerico decimal.Decimal `json:"quantidade_generico"`
	Status             string          `json:"status"`
}

// GrupoSubstituicaoResponse is one grouped substitution: every school
// that substitutes the same origin product with the same generic
// product in the same weeks.
type GrupoSubstituicaoResponse struct {
	ProdutoOrigemID         int64                `json:"produto_origem_id"`
	ProdutoOrigemNome       string               `json:"produto_origem_nome"`
	ProdutoOrigemUnidade    string               `json:"produto_origem_unidade"`
	ProdutoGenericoID       int64                `json:"produto_generico_id"`
	ProdutoGenericoNome     string               `json:"produto_generico_nome"`
	ProdutoGenericoUnidade  string               `json:"produto_generico_unidade"`
	FatorConversao          decimal.Decimal      `json:"fator_conversao"`
	SemanaAbastecimento     string               `json:"semana_abastecimento"`
	SemanaConsumo           string               `json:"semana_consumo"`
	Status                  string               `json:"status"`
	Trocado                 bool                 `json:"trocado"`
	QuantidadeOrigemTotal   decimal.Decimal      `json:"quantidade_origem_total"`
	QuantidadeGenericoTotal decimal.Decimal      `json:"quantidade_generico_total"`
	Escolas                 []EscolaSubstituicao `json:"escolas"`
}

// CandidatoResponse is one need row eligible for substitution plus the
// generic product resolved from the catalog, when one exists.
type CandidatoResponse struct {
	NecessidadeRowID       int64            `json:"necessidade_row_id"`
	EscolaID               int64            `json:"escola_id"`
	EscolaNome             string           `json:"escola_nome"`
	ProdutoOrigemID        int64            `json:"produto_origem_id"`
	ProdutoOrigemNome      string           `json:"produto_origem_nome"`
	ProdutoOrigemUnidade   string           `json:"produto_origem_unidade"`
	QuantidadeOrigem       decimal.Decimal  `json:"quantidade_origem"`
	SemanaAbastecimento    string           `json:"semana_abastecimento"`
	SemanaConsumo          string           `json:"semana_consumo"`
	ProdutoGenericoID      *int64           `json:"produto_generico_id,omitempty"`
	ProdutoGenericoNome    *string          `json:"produto_generico_nome,omitempty"`
	ProdutoGenericoUnidade *string          `json:"produto_generico_unidade,omitempty"`
	FatorConversao         *decimal.Decimal `json:"fator_conversao,omitempty"`
	QuantidadeGenerico     *decimal.Decimal `json:"quantidade_generico,omitempty"`
}

// CandidatosResponse splits candidates into resolved and unresolved:
// rows whose origin product has no generic mapping stay listed so the
// nutritionist can see what is missing.
type CandidatosResponse struct {
	Candidatos    []CandidatoResponse `json:"candidatos"`
	SemGenerico   []CandidatoResponse `json:"sem_generico,omitempty"`
	TotalEscolas  int                 `json:"total_escolas"`
	TotalProdutos int                 `json:"total_produtos"`
}
