package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/LuizNicolao/terceirize-foods-sub000/internal/dto"
	"github.com/LuizNicolao/terceirize-foods-sub000/internal/model"
	"github.com/LuizNicolao/terceirize-foods-sub000/internal/repository"
)

func setupTestSubstitutionService() (SubstitutionService, NeedService, *mockNeedRepo, *mockSubRepo, *mockCatalog) {
	needMock := newMockNeedRepo()
	subMock := newMockSubRepo()
	catalog := newMockCatalog()
	repo := repository.NewRepository(nil)
	repo.Need = needMock
	repo.Substitution = subMock
	engine := testEngine()
	runner := newTxRunner(repo, &engine, zap.NewNop())
	subSvc := NewSubstitutionService(repo, runner, catalog, &engine, zap.NewNop())
	needSvc := NewNeedService(repo, runner, &engine, zap.NewNop())
	return subSvc, needSvc, needMock, subMock, catalog
}

// seedConfirmedNeeds drives two schools' rice rows to CONF, the stage
// where substitution candidates come from.
func seedConfirmedNeeds(t *testing.T, needSvc NeedService) {
	t.Helper()
	ctx := context.Background()
	for _, escola := range []struct {
		id   int64
		nome string
	}{{10, "EMEF Central"}, {20, "EMEF Jardim"}} {
		_, err := needSvc.Gerar(ctx, &dto.GerarNecessidadeRequest{
			EscolaID:            escola.id,
			EscolaNome:          escola.nome,
			SemanaAbastecimento: "2026-W10",
			SemanaConsumo:       "2026-W11",
			Itens: []dto.GerarNecessidadeItem{
				{ProdutoID: 100, ProdutoNome: "Arroz Tipo 1", ProdutoUnidade: "kg", Quantidade: dec("10")},
				{ProdutoID: 101, ProdutoNome: "Feijão Preto", ProdutoUnidade: "kg", Quantidade: dec("5")},
			},
		}, nutricionista)
		if err != nil {
			t.Fatalf("Gerar() error = %v", err)
		}
	}
	scope := &dto.TransitionRequest{SemanaAbastecimento: "2026-W10"}
	for _, step := range []struct {
		fn     func(context.Context, *dto.TransitionRequest, Caller) (*dto.BulkResult, error)
		caller Caller
	}{
		{needSvc.IniciarAjustes, nutricionista},
		{needSvc.LiberarParaCoordenacao, nutricionista},
		{needSvc.Confirmar, coordenacao},
	} {
		if _, err := step.fn(ctx, scope, step.caller); err != nil {
			t.Fatalf("pipeline step error = %v", err)
		}
	}
}

func arrozGenerico() Generico {
	return Generico{ID: 500, Nome: "Arroz Genérico", Unidade: "fd", FatorConversao: dec("3")}
}

func TestListCandidatos(t *testing.T) {
	subSvc, needSvc, _, _, catalog := setupTestSubstitutionService()
	seedConfirmedNeeds(t, needSvc)
	catalog.addMapping(100, arrozGenerico())

	out, err := subSvc.ListCandidatos(context.Background(), "2026-W10", 0)
	if err != nil {
		t.Fatalf("ListCandidatos() error = %v", err)
	}
	// Rice resolves for both schools; beans have no generic mapping.
	if len(out.Candidatos) != 2 {
		t.Fatalf("len(Candidatos) = %d, want 2", len(out.Candidatos))
	}
	if len(out.SemGenerico) != 2 {
		t.Fatalf("len(SemGenerico) = %d, want 2", len(out.SemGenerico))
	}
	if out.TotalEscolas != 2 || out.TotalProdutos != 2 {
		t.Errorf("totals = %d escolas / %d produtos, want 2/2", out.TotalEscolas, out.TotalProdutos)
	}

	c := out.Candidatos[0]
	if c.ProdutoGenericoID == nil || *c.ProdutoGenericoID != 500 {
		t.Fatalf("ProdutoGenericoID = %v, want 500", c.ProdutoGenericoID)
	}
	// ceil(10 / 3) = 4: conversion always rounds up.
	if c.QuantidadeGenerico == nil || !c.QuantidadeGenerico.Equal(dec("4")) {
		t.Errorf("QuantidadeGenerico = %v, want 4", c.QuantidadeGenerico)
	}
}

func salvarArroz(t *testing.T, subSvc SubstitutionService, needSvc NeedService) *dto.BulkResult {
	t.Helper()
	out, err := subSvc.ListCandidatos(context.Background(), "2026-W10", 0)
	if err != nil {
		t.Fatalf("ListCandidatos() error = %v", err)
	}
	itens := make([]dto.SubstituicaoItem, 0, len(out.Candidatos))
	for _, c := range out.Candidatos {
		itens = append(itens, dto.SubstituicaoItem{
			NecessidadeRowID:  c.NecessidadeRowID,
			ProdutoGenericoID: *c.ProdutoGenericoID,
		})
	}
	res, err := subSvc.Salvar(context.Background(), &dto.SaveSubstituicaoRequest{Itens: itens}, nutricionista)
	if err != nil {
		t.Fatalf("Salvar() error = %v", err)
	}
	return res
}

func TestSalvarSubstituicao(t *testing.T) {
	subSvc, needSvc, _, subMock, catalog := setupTestSubstitutionService()
	seedConfirmedNeeds(t, needSvc)
	catalog.addMapping(100, arrozGenerico())

	res := salvarArroz(t, subSvc, needSvc)
	if res.Sucessos != 2 || res.Erros != 0 {
		t.Fatalf("Salvar() = %d/%d, want 2/0", res.Sucessos, res.Erros)
	}

	for _, row := range subMock.rows {
		if row.Status != model.SubStatusConf {
			t.Errorf("row %d status = %s, want conf", row.ID, row.Status)
		}
		if !row.QuantidadeGenerico.Equal(dec("4")) {
			t.Errorf("row %d quantidade_generico = %s, want 4", row.ID, row.QuantidadeGenerico)
		}
		if !row.FatorConversao.Equal(dec("3")) {
			t.Errorf("row %d fator = %s, want 3", row.ID, row.FatorConversao)
		}
	}

	// Saving the same candidates again hits the natural-key dedup.
	res = salvarArroz(t, subSvc, needSvc)
	if res.Sucessos != 0 || res.Erros != 2 {
		t.Fatalf("duplicated Salvar() = %d/%d, want 0/2", res.Sucessos, res.Erros)
	}
}

func TestLiberarParaAnalise(t *testing.T) {
	subSvc, needSvc, needMock, subMock, catalog := setupTestSubstitutionService()
	seedConfirmedNeeds(t, needSvc)
	catalog.addMapping(100, arrozGenerico())
	salvarArroz(t, subSvc, needSvc)

	res, err := subSvc.LiberarParaAnalise(context.Background(), &dto.LiberarAnaliseRequest{
		SemanaAbastecimento: "2026-W10",
	}, nutricionista)
	if err != nil {
		t.Fatalf("LiberarParaAnalise() error = %v", err)
	}
	if res.Sucessos != 2 {
		t.Fatalf("LiberarParaAnalise() sucessos = %d, want 2", res.Sucessos)
	}

	for _, row := range subMock.rows {
		if row.Status != model.SubStatusConfLog {
			t.Errorf("row %d status = %s, want conf log", row.ID, row.Status)
		}
	}
	// Released need rows are flagged processed and leave the candidate
	// listing.
	for _, n := range needMock.rows {
		if n.ProdutoID == 100 && !n.SubstituicaoProcessada {
			t.Errorf("need %d should be flagged processed", n.ID)
		}
	}
	out, err := subSvc.ListCandidatos(context.Background(), "2026-W10", 0)
	if err != nil {
		t.Fatalf("ListCandidatos() error = %v", err)
	}
	if len(out.Candidatos) != 0 {
		t.Errorf("processed rows still listed as candidates: %d", len(out.Candidatos))
	}
}

func arrozGrupo() dto.GrupoSubstituicao {
	return dto.GrupoSubstituicao{
		ProdutoOrigemID:     100,
		ProdutoGenericoID:   500,
		SemanaAbastecimento: "2026-W10",
		SemanaConsumo:       "2026-W11",
	}
}

func TestListAgrupadas(t *testing.T) {
	subSvc, needSvc, _, _, catalog := setupTestSubstitutionService()
	seedConfirmedNeeds(t, needSvc)
	catalog.addMapping(100, arrozGenerico())
	salvarArroz(t, subSvc, needSvc)

	groups, total, err := subSvc.ListAgrupadas(context.Background(), &dto.SubstitutionListQuery{})
	if err != nil {
		t.Fatalf("ListAgrupadas() error = %v", err)
	}
	if total != 1 || len(groups) != 1 {
		t.Fatalf("ListAgrupadas() total = %d, want 1 group", total)
	}
	g := groups[0]
	if len(g.Escolas) != 2 {
		t.Fatalf("group schools = %d, want 2", len(g.Escolas))
	}
	if !g.QuantidadeOrigemTotal.Equal(dec("20")) {
		t.Errorf("QuantidadeOrigemTotal = %s, want 20", g.QuantidadeOrigemTotal)
	}
	if !g.QuantidadeGenericoTotal.Equal(dec("8")) {
		t.Errorf("QuantidadeGenericoTotal = %s, want 8", g.QuantidadeGenericoTotal)
	}
}

func TestDecidir(t *testing.T) {
	subSvc, needSvc, _, subMock, catalog := setupTestSubstitutionService()
	seedConfirmedNeeds(t, needSvc)
	catalog.addMapping(100, arrozGenerico())
	salvarArroz(t, subSvc, needSvc)
	ctx := context.Background()

	// Deciding before release is a stage violation.
	_, err := subSvc.Decidir(ctx, &dto.DecisaoRequest{Grupo: arrozGrupo(), Aprovado: true}, coordenacao)
	if !errors.Is(err, ErrStatusSubInvalido) {
		t.Fatalf("Decidir() before release error = %v, want ErrStatusSubInvalido", err)
	}

	subSvc.LiberarParaAnalise(ctx, &dto.LiberarAnaliseRequest{SemanaAbastecimento: "2026-W10"}, nutricionista)

	// The decision belongs to coordination, not logistics.
	if _, err := subSvc.Decidir(ctx, &dto.DecisaoRequest{Grupo: arrozGrupo(), Aprovado: true}, logistica); !errors.Is(err, ErrPerfilSemPermissao) {
		t.Fatalf("Decidir() as logística error = %v, want ErrPerfilSemPermissao", err)
	}

	res, err := subSvc.Decidir(ctx, &dto.DecisaoRequest{Grupo: arrozGrupo(), Aprovado: true}, coordenacao)
	if err != nil {
		t.Fatalf("Decidir() error = %v", err)
	}
	if res.Sucessos != 2 {
		t.Fatalf("Decidir() sucessos = %d, want 2 (group moves as a unit)", res.Sucessos)
	}
	for _, row := range subMock.rows {
		if row.Status != model.SubStatusAprovado {
			t.Errorf("row %d status = %s, want aprovado", row.ID, row.Status)
		}
	}

	// aprovado closes the decision path, so the print path is gone.
	if _, err := subSvc.MarcarImpressao(ctx, arrozGrupo(), logistica); !errors.Is(err, ErrStatusSubInvalido) {
		t.Fatalf("MarcarImpressao() after aprovado error = %v, want ErrStatusSubInvalido", err)
	}
}

func TestMarcarImpressao(t *testing.T) {
	subSvc, needSvc, _, subMock, catalog := setupTestSubstitutionService()
	seedConfirmedNeeds(t, needSvc)
	catalog.addMapping(100, arrozGenerico())
	salvarArroz(t, subSvc, needSvc)
	ctx := context.Background()

	// Printing needs the released state.
	if _, err := subSvc.MarcarImpressao(ctx, arrozGrupo(), logistica); !errors.Is(err, ErrStatusSubInvalido) {
		t.Fatalf("MarcarImpressao() before release error = %v, want ErrStatusSubInvalido", err)
	}

	subSvc.LiberarParaAnalise(ctx, &dto.LiberarAnaliseRequest{SemanaAbastecimento: "2026-W10"}, nutricionista)

	res, err := subSvc.MarcarImpressao(ctx, arrozGrupo(), logistica)
	if err != nil {
		t.Fatalf("MarcarImpressao() error = %v", err)
	}
	if res.Sucessos != 2 {
		t.Fatalf("MarcarImpressao() sucessos = %d, want 2", res.Sucessos)
	}
	for _, row := range subMock.rows {
		if row.Status != model.SubStatusImpressao {
			t.Errorf("row %d status = %s, want impressao", row.ID, row.Status)
		}
	}
}

func TestTrocarEDesfazerTroca(t *testing.T) {
	subSvc, needSvc, _, subMock, catalog := setupTestSubstitutionService()
	seedConfirmedNeeds(t, needSvc)
	catalog.addMapping(100, arrozGenerico())
	salvarArroz(t, subSvc, needSvc)
	ctx := context.Background()

	// The replacement origin maps to its own generic.
	catalog.addMapping(600, Generico{ID: 700, Nome: "Arroz Genérico Parboilizado", Unidade: "fd", FatorConversao: dec("5")})

	res, err := subSvc.TrocarProduto(ctx, &dto.TrocarProdutoRequest{
		Grupo:              arrozGrupo(),
		NovoProdutoID:      600,
		NovoProdutoNome:    "Arroz Parboilizado",
		NovoProdutoUnidade: "kg",
	}, logistica)
	if err != nil {
		t.Fatalf("TrocarProduto() error = %v", err)
	}
	if res.Sucessos != 2 {
		t.Fatalf("TrocarProduto() sucessos = %d, want 2", res.Sucessos)
	}

	for _, row := range subMock.rows {
		if row.ProdutoOrigemID != 600 {
			t.Errorf("row %d origem = %d, want 600", row.ID, row.ProdutoOrigemID)
		}
		if row.ProdutoGenericoID != 700 {
			t.Errorf("row %d generic = %d, want 700 (re-resolved)", row.ID, row.ProdutoGenericoID)
		}
		// ceil(10 / 5) = 2 with the re-resolved factor.
		if !row.QuantidadeGenerico.Equal(dec("2")) {
			t.Errorf("row %d quantidade_generico = %s, want 2", row.ID, row.QuantidadeGenerico)
		}
		if !row.Trocado() || *row.ProdutoTrocadoID != 100 {
			t.Errorf("row %d should park the previous origin 100", row.ID)
		}
	}

	// A second swap over a pending one is rejected.
	grupoTrocado := dto.GrupoSubstituicao{
		ProdutoOrigemID:     600,
		ProdutoGenericoID:   700,
		SemanaAbastecimento: "2026-W10",
		SemanaConsumo:       "2026-W11",
	}
	_, err = subSvc.TrocarProduto(ctx, &dto.TrocarProdutoRequest{
		Grupo:           grupoTrocado,
		NovoProdutoID:   800,
		NovoProdutoNome: "Arroz Integral",
	}, logistica)
	if !errors.Is(err, ErrTrocaPendente) {
		t.Fatalf("second swap error = %v, want ErrTrocaPendente", err)
	}

	// Undo restores origin, factor and quantity exactly.
	res, err = subSvc.DesfazerTroca(ctx, &dto.DesfazerTrocaRequest{Grupo: grupoTrocado}, logistica)
	if err != nil {
		t.Fatalf("DesfazerTroca() error = %v", err)
	}
	if res.Sucessos != 2 {
		t.Fatalf("DesfazerTroca() sucessos = %d, want 2", res.Sucessos)
	}
	for _, row := range subMock.rows {
		if row.ProdutoOrigemID != 100 || row.Trocado() {
			t.Errorf("row %d not fully restored: origem=%d trocado=%v", row.ID, row.ProdutoOrigemID, row.Trocado())
		}
		if row.ProdutoGenericoID != 500 {
			t.Errorf("row %d generic = %d, want 500 (re-resolved)", row.ID, row.ProdutoGenericoID)
		}
		if !row.FatorConversao.Equal(dec("3")) || !row.QuantidadeGenerico.Equal(dec("4")) {
			t.Errorf("row %d fator/quantidade = %s/%s, want 3/4", row.ID, row.FatorConversao, row.QuantidadeGenerico)
		}
	}

	// Undo without a pending swap is rejected.
	_, err = subSvc.DesfazerTroca(ctx, &dto.DesfazerTrocaRequest{Grupo: arrozGrupo()}, logistica)
	if !errors.Is(err, ErrSemTrocaParaDesfazer) {
		t.Fatalf("undo without swap error = %v, want ErrSemTrocaParaDesfazer", err)
	}
}

func TestTrocarProdutoSemGenerico(t *testing.T) {
	subSvc, needSvc, _, subMock, catalog := setupTestSubstitutionService()
	seedConfirmedNeeds(t, needSvc)
	catalog.addMapping(100, arrozGenerico())
	salvarArroz(t, subSvc, needSvc)
	ctx := context.Background()

	// Origin 900 has no default generic: the swap keeps the current
	// generic fields and only exchanges the origin snapshot.
	res, err := subSvc.TrocarProduto(ctx, &dto.TrocarProdutoRequest{
		Grupo:           arrozGrupo(),
		NovoProdutoID:   900,
		NovoProdutoNome: "Arroz Agulhinha",
	}, logistica)
	if err != nil {
		t.Fatalf("TrocarProduto() error = %v", err)
	}
	if res.Sucessos != 2 {
		t.Fatalf("TrocarProduto() sucessos = %d, want 2", res.Sucessos)
	}
	for _, row := range subMock.rows {
		if row.ProdutoOrigemID != 900 {
			t.Errorf("row %d origem = %d, want 900", row.ID, row.ProdutoOrigemID)
		}
		if row.ProdutoGenericoID != 500 || !row.FatorConversao.Equal(dec("3")) {
			t.Errorf("row %d generic fields must stay untouched without a mapping", row.ID)
		}
	}
}

func feijaoGenerico() Generico {
	return Generico{ID: 510, Nome: "Feijão Genérico", Unidade: "fd", FatorConversao: dec("2")}
}

func feijaoGrupo() dto.GrupoSubstituicao {
	return dto.GrupoSubstituicao{
		ProdutoOrigemID:     101,
		ProdutoGenericoID:   510,
		SemanaAbastecimento: "2026-W10",
		SemanaConsumo:       "2026-W11",
	}
}

func TestTrocarProdutoChaveOcupada(t *testing.T) {
	subSvc, needSvc, _, subMock, catalog := setupTestSubstitutionService()
	seedConfirmedNeeds(t, needSvc)
	catalog.addMapping(100, arrozGenerico())
	catalog.addMapping(101, feijaoGenerico())
	// Both products map, so this saves the rice and bean groups.
	salvarArroz(t, subSvc, needSvc)
	ctx := context.Background()

	// Swapping the bean group onto origin 100 would collide with the
	// active rice rows of the same schools and week.
	_, err := subSvc.TrocarProduto(ctx, &dto.TrocarProdutoRequest{
		Grupo:           feijaoGrupo(),
		NovoProdutoID:   100,
		NovoProdutoNome: "Arroz Tipo 1",
	}, logistica)
	if !errors.Is(err, ErrSubstituicaoDuplicada) {
		t.Fatalf("TrocarProduto() onto occupied key error = %v, want ErrSubstituicaoDuplicada", err)
	}

	porOrigem := map[int64]int{}
	for _, row := range subMock.rows {
		if row.Trocado() {
			t.Errorf("row %d swapped despite the rejected exchange", row.ID)
		}
		if row.Ativo {
			porOrigem[row.ProdutoOrigemID]++
		}
	}
	if porOrigem[100] != 2 || porOrigem[101] != 2 {
		t.Errorf("active rows per origin = %v, want 2 each for 100 and 101", porOrigem)
	}
}

func TestReativarChaveOcupada(t *testing.T) {
	subSvc, needSvc, _, subMock, catalog := setupTestSubstitutionService()
	seedConfirmedNeeds(t, needSvc)
	catalog.addMapping(100, arrozGenerico())
	catalog.addMapping(101, feijaoGenerico())
	salvarArroz(t, subSvc, needSvc)
	ctx := context.Background()

	var arrozIDs []int64
	for id, row := range subMock.rows {
		if row.ProdutoOrigemID == 100 {
			arrozIDs = append(arrozIDs, id)
		}
	}
	if _, err := subSvc.Excluir(ctx, arrozIDs, nutricionista); err != nil {
		t.Fatalf("Excluir() error = %v", err)
	}

	// With the rice rows tombstoned their key is free, so the bean
	// group can take origin 100.
	res, err := subSvc.TrocarProduto(ctx, &dto.TrocarProdutoRequest{
		Grupo:           feijaoGrupo(),
		NovoProdutoID:   100,
		NovoProdutoNome: "Arroz Tipo 1",
	}, logistica)
	if err != nil {
		t.Fatalf("TrocarProduto() onto freed key error = %v", err)
	}
	if res.Sucessos != 2 {
		t.Fatalf("TrocarProduto() sucessos = %d, want 2", res.Sucessos)
	}

	// Reviving the tombstone now would stand up a second active row
	// for the occupied key.
	if err := subSvc.Reativar(ctx, arrozIDs[0], nutricionista); !errors.Is(err, ErrSubstituicaoDuplicada) {
		t.Fatalf("Reativar() over occupied key error = %v, want ErrSubstituicaoDuplicada", err)
	}
	if row := subMock.rows[arrozIDs[0]]; row.Ativo {
		t.Errorf("tombstone %d revived despite the occupied key", row.ID)
	}

	if err := subSvc.Reativar(ctx, 9999, nutricionista); !errors.Is(err, ErrSubstituicaoNaoEncontrada) {
		t.Fatalf("Reativar() unknown id error = %v, want ErrSubstituicaoNaoEncontrada", err)
	}
}

func TestLiberarParaAnaliseSemanaConsumo(t *testing.T) {
	subSvc, needSvc, _, subMock, catalog := setupTestSubstitutionService()
	seedConfirmedNeeds(t, needSvc)
	ctx := context.Background()

	// A third school consumes in the following week out of the same
	// supply week.
	_, err := needSvc.Gerar(ctx, &dto.GerarNecessidadeRequest{
		EscolaID:            30,
		EscolaNome:          "EMEF Lagoa",
		SemanaAbastecimento: "2026-W10",
		SemanaConsumo:       "2026-W12",
		Itens: []dto.GerarNecessidadeItem{
			{ProdutoID: 100, ProdutoNome: "Arroz Tipo 1", ProdutoUnidade: "kg", Quantidade: dec("6")},
		},
	}, nutricionista)
	if err != nil {
		t.Fatalf("Gerar() error = %v", err)
	}
	scope := &dto.TransitionRequest{EscolaID: 30, SemanaAbastecimento: "2026-W10"}
	for _, step := range []struct {
		fn     func(context.Context, *dto.TransitionRequest, Caller) (*dto.BulkResult, error)
		caller Caller
	}{
		{needSvc.IniciarAjustes, nutricionista},
		{needSvc.LiberarParaCoordenacao, nutricionista},
		{needSvc.Confirmar, coordenacao},
	} {
		if _, err := step.fn(ctx, scope, step.caller); err != nil {
			t.Fatalf("pipeline step error = %v", err)
		}
	}

	catalog.addMapping(100, arrozGenerico())
	salvarArroz(t, subSvc, needSvc)

	res, err := subSvc.LiberarParaAnalise(ctx, &dto.LiberarAnaliseRequest{
		SemanaAbastecimento: "2026-W10",
		SemanaConsumo:       "2026-W11",
	}, nutricionista)
	if err != nil {
		t.Fatalf("LiberarParaAnalise() error = %v", err)
	}
	if res.Sucessos != 2 {
		t.Fatalf("LiberarParaAnalise() sucessos = %d, want 2 (only the requested consumption week)", res.Sucessos)
	}
	for _, row := range subMock.rows {
		want := model.SubStatusConfLog
		if row.SemanaConsumo == "2026-W12" {
			want = model.SubStatusConf
		}
		if row.Status != want {
			t.Errorf("row %d (consumo %s) status = %s, want %s", row.ID, row.SemanaConsumo, row.Status, want)
		}
	}
}

func TestExcluirEReativarSubstituicao(t *testing.T) {
	subSvc, needSvc, needMock, subMock, catalog := setupTestSubstitutionService()
	seedConfirmedNeeds(t, needSvc)
	catalog.addMapping(100, arrozGenerico())
	salvarArroz(t, subSvc, needSvc)
	ctx := context.Background()

	ids := make([]int64, 0, len(subMock.rows))
	for id := range subMock.rows {
		ids = append(ids, id)
	}
	res, err := subSvc.Excluir(ctx, ids, nutricionista)
	if err != nil {
		t.Fatalf("Excluir() error = %v", err)
	}
	if res.Sucessos != 2 {
		t.Fatalf("Excluir() sucessos = %d, want 2", res.Sucessos)
	}

	// The tombstoned pairing is no longer offered as a candidate.
	out, err := subSvc.ListCandidatos(ctx, "2026-W10", 0)
	if err != nil {
		t.Fatalf("ListCandidatos() error = %v", err)
	}
	for _, c := range out.Candidatos {
		if c.ProdutoOrigemID == 100 {
			t.Errorf("tombstoned key still offered as candidate (escola %d)", c.EscolaID)
		}
	}

	// The tombstone also blocks a fresh save for the same key.
	itens := make([]dto.SubstituicaoItem, 0, 2)
	for _, n := range needMock.rows {
		if n.ProdutoID == 100 && n.Ativo {
			itens = append(itens, dto.SubstituicaoItem{NecessidadeRowID: n.ID, ProdutoGenericoID: 500})
		}
	}
	saved, err := subSvc.Salvar(ctx, &dto.SaveSubstituicaoRequest{Itens: itens}, nutricionista)
	if err != nil {
		t.Fatalf("Salvar() error = %v", err)
	}
	if saved.Sucessos != 0 || saved.Erros != 2 {
		t.Fatalf("Salvar() over tombstone = %d/%d, want 0/2", saved.Sucessos, saved.Erros)
	}

	// Explicit reactivation revives the row at the entry stage.
	if err := subSvc.Reativar(ctx, ids[0], nutricionista); err != nil {
		t.Fatalf("Reativar() error = %v", err)
	}
	row := subMock.rows[ids[0]]
	if !row.Ativo || row.Status != model.SubStatusConf {
		t.Errorf("revived row = ativo %v status %s, want ativo conf", row.Ativo, row.Status)
	}
}

func TestSalvarPermissao(t *testing.T) {
	subSvc, _, _, _, _ := setupTestSubstitutionService()
	_, err := subSvc.Salvar(context.Background(), &dto.SaveSubstituicaoRequest{
		Itens: []dto.SubstituicaoItem{{NecessidadeRowID: 1, ProdutoGenericoID: 500}},
	}, logistica)
	if !errors.Is(err, ErrPerfilSemPermissao) {
		t.Fatalf("Salvar() by logistica error = %v, want ErrPerfilSemPermissao", err)
	}
}
