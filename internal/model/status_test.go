package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNextNeedStatus(t *testing.T) {
	cases := []struct {
		from NeedStatus
		want NeedStatus
	}{
		{NeedStatusNec, NeedStatusNecNutri},
		{NeedStatusNecNutri, NeedStatusNecCoord},
		{NeedStatusNecCoord, NeedStatusConf},
		{NeedStatusConf, NeedStatusNecLog},
		{NeedStatusNecLog, NeedStatusConfNutri},
		{NeedStatusConfNutri, ""},
		{NeedStatusExcluido, ""},
	}
	for _, tc := range cases {
		if got := NextNeedStatus(tc.from); got != tc.want {
			t.Errorf("NextNeedStatus(%q) = %q, want %q", tc.from, got, tc.want)
		}
	}
}

func TestCanTransitionNeed(t *testing.T) {
	// Forward steps are legal.
	if !CanTransitionNeed(NeedStatusNec, NeedStatusNecNutri) {
		t.Error("NEC → NEC NUTRI should be legal")
	}
	// Skipping stages is not.
	if CanTransitionNeed(NeedStatusNec, NeedStatusConf) {
		t.Error("NEC → CONF should be illegal")
	}
	// Backward moves are not.
	if CanTransitionNeed(NeedStatusConf, NeedStatusNecCoord) {
		t.Error("CONF → NEC COORD should be illegal")
	}
	// Exclusion is reachable from any live stage.
	for _, s := range needPipeline {
		if !CanTransitionNeed(s, NeedStatusExcluido) {
			t.Errorf("%q → EXCLUÍDO should be legal", s)
		}
	}
	// Nothing leaves EXCLUÍDO.
	if CanTransitionNeed(NeedStatusExcluido, NeedStatusNec) {
		t.Error("EXCLUÍDO → NEC should be illegal")
	}
	if CanTransitionNeed(NeedStatusExcluido, NeedStatusExcluido) {
		t.Error("EXCLUÍDO → EXCLUÍDO should be illegal")
	}
}

func TestRoleOwnsStatus(t *testing.T) {
	cases := []struct {
		role   string
		status NeedStatus
		want   bool
	}{
		{"nutricionista", NeedStatusNecNutri, true},
		{"nutricionista", NeedStatusConfNutri, true},
		{"nutricionista", NeedStatusNecCoord, false},
		{"coordenacao", NeedStatusNecCoord, true},
		{"coordenacao", NeedStatusNecLog, false},
		{"logistica", NeedStatusNecLog, true},
		{"logistica", NeedStatusNecNutri, false},
		{"gestor", NeedStatusNecNutri, true},
		{"gestor", NeedStatusNecLog, true},
		{"gestor", NeedStatusExcluido, false},
	}
	for _, tc := range cases {
		if got := RoleOwnsStatus(tc.role, tc.status); got != tc.want {
			t.Errorf("RoleOwnsStatus(%q, %q) = %v, want %v", tc.role, tc.status, got, tc.want)
		}
	}
}

func TestCanTransitionSub(t *testing.T) {
	legal := [][2]SubstitutionStatus{
		{SubStatusConf, SubStatusConfLog},
		{SubStatusConfLog, SubStatusAprovado},
		{SubStatusConfLog, SubStatusRejeitado},
		{SubStatusConfLog, SubStatusImpressao},
		{SubStatusConf, SubStatusExcluido},
		{SubStatusRejeitado, SubStatusExcluido},
	}
	for _, p := range legal {
		if !CanTransitionSub(p[0], p[1]) {
			t.Errorf("%q → %q should be legal", p[0], p[1])
		}
	}
	illegal := [][2]SubstitutionStatus{
		{SubStatusConf, SubStatusAprovado},
		{SubStatusAprovado, SubStatusImpressao},
		{SubStatusImpressao, SubStatusAprovado},
		{SubStatusRejeitado, SubStatusAprovado},
		{SubStatusExcluido, SubStatusConf},
	}
	for _, p := range illegal {
		if CanTransitionSub(p[0], p[1]) {
			t.Errorf("%q → %q should be illegal", p[0], p[1])
		}
	}
}

func TestEffectiveQuantityPrecedence(t *testing.T) {
	d := func(s string) decimal.NullDecimal {
		return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
	}

	n := &Necessidade{Ajuste: d("10")}
	if got := n.EffectiveQuantity(); !got.Valid || !got.Decimal.Equal(decimal.RequireFromString("10")) {
		t.Errorf("EffectiveQuantity() = %v, want 10", got)
	}

	n.AjusteNutricionista = d("12")
	if got := n.EffectiveQuantity(); !got.Decimal.Equal(decimal.RequireFromString("12")) {
		t.Errorf("nutricionista should win over raw, got %v", got)
	}

	n.AjusteCoordenacao = d("8")
	n.AjusteLogistica = d("9")
	if got := n.EffectiveQuantity(); !got.Decimal.Equal(decimal.RequireFromString("9")) {
		t.Errorf("logistica should win over coordenacao, got %v", got)
	}

	n.AjusteConfNutri = d("7")
	if got := n.EffectiveQuantity(); !got.Decimal.Equal(decimal.RequireFromString("7")) {
		t.Errorf("conf nutri should win over everything, got %v", got)
	}

	empty := &Necessidade{}
	if got := empty.EffectiveQuantity(); got.Valid {
		t.Errorf("empty need should resolve to NULL, got %v", got)
	}
}
