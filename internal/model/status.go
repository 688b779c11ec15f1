package model

// ════════════════════════════════════════════════════════════════════
// Need pipeline
// ════════════════════════════════════════════════════════════════════

// NeedStatus is one stop of the needs pipeline:
//
//	NEC → NEC NUTRI → NEC COORD → CONF → NEC LOG → CONF NUTRI
//
// EXCLUÍDO is terminal and reachable from any stage.
type NeedStatus string

const (
	NeedStatusNec       NeedStatus = "NEC"
	NeedStatusNecNutri  NeedStatus = "NEC NUTRI"
	NeedStatusNecCoord  NeedStatus = "NEC COORD"
	NeedStatusConf      NeedStatus = "CONF"
	NeedStatusNecLog    NeedStatus = "NEC LOG"
	NeedStatusConfNutri NeedStatus = "CONF NUTRI"
	NeedStatusExcluido  NeedStatus = "EXCLUÍDO"
)

// needPipeline lists the forward stages in order.
var needPipeline = []NeedStatus{
	NeedStatusNec,
	NeedStatusNecNutri,
	NeedStatusNecCoord,
	NeedStatusConf,
	NeedStatusNecLog,
	NeedStatusConfNutri,
}

// NextNeedStatus returns the stage that follows from, or "" when from
// is terminal or unknown.
func NextNeedStatus(from NeedStatus) NeedStatus {
	for i, s := range needPipeline {
		if s == from && i+1 < len(needPipeline) {
			return needPipeline[i+1]
		}
	}
	return ""
}

// CanTransitionNeed reports whether from → to is a legal move. Legal
// moves are the single forward step and exclusion from any live stage.
func CanTransitionNeed(from, to NeedStatus) bool {
	if from == NeedStatusExcluido {
		return false
	}
	if to == NeedStatusExcluido {
		return from.Valid()
	}
	return NextNeedStatus(from) == to
}

// Valid reports whether s is a known live pipeline stage.
func (s NeedStatus) Valid() bool {
	for _, p := range needPipeline {
		if p == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s NeedStatus) Terminal() bool {
	return s == NeedStatusExcluido || s == NeedStatusConfNutri
}

// ════════════════════════════════════════════════════════════════════
// Adjustment stages
// ════════════════════════════════════════════════════════════════════

// StageColumn names one of the per-stage adjustment columns.
type StageColumn string

const (
	StageAjuste        StageColumn = "ajuste"
	StageNutricionista StageColumn = "ajuste_nutricionista"
	StageCoordenacao   StageColumn = "ajuste_coordenacao"
	StageLogistica     StageColumn = "ajuste_logistica"
	StageConfNutri     StageColumn = "ajuste_conf_nutri"
)

// BackfillChain is the precedence order used to resolve the effective
// quantity of a need: the most recent stage that holds a value wins.
var BackfillChain = []StageColumn{
	StageConfNutri,
	StageLogistica,
	StageCoordenacao,
	StageNutricionista,
	StageAjuste,
}

// stageByStatus maps each pipeline stage to the adjustment column its
// owner may write while the need sits in that stage.
var stageByStatus = map[NeedStatus]StageColumn{
	NeedStatusNec:       StageAjuste,
	NeedStatusNecNutri:  StageNutricionista,
	NeedStatusNecCoord:  StageCoordenacao,
	NeedStatusNecLog:    StageLogistica,
	NeedStatusConfNutri: StageConfNutri,
}

// StageForStatus returns the writable adjustment column for a stage,
// or "" when the stage accepts no adjustments (CONF, EXCLUÍDO).
func StageForStatus(s NeedStatus) StageColumn {
	return stageByStatus[s]
}

// statusesByRole maps a user profile to the stages it owns.
var statusesByRole = map[string][]NeedStatus{
	"nutricionista": {NeedStatusNec, NeedStatusNecNutri, NeedStatusConfNutri},
	"coordenacao":   {NeedStatusNecCoord},
	"logistica":     {NeedStatusNecLog},
}

// RoleOwnsStatus reports whether the given user profile may adjust
// needs sitting in the given stage. Gestor owns every live stage.
func RoleOwnsStatus(role string, s NeedStatus) bool {
	if role == "gestor" {
		return s.Valid()
	}
	for _, owned := range statusesByRole[role] {
		if owned == s {
			return true
		}
	}
	return false
}

// ════════════════════════════════════════════════════════════════════
// Substitution pipeline
// ════════════════════════════════════════════════════════════════════

// SubstitutionStatus is one stop of the substitution pipeline:
//
//	conf → conf log → impressao
//	              ├──→ aprovado
//	              └──→ rejeitado
//
// impressao closes the normal print path; aprovado and rejeitado close
// the coordination-decision path. EXCLUÍDO is terminal and reachable
// from any stage.
type SubstitutionStatus string

const (
	SubStatusConf      SubstitutionStatus = "conf"
	SubStatusConfLog   SubstitutionStatus = "conf log"
	SubStatusAprovado  SubstitutionStatus = "aprovado"
	SubStatusRejeitado SubstitutionStatus = "rejeitado"
	SubStatusImpressao SubstitutionStatus = "impressao"
	SubStatusExcluido  SubstitutionStatus = "EXCLUÍDO"
)

var subTransitions = map[SubstitutionStatus][]SubstitutionStatus{
	SubStatusConf:    {SubStatusConfLog},
	SubStatusConfLog: {SubStatusImpressao, SubStatusAprovado, SubStatusRejeitado},
}

// CanTransitionSub reports whether from → to is a legal move in the
// substitution pipeline.
func CanTransitionSub(from, to SubstitutionStatus) bool {
	if from == SubStatusExcluido {
		return false
	}
	if to == SubStatusExcluido {
		return true
	}
	for _, next := range subTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
