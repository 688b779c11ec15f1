package errors

import "errors"

// ErrConflict is returned when a bulk commit still hits lock contention
// after exhausting its retry budget.
var ErrConflict = errors.New("conflito de concorrência: outra operação está modificando os mesmos registros, tente novamente")

// ErrNotFound is returned when a record does not exist or is inactive.
var ErrNotFound = errors.New("registro não encontrado")
