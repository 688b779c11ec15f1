package dto

// PageQuery carries the pagination parameters of list endpoints.
type PageQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// Normalize clamps the pagination parameters to sane values.
func (q *PageQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.PageSize > 200 {
		q.PageSize = 200
	}
}

// Offset returns the row offset for the current page.
func (q *PageQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// ErroDetalhado describes one failed item of a bulk operation.
type ErroDetalhado struct {
	ID     int64  `json:"id,omitempty"`
	Escola string `json:"escola,omitempty"`
	Motivo string `json:"motivo"`
}

// BulkResult is the partial-success accounting of bulk operations.
type BulkResult struct {
	Sucessos        int             `json:"sucessos"`
	Erros           int             `json:"erros"`
	ErrosDetalhados []ErroDetalhado `json:"erros_detalhados,omitempty"`
}
