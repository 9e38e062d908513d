package dto

import "math"

// ErrorResponse is the body of every failed request. Kind is the machine
// readable error kind, such as "forbidden" or "invalid_transition".
type ErrorResponse struct {
	Error   string            `json:"error"`
	Kind    string            `json:"kind,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

type ListResponse struct {
	Data  interface{} `json:"data"`
	Total int         `json:"total"`
}

type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PerPage    int         `json:"per_page"`
	TotalPages int         `json:"total_pages"`
}

type PaginationParams struct {
	Page    int
	PerPage int
}

func (p *PaginationParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = 20
	}
	if p.PerPage > 100 {
		p.PerPage = 100
	}
	// Keeps Offset from overflowing.
	if maxPage := math.MaxInt / p.PerPage; p.Page > maxPage {
		p.Page = maxPage
	}
}

func (p *PaginationParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Window returns the [start, end) bounds of the current page within total
// items.
func (p *PaginationParams) Window(total int) (int, int) {
	start := p.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := start + p.PerPage
	if end > total {
		end = total
	}
	return start, end
}

// TotalPages is the number of pages total items span.
func (p *PaginationParams) TotalPages(total int) int {
	pages := total / p.PerPage
	if total%p.PerPage > 0 {
		pages++
	}
	return pages
}
