package common

import (
	"math"
	"strconv"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

type PaginationResult struct {
	Message     string      `json:"message"`
	Data        interface{} `json:"data"`
	Count       int64       `json:"count"`
	CurrentPage int         `json:"currentPage"`
	NextPage    int         `json:"nextPage"`
	PrevPage    int         `json:"prevPage"`
	LastPage    int         `json:"lastPage"`
}

// Page is a normalised page/limit pair.
type Page struct {
	Number int
	Limit  int
}

// ParsePage reads raw query values, falling back to page 1 and the default limit.
func ParsePage(rawPage, rawLimit string) Page {
	p := Page{Number: 1, Limit: DefaultPageLimit}
	if n, err := strconv.Atoi(rawPage); err == nil && n > 0 {
		p.Number = n
	}
	if l, err := strconv.Atoi(rawLimit); err == nil && l > 0 {
		p.Limit = l
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// PaginateResponse wraps one page of data. message defaults to "success".
func PaginateResponse(data interface{}, total int64, page Page, message string) PaginationResult {
	if message == "" {
		message = "success"
	}

	lastPage := 0
	if page.Limit > 0 {
		lastPage = int(math.Ceil(float64(total) / float64(page.Limit)))
	}

	nextPage := page.Number + 1
	if nextPage > lastPage {
		nextPage = 0
	}

	prevPage := page.Number - 1
	if prevPage < 1 {
		prevPage = 0
	}

	return PaginationResult{
		Message:     message,
		Data:        data,
		Count:       total,
		CurrentPage: page.Number,
		NextPage:    nextPage,
		PrevPage:    prevPage,
		LastPage:    lastPage,
	}
}
