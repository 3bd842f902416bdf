// Package feed turns ordered post listings into numbered pages.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"inkwell/internal/models"
)

// DefaultPerPage is used when a Composer is built with a non-positive size.
const DefaultPerPage = 10

// Source is an ordered listing of posts that can be counted and windowed.
type Source interface {
	Count(ctx context.Context) (int64, error)
	Fetch(ctx context.Context, limit, offset int) ([]*models.Post, error)
}

// SourceFunc adapts a pair of closures to Source.
type SourceFunc struct {
	CountFunc func(ctx context.Context) (int64, error)
	FetchFunc func(ctx context.Context, limit, offset int) ([]*models.Post, error)
}

// Count implements Source.
func (s SourceFunc) Count(ctx context.Context) (int64, error) { return s.CountFunc(ctx) }

// Fetch implements Source.
func (s SourceFunc) Fetch(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.FetchFunc(ctx, limit, offset)
}

// Page is one window of a listing plus the metadata needed to navigate it.
// NextPage and PreviousPage are zero when there is no such page.
type Page struct {
	Posts        []*models.Post `json:"posts"`
	Number       int            `json:"number"`
	PerPage      int            `json:"per_page"`
	Count        int64          `json:"count"`
	NumPages     int            `json:"num_pages"`
	HasNext      bool           `json:"has_next"`
	HasPrevious  bool           `json:"has_previous"`
	NextPage     int            `json:"next_page,omitempty"`
	PreviousPage int            `json:"previous_page,omitempty"`
}

// Composer paginates sources with a fixed page size.
type Composer struct {
	PerPage int
}

// NewComposer returns a Composer with perPage posts per page.
func NewComposer(perPage int) *Composer {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return &Composer{PerPage: perPage}
}

// ParsePage reads a page query value. Anything that is not an integer
// yields page 1. Integers too large for int come back as -1 so Compose
// treats them like any other out-of-range number.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if errors.Is(err, strconv.ErrRange) {
		return -1
	}
	if err != nil {
		return 1
	}
	return n
}

// NumPages is ceil(count/perPage), never less than 1.
func NumPages(count int64, perPage int) int {
	if count <= 0 || perPage <= 0 {
		return 1
	}
	return int((count + int64(perPage) - 1) / int64(perPage))
}

// Compose builds the requested page. Numbers past either end, including zero
// and negatives, resolve to the last page.
func (c *Composer) Compose(ctx context.Context, src Source, raw string) (*Page, error) {
	perPage := c.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	count, err := src.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count feed: %w", err)
	}

	numPages := NumPages(count, perPage)
	number := ParsePage(raw)
	if number < 1 || number > numPages {
		number = numPages
	}

	posts := []*models.Post{}
	if count > 0 {
		posts, err = src.Fetch(ctx, perPage, (number-1)*perPage)
		if err != nil {
			return nil, fmt.Errorf("fetch feed page %d: %w", number, err)
		}
	}

	page := &Page{
		Posts:       posts,
		Number:      number,
		PerPage:     perPage,
		Count:       count,
		NumPages:    numPages,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}
	if page.HasNext {
		page.NextPage = number + 1
	}
	if page.HasPrevious {
		page.PreviousPage = number - 1
	}
	return page, nil
}
