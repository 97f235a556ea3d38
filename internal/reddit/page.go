package reddit

import (
	"fmt"
	"strings"
)

// Listing pages accepted in a page token.
var pages = map[string]bool{
	"hot":           true,
	"new":           true,
	"rising":        true,
	"controversial": true,
	"top":           true,
}

// sortTTL maps a listing sort to how long its items stay relevant, in seconds.
var sortTTL = map[string]int64{
	"hour":  60 * 60,
	"day":   60 * 60 * 24,
	"week":  60 * 60 * 24 * 7,
	"month": 60 * 60 * 24 * 31,
	"year":  60 * 60 * 24 * 366,
	"all":   60 * 60 * 24 * 366,
}

// DefaultTTL applies to sorts missing from the table, including no sort.
const DefaultTTL int64 = 60 * 60 * 24 * 8

// Page is a listing page and its optional time sort, e.g. top + week.
type Page struct {
	Name string
	Sort string
}

// ParsePage splits a token such as "top_week" at the first underscore.
func ParsePage(token string) (Page, error) {
	name, sort, _ := strings.Cut(strings.TrimSpace(token), "_")
	if !pages[name] {
		return Page{}, fmt.Errorf("unknown subreddit page %q", name)
	}
	return Page{Name: name, Sort: sort}, nil
}

// String renders the page the way it is logged, e.g. "top?t=week".
func (p Page) String() string {
	if p.Sort == "" {
		return p.Name
	}
	return p.Name + "?t=" + p.Sort
}

// TTL returns the staleness horizon for items from this page.
func (p Page) TTL() int64 {
	if ttl, ok := sortTTL[p.Sort]; ok {
		return ttl
	}
	return DefaultTTL
}
