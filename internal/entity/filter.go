package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortSpec orders a list by one column.
type SortSpec struct {
	ColumnID  string        `json:"columnId"`
	Direction SortDirection `json:"direction"`
}

// Query is the entity-independent part of a list request.
type Query struct {
	Page    int
	Limit   int
	Search  string
	Sorting []SortSpec
}

// Filter is implemented by the per-entity filter structs. Fields adds the
// entity-specific keys to the wire request.
type Filter interface {
	Validate() error
	Fields() map[string]any
}

type UserFilter struct {
	Role     Role     `hash:"role"`
	Position Position `hash:"position"`
}

func (f UserFilter) Validate() error {
	if f.Role != "" && !validRole(f.Role) {
		return fmt.Errorf("unknown role %q", f.Role)
	}
	if f.Position != "" && !validPosition(f.Position) {
		return fmt.Errorf("unknown position %q", f.Position)
	}
	return nil
}

func (f UserFilter) Fields() map[string]any {
	out := map[string]any{}
	if f.Role != "" {
		out["role"] = string(f.Role)
	}
	if f.Position != "" {
		out["position"] = string(f.Position)
	}
	return out
}

type ProjectFilter struct {
	Name string `hash:"name"`
	URL  string `hash:"url"`
}

func (f ProjectFilter) Validate() error { return nil }

func (f ProjectFilter) Fields() map[string]any {
	out := map[string]any{}
	if v := strings.TrimSpace(f.Name); v != "" {
		out["name"] = v
	}
	if v := strings.TrimSpace(f.URL); v != "" {
		out["url"] = v
	}
	return out
}

// AgentFilter narrows agents by creation date (YYYY-MM-DD, inclusive).
type AgentFilter struct {
	FromDate string `hash:"from_date"`
	ToDate   string `hash:"to_date"`
}

func (f AgentFilter) Validate() error {
	from, err := parseOptionalDate("from_date", f.FromDate)
	if err != nil {
		return err
	}
	to, err := parseOptionalDate("to_date", f.ToDate)
	if err != nil {
		return err
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return errors.New("from_date must not be after to_date")
	}
	return nil
}

func (f AgentFilter) Fields() map[string]any {
	out := map[string]any{}
	if v := strings.TrimSpace(f.FromDate); v != "" {
		out["from_date"] = v
	}
	if v := strings.TrimSpace(f.ToDate); v != "" {
		out["to_date"] = v
	}
	return out
}

// ListRequest builds the wire body of a list call: the pagination keys plus
// the filter's own fields. Only the first sort spec is sent; the API sorts by
// a single column.
func ListRequest(q Query, f Filter) (map[string]any, error) {
	if q.Page < 1 {
		return nil, fmt.Errorf("page must be >= 1, got %d", q.Page)
	}
	if q.Limit < 1 {
		return nil, fmt.Errorf("limit must be >= 1, got %d", q.Limit)
	}
	body := map[string]any{
		"page":  q.Page,
		"limit": q.Limit,
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		body["search"] = s
	}
	if len(q.Sorting) > 0 && q.Sorting[0].ColumnID != "" {
		dir := q.Sorting[0].Direction
		if dir != SortDesc {
			dir = SortAsc
		}
		body["sort_by"] = q.Sorting[0].ColumnID
		body["sort_order"] = string(dir)
	}
	if f != nil {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("invalid filter: %w", err)
		}
		for k, v := range f.Fields() {
			body[k] = v
		}
	}
	return body, nil
}

const DateLayout = "2006-01-02"

func parseOptionalDate(field, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: expected YYYY-MM-DD, got %q", field, v)
	}
	return t, nil
}

func validRole(r Role) bool {
	for _, x := range Roles {
		if x == r {
			return true
		}
	}
	return false
}

func validPosition(p Position) bool {
	for _, x := range Positions {
		if x == p {
			return true
		}
	}
	return false
}
