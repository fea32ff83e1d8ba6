// Package pagination normalizes the paging and ordering inputs of list actions.
package pagination

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PageSizeConfig configures page size normalization.
type PageSizeConfig struct {
	Default int
	Max     int
}

// SortConfig configures sort validation.
type SortConfig struct {
	Default string
	Allowed []string
}

// Config bundles the list normalization rules for one bindable.
type Config struct {
	PageSize PageSizeConfig
	Sort     SortConfig
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ListQuery is the normalized form of a list payload.
type ListQuery struct {
	Page      int
	PerPage   int
	Query     string
	Status    string
	Sort      string
	Direction Direction
	Filter    string
}

// Offset returns the zero-based row offset for the page.
func (q ListQuery) Offset() int {
	if q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.PerPage
}

// ClampPageSize applies defaults and limits for page sizes.
func ClampPageSize(value int, cfg PageSizeConfig) int {
	pageSize := value
	if pageSize <= 0 {
		pageSize = cfg.Default
	}
	if cfg.Max > 0 && pageSize > cfg.Max {
		pageSize = cfg.Max
	}
	if pageSize <= 0 {
		pageSize = 1
	}
	return pageSize
}

// NormalizeSort validates a sort key and applies defaults.
func NormalizeSort(sort string, cfg SortConfig) (string, error) {
	sort = strings.TrimSpace(sort)
	if sort == "" {
		return cfg.Default, nil
	}
	for _, allowed := range cfg.Allowed {
		if sort == allowed {
			return sort, nil
		}
	}
	return "", fmt.Errorf("invalid sort: %s", sort)
}

// NormalizeDirection maps direction input to asc or desc, defaulting to asc.
func NormalizeDirection(direction string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "", string(Asc):
		return Asc, nil
	case string(Desc):
		return Desc, nil
	default:
		return "", fmt.Errorf("invalid direction: %s", direction)
	}
}

// ParseListQuery reads page, per_page, q, status, sort, direction and filter
// from a list payload. Values may arrive as strings (query strings) or as
// JSON numbers.
func ParseListQuery(payload map[string]any, cfg Config) (ListQuery, error) {
	page, err := intValue(payload, "page")
	if err != nil {
		return ListQuery{}, err
	}
	perPage, err := intValue(payload, "per_page")
	if err != nil {
		return ListQuery{}, err
	}
	sort, err := NormalizeSort(stringValue(payload, "sort"), cfg.Sort)
	if err != nil {
		return ListQuery{}, err
	}
	direction, err := NormalizeDirection(stringValue(payload, "direction"))
	if err != nil {
		return ListQuery{}, err
	}
	if page <= 0 {
		page = 1
	}
	return ListQuery{
		Page:      page,
		PerPage:   ClampPageSize(perPage, cfg.PageSize),
		Query:     stringValue(payload, "q"),
		Status:    stringValue(payload, "status"),
		Sort:      sort,
		Direction: direction,
		Filter:    stringValue(payload, "filter"),
	}, nil
}

func stringValue(payload map[string]any, key string) string {
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

func intValue(payload map[string]any, key string) (int, error) {
	switch v := payload[key].(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("invalid %s: %v", key, v)
		}
		return int(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %q", key, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("invalid %s: %T", key, v)
	}
}
