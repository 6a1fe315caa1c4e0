package services

import (
	"sort"
	"strings"

	"github.com/vellumcms/vellum-backend/internal/types"
)

// SortField orders a result set by one payload field.
type SortField struct {
	Field      string
	Descending bool
}

// FindParams parameterize the read operations: a filter predicate,
// pagination, field projection, sort order and reference expansion.
type FindParams struct {
	Where    func(*types.Record) bool
	Skip     int
	Limit    int
	Select   []string
	Sort     []SortField
	Populate []string
}

// GetParams parameterize single-record reads.
type GetParams struct {
	Select   []string
	Populate []string
}

func applyFilter(records []*types.Record, where func(*types.Record) bool) []*types.Record {
	if where == nil {
		return records
	}
	out := records[:0:0]
	for _, r := range records {
		if where(r) {
			out = append(out, r)
		}
	}
	return out
}

func applySort(records []*types.Record, fields []SortField) {
	if len(fields) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, sf := range fields {
			cmp := compareValues(records[i].Fields[sf.Field], records[j].Fields[sf.Field])
			if cmp == 0 {
				continue
			}
			if sf.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func applyPagination(records []*types.Record, skip, limit int) []*types.Record {
	if skip > 0 {
		if skip >= len(records) {
			return nil
		}
		records = records[skip:]
	}
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}

func applySelect(record *types.Record, selected []string) {
	if len(selected) == 0 {
		return
	}
	projected := types.Fields{}
	for _, name := range selected {
		if v, ok := record.Fields[name]; ok {
			projected[name] = v
		}
	}
	record.Fields = projected
}

// compareValues gives a total order across payload values so sorting is
// deterministic even when a field is missing or of mixed kind.
func compareValues(a, b types.Value) int {
	if a.Kind != b.Kind {
		return strings.Compare(string(a.Kind), string(b.Kind))
	}
	switch a.Kind {
	case types.KindString:
		return strings.Compare(a.Str, b.Str)
	case types.KindNumber:
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		}
		return 0
	case types.KindBool:
		switch {
		case !a.Bool && b.Bool:
			return -1
		case a.Bool && !b.Bool:
			return 1
		}
		return 0
	case types.KindTime:
		switch {
		case a.Time.Before(b.Time):
			return -1
		case a.Time.After(b.Time):
			return 1
		}
		return 0
	case types.KindRef:
		return strings.Compare(a.Ref.String(), b.Ref.String())
	case types.KindList:
		for i := 0; i < len(a.List) && i < len(b.List); i++ {
			if cmp := compareValues(a.List[i], b.List[i]); cmp != 0 {
				return cmp
			}
		}
		return len(a.List) - len(b.List)
	}
	return 0
}
