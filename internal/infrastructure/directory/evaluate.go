package directory

import (
	"fmt"
	"sort"
)

// evaluate applies q to docs in memory. Documents are copied.
func evaluate(q Query, docs map[string]Fields) []Document {
	out := make([]Document, 0, len(docs))
	for id, fields := range docs {
		if !matches(q.Filters, fields) {
			continue
		}
		out = append(out, Document{ID: id, Fields: cloneFields(fields)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return less(q, out[i], out[j])
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func matches(filters []Filter, fields Fields) bool {
	for _, f := range filters {
		v, ok := fields[f.Field]
		if !ok || v == nil {
			if f.Value != nil {
				return false
			}
			continue
		}
		if fmt.Sprint(v) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

func less(q Query, a, b Document) bool {
	if q.OrderBy != "" {
		av, _ := numeric(a.Fields[q.OrderBy])
		bv, _ := numeric(b.Fields[q.OrderBy])
		if av != bv {
			if q.Desc {
				return av > bv
			}
			return av < bv
		}
	}
	if q.Desc {
		return a.ID > b.ID
	}
	return a.ID < b.ID
}

type float64er interface {
	Float64() (float64, error)
}

// numeric converts the number shapes a document may hold after decoding.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case float64er:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
