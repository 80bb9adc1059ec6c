package content

import (
	"strconv"
	"strings"
)

// EntityOptions addresses a content item and shapes the returned fields.
// ContentID and Path are mutually exclusive.
type EntityOptions struct {
	ContentID int
	Path      string
	Version   string
	Select    []string
	Expand    []string
	Metadata  MetadataFormat
	Format    ResponseFormat
}

// QueryOptions shapes a collection response.
type QueryOptions struct {
	Top            int
	Skip           int
	OrderBy        []string
	InlineCount    InlineCount
	CountOnly      bool
	AutoFilters    FilterStatus
	LifespanFilter FilterStatus
	Scenario       string
}

// paramHandler binds one well-known key to a typed field.
type paramHandler struct {
	set   func(value string) error
	reset func()
}

// paramTable maps lower-cased wire keys to handlers.
type paramTable map[string]paramHandler

// bindParameters creates a bag whose hooks consult tables in order, so the
// most-derived table listed first wins on conflicts.
func bindParameters(tables ...paramTable) *ParameterBag {
	lookup := func(key string) (paramHandler, bool) {
		k := strings.ToLower(strings.TrimSpace(key))
		for _, t := range tables {
			if h, ok := t[k]; ok {
				return h, true
			}
		}

		return paramHandler{}, false
	}

	return NewParameterBag(
		func(key, value string) (bool, error) {
			h, ok := lookup(key)
			if !ok {
				return false, nil
			}

			return true, h.set(value)
		},
		func(key string) bool {
			h, ok := lookup(key)
			if ok {
				h.reset()
			}

			return ok
		},
	)
}

func (o *EntityOptions) parameterTable() paramTable {
	return paramTable{
		ParamSelect: {
			set:   func(v string) error { o.Select = splitList(v); return nil },
			reset: func() { o.Select = nil },
		},
		ParamExpand: {
			set:   func(v string) error { o.Expand = splitList(v); return nil },
			reset: func() { o.Expand = nil },
		},
		ParamMetadata: {
			set: func(v string) error {
				m, ok := ParseMetadataFormat(v)
				if !ok {
					return enumError(ParamMetadata, v)
				}

				o.Metadata = m

				return nil
			},
			reset: func() { o.Metadata = MetadataDefault },
		},
		ParamFormat: {
			set: func(v string) error {
				f, ok := ParseResponseFormat(v)
				if !ok {
					return enumError(ParamFormat, v)
				}

				o.Format = f

				return nil
			},
			reset: func() { o.Format = FormatDefault },
		},
		ParamVersion: stringParam(&o.Version),
	}
}

func (o *QueryOptions) parameterTable() paramTable {
	return paramTable{
		ParamTop: {
			set: func(v string) error {
				n, err := parsePaging(ParamTop, v)
				if err != nil {
					return err
				}

				o.Top = n

				return nil
			},
			reset: func() { o.Top = 0 },
		},
		ParamSkip: {
			set: func(v string) error {
				n, err := parsePaging(ParamSkip, v)
				if err != nil {
					return err
				}

				o.Skip = n

				return nil
			},
			reset: func() { o.Skip = 0 },
		},
		ParamOrderBy: {
			set:   func(v string) error { o.OrderBy = splitList(v); return nil },
			reset: func() { o.OrderBy = nil },
		},
		ParamInlineCount: {
			set: func(v string) error {
				c, ok := ParseInlineCount(v)
				if !ok {
					return enumError(ParamInlineCount, v)
				}

				o.InlineCount = c

				return nil
			},
			reset: func() { o.InlineCount = InlineCountDefault },
		},
		ParamEnableAutoFilters:    filterParam(ParamEnableAutoFilters, &o.AutoFilters),
		ParamEnableLifespanFilter: filterParam(ParamEnableLifespanFilter, &o.LifespanFilter),
		ParamScenario:             stringParam(&o.Scenario),
	}
}

func (o *EntityOptions) applyTo(r *ODataRequest) {
	r.Version = o.Version
	r.Select = cloneList(o.Select)
	r.Expand = cloneList(o.Expand)
	r.Metadata = o.Metadata
	r.Format = o.Format
}

func (o *QueryOptions) applyTo(r *ODataRequest) {
	r.Top = o.Top
	r.Skip = o.Skip
	r.OrderBy = cloneList(o.OrderBy)
	r.InlineCount = o.InlineCount
	r.CountOnly = o.CountOnly
	r.AutoFilters = o.AutoFilters
	r.LifespanFilter = o.LifespanFilter
	r.Scenario = o.Scenario
}

func stringParam(dst *string) paramHandler {
	return paramHandler{
		set:   func(v string) error { *dst = v; return nil },
		reset: func() { *dst = "" },
	}
}

func filterParam(key string, dst *FilterStatus) paramHandler {
	return paramHandler{
		set: func(v string) error {
			s, ok := ParseFilterStatus(v)
			if !ok {
				return enumError(key, v)
			}

			*dst = s

			return nil
		},
		reset: func() { *dst = FilterDefault },
	}
}

func enumError(key, value string) error {
	return &ParameterError{Key: key, Value: value, Err: ErrInvalidEnumValue}
}

func parsePaging(key, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0, &ParameterError{Key: key, Value: value, Err: ErrInvalidPagingValue}
	}

	return n, nil
}

// splitList splits a comma separated list, trimming items and dropping
// empty ones.
func splitList(value string) []string {
	var out []string

	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}

func cloneList(in []string) []string {
	if len(in) == 0 {
		return nil
	}

	out := make([]string, len(in))
	copy(out, in)

	return out
}

func passThrough(bag *ParameterBag) []Parameter {
	if bag == nil || bag.Len() == 0 {
		return nil
	}

	return bag.Parameters()
}
