package content

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/sncontent/internal/constants"
)

// Wire names of the well-known query parameters.
const (
	ParamTop                  = "$top"
	ParamSkip                 = "$skip"
	ParamFilter               = "$filter"
	ParamOrderBy              = "$orderby"
	ParamSelect               = "$select"
	ParamExpand               = "$expand"
	ParamInlineCount          = "$inlinecount"
	ParamFormat               = "$format"
	ParamMetadata             = "metadata"
	ParamVersion              = "version"
	ParamEnableAutoFilters    = "enableautofilters"
	ParamEnableLifespanFilter = "enablelifespanfilter"
	ParamQuery                = "query"
	ParamScenario             = "scenario"
)

// ODataRequest fully describes one outbound call, independent of the typed
// request that produced it. Exactly one of ContentID and Path addresses the
// target; IsCollectionRequest is always set explicitly.
type ODataRequest struct {
	ServerURL string

	ContentID           int
	Path                string
	IsCollectionRequest bool

	ActionName   string
	PropertyName string
	CountOnly    bool
	PostData     any

	Version        string
	Top            int
	Skip           int
	Select         []string
	Expand         []string
	OrderBy        []string
	Filter         string
	ContentQuery   string
	InlineCount    InlineCount
	Metadata       MetadataFormat
	Format         ResponseFormat
	Scenario       string
	AutoFilters    FilterStatus
	LifespanFilter FilterStatus

	// Parameters are rendered after the well-known options, in order.
	Parameters []Parameter
}

// Validate checks the addressing invariants.
func (r *ODataRequest) Validate() error {
	const name = "ODataRequest"

	hasID := r.ContentID > 0
	hasPath := r.Path != ""

	switch {
	case hasPath && NormalizePath(r.Path) == "/":
		// "/" is above the repository root and names no content.
		return missing(name, "Path")
	case hasID && hasPath:
		return exclusive(name, "ContentID", "Path")
	case !hasID && !hasPath:
		return missing(name, "ContentID", "Path")
	case r.IsCollectionRequest && !hasPath:
		return missing(name, "Path")
	case r.ActionName != "" && r.PropertyName != "":
		return exclusive(name, "ActionName", "PropertyName")
	case r.Top < 0:
		return &ParameterError{Key: ParamTop, Value: strconv.Itoa(r.Top), Err: ErrInvalidPagingValue}
	case r.Skip < 0:
		return &ParameterError{Key: ParamSkip, Value: strconv.Itoa(r.Skip), Err: ErrInvalidPagingValue}
	}

	return nil
}

// URL renders the absolute request URI.
func (r *ODataRequest) URL() (string, error) {
	rel, err := r.RelativeURL()
	if err != nil {
		return "", err
	}

	return strings.TrimSuffix(r.ServerURL, "/") + rel, nil
}

// RelativeURL renders the request URI without the server part.
func (r *ODataRequest) RelativeURL() (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder

	b.WriteString(constants.ODataServicePath)
	b.WriteString(r.resourcePath())

	if query := encodeQuery(r.Query()); query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}

	return b.String(), nil
}

// String renders the URI for logging; invalid requests render empty.
func (r *ODataRequest) String() string {
	u, err := r.URL()
	if err != nil {
		return ""
	}

	return u
}

func (r *ODataRequest) resourcePath() string {
	var b strings.Builder

	switch {
	case r.ContentID > 0:
		b.WriteString("/content(")
		b.WriteString(strconv.Itoa(r.ContentID))
		b.WriteByte(')')
	case r.IsCollectionRequest:
		b.WriteString(escapePath(r.Path))
	default:
		b.WriteString(entityPath(r.Path))
	}

	switch {
	case r.PropertyName != "":
		b.WriteByte('/')
		b.WriteString(url.PathEscape(r.PropertyName))
	case r.ActionName != "":
		b.WriteByte('/')
		b.WriteString(url.PathEscape(r.ActionName))
	}

	if r.CountOnly {
		b.WriteString("/$count")
	}

	return b.String()
}

// Query returns the rendered query parameters in wire order. Default values
// are omitted.
func (r *ODataRequest) Query() []Parameter {
	var params []Parameter

	add := func(name, value string) {
		if value != "" {
			params = append(params, Parameter{Name: name, Value: value})
		}
	}

	if !r.Metadata.IsDefault() {
		add(ParamMetadata, r.Metadata.wireValue())
	}

	if r.Top > 0 {
		add(ParamTop, strconv.Itoa(r.Top))
	}

	if r.Skip > 0 {
		add(ParamSkip, strconv.Itoa(r.Skip))
	}

	add(ParamSelect, strings.Join(r.Select, ","))
	add(ParamExpand, strings.Join(r.Expand, ","))
	add(ParamOrderBy, strings.Join(r.OrderBy, ","))
	add(ParamFilter, r.Filter)

	if !r.InlineCount.IsDefault() {
		add(ParamInlineCount, string(r.InlineCount))
	}

	if !r.Format.IsDefault() {
		add(ParamFormat, string(r.Format))
	}

	add(ParamQuery, r.ContentQuery)
	add(ParamVersion, r.Version)
	add(ParamScenario, r.Scenario)

	if !r.AutoFilters.IsDefault() {
		add(ParamEnableAutoFilters, string(r.AutoFilters))
	}

	if !r.LifespanFilter.IsDefault() {
		add(ParamEnableLifespanFilter, string(r.LifespanFilter))
	}

	return append(params, r.Parameters...)
}

func encodeQuery(params []Parameter) string {
	parts := make([]string, 0, len(params))

	for _, p := range params {
		name := p.Name
		if !strings.HasPrefix(name, "$") {
			name = url.QueryEscape(name)
		}

		parts = append(parts, name+"="+url.QueryEscape(p.Value))
	}

	return strings.Join(parts, "&")
}

// NormalizePath makes a repository path absolute and strips trailing slashes.
func NormalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	trimmed := strings.TrimRight(path, "/")
	if trimmed == "" {
		return "/"
	}

	return trimmed
}

func escapePath(path string) string {
	segments := strings.Split(strings.Trim(NormalizePath(path), "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	return "/" + strings.Join(segments, "/")
}

// entityPath renders /Root/A/B as /Root/A('B') and /Root as /('Root').
func entityPath(path string) string {
	path = NormalizePath(path)

	idx := strings.LastIndex(path, "/")
	parent, name := path[:idx], path[idx+1:]
	quoted := "('" + url.PathEscape(strings.ReplaceAll(name, "'", "''")) + "')"

	if parent == "" {
		return "/" + quoted
	}

	return escapePath(parent) + quoted
}
