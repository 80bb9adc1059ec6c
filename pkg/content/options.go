package content

import (
	"strings"
)

// MetadataFormat controls how much OData metadata the server returns.
type MetadataFormat string

const (
	// MetadataDefault leaves the choice to the server.
	MetadataDefault MetadataFormat = ""
	// MetadataNone suppresses the __metadata block.
	MetadataNone MetadataFormat = "none"
	// MetadataMinimal returns a reduced __metadata block.
	MetadataMinimal MetadataFormat = "minimal"
	// MetadataFull returns the complete __metadata block.
	MetadataFull MetadataFormat = "full"
)

// ParseMetadataFormat parses a metadata value case-insensitively. "no" is
// accepted as an alias of none.
func ParseMetadataFormat(value string) (MetadataFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "default":
		return MetadataDefault, true
	case "none", "no":
		return MetadataNone, true
	case "minimal":
		return MetadataMinimal, true
	case "full":
		return MetadataFull, true
	default:
		return "", false
	}
}

// IsDefault reports whether m is the server default.
func (m MetadataFormat) IsDefault() bool {
	return m == MetadataDefault
}

// wireValue is the value the server expects for the metadata parameter.
func (m MetadataFormat) wireValue() string {
	if m == MetadataNone {
		return "no"
	}

	return string(m)
}

// FilterStatus is a tri-state switch for the server-side auto and lifespan
// filters.
type FilterStatus string

const (
	// FilterDefault lets the server apply its default.
	FilterDefault FilterStatus = ""
	// FilterEnabled turns the filter on.
	FilterEnabled FilterStatus = "enabled"
	// FilterDisabled turns the filter off.
	FilterDisabled FilterStatus = "disabled"
)

// ParseFilterStatus parses a filter switch case-insensitively. "true" and
// "false" are accepted as aliases of enabled and disabled.
func ParseFilterStatus(value string) (FilterStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "default":
		return FilterDefault, true
	case "enabled", "true":
		return FilterEnabled, true
	case "disabled", "false":
		return FilterDisabled, true
	default:
		return "", false
	}
}

// IsDefault reports whether s is the server default.
func (s FilterStatus) IsDefault() bool {
	return s == FilterDefault
}

// InlineCount selects whether collection responses carry a total count.
type InlineCount string

const (
	// InlineCountDefault lets the server decide.
	InlineCountDefault InlineCount = ""
	// InlineCountNone omits the count.
	InlineCountNone InlineCount = "none"
	// InlineCountAllPages includes the count of all matching items.
	InlineCountAllPages InlineCount = "allpages"
)

// ParseInlineCount parses an $inlinecount value case-insensitively.
func ParseInlineCount(value string) (InlineCount, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "default":
		return InlineCountDefault, true
	case "none":
		return InlineCountNone, true
	case "allpages":
		return InlineCountAllPages, true
	default:
		return "", false
	}
}

// IsDefault reports whether c is the server default.
func (c InlineCount) IsDefault() bool {
	return c == InlineCountDefault
}

// ResponseFormat selects the OData response serialization.
type ResponseFormat string

const (
	// FormatDefault is plain JSON.
	FormatDefault ResponseFormat = ""
	// FormatJSON is plain JSON, requested explicitly.
	FormatJSON ResponseFormat = "json"
	// FormatVerboseJSON is indented JSON.
	FormatVerboseJSON ResponseFormat = "verbosejson"
	// FormatTable renders an HTML table.
	FormatTable ResponseFormat = "table"
	// FormatTypeScript renders TypeScript type declarations.
	FormatTypeScript ResponseFormat = "typescript"
	// FormatExport renders the export format.
	FormatExport ResponseFormat = "export"
)

// ParseResponseFormat parses a $format value case-insensitively.
func ParseResponseFormat(value string) (ResponseFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "default":
		return FormatDefault, true
	case "json":
		return FormatJSON, true
	case "verbosejson":
		return FormatVerboseJSON, true
	case "table":
		return FormatTable, true
	case "typescript":
		return FormatTypeScript, true
	case "export":
		return FormatExport, true
	default:
		return "", false
	}
}

// IsDefault reports whether f is the server default.
func (f ResponseFormat) IsDefault() bool {
	return f == FormatDefault
}

// String implements fmt.Stringer.
func (m MetadataFormat) String() string { return displayValue(string(m)) }

// String implements fmt.Stringer.
func (s FilterStatus) String() string { return displayValue(string(s)) }

// String implements fmt.Stringer.
func (c InlineCount) String() string { return displayValue(string(c)) }

// String implements fmt.Stringer.
func (f ResponseFormat) String() string { return displayValue(string(f)) }

func displayValue(v string) string {
	if v == "" {
		return "default"
	}

	return v
}
