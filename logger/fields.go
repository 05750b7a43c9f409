package logger

// Standard field names for consistent structured logging across routegen.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldPassID = "pass_id"
	FieldRoute  = "route"

	// Paths
	FieldFile      = "file"
	FieldDir       = "dir"
	FieldConfig    = "config"
	FieldSpecifier = "specifier"
	FieldOutput    = "output"

	// Operations
	FieldOperation = "operation"
	FieldState     = "state"
	FieldChange    = "change"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount     = "count"
	FieldRoutes    = "routes"
	FieldTypes     = "types"
	FieldWarnings  = "warnings"
	FieldDiags     = "diagnostics"
	FieldCacheHits = "cache_hits"
)
