package log

import "cajas/internal/core"

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldReferer    = "referer"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldCategory   = "category"
	FieldSheet      = "sheet"
	FieldRows       = "rows"
	FieldMovements  = "movements"
	FieldSummaries  = "summaries"
	FieldSnapshotID = "snapshot_id"
	FieldEmpty      = "empty_cells"
	FieldMalformed  = "malformed_cells"
	FieldSkipped    = "skipped_rows"
	FieldBadPeriods = "bad_periods"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentDataset   = "dataset"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
	ComponentReport    = "report"
)

// Operations defines standard operation names
const (
	OpRead     = "read"
	OpLoad     = "load"
	OpRefresh  = "refresh"
	OpSnapshot = "snapshot"
	OpPrune    = "prune"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpRender   = "render"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message; nil errors are ignored.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSheet adds the source worksheet of a read.
func (f LogFields) WithSheet(category, sheet string, rows int) LogFields {
	f[FieldCategory] = category
	f[FieldSheet] = sheet
	f[FieldRows] = rows
	return f
}

// WithDataset adds the row counts and data-quality counters of a load.
func (f LogFields) WithDataset(ds *core.Dataset) LogFields {
	if ds == nil {
		return f
	}
	f[FieldMovements] = len(ds.Movements)
	f[FieldSummaries] = len(ds.Summaries)
	f[FieldEmpty] = ds.Diagnostics.Empty
	f[FieldMalformed] = ds.Diagnostics.Malformed
	f[FieldSkipped] = ds.Diagnostics.Skipped
	f[FieldBadPeriods] = ds.Diagnostics.BadPeriods
	if ds.SnapshotID != 0 {
		f[FieldSnapshotID] = ds.SnapshotID
	}
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	if referer != "" {
		f[FieldReferer] = referer
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
