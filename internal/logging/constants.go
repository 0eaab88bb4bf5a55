package logging

// Standardized field names for structured logging.
const (
	FieldComponent     = "component"
	FieldOperation     = "operation"
	FieldTransactionID = "transaction_id"
	FieldUserID        = "user_id"
	FieldRequestID     = "request_id"
	FieldTargetMonth   = "target_month"
	FieldBudget        = "budget"
	FieldProjected     = "projected_total"
	FieldDifference    = "difference"
	FieldStatus        = "status"
	FieldAccuracy      = "r_squared"
	FieldCount         = "count"
	FieldObservations  = "observations"
	FieldFrom          = "from"
	FieldTo            = "to"
	FieldFile          = "file_path"
	FieldFormat        = "format"
	FieldBackend       = "backend"
	FieldError         = "error"
	FieldErrorKind     = "error_kind"
	FieldDuration      = "duration_ms"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldHTTPStatus    = "http_status"
)

// Component names used with FieldComponent.
const (
	ComponentForecast = "forecast"
	ComponentStore    = "store"
	ComponentAuth     = "auth"
	ComponentEvents   = "events"
	ComponentImporter = "importer"
	ComponentHTTP     = "http"
)
