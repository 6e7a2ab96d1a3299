package common

// AppName is reported by the API root endpoint, the gRPC health service and
// used as the metrics namespace.
const AppName = "gophhabits"

// RequestIDHeader carries the request id generated by the HTTP layer.
const RequestIDHeader = "X-Request-ID"

// Field limits for habits and absences.
const (
	MaxHabitNameLength        = 100
	MaxHabitDescriptionLength = 500
	MaxAbsenceReasonLength    = 100
)

// Version is set at build time with -ldflags "-X ...common.Version=...".
var Version = "dev"
