package log

// Canonical field names for structured logging.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldSession   = "session"
	FieldTeam      = "team"
	FieldPlayer    = "player"
	FieldReason    = "reason"
	FieldRound     = "round"
	FieldCode      = "code"
)
