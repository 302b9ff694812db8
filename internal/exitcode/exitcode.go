package exitcode

const (
	Success         = 0
	UsageError      = 1
	ValidationError = 2
	StoreError      = 3
	ExtractError    = 4
	AuditError      = 5
	PartialSuccess  = 6
	RenderError     = 7
)
