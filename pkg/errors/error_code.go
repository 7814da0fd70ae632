package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Instruction errors (100-199)
	ErrCodeMalformedHeader    ErrorCode = 100
	ErrCodeMissingField       ErrorCode = 101
	ErrCodeInvalidInstruction ErrorCode = 102
	ErrCodeInvalidParameter   ErrorCode = 103

	// Sizing errors (200-299)
	ErrCodeBelowMinimumLot   ErrorCode = 200
	ErrCodeInvalidPercentage ErrorCode = 201
	ErrCodeInvalidStep       ErrorCode = 202

	// Configuration errors (300-399)
	ErrCodeInvalidConfiguration ErrorCode = 300
	ErrCodeMissingCredentials   ErrorCode = 301

	// Gateway errors (500-599)
	ErrCodeOrderRejected         ErrorCode = 500
	ErrCodeExchangeUnavailable   ErrorCode = 501
	ErrCodeLeverageChangeFailed  ErrorCode = 502
	ErrCodeInstrumentNotFound    ErrorCode = 503
	ErrCodeProtectiveOrderFailed ErrorCode = 504

	// Orchestration errors (600-699)
	ErrCodePositionNotOpened ErrorCode = 600
	ErrCodeNoActivePosition  ErrorCode = 601
	ErrCodeJournalFailed     ErrorCode = 602
)
