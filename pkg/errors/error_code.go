package errors

// ErrorCode identifies a class of failure. Codes are grouped in ranges of one hundred.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidSignal        ErrorCode = 102
	ErrCodeInsufficientData     ErrorCode = 106
	ErrCodeInvalidPeriod        ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidVersion       ErrorCode = 110
	ErrCodeInvalidInterval      ErrorCode = 111

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeNoLoadableData        ErrorCode = 204

	// Indicator errors (300-399)
	ErrCodeIndicatorCalculation ErrorCode = 302

	// Strategy errors (400-499)
	ErrCodeSignalGeneratorFailed ErrorCode = 400
	ErrCodeVersionMismatch       ErrorCode = 404

	// Backtest errors (600-699)
	ErrCodeBacktestStateNil     ErrorCode = 600
	ErrCodeBacktestInitFailed   ErrorCode = 601
	ErrCodeBacktestStateFailed  ErrorCode = 602
	ErrCodeBacktestNoDataPaths  ErrorCode = 606
	ErrCodeBacktestNoResultsDir ErrorCode = 607
	ErrCodeBacktestNoGenerator  ErrorCode = 608
	ErrCodeBacktestWriteFailed  ErrorCode = 609
	ErrCodeBacktestNotRunnable  ErrorCode = 610

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800
)
