package apperror

// AppError is an error that knows which HTTP status it maps to. Handlers
// translate these into JSON error responses; anything else becomes a 500.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError carrying a status code and user-facing message.
func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches a status and message to an underlying error. The wrapped
// error stays reachable through errors.Is and errors.As but is never shown
// to the client.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
