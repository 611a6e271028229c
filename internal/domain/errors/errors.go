package errors

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUnauthorized       = errors.New("authentication required")
	ErrForbidden          = errors.New("admin role required")
	ErrTodoNotFound       = errors.New("todo not found")
	ErrValidationFailed   = errors.New("validation failed")
	ErrBadRequest         = errors.New("invalid request data")
	ErrInternalServer     = errors.New("internal server error")
	ErrConflict           = errors.New("resource conflict")

	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrInvalidTitle       = errors.New("invalid todo title")
	ErrInvalidDescription = errors.New("invalid todo description")
	ErrInvalidStatus      = errors.New("invalid todo status")
	ErrInvalidDate        = errors.New("invalid date, expected YYYY-MM-DD")

	ErrInvalidGzipRequest    = errors.New("invalid gzip request body")
	ErrGzipCompressionFailed = errors.New("gzip compression failed")

	ErrConfigFileReadFailed = errors.New("failed to read config file")
	ErrConfigParseFailed    = errors.New("failed to parse config file")
	ErrConfigInvalidFormat  = errors.New("invalid config value")
)
