package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed panel error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so cloned sentinels still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "usuario o contraseña inválidos")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "recurso no encontrado")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "no tiene permisos para esta acción")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "debe iniciar sesión")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflicto")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "datos inválidos")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "error interno")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// ErrUnreachable is returned when the remote API produced no response at all.
	ErrUnreachable = New("REMOTE_UNREACHABLE", http.StatusBadGateway, "No se pudo conectar con el servidor")
	// ErrRemote carries an error payload returned by the remote API.
	ErrRemote = New("REMOTE_ERROR", http.StatusBadGateway, "Ocurrió un error en el servidor")
	// ErrSessionExpired means the refresh token was rejected and the session was cleared.
	ErrSessionExpired = New("SESSION_EXPIRED", http.StatusUnauthorized, "La sesión expiró, inicie sesión nuevamente")

	ErrPINRequired       = New("PIN_REQUIRED", http.StatusPreconditionRequired, "Se requiere el PIN de seguridad")
	ErrPINInvalid        = New("PIN_INVALID", http.StatusForbidden, "PIN incorrecto")
	ErrNoPendingAction   = New("NO_PENDING_ACTION", http.StatusConflict, "no hay una acción pendiente de confirmación")
	ErrInvalidTransition = New("INVALID_TRANSITION", http.StatusConflict, "cambio de estatus no permitido")
	ErrReconcileInFlight = New("RECONCILE_IN_FLIGHT", http.StatusConflict, "ya hay una sincronización en curso")
	ErrFeatureDisabled   = New("FEATURE_DISABLED", http.StatusNotFound, "funcionalidad no habilitada")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithStatus returns a copy of err answering with the given HTTP status.
func WithStatus(err *Error, status int) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Status = status
	return &clone
}
