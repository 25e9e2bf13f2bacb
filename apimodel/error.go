package apimodel

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"net/http"
	"strconv"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrProtocol        = errors.New("protocol error")
)

// ErrorKind is the transportable classification of an error.
type ErrorKind int

const (
	UnexpectedErrorKind ErrorKind = iota
	NotFoundErrorKind
	AlreadyExistsErrorKind
	InvalidArgumentErrorKind
	ProtocolErrorKind
)

func (k ErrorKind) sentinel() error {
	switch k {
	case NotFoundErrorKind:
		return ErrNotFound
	case AlreadyExistsErrorKind:
		return ErrAlreadyExists
	case InvalidArgumentErrorKind:
		return ErrInvalidArgument
	case ProtocolErrorKind:
		return ErrProtocol
	default:
		return nil
	}
}

func (k ErrorKind) StatusCode() int {
	switch k {
	case NotFoundErrorKind:
		return http.StatusNotFound
	case AlreadyExistsErrorKind:
		return http.StatusConflict
	case InvalidArgumentErrorKind:
		return http.StatusBadRequest
	case ProtocolErrorKind:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// KindOf classifies err against the sentinels of this package.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return UnexpectedErrorKind
	case errors.Is(err, ErrNotFound):
		return NotFoundErrorKind
	case errors.Is(err, ErrAlreadyExists):
		return AlreadyExistsErrorKind
	case errors.Is(err, ErrInvalidArgument):
		return InvalidArgumentErrorKind
	case errors.Is(err, ErrProtocol):
		return ProtocolErrorKind
	default:
		return UnexpectedErrorKind
	}
}

type kindError struct {
	kind    ErrorKind
	message string
}

func (e *kindError) Error() string {
	return e.message
}

func (e *kindError) Unwrap() error {
	return e.kind.sentinel()
}

// ErrorOfKind rebuilds an error received from another process: the message is kept verbatim
// and errors.Is still matches the sentinel of kind.
func ErrorOfKind(kind ErrorKind, message string) error {
	return &kindError{kind: kind, message: message}
}

func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func AlreadyExistsf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrAlreadyExists, fmt.Sprintf(format, args...))
}

func InvalidArgumentf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

type ErrorMessage struct {
	ErrStatusCode int    `json:"status_code"`
	ErrMessage    string `json:"message"`
}

func NewErrorMessage(err error) ErrorMessage {
	return ErrorMessage{
		ErrStatusCode: KindOf(err).StatusCode(),
		ErrMessage:    err.Error(),
	}
}

func (e *ErrorMessage) StatusCode() int {
	return e.ErrStatusCode
}

func (e *ErrorMessage) Title() string {
	return e.ErrMessage
}

func (e *ErrorMessage) Error() string {
	if e.ErrMessage != "" {
		return strconv.Itoa(e.ErrStatusCode) + ":" + e.ErrMessage
	} else {
		return strconv.Itoa(e.ErrStatusCode)
	}
}

func (v ErrorMessage) SendError(w http.ResponseWriter) {
	message := v.ErrMessage
	if message == "" {
		switch v.ErrStatusCode {
		case http.StatusOK:
			message = "Ok"
		case http.StatusNotFound:
			message = "Page not found"
		case http.StatusMethodNotAllowed:
			message = "Method not allowed"
		case http.StatusConflict:
			message = "Conflict"
		case http.StatusForbidden:
			message = "Forbidden"
		case http.StatusServiceUnavailable:
			message = "Service unavailable"
		case http.StatusBadRequest:
			message = "Bad request"
		default:
			message = "Internal error"
		}
		v.ErrMessage = message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(v.ErrStatusCode)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		logrus.Warnf("error when encoding error: %v", err)
	}
}

//errors message
var WrongParametersErrorMessage = ErrorMessage{
	ErrStatusCode: http.StatusBadRequest,
	ErrMessage:    "unable to parse parameters",
}
