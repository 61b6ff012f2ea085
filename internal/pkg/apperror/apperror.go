// Package apperror defines the small error taxonomy shared by the service
// layer and the HTTP handlers.
package apperror

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

type Kind int

const (
	// Internal is the zero value so unclassified errors map to 500.
	Internal Kind = iota
	Config
	Validation
	Upstream
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "config"
	case Validation:
		return "validation"
	case Upstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Error is a classified error. Code is a stable machine readable string that
// ends up in JSON responses.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the explicit status override or the default for the kind.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case Validation:
		return fiber.StatusBadRequest
	case Upstream:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func NewConfig(message string) *Error {
	return New(Config, "config_error", message)
}

func NewValidation(code, message string) *Error {
	return New(Validation, code, message)
}

func WrapUpstream(message string, err error) *Error {
	return Wrap(Upstream, "upstream_error", message, err)
}

func WrapInternal(code, message string, err error) *Error {
	return Wrap(Internal, code, message, err)
}

// WithStatus overrides the HTTP status derived from the kind.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// KindOf reports the kind of err, Internal if err is not classified.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// FiberErrorHandler renders classified errors as {"error": code, "message": msg}.
func FiberErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": "http_error", "message": fe.Message})
	}

	var ae *Error
	if !errors.As(err, &ae) {
		ae = WrapInternal("internal_error", "internal server error", err)
	}

	status := ae.HTTPStatus()
	if status >= fiber.StatusInternalServerError {
		log.Errorf("[HTTP] %s %s failed: %v", c.Method(), c.Path(), err)
	} else {
		log.Debugf("[HTTP] %s %s rejected: %v", c.Method(), c.Path(), err)
	}

	return c.Status(status).JSON(fiber.Map{"error": ae.Code, "message": ae.Message})
}
