package relay

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/marginalia/internal/errors"
)

// APIError implements huma.StatusError with the same body shape as
// response.ErrorBody.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// apiError converts err for return from an operation handler. Domain errors
// keep their code and status; anything else is reported as internal without
// leaking its text.
func apiError(err error) error {
	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		msg := domainErr.Message
		if domainErr.Code == errors.CodeStorage || domainErr.Code == errors.CodeInternal {
			msg = "relay storage unavailable"
		}
		return &APIError{
			status:  domainErr.HTTPStatus(),
			Code:    string(domainErr.Code),
			Message: msg,
			Details: domainErr.Details,
		}
	}
	return &APIError{
		status:  http.StatusInternalServerError,
		Code:    string(errors.CodeInternal),
		Message: "internal server error",
	}
}

// RegisterErrorHandler makes huma's own errors (bad parameters, oversized
// bodies) use the APIError shape. Call it before registering operations.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			var domainErr *errors.Error
			if errors.As(err, &domainErr) {
				return &APIError{
					status:  domainErr.HTTPStatus(),
					Code:    string(domainErr.Code),
					Message: domainErr.Message,
					Details: domainErr.Details,
				}
			}
		}

		var details map[string]string
		for _, err := range errs {
			if d, ok := err.(huma.ErrorDetailer); ok {
				if details == nil {
					details = make(map[string]string)
				}
				ed := d.ErrorDetail()
				details[ed.Location] = ed.Message
			}
		}

		e := &APIError{status: status, Code: string(statusToCode(status)), Message: message}
		if details != nil {
			e.Details = details
		}
		return e
	}
}

func statusToCode(status int) errors.Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errors.CodeValidation
	case http.StatusNotFound:
		return errors.CodeNotFound
	case http.StatusConflict:
		return errors.CodeConflict
	case http.StatusRequestEntityTooLarge:
		return errors.CodeTooLarge
	case http.StatusTooManyRequests:
		return errors.CodeRateLimit
	default:
		return errors.CodeInternal
	}
}
