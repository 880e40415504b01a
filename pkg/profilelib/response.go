package profilelib

import (
	"fmt"
	"net/http"
	"time"
)

// Response is the JSON envelope every entry point writes. Exactly one of
// Data (on success) or Code/Error (on failure) is populated.
type Response struct {
	Success      bool              `json:"success"`
	Data         *ProfileRecord    `json:"data,omitempty"`
	Error        string            `json:"error,omitempty"`
	Message      string            `json:"message,omitempty"`
	Code         Code              `json:"code,omitempty"`
	ResponseTime string            `json:"responseTime,omitempty"`
	Method       Method            `json:"method,omitempty"`
	Attempt      int               `json:"attempt,omitempty"`
	Edge         string            `json:"edge,omitempty"`
	Cached       bool              `json:"cached,omitempty"`
	Credits      map[string]string `json:"credits,omitempty"`
	Debug        []AttemptError    `json:"debug,omitempty"`
}

type codeStatus struct {
	status int
	title  string
}

var failureStatus = map[Code]codeStatus{
	CodeUserNotFound:           {http.StatusNotFound, "User not found"},
	CodeAccountSuspended:       {http.StatusForbidden, "Account suspended"},
	CodeAccountNotAvailable:    {http.StatusGone, "Account not available"},
	CodeAccountDeactivated:     {http.StatusGone, "Account deactivated"},
	CodeTemporarilyUnavailable: {http.StatusServiceUnavailable, "Temporarily unavailable"},
	CodeRateLimited:            {http.StatusTooManyRequests, "Rate limited"},
}

// Envelope maps a fetch result onto an HTTP status and response body.
func Envelope(r Result, elapsed time.Duration) (int, Response) {
	rt := formatElapsed(elapsed)
	if r.Success {
		return http.StatusOK, Response{
			Success:      true,
			Data:         r.Data,
			ResponseTime: rt,
			Method:       r.Method,
			Attempt:      r.Attempt,
		}
	}

	code := r.Code
	if code == "" {
		code = CodeFetchFailed
	}
	msg := r.Message
	if msg == "" {
		msg = code.Message()
	}

	if cs, ok := failureStatus[code]; ok {
		resp := Response{
			Error:        cs.title,
			Message:      msg,
			Code:         code,
			ResponseTime: rt,
		}
		// exhausted retries keep their per-attempt errors
		if code == CodeRateLimited {
			resp.Debug = r.Errors
		}
		return cs.status, resp
	}
	return http.StatusServiceUnavailable, Response{
		Error:        "Service unavailable",
		Message:      msg,
		Code:         code,
		ResponseTime: rt,
		Debug:        r.Errors,
	}
}

// ErrorResponse is a plain failure envelope for boundary errors such as bad
// input, unknown routes or disallowed methods.
func ErrorResponse(errText string) Response {
	return Response{Error: errText}
}

// InternalError is the envelope for unexpected failures. Only the error
// text is exposed.
func InternalError(err error) Response {
	msg := "An unexpected error occurred"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return Response{
		Error:   "Internal error",
		Message: msg,
		Code:    CodeInternalError,
	}
}

func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
