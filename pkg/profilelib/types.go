package profilelib

import (
	"errors"
	"fmt"
)

// Method names the upstream source a profile was read from.
type Method string

const (
	MethodAPI  Method = "API"
	MethodHTML Method = "HTML"
)

// Code is the stable failure code surfaced to callers.
type Code string

const (
	CodeUserNotFound           Code = "USER_NOT_FOUND"
	CodeAccountSuspended       Code = "ACCOUNT_SUSPENDED"
	CodeAccountNotAvailable    Code = "ACCOUNT_NOT_AVAILABLE"
	CodeAccountDeactivated     Code = "ACCOUNT_DEACTIVATED"
	CodeTemporarilyUnavailable Code = "TEMPORARILY_UNAVAILABLE"
	CodeRateLimited            Code = "RATE_LIMITED"
	CodeFetchFailed            Code = "FETCH_FAILED"
	CodeInternalError          Code = "INTERNAL_ERROR"
)

// Terminal reports whether a code means retrying cannot help.
func (c Code) Terminal() bool {
	switch c {
	case CodeUserNotFound, CodeAccountSuspended, CodeAccountNotAvailable,
		CodeAccountDeactivated, CodeTemporarilyUnavailable:
		return true
	}
	return false
}

var codeMessages = map[Code]string{
	CodeUserNotFound:           "This account does not exist",
	CodeAccountSuspended:       "This account has been suspended for violating the community guidelines",
	CodeAccountNotAvailable:    "This account is not available. It may have been banned, deleted, or suspended",
	CodeAccountDeactivated:     "This account has been deactivated or deleted by the user",
	CodeTemporarilyUnavailable: "This account is temporarily unavailable. Please try again later",
	CodeRateLimited:            "Too many requests. Please try again later",
	CodeFetchFailed:            "Unable to fetch account information. Please try again later",
}

// Message returns the human readable description of a code.
func (c Code) Message() string {
	if m, ok := codeMessages[c]; ok {
		return m
	}
	return "An unexpected error occurred"
}

// ProfileRecord is the normalized profile returned to callers. Optional
// fields are pointers so they serialize as null when absent upstream.
type ProfileRecord struct {
	Name          *string `json:"name"`
	Username      string  `json:"username"`
	UserID        *int64  `json:"user_id"`
	Bio           *string `json:"bio"`
	Verified      bool    `json:"verified"`
	Private       bool    `json:"private"`
	Posts         int64   `json:"posts"`
	Followers     int64   `json:"followers"`
	Following     int64   `json:"following"`
	Business      bool    `json:"business"`
	Category      *string `json:"category"`
	ExternalURL   *string `json:"external_url"`
	ProfilePicURL *string `json:"profile_pic_url"`
}

// Outcome is the result of a single API+HTML attempt that did not fail
// transiently: either a profile was found or a terminal code was classified.
type Outcome struct {
	Found   bool
	Profile *ProfileRecord
	Method  Method
	Code    Code
	Message string
}

func found(p *ProfileRecord, m Method) Outcome {
	return Outcome{Found: true, Profile: p, Method: m}
}

func notFound(c Code) Outcome {
	return Outcome{Code: c, Message: c.Message()}
}

// AttemptError records a transient failure for one attempt.
type AttemptError struct {
	Attempt int    `json:"attempt"`
	Error   string `json:"error"`
}

// Result is the aggregate of the retry loop. Success and Code are
// mutually exclusive.
type Result struct {
	Success bool           `json:"success"`
	Data    *ProfileRecord `json:"data,omitempty"`
	Method  Method         `json:"method,omitempty"`
	Attempt int            `json:"attempt,omitempty"`
	Code    Code           `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Errors  []AttemptError `json:"errors,omitempty"`
}

// Transient failure signals. Their Error() text is what lands in the
// per-attempt error list.
var (
	ErrRateLimited     = errors.New("RATE_LIMITED")
	ErrDataParseFailed = errors.New("DATA_PARSE_FAILED")
)

// StatusError is an unexpected upstream HTTP status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP_%d", e.StatusCode)
}
