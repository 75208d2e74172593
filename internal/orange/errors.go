package orange

import (
	"errors"
	"fmt"
)

// Stage names a step of one account's pipeline. It is used as a log field
// and as the failure counter attribute.
type Stage string

const (
	StageAuth            Stage = "auth"
	StageCustomer        Stage = "customer"
	StageBillingAccounts Stage = "billing_accounts"
	StagePrepaidStatus   Stage = "prepaid_status"
	StageProjection      Stage = "projection"
	StageUnknown         Stage = "unknown"
)

var errMissing = errors.New("missing")

// AuthError reports a failed login or token exchange.
type AuthError struct {
	Flow string
	Step string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s auth: %s: %v", e.Flow, e.Step, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// UpstreamError reports a transport failure or a non-2xx answer.
// StatusCode is zero when no response was received.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// SchemaError reports an absent or malformed field in a provider document.
type SchemaError struct {
	Document string
	Field    string
	Err      error
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Document, e.Err)
	}
	return fmt.Sprintf("%s: field %q: %v", e.Document, e.Field, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// StageError tags an error with the pipeline stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return string(e.Stage) + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the stage err was raised in.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return StageAuth
	}
	return StageUnknown
}
