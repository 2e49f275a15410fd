// Package errors provides the structured error model shared by workers and its
// translation into BPMN errors.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode is a stable, machine readable error identifier.
type ErrorCode string

const (
	ErrCodeTestCaseNotFound   ErrorCode = "TEST_CASE_NOT_FOUND"
	ErrCodeProblemNotFound    ErrorCode = "PROBLEM_NOT_FOUND"
	ErrCodeInvalidProblemXML  ErrorCode = "INVALID_PROBLEM_XML"
	ErrCodeInvalidExpectation ErrorCode = "INVALID_EXPECTATION"
	ErrCodeRematchFailed      ErrorCode = "REMATCH_FAILED"
	ErrCodeGraderUnavailable  ErrorCode = "GRADER_UNAVAILABLE"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout                 ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeIndexNotFound                 ErrorCode = "INDEX_NOT_FOUND"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInvalidInput           ErrorCode = "INVALID_INPUT"
	ErrCodeVideoDescriptorInvalid ErrorCode = "VIDEO_DESCRIPTOR_INVALID"

	ErrCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrCodeEngineRejected    ErrorCode = "ENGINE_REJECTED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the error shape workers report to the engine.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// BPMNError is thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns the variables attached to a failed or thrown job.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewTestCaseNotFoundError(testID string) *StandardError {
	return newError(ErrCodeTestCaseNotFound, "Content test not found",
		fmt.Sprintf("testId: %s", testID), false)
}

func NewProblemNotFoundError(location string) *StandardError {
	return newError(ErrCodeProblemNotFound, "Problem not found",
		fmt.Sprintf("problemLocation: %s", location), false)
}

func NewInvalidProblemXMLError(location string, err error) *StandardError {
	return newError(ErrCodeInvalidProblemXML, "Problem XML could not be parsed",
		fmt.Sprintf("problemLocation: %s, error: %s", location, err), false)
}

func NewInvalidExpectationError(details string) *StandardError {
	return newError(ErrCodeInvalidExpectation, "Expectation must be correct, incorrect or error", details, false)
}

func NewRematchFailedError(testID string, err error) *StandardError {
	return newError(ErrCodeRematchFailed, "Rematching the content test failed",
		fmt.Sprintf("testId: %s, error: %s", testID, err), true)
}

func NewGraderUnavailableError(err error) *StandardError {
	return newError(ErrCodeGraderUnavailable, "Grading service unavailable", err.Error(), true)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("operation: %s, error: %s", operation, err), true)
}

func NewQueryTimeoutError(operation string) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database query timeout",
		fmt.Sprintf("operation: %s", operation), true)
}

func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeElasticsearchConnectionFailed, "Elasticsearch connection error", err.Error(), true)
}

func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Search query failed",
		fmt.Sprintf("index: %s, error: %s", index, err), true)
}

func NewSearchTimeoutError(index string) *StandardError {
	return newError(ErrCodeSearchTimeout, "Search query timed out",
		fmt.Sprintf("index: %s", index), true)
}

func NewIndexNotFoundError(index string) *StandardError {
	return newError(ErrCodeIndexNotFound, "Search index not found",
		fmt.Sprintf("index: %s", index), false)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification could not be sent",
		fmt.Sprintf("channel: %s, error: %s", channel, err), true)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false)
}

func NewVideoDescriptorInvalidError(err error) *StandardError {
	return newError(ErrCodeVideoDescriptorInvalid, "Video descriptor is invalid", err.Error(), false)
}

// NewEngineError reports a failed workflow engine command.
func NewEngineError(operation string, err error, retryable bool) *StandardError {
	code := ErrCodeEngineRejected
	if retryable {
		code = ErrCodeEngineUnavailable
	}
	return newError(code, fmt.Sprintf("Workflow engine operation %q failed", operation), err.Error(), retryable)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// GetRetryCount returns how many times the engine should retry a job failing with code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeGraderUnavailable,
		ErrCodeRematchFailed,
		ErrCodeEngineUnavailable:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeSearchTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError keeps the code and caps retries at zero for non-retryable errors.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for logging.
func GetErrorCategory(code ErrorCode) string {
	c := string(code)
	switch {
	case strings.Contains(c, "TEST_CASE") || strings.Contains(c, "EXPECTATION") || strings.Contains(c, "REMATCH"):
		return "CONTENT_TEST"
	case strings.Contains(c, "PROBLEM"):
		return "PROBLEM"
	case strings.Contains(c, "GRADER"):
		return "GRADING"
	case strings.Contains(c, "ENGINE"):
		return "ENGINE"
	case strings.Contains(c, "ELASTICSEARCH") || strings.Contains(c, "SEARCH") || strings.Contains(c, "INDEX"):
		return "SEARCH"
	case strings.Contains(c, "DATABASE") || strings.Contains(c, "QUERY"):
		return "DATABASE"
	case strings.Contains(c, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(c, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
