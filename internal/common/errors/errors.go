// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"organmatch/internal/matching/engine"
	"organmatch/internal/matching/oracle"
	"organmatch/internal/repository"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidRequest    ErrorCode = "INVALID_REQUEST"
	ErrCodeSchemaMismatch    ErrorCode = "SCHEMA_MISMATCH"
	ErrCodeOracleUnavailable ErrorCode = "ORACLE_UNAVAILABLE"
	ErrCodeOracleContract    ErrorCode = "ORACLE_CONTRACT_VIOLATION"

	ErrCodeDonorPoolUnavailable ErrorCode = "DONOR_POOL_UNAVAILABLE"
	ErrCodeLabelingFailed       ErrorCode = "LABELING_FAILED"
	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
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

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
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

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
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

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError creates a non-retryable validation error.
func NewInvalidRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidRequest, "Match request is missing or has malformed fields", details, false)
}

// NewSchemaMismatchError creates a non-retryable model schema error.
func NewSchemaMismatchError(err error) *StandardError {
	return newError(ErrCodeSchemaMismatch, "Feature vector rejected by scoring model", err.Error(), false)
}

// NewOracleUnavailableError creates a retryable scoring transport error.
func NewOracleUnavailableError(err error) *StandardError {
	return newError(ErrCodeOracleUnavailable, "Scoring oracle unavailable", err.Error(), true)
}

// NewOracleContractError creates a non-retryable error for malformed scores.
func NewOracleContractError(err error) *StandardError {
	return newError(ErrCodeOracleContract, "Scoring oracle returned an invalid response", err.Error(), false)
}

// NewDonorPoolUnavailableError creates a retryable storage error.
func NewDonorPoolUnavailableError(source string, err error) *StandardError {
	return newError(ErrCodeDonorPoolUnavailable, "Donor pool could not be loaded",
		fmt.Sprintf("source: %s, error: %s", source, err.Error()), true)
}

// NewLabelingFailedError creates a retryable batch labeling error.
func NewLabelingFailedError(err error) *StandardError {
	return newError(ErrCodeLabelingFailed, "Training pair labeling failed", err.Error(), true)
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert operation failed", err.Error(), true)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()), true)
}

// FromMatchingError maps errors from the matching core onto standard codes.
// Errors that are already *StandardError pass through unchanged.
func FromMatchingError(err error) *StandardError {
	var stdErr *StandardError
	switch {
	case err == nil:
		return nil
	case stderrors.As(err, &stdErr):
		return stdErr
	case stderrors.Is(err, engine.ErrInvalidRequest):
		return NewInvalidRequestError(err.Error())
	case stderrors.Is(err, oracle.ErrSchemaMismatch):
		return NewSchemaMismatchError(err)
	case stderrors.Is(err, oracle.ErrUnavailable):
		return NewOracleUnavailableError(err)
	case stderrors.Is(err, engine.ErrOracleContract):
		return NewOracleContractError(err)
	case stderrors.Is(err, repository.ErrPoolUnavailable):
		return newError(ErrCodeDonorPoolUnavailable, "Donor pool could not be loaded", err.Error(), true)
	default:
		return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the codes caught by boundary
// events in the process model.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidRequest:         "INVALID_REQUEST",
	ErrCodeSchemaMismatch:         "SCHEMA_MISMATCH",
	ErrCodeOracleUnavailable:      "ORACLE_UNAVAILABLE",
	ErrCodeOracleContract:         "SCHEMA_MISMATCH",
	ErrCodeDonorPoolUnavailable:   "DONOR_POOL_UNAVAILABLE",
	ErrCodeLabelingFailed:         "LABELING_FAILED",
	ErrCodeDatabaseInsertFailed:   "LABELING_FAILED",
	ErrCodeNotificationSendFailed: "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDonorPoolUnavailable,
		ErrCodeDatabaseInsertFailed,
		ErrCodeLabelingFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeOracleUnavailable:
		return 2 // breaker needs time to half-open

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "ORACLE") || strings.Contains(codeStr, "SCHEMA"):
		return "SCORING"
	case strings.Contains(codeStr, "POOL") || strings.Contains(codeStr, "DATABASE"):
		return "STORAGE"
	case strings.Contains(codeStr, "LABELING"):
		return "TRAINING_DATA"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
