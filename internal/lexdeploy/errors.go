package lexdeploy

import (
	"errors"
	"fmt"
	"strings"
)

// Error category constants classify deployment failures for diagnostics.
const (
	ErrCategoryPermission    = "permission"
	ErrCategoryConfiguration = "configuration"
	ErrCategoryResource      = "resource"
	ErrCategoryTimeout       = "timeout"
	ErrCategoryNetwork       = "network"
	ErrCategoryThrottling    = "throttling"
)

// Error kinds. Every fatal pipeline error wraps exactly one of these, so
// callers can branch with errors.Is.
var (
	// ErrValidation is returned when a configuration document is rejected
	// before any remote call is made.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateDefinition is the validation failure for a repeated intent
	// name or utterance. It also matches ErrValidation.
	ErrDuplicateDefinition = fmt.Errorf("%w: duplicate definition", ErrValidation)
	// ErrProvisioningFailed is returned when a polled resource reaches a
	// failure status.
	ErrProvisioningFailed = errors.New("provisioning failed")
	// ErrBuildFailed is returned when the draft locale does not build.
	ErrBuildFailed = errors.New("build failed")
	// ErrVersionCreationFailed is returned when a bot version does not
	// become available.
	ErrVersionCreationFailed = errors.New("version creation failed")
	// ErrAliasFailed is returned when an alias does not become available.
	ErrAliasFailed = errors.New("alias failed")
	// ErrTestsFailed is returned when the challenger alias fails one or more
	// conversational tests. Nothing is promoted after it.
	ErrTestsFailed = errors.New("tests failed")
	// ErrTimeout is returned when a poll runs out of attempts before any
	// terminal status is observed.
	ErrTimeout = errors.New("timed out waiting for terminal status")
	// ErrNotFound is returned by clients when a looked-up resource does not
	// exist.
	ErrNotFound = errors.New("resource not found")
)

// DeployError is a structured error type that provides actionable diagnostics
// for failed remote calls. It includes the failed resource, error category,
// and a human-readable remediation hint.
type DeployError struct {
	// Category classifies the failure (e.g. "permission", "configuration").
	Category string
	// ResourceType is the type of resource that failed (e.g. "bot_alias").
	ResourceType string
	// ResourceName is the name of the resource that failed.
	ResourceName string
	// Operation is the action that failed (e.g. "create", "update").
	Operation string
	// Message is the primary error description.
	Message string
	// Remediation is a human-readable hint on how to fix the issue.
	Remediation string
	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface with a diagnostic-rich message.
func (e *DeployError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %q failed", e.Operation, e.ResourceType, e.ResourceName)
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Remediation != "" {
		fmt.Fprintf(&b, " [hint: %s]", e.Remediation)
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *DeployError) Unwrap() error {
	return e.Cause
}

// StatusError reports a terminal failure status observed while polling.
// It unwraps to its Kind (ErrProvisioningFailed, ErrBuildFailed, ...).
type StatusError struct {
	Kind         error
	ResourceType string
	ResourceName string
	Status       string
	Reasons      []string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%v: %s %q entered status %s", e.Kind, e.ResourceType, e.ResourceName, e.Status)
	if len(e.Reasons) > 0 {
		msg += ": " + strings.Join(e.Reasons, "; ")
	}
	return msg
}

// Unwrap returns the error kind.
func (e *StatusError) Unwrap() error {
	return e.Kind
}

// withKind returns err relabelled to kind when it is a StatusError; any
// other error (including ErrTimeout) is returned unchanged.
func withKind(err error, kind error) error {
	var se *StatusError
	if errors.As(err, &se) {
		relabelled := *se
		relabelled.Kind = kind
		return &relabelled
	}
	return err
}

// ValidationError lists every problem found in a configuration document.
type ValidationError struct {
	Kind     error
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, strings.Join(e.Problems, "; "))
}

// Unwrap returns the error kind.
func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// TestsFailedError is the promotion gate rejection. The bot built and
// versioned cleanly; it is simply not promoted.
type TestsFailedError struct {
	Report *TestReport
}

// Error implements the error interface.
func (e *TestsFailedError) Error() string {
	return fmt.Sprintf("detected %d failed test(s)", e.Report.Failures)
}

// Unwrap returns ErrTestsFailed.
func (e *TestsFailedError) Unwrap() error {
	return ErrTestsFailed
}

// classifyAWSError inspects an AWS error and returns a category and
// remediation hint. It checks for common patterns in error messages.
func classifyAWSError(err error) (category, remediation string) {
	if err == nil {
		return ErrCategoryResource, ""
	}
	return classifyErrorMessage(err.Error())
}

// classifyErrorMessage determines category and remediation from an error string.
func classifyErrorMessage(msg string) (category, remediation string) {
	lower := strings.ToLower(msg)

	if containsAny(lower, permissionKeywords) {
		return ErrCategoryPermission, hintCheckIAM
	}
	if containsAny(lower, throttlingKeywords) {
		return ErrCategoryThrottling, hintThrottled
	}
	if containsAny(lower, networkKeywords) {
		return ErrCategoryNetwork, hintCheckNetwork
	}
	if containsAny(lower, timeoutKeywords) {
		return ErrCategoryTimeout, hintRetryOrTimeout
	}
	if containsAny(lower, configKeywords) {
		return ErrCategoryConfiguration, hintCheckConfig
	}
	return ErrCategoryResource, ""
}

// Keyword groups for error classification.
var (
	permissionKeywords = []string{
		"accessdenied", "access denied", "unauthorized",
		"not authorized", "forbidden", "insufficientprivileges",
	}
	throttlingKeywords = []string{
		"throttling", "toomanyrequests", "rate exceeded",
	}
	networkKeywords = []string{
		"connection refused", "no such host",
		"dial tcp", "tls handshake", "endpoint",
	}
	timeoutKeywords = []string{
		"timed out", "deadline exceeded", "context canceled",
	}
	configKeywords = []string{
		"validation", "invalid", "malformed", "does not match",
		"preconditionfailed",
	}
)

// Remediation hint constants.
const (
	hintCheckIAM       = "verify the roleArn and the deploying credentials allow the Lex V2 actions"
	hintThrottled      = "the Lex API is throttling requests; rerun the deployment, it converges"
	hintCheckNetwork   = "verify the region is correct and network connectivity is available"
	hintRetryOrTimeout = "the resource may still be provisioning; rerun the deployment after a short wait"
	hintCheckConfig    = "check the bot and environment config values match Lex V2 requirements"
)

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// newDeployError creates a DeployError with automatic AWS error classification.
func newDeployError(operation, resType, resName string, cause error) *DeployError {
	category, remediation := classifyAWSError(cause)
	return &DeployError{
		Category:     category,
		ResourceType: resType,
		ResourceName: resName,
		Operation:    operation,
		Message:      cause.Error(),
		Remediation:  remediation,
		Cause:        cause,
	}
}

// IsDeployError returns the DeployError if err is (or wraps) one.
func IsDeployError(err error) *DeployError {
	var de *DeployError
	if errors.As(err, &de) {
		return de
	}
	return nil
}
