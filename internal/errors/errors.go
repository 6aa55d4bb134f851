package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Auth errors (AUTH-001 to AUTH-099)
	ErrCodeAuthSessionLookup       ErrorCode = "AUTH-001"
	ErrCodeAuthSignInCancelled     ErrorCode = "AUTH-002"
	ErrCodeAuthSessionIncomplete   ErrorCode = "AUTH-003"
	ErrCodeAuthDeviceFlow          ErrorCode = "AUTH-004"
	ErrCodeAuthUnsupportedProvider ErrorCode = "AUTH-005"
	ErrCodeAuthNotSignedIn         ErrorCode = "AUTH-006"

	// Workspace trust errors (TRUST-001 to TRUST-099)
	ErrCodeTrustNoWorkspace    ErrorCode = "TRUST-001"
	ErrCodeTrustUntrusted      ErrorCode = "TRUST-002"
	ErrCodeTrustStoreRead      ErrorCode = "TRUST-003"
	ErrCodeTrustStoreWrite     ErrorCode = "TRUST-004"
	ErrCodeTrustFolderNotFound ErrorCode = "TRUST-005"

	// Host integration errors (HOST-001 to HOST-099)
	ErrCodeHostPromptFailed    ErrorCode = "HOST-001"
	ErrCodeHostCommandNotFound ErrorCode = "HOST-002"
	ErrCodeHostOpenFailed      ErrorCode = "HOST-003"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid ErrorCode = "CONFIG-001"
	ErrCodeConfigRead    ErrorCode = "CONFIG-002"

	// GitHub API errors (GITHUB-001 to GITHUB-099)
	ErrCodeGitHubInvalidRepo     ErrorCode = "GITHUB-001"
	ErrCodeGitHubAPI             ErrorCode = "GITHUB-002"
	ErrCodeGitHubRepoNotDetected ErrorCode = "GITHUB-003"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
	ErrCodeDirectoryFailed ErrorCode = "IO-004"
	ErrCodeFileUnmarshal   ErrorCode = "IO-005"
	ErrCodeFileMarshal     ErrorCode = "IO-006"
)

// Category returns the part of the code before the dash (e.g. "AUTH").
func (c ErrorCode) Category() string {
	if i := strings.IndexByte(string(c), '-'); i > 0 {
		return string(c)[:i]
	}
	return string(c)
}

// BridgeError represents an enhanced error with code, suggestions, and documentation
type BridgeError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *BridgeError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *BridgeError) Unwrap() error {
	return e.Cause
}

// New creates a new BridgeError
func New(code ErrorCode, message string) *BridgeError {
	return &BridgeError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new BridgeError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *BridgeError {
	return &BridgeError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *BridgeError) WithSuggestion(suggestion string) *BridgeError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *BridgeError) WithSuggestions(suggestions ...string) *BridgeError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *BridgeError) WithDocs(url string) *BridgeError {
	e.DocsURL = url
	return e
}

// CodeOf returns the code of the first BridgeError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var be *BridgeError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// HasCode reports whether err's chain contains a BridgeError with code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if be, ok := err.(*BridgeError); ok && be.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// Common error constructors for frequently used errors

// NewNotSignedInError is returned by commands that need a GitHub session
func NewNotSignedInError() *BridgeError {
	return New(ErrCodeAuthNotSignedIn, "not signed in to GitHub").
		WithSuggestion("Run 'ghbridge auth login' to sign in").
		WithDocs("https://github.com/felixgeelhaar/ghbridge#authentication")
}

// NewSignInCancelledError is returned when the device flow ends without a token
func NewSignInCancelledError() *BridgeError {
	return New(ErrCodeAuthSignInCancelled, "GitHub sign-in was cancelled").
		WithSuggestion("Run 'ghbridge auth login' again and enter the code shown")
}

// NewUnsupportedProviderError creates an unknown authentication provider error
func NewUnsupportedProviderError(provider string) *BridgeError {
	return New(ErrCodeAuthUnsupportedProvider, fmt.Sprintf("unsupported authentication provider: %s", provider)).
		WithSuggestion("Only the 'github' provider is available")
}

// NewDeviceFlowError wraps a failure talking to GitHub's OAuth endpoints
func NewDeviceFlowError(cause error) *BridgeError {
	return Wrap(ErrCodeAuthDeviceFlow, "GitHub device authorization failed", cause).
		WithSuggestion("Check that client_id in the configuration names a GitHub OAuth app with device flow enabled").
		WithDocs("https://docs.github.com/en/apps/oauth-apps/building-oauth-apps/authorizing-oauth-apps#device-flow")
}

// NewNoWorkspaceError creates a missing workspace folder error
func NewNoWorkspaceError() *BridgeError {
	return New(ErrCodeTrustNoWorkspace, "no workspace is currently open").
		WithSuggestion("Pass --workspace <dir> or run ghbridge inside a project folder")
}

// NewUntrustedWorkspaceError is returned when the user declines to trust the workspace
func NewUntrustedWorkspaceError(folder string) *BridgeError {
	return New(ErrCodeTrustUntrusted, fmt.Sprintf("workspace is not trusted: %s", folder)).
		WithSuggestion("Run 'ghbridge workspace trust' to trust this folder").
		WithDocs("https://github.com/felixgeelhaar/ghbridge#workspace-trust")
}

// NewFolderNotFoundError creates a workspace folder error
func NewFolderNotFoundError(path string) *BridgeError {
	return New(ErrCodeTrustFolderNotFound, fmt.Sprintf("workspace folder does not exist: %s", path)).
		WithSuggestion("Check the --workspace path")
}

// NewCommandNotFoundError creates an unknown host command error
func NewCommandNotFoundError(name string) *BridgeError {
	return New(ErrCodeHostCommandNotFound, fmt.Sprintf("command not found: %s", name))
}

// NewConfigInvalidError creates a configuration validation error
func NewConfigInvalidError(details string) *BridgeError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", details)).
		WithSuggestion("Run 'ghbridge config path' and fix the file")
}

// NewInvalidRepoError creates a repository argument error
func NewInvalidRepoError(repo string) *BridgeError {
	return New(ErrCodeGitHubInvalidRepo, fmt.Sprintf("invalid repository %q, expected owner/name", repo)).
		WithSuggestion("Pass --repo owner/name")
}

// NewRepoNotDetectedError creates an error for folders without a GitHub remote
func NewRepoNotDetectedError(dir string) *BridgeError {
	return New(ErrCodeGitHubRepoNotDetected, fmt.Sprintf("no GitHub remote found in %s", dir)).
		WithSuggestion("Pass --repo owner/name").
		WithSuggestion("Check that 'git remote get-url origin' points at github.com")
}

// NewFileUnmarshalError creates an unmarshal error
func NewFileUnmarshalError(path string, format string, cause error) *BridgeError {
	return Wrap(ErrCodeFileUnmarshal, fmt.Sprintf("failed to parse %s file: %s", format, path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion(fmt.Sprintf("Ensure the file is valid %s", format))
}
