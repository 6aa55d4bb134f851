// Package exitcode maps errors to process exit codes.
package exitcode

import (
	"context"
	"errors"
	"os"
	"strings"

	bridgeerrors "github.com/felixgeelhaar/ghbridge/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// AuthError indicates the user is not signed in or sign-in failed
	AuthError = 3

	// TrustError indicates the workspace is missing or untrusted
	TrustError = 4

	// ConfigError indicates an invalid configuration file or value
	ConfigError = 5

	// NetworkError indicates the GitHub API could not be reached or failed
	NetworkError = 6

	// Interrupted indicates the user cancelled with Ctrl+C
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode returns the exit code for err. Coded errors map by
// category; anything else falls back to message inspection.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}
	if errors.Is(err, context.Canceled) {
		return Interrupted
	}

	switch bridgeerrors.CodeOf(err).Category() {
	case "AUTH":
		return AuthError
	case "TRUST":
		return TrustError
	case "CONFIG":
		return ConfigError
	case "GITHUB":
		if bridgeerrors.HasCode(err, bridgeerrors.ErrCodeGitHubAPI) {
			return NetworkError
		}
		return UsageError
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unknown command"),
		strings.Contains(msg, "unknown flag"),
		strings.Contains(msg, "invalid argument"),
		strings.Contains(msg, "required flag"),
		strings.Contains(msg, "accepts "):
		return UsageError
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"):
		return NetworkError
	}
	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case AuthError:
		return "Authentication error"
	case TrustError:
		return "Workspace not open or not trusted"
	case ConfigError:
		return "Configuration error"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
