package notify

import (
	"strings"
)

// Canned user-facing messages.
const (
	MessageConnectivity = "Unable to connect to GitHub. Please check your internet connection."
	MessageUnauthorized = "Authentication failed. Please sign in to GitHub again."
	MessageForbidden    = "Access denied. You do not have permission to perform this action."
	MessageNotFound     = "Resource not found. It may have been deleted or moved."
	MessageRateLimited  = "GitHub API rate limit exceeded. Please try again later."
	MessageUnexpected   = "An unexpected error occurred. Please check the logs for details."
)

// Rule maps an error message to a user-facing sentence.
type Rule struct {
	Name    string
	Match   func(msg string) bool
	Message string
}

// DefaultRules returns the classification table, evaluated first match wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "connectivity",
			Match:   containsAny("ENOTFOUND", "ECONNREFUSED", "no such host", "connection refused", "network is unreachable", "i/o timeout"),
			Message: MessageConnectivity,
		},
		{
			Name:    "unauthorized",
			Match:   containsAny("401", "Unauthorized"),
			Message: MessageUnauthorized,
		},
		{
			Name:    "forbidden",
			Match:   containsAny("403", "Forbidden"),
			Message: MessageForbidden,
		},
		{
			Name:    "not_found",
			Match:   containsAny("404", "Not Found"),
			Message: MessageNotFound,
		},
		{
			Name:    "rate_limit",
			Match:   containsFold("rate limit"),
			Message: MessageRateLimited,
		},
	}
}

// Classify turns any error value into the sentence shown to the user.
func Classify(rules []Rule, v any) string {
	switch e := v.(type) {
	case nil:
		return MessageUnexpected
	case error:
		msg := safeErrorString(e)
		for _, r := range rules {
			if r.Match != nil && r.Match(msg) {
				return r.Message
			}
		}
		if msg == "" {
			return MessageUnexpected
		}
		return msg
	case string:
		return e
	default:
		return MessageUnexpected
	}
}

func containsAny(subs ...string) func(string) bool {
	return func(msg string) bool {
		for _, s := range subs {
			if strings.Contains(msg, s) {
				return true
			}
		}
		return false
	}
}

func containsFold(sub string) func(string) bool {
	sub = strings.ToLower(sub)
	return func(msg string) bool {
		return strings.Contains(strings.ToLower(msg), sub)
	}
}

func safeErrorString(err error) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			msg = ""
		}
	}()
	return err.Error()
}
