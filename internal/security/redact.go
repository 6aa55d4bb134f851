package security

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// Redaction markers written in place of sensitive values.
const (
	Redacted       = "[REDACTED]"
	RedactedToken  = "[REDACTED_TOKEN]"
	MaxDepthMarker = "[MAX_DEPTH]"
)

// maxRedactDepth bounds the structured walk so self-referencing maps terminate.
const maxRedactDepth = 32

// SecretType represents the type of secret a pattern detects
type SecretType string

// Secret types recognised by the redactor
const (
	SecretGitHubToken   SecretType = "github_token"
	SecretHexToken      SecretType = "hex_token"
	SecretAuthorization SecretType = "authorization_header"
)

// RedactionPattern is a regex and the replacement applied to every match.
// Replacement may reference capture groups (e.g. "${1}").
type RedactionPattern struct {
	Type        SecretType
	Pattern     *regexp.Regexp
	Replacement string
	Description string
}

// redactionPatterns are applied in order to every string that reaches a log sink.
var redactionPatterns = []RedactionPattern{
	{
		Type:        SecretGitHubToken,
		Pattern:     regexp.MustCompile(`(ghp|gho|ghu|ghs)_[A-Za-z0-9]{36}`),
		Replacement: "${1}_" + Redacted,
		Description: "GitHub personal, OAuth, user-to-server or server-to-server token",
	},
	{
		Type:        SecretHexToken,
		Pattern:     regexp.MustCompile(`\b[0-9a-fA-F]{40,}\b`),
		Replacement: RedactedToken,
		Description: "Bare hexadecimal token (classic OAuth tokens, SHA-1 secrets)",
	},
	{
		Type:        SecretAuthorization,
		Pattern:     regexp.MustCompile(`(?i)(authorization:\s*(?:bearer|token)\s+)\S+`),
		Replacement: "${1}" + Redacted,
		Description: "Authorization header credential",
	},
}

// sensitiveKeys are matched as substrings of the lowercased map key.
var sensitiveKeys = []string{
	"token",
	"password",
	"secret",
	"apikey",
	"api_key",
	"accesstoken",
	"access_token",
	"refreshtoken",
	"refresh_token",
	"privatekey",
	"private_key",
	"authorization",
}

// Patterns returns a copy of the string redaction table.
func Patterns() []RedactionPattern {
	out := make([]RedactionPattern, len(redactionPatterns))
	copy(out, redactionPatterns)
	return out
}

// RedactString replaces every known credential pattern in s.
func RedactString(s string) string {
	for _, p := range redactionPatterns {
		s = p.Pattern.ReplaceAllString(s, p.Replacement)
	}
	return s
}

// IsSensitiveKey reports whether a structured key names a credential.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range sensitiveKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// RedactValue returns a sanitized copy of v that is safe to serialize.
//
// Maps and slices are walked recursively. Values under sensitive keys are
// replaced with Redacted and never descended into. Structs and typed
// containers are normalized through their JSON form first, so json tags
// (including "-") apply. The input is never mutated.
//
// An error is returned only when v cannot be normalized (cycles through
// pointers, channels, funcs).
func RedactValue(v any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("redact: %v", r)
		}
	}()
	return redactWalk(v, 0)
}

func redactWalk(v any, depth int) (any, error) {
	if depth > maxRedactDepth {
		return MaxDepthMarker, nil
	}

	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return RedactString(val), nil
	case json.Number:
		return val, nil
	case error:
		return RedactString(val.Error()), nil
	case map[string]any:
		clean := make(map[string]any, len(val))
		for k, item := range val {
			if IsSensitiveKey(k) {
				clean[k] = Redacted
				continue
			}
			c, err := redactWalk(item, depth+1)
			if err != nil {
				return nil, err
			}
			clean[k] = c
		}
		return clean, nil
	case []any:
		clean := make([]any, len(val))
		for i, item := range val {
			c, err := redactWalk(item, depth+1)
			if err != nil {
				return nil, err
			}
			clean[i] = c
		}
		return clean, nil
	case map[string]string:
		clean := make(map[string]any, len(val))
		for k, item := range val {
			if IsSensitiveKey(k) {
				clean[k] = Redacted
				continue
			}
			clean[k] = RedactString(item)
		}
		return clean, nil
	case []string:
		clean := make([]any, len(val))
		for i, item := range val {
			clean[i] = RedactString(item)
		}
		return clean, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return v, nil
	case reflect.String:
		return RedactString(rv.String()), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
	}

	normalized, err := normalize(v)
	if err != nil {
		return nil, err
	}
	return redactWalk(normalized, depth)
}

// normalize converts an arbitrary value into its generic JSON shape
// (map[string]any, []any, string, json.Number, bool, nil).
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	return generic, nil
}
