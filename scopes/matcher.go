// Package scopes - node-name matching against user scope patterns.
//
// A scope pattern selects graph nodes by name. A pattern prefixed with the
// RegexPrefix marker is treated as a regular expression and tested for a
// search-anywhere match; any other pattern must equal the node name exactly.
package scopes

import (
	"regexp"
	"strings"
)

// RegexPrefix marks a scope pattern as a regular expression.
const RegexPrefix = "{re}"

// Matches reports whether nodeName matches pattern.
//
// A malformed regular expression never matches; malformed patterns are a
// config-authoring bug surfaced at config-validation time, not here.
func Matches(nodeName, pattern string) bool {
	if strings.HasPrefix(pattern, RegexPrefix) {
		re, err := regexp.Compile(strings.TrimPrefix(pattern, RegexPrefix))
		if err != nil {
			return false
		}
		return re.MatchString(nodeName)
	}
	return nodeName == pattern
}

// MatchesAny reports whether nodeName matches at least one of patterns.
func MatchesAny(nodeName string, patterns []string) bool {
	for _, pattern := range patterns {
		if Matches(nodeName, pattern) {
			return true
		}
	}
	return false
}
