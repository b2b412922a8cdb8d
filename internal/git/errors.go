package git

import (
	"strings"

	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
)

// Failure reasons attached to classified git errors under the "reason" key.
const (
	ReasonAuth        = "auth"
	ReasonNotFound    = "not_found"
	ReasonProtocol    = "unsupported_protocol"
	ReasonRateLimit   = "rate_limit"
	ReasonTimeout     = "timeout"
	ReasonUnspecified = "unspecified"
)

// classify maps go-git failures onto classified errors. go-git exposes few
// typed errors across transports, so the message is inspected.
func classify(op, url string, err error) error {
	if err == nil {
		return nil
	}
	l := strings.ToLower(err.Error())
	reason := ReasonUnspecified
	retryable := false
	switch {
	case strings.Contains(l, "authentication") || strings.Contains(l, "auth fail") || strings.Contains(l, "invalid username or password"):
		reason = ReasonAuth
	case strings.Contains(l, "not found") || strings.Contains(l, "repository does not exist"):
		reason = ReasonNotFound
	case strings.Contains(l, "unsupported protocol") || strings.Contains(l, "protocol not supported"):
		reason = ReasonProtocol
	case strings.Contains(l, "rate limit") || strings.Contains(l, "too many requests"):
		reason, retryable = ReasonRateLimit, true
	case strings.Contains(l, "timeout"):
		reason, retryable = ReasonTimeout, true
	}
	b := errors.WrapError(err, errors.CategoryGit, op+" failed").
		WithContext("url", url).
		WithContext("reason", reason)
	if retryable {
		b = b.Retryable()
	}
	return b.Build()
}

// Reason returns the failure reason recorded on a git error, or "".
func Reason(err error) string {
	ce, ok := errors.AsClassified(err)
	if !ok {
		return ""
	}
	r, _ := ce.Context()["reason"].(string)
	return r
}
