package docs

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/inful/mdfp"
	"gopkg.in/yaml.v3"

	derrors "git.home.luguber.info/inful/docblog/internal/docs/errors"
)

// Frontmatter keys left out of the fingerprint.
const (
	fingerprintHashKeyLastmod = "lastmod"
	fingerprintHashKeyUID     = "uid"
)

// SplitFrontmatter separates YAML frontmatter (`---` delimited) from the
// Markdown body. Without an opening delimiter, frontmatter is nil and body
// is the full input.
func SplitFrontmatter(content []byte) (frontmatter []byte, body []byte, err error) {
	nl := detectNewline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, nil
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return []byte{}, content[start+len(open):], nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		// A closing delimiter on the last line without a newline.
		tail := []byte(nl + "---")
		if bytes.HasSuffix(content, tail) {
			return content[start : len(content)-len(tail)+len(nl)], []byte{}, nil
		}
		return nil, nil, derrors.ErrMissingClosingDelimiter
	}
	return content[start : start+idx+len(nl)], content[start+idx+len(closeSeq):], nil
}

// ParseFrontmatter parses raw YAML frontmatter into a map.
func ParseFrontmatter(frontmatter []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(frontmatter)) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(frontmatter, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", derrors.ErrInvalidFrontmatter, err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Fingerprint computes the content fingerprint of a document. Bookkeeping
// fields (fingerprint, lastmod, uid) do not contribute.
func Fingerprint(fields map[string]any, body []byte) (string, error) {
	forHash := make(map[string]any, len(fields))
	for k, v := range fields {
		switch k {
		case mdfp.FingerprintField, fingerprintHashKeyLastmod, fingerprintHashKeyUID:
			continue
		}
		forHash[k] = v
	}

	frontmatterForHash := ""
	if len(forHash) > 0 {
		serialized, err := yaml.Marshal(forHash)
		if err != nil {
			return "", fmt.Errorf("%w: %w", derrors.ErrInvalidFrontmatter, err)
		}
		frontmatterForHash = strings.TrimSuffix(string(serialized), "\n")
	}

	return mdfp.CalculateFingerprintFromParts(frontmatterForHash, string(body)), nil
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
