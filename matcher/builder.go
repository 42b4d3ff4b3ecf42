package matcher

import (
	"fmt"
	"strconv"
	"strings"
)

// ResourceLoader fetches the body a "[ref]" rule line points at: a local
// file path or an http(s):// URL.
type ResourceLoader interface {
	Load(ref string) ([]byte, error)
}

// LoadError wraps a ResourceLoader failure so callers can distinguish a
// fetch failure from a malformed
// rule line (ParseError).
type LoadError struct {
	Ref   string
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %q: %s", e.Ref, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Build turns one trimmed, non-empty, non-comment config line into exactly
// one Matcher by lexical inspection of its first character.
func Build(line string, loader ResourceLoader) (Matcher, error) {
	switch {
	case strings.HasPrefix(line, ":"):
		portStr := strings.TrimPrefix(line, ":")
		port, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil || port < 1 || port > 65535 {
			return Matcher{}, fmt.Errorf("invalid port rule %q: must be 1-65535", line)
		}
		return NewPort(uint16(port)), nil

	case strings.HasPrefix(line, "/") && strings.HasSuffix(line, "/") && len(line) >= 2:
		body := line[1 : len(line)-1]
		m, err := NewPattern(body)
		if err != nil {
			return Matcher{}, fmt.Errorf("invalid regex rule %q: %w", line, err)
		}
		return m, nil

	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") && len(line) >= 2:
		ref := line[1 : len(line)-1]
		if loader == nil {
			return Matcher{}, fmt.Errorf("abp rule %q requires a resource loader", line)
		}
		raw, err := loader.Load(ref)
		if err != nil {
			return Matcher{}, &LoadError{Ref: ref, Cause: err}
		}
		// The fetched body is itself base64 text wrapped across lines;
		// concatenate before decoding.
		b64 := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
		abp, err := DecodeAndCompile(b64)
		if err != nil {
			return Matcher{}, fmt.Errorf("compiling abp rule %q: %w", line, err)
		}
		return NewAbp(abp, ref), nil

	default:
		return NewSuffix(line), nil
	}
}
