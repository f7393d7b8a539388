package config

import "fmt"

// Kind classifies a configuration-resolution error.
type Kind int

const (
	KindMissingField Kind = iota
	KindUnreadableFile
	KindMalformedEmail
	KindMalformedAliases
	KindAmbiguousCredentials
)

func (k Kind) String() string {
	switch k {
	case KindMissingField:
		return "missing field"
	case KindUnreadableFile:
		return "unreadable file"
	case KindMalformedEmail:
		return "malformed email"
	case KindMalformedAliases:
		return "malformed aliases"
	case KindAmbiguousCredentials:
		return "ambiguous credentials"
	default:
		return "config error"
	}
}

// Error is a resolution-time configuration error. Value names the offending
// input so parse failures are never silently ignored.
type Error struct {
	Kind   Kind
	Value  string
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %q: %s", e.Kind, e.Value, e.Detail)
	}
	return fmt.Sprintf("%s: %q", e.Kind, e.Value)
}

func newError(kind Kind, value, detail string) *Error {
	return &Error{Kind: kind, Value: value, Detail: detail}
}
