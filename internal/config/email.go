package config

import (
	"errors"
	"strconv"
	"strings"
)

// DefaultSubmissionPort is the standard mail submission port, used when an
// email spec omits one.
const DefaultSubmissionPort = 587

// EmailSpec describes where to send a rendered report. Once a spec exists,
// From and at least one recipient are always present; a nil spec means
// "do not email".
type EmailSpec struct {
	From    string
	To      []string
	Host    string
	Port    int
	Subject string
}

// ParseEmailSpec parses the validate-path inline grammar:
//
//	sender:recipient[,recipient...][:host[:port[/subject]]]
func ParseEmailSpec(s string) (*EmailSpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return nil, newError(KindMalformedEmail, s, "expected sender:recipients[:host[:port[/subject]]]")
	}
	spec := &EmailSpec{Port: DefaultSubmissionPort}

	spec.From = strings.TrimSpace(parts[0])
	if spec.From == "" {
		return nil, newError(KindMalformedEmail, s, "empty sender")
	}

	to, err := splitRecipients(parts[1])
	if err != nil {
		return nil, newError(KindMalformedEmail, s, err.Error())
	}
	spec.To = to

	if len(parts) >= 3 {
		spec.Host = strings.TrimSpace(parts[2])
		if spec.Host == "" {
			return nil, newError(KindMalformedEmail, s, "empty host")
		}
	}
	if len(parts) == 4 {
		portStr, subject, _ := strings.Cut(parts[3], "/")
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 {
			return nil, newError(KindMalformedEmail, s, "bad port "+strconv.Quote(portStr))
		}
		spec.Port = port
		spec.Subject = subject
	}
	return spec, nil
}

// ParseDiffEmailSpec parses the diff-path inline grammar, where the server
// is supplied separately:
//
//	sender/recipient[,recipient...][/subject]
func ParseDiffEmailSpec(s string) (*EmailSpec, error) {
	parts := strings.SplitN(s, "/", 3)
	if len(parts) < 2 {
		return nil, newError(KindMalformedEmail, s, "expected sender/recipients[/subject]")
	}
	spec := &EmailSpec{Port: DefaultSubmissionPort}

	spec.From = strings.TrimSpace(parts[0])
	if spec.From == "" {
		return nil, newError(KindMalformedEmail, s, "empty sender")
	}

	to, err := splitRecipients(parts[1])
	if err != nil {
		return nil, newError(KindMalformedEmail, s, err.Error())
	}
	spec.To = to

	if len(parts) == 3 {
		spec.Subject = parts[2]
	}
	return spec, nil
}

// ParseHostPort parses "host[:port]" as used by the diff email-server flag.
func ParseHostPort(s string) (string, int, error) {
	host, portStr, found := strings.Cut(s, ":")
	host = strings.TrimSpace(host)
	if host == "" {
		return "", 0, newError(KindMalformedEmail, s, "empty host")
	}
	if !found {
		return host, DefaultSubmissionPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return "", 0, newError(KindMalformedEmail, s, "bad port "+strconv.Quote(portStr))
	}
	return host, port, nil
}

func splitRecipients(s string) ([]string, error) {
	var to []string
	for _, r := range strings.Split(s, ",") {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		to = append(to, r)
	}
	if len(to) == 0 {
		return nil, errEmptyRecipients
	}
	return to, nil
}

var errEmptyRecipients = errors.New("no recipients")
