package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmailSpec_Full(t *testing.T) {
	spec, err := ParseEmailSpec("a@x.com:b@y.com,c@z.com:mail.example.com:2525/Subject Here")
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", spec.From)
	assert.Equal(t, []string{"b@y.com", "c@z.com"}, spec.To)
	assert.Equal(t, "mail.example.com", spec.Host)
	assert.Equal(t, 2525, spec.Port)
	assert.Equal(t, "Subject Here", spec.Subject)
}

func TestParseEmailSpec_Minimal(t *testing.T) {
	spec, err := ParseEmailSpec("a@x.com:b@y.com")
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", spec.From)
	assert.Equal(t, []string{"b@y.com"}, spec.To)
	assert.Empty(t, spec.Host)
	assert.Equal(t, DefaultSubmissionPort, spec.Port)
	assert.Empty(t, spec.Subject)
}

func TestParseEmailSpec_Malformed(t *testing.T) {
	tests := []string{
		"",
		"a@x.com",
		"a@x.com:",
		":b@y.com",
		"a@x.com:b@y.com::2525",
		"a@x.com:b@y.com:host:notaport",
		"a@x.com:b@y.com:host:2525:extra",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			_, err := ParseEmailSpec(s)
			require.Error(t, err)
			cfgErr, ok := err.(*Error)
			require.True(t, ok, "expected *config.Error, got %T", err)
			assert.Equal(t, KindMalformedEmail, cfgErr.Kind)
			assert.Equal(t, s, cfgErr.Value, "error should name the offending value")
		})
	}
}

func TestParseDiffEmailSpec(t *testing.T) {
	spec, err := ParseDiffEmailSpec("a@x.com/b@y.com,c@z.com/Weekly Diff")
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", spec.From)
	assert.Equal(t, []string{"b@y.com", "c@z.com"}, spec.To)
	assert.Equal(t, "Weekly Diff", spec.Subject)
}

func TestParseDiffEmailSpec_NoSubject(t *testing.T) {
	spec, err := ParseDiffEmailSpec("a@x.com/b@y.com")
	require.NoError(t, err)
	assert.Empty(t, spec.Subject)
}

func TestParseDiffEmailSpec_Malformed(t *testing.T) {
	for _, s := range []string{"", "a@x.com", "/b@y.com", "a@x.com/"} {
		_, err := ParseDiffEmailSpec(s)
		assert.Error(t, err, "spec %q", s)
	}
}

func TestParseHostPort(t *testing.T) {
	host, port, err := ParseHostPort("mail.example.com:2525")
	require.NoError(t, err)
	assert.Equal(t, "mail.example.com", host)
	assert.Equal(t, 2525, port)

	host, port, err = ParseHostPort("mail.example.com")
	require.NoError(t, err)
	assert.Equal(t, "mail.example.com", host)
	assert.Equal(t, DefaultSubmissionPort, port)

	_, _, err = ParseHostPort(":2525")
	assert.Error(t, err)

	_, _, err = ParseHostPort("mail.example.com:zero")
	assert.Error(t, err)
}
