package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignSessionValue_RoundTrip(t *testing.T) {
	value := SignSessionValue("some-token", "secret")

	token, ok := ParseSignedValue(value, "secret")
	require.True(t, ok)
	assert.Equal(t, "some-token", token)
}

func TestParseSignedValue_RejectsTampering(t *testing.T) {
	value := SignSessionValue("some-token", "secret")

	_, ok := ParseSignedValue("other-token"+value[len("some-token"):], "secret")
	assert.False(t, ok)

	_, ok = ParseSignedValue(value, "different-secret")
	assert.False(t, ok)
}

func TestParseSignedValue_RejectsMalformed(t *testing.T) {
	for _, value := range []string{"", "no-dot", ".leading", "trailing."} {
		_, ok := ParseSignedValue(value, "secret")
		assert.False(t, ok, "value %q", value)
	}
}
