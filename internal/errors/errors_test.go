package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"configuration", NewConfigurationError("credentials.email", "required"), ErrConfigInvalid},
		{"authentication", NewAuthenticationError("Invalid email or password"), ErrInvalidCredentials},
		{"parse", NewParseError("get-market", []string{"symbols"}, nil), ErrMalformedResponse},
		{"missing", NewMissingDataError("price", "BTCUSD"), ErrDataNotFound},
		{"provider", NewProviderError("get-market", "Invalid session"), ErrProviderRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("generate: %w", tt.err)
			assert.True(t, Is(wrapped, tt.target))
		})
	}
}

func TestParseErrorMessage(t *testing.T) {
	err := NewParseError("get-economic-calendar", []string{"calendar[0].country", "calendar[0].title"}, nil)
	assert.Equal(t,
		"parse error [get-economic-calendar]: missing or invalid calendar[0].country, calendar[0].title",
		err.Error())

	var pe *ParseError
	assert.True(t, As(Wrap(err, "fetch events"), &pe))
	assert.Len(t, pe.Fields, 2)
}

func TestAuthenticationErrorCarriesMessage(t *testing.T) {
	err := NewAuthenticationError("Invalid email or password.")
	assert.Contains(t, err.Error(), "Invalid email or password.")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
}
