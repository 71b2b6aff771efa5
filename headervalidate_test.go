package http2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHF(key, value string) *HeaderField {
	hf := AcquireHeaderField()
	hf.SetKey(key)
	hf.SetValue(value)
	return hf
}

func TestValidateFieldRejectsConnectionSpecificHeaders(t *testing.T) {
	for _, key := range []string{"connection", "keep-alive", "proxy-connection", "transfer-encoding", "upgrade"} {
		err := validateField(newHF(key, "anything"))
		require.Error(t, err, key)
		var se *StreamError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, ProtocolError, se.Code)
	}
}

func TestValidateFieldRejectsHostHeader(t *testing.T) {
	err := validateField(newHF("host", "example.com"))
	require.Error(t, err)
	var se *StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ProtocolError, se.Code)
}

func TestValidateFieldAllowsTeTrailers(t *testing.T) {
	assert.NoError(t, validateField(newHF("te", "trailers")))
}

func TestValidateFieldRejectsOtherTeValues(t *testing.T) {
	assert.Error(t, validateField(newHF("te", "gzip")))
}

func TestValidateContentLengthRejectsMalformed(t *testing.T) {
	_, err := validateContentLength("not-a-number")
	assert.Error(t, err)

	_, err = validateContentLength("-1")
	assert.Error(t, err)

	n, err := validateContentLength("42")
	assert.NoError(t, err)
	assert.EqualValues(t, 42, n)
}
