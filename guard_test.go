package xmsg

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	assert.NoError(t, validateName("a"))
	assert.NoError(t, validateName(strings.Repeat("x", MaxNameLength)))
	// counted in characters, not bytes
	assert.NoError(t, validateName(strings.Repeat("é", MaxNameLength)))

	assert.ErrorIs(t, validateName(""), ErrInvalidName)
	assert.ErrorIs(t, validateName(strings.Repeat("x", MaxNameLength+1)), ErrNameTooLong)
}

func TestCheckSize(t *testing.T) {
	warn, err := checkSize(50, 100, 1000)
	require.NoError(t, err)
	assert.False(t, warn)

	warn, err = checkSize(500, 100, 1000)
	require.NoError(t, err)
	assert.True(t, warn)

	warn, err = checkSize(500, 0, 1000)
	require.NoError(t, err)
	assert.False(t, warn, "zero disables the warning")

	_, err = checkSize(1001, 100, 1000)
	assert.ErrorIs(t, err, ErrDataTooLarge)
	assert.Contains(t, err.Error(), "Data size 1001 bytes")
	assert.Contains(t, err.Error(), "exceeds maximum 1000 bytes")
}

func TestPayloadSize(t *testing.T) {
	n, err := payloadSize(JSONCodec{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = payloadSize(JSONCodec{}, map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, len(`{"a":1}`), n)

	_, err = payloadSize(JSONCodec{}, make(chan int))
	assert.Error(t, err)
}

func TestHandlerKey(t *testing.T) {
	a := func(ctx context.Context, msg *Message) error { return nil }
	b := func(ctx context.Context, msg *Message) error { return nil }

	assert.Equal(t, handlerKey(a), handlerKey(a))
	assert.NotEqual(t, handlerKey(a), handlerKey(b))

	mk := func(name string) Handler {
		return func(ctx context.Context, msg *Message) error { return errors.New(name) }
	}
	geometry, viewport := mk("geometry"), mk("viewport")
	assert.NotEqual(t, handlerKey(geometry), handlerKey(viewport))
	assert.Equal(t, handlerKey(geometry), handlerKey(geometry))
}

func TestErrorFamilies(t *testing.T) {
	assert.True(t, IsTypeError(ErrInvalidBus))
	assert.True(t, IsTypeError(ErrInvalidModuleName))
	assert.False(t, IsTypeError(ErrDataTooLarge))
	assert.True(t, IsRangeError(dataTooLarge(10, 5)))
	assert.False(t, IsRangeError(ErrRequestTimeout))

	assert.ErrorIs(t, maxPending(3), ErrMaxPendingRequests)
	assert.ErrorIs(t, requestTimeout("a.b", 0), ErrRequestTimeout)
}
