package xmsg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type boxCreated struct {
	ID    string  `json:"id"`
	Width float64 `json:"width"`
}

func TestDecode_SameType(t *testing.T) {
	v, err := Decode[boxCreated](context.Background(), &Message{Data: boxCreated{ID: "b1", Width: 2}})
	require.NoError(t, err)
	assert.Equal(t, boxCreated{ID: "b1", Width: 2}, v)
}

func TestDecode_ThroughCodec(t *testing.T) {
	bus := newTestBus(t, nil)
	var got boxCreated
	_, err := bus.On("geo.box", func(ctx context.Context, msg *Message) error {
		var derr error
		got, derr = Decode[boxCreated](ctx, msg)
		return derr
	})
	require.NoError(t, err)

	// a module without the type emits a plain map
	require.NoError(t, bus.Emit("geo.box", map[string]any{"id": "b2", "width": 3.5}))
	assert.Equal(t, boxCreated{ID: "b2", Width: 3.5}, got)
	assert.Equal(t, uint64(0), bus.GetStats().ErrorsCaught)
}

type upperCodec struct{ JSONCodec }

func (upperCodec) Name() string { return "upper-json" }

func TestCodecRegistry(t *testing.T) {
	require.NoError(t, RegisterCodec("upper-json", func() Codec { return upperCodec{} }))
	assert.ErrorIs(t, RegisterCodec(" ", func() Codec { return JSONCodec{} }), ErrInvalidOptions)
	assert.ErrorIs(t, RegisterCodec("nil", nil), ErrInvalidOptions)
	assert.Subset(t, Codecs(), []string{"json", "upper-json", "yaml"})

	c, err := NewCodec("upper-json")
	require.NoError(t, err)
	assert.Equal(t, "upper-json", c.Name())

	bus := newTestBus(t, nil, func(b *BusBuilder) { b.WithCodec("upper-json") })
	assert.Equal(t, "upper-json", bus.Codec().Name())

	_, err = NewCodec("nope")
	assert.ErrorIs(t, err, ErrUnknownCodec)
	_, err = NewBusBuilder().WithCodec("nope").Build()
	assert.ErrorIs(t, err, ErrUnknownCodec)
}

func TestYAMLCodec_SizesAndDecodes(t *testing.T) {
	bus := newTestBus(t, func(o *Options) { o.MaxDataSize = 16 }, func(b *BusBuilder) { b.WithCodec("yaml") })

	var got boxCreated
	_, err := bus.On("geo.box", func(ctx context.Context, msg *Message) error {
		var derr error
		got, derr = Decode[boxCreated](ctx, msg)
		return derr
	})
	require.NoError(t, err)

	require.NoError(t, bus.Emit("geo.box", map[string]any{"id": "b3"}))
	assert.Equal(t, "b3", got.ID)

	err = bus.Emit("geo.box", map[string]any{"id": "a-much-longer-identifier"})
	assert.ErrorIs(t, err, ErrDataTooLarge)
}
