package xmsg

import "context"

// Decode returns msg.Data as T. Payloads of another shape (for example a map emitted by a
// module that does not share the type) are converted through the codec found in ctx,
// falling back to JSON.
func Decode[T any](ctx context.Context, msg *Message) (T, error) {
	if v, ok := msg.Data.(T); ok {
		return v, nil
	}
	c, ok := CodecFromContext(ctx)
	if !ok {
		c = JSONCodec{}
	}
	return DecodeCodec[T](c, msg)
}

// DecodeCodec converts msg.Data into T using the provided codec.
func DecodeCodec[T any](c Codec, msg *Message) (T, error) {
	var v T
	if t, ok := msg.Data.(T); ok {
		return t, nil
	}
	raw, err := c.Marshal(msg.Data)
	if err != nil {
		return v, err
	}
	if err := c.Unmarshal(raw, &v); err != nil {
		return v, err
	}
	return v, nil
}
