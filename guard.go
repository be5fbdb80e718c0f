package xmsg

import (
	"fmt"
	"unicode/utf8"
	"unsafe"
)

// validateName checks event names and listener patterns.
func validateName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%w: got %d", ErrNameTooLong, utf8.RuneCountInString(name))
	}
	return nil
}

// handlerKey identifies a handler value. A func value points at its closure record, so
// the same function or closure value always yields the same key while each closure
// instance built from one literal yields its own. The listener keeps h reachable, so a
// registered key is never reused.
func handlerKey(h Handler) uintptr {
	return uintptr(*(*unsafe.Pointer)(unsafe.Pointer(&h)))
}

// payloadSize encodes data with the bus codec and returns the encoded length.
func payloadSize(c Codec, data any) (int, error) {
	if data == nil {
		return 0, nil
	}
	raw, err := c.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("xmsg: encode payload: %w", err)
	}
	return len(raw), nil
}

// checkSize applies the hard and soft payload limits. warn is true when the payload is
// admitted but above the warning threshold.
func checkSize(size, warnAt, max int) (warn bool, err error) {
	if size > max {
		return false, dataTooLarge(size, max)
	}
	return warnAt > 0 && size > warnAt, nil
}
