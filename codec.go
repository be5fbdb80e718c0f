package xmsg

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Codec encodes payloads. The bus never puts bytes on a wire: it encodes Data to enforce
// MaxDataSize/WarnDataSize, and Decode round-trips through it to convert payload shapes.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// JSONCodec is the default. Payload limits are measured in JSON bytes.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (JSONCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }
func (JSONCodec) Name() string                    { return "json" }

// YAMLCodec measures and converts payloads as YAML, matching option files loaded with
// LoadOptions.
type YAMLCodec struct{}

func (YAMLCodec) Marshal(v any) ([]byte, error)   { return yaml.Marshal(v) }
func (YAMLCodec) Unmarshal(b []byte, v any) error { return yaml.Unmarshal(b, v) }
func (YAMLCodec) Name() string                    { return "yaml" }

// CodecFactory builds a codec for BusBuilder.WithCodec.
type CodecFactory func() Codec

var codecs = struct {
	sync.RWMutex
	byName map[string]CodecFactory
}{
	byName: map[string]CodecFactory{
		"json": func() Codec { return JSONCodec{} },
		"yaml": func() Codec { return YAMLCodec{} },
	},
}

// RegisterCodec makes a codec available by name. Registering an existing name replaces it.
func RegisterCodec(name string, factory CodecFactory) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: codec name is empty", ErrInvalidOptions)
	}
	if factory == nil {
		return fmt.Errorf("%w: codec %q has no factory", ErrInvalidOptions, name)
	}
	codecs.Lock()
	codecs.byName[name] = factory
	codecs.Unlock()
	return nil
}

// NewCodec builds the codec registered under name.
func NewCodec(name string) (Codec, error) {
	codecs.RLock()
	f, ok := codecs.byName[name]
	codecs.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	return f(), nil
}

// Codecs lists registered codec names in order.
func Codecs() []string {
	codecs.RLock()
	defer codecs.RUnlock()
	names := make([]string, 0, len(codecs.byName))
	for n := range codecs.byName {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
