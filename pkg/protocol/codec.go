package protocol

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Common codec errors.
var (
	ErrInvalidMessage = errors.New("invalid message format")
	ErrUnknownCodec   = errors.New("unknown codec type")
)

// Codec handles message encoding/decoding.
type Codec interface {
	Encode(msg Message) ([]byte, error)
	Decode(data []byte) (Message, error)

	// Name returns the codec name used for negotiation.
	Name() string

	// Binary reports whether frames must be sent as binary WebSocket messages.
	Binary() bool
}

// JSONCodec implements Codec using JSON encoding. The browser client speaks JSON.
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Encode encodes a message to JSON.
func (c *JSONCodec) Encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Decode decodes JSON to a message.
func (c *JSONCodec) Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, errors.Join(ErrInvalidMessage, err)
	}
	if msg.Event == "" {
		return Message{}, ErrInvalidMessage
	}
	return msg, nil
}

// Name returns "json".
func (c *JSONCodec) Name() string { return "json" }

// Binary returns false.
func (c *JSONCodec) Binary() bool { return false }

// MsgPackCodec implements Codec using MessagePack encoding.
// Used by non-browser clients that negotiate ?codec=msgpack.
type MsgPackCodec struct{}

// NewMsgPackCodec creates a new MsgPack codec.
func NewMsgPackCodec() *MsgPackCodec {
	return &MsgPackCodec{}
}

// Encode encodes a message to MsgPack.
func (c *MsgPackCodec) Encode(msg Message) ([]byte, error) {
	return msgpack.Marshal(&msg)
}

// Decode decodes MsgPack to a message.
func (c *MsgPackCodec) Decode(data []byte) (Message, error) {
	var msg Message
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return Message{}, errors.Join(ErrInvalidMessage, err)
	}
	if msg.Event == "" {
		return Message{}, ErrInvalidMessage
	}
	return msg, nil
}

// Name returns "msgpack".
func (c *MsgPackCodec) Name() string { return "msgpack" }

// Binary returns true.
func (c *MsgPackCodec) Binary() bool { return true }

// CodecRegistry manages available codecs.
type CodecRegistry struct {
	codecs   map[string]Codec
	fallback Codec
	mu       sync.RWMutex
}

// NewCodecRegistry creates a registry with the JSON and MsgPack codecs, defaulting to JSON.
func NewCodecRegistry() *CodecRegistry {
	r := &CodecRegistry{
		codecs: make(map[string]Codec),
	}
	r.Register(NewJSONCodec())
	r.Register(NewMsgPackCodec())
	r.fallback = r.codecs["json"]
	return r
}

// Register adds a codec to the registry.
func (r *CodecRegistry) Register(codec Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[codec.Name()] = codec
}

// Get retrieves a codec by name.
func (r *CodecRegistry) Get(name string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[name]
	return c, ok
}

// Default returns the default codec.
func (r *CodecRegistry) Default() Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback
}

// SetDefault sets the default codec.
func (r *CodecRegistry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.codecs[name]
	if !ok {
		return ErrUnknownCodec
	}
	r.fallback = c
	return nil
}

// Negotiate returns the named codec, or the default when name is empty or unknown.
func (r *CodecRegistry) Negotiate(name string) Codec {
	if c, ok := r.Get(name); ok {
		return c
	}
	return r.Default()
}
