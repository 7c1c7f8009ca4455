package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecs_EncodeDecode(t *testing.T) {
	msg := NewMessage("lv:abc", "input", map[string]any{
		"field": "email",
		"value": "a@b.c",
	}).WithRef("7")

	for _, codec := range []Codec{NewJSONCodec(), NewMsgPackCodec()} {
		t.Run(codec.Name(), func(t *testing.T) {
			data, err := codec.Encode(msg)
			require.NoError(t, err)

			got, err := codec.Decode(data)
			require.NoError(t, err)

			assert.Equal(t, "7", got.Ref)
			assert.Equal(t, "lv:abc", got.Topic)
			assert.Equal(t, "input", got.Event)
			assert.Equal(t, "email", got.String("field"))
			assert.Equal(t, "a@b.c", got.String("value"))
		})
	}
}

func TestJSONCodec_RejectsMissingEvent(t *testing.T) {
	codec := NewJSONCodec()

	for _, input := range []string{`{}`, `{"topic":"lv:x"}`, `{malformed`, ``} {
		_, err := codec.Decode([]byte(input))
		assert.ErrorIs(t, err, ErrInvalidMessage, "input %q", input)
	}
}

func TestCodecRegistry_Negotiate(t *testing.T) {
	r := NewCodecRegistry()

	assert.Equal(t, "json", r.Negotiate("").Name())
	assert.Equal(t, "json", r.Negotiate("xml").Name())
	assert.Equal(t, "msgpack", r.Negotiate("msgpack").Name())
	assert.True(t, r.Negotiate("msgpack").Binary())

	require.NoError(t, r.SetDefault("msgpack"))
	assert.Equal(t, "msgpack", r.Default().Name())
	assert.ErrorIs(t, r.SetDefault("xml"), ErrUnknownCodec)
}

// FuzzJSONDecode fuzzes the JSON decoder used for browser frames.
func FuzzJSONDecode(f *testing.F) {
	f.Add([]byte(`{"ref":"1","topic":"lv:abc","event":"next","payload":{}}`))
	f.Add([]byte(`{"ref":"","topic":"","event":"input","payload":null}`))
	f.Add([]byte(`{"event":"input","payload":{"field":"agreeTerms","value":true}}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`[]`))
	f.Add([]byte(`null`))
	f.Add([]byte(`{"ref": 123}`))

	codec := NewJSONCodec()

	f.Fuzz(func(t *testing.T, data []byte) {
		msg, err := codec.Decode(data)
		if err != nil {
			return
		}

		out, err := codec.Encode(msg)
		if err != nil {
			return
		}

		msg2, err := codec.Decode(out)
		if err != nil {
			t.Errorf("failed to re-parse serialized message: %v", err)
			return
		}
		if msg.Event != msg2.Event || msg.Ref != msg2.Ref || msg.Topic != msg2.Topic {
			t.Errorf("roundtrip mismatch: %+v != %+v", msg, msg2)
		}
	})
}
