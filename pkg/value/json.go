package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Decode reads exactly one JSON text from r and returns it as a Value.
// Object key order is preserved in the order keys appear in the source
// text (spec.md §6, "object insertion-order preservation"), which
// encoding/json's default map[string]interface{} unmarshaling does not
// guarantee. This is the reference codec collaborator described in
// spec.md §6; any conforming JSON codec may be substituted by a host.
func Decode(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeString is a convenience wrapper around Decode for in-memory text.
func DecodeString(s string) (Value, error) {
	return Decode(strings.NewReader(s))
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("value: unexpected delimiter %q", t)
		}
	case nil:
		return NullValue, nil
	case bool:
		return t, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("value: invalid number %q: %w", t.String(), err)
		}
		return f, nil
	case string:
		return t, nil
	default:
		return nil, fmt.Errorf("value: unexpected token %T", tok)
	}
}

func decodeObject(dec *json.Decoder) (Value, error) {
	obj := NewObject()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("value: object key must be a string, got %T", keyTok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		obj.Set(key, val)
	}
	// consume closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder) (Value, error) {
	arr := make([]Value, 0)
	for dec.More() {
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, val)
	}
	// consume closing ']'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

// Encode writes v to w as compact JSON text. It is the mirror of
// Decode, used by the convenience Run helper and by tests to assert on
// serialized output (spec.md §8).
func Encode(w io.Writer, v Value) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(marshalable(v))
}

// EncodeToString renders v as a single-line JSON string with no
// trailing newline.
func EncodeToString(v Value) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// marshalable converts the internal value representation into a shape
// encoding/json knows how to marshal, recursively.
func marshalable(v Value) interface{} {
	switch x := v.(type) {
	case Null:
		return nil
	case []Value:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = marshalable(e)
		}
		return out
	case *Object:
		return (*orderedJSON)(x)
	default:
		return x
	}
}

// orderedJSON adapts *Object to json.Marshaler while preserving key
// order, adapted from OrderedObject.MarshalJSON in the teacher
// (pkg/evaluator/fn_ordered_object.go).
type orderedJSON Object

func (o *orderedJSON) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	obj := (*Object)(o)
	for i, key := range obj.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(key))
		buf.WriteByte(':')
		b, err := json.Marshal(marshalable(obj.values[key]))
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
