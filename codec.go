package models

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// =====================================
// Encoding
// =====================================

var (
	_ msgpack.CustomEncoder = (*DataEntity)(nil)
	_ msgpack.CustomDecoder = (*DataEntity)(nil)
)

// MarshalJSON encodes the serialized entity as a JSON object in field order
func (e *DataEntity) MarshalJSON() ([]byte, error) {
	data, err := e.Serialize().MarshalJSON()
	if err != nil {
		return nil, NewErrorWithCause(ErrorTypeSerialization, "failed to encode entity", err)
	}
	return data, nil
}

// UnmarshalJSON replaces the stored values with a decoded JSON object, kept raw
func (e *DataEntity) UnmarshalJSON(data []byte) error {
	fields := NewFields()
	if err := fields.UnmarshalJSON(data); err != nil {
		return NewErrorWithCause(ErrorTypeSerialization, "failed to decode entity", err)
	}
	e.fields = fields
	e.shared = nil
	return nil
}

// EncodeMsgpack encodes the serialized entity as a msgpack map in field order
func (e *DataEntity) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeFields(enc, e.Serialize())
}

// DecodeMsgpack replaces the stored values with a decoded msgpack map, kept raw
func (e *DataEntity) DecodeMsgpack(dec *msgpack.Decoder) error {
	fields, err := decodeFields(dec)
	if err != nil {
		return err
	}
	e.fields = fields
	e.shared = nil
	return nil
}

// MarshalMsgpack encodes an entity to msgpack bytes
func MarshalMsgpack(e *DataEntity) ([]byte, error) {
	data, err := msgpack.Marshal(e)
	if err != nil {
		return nil, NewErrorWithCause(ErrorTypeSerialization, "failed to encode entity", err)
	}
	return data, nil
}

// UnmarshalMsgpack decodes msgpack bytes into an entity. Integers decode as int64 and
// floats as float64.
func UnmarshalMsgpack(data []byte, e *DataEntity) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(e); err != nil {
		return NewErrorWithCause(ErrorTypeSerialization, "failed to decode entity", err)
	}
	return nil
}

func encodeFields(enc *msgpack.Encoder, fields *Fields) error {
	if err := enc.EncodeMapLen(fields.Len()); err != nil {
		return err
	}
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		if err := enc.EncodeString(pair.Key); err != nil {
			return err
		}
		if err := encodePacked(enc, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

func encodePacked(enc *msgpack.Encoder, value any) error {
	switch v := value.(type) {
	case *Fields:
		return encodeFields(enc, v)
	case []any:
		if err := enc.EncodeArrayLen(len(v)); err != nil {
			return err
		}
		for _, item := range v {
			if err := encodePacked(enc, item); err != nil {
				return err
			}
		}
		return nil
	}
	return enc.Encode(value)
}

func decodeFields(dec *msgpack.Decoder) (*Fields, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}

	fields := NewFields()
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		value, err := decodePacked(dec)
		if err != nil {
			return nil, err
		}
		fields.Set(key, value)
	}
	return fields, nil
}

func decodePacked(dec *msgpack.Decoder) (any, error) {
	code, err := dec.PeekCode()
	if err != nil {
		return nil, err
	}

	switch {
	case msgpcode.IsFixedMap(code) || code == msgpcode.Map16 || code == msgpcode.Map32:
		return decodeFields(dec)
	case msgpcode.IsFixedArray(code) || code == msgpcode.Array16 || code == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, err
		}
		items := make([]any, 0, n)
		for i := 0; i < n; i++ {
			item, err := decodePacked(dec)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	}
	return dec.DecodeInterface()
}
