package record

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrFieldMissing is returned when a key is absent from a field map.
	ErrFieldMissing = errors.New("field missing")
	// ErrWrongType is returned when a key is present but holds another kind of value.
	ErrWrongType = errors.New("field has wrong type")
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindBool
	KindMap
	KindAsset
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	case KindAsset:
		return "asset"
	default:
		return "null"
	}
}

// Asset references file content attached to a record.
type Asset struct {
	// Name is the asset file name as known to the remote side.
	Name string `json:"name,omitempty"`
	// Path is the absolute local path of the content.
	Path string `json:"path,omitempty"`
	// Size is the content length in bytes.
	Size int64 `json:"size"`
	// Hash is the sha256 of the content, hex encoded.
	Hash string `json:"hash,omitempty"`
}

// Value is a tagged union over the field types a record can carry.
// The zero Value is null.
type Value struct {
	kind  Kind
	str   string
	num   int64
	flag  bool
	m     Fields
	asset *Asset
}

func String(s string) Value  { return Value{kind: KindString, str: s} }
func Int(n int64) Value      { return Value{kind: KindInt, num: n} }
func Bool(b bool) Value      { return Value{kind: KindBool, flag: b} }
func Map(m Fields) Value     { return Value{kind: KindMap, m: m} }
func AssetRef(a Asset) Value { return Value{kind: KindAsset, asset: &a} }

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) String() (string, error) {
	if v.kind != KindString {
		return "", ErrWrongType
	}
	return v.str, nil
}

func (v Value) Int() (int64, error) {
	if v.kind != KindInt {
		return 0, ErrWrongType
	}
	return v.num, nil
}

func (v Value) Bool() (bool, error) {
	if v.kind != KindBool {
		return false, ErrWrongType
	}
	return v.flag, nil
}

func (v Value) Map() (Fields, error) {
	if v.kind != KindMap {
		return nil, ErrWrongType
	}
	return v.m, nil
}

func (v Value) Asset() (Asset, error) {
	if v.kind != KindAsset || v.asset == nil {
		return Asset{}, ErrWrongType
	}
	return *v.asset, nil
}

type wireValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON encodes v as {"type": <kind>, "value": <payload>}.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.kind {
	case KindString:
		payload = v.str
	case KindInt:
		payload = v.num
	case KindBool:
		payload = v.flag
	case KindMap:
		payload = v.m
	case KindAsset:
		payload = v.asset
	default:
		return json.Marshal(wireValue{Type: KindNull.String()})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireValue{Type: v.kind.String(), Value: raw})
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var err error
	switch w.Type {
	case "string":
		var s string
		err = json.Unmarshal(w.Value, &s)
		*v = String(s)
	case "int":
		var n int64
		err = json.Unmarshal(w.Value, &n)
		*v = Int(n)
	case "bool":
		var b bool
		err = json.Unmarshal(w.Value, &b)
		*v = Bool(b)
	case "map":
		var m Fields
		err = json.Unmarshal(w.Value, &m)
		*v = Map(m)
	case "asset":
		var a Asset
		err = json.Unmarshal(w.Value, &a)
		*v = AssetRef(a)
	case "null", "":
		*v = Value{}
	default:
		return fmt.Errorf("unknown value type %q", w.Type)
	}
	return err
}

// Fields maps record keys to values. An absent key is distinct from a
// present key holding a value of the wrong kind.
type Fields map[string]Value

func (f Fields) lookup(key string) (Value, error) {
	v, ok := f[key]
	if !ok {
		return Value{}, fmt.Errorf("%s: %w", key, ErrFieldMissing)
	}
	return v, nil
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

func (f Fields) GetString(key string) (string, error) {
	v, err := f.lookup(key)
	if err != nil {
		return "", err
	}
	s, err := v.String()
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return s, nil
}

func (f Fields) GetInt(key string) (int64, error) {
	v, err := f.lookup(key)
	if err != nil {
		return 0, err
	}
	n, err := v.Int()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func (f Fields) GetBool(key string) (bool, error) {
	v, err := f.lookup(key)
	if err != nil {
		return false, err
	}
	b, err := v.Bool()
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func (f Fields) GetMap(key string) (Fields, error) {
	v, err := f.lookup(key)
	if err != nil {
		return nil, err
	}
	m, err := v.Map()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return m, nil
}

func (f Fields) GetAsset(key string) (Asset, error) {
	v, err := f.lookup(key)
	if err != nil {
		return Asset{}, err
	}
	a, err := v.Asset()
	if err != nil {
		return Asset{}, fmt.Errorf("%s: %w", key, err)
	}
	return a, nil
}
