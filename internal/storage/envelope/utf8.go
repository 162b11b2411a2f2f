package envelope

import (
	"encoding"
	"encoding/json"
	"errors"
	"reflect"
	"unicode/utf8"
)

// ErrInvalidUTF8 is wrapped by EncodeError when a string in the value is not
// valid UTF-8. JSON cannot carry such strings without altering them.
var ErrInvalidUTF8 = errors.New("string is not valid UTF-8")

var (
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// checkUTF8 walks the strings json.Marshal would encode from v. It must only
// run on values that already marshaled successfully, which rules out cycles.
func checkUTF8(v reflect.Value) error {
	if !v.IsValid() {
		return nil
	}

	// Custom marshalers produce their own bytes; those are checked on the
	// encoded payload instead
	if implementsMarshaler(v) {
		return nil
	}

	switch v.Kind() {
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			return ErrInvalidUTF8
		}
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			return checkUTF8(v.Elem())
		}
	case reflect.Slice:
		// []byte is encoded as base64
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return nil
		}
		fallthrough
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := checkUTF8(v.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if k := iter.Key(); k.Kind() == reflect.String && !utf8.ValidString(k.String()) {
				return ErrInvalidUTF8
			}
			if err := checkUTF8(iter.Value()); err != nil {
				return err
			}
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() && !field.Anonymous {
				continue
			}
			if field.Tag.Get("json") == "-" {
				continue
			}
			if err := checkUTF8(v.Field(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func implementsMarshaler(v reflect.Value) bool {
	t := v.Type()
	if t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) {
		return true
	}
	if v.CanAddr() {
		pt := reflect.PointerTo(t)
		return pt.Implements(jsonMarshalerType) || pt.Implements(textMarshalerType)
	}
	return false
}
