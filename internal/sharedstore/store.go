// Package sharedstore is the key-value store shared by the monitoring helper
// and the interactive process. Only string, integer, float and boolean values
// are supported, mirroring an app-group defaults container.
package sharedstore

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrTypeMismatch is returned when a key holds a value of another kind.
	ErrTypeMismatch = errors.New("sharedstore: type mismatch")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("sharedstore: closed")
)

// Kind identifies the type of a stored value.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
)

// Reader reads typed values. The boolean result reports whether the key exists.
type Reader interface {
	GetString(key string) (string, bool, error)
	GetInt(key string) (int64, bool, error)
	GetFloat(key string) (float64, bool, error)
	GetBool(key string) (bool, bool, error)
	Keys(prefix string) ([]string, error)
}

// Writer writes typed values.
type Writer interface {
	SetString(key, value string) error
	SetInt(key string, value int64) error
	SetFloat(key string, value float64) error
	SetBool(key string, value bool) error
	Delete(key string) error
}

// Tx is the view handed to Update callbacks.
type Tx interface {
	Reader
	Writer
}

// Viewer runs reads against one consistent state of the store.
type Viewer interface {
	View(fn func(r Reader) error) error
}

// Store is a shared key-value store.
type Store interface {
	Reader
	Writer
	Viewer
	// Update runs fn atomically with respect to other Update calls,
	// including those made by other processes sharing the same store.
	Update(fn func(tx Tx) error) error
	Close() error
}

// encode renders a value as stored text.
func encode(v any) (Kind, string, error) {
	switch val := v.(type) {
	case string:
		return KindString, val, nil
	case int64:
		return KindInt, strconv.FormatInt(val, 10), nil
	case float64:
		return KindFloat, strconv.FormatFloat(val, 'g', -1, 64), nil
	case bool:
		return KindBool, strconv.FormatBool(val), nil
	default:
		return "", "", fmt.Errorf("sharedstore: unsupported value type %T", v)
	}
}

// decode converts stored text into the requested kind.
func decode(key string, stored, want Kind, raw string) (any, error) {
	if stored != want {
		return nil, fmt.Errorf("%w: %s holds %s, not %s", ErrTypeMismatch, key, stored, want)
	}
	switch want {
	case KindString:
		return raw, nil
	case KindInt:
		return strconv.ParseInt(raw, 10, 64)
	case KindFloat:
		return strconv.ParseFloat(raw, 64)
	case KindBool:
		return strconv.ParseBool(raw)
	default:
		return nil, fmt.Errorf("sharedstore: unknown kind %q", want)
	}
}

// getter is the single primitive each implementation provides for reads.
type getter func(key string) (kind Kind, raw string, ok bool, err error)

func getTyped[T any](get getter, key string, want Kind) (T, bool, error) {
	var zero T
	kind, raw, ok, err := get(key)
	if err != nil || !ok {
		return zero, ok, err
	}
	v, err := decode(key, kind, want, raw)
	if err != nil {
		return zero, false, err
	}
	return v.(T), true, nil
}
