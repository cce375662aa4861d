package sharedstore

import (
	"sort"
	"strings"
	"sync"
)

type memValue struct {
	kind Kind
	raw  string
}

// Memory is an in-process Store, used in tests and when the helper and the
// interactive side run inside one binary.
type Memory struct {
	mu     sync.Mutex
	values map[string]memValue
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]memValue)}
}

type memAccess struct {
	values map[string]memValue
}

func (a memAccess) get(key string) (Kind, string, bool, error) {
	v, ok := a.values[key]
	return v.kind, v.raw, ok, nil
}

func (a memAccess) GetString(key string) (string, bool, error) {
	return getTyped[string](a.get, key, KindString)
}

func (a memAccess) GetInt(key string) (int64, bool, error) {
	return getTyped[int64](a.get, key, KindInt)
}

func (a memAccess) GetFloat(key string) (float64, bool, error) {
	return getTyped[float64](a.get, key, KindFloat)
}

func (a memAccess) GetBool(key string) (bool, bool, error) {
	return getTyped[bool](a.get, key, KindBool)
}

func (a memAccess) Keys(prefix string) ([]string, error) {
	var keys []string
	for k := range a.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (a memAccess) SetString(key, value string) error        { return a.set(key, value) }
func (a memAccess) SetInt(key string, value int64) error     { return a.set(key, value) }
func (a memAccess) SetFloat(key string, value float64) error { return a.set(key, value) }
func (a memAccess) SetBool(key string, value bool) error     { return a.set(key, value) }

func (a memAccess) set(key string, value any) error {
	kind, raw, err := encode(value)
	if err != nil {
		return err
	}
	a.values[key] = memValue{kind: kind, raw: raw}
	return nil
}

func (a memAccess) Delete(key string) error {
	delete(a.values, key)
	return nil
}

// with runs fn against the live map while holding the lock.
func (m *Memory) with(fn func(a memAccess) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return fn(memAccess{values: m.values})
}

// GetString implements Reader.
func (m *Memory) GetString(key string) (v string, ok bool, err error) {
	err = m.with(func(a memAccess) error {
		v, ok, err = a.GetString(key)
		return err
	})
	return v, ok, err
}

// GetInt implements Reader.
func (m *Memory) GetInt(key string) (v int64, ok bool, err error) {
	err = m.with(func(a memAccess) error {
		v, ok, err = a.GetInt(key)
		return err
	})
	return v, ok, err
}

// GetFloat implements Reader.
func (m *Memory) GetFloat(key string) (v float64, ok bool, err error) {
	err = m.with(func(a memAccess) error {
		v, ok, err = a.GetFloat(key)
		return err
	})
	return v, ok, err
}

// GetBool implements Reader.
func (m *Memory) GetBool(key string) (v bool, ok bool, err error) {
	err = m.with(func(a memAccess) error {
		v, ok, err = a.GetBool(key)
		return err
	})
	return v, ok, err
}

// Keys implements Reader.
func (m *Memory) Keys(prefix string) (keys []string, err error) {
	err = m.with(func(a memAccess) error {
		keys, err = a.Keys(prefix)
		return err
	})
	return keys, err
}

// SetString implements Writer.
func (m *Memory) SetString(key, value string) error {
	return m.with(func(a memAccess) error { return a.SetString(key, value) })
}

// SetInt implements Writer.
func (m *Memory) SetInt(key string, value int64) error {
	return m.with(func(a memAccess) error { return a.SetInt(key, value) })
}

// SetFloat implements Writer.
func (m *Memory) SetFloat(key string, value float64) error {
	return m.with(func(a memAccess) error { return a.SetFloat(key, value) })
}

// SetBool implements Writer.
func (m *Memory) SetBool(key string, value bool) error {
	return m.with(func(a memAccess) error { return a.SetBool(key, value) })
}

// Delete implements Writer.
func (m *Memory) Delete(key string) error {
	return m.with(func(a memAccess) error { return a.Delete(key) })
}

// Update runs fn on a copy of the data and commits it only when fn succeeds.
func (m *Memory) Update(fn func(tx Tx) error) error {
	return m.with(func(a memAccess) error {
		staged := make(map[string]memValue, len(a.values))
		for k, v := range a.values {
			staged[k] = v
		}
		if err := fn(memAccess{values: staged}); err != nil {
			return err
		}
		m.values = staged
		return nil
	})
}

// View runs fn while holding the lock.
func (m *Memory) View(fn func(r Reader) error) error {
	return m.with(func(a memAccess) error { return fn(a) })
}

// Close marks the store closed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
