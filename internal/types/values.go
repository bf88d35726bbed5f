package types

import (
	"cmp"
	"log/slog"
	"slices"
	"strconv"

	"github.com/ghettovoice/registrar/internal/util"
)

// Values maps a string key to a list of string values.
// The keys in the map are case-insensitive.
// It is typically used to store URI's or header's parameters.
type Values map[string][]string

// Get returns values associated with the given key.
func (vals Values) Get(key string) []string { return vals[util.LCase(key)] }

// Last returns the last value associated with the key, and a flag whether the key is present.
// Valueless parameters like ";rport" are present with an empty value.
func (vals Values) Last(key string) (string, bool) {
	v := vals[util.LCase(key)]
	if len(v) == 0 {
		return "", false
	}
	return v[len(v)-1], true
}

// Uint parses the last value of the key as an unsigned integer of the given bit size.
func (vals Values) Uint(key string, bitSize int) (uint64, bool) {
	v, ok := vals.Last(key)
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, bitSize)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Set sets the key to value. It replaces any existing values.
func (vals Values) Set(key, value string) Values {
	vals[util.LCase(key)] = []string{value}
	return vals
}

func (vals Values) Append(key, value string) Values {
	key = util.LCase(key)
	vals[key] = append(vals[key], value)
	return vals
}

// Del deletes the values associated with the key.
func (vals Values) Del(key string) Values {
	delete(vals, util.LCase(key))
	return vals
}

// Has checks whether a given key is in the list.
func (vals Values) Has(key string) bool {
	_, ok := vals[util.LCase(key)]
	return ok
}

// Clone returns a copy of the map.
func (vals Values) Clone() Values {
	if vals == nil {
		return nil
	}
	vals2 := make(Values, len(vals))
	for k, vs := range vals {
		vals2[k] = slices.Clone(vs)
	}
	return vals2
}

// Equal reports whether both maps hold the same keys with the same last values.
func (vals Values) Equal(other Values) bool {
	if len(vals) != len(other) {
		return false
	}
	for k := range vals {
		v1, _ := vals.Last(k)
		v2, ok := other.Last(k)
		if !ok || v1 != v2 {
			return false
		}
	}
	return true
}

// LogValue implements [slog.LogValuer].
func (vals Values) LogValue() slog.Value {
	if len(vals) == 0 {
		return slog.Value{}
	}
	attrs := make([]slog.Attr, 0, len(vals))
	for k := range vals {
		v, _ := vals.Last(k)
		attrs = append(attrs, slog.String(k, v))
	}
	slices.SortFunc(attrs, func(a, b slog.Attr) int { return cmp.Compare(a.Key, b.Key) })
	return slog.GroupValue(attrs...)
}
