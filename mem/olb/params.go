package olb

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Params is the key value parameter block of an OLB. It is only read while
// the OLB is being built.
type Params map[string]string

// Find returns the value of the key and whether the key is present.
func (p Params) Find(key string) (string, bool) {
	v, found := p[key]
	return v, found
}

// FindString returns the value of the key or the default.
func (p Params) FindString(key, def string) string {
	if v, found := p[key]; found {
		return v
	}

	return def
}

// FindInt returns the integer value of the key or the default.
func (p Params) FindInt(key string, def int) (int, error) {
	v, found := p[key]
	if !found {
		return def, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, &ConfigError{Param: key, Reason: err.Error()}
	}

	return n, nil
}

// FindUint returns the unsigned value of the key or the default.
func (p Params) FindUint(key string, def uint64) (uint64, error) {
	v, found := p[key]
	if !found {
		return def, nil
	}

	n, err := strconv.ParseUint(strings.TrimSpace(v), 0, 64)
	if err != nil {
		return 0, &ConfigError{Param: key, Reason: err.Error()}
	}

	return n, nil
}

// FindList splits the value of the key on commas.
func (p Params) FindList(key string) []string {
	v, found := p[key]
	if !found {
		return nil
	}

	var list []string

	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			list = append(list, item)
		}
	}

	return list
}

// Set sets the key, replacing any value.
func (p Params) Set(key, value string) {
	p[key] = value
}

// SetDefault sets the key unless it is already present.
func (p Params) SetDefault(key, value string) {
	if _, found := p[key]; !found {
		p[key] = value
	}
}

// WithPrefix returns the keys that start with the prefix, with the prefix
// removed.
func (p Params) WithPrefix(prefix string) Params {
	sub := make(Params)

	for k, v := range p {
		if strings.HasPrefix(k, prefix) {
			sub[strings.TrimPrefix(k, prefix)] = v
		}
	}

	return sub
}

// Keys returns the keys in order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func (p Params) String() string {
	var b strings.Builder

	for _, k := range p.Keys() {
		fmt.Fprintf(&b, "%s=%s\n", k, p[k])
	}

	return b.String()
}
