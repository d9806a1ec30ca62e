package diskqueue

import (
	"fmt"
	"math"
)

// Args are the stored arguments of a job as seen by its handler.
//
// Values come back from the queue file in their decoded form: signed integers
// as int64, unsigned integers as uint64, floats as float64 and maps as
// map[string]any. The typed accessors convert between the numeric forms.
type Args struct {
	Positional []any
	Keyword    map[string]any
}

// Len returns the number of positional arguments.
func (a Args) Len() int {
	return len(a.Positional)
}

// At returns the positional argument i.
func (a Args) At(i int) (any, error) {
	if i < 0 || i >= len(a.Positional) {
		return nil, fmt.Errorf("%w: position %d", ErrArgMissing, i)
	}
	return a.Positional[i], nil
}

// Kw returns the keyword argument name.
func (a Args) Kw(name string) (any, error) {
	v, ok := a.Keyword[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrArgMissing, name)
	}
	return v, nil
}

// Int returns the positional argument i as an int64.
func (a Args) Int(i int) (int64, error) {
	v, err := a.At(i)
	if err != nil {
		return 0, err
	}
	return toInt(v, fmt.Sprintf("position %d", i))
}

// String returns the positional argument i as a string.
func (a Args) String(i int) (string, error) {
	v, err := a.At(i)
	if err != nil {
		return "", err
	}
	return toString(v, fmt.Sprintf("position %d", i))
}

// Float returns the positional argument i as a float64.
func (a Args) Float(i int) (float64, error) {
	v, err := a.At(i)
	if err != nil {
		return 0, err
	}
	return toFloat(v, fmt.Sprintf("position %d", i))
}

// Bool returns the positional argument i as a bool.
func (a Args) Bool(i int) (bool, error) {
	v, err := a.At(i)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, typeErr(v, "bool", fmt.Sprintf("position %d", i))
	}
	return b, nil
}

// KwInt returns the keyword argument name as an int64.
func (a Args) KwInt(name string) (int64, error) {
	v, err := a.Kw(name)
	if err != nil {
		return 0, err
	}
	return toInt(v, fmt.Sprintf("%q", name))
}

// KwString returns the keyword argument name as a string.
func (a Args) KwString(name string) (string, error) {
	v, err := a.Kw(name)
	if err != nil {
		return "", err
	}
	return toString(v, fmt.Sprintf("%q", name))
}

// KwFloat returns the keyword argument name as a float64.
func (a Args) KwFloat(name string) (float64, error) {
	v, err := a.Kw(name)
	if err != nil {
		return 0, err
	}
	return toFloat(v, fmt.Sprintf("%q", name))
}

// KwBool returns the keyword argument name as a bool.
func (a Args) KwBool(name string) (bool, error) {
	v, err := a.Kw(name)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, typeErr(v, "bool", fmt.Sprintf("%q", name))
	}
	return b, nil
}

func toInt(v any, where string) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %s overflows int64", ErrArgType, where)
		}
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %s overflows int64", ErrArgType, where)
		}
		return int64(n), nil
	}
	return 0, typeErr(v, "integer", where)
}

func toFloat(v any, where string) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	}
	if i, err := toInt(v, where); err == nil {
		return float64(i), nil
	}
	return 0, typeErr(v, "number", where)
}

func toString(v any, where string) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	return "", typeErr(v, "string", where)
}

func typeErr(v any, want, where string) error {
	return fmt.Errorf("%w: %s is %T, want %s", ErrArgType, where, v, want)
}
