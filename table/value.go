package table

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// valueKind orders values of different types against each other so mixed columns still sort
// deterministically.
type valueKind int

const (
	kindNumber valueKind = iota
	kindString
	kindBool
	kindTime
	kindOther
	kindNull
)

// Indirect dereferences pointer cell values. A nil pointer becomes nil.
func Indirect(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

// IsNull reports whether v is absent: nil, a nil pointer, or NaN.
func IsNull(v any) bool {
	v = Indirect(v)
	if v == nil {
		return true
	}
	if f, ok := toFloat(v); ok && math.IsNaN(f) {
		return true
	}
	return false
}

// IsFalsy reports whether v carries no usable facet value: null, empty string, false or zero.
func IsFalsy(v any) bool {
	v = Indirect(v)
	if IsNull(v) {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case bool:
		return !t
	case time.Time:
		return t.IsZero()
	}
	if f, ok := toFloat(v); ok {
		return f == 0
	}
	return false
}

func kindOf(v any) valueKind {
	if IsNull(v) {
		return kindNull
	}
	switch v.(type) {
	case string:
		return kindString
	case bool:
		return kindBool
	case time.Time:
		return kindTime
	}
	if _, ok := toFloat(v); ok {
		return kindNumber
	}
	return kindOther
}

// number holds a numeric cell. Integers keep their exact magnitude so values beyond 2^53 stay
// distinct; f is only used against non-integral floats.
type number struct {
	f     float64
	isInt bool
	neg   bool
	mag   uint64
}

// intKey is the map key of an integral number.
type intKey struct {
	neg bool
	mag uint64
}

func signedNumber(i int64) number {
	if i < 0 {
		return number{f: float64(i), isInt: true, neg: true, mag: uint64(-(i + 1)) + 1}
	}
	return unsignedNumber(uint64(i))
}

func unsignedNumber(u uint64) number {
	return number{f: float64(u), isInt: true, mag: u}
}

// floatNumber treats integral floats inside the 64-bit range as integers so they match the
// integer cells they equal.
func floatNumber(f float64) number {
	if f == math.Trunc(f) && f >= -(1<<63) && f < 1<<64 {
		if f < 0 {
			return signedNumber(int64(f))
		}
		return unsignedNumber(uint64(f))
	}
	return number{f: f}
}

func toNumber(v any) (number, bool) {
	switch n := v.(type) {
	case int:
		return signedNumber(int64(n)), true
	case int8:
		return signedNumber(int64(n)), true
	case int16:
		return signedNumber(int64(n)), true
	case int32:
		return signedNumber(int64(n)), true
	case int64:
		return signedNumber(n), true
	case time.Duration:
		return signedNumber(int64(n)), true
	case uint:
		return unsignedNumber(uint64(n)), true
	case uint8:
		return unsignedNumber(uint64(n)), true
	case uint16:
		return unsignedNumber(uint64(n)), true
	case uint32:
		return unsignedNumber(uint64(n)), true
	case uint64:
		return unsignedNumber(n), true
	case float32:
		return floatNumber(float64(n)), true
	case float64:
		return floatNumber(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return signedNumber(i), true
		}
		if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
			return unsignedNumber(u), true
		}
		f, err := n.Float64()
		if err != nil {
			return number{}, false
		}
		return floatNumber(f), true
	}
	return number{}, false
}

func toFloat(v any) (float64, bool) {
	n, ok := toNumber(v)
	return n.f, ok
}

func (n number) compare(o number) int {
	if n.isInt && o.isInt {
		switch {
		case n.neg != o.neg:
			if n.neg {
				return -1
			}
			return 1
		case n.mag == o.mag:
			return 0
		case (n.mag < o.mag) != n.neg:
			return -1
		}
		return 1
	}
	switch {
	case n.f < o.f:
		return -1
	case n.f > o.f:
		return 1
	}
	return 0
}

func (n number) key() any {
	if n.isInt {
		return intKey{neg: n.neg, mag: n.mag}
	}
	return n.f
}

// Compare orders two cell values: numbers numerically, text lexicographically, false before true,
// times chronologically. Values of different kinds order by kind; nulls order after everything.
func Compare(a, b any) int {
	a, b = Indirect(a), Indirect(b)
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		if ka < kb {
			return -1
		}
		return 1
	}

	switch ka {
	case kindNull:
		return 0
	case kindNumber:
		na, _ := toNumber(a)
		nb, _ := toNumber(b)
		return na.compare(nb)
	case kindString:
		return strings.Compare(a.(string), b.(string))
	case kindBool:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	case kindTime:
		return a.(time.Time).Compare(b.(time.Time))
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// Equal is the exact match used by filters and facet de-duplication.
func Equal(a, b any) bool {
	a, b = Indirect(a), Indirect(b)
	if kindOf(a) != kindOf(b) {
		return false
	}
	return Compare(a, b) == 0
}

// Key returns a comparable key such that Equal(a, b) implies Key(a) == Key(b). It lets callers
// de-duplicate values in a map instead of pairwise comparisons.
func Key(v any) any {
	v = Indirect(v)
	switch kindOf(v) {
	case kindNull:
		return nil
	case kindNumber:
		n, _ := toNumber(v)
		return n.key()
	case kindTime:
		t := v.(time.Time)
		return t.UnixNano()
	case kindString, kindBool:
		return v
	}
	return "\x00" + fmt.Sprint(v)
}
