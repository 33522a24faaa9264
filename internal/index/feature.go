package index

import (
	"fmt"
	"reflect"
	"time"
)

// Feature is a query capability an index declares.
type Feature string

const (
	Unique Feature = "UNIQUE" // no two instances share a value
	EQ     Feature = "EQ"     // equal to
	IN     Feature = "IN"     // one of
	LT     Feature = "LT"     // less than
	GT     Feature = "GT"     // greater than
	BT     Feature = "BT"     // between, inclusive
	SW     Feature = "SW"     // starts with
	EW     Feature = "EW"     // ends with
	SC     Feature = "SC"     // string contains
	CI     Feature = "CI"     // contained in
	RX     Feature = "RX"     // matches regular expression
)

// Features lists every known feature in declaration order.
var Features = []Feature{Unique, EQ, IN, LT, GT, BT, SW, EW, SC, CI, RX}

// ParseFeature returns the feature named s.
func ParseFeature(s string) (Feature, error) {
	for _, f := range Features {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown index feature %q", s)
}

// requires reports the value kind a feature needs, or "" if any
// comparable value will do.
func (f Feature) requires() string {
	switch f {
	case LT, GT, BT:
		return "ordered"
	case SW, EW, SC, CI, RX:
		return "string"
	default:
		return ""
	}
}

// supports reports whether values of type t can back feature f.
func (f Feature) supports(t reflect.Type) bool {
	switch f.requires() {
	case "ordered":
		return ordered(t)
	case "string":
		return t.Kind() == reflect.String
	default:
		return true
	}
}

var timeType = reflect.TypeFor[time.Time]()

func ordered(t reflect.Type) bool {
	if t == timeType {
		return true
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return true
	default:
		return false
	}
}
