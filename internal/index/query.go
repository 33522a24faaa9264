package index

import "regexp"

// Predicate is a condition on the values of one or more indices.
//
// This is a sealed interface; only types in this package implement it.
// Every leaf predicate names the index it reads and needs one feature on
// that index. A multi-valued index satisfies a leaf predicate when any of
// its values does.
type Predicate interface {
	predicateNode()
}

// Equals matches values equal to Value. Needs EQ.
type Equals struct {
	Index string
	Value any
}

// In matches values equal to any of Values. Needs IN.
type In struct {
	Index  string
	Values []any
}

// LessThan matches values strictly below Value. Needs LT.
type LessThan struct {
	Index string
	Value any
}

// GreaterThan matches values strictly above Value. Needs GT.
type GreaterThan struct {
	Index string
	Value any
}

// Between matches values in [Low, High]. Needs BT.
type Between struct {
	Index     string
	Low, High any
}

// StartsWith matches string values with the given prefix. Needs SW.
type StartsWith struct {
	Index  string
	Prefix string
}

// EndsWith matches string values with the given suffix. Needs EW.
type EndsWith struct {
	Index  string
	Suffix string
}

// Contains matches string values containing Substring. Needs SC.
type Contains struct {
	Index     string
	Substring string
}

// ContainedIn matches string values that occur inside Text. Needs CI.
type ContainedIn struct {
	Index string
	Text  string
}

// Matches matches string values against Pattern. Needs RX.
type Matches struct {
	Index   string
	Pattern *regexp.Regexp
}

// And matches when every predicate matches. An empty And matches everything.
type And struct {
	Predicates []Predicate
}

func (Equals) predicateNode()      {}
func (In) predicateNode()          {}
func (LessThan) predicateNode()    {}
func (GreaterThan) predicateNode() {}
func (Between) predicateNode()     {}
func (StartsWith) predicateNode()  {}
func (EndsWith) predicateNode()    {}
func (Contains) predicateNode()    {}
func (ContainedIn) predicateNode() {}
func (Matches) predicateNode()     {}
func (And) predicateNode()         {}

// leaf returns the index and feature a leaf predicate needs.
// ok is false for And and unknown predicates.
func leaf(p Predicate) (index string, feature Feature, ok bool) {
	switch p := p.(type) {
	case Equals:
		return p.Index, EQ, true
	case In:
		return p.Index, IN, true
	case LessThan:
		return p.Index, LT, true
	case GreaterThan:
		return p.Index, GT, true
	case Between:
		return p.Index, BT, true
	case StartsWith:
		return p.Index, SW, true
	case EndsWith:
		return p.Index, EW, true
	case Contains:
		return p.Index, SC, true
	case ContainedIn:
		return p.Index, CI, true
	case Matches:
		return p.Index, RX, true
	default:
		return "", "", false
	}
}
