package primitive

import "fmt"

// Iterable is a homogeneous sequence tagged by its element kind, or Anys as
// a last resort for heterogeneous content. It is backed by a plain
// []Primitive; ElemKind records what every element is promised to be.
type Iterable struct {
	ElemKind Kind
	Anys     bool
	Values   []Primitive
}

func (it Iterable) Kind() Kind {
	if it.Anys {
		return Iterable_(Simple(KindAny))
	}
	return Iterable_(it.ElemKind)
}

func Iterable_(elem Kind) Kind { return Iterable(elem) }

func (it Iterable) String() string {
	s := "["
	for i, p := range it.Values {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	return s + "]"
}

func (it Iterable) Len() int { return len(it.Values) }

// sameKind reports whether two kinds are the "same declared type" for the
// purpose of homogeneous-iterable collapse: numeric kinds are distinguished
// (a PositiveInteger iterable is not a Number iterable) but recursively
// nested iterable/tuple kinds compare structurally.
func sameKind(a, b Kind) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case KindIterable:
		if a.Elem == nil || b.Elem == nil {
			return a.Elem == b.Elem
		}
		return sameKind(*a.Elem, *b.Elem)
	case KindTuple:
		if len(a.Tuple) != len(b.Tuple) {
			return false
		}
		for i := range a.Tuple {
			if !sameKind(a.Tuple[i], b.Tuple[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// FlattenPrimitiveArray collapses a slice of primitives into a single
// homogeneous Iterable when every element shares a Kind, or into an Anys
// iterable otherwise.
func FlattenPrimitiveArray(vs []Primitive) Iterable {
	if len(vs) == 0 {
		return Iterable{ElemKind: Simple(KindAny), Anys: true, Values: vs}
	}
	first := vs[0].Kind()
	for _, v := range vs[1:] {
		if !sameKind(first, v.Kind()) {
			return Iterable{ElemKind: Simple(KindAny), Anys: true, Values: vs}
		}
	}
	return Iterable{ElemKind: first, Values: vs}
}

// Spread implements the spreading rules used by tuple-pattern destructuring:
// tuples spread positionally, edges spread to [from, weight_or_1, to],
// everything else is unspreadable.
func Spread(p Primitive) ([]Primitive, error) {
	switch v := p.(type) {
	case Tuple:
		return []Primitive(v), nil
	case GraphEdge:
		return []Primitive{String(v.From), Number(v.WeightOr1()), String(v.To)}, nil
	default:
		return nil, fmt.Errorf("%s is not spreadable", p.Kind())
	}
}

// Read follows nested iterables left to right, one index per level.
func Read(p Primitive, indices []int) (Primitive, error) {
	cur := p
	for _, idx := range indices {
		it, ok := cur.(Iterable)
		if !ok {
			return nil, fmt.Errorf("cannot index into %s", cur.Kind())
		}
		if idx < 0 || idx >= len(it.Values) {
			return nil, fmt.Errorf("index %d out of bounds (len %d)", idx, len(it.Values))
		}
		cur = it.Values[idx]
	}
	return cur, nil
}
