// Package stdlib is the builtin function table available to every model:
// len, enumerate, zip, range, the graph accessors (nodes/edges/neigh_edges),
// and the set operations (difference/union/intersection). Each builtin
// implements the BuiltinFunction interface so the type checker can validate
// a call shape without evaluating it, mirroring the interface-based
// polymorphism the rest of this module uses for tagged-union dispatch.
package stdlib

import (
	"fmt"
	"sort"

	"optex/internal/primitive"
)

// BuiltinFunction is implemented by every entry in the standard function
// table. TypeCheck must be callable with only the argument Kinds, before any
// value is known, so the type checker can validate a call site.
type BuiltinFunction interface {
	Name() string
	TypeCheck(args []primitive.Kind) (primitive.Kind, error)
	Call(args []primitive.Primitive) (primitive.Primitive, error)
}

// Table is a name-indexed, process-wide immutable set of builtins.
type Table struct {
	fns map[string]BuiltinFunction
}

// Lookup returns the builtin registered under name, if any.
func (t Table) Lookup(name string) (BuiltinFunction, bool) {
	fn, ok := t.fns[name]
	return fn, ok
}

// IsReserved reports whether name collides with a builtin, for use when
// checking user-declared constant/domain names.
func (t Table) IsReserved(name string) bool {
	_, ok := t.fns[name]
	return ok
}

var std = build()

// Std returns the process-wide standard function table.
func Std() Table { return std }

func build() Table {
	fns := []BuiltinFunction{
		lenFn{}, enumerateFn{}, zipFn{}, rangeFn{},
		nodesFn{}, edgesFn{}, neighEdgesFn{},
		differenceFn{}, unionFn{}, intersectionFn{},
	}
	m := make(map[string]BuiltinFunction, len(fns))
	for _, fn := range fns {
		m[fn.Name()] = fn
	}
	// neigh_edges_of is an alias accepted alongside neigh_edges.
	m["neigh_edges_of"] = neighEdgesFn{}
	return Table{fns: m}
}

func argCountError(name string, want, got int) error {
	return fmt.Errorf("%s expects %d argument(s), got %d", name, want, got)
}

func asIterable(name string, p primitive.Primitive) (primitive.Iterable, error) {
	it, ok := p.(primitive.Iterable)
	if !ok {
		return primitive.Iterable{}, fmt.Errorf("%s expects an iterable argument, got %s", name, p.Kind())
	}
	return it, nil
}

func asGraph(name string, p primitive.Primitive) (primitive.Graph, error) {
	g, ok := p.(primitive.Graph)
	if !ok {
		return primitive.Graph{}, fmt.Errorf("%s expects a Graph argument, got %s", name, p.Kind())
	}
	return g, nil
}

// --- len ---

type lenFn struct{}

func (lenFn) Name() string { return "len" }

func (lenFn) TypeCheck(args []primitive.Kind) (primitive.Kind, error) {
	if len(args) != 1 {
		return primitive.Kind{}, argCountError("len", 1, len(args))
	}
	if args[0].Tag != primitive.KindIterable {
		return primitive.Kind{}, fmt.Errorf("len expects an iterable, got %s", args[0])
	}
	return primitive.Simple(primitive.KindPositiveInteger), nil
}

func (lenFn) Call(args []primitive.Primitive) (primitive.Primitive, error) {
	if len(args) != 1 {
		return nil, argCountError("len", 1, len(args))
	}
	it, err := asIterable("len", args[0])
	if err != nil {
		return nil, err
	}
	return primitive.PositiveInteger(it.Len()), nil
}

// --- range ---

type rangeFn struct{}

func (rangeFn) Name() string { return "range" }

func (rangeFn) TypeCheck(args []primitive.Kind) (primitive.Kind, error) {
	if len(args) != 1 && len(args) != 2 {
		return primitive.Kind{}, fmt.Errorf("range expects 1 or 2 arguments, got %d", len(args))
	}
	for _, a := range args {
		if a.Tag != primitive.KindInteger && a.Tag != primitive.KindPositiveInteger {
			return primitive.Kind{}, fmt.Errorf("range expects integer bounds, got %s", a)
		}
	}
	return primitive.Iterable(primitive.Simple(primitive.KindInteger)), nil
}

func (rangeFn) Call(args []primitive.Primitive) (primitive.Primitive, error) {
	var lo, hi int64
	switch len(args) {
	case 1:
		h, err := primitive.AsInteger(args[0])
		if err != nil {
			return nil, err
		}
		lo, hi = 0, h
	case 2:
		l, err := primitive.AsInteger(args[0])
		if err != nil {
			return nil, err
		}
		h, err := primitive.AsInteger(args[1])
		if err != nil {
			return nil, err
		}
		lo, hi = l, h
	default:
		return nil, fmt.Errorf("range expects 1 or 2 arguments, got %d", len(args))
	}
	var vals []primitive.Primitive
	for i := lo; i < hi; i++ {
		vals = append(vals, primitive.Integer(i))
	}
	return primitive.FlattenPrimitiveArray(vals), nil
}

// --- enumerate ---

type enumerateFn struct{}

func (enumerateFn) Name() string { return "enumerate" }

func (enumerateFn) TypeCheck(args []primitive.Kind) (primitive.Kind, error) {
	if len(args) != 1 {
		return primitive.Kind{}, argCountError("enumerate", 1, len(args))
	}
	if args[0].Tag != primitive.KindIterable {
		return primitive.Kind{}, fmt.Errorf("enumerate expects an iterable, got %s", args[0])
	}
	elem := primitive.Simple(primitive.KindAny)
	if args[0].Elem != nil {
		elem = *args[0].Elem
	}
	pair := primitive.TupleKind(primitive.Simple(primitive.KindPositiveInteger), elem)
	return primitive.Iterable(pair), nil
}

func (enumerateFn) Call(args []primitive.Primitive) (primitive.Primitive, error) {
	if len(args) != 1 {
		return nil, argCountError("enumerate", 1, len(args))
	}
	it, err := asIterable("enumerate", args[0])
	if err != nil {
		return nil, err
	}
	vals := make([]primitive.Primitive, len(it.Values))
	for i, v := range it.Values {
		vals[i] = primitive.Tuple{primitive.PositiveInteger(i), v}
	}
	return primitive.FlattenPrimitiveArray(vals), nil
}

// --- zip ---

type zipFn struct{}

func (zipFn) Name() string { return "zip" }

func (zipFn) TypeCheck(args []primitive.Kind) (primitive.Kind, error) {
	if len(args) < 2 {
		return primitive.Kind{}, fmt.Errorf("zip expects at least 2 arguments, got %d", len(args))
	}
	elems := make([]primitive.Kind, len(args))
	for i, a := range args {
		if a.Tag != primitive.KindIterable {
			return primitive.Kind{}, fmt.Errorf("zip expects iterable arguments, got %s at position %d", a, i)
		}
		if a.Elem != nil {
			elems[i] = *a.Elem
		} else {
			elems[i] = primitive.Simple(primitive.KindAny)
		}
	}
	return primitive.Iterable(primitive.TupleKind(elems...)), nil
}

func (zipFn) Call(args []primitive.Primitive) (primitive.Primitive, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("zip expects at least 2 arguments, got %d", len(args))
	}
	its := make([]primitive.Iterable, len(args))
	n := -1
	for i, a := range args {
		it, err := asIterable("zip", a)
		if err != nil {
			return nil, err
		}
		its[i] = it
		if n == -1 || it.Len() < n {
			n = it.Len()
		}
	}
	vals := make([]primitive.Primitive, 0, n)
	for i := 0; i < n; i++ {
		row := make(primitive.Tuple, len(its))
		for j, it := range its {
			row[j] = it.Values[i]
		}
		vals = append(vals, row)
	}
	return primitive.FlattenPrimitiveArray(vals), nil
}

// --- nodes ---

type nodesFn struct{}

func (nodesFn) Name() string { return "nodes" }

func (nodesFn) TypeCheck(args []primitive.Kind) (primitive.Kind, error) {
	if len(args) != 1 || args[0].Tag != primitive.KindGraph {
		return primitive.Kind{}, fmt.Errorf("nodes expects a single Graph argument")
	}
	return primitive.Iterable(primitive.Simple(primitive.KindGraphNode)), nil
}

func (nodesFn) Call(args []primitive.Primitive) (primitive.Primitive, error) {
	if len(args) != 1 {
		return nil, argCountError("nodes", 1, len(args))
	}
	g, err := asGraph("nodes", args[0])
	if err != nil {
		return nil, err
	}
	ns := g.Nodes()
	vals := make([]primitive.Primitive, len(ns))
	for i, n := range ns {
		vals[i] = n
	}
	return primitive.FlattenPrimitiveArray(vals), nil
}

// --- edges ---

type edgesFn struct{}

func (edgesFn) Name() string { return "edges" }

func (edgesFn) TypeCheck(args []primitive.Kind) (primitive.Kind, error) {
	if len(args) != 1 || args[0].Tag != primitive.KindGraph {
		return primitive.Kind{}, fmt.Errorf("edges expects a single Graph argument")
	}
	return primitive.Iterable(primitive.Simple(primitive.KindGraphEdge)), nil
}

func (edgesFn) Call(args []primitive.Primitive) (primitive.Primitive, error) {
	if len(args) != 1 {
		return nil, argCountError("edges", 1, len(args))
	}
	g, err := asGraph("edges", args[0])
	if err != nil {
		return nil, err
	}
	es := g.Edges()
	vals := make([]primitive.Primitive, len(es))
	for i, e := range es {
		vals[i] = e
	}
	return primitive.FlattenPrimitiveArray(vals), nil
}

// --- neigh_edges / neigh_edges_of ---

type neighEdgesFn struct{}

func (neighEdgesFn) Name() string { return "neigh_edges" }

func (neighEdgesFn) TypeCheck(args []primitive.Kind) (primitive.Kind, error) {
	if len(args) != 2 || args[0].Tag != primitive.KindGraph {
		return primitive.Kind{}, fmt.Errorf("neigh_edges expects (Graph, GraphNode|String)")
	}
	if args[1].Tag != primitive.KindGraphNode && args[1].Tag != primitive.KindString {
		return primitive.Kind{}, fmt.Errorf("neigh_edges expects a GraphNode or String as its second argument, got %s", args[1])
	}
	return primitive.Iterable(primitive.Simple(primitive.KindGraphEdge)), nil
}

func (neighEdgesFn) Call(args []primitive.Primitive) (primitive.Primitive, error) {
	if len(args) != 2 {
		return nil, argCountError("neigh_edges", 2, len(args))
	}
	g, err := asGraph("neigh_edges", args[0])
	if err != nil {
		return nil, err
	}
	name, err := nodeName(args[1])
	if err != nil {
		return nil, err
	}
	es, err := g.NeighborEdges(name)
	if err != nil {
		return nil, err
	}
	vals := make([]primitive.Primitive, len(es))
	for i, e := range es {
		vals[i] = e
	}
	return primitive.FlattenPrimitiveArray(vals), nil
}

func nodeName(p primitive.Primitive) (string, error) {
	switch v := p.(type) {
	case primitive.GraphNode:
		return v.Name, nil
	case primitive.String:
		return string(v), nil
	default:
		return "", fmt.Errorf("expected a GraphNode or String, got %s", p.Kind())
	}
}

// --- set operations: difference, union, intersection ---
//
// These operate on iterables by comparing element string forms, since
// FormatForName already gives every comparable primitive a stable key.

type differenceFn struct{}

func (differenceFn) Name() string { return "difference" }

func (differenceFn) TypeCheck(args []primitive.Kind) (primitive.Kind, error) {
	return setOpTypeCheck("difference", args)
}

func (differenceFn) Call(args []primitive.Primitive) (primitive.Primitive, error) {
	a, b, err := setOpArgs("difference", args)
	if err != nil {
		return nil, err
	}
	exclude, err := keySet(b.Values)
	if err != nil {
		return nil, err
	}
	var out []primitive.Primitive
	for _, v := range a.Values {
		k, err := primitive.FormatForName(v)
		if err != nil {
			return nil, err
		}
		if !exclude[k] {
			out = append(out, v)
		}
	}
	return primitive.FlattenPrimitiveArray(out), nil
}

type unionFn struct{}

func (unionFn) Name() string { return "union" }

func (unionFn) TypeCheck(args []primitive.Kind) (primitive.Kind, error) {
	return setOpTypeCheck("union", args)
}

func (unionFn) Call(args []primitive.Primitive) (primitive.Primitive, error) {
	a, b, err := setOpArgs("union", args)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []primitive.Primitive
	for _, v := range append(append([]primitive.Primitive{}, a.Values...), b.Values...) {
		k, err := primitive.FormatForName(v)
		if err != nil {
			return nil, err
		}
		if !seen[k] {
			seen[k] = true
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return primitive.FlattenPrimitiveArray(out), nil
}

type intersectionFn struct{}

func (intersectionFn) Name() string { return "intersection" }

func (intersectionFn) TypeCheck(args []primitive.Kind) (primitive.Kind, error) {
	return setOpTypeCheck("intersection", args)
}

func (intersectionFn) Call(args []primitive.Primitive) (primitive.Primitive, error) {
	a, b, err := setOpArgs("intersection", args)
	if err != nil {
		return nil, err
	}
	inB, err := keySet(b.Values)
	if err != nil {
		return nil, err
	}
	var out []primitive.Primitive
	for _, v := range a.Values {
		k, err := primitive.FormatForName(v)
		if err != nil {
			return nil, err
		}
		if inB[k] {
			out = append(out, v)
		}
	}
	return primitive.FlattenPrimitiveArray(out), nil
}

func setOpTypeCheck(name string, args []primitive.Kind) (primitive.Kind, error) {
	if len(args) != 2 {
		return primitive.Kind{}, argCountError(name, 2, len(args))
	}
	if args[0].Tag != primitive.KindIterable || args[1].Tag != primitive.KindIterable {
		return primitive.Kind{}, fmt.Errorf("%s expects two iterable arguments", name)
	}
	return args[0], nil
}

func setOpArgs(name string, args []primitive.Primitive) (primitive.Iterable, primitive.Iterable, error) {
	if len(args) != 2 {
		return primitive.Iterable{}, primitive.Iterable{}, argCountError(name, 2, len(args))
	}
	a, err := asIterable(name, args[0])
	if err != nil {
		return primitive.Iterable{}, primitive.Iterable{}, err
	}
	b, err := asIterable(name, args[1])
	if err != nil {
		return primitive.Iterable{}, primitive.Iterable{}, err
	}
	return a, b, nil
}

func keySet(vs []primitive.Primitive) (map[string]bool, error) {
	m := make(map[string]bool, len(vs))
	for _, v := range vs {
		k, err := primitive.FormatForName(v)
		if err != nil {
			return nil, err
		}
		m[k] = true
	}
	return m, nil
}
