package xpath

import (
	"fmt"
	"math"
	"strings"

	"github.com/midbel/xsltc/xml"
)

type BuiltinFunc func(Context, []Expr) (Sequence, error)

var builtins map[string]BuiltinFunc

func init() {
	builtins = map[string]BuiltinFunc{
		"position":         callPosition,
		"last":             callLast,
		"count":            callCount,
		"not":              callNot,
		"true":             callTrue,
		"false":            callFalse,
		"boolean":          callBoolean,
		"string":           callString,
		"number":           callNumber,
		"concat":           callConcat,
		"contains":         callContains,
		"starts-with":      callStartsWith,
		"substring-before": callSubstringBefore,
		"substring-after":  callSubstringAfter,
		"string-length":    callStringLength,
		"normalize-space":  callNormalizeSpace,
		"name":             callName,
		"local-name":       callLocalName,
		"namespace-uri":    callNamespaceUri,
		"sum":              callSum,
		"floor":            callFloor,
		"ceiling":          callCeiling,
		"round":            callRound,
		"id":               callId,
		"key":              callKey,
		"current":          callCurrent,
	}
}

// IsBuiltin reports whether a function with the given name is defined.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

func checkArity(name string, args []Expr, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		return fmt.Errorf("%s: %w", name, ErrArgument)
	}
	return nil
}

func evalArg(ctx Context, args []Expr, i int) (Sequence, error) {
	if i >= len(args) {
		return Singleton(ctx.Node), nil
	}
	return args[i].find(ctx)
}

func stringArg(ctx Context, args []Expr, i int) (string, error) {
	seq, err := evalArg(ctx, args, i)
	if err != nil {
		return "", err
	}
	return StringValue(seq), nil
}

func nodeArg(ctx Context, args []Expr) (xml.Node, error) {
	seq, err := evalArg(ctx, args, 0)
	if err != nil || seq.Empty() {
		return nil, err
	}
	if seq[0].Atomic() {
		return nil, fmt.Errorf("%w: node expected", ErrType)
	}
	return seq[0].Node(), nil
}

func callPosition(ctx Context, args []Expr) (Sequence, error) {
	if err := checkArity("position", args, 0, 0); err != nil {
		return nil, err
	}
	return Singleton(ctx.Index), nil
}

func callLast(ctx Context, args []Expr) (Sequence, error) {
	if err := checkArity("last", args, 0, 0); err != nil {
		return nil, err
	}
	return Singleton(ctx.Size), nil
}

func callCount(ctx Context, args []Expr) (Sequence, error) {
	if err := checkArity("count", args, 1, 1); err != nil {
		return nil, err
	}
	seq, err := args[0].find(ctx)
	if err != nil {
		return nil, err
	}
	return Singleton(seq.Len()), nil
}

func callNot(ctx Context, args []Expr) (Sequence, error) {
	if err := checkArity("not", args, 1, 1); err != nil {
		return nil, err
	}
	seq, err := args[0].find(ctx)
	if err != nil {
		return nil, err
	}
	return Singleton(!seq.True()), nil
}

func callTrue(_ Context, args []Expr) (Sequence, error) {
	if err := checkArity("true", args, 0, 0); err != nil {
		return nil, err
	}
	return Singleton(true), nil
}

func callFalse(_ Context, args []Expr) (Sequence, error) {
	if err := checkArity("false", args, 0, 0); err != nil {
		return nil, err
	}
	return Singleton(false), nil
}

func callBoolean(ctx Context, args []Expr) (Sequence, error) {
	if err := checkArity("boolean", args, 1, 1); err != nil {
		return nil, err
	}
	seq, err := args[0].find(ctx)
	if err != nil {
		return nil, err
	}
	return Singleton(seq.True()), nil
}

func callString(ctx Context, args []Expr) (Sequence, error) {
	if err := checkArity("string", args, 0, 1); err != nil {
		return nil, err
	}
	str, err := stringArg(ctx, args, 0)
	if err != nil {
		return nil, err
	}
	return Singleton(str), nil
}

func callNumber(ctx Context, args []Expr) (Sequence, error) {
	if err := checkArity("number", args, 0, 1); err != nil {
		return nil, err
	}
	seq, err := evalArg(ctx, args, 0)
	if err != nil {
		return nil, err
	}
	return Singleton(NumberValue(seq)), nil
}

func callConcat(ctx Context, args []Expr) (Sequence, error) {
	if err := checkArity("concat", args, 2, -1); err != nil {
		return nil, err
	}
	var str strings.Builder
	for i := range args {
		s, err := stringArg(ctx, args, i)
		if err != nil {
			return nil, err
		}
		str.WriteString(s)
	}
	return Singleton(str.String()), nil
}

func stringPair(ctx Context, name string, args []Expr) (string, string, error) {
	if err := checkArity(name, args, 2, 2); err != nil {
		return "", "", err
	}
	left, err := stringArg(ctx, args, 0)
	if err != nil {
		return "", "", err
	}
	right, err := stringArg(ctx, args, 1)
	return left, right, err
}

func callContains(ctx Context, args []Expr) (Sequence, error) {
	str, sub, err := stringPair(ctx, "contains", args)
	if err != nil {
		return nil, err
	}
	return Singleton(strings.Contains(str, sub)), nil
}

func callStartsWith(ctx Context, args []Expr) (Sequence, error) {
	str, prefix, err := stringPair(ctx, "starts-with", args)
	if err != nil {
		return nil, err
	}
	return Singleton(strings.HasPrefix(str, prefix)), nil
}

func callSubstringBefore(ctx Context, args []Expr) (Sequence, error) {
	str, sep, err := stringPair(ctx, "substring-before", args)
	if err != nil {
		return nil, err
	}
	before, _, ok := strings.Cut(str, sep)
	if !ok {
		before = ""
	}
	return Singleton(before), nil
}

func callSubstringAfter(ctx Context, args []Expr) (Sequence, error) {
	str, sep, err := stringPair(ctx, "substring-after", args)
	if err != nil {
		return nil, err
	}
	_, after, _ := strings.Cut(str, sep)
	return Singleton(after), nil
}

func callStringLength(ctx Context, args []Expr) (Sequence, error) {
	if err := checkArity("string-length", args, 0, 1); err != nil {
		return nil, err
	}
	str, err := stringArg(ctx, args, 0)
	if err != nil {
		return nil, err
	}
	return Singleton(len([]rune(str))), nil
}

func callNormalizeSpace(ctx Context, args []Expr) (Sequence, error) {
	if err := checkArity("normalize-space", args, 0, 1); err != nil {
		return nil, err
	}
	str, err := stringArg(ctx, args, 0)
	if err != nil {
		return nil, err
	}
	return Singleton(strings.Join(strings.Fields(str), " ")), nil
}

func callName(ctx Context, args []Expr) (Sequence, error) {
	if err := checkArity("name", args, 0, 1); err != nil {
		return nil, err
	}
	n, err := nodeArg(ctx, args)
	if err != nil || n == nil {
		return Singleton(""), err
	}
	return Singleton(n.QualifiedName()), nil
}

func callLocalName(ctx Context, args []Expr) (Sequence, error) {
	if err := checkArity("local-name", args, 0, 1); err != nil {
		return nil, err
	}
	n, err := nodeArg(ctx, args)
	if err != nil || n == nil {
		return Singleton(""), err
	}
	return Singleton(n.LocalName()), nil
}

func callNamespaceUri(ctx Context, args []Expr) (Sequence, error) {
	if err := checkArity("namespace-uri", args, 0, 1); err != nil {
		return nil, err
	}
	n, err := nodeArg(ctx, args)
	if err != nil || n == nil {
		return Singleton(""), err
	}
	qn, _ := xml.NameOf(n)
	return Singleton(qn.Uri), nil
}

func callSum(ctx Context, args []Expr) (Sequence, error) {
	if err := checkArity("sum", args, 1, 1); err != nil {
		return nil, err
	}
	seq, err := args[0].find(ctx)
	if err != nil {
		return nil, err
	}
	var total float64
	for _, i := range seq {
		total += toNumber(i.Value())
	}
	return Singleton(total), nil
}

func numericCall(name string, fn func(float64) float64) BuiltinFunc {
	return func(ctx Context, args []Expr) (Sequence, error) {
		if err := checkArity(name, args, 1, 1); err != nil {
			return nil, err
		}
		seq, err := args[0].find(ctx)
		if err != nil {
			return nil, err
		}
		return Singleton(fn(NumberValue(seq))), nil
	}
}

var (
	callFloor   = numericCall("floor", math.Floor)
	callCeiling = numericCall("ceiling", math.Ceil)
	callRound   = numericCall("round", func(f float64) float64 {
		return math.Floor(f + 0.5)
	})
)

func callId(ctx Context, args []Expr) (Sequence, error) {
	if err := checkArity("id", args, 1, 1); err != nil {
		return nil, err
	}
	seq, err := args[0].find(ctx)
	if err != nil {
		return nil, err
	}
	doc, ok := xml.Root(ctx.Node).(*xml.Document)
	if !ok {
		return nil, nil
	}
	var list Sequence
	for _, str := range seq.Strings() {
		for _, id := range strings.Fields(str) {
			if el := doc.GetElementById(id); el != nil {
				list.Append(createNode(el))
			}
		}
	}
	return list.Unique(), nil
}

func callKey(ctx Context, args []Expr) (Sequence, error) {
	if err := checkArity("key", args, 2, 2); err != nil {
		return nil, err
	}
	if ctx.Keys == nil {
		return nil, fmt.Errorf("key: %w: no keys available", ErrUndefined)
	}
	name, err := stringArg(ctx, args, 0)
	if err != nil {
		return nil, err
	}
	seq, err := args[1].find(ctx)
	if err != nil {
		return nil, err
	}
	var list Sequence
	for _, value := range seq.Strings() {
		nodes, err := ctx.Keys.Lookup(name, value, ctx.Node)
		if err != nil {
			return nil, err
		}
		list.Concat(FromNodes(nodes))
	}
	return list.Unique(), nil
}

func callCurrent(ctx Context, args []Expr) (Sequence, error) {
	if err := checkArity("current", args, 0, 0); err != nil {
		return nil, err
	}
	if ctx.Current == nil {
		return nil, nil
	}
	return Singleton(ctx.Current), nil
}
