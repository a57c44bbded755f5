package xpath

// IsPositional reports whether the value of expr, used as a predicate,
// depends on the position or the size of the context. This is the case when
// it calls position() or last() outside of a nested predicate, or when its
// result may be a number.
func IsPositional(expr Expr) bool {
	if maybeNumeric(expr) {
		return true
	}
	return usesContext(expr)
}

// UsesVariables reports whether expr references a variable, nested
// predicates included.
func UsesVariables(expr Expr) bool {
	switch e := expr.(type) {
	case identifier:
		return true
	case step:
		return UsesVariables(e.curr) || UsesVariables(e.next)
	case axis:
		return anyOf(e.predicates, UsesVariables)
	case filter:
		return UsesVariables(e.expr) || anyOf(e.predicates, UsesVariables)
	case reverse:
		return UsesVariables(e.expr)
	case union:
		return UsesVariables(e.left) || UsesVariables(e.right)
	case binary:
		return UsesVariables(e.left) || UsesVariables(e.right)
	case call:
		return anyOf(e.args, UsesVariables)
	default:
		return false
	}
}

// Calls reports whether expr calls the named function.
func Calls(expr Expr, name string) bool {
	var test func(Expr) bool
	test = func(expr Expr) bool {
		switch e := expr.(type) {
		case step:
			return test(e.curr) || test(e.next)
		case axis:
			return anyOf(e.predicates, test)
		case filter:
			return test(e.expr) || anyOf(e.predicates, test)
		case reverse:
			return test(e.expr)
		case union:
			return test(e.left) || test(e.right)
		case binary:
			return test(e.left) || test(e.right)
		case call:
			return e.ident == name || anyOf(e.args, test)
		default:
			return false
		}
	}
	return test(expr)
}

func usesContext(expr Expr) bool {
	switch e := expr.(type) {
	case call:
		if e.ident == "position" || e.ident == "last" {
			return true
		}
		return anyOf(e.args, usesContext)
	case step:
		return usesContext(e.curr)
	case filter:
		return usesContext(e.expr)
	case reverse:
		return usesContext(e.expr)
	case union:
		return usesContext(e.left) || usesContext(e.right)
	case binary:
		return usesContext(e.left) || usesContext(e.right)
	default:
		return false
	}
}

func maybeNumeric(expr Expr) bool {
	switch e := expr.(type) {
	case number, reverse, identifier:
		return true
	case filter:
		_, ok := e.expr.(identifier)
		return ok
	case binary:
		switch e.op {
		case opAdd, opSub, opMul, opDiv, opMod:
			return true
		default:
			return false
		}
	case call:
		switch e.ident {
		case "position", "last", "count", "number", "sum", "floor", "ceiling", "round", "string-length":
			return true
		default:
			return false
		}
	default:
		return false
	}
}

func anyOf(list []Expr, test func(Expr) bool) bool {
	for _, e := range list {
		if test(e) {
			return true
		}
	}
	return false
}
