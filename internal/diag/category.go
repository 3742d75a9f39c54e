package diag

import (
	"fmt"
	"strings"
)

// Category buckets diagnostics into the classes fixture annotations name.
// Tools disagree on codes and phrasing; the category is the common currency
// expectations are matched in.
type Category uint8

const (
	CatOther Category = iota
	CatSyntax
	CatTypeMismatch
	CatUnresolved
	CatBorrow
	CatMove
	CatLifetime
	CatNonExhaustive
	CatUnused
	CatUnreachable
)

var categoryNames = [...]string{
	CatOther:         "other",
	CatSyntax:        "syntax",
	CatTypeMismatch:  "type-mismatch",
	CatUnresolved:    "unresolved",
	CatBorrow:        "borrow",
	CatMove:          "use-after-move",
	CatLifetime:      "lifetime",
	CatNonExhaustive: "non-exhaustive",
	CatUnused:        "unused",
	CatUnreachable:   "unreachable",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "other"
}

// Categories returns all known categories in declaration order.
func Categories() []Category {
	out := make([]Category, len(categoryNames))
	for i := range categoryNames {
		out[i] = Category(i)
	}
	return out
}

// ParseCategory accepts the kebab-case names plus a few common aliases used
// in annotation tags.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "other":
		return CatOther, nil
	case "syntax":
		return CatSyntax, nil
	case "type-mismatch", "type", "types":
		return CatTypeMismatch, nil
	case "unresolved", "undefined":
		return CatUnresolved, nil
	case "borrow", "borrowck":
		return CatBorrow, nil
	case "use-after-move", "move", "moved":
		return CatMove, nil
	case "lifetime", "lifetimes":
		return CatLifetime, nil
	case "non-exhaustive", "exhaustive", "match":
		return CatNonExhaustive, nil
	case "unused":
		return CatUnused, nil
	case "unreachable":
		return CatUnreachable, nil
	}
	return CatOther, fmt.Errorf("unknown category %q", s)
}

// InferCategory guesses the category from the free text of an expectation
// hint. Order matters: "borrow of moved value" must land in use-after-move,
// not borrow, and parser phrases like "expected one of" must not be taken
// for type mismatches.
func InferCategory(hint string) Category {
	h := strings.ToLower(hint)
	has := func(subs ...string) bool {
		for _, s := range subs {
			if strings.Contains(h, s) {
				return true
			}
		}
		return false
	}

	switch {
	case has("moved value", "use after move", "use of moved", "value moved"):
		return CatMove
	case has("cannot borrow", "borrow", "mutable while"):
		return CatBorrow
	case has("lifetime"):
		return CatLifetime
	case has("non-exhaustive", "not exhaustive", "missing match arm"):
		return CatNonExhaustive
	case has("unreachable"):
		return CatUnreachable
	case has("unused", "never used", "never read", "not used"):
		return CatUnused
	case has("undefined", "unresolved", "not found in this scope", "cannot find", "undeclared"):
		return CatUnresolved
	case has("expected one of", "unclosed", "unexpected token", "invalid syntax"):
		return CatSyntax
	case has("mismatched types", "type mismatch", "type error", "cannot use",
		"not assignable", " is not ", "incompatible") ||
		(has("expected") && has("found")):
		return CatTypeMismatch
	}
	return CatOther
}
