// internal/problem/hash.go
package problem

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/cespare/xxhash/v2"
)

// StructuralHash fingerprints an element while ignoring identity attributes.
// Any attribute whose key ends in "id" or equals "size" is stripped from a
// copy of the subtree before it is serialized and hashed. Keys are matched
// case-sensitively, so "valid" and "grid" are stripped too.
func StructuralHash(el *etree.Element) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(Canonical(el)))
}

// ShapeHash is StructuralHash of el with every input element removed. Two
// responses share a shape when they differ at most in their answer slots.
func ShapeHash(el *etree.Element) string {
	if el == nil {
		return StructuralHash(nil)
	}
	bare := el.Copy()
	removeInputs(bare)
	return StructuralHash(bare)
}

func removeInputs(el *etree.Element) {
	for i := len(el.Child) - 1; i >= 0; i-- {
		child, ok := el.Child[i].(*etree.Element)
		if !ok {
			continue
		}
		if InputTags[child.Tag] {
			el.RemoveChildAt(i)
			continue
		}
		removeInputs(child)
	}
}

// Canonical returns the serialized form StructuralHash is computed over.
func Canonical(el *etree.Element) string {
	if el == nil {
		return ""
	}
	stripped := el.Copy()
	canonicalize(stripped)

	doc := etree.NewDocument()
	doc.WriteSettings.CanonicalEndTags = true
	doc.WriteSettings.CanonicalText = true
	doc.WriteSettings.CanonicalAttrVal = true
	doc.SetRoot(stripped)

	out, err := doc.WriteToString()
	if err != nil {
		// WriteToString only fails on writer errors, which a string builder never returns.
		return ""
	}
	return out
}

func isIdentityAttr(key string) bool {
	return strings.HasSuffix(key, "id") || key == "size"
}

func canonicalize(el *etree.Element) {
	for i := len(el.Attr) - 1; i >= 0; i-- {
		a := el.Attr[i]
		if isIdentityAttr(a.Key) {
			el.RemoveAttr(a.FullKey())
		}
	}
	el.SortAttrs()

	for i := len(el.Child) - 1; i >= 0; i-- {
		switch tok := el.Child[i].(type) {
		case *etree.Element:
			canonicalize(tok)
		case *etree.CharData:
			if tok.IsWhitespace() {
				el.RemoveChildAt(i)
				continue
			}
			tok.Data = strings.TrimSpace(tok.Data)
		default:
			el.RemoveChildAt(i)
		}
	}
}
