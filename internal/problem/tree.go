// internal/problem/tree.go
package problem

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

var (
	ErrInvalidXML      = errors.New("INVALID_PROBLEM_XML")
	ErrProblemNotFound = errors.New("PROBLEM_NOT_FOUND")
)

// ResponseTags are the element names graded as one unit.
var ResponseTags = map[string]bool{
	"customresponse":         true,
	"stringresponse":         true,
	"numericalresponse":      true,
	"formularesponse":        true,
	"choiceresponse":         true,
	"multiplechoiceresponse": true,
	"truefalseresponse":      true,
	"optionresponse":         true,
	"symbolicresponse":       true,
	"schematicresponse":      true,
	"imageresponse":          true,
	"coderesponse":           true,
	"externalresponse":       true,
	"javascriptresponse":     true,
	"annotationresponse":     true,
}

// InputTags are the element names that accept a learner answer.
var InputTags = map[string]bool{
	"textline":              true,
	"textbox":               true,
	"choicegroup":           true,
	"checkboxgroup":         true,
	"radiogroup":            true,
	"optioninput":           true,
	"schematic":             true,
	"imageinput":            true,
	"crystallography":       true,
	"vsepr_input":           true,
	"chemicalequationinput": true,
	"formulaequationinput":  true,
	"jsinput":               true,
	"annotationinput":       true,
	"filesubmission":        true,
	"drag_and_drop_input":   true,
}

// Tree is a parsed problem with identifiers assigned to every response and input.
type Tree struct {
	Location  string
	ProblemID string
	Root      *etree.Element
	Responses []*Response

	byID map[string]*Response
}

// Response is one gradable substructure of a problem.
type Response struct {
	ID      string
	Element *etree.Element
	Inputs  []*Input

	hash  string
	shape string
}

// Input is one answer slot inside a response.
type Input struct {
	ID            string
	ResponseIndex int
	InputIndex    int
	Element       *etree.Element
}

// Hash returns the structural hash of the response, computed once.
func (r *Response) Hash() string {
	if r.hash == "" {
		r.hash = StructuralHash(r.Element)
	}
	return r.hash
}

// Shape returns the hash of the response without its inputs, computed once.
func (r *Response) Shape() string {
	if r.shape == "" {
		r.shape = ShapeHash(r.Element)
	}
	return r.shape
}

// Response looks up a response by its assigned identifier.
func (t *Tree) Response(id string) (*Response, bool) {
	r, ok := t.byID[id]
	return r, ok
}

// InputIDs lists every input identifier in document order.
func (t *Tree) InputIDs() []string {
	var ids []string
	for _, r := range t.Responses {
		for _, in := range r.Inputs {
			ids = append(ids, in.ID)
		}
	}
	return ids
}

// IDFromLocation turns a content location such as
// "i4x://MITx/999/problem/Problem_4" into "i4x-MITx-999-problem-Problem_4".
func IDFromLocation(location string) string {
	id := strings.ReplaceAll(location, "://", "-")
	return strings.ReplaceAll(id, "/", "-")
}

// Parse reads problem XML and assigns identifiers the way the grading
// engine does: response n gets "<pid>_<n>" while its inputs are numbered
// under n+1, giving "<pid>_<n+1>_<k>".
func Parse(location, data string) (*Tree, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidXML, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrInvalidXML)
	}

	tree := &Tree{
		Location:  location,
		ProblemID: IDFromLocation(location),
		Root:      root,
		byID:      make(map[string]*Response),
	}

	var responses []*etree.Element
	collect(root, ResponseTags, &responses)

	for i, el := range responses {
		n := i + 1
		resp := &Response{
			ID:      fmt.Sprintf("%s_%d", tree.ProblemID, n),
			Element: el,
		}
		el.CreateAttr("id", resp.ID)

		var inputs []*etree.Element
		for _, child := range el.ChildElements() {
			collect(child, InputTags, &inputs)
		}
		for k, inEl := range inputs {
			in := &Input{
				ID:            fmt.Sprintf("%s_%d_%d", tree.ProblemID, n+1, k+1),
				ResponseIndex: n + 1,
				InputIndex:    k + 1,
				Element:       inEl,
			}
			inEl.CreateAttr("response_id", strconv.Itoa(in.ResponseIndex))
			inEl.CreateAttr("answer_id", strconv.Itoa(in.InputIndex))
			inEl.CreateAttr("id", in.ID)
			resp.Inputs = append(resp.Inputs, in)
		}

		tree.Responses = append(tree.Responses, resp)
		tree.byID[resp.ID] = resp
	}

	return tree, nil
}

// collect appends el or its first matching descendants in document order.
// A matching element is not searched further.
func collect(el *etree.Element, tags map[string]bool, out *[]*etree.Element) {
	if tags[el.Tag] {
		*out = append(*out, el)
		return
	}
	for _, child := range el.ChildElements() {
		collect(child, tags, out)
	}
}
