package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
	"github.com/vektah/gqlparser/v2/validator/rules"
)

// GraphQLResult is the response document of the query endpoint.
type GraphQLResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// GraphQLError is one response error.
type GraphQLError struct {
	Message   string     `json:"message"`
	Locations []Location `json:"locations,omitempty"`
}

// Location points into the query source, 1-based.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// catalogSchema is the schema served by the endpoint.
const catalogSchema = `
type Query {
  allCourses(first: Int): CourseConnection
  course(id: ID!): Course
}

type CourseConnection {
  edges: [CourseEdge]
}

type CourseEdge {
  node: Course
}

type Course {
  id: ID!
  title: String
  url: String
  abstract: String
}
`

const typenameField = "__typename"

// Executor validates queries against the catalog schema and resolves them.
type Executor struct {
	catalog *Catalog
	schema  *ast.Schema
	rules   *rules.Rules
}

// NewExecutor makes an executor for catalog.
func NewExecutor(catalog *Catalog) (*Executor, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "catalog.graphql", Input: catalogSchema})
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	// field errors are reported without "did you mean" hints, as the course builder service does
	r := rules.NewDefaultRules()
	r.RemoveRule(rules.FieldsOnCorrectTypeRule.Name)
	r.AddRule(rules.FieldsOnCorrectTypeRuleWithoutSuggestions.Name, rules.FieldsOnCorrectTypeRuleWithoutSuggestions.RuleFunc)

	return &Executor{catalog: catalog, schema: schema, rules: r}, nil
}

// Execute parses, validates and runs query. all problems are reported in the result errors;
// data is null when the query does not parse or validate.
func (e *Executor) Execute(query string, variables map[string]any, operationName string) GraphQLResult {
	doc, err := parser.ParseQuery(&ast.Source{Name: "query", Input: query})
	if err != nil {
		return GraphQLResult{Errors: []GraphQLError{fromParseError(err)}}
	}

	if errs := validator.ValidateWithRules(e.schema, doc, e.rules); len(errs) > 0 {
		res := GraphQLResult{Errors: make([]GraphQLError, 0, len(errs))}
		for _, gerr := range errs {
			res.Errors = append(res.Errors, fromValidationError(gerr))
		}
		return res
	}

	op, gerr := selectOperation(doc, operationName)
	if gerr != nil {
		return GraphQLResult{Errors: []GraphQLError{*gerr}}
	}

	vars, err := validator.VariableValues(e.schema, op, variables)
	if err != nil {
		return GraphQLResult{Errors: []GraphQLError{fromVariableError(err)}}
	}

	x := &execution{catalog: e.catalog, schema: e.schema, doc: doc, vars: vars}
	data := x.object(e.schema.Query.Name, nil, []*ast.Field{{SelectionSet: op.SelectionSet}})
	return GraphQLResult{Data: data, Errors: x.errs}
}

func fromParseError(err error) GraphQLError {
	var gerr *gqlerror.Error
	if errors.As(err, &gerr) {
		res := GraphQLError{Message: "Syntax Error: " + gerr.Message}
		for _, l := range gerr.Locations {
			res.Locations = append(res.Locations, Location{Line: l.Line, Column: l.Column})
		}
		return res
	}
	return GraphQLError{Message: err.Error()}
}

// fromValidationError converts a validator error. field errors name the parent type as
// `on "Query"` rather than `on type "Query"`.
func fromValidationError(gerr *gqlerror.Error) GraphQLError {
	msg := gerr.Message
	if gerr.Rule == rules.FieldsOnCorrectTypeRuleWithoutSuggestions.Name {
		msg = strings.Replace(msg, `" on type "`, `" on "`, 1)
	}
	res := GraphQLError{Message: msg}
	for _, l := range gerr.Locations {
		res.Locations = append(res.Locations, Location{Line: l.Line, Column: l.Column})
	}
	return res
}

// fromVariableError converts a variable coercion error, naming the variable from the error path.
func fromVariableError(err error) GraphQLError {
	var gerr *gqlerror.Error
	if !errors.As(err, &gerr) {
		return GraphQLError{Message: err.Error()}
	}
	if len(gerr.Path) > 1 {
		if name, ok := gerr.Path[1].(ast.PathName); ok {
			return GraphQLError{Message: fmt.Sprintf("Variable \"$%s\" %s.", string(name), gerr.Message)}
		}
	}
	return GraphQLError{Message: gerr.Message}
}

func selectOperation(doc *ast.QueryDocument, name string) (*ast.OperationDefinition, *GraphQLError) {
	switch {
	case name != "":
		if op := doc.Operations.ForName(name); op != nil {
			return op, nil
		}
		return nil, &GraphQLError{Message: fmt.Sprintf("Unknown operation named %q.", name)}
	case len(doc.Operations) == 1:
		return doc.Operations[0], nil
	case len(doc.Operations) == 0:
		return nil, &GraphQLError{Message: "Must provide an operation."}
	default:
		return nil, &GraphQLError{Message: "Must provide operation name if query contains multiple operations."}
	}
}

func locate(pos *ast.Position) []Location {
	if pos == nil {
		return nil
	}
	return []Location{{Line: pos.Line, Column: pos.Column}}
}

// execution resolves a validated operation.
type execution struct {
	catalog *Catalog
	schema  *ast.Schema
	doc     *ast.QueryDocument
	vars    map[string]any
	errs    []GraphQLError
}

// fieldGroup holds all fields selected under one response key.
type fieldGroup struct {
	key    string
	fields []*ast.Field
}

// collect groups the fields of sels by response key in selection order, flattening fragments.
// fields sharing a key are resolved once with their sub-selections merged.
func (x *execution) collect(sels ast.SelectionSet, groups []*fieldGroup, visited map[string]bool) []*fieldGroup {
	for _, sel := range sels {
		switch s := sel.(type) {
		case *ast.Field:
			if !x.included(s.Directives) {
				continue
			}
			key := s.Alias
			if key == "" {
				key = s.Name
			}
			found := false
			for _, g := range groups {
				if g.key == key {
					g.fields = append(g.fields, s)
					found = true
					break
				}
			}
			if !found {
				groups = append(groups, &fieldGroup{key: key, fields: []*ast.Field{s}})
			}
		case *ast.InlineFragment:
			if x.included(s.Directives) {
				groups = x.collect(s.SelectionSet, groups, visited)
			}
		case *ast.FragmentSpread:
			if visited[s.Name] || !x.included(s.Directives) {
				continue
			}
			visited[s.Name] = true
			if frag := x.doc.Fragments.ForName(s.Name); frag != nil {
				groups = x.collect(frag.SelectionSet, groups, visited)
			}
		}
	}
	return groups
}

// included applies @skip and @include.
func (x *execution) included(dirs ast.DirectiveList) bool {
	if d := dirs.ForName("skip"); d != nil {
		if skip, _ := d.ArgumentMap(x.vars)["if"].(bool); skip {
			return false
		}
	}
	if d := dirs.ForName("include"); d != nil {
		if include, _ := d.ArgumentMap(x.vars)["if"].(bool); !include {
			return false
		}
	}
	return true
}

// object resolves the merged sub-selections of fields on src of objType.
func (x *execution) object(objType string, src any, fields []*ast.Field) *orderedMap {
	var sels ast.SelectionSet
	for _, f := range fields {
		sels = append(sels, f.SelectionSet...)
	}

	res := newOrderedMap()
	for _, g := range x.collect(sels, nil, map[string]bool{}) {
		f := g.fields[0]
		if f.Name == typenameField {
			res.Set(g.key, objType)
			continue
		}

		val, err := x.resolve(objType, src, f)
		if err != nil {
			x.errs = append(x.errs, GraphQLError{Message: err.Error(), Locations: locate(f.Position)})
			res.Set(g.key, nil)
			continue
		}

		typ := f.Definition.Type
		def := x.schema.Types[typ.Name()]
		switch {
		case val == nil || def == nil || def.Kind != ast.Object:
			res.Set(g.key, val)
		case typ.Elem != nil:
			items := val.([]any)
			list := make([]any, 0, len(items))
			for _, item := range items {
				list = append(list, x.object(def.Name, item, g.fields))
			}
			res.Set(g.key, list)
		default:
			res.Set(g.key, x.object(def.Name, val, g.fields))
		}
	}
	return res
}

// resolve returns the raw value of field f on src. a nil value renders as null.
func (x *execution) resolve(objType string, src any, f *ast.Field) (any, error) {
	switch objType {
	case "Query":
		return x.resolveQuery(f)
	case "CourseConnection":
		courses := src.([]Course)
		edges := make([]any, 0, len(courses))
		for _, c := range courses {
			edges = append(edges, c)
		}
		return edges, nil
	case "CourseEdge":
		return src.(Course), nil
	case "Course":
		c := src.(Course)
		switch f.Name {
		case "id":
			return c.ID, nil
		case "title":
			return c.Title, nil
		case "url":
			return c.URL, nil
		case "abstract":
			return c.Abstract, nil
		}
	}
	return nil, fmt.Errorf("no resolver for %s.%s", objType, f.Name)
}

func (x *execution) resolveQuery(f *ast.Field) (any, error) {
	switch f.Name {
	case "allCourses":
		courses := x.catalog.Courses()
		if arg := f.Arguments.ForName("first"); arg != nil {
			first, err := x.intArg(arg)
			if err != nil {
				return nil, err
			}
			if first < len(courses) {
				courses = courses[:first]
			}
		}
		return courses, nil
	case "course":
		raw, err := f.Arguments.ForName("id").Value.Value(x.vars)
		if err != nil {
			return nil, fmt.Errorf("argument \"id\": %w", err)
		}
		var id string
		switch v := raw.(type) {
		case string:
			id = v
		case int64:
			id = fmt.Sprint(v)
		default:
			return nil, fmt.Errorf("argument \"id\" has invalid value %v", raw)
		}
		if c, ok := x.catalog.Course(id); ok {
			return c, nil
		}
		return nil, nil //nolint:nilnil // unknown course renders as null
	}
	return nil, fmt.Errorf("no resolver for Query.%s", f.Name)
}

func (x *execution) intArg(arg *ast.Argument) (int, error) {
	raw, err := arg.Value.Value(x.vars)
	if err != nil {
		return 0, fmt.Errorf("argument %q: %w", arg.Name, err)
	}
	var n float64
	switch v := raw.(type) {
	case nil:
		return math.MaxInt32, nil // explicit null means no limit
	case int64:
		n = float64(v)
	case float64: // json decoded variables
		n = v
	case int:
		n = float64(v)
	default:
		return 0, fmt.Errorf("argument %q has invalid value %v", arg.Name, raw)
	}
	if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
		return 0, fmt.Errorf("argument %q has invalid value %v", arg.Name, raw)
	}
	return int(n), nil
}

// orderedMap is a json object which keeps insertion order.
type orderedMap struct {
	keys   []string
	values map[string]any
}

func newOrderedMap() *orderedMap {
	return &orderedMap{values: map[string]any{}}
}

// Set stores val under key; a repeated key keeps its first position.
func (m *orderedMap) Set(key string, val any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = val
}

// MarshalJSON encodes keys in insertion order.
func (m *orderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
