package web

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *Catalog {
	return NewCatalog(
		Course{ID: "course:1", Title: "Power Searching with Google", URL: "/course", Abstract: "search"},
		Course{ID: "course:2", Title: "Advanced Power Searching", URL: "/advanced", Abstract: "more search"},
	)
}

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	ex, err := NewExecutor(testCatalog())
	require.NoError(t, err)
	return ex
}

func execJSON(t *testing.T, query string, vars map[string]any) string {
	t.Helper()
	res := newTestExecutor(t).Execute(query, vars, "")
	data, err := json.Marshal(res)
	require.NoError(t, err)
	return string(data)
}

func TestExecutor_DefaultQuery(t *testing.T) {
	got := execJSON(t, defaultQuery, nil)
	assert.JSONEq(t, `{"data":{"allCourses":{"edges":[
		{"node":{"id":"course:1","title":"Power Searching with Google"}},
		{"node":{"id":"course:2","title":"Advanced Power Searching"}}]}}}`, got)
	// output keeps selection order
	assert.Equal(t, `{"data":{"allCourses":{"edges":[{"node":{"id":"course:1","title":"Power Searching with Google"}},`+
		`{"node":{"id":"course:2","title":"Advanced Power Searching"}}]}}}`, got)
}

func TestExecutor_Queries(t *testing.T) {
	tests := []struct {
		name  string
		query string
		vars  map[string]any
		want  string
	}{
		{name: "first", query: `{ allCourses(first: 1) { edges { node { title } } } }`,
			want: `{"data":{"allCourses":{"edges":[{"node":{"title":"Power Searching with Google"}}]}}}`},
		{name: "first from variable", query: `query Q($n: Int) { allCourses(first: $n) { edges { node { id } } } }`,
			vars: map[string]any{"n": float64(0)}, want: `{"data":{"allCourses":{"edges":[]}}}`},
		{name: "course by id", query: `{ course(id: "course:2") { title url abstract } }`,
			want: `{"data":{"course":{"title":"Advanced Power Searching","url":"/advanced","abstract":"more search"}}}`},
		{name: "course by variable", query: `query C($id: ID!) { course(id: $id) { title } }`,
			vars: map[string]any{"id": "course:1"}, want: `{"data":{"course":{"title":"Power Searching with Google"}}}`},
		{name: "variable default", query: `query C($id: ID = "course:2") { course(id: $id) { title } }`,
			want: `{"data":{"course":{"title":"Advanced Power Searching"}}}`},
		{name: "unknown course is null", query: `{ course(id: "nope") { title } }`, want: `{"data":{"course":null}}`},
		{name: "alias and typename", query: `{ __typename c: course(id: "course:1") { __typename name: title } }`,
			want: `{"data":{"__typename":"Query","c":{"__typename":"Course","name":"Power Searching with Google"}}}`},
		{name: "fragments", query: `{ allCourses(first: 1) { edges { node { ...F ... on Course { url } } } } } fragment F on Course { id }`,
			want: `{"data":{"allCourses":{"edges":[{"node":{"id":"course:1","url":"/course"}}]}}}`},
		{name: "repeated fields merged", query: `{ allCourses(first: 1) { edges { node { id } } } allCourses(first: 1) { edges { node { title } } } }`,
			want: `{"data":{"allCourses":{"edges":[{"node":{"id":"course:1","title":"Power Searching with Google"}}]}}}`},
		{name: "same alias same field", query: `{ c: course(id: "course:1") { id } c: course(id: "course:1") { title } }`,
			want: `{"data":{"c":{"id":"course:1","title":"Power Searching with Google"}}}`},
		{name: "skip and include", query: `query Q($on: Boolean!) { course(id: "course:1") { id @skip(if: $on) title @include(if: $on) } }`,
			vars: map[string]any{"on": true}, want: `{"data":{"course":{"title":"Power Searching with Google"}}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.JSONEq(t, tc.want, execJSON(t, tc.query, tc.vars))
		})
	}
}

func TestExecutor_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		vars  map[string]any
		want  []string
	}{
		{name: "unknown root field", query: "{ unknownField }", want: []string{`Cannot query field "unknownField" on "Query".`}},
		{name: "unknown nested field", query: "{ allCourses { edges { node { id price } } } }",
			want: []string{`Cannot query field "price" on "Course".`}},
		{name: "several errors", query: "{ a b }",
			want: []string{`Cannot query field "a" on "Query".`, `Cannot query field "b" on "Query".`}},
		{name: "missing sub selection", query: "{ allCourses }",
			want: []string{`Field "allCourses" of type "CourseConnection" must have a selection of subfields.`}},
		{name: "scalar sub selection", query: "{ course(id: \"x\") { title { x } } }",
			want: []string{`Field "title" must not have a selection since type "String" has no subfields.`}},
		{name: "unknown argument", query: "{ allCourses(last: 1) { edges { node { id } } } }",
			want: []string{`Unknown argument "last" on field "Query.allCourses".`}},
		{name: "missing argument", query: "{ course { id } }",
			want: []string{`Field "course" argument "id" of type "ID!" is required, but it was not provided.`}},
		{name: "undefined variable", query: "{ course(id: $nope) { title } }",
			want: []string{`Variable "$nope" is not defined.`}},
		{name: "missing variable", query: "query C($id: ID!) { course(id: $id) { id } }",
			want: []string{`Variable "$id" must be defined.`}},
		{name: "wrong variable type", query: "query C($id: ID!) { course(id: $id) { id } }", vars: map[string]any{"id": true},
			want: []string{`Variable "$id" cannot use bool as ID.`}},
		{name: "unknown fragment", query: "{ ...Nope }", want: []string{`Unknown fragment "Nope".`}},
		{name: "mutation", query: "mutation { x }", want: []string{`Schema does not support operation type "mutation"`}},
		{name: "multiple operations", query: "query A { __typename } query B { __typename }",
			want: []string{"Must provide operation name if query contains multiple operations."}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := newTestExecutor(t).Execute(tc.query, tc.vars, "")
			assert.Nil(t, res.Data)
			assert.Subset(t, messages(res), tc.want)
		})
	}
}

func TestExecutor_ConflictingAliases(t *testing.T) {
	res := newTestExecutor(t).Execute(`{ a: allCourses { edges { node { id } } } a: course(id: "x") { title } }`, nil, "")
	assert.Nil(t, res.Data)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, `Fields "a" conflict because "allCourses" and "course" are different fields.`)
}

func TestExecutor_FragmentCycle(t *testing.T) {
	res := newTestExecutor(t).Execute(`{ course(id: "x") { ...A } } fragment A on Course { ...A }`, nil, "")
	assert.Nil(t, res.Data)
	assert.Contains(t, messages(res), `Cannot spread fragment "A" within itself.`)
}

func messages(res GraphQLResult) []string {
	msgs := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

func TestExecutor_ErrorLocation(t *testing.T) {
	res := newTestExecutor(t).Execute("{\n  unknownField\n}", nil, "")
	require.Len(t, res.Errors, 1)
	assert.Equal(t, `Cannot query field "unknownField" on "Query".`, res.Errors[0].Message)
	require.Len(t, res.Errors[0].Locations, 1)
	assert.Equal(t, 2, res.Errors[0].Locations[0].Line)
}

func TestExecutor_SyntaxError(t *testing.T) {
	res := newTestExecutor(t).Execute("{ allCourses {", nil, "")
	assert.Nil(t, res.Data)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, "Syntax Error: ")
	assert.NotEmpty(t, res.Errors[0].Locations)
}

func TestExecutor_OperationName(t *testing.T) {
	ex := newTestExecutor(t)
	query := `query A { course(id: "course:1") { title } } query B { course(id: "course:2") { title } }`

	res := ex.Execute(query, nil, "B")
	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"course":{"title":"Advanced Power Searching"}}}`, string(data))

	res = ex.Execute(query, nil, "C")
	require.Len(t, res.Errors, 1)
	assert.Equal(t, `Unknown operation named "C".`, res.Errors[0].Message)
}

func TestExecutor_BadArgumentValue(t *testing.T) {
	res := newTestExecutor(t).Execute(`query Q($n: Int) { allCourses(first: $n) { edges { node { id } } } }`,
		map[string]any{"n": -1.0}, "")
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, `argument "first" has invalid value -1`)
	data, err := json.Marshal(res.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"allCourses":null}`, string(data))
}

func TestOrderedMap(t *testing.T) {
	m := newOrderedMap()
	m.Set("z", 1)
	m.Set("a", []any{"x"})
	m.Set("z", 2)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"z":2,"a":["x"]}`, string(data))

	empty, err := json.Marshal(newOrderedMap())
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(empty))
}

func TestSampleCatalog(t *testing.T) {
	a, b := SampleCatalog(), SampleCatalog()
	require.Len(t, a.Courses(), 1)
	assert.Equal(t, "Power Searching with Google", a.Courses()[0].Title)
	assert.NotEqual(t, a.Courses()[0].ID, b.Courses()[0].ID, "ids are minted per catalog")

	c, ok := a.Course(a.Courses()[0].ID)
	require.True(t, ok)
	assert.Equal(t, a.Courses()[0], c)
	_, ok = a.Course("nope")
	assert.False(t, ok)
}
