package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surenss861/riskmate-sub004/pkg/api"
)

const personSchema = `{
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "age": {"type": "integer", "minimum": 0}
  },
  "additionalProperties": false
}`

type person struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func decode(t *testing.T, schema *api.BodySchema, body string) (person, error) {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var p person
	err := api.DecodeJSON(w, r, schema, &p)
	return p, err
}

func TestDecodeJSON_Valid(t *testing.T) {
	schema := api.MustCompileBodySchema("person", personSchema)
	p, err := decode(t, schema, `{"name":"Alice","age":41}`)
	require.NoError(t, err)
	assert.Equal(t, person{Name: "Alice", Age: 41}, p)
}

func TestDecodeJSON_SchemaViolations(t *testing.T) {
	schema := api.MustCompileBodySchema("person", personSchema)

	cases := map[string]string{
		"missing required": `{"age":3}`,
		"wrong type":       `{"name":7}`,
		"negative":         `{"name":"A","age":-1}`,
		"unknown field":    `{"name":"A","extra":true}`,
		"not json":         `{"name":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decode(t, schema, body)
			assert.ErrorIs(t, err, api.ErrInvalidBody)
		})
	}
}

func TestDecodeJSON_MessageNamesLocation(t *testing.T) {
	schema := api.MustCompileBodySchema("person", personSchema)
	_, err := decode(t, schema, `{"name":"A","age":"old"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/age")
}

func TestDecodeJSON_NoSchema(t *testing.T) {
	p, err := decode(t, nil, `{"name":"Bob"}`)
	require.NoError(t, err)
	assert.Equal(t, "Bob", p.Name)
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("a", api.MaxBodyBytes) + `"}`
	_, err := decode(t, nil, body)
	assert.ErrorIs(t, err, api.ErrInvalidBody)
}

func TestCompileBodySchema_Invalid(t *testing.T) {
	_, err := api.CompileBodySchema("broken", `{"type": 12}`)
	assert.Error(t, err)

	assert.Panics(t, func() { api.MustCompileBodySchema("broken", `not json`) })
}
