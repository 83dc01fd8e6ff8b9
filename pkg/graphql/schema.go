// Package graphql serves a read-only GraphQL schema generated from
// configuration: every configured field is a String on the root Query.
package graphql

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"

	"github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/hotserve/pkg/response"
)

var fieldName = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)

// NewSchema builds the Query type. app is always present and resolves to
// appName.
func NewSchema(appName string, fields map[string]string) (graphql.Schema, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	root := graphql.Fields{
		"app": constant(appName, "Application name."),
	}
	for _, name := range names {
		if !fieldName.MatchString(name) {
			return graphql.Schema{}, fmt.Errorf("graphql: invalid field name %q", name)
		}
		if _, taken := root[name]; taken {
			return graphql.Schema{}, fmt.Errorf("graphql: field %q is reserved", name)
		}
		root[name] = constant(fields[name], "")
	}

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: root,
		}),
	})
}

func constant(v, desc string) *graphql.Field {
	return &graphql.Field{
		Type:        graphql.String,
		Description: desc,
		Resolve: func(graphql.ResolveParams) (interface{}, error) {
			return v, nil
		},
	}
}

type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// Handler executes POSTed queries against schema.
func Handler(schema graphql.Schema) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid GraphQL request body")
			return
		}
		if req.Query == "" {
			response.Error(w, http.StatusBadRequest, "missing query")
			return
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        r.Context(),
		})
		response.JSON(w, http.StatusOK, result)
	})
}
