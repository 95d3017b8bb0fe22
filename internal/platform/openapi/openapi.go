// Package openapi describes the admin API as an OpenAPI 3.0 document built
// from the routes registered on the echo server.
package openapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

// Param documents one query parameter.
type Param struct {
	Name        string
	Type        string
	Description string
}

// Operation documents one route. Routes without an Operation still appear
// in the document with a generated summary.
type Operation struct {
	Summary string
	Query   []Param
	// Download marks routes that answer with a file instead of JSON.
	Download bool
}

// Generator builds the document on request, so routes registered after the
// generator was created are included.
type Generator struct {
	routes  func() []*echo.Route
	prefix  string
	version string
	docs    map[string]Operation
}

// NewGenerator documents the routes under prefix returned by routes.
func NewGenerator(routes func() []*echo.Route, prefix, version string) *Generator {
	return &Generator{routes: routes, prefix: prefix, version: version, docs: map[string]Operation{}}
}

// Document attaches docs to the route with the given method and echo path.
func (g *Generator) Document(method, path string, op Operation) {
	g.docs[method+" "+path] = op
}

// GenerateSpec produces the OpenAPI 3.0 document as a map.
func (g *Generator) GenerateSpec() map[string]any {
	routes := g.routes()
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})

	paths := map[string]any{}
	tagSet := map[string]bool{}
	for _, r := range routes {
		if !strings.HasPrefix(r.Path, g.prefix+"/") || r.Method == echo.RouteNotFound {
			continue
		}
		oaPath, pathParams := convertPath(strings.TrimPrefix(r.Path, g.prefix))
		tag := tagFor(oaPath)
		tagSet[tag] = true

		op, documented := g.docs[r.Method+" "+r.Path]
		if !documented {
			op.Summary = strings.ToLower(r.Method) + " " + oaPath
		}

		params := make([]map[string]any, 0, len(pathParams)+len(op.Query))
		for _, name := range pathParams {
			params = append(params, map[string]any{
				"name": name, "in": "path", "required": true,
				"schema": map[string]string{"type": "string"},
			})
		}
		for _, q := range op.Query {
			typ := q.Type
			if typ == "" {
				typ = "string"
			}
			p := map[string]any{"name": q.Name, "in": "query", "schema": map[string]string{"type": typ}}
			if q.Description != "" {
				p["description"] = q.Description
			}
			params = append(params, p)
		}

		item, _ := paths[oaPath].(map[string]any)
		if item == nil {
			item = map[string]any{}
			paths[oaPath] = item
		}
		item[strings.ToLower(r.Method)] = map[string]any{
			"summary":     op.Summary,
			"operationId": operationID(r.Method, oaPath),
			"tags":        []string{tag},
			"parameters":  params,
			"responses":   responses(op),
		}
	}

	tags := make([]map[string]string, 0, len(tagSet))
	for t := range tagSet {
		tags = append(tags, map[string]string{"name": t})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i]["name"] < tags[j]["name"] })

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       "Clinic Admin API",
			"version":     g.version,
			"description": "Form editing and record exports for the clinic admin dashboard",
		},
		"servers": []map[string]string{{"url": g.prefix}},
		"tags":    tags,
		"paths":   paths,
		"components": map[string]any{
			"schemas": map[string]any{"Error": errorSchema()},
		},
	}
}

// convertPath turns echo's :param segments into OpenAPI {param} segments.
func convertPath(p string) (string, []string) {
	segs := strings.Split(p, "/")
	var params []string
	for i, s := range segs {
		if strings.HasPrefix(s, ":") {
			params = append(params, s[1:])
			segs[i] = "{" + s[1:] + "}"
		}
	}
	return strings.Join(segs, "/"), params
}

func tagFor(p string) string {
	segs := strings.SplitN(strings.TrimPrefix(p, "/"), "/", 2)
	if segs[0] == "" {
		return "default"
	}
	return segs[0]
}

func operationID(method, p string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, s := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '{' || r == '}' }) {
		b.WriteString(strings.ToUpper(s[:1]) + s[1:])
	}
	return b.String()
}

func responses(op Operation) map[string]any {
	ok := map[string]any{"description": "Success"}
	if op.Download {
		ok["content"] = map[string]any{
			"text/tab-separated-values": map[string]any{"schema": map[string]string{"type": "string"}},
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": map[string]any{
				"schema": map[string]string{"type": "string", "format": "binary"},
			},
		}
	} else {
		ok["content"] = map[string]any{"application/json": map[string]any{"schema": map[string]string{"type": "object"}}}
	}
	errRef := map[string]any{
		"description": "Error",
		"content": map[string]any{
			"application/json": map[string]any{"schema": map[string]string{"$ref": "#/components/schemas/Error"}},
		},
	}
	return map[string]any{"200": ok, "default": errRef}
}

func errorSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]string{"type": "string"},
		},
	}
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Clinic Admin API - Swagger UI</title>
  <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" >
  <style>
    html { box-sizing: border-box; overflow-y: scroll; }
    *, *:before, *:after { box-sizing: inherit; }
    body { margin: 0; background: #fafafa; }
  </style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "openapi.json",
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [
        SwaggerUIBundle.presets.apis,
        SwaggerUIBundle.SwaggerUIStandalonePreset
      ],
      layout: "BaseLayout"
    })
  </script>
</body>
</html>`

// RegisterRoutes registers the OpenAPI endpoints.
func (g *Generator) RegisterRoutes(apiGroup *echo.Group) {
	apiGroup.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
	apiGroup.GET("/docs", func(c echo.Context) error {
		return c.HTML(http.StatusOK, swaggerUIHTML)
	})
}
