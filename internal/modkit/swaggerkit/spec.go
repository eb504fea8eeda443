package swaggerkit

import (
	"encoding/json"
	"net/http"
	"strings"
)

const apiBase = "/api/v1"

// defaults are the responses every operation may return through the error envelope
var defaults = map[string]struct {
	desc    string
	code    int
	example string
}{
	"400": {"Bad Request", 7, "source must be a file path or an http(s) or file url"},
	"401": {"Unauthorized", 4, "missing bearer token"},
	"500": {"Internal Server Error", 1, "internal error"},
}

// patch brings a generated spec to what the ui and the runtime agree on:
// OpenAPI 3.0.3 served under the api base, bearer auth and the error envelope on every operation
func patch(spec map[string]any, titleSuffix string) {
	if v, _ := spec["openapi"].(string); v == "" || strings.HasPrefix(v, "3.1") {
		spec["openapi"] = "3.0.3"
	}
	delete(spec, "swagger")
	delete(spec, "securityDefinitions")
	if _, ok := spec["servers"]; !ok {
		spec["servers"] = []any{map[string]any{"url": apiBase}}
	}
	if info, ok := spec["info"].(map[string]any); ok && titleSuffix != "" {
		if t, ok := info["title"].(string); ok {
			info["title"] = t + " " + titleSuffix
		}
	}

	comps := child(spec, "components")
	schemas := child(comps, "schemas")
	if _, ok := schemas["Envelope"]; !ok {
		schemas["Envelope"] = map[string]any{
			"type":     "object",
			"required": []any{"status_code", "status"},
			"properties": map[string]any{
				"status_code": map[string]any{"type": "integer"},
				"status":      map[string]any{"type": "string"},
				"code":        map[string]any{"type": "integer"},
				"error":       map[string]any{"type": "string"},
				"field":       map[string]any{"type": "string"},
				"request_id":  map[string]any{"type": "string"},
				"data":        map[string]any{},
			},
		}
	}
	schemes := child(comps, "securitySchemes")
	if _, ok := schemes["BearerAuth"]; !ok {
		schemes["BearerAuth"] = map[string]any{"type": "http", "scheme": "bearer"}
	}

	paths, _ := spec["paths"].(map[string]any)
	for _, item := range paths {
		ops, _ := item.(map[string]any)
		for _, op := range ops {
			o, ok := op.(map[string]any)
			if !ok {
				continue
			}
			resps := child(o, "responses")
			for status, d := range defaults {
				if _, ok := resps[status]; ok {
					continue
				}
				resps[status] = map[string]any{
					"description": d.desc,
					"content": map[string]any{"application/json": map[string]any{
						"schema":  map[string]any{"$ref": "#/components/schemas/Envelope"},
						"example": map[string]any{"status_code": status, "status": d.desc, "code": d.code, "error": d.example},
					}},
				}
			}
		}
	}
}

func child(m map[string]any, key string) map[string]any {
	c, ok := m[key].(map[string]any)
	if !ok {
		c = map[string]any{}
		m[key] = c
	}
	return c
}

// serveDoc writes the patched spec, read fresh on each request
func serveDoc(read func() string, titleSuffix string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		var spec map[string]any
		if err := json.Unmarshal([]byte(read()), &spec); err != nil {
			http.Error(w, "spec parse error", http.StatusInternalServerError)
			return
		}
		patch(spec, titleSuffix)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(spec)
	}
}
