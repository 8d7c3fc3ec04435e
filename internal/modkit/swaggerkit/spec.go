package swaggerkit

import (
	"encoding/json"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	phttp "vidbrief/internal/platform/net/http"

	"github.com/invopop/jsonschema"
)

// Operation documents one route. Request and Response are sample values whose
// types are reflected into component schemas; nil means no body
type Operation struct {
	Method   string
	Path     string
	Tag      string
	Summary  string
	Request  any
	Response any
	// Errors lists the non 2xx statuses the route can return
	Errors []int
}

var (
	mu  sync.RWMutex
	ops []Operation
)

// Register adds operations to the process document
func Register(o ...Operation) {
	mu.Lock()
	ops = append(ops, o...)
	mu.Unlock()
}

// Reset clears registered operations, for tests
func Reset() {
	mu.Lock()
	ops = nil
	mu.Unlock()
}

// Spec builds an OpenAPI 3 document from the registered operations
func Spec(info Info) map[string]any {
	mu.RLock()
	list := append([]Operation(nil), ops...)
	mu.RUnlock()

	schemas := map[string]any{}
	errRef := ref(schemas, phttp.ErrorBody{})

	paths := map[string]map[string]any{}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Path < list[j].Path })
	for _, o := range list {
		op := map[string]any{
			"summary":     o.Summary,
			"operationId": operationID(o),
		}
		if o.Tag != "" {
			op["tags"] = []string{o.Tag}
		}
		if o.Request != nil {
			op["requestBody"] = map[string]any{
				"required": true,
				"content":  map[string]any{"application/json": map[string]any{"schema": ref(schemas, o.Request)}},
			}
		}
		responses := map[string]any{}
		ok := map[string]any{"description": "ok"}
		if o.Response != nil {
			ok["content"] = map[string]any{"application/json": map[string]any{"schema": ref(schemas, o.Response)}}
		}
		responses["200"] = ok
		for _, st := range o.Errors {
			responses[strconv.Itoa(st)] = map[string]any{
				"description": strings.ToLower(httpStatusText(st)),
				"content":     map[string]any{"application/json": map[string]any{"schema": errRef}},
			}
		}
		op["responses"] = responses

		if paths[o.Path] == nil {
			paths[o.Path] = map[string]any{}
		}
		paths[o.Path][strings.ToLower(o.Method)] = op
	}

	title := info.Title
	if title == "" {
		title = "API"
	}
	server := info.Server
	if server == "" {
		server = "/"
	}
	return map[string]any{
		"openapi":    "3.0.3",
		"info":       map[string]any{"title": title, "version": info.Version},
		"servers":    []map[string]any{{"url": server}},
		"paths":      paths,
		"components": map[string]any{"schemas": schemas},
	}
}

var reflector = &jsonschema.Reflector{
	DoNotReference: true,
	Anonymous:      true,
	ExpandedStruct: true,
}

// ref reflects v into schemas under its type name and returns a $ref to it
func ref(schemas map[string]any, v any) map[string]any {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		name = "Anonymous"
	}
	if _, seen := schemas[name]; !seen {
		s := reflector.ReflectFromType(t)
		s.Version = ""
		var m map[string]any
		b, _ := json.Marshal(s)
		_ = json.Unmarshal(b, &m)
		schemas[name] = m
	}
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

func operationID(o Operation) string {
	parts := strings.FieldsFunc(o.Path, func(r rune) bool { return r == '/' || r == '{' || r == '}' })
	return strings.ToLower(o.Method) + strings.Join(titleAll(parts), "")
}

func titleAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p == "" {
			continue
		}
		out = append(out, strings.ToUpper(p[:1])+p[1:])
	}
	return out
}

var statusText = map[int]string{
	400: "Bad Request",
	422: "Unprocessable Entity",
	500: "Internal Server Error",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
}

func httpStatusText(code int) string {
	if s, ok := statusText[code]; ok {
		return s
	}
	return "error"
}
