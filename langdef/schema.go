package langdef

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaURL = "tmlex://grammar.schema.json"

//go:embed grammar.schema.json
var schemaSource string

var grammarSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.LoadURL = func(url string) (io.ReadCloser, error) {
		return nil, errors.Errorf("external schema references are not allowed: %s", url)
	}
	if e := compiler.AddResource(schemaURL, strings.NewReader(schemaSource)); e != nil {
		panic(e)
	}

	var e error
	grammarSchema, e = compiler.Compile(schemaURL)
	if e != nil {
		panic(e)
	}
}

// normalize converts decoded YAML or CBOR values to the form expected by the schema validator.
func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		for k, item := range x {
			x[k] = normalize(item)
		}
		return x
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(x))
		for k, item := range x {
			result[fmt.Sprint(k)] = normalize(item)
		}
		return result
	case []interface{}:
		for i, item := range x {
			x[i] = normalize(item)
		}
		return x
	case int:
		return json.Number(strconv.Itoa(x))
	case int64:
		return json.Number(strconv.FormatInt(x, 10))
	case uint64:
		return json.Number(strconv.FormatUint(x, 10))
	case float32:
		return float64(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case []byte:
		return string(x)
	default:
		return v
	}
}

// leafError returns the most specific cause of a validation error.
func leafError(e *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(e.Causes) > 0 {
		e = e.Causes[0]
	}
	return e
}

// findNode follows JSON pointer through YAML document, returns the deepest node found.
func findNode(root *yaml.Node, pointer string) *yaml.Node {
	if root == nil {
		return nil
	}

	node := root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if pointer == "" || pointer == "/" {
		return node
	}

	for _, token := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		token = strings.ReplaceAll(strings.ReplaceAll(token, "~1", "/"), "~0", "~")
		next := childNode(node, token)
		if next == nil {
			break
		}
		node = next
	}
	return node
}

func childNode(node *yaml.Node, token string) *yaml.Node {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == token {
				return node.Content[i+1]
			}
		}
	case yaml.SequenceNode:
		index, e := strconv.Atoi(token)
		if e == nil && index >= 0 && index < len(node.Content) {
			return node.Content[index]
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			return childNode(node.Alias, token)
		}
	}
	return nil
}
