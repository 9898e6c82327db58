package interp

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/cloudgate-project/cloudgate/internal/catalog"
)

// xmlNode is one element of a parsed XML response tree.
type xmlNode struct {
	name     string
	text     string
	children []*xmlNode
}

func parseXMLTree(body []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var stack []*xmlNode
	var root *xmlNode
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := &xmlNode{name: t.Name.Local}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
			} else if root == nil {
				root = node
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("empty XML document")
	}
	return root, nil
}

// xmlValue converts an element subtree to a generic value. Children all
// named item or member are a flattened list; repeated sibling names
// also become a list.
func xmlValue(n *xmlNode) any {
	if len(n.children) == 0 {
		return strings.TrimSpace(n.text)
	}
	if allNamed(n.children, "item") || allNamed(n.children, "member") {
		items := make([]any, 0, len(n.children))
		for _, c := range n.children {
			items = append(items, xmlValue(c))
		}
		return items
	}
	out := make(map[string]any, len(n.children))
	for _, c := range n.children {
		v := xmlValue(c)
		if prev, ok := out[c.name]; ok {
			if list, ok := prev.([]any); ok {
				out[c.name] = append(list, v)
			} else {
				out[c.name] = []any{prev, v}
			}
			continue
		}
		out[c.name] = v
	}
	return out
}

func allNamed(nodes []*xmlNode, name string) bool {
	if len(nodes) == 0 {
		return false
	}
	for _, n := range nodes {
		if n.name != name {
			return false
		}
	}
	return true
}

// decodeXMLBody decodes a query or rest-xml protocol response. Query
// protocol wraps the payload in <OpResult> inside <OpResponse>; the
// wrapper is hoisted so result keys sit at the top level.
func decodeXMLBody(op *catalog.Operation, body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}
	root, err := parseXMLTree(body)
	if err != nil {
		return nil, fmt.Errorf("decoding XML response: %w", err)
	}
	v := xmlValue(root)
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{"Result": v}, nil
	}
	if inner, ok := m[op.Name+"Result"].(map[string]any); ok {
		hoisted := make(map[string]any, len(inner)+1)
		for k, val := range inner {
			hoisted[k] = val
		}
		if md, ok := m["ResponseMetadata"]; ok {
			hoisted["ResponseMetadata"] = md
		}
		return hoisted, nil
	}
	return m, nil
}

// decodeXMLError extracts Code and Message from an XML error body,
// covering <ErrorResponse><Error>, bare <Error>, and the EC2
// <Response><Errors><Error> shape.
func decodeXMLError(body []byte) (code, message string) {
	root, err := parseXMLTree(body)
	if err != nil {
		return "", ""
	}
	var walk func(n *xmlNode)
	walk = func(n *xmlNode) {
		if n.name == "Code" && code == "" {
			code = strings.TrimSpace(n.text)
		}
		if n.name == "Message" && message == "" {
			message = strings.TrimSpace(n.text)
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(root)
	return code, message
}

func decodeJSONBody(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decoding JSON response: %w", err)
	}
	return m, nil
}

func decodeJSONError(body []byte) (code, message string) {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return "", ""
	}
	if t, ok := m["__type"].(string); ok {
		code = t
		if i := strings.LastIndexByte(code, '#'); i >= 0 {
			code = code[i+1:]
		}
	}
	for _, key := range []string{"message", "Message"} {
		if s, ok := m[key].(string); ok {
			message = s
			break
		}
	}
	return code, message
}
