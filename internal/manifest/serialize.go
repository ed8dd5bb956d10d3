package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// OrderedSerializer is implemented by serializers that can write top level
// keys in a given order. Keys missing from the manifest are skipped.
type OrderedSerializer interface {
	SerializeOrdered(m Manifest, keys []string) ([]byte, error)
}

// serialize writes m with s, honouring keys when s supports it.
func serialize(s Serializer, m Manifest, keys []string) ([]byte, error) {
	if ordered, ok := s.(OrderedSerializer); ok && keys != nil {
		return ordered.SerializeOrdered(m, keys)
	}
	return s.Serialize(m)
}

// JSONSerializer writes the manifest as indented JSON. Without a key order
// map keys are sorted, so identical manifests always serialize to identical
// bytes.
type JSONSerializer struct {
	// Indent defaults to two spaces
	Indent string
}

func (s JSONSerializer) indent() string {
	if s.Indent == "" {
		return "  "
	}
	return s.Indent
}

// Serialize implements Serializer.
func (s JSONSerializer) Serialize(m Manifest) ([]byte, error) {
	if m == nil {
		m = Manifest{}
	}
	out, err := s.encode(m, "")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest as JSON: %w", err)
	}
	return out, nil
}

// SerializeOrdered implements OrderedSerializer.
func (s JSONSerializer) SerializeOrdered(m Manifest, keys []string) ([]byte, error) {
	indent := s.indent()

	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		key, err := s.encode(k, "")
		if err != nil {
			return nil, fmt.Errorf("failed to encode manifest as JSON: %w", err)
		}
		val, err := s.encode(v, indent)
		if err != nil {
			return nil, fmt.Errorf("failed to encode manifest as JSON: %w", err)
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
		buf.WriteString(indent)
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)
		n++
	}
	if n > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encode writes v without HTML escaping. Nested lines are prefixed with prefix.
func (s JSONSerializer) encode(v interface{}, prefix string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, s.indent())
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// YAMLSerializer writes the manifest as YAML with two space indentation.
type YAMLSerializer struct{}

// Serialize implements Serializer.
func (YAMLSerializer) Serialize(m Manifest) ([]byte, error) {
	if m == nil {
		m = Manifest{}
	}
	return encodeYAML(map[string]interface{}(m))
}

// SerializeOrdered implements OrderedSerializer.
func (YAMLSerializer) SerializeOrdered(m Manifest, keys []string) ([]byte, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		var key, val yaml.Node
		if err := key.Encode(k); err != nil {
			return nil, fmt.Errorf("failed to encode manifest as YAML: %w", err)
		}
		if err := val.Encode(v); err != nil {
			return nil, fmt.Errorf("failed to encode manifest as YAML: %w", err)
		}
		node.Content = append(node.Content, &key, &val)
	}
	return encodeYAML(node)
}

func encodeYAML(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode manifest as YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode manifest as YAML: %w", err)
	}
	return buf.Bytes(), nil
}
