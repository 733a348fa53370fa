package codec

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Neumenon/regular/regular"
)

// maxAliasDepth bounds alias expansion so a self-referencing document
// cannot recurse forever.
const maxAliasDepth = 64

// decodeYAML reads the first document through yaml.Node, which keeps
// mapping order.
func decodeYAML(data []byte) (*regular.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	if doc.Kind == 0 {
		return regular.Null(), nil
	}
	v, err := fromYAMLNode(&doc, 0)
	if err != nil {
		return nil, fmt.Errorf("YAML: %w", err)
	}
	return v, nil
}

func fromYAMLNode(n *yaml.Node, aliases int) (*regular.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return regular.Null(), nil
		}
		return fromYAMLNode(n.Content[0], aliases)

	case yaml.AliasNode:
		if aliases >= maxAliasDepth {
			return nil, fmt.Errorf("line %d: alias nesting too deep", n.Line)
		}
		return fromYAMLNode(n.Alias, aliases+1)

	case yaml.SequenceNode:
		items := make([]*regular.Value, len(n.Content))
		for i, c := range n.Content {
			v, err := fromYAMLNode(c, aliases)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			items[i] = v
		}
		return regular.List(items...), nil

	case yaml.MappingNode:
		entries := make([]regular.MapEntry, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			val, err := fromYAMLNode(v, aliases)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k.Value, err)
			}
			entries = append(entries, regular.FieldVal(k.Value, val))
		}
		return regular.Map(entries...), nil

	case yaml.ScalarNode:
		return fromYAMLScalar(n)
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
}

func fromYAMLScalar(n *yaml.Node) (*regular.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return regular.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return regular.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return regular.Int(i), nil
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: integer %q out of range", n.Line, n.Value)
		}
		return regular.Float(f), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return regular.Float(f), nil
	default:
		return regular.Str(n.Value), nil
	}
}

func encodeYAML(v *regular.Value) ([]byte, error) {
	n, err := toYAMLNode(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toYAMLNode(v *regular.Value) (*yaml.Node, error) {
	scalar := func(tag, value string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
	}

	switch v.Kind() {
	case regular.KindNull:
		return scalar("!!null", "null"), nil
	case regular.KindBool:
		b, _ := v.AsBool()
		return scalar("!!bool", strconv.FormatBool(b)), nil
	case regular.KindInt:
		i, _ := v.AsInt()
		return scalar("!!int", strconv.FormatInt(i, 10)), nil
	case regular.KindFloat:
		f, _ := v.AsFloat()
		return scalar("!!float", yamlFloat(f)), nil
	case regular.KindStr:
		s, _ := v.AsStr()
		return scalar("!!str", s), nil
	case regular.KindList:
		items, _ := v.AsList()
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, item := range items {
			c, err := toYAMLNode(item)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			n.Content = append(n.Content, c)
		}
		return n, nil
	case regular.KindMap:
		entries, _ := v.AsMap()
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range entries {
			c, err := toYAMLNode(e.Value)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", e.Key, err)
			}
			n.Content = append(n.Content, scalar("!!str", e.Key), c)
		}
		return n, nil
	}
	return nil, fmt.Errorf("%s placeholder has no YAML form without markers", v.Kind())
}

func yamlFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !bytes.ContainsAny([]byte(s), ".eEn") {
		s += ".0"
	}
	return s
}
