package tabulate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the serialization of a written report.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// NormalizeFormat maps user input onto a Format; unknown values fall back to JSON.
func NormalizeFormat(raw string) Format {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "yaml", "yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Ext is the file extension, without the dot, used for the format.
func (f Format) Ext() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// Encode writes r to w in the given format with two-space indentation.
// Column and value order are preserved and non-ASCII text is written as is.
func Encode(w io.Writer, r Report, format Format) error {
	switch format {
	case FormatYAML:
		return encodeYAML(w, r)
	case FormatJSON, "":
		return encodeJSON(w, r)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

// MarshalJSON renders the report as an object of objects in report order.
func (r Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, c.Name); err != nil {
			return nil, err
		}
		buf.WriteString(":{")
		for j, vc := range c.Counts {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONString(&buf, vc.Value); err != nil {
				return nil, err
			}
			buf.WriteByte(':')
			buf.WriteString(strconv.Itoa(vc.Count))
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

func encodeJSON(w io.Writer, r Report) error {
	raw, err := r.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("indent report: %w", err)
	}
	out.WriteByte('\n')
	_, err = w.Write(out.Bytes())
	return err
}

// MarshalYAML renders the report as a mapping of mappings in report order.
func (r Report) MarshalYAML() (any, error) {
	return r.yamlNode(), nil
}

func (r Report) yamlNode() *yaml.Node {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range r.columns {
		inner := &yaml.Node{Kind: yaml.MappingNode}
		for _, vc := range c.Counts {
			inner.Content = append(inner.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: vc.Value},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(vc.Count)},
			)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c.Name},
			inner,
		)
	}
	return root
}

func encodeYAML(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r.yamlNode()); err != nil {
		return fmt.Errorf("encode report yaml: %w", err)
	}
	return enc.Close()
}
