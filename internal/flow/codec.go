package flow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// ErrInvalidSnapshot marks snapshot bytes that could not be turned into
// a process group tree (neither valid gzip nor valid JSON).
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// DecodeSnapshot parses snapshot bytes into a fully materialized group
// tree. The bytes may be gzip-compressed or plain JSON; decompression
// is attempted first and plain parsing is the fallback, mirroring how
// backups were historically written both ways.
//
// Both wire shapes are accepted: the flow-download form with a
// top-level "flowContents" object, and the entity form where each node
// wraps its payload in "component" and its children in "contents".
func DecodeSnapshot(data []byte) (*Group, error) {
	raw := data
	if inflated, err := gunzip(data); err == nil {
		raw = inflated
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	root := doc
	if fc, ok := doc["flowContents"].(map[string]any); ok {
		root = fc
	}
	return groupFromMap(root), nil
}

// Compress gzips snapshot bytes. Already-compressed input is returned
// unchanged so a stored flow export is never double-wrapped.
func Compress(data []byte) ([]byte, error) {
	if IsGzip(data) {
		return data, nil
	}
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// IsGzip reports whether data starts with the gzip magic bytes.
func IsGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// groupFromMap materializes a group tree from decoded JSON, walking
// with an explicit stack since nesting depth is server-controlled.
func groupFromMap(m map[string]any) *Group {
	root := &Group{}

	type frame struct {
		src map[string]any
		dst *Group
	}
	stack := []frame{{src: m, dst: root}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		component, contents := normalizeNode(f.src)
		fillComponent(&f.dst.Component, f.src, component, KindProcessGroup)

		f.dst.Processors = childComponents(contents, "processors", KindProcessor)
		f.dst.Connections = childComponents(contents, "connections", KindConnection)
		f.dst.InputPorts = childComponents(contents, "inputPorts", KindInputPort)
		f.dst.OutputPorts = childComponents(contents, "outputPorts", KindOutputPort)
		f.dst.Funnels = childComponents(contents, "funnels", KindFunnel)
		f.dst.LabelCount = len(childMaps(contents, "labels"))

		for _, childSrc := range childMaps(contents, "processGroups") {
			child := &Group{}
			f.dst.Groups = append(f.dst.Groups, child)
			stack = append(stack, frame{src: childSrc, dst: child})
		}
	}
	return root
}

// normalizeNode resolves the two node shapes: the entity form keeps the
// payload under "component" and children under "contents" (on the node
// or on the component); the bare form holds everything in one object.
func normalizeNode(m map[string]any) (component, contents map[string]any) {
	component = m
	if c, ok := m["component"].(map[string]any); ok {
		component = c
	}
	if ct, ok := m["contents"].(map[string]any); ok {
		return component, ct
	}
	if ct, ok := component["contents"].(map[string]any); ok {
		return component, ct
	}
	return component, component
}

func fillComponent(dst *Component, node, component map[string]any, kind Kind) {
	dst.Kind = kind
	dst.Attributes = component

	if id, ok := component["id"].(string); ok {
		dst.ID = id
	} else if id, ok := component["identifier"].(string); ok {
		dst.ID = id
	} else if id, ok := node["id"].(string); ok {
		dst.ID = id
	}

	if name, ok := component["name"].(string); ok {
		dst.Name = name
	}

	if rev, ok := node["revision"].(map[string]any); ok {
		if version, ok := rev["version"].(float64); ok {
			dst.Revision = int64(version)
		}
	}

	if status, ok := node["status"].(map[string]any); ok {
		if rs, ok := status["runStatus"].(string); ok {
			dst.RunStatus = rs
		}
	}
	if dst.RunStatus == "" {
		if state, ok := component["state"].(string); ok {
			dst.RunStatus = state
		}
	}
}

func childComponents(contents map[string]any, key string, kind Kind) []Component {
	maps := childMaps(contents, key)
	if len(maps) == 0 {
		return nil
	}
	out := make([]Component, 0, len(maps))
	for _, m := range maps {
		component, _ := normalizeNode(m)
		var c Component
		fillComponent(&c, m, component, kind)
		out = append(out, c)
	}
	return out
}

func childMaps(contents map[string]any, key string) []map[string]any {
	list, ok := contents[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
