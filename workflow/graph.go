// Package workflow holds the ComfyUI job graph used for try-on and the logic that
// fills its input slots for one submission.
package workflow

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Node IDs the try-on graph is patched through.
const (
	NodeModelImage   = "1"
	NodeGarmentImage = "6"
	NodeOutput       = "14"
	NodeSegment      = "44"
)

//go:embed template.json
var defaultTemplate []byte

var ErrInvalidTemplate = errors.New("invalid workflow template")

// Node is one operation in the graph. Inputs hold literals or [nodeID, slot] references.
type Node struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
}

// Graph maps node IDs to nodes, in the API format accepted by POST /prompt.
type Graph map[string]Node

// DefaultTemplate returns the built-in try-on graph.
func DefaultTemplate() (Graph, error) {
	return ParseTemplate(defaultTemplate)
}

// LoadTemplate reads a graph exported with ComfyUI's "Save (API format)".
func LoadTemplate(path string) (Graph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow template: %w", err)
	}
	return ParseTemplate(raw)
}

// ParseTemplate decodes and validates a template.
func ParseTemplate(raw []byte) (Graph, error) {
	g, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks that the nodes the try-on patches exist with the expected operations.
func (g Graph) Validate() error {
	want := map[string]string{
		NodeModelImage:   "LoadImage",
		NodeGarmentImage: "LoadImage",
		NodeOutput:       "SaveImage",
		NodeSegment:      "ClothesSegment",
	}
	for id, class := range want {
		n, ok := g[id]
		if !ok {
			return fmt.Errorf("%w: node %s missing", ErrInvalidTemplate, id)
		}
		if n.ClassType != class {
			return fmt.Errorf("%w: node %s is %s, want %s", ErrInvalidTemplate, id, n.ClassType, class)
		}
		if n.Inputs == nil {
			return fmt.Errorf("%w: node %s has no inputs", ErrInvalidTemplate, id)
		}
	}
	return nil
}

// Clone deep-copies the graph. Numbers keep their exact textual form.
func (g Graph) Clone() (Graph, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

func decode(raw []byte) (Graph, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var g Graph
	if err := dec.Decode(&g); err != nil {
		return nil, err
	}
	if len(g) == 0 {
		return nil, errors.New("empty graph")
	}
	return g, nil
}

// IsReference reports whether an input value points at another node's output slot.
func IsReference(v any) bool {
	ref, ok := v.([]any)
	if !ok || len(ref) != 2 {
		return false
	}
	_, ok = ref[0].(string)
	return ok
}
