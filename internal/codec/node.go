// Package codec serializes models and edit scripts as tagged JSON and frames
// stored payloads with optional zstd compression.
package codec

import (
	"encoding/json"
	"fmt"

	"chronolens/internal/model"
)

// jsonNode is the wire form shared by all node variants. "@class" tags the
// variant and only the fields of that variant are set.
type jsonNode struct {
	Class       string            `json:"@class"`
	ID          string            `json:"id,omitempty"`
	Path        string            `json:"path,omitempty"`
	Modifiers   []string          `json:"modifiers,omitempty"`
	Supertypes  []string          `json:"supertypes,omitempty"`
	Parameters  []string          `json:"parameters,omitempty"`
	Body        []string          `json:"body,omitempty"`
	Initializer []string          `json:"initializer,omitempty"`
	Children    []json.RawMessage `json:"children,omitempty"`
}

func toJSONNode(node model.SourceNode) (*jsonNode, error) {
	j := &jsonNode{Class: node.Kind().String()}
	var children []model.SourceEntity
	switch n := node.(type) {
	case *model.SourceFile:
		j.Path = n.Path
		children = n.Entities
	case *model.Type:
		j.ID = n.Identifier
		j.Modifiers = n.Modifiers
		j.Supertypes = n.Supertypes
		children = n.Members
	case *model.Function:
		j.ID = n.Identifier
		j.Modifiers = n.Modifiers
		j.Parameters = n.Parameters
		j.Body = n.Body
	case *model.Variable:
		j.ID = n.Identifier
		j.Modifiers = n.Modifiers
		j.Initializer = n.Initializer
	default:
		panic(fmt.Sprintf("codec: unknown node %T", node))
	}
	for _, child := range children {
		raw, err := MarshalNode(child)
		if err != nil {
			return nil, err
		}
		j.Children = append(j.Children, raw)
	}
	return j, nil
}

func fromJSONNode(j *jsonNode) (model.SourceNode, error) {
	kind, err := model.ParseKind(j.Class)
	if err != nil {
		return nil, err
	}
	var children []model.SourceEntity
	if len(j.Children) > 0 && (kind == model.KindFunction || kind == model.KindVariable) {
		return nil, fmt.Errorf("%s '%s' can't have children", kind, j.ID)
	}
	for _, raw := range j.Children {
		child, err := UnmarshalEntity(raw)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	switch kind {
	case model.KindFile:
		return model.NewSourceFile(j.Path, children...)
	case model.KindType:
		return model.NewType(j.ID, model.NewSet(j.Modifiers...), model.NewSet(j.Supertypes...), children...)
	case model.KindFunction:
		return model.NewFunction(j.ID, model.NewSet(j.Modifiers...), j.Parameters, j.Body)
	case model.KindVariable:
		return model.NewVariable(j.ID, model.NewSet(j.Modifiers...), j.Initializer)
	default:
		panic(fmt.Sprintf("codec: unknown kind %v", kind))
	}
}

// MarshalNode encodes any node, including its descendants.
func MarshalNode(node model.SourceNode) ([]byte, error) {
	j, err := toJSONNode(node)
	if err != nil {
		return nil, err
	}
	return json.Marshal(j)
}

// UnmarshalNode decodes a node encoded by MarshalNode. The decoded node is
// validated like any constructed node.
func UnmarshalNode(data []byte) (model.SourceNode, error) {
	var j jsonNode
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decoding node: %w", err)
	}
	return fromJSONNode(&j)
}

// UnmarshalEntity is like UnmarshalNode but rejects source files.
func UnmarshalEntity(data []byte) (model.SourceEntity, error) {
	node, err := UnmarshalNode(data)
	if err != nil {
		return nil, err
	}
	entity, ok := node.(model.SourceEntity)
	if !ok {
		return nil, fmt.Errorf("expected an entity, got %s '%s'", node.Kind(), node.ID())
	}
	return entity, nil
}

// MarshalSourceFile encodes a source file.
func MarshalSourceFile(f *model.SourceFile) ([]byte, error) {
	return MarshalNode(f)
}

// UnmarshalSourceFile decodes a source file encoded by MarshalSourceFile.
func UnmarshalSourceFile(data []byte) (*model.SourceFile, error) {
	node, err := UnmarshalNode(data)
	if err != nil {
		return nil, err
	}
	f, ok := node.(*model.SourceFile)
	if !ok {
		return nil, fmt.Errorf("expected a source file, got %s '%s'", node.Kind(), node.ID())
	}
	return f, nil
}

// NodeView converts a node to plain maps and slices for generic output
// encoders such as YAML.
func NodeView(node model.SourceNode) (map[string]interface{}, error) {
	data, err := MarshalNode(node)
	if err != nil {
		return nil, err
	}
	var view map[string]interface{}
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, err
	}
	return view, nil
}
