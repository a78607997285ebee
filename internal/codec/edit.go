package codec

import (
	"encoding/json"
	"fmt"

	"chronolens/internal/edit"
	"chronolens/internal/model"
)

const (
	classAdd    = "Add"
	classRemove = "Remove"
	classChange = "Change"
)

type jsonSetEdit struct {
	Class string `json:"@class"`
	Value string `json:"value"`
}

type jsonListEdit struct {
	Class string  `json:"@class"`
	Index int     `json:"index"`
	Value *string `json:"value,omitempty"`
}

type jsonNodeSetEdit struct {
	Class       string           `json:"@class"`
	Kind        string           `json:"kind,omitempty"`
	ID          string           `json:"id,omitempty"`
	Node        json.RawMessage  `json:"node,omitempty"`
	Transaction *jsonTransaction `json:"transaction,omitempty"`
}

type jsonTransaction struct {
	Class            string            `json:"@class"`
	SupertypeEdits   []jsonSetEdit     `json:"supertypeEdits,omitempty"`
	ModifierEdits    []jsonSetEdit     `json:"modifierEdits,omitempty"`
	MemberEdits      []jsonNodeSetEdit `json:"memberEdits,omitempty"`
	ParameterEdits   []jsonListEdit    `json:"parameterEdits,omitempty"`
	BodyEdits        []jsonListEdit    `json:"bodyEdits,omitempty"`
	InitializerEdits []jsonListEdit    `json:"initializerEdits,omitempty"`
}

type jsonSourceFileTransaction struct {
	Edits []jsonNodeSetEdit `json:"edits"`
}

func toJSONSetEdits(edits []edit.SetEdit[string]) []jsonSetEdit {
	var out []jsonSetEdit
	for _, e := range edits {
		switch e := e.(type) {
		case edit.SetAdd[string]:
			out = append(out, jsonSetEdit{Class: classAdd, Value: e.Value})
		case edit.SetRemove[string]:
			out = append(out, jsonSetEdit{Class: classRemove, Value: e.Value})
		default:
			panic(fmt.Sprintf("codec: unknown set edit %T", e))
		}
	}
	return out
}

func fromJSONSetEdits(in []jsonSetEdit) ([]edit.SetEdit[string], error) {
	var out []edit.SetEdit[string]
	for _, e := range in {
		switch e.Class {
		case classAdd:
			out = append(out, edit.SetAdd[string]{Value: e.Value})
		case classRemove:
			out = append(out, edit.SetRemove[string]{Value: e.Value})
		default:
			return nil, fmt.Errorf("unknown set edit %q", e.Class)
		}
	}
	return out, nil
}

func toJSONListEdits(edits []edit.ListEdit[string]) []jsonListEdit {
	var out []jsonListEdit
	for _, e := range edits {
		switch e := e.(type) {
		case edit.ListAdd[string]:
			value := e.Value
			out = append(out, jsonListEdit{Class: classAdd, Index: e.Index, Value: &value})
		case edit.ListRemove[string]:
			out = append(out, jsonListEdit{Class: classRemove, Index: e.Index})
		default:
			panic(fmt.Sprintf("codec: unknown list edit %T", e))
		}
	}
	return out
}

func fromJSONListEdits(in []jsonListEdit) ([]edit.ListEdit[string], error) {
	var out []edit.ListEdit[string]
	for _, e := range in {
		switch e.Class {
		case classAdd:
			if e.Value == nil {
				return nil, fmt.Errorf("list add at %d has no value", e.Index)
			}
			out = append(out, edit.ListAdd[string]{Index: e.Index, Value: *e.Value})
		case classRemove:
			out = append(out, edit.ListRemove[string]{Index: e.Index})
		default:
			return nil, fmt.Errorf("unknown list edit %q", e.Class)
		}
	}
	return out, nil
}

func toJSONNodeSetEdits(edits []edit.NodeSetEdit) ([]jsonNodeSetEdit, error) {
	var out []jsonNodeSetEdit
	for _, e := range edits {
		switch e := e.(type) {
		case edit.NodeAdd:
			raw, err := MarshalNode(e.Node)
			if err != nil {
				return nil, err
			}
			out = append(out, jsonNodeSetEdit{Class: classAdd, Node: raw})
		case edit.NodeRemove:
			out = append(out, jsonNodeSetEdit{Class: classRemove, Kind: e.Kind.String(), ID: e.ID})
		case edit.NodeChange:
			tx, err := toJSONTransaction(e.Transaction)
			if err != nil {
				return nil, err
			}
			out = append(out, jsonNodeSetEdit{Class: classChange, Kind: e.Kind.String(), ID: e.ID, Transaction: tx})
		default:
			panic(fmt.Sprintf("codec: unknown node set edit %T", e))
		}
	}
	return out, nil
}

func fromJSONNodeSetEdits(in []jsonNodeSetEdit) ([]edit.NodeSetEdit, error) {
	var out []edit.NodeSetEdit
	for _, e := range in {
		switch e.Class {
		case classAdd:
			node, err := UnmarshalEntity(e.Node)
			if err != nil {
				return nil, err
			}
			out = append(out, edit.NodeAdd{Node: node})
		case classRemove:
			kind, err := model.ParseKind(e.Kind)
			if err != nil {
				return nil, err
			}
			out = append(out, edit.NodeRemove{Kind: kind, ID: e.ID})
		case classChange:
			kind, err := model.ParseKind(e.Kind)
			if err != nil {
				return nil, err
			}
			if e.Transaction == nil {
				return nil, fmt.Errorf("change of '%s' has no transaction", e.ID)
			}
			tx, err := fromJSONTransaction(e.Transaction)
			if err != nil {
				return nil, err
			}
			if tx.Kind() != kind {
				return nil, fmt.Errorf("change of %s '%s' carries a %s transaction", kind, e.ID, tx.Kind())
			}
			out = append(out, edit.NodeChange{Kind: kind, ID: e.ID, Transaction: tx})
		default:
			return nil, fmt.Errorf("unknown node set edit %q", e.Class)
		}
	}
	return out, nil
}

func toJSONTransaction(tx edit.Transaction) (*jsonTransaction, error) {
	switch tx := tx.(type) {
	case *edit.TypeTransaction:
		members, err := toJSONNodeSetEdits(tx.MemberEdits)
		if err != nil {
			return nil, err
		}
		return &jsonTransaction{
			Class:          "TypeTransaction",
			SupertypeEdits: toJSONSetEdits(tx.SupertypeEdits),
			ModifierEdits:  toJSONSetEdits(tx.ModifierEdits),
			MemberEdits:    members,
		}, nil
	case *edit.FunctionTransaction:
		return &jsonTransaction{
			Class:          "FunctionTransaction",
			ModifierEdits:  toJSONSetEdits(tx.ModifierEdits),
			ParameterEdits: toJSONListEdits(tx.ParameterEdits),
			BodyEdits:      toJSONListEdits(tx.BodyEdits),
		}, nil
	case *edit.VariableTransaction:
		return &jsonTransaction{
			Class:            "VariableTransaction",
			ModifierEdits:    toJSONSetEdits(tx.ModifierEdits),
			InitializerEdits: toJSONListEdits(tx.InitializerEdits),
		}, nil
	default:
		panic(fmt.Sprintf("codec: unknown transaction %T", tx))
	}
}

func fromJSONTransaction(j *jsonTransaction) (edit.Transaction, error) {
	modifiers, err := fromJSONSetEdits(j.ModifierEdits)
	if err != nil {
		return nil, err
	}
	switch j.Class {
	case "TypeTransaction":
		supertypes, err := fromJSONSetEdits(j.SupertypeEdits)
		if err != nil {
			return nil, err
		}
		members, err := fromJSONNodeSetEdits(j.MemberEdits)
		if err != nil {
			return nil, err
		}
		return &edit.TypeTransaction{SupertypeEdits: supertypes, ModifierEdits: modifiers, MemberEdits: members}, nil
	case "FunctionTransaction":
		parameters, err := fromJSONListEdits(j.ParameterEdits)
		if err != nil {
			return nil, err
		}
		body, err := fromJSONListEdits(j.BodyEdits)
		if err != nil {
			return nil, err
		}
		return &edit.FunctionTransaction{ModifierEdits: modifiers, ParameterEdits: parameters, BodyEdits: body}, nil
	case "VariableTransaction":
		initializer, err := fromJSONListEdits(j.InitializerEdits)
		if err != nil {
			return nil, err
		}
		return &edit.VariableTransaction{ModifierEdits: modifiers, InitializerEdits: initializer}, nil
	default:
		return nil, fmt.Errorf("unknown transaction %q", j.Class)
	}
}

// MarshalTransaction encodes a file transaction. nil encodes like an empty
// transaction.
func MarshalTransaction(tx *edit.SourceFileTransaction) ([]byte, error) {
	if tx == nil {
		tx = &edit.SourceFileTransaction{}
	}
	edits, err := toJSONNodeSetEdits(tx.Edits)
	if err != nil {
		return nil, err
	}
	if edits == nil {
		edits = []jsonNodeSetEdit{}
	}
	return json.Marshal(jsonSourceFileTransaction{Edits: edits})
}

// UnmarshalTransaction decodes a file transaction encoded by
// MarshalTransaction.
func UnmarshalTransaction(data []byte) (*edit.SourceFileTransaction, error) {
	var j jsonSourceFileTransaction
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decoding transaction: %w", err)
	}
	edits, err := fromJSONNodeSetEdits(j.Edits)
	if err != nil {
		return nil, fmt.Errorf("decoding transaction: %w", err)
	}
	return &edit.SourceFileTransaction{Edits: edits}, nil
}
