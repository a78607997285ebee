//go:build cgo

package treesitter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"chronolens/internal/model"
)

var javaTypeDeclarations = map[string]bool{
	"class_declaration":           true,
	"interface_declaration":       true,
	"enum_declaration":            true,
	"annotation_type_declaration": true,
	"record_declaration":          true,
}

func javaFile(s *scope, root *sitter.Node) ([]model.SourceEntity, error) {
	var entities []model.SourceEntity
	for _, n := range namedChildren(root) {
		if !javaTypeDeclarations[n.Type()] {
			continue
		}
		t, err := s.javaType(s.path, n)
		if err != nil {
			return nil, err
		}
		entities = append(entities, t)
	}
	return entities, nil
}

func (s *scope) javaType(parentID string, n *sitter.Node) (*model.Type, error) {
	id := model.ChildID(parentID, model.KindType, s.text(n.ChildByFieldName("name")))
	modifiers, err := s.javaModifiers(n)
	if err != nil {
		return nil, err
	}

	var supertypes []string
	addTypes := func(list *sitter.Node) {
		if list == nil {
			return
		}
		if inner := childOfType(list, "type_list"); inner != nil {
			list = inner
		}
		for _, t := range namedChildren(list) {
			supertypes = append(supertypes, s.compact(t))
		}
	}
	if superclass := n.ChildByFieldName("superclass"); superclass != nil {
		addTypes(superclass)
	}
	addTypes(n.ChildByFieldName("interfaces"))
	addTypes(childOfType(n, "extends_interfaces"))
	if len(model.NewSet(supertypes...)) != len(supertypes) {
		return nil, s.errorf(n, "'%s' repeats a supertype", id)
	}

	var members []model.SourceEntity
	if n.Type() == "record_declaration" {
		for _, component := range namedChildren(n.ChildByFieldName("parameters")) {
			if component.Type() != "formal_parameter" {
				continue
			}
			v, err := model.NewVariable(model.ChildID(id, model.KindVariable, s.text(component.ChildByFieldName("name"))), nil, nil)
			if err != nil {
				return nil, err
			}
			members = append(members, v)
		}
	}
	body, err := s.javaMembers(id, n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	members = append(members, body...)
	return model.NewType(id, modifiers, model.NewSet(supertypes...), members...)
}

func (s *scope) javaMembers(id string, body *sitter.Node) ([]model.SourceEntity, error) {
	var declarations []*sitter.Node
	for _, n := range namedChildren(body) {
		if n.Type() == "enum_body_declarations" {
			declarations = append(declarations, namedChildren(n)...)
		} else {
			declarations = append(declarations, n)
		}
	}

	var members []model.SourceEntity
	for _, n := range declarations {
		switch typ := n.Type(); {
		case javaTypeDeclarations[typ]:
			t, err := s.javaType(id, n)
			if err != nil {
				return nil, err
			}
			members = append(members, t)
		case typ == "enum_constant":
			v, err := model.NewVariable(s.memberID(id, model.KindVariable, n), nil, s.block(n.ChildByFieldName("body")))
			if err != nil {
				return nil, err
			}
			members = append(members, v)
		case typ == "annotation_type_element_declaration":
			v, err := model.NewVariable(s.memberID(id, model.KindVariable, n), nil, s.block(n.ChildByFieldName("value")))
			if err != nil {
				return nil, err
			}
			members = append(members, v)
		case typ == "field_declaration" || typ == "constant_declaration":
			modifiers, err := s.javaModifiers(n)
			if err != nil {
				return nil, err
			}
			for _, declarator := range childrenOfType(n, "variable_declarator") {
				v, err := model.NewVariable(s.memberID(id, model.KindVariable, declarator), modifiers, s.block(declarator.ChildByFieldName("value")))
				if err != nil {
					return nil, err
				}
				members = append(members, v)
			}
		case typ == "method_declaration" || typ == "constructor_declaration":
			f, err := s.javaMethod(id, n)
			if err != nil {
				return nil, err
			}
			members = append(members, f)
		}
	}
	return members, nil
}

func (s *scope) memberID(parentID string, kind model.Kind, n *sitter.Node) string {
	return model.ChildID(parentID, kind, s.text(n.ChildByFieldName("name")))
}

// javaMethod builds a function whose signature is the method name followed by
// its parameter types.
func (s *scope) javaMethod(parentID string, n *sitter.Node) (*model.Function, error) {
	modifiers, err := s.javaModifiers(n)
	if err != nil {
		return nil, err
	}

	var types, names []string
	for _, p := range namedChildren(n.ChildByFieldName("parameters")) {
		switch p.Type() {
		case "formal_parameter":
			types = append(types, s.typeName(p.ChildByFieldName("type")))
			names = append(names, s.text(p.ChildByFieldName("name")))
		case "spread_parameter":
			var typ, name string
			for _, child := range namedChildren(p) {
				switch child.Type() {
				case "modifiers":
				case "variable_declarator":
					name = s.text(child.ChildByFieldName("name"))
				default:
					if typ == "" {
						typ = s.typeName(child)
					}
				}
			}
			types = append(types, typ+"...")
			names = append(names, name)
		}
	}

	signature := s.text(n.ChildByFieldName("name")) + "(" + strings.Join(types, ", ") + ")"
	return model.NewFunction(model.ChildID(parentID, model.KindFunction, signature), modifiers, names, s.block(n.ChildByFieldName("body")))
}

// javaModifiers returns the keywords and annotations of n's modifiers.
func (s *scope) javaModifiers(n *sitter.Node) (model.Set, error) {
	mods := childOfType(n, "modifiers")
	if mods == nil {
		return nil, nil
	}
	var values []string
	for i := 0; i < int(mods.ChildCount()); i++ {
		if child := mods.Child(i); child != nil {
			values = append(values, s.compact(child))
		}
	}
	set := model.NewSet(values...)
	if len(set) != len(values) {
		return nil, s.errorf(mods, "repeated modifier in '%s'", s.compact(mods))
	}
	return set, nil
}
