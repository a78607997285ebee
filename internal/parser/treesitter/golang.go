//go:build cgo

package treesitter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"chronolens/internal/model"
)

// goType collects a type declaration and the methods declared on it.
type goType struct {
	name       string
	modifiers  []string
	supertypes []string
	fields     []model.SourceEntity
	methods    []model.SourceEntity
}

// goFile extracts package-level declarations. Methods are grouped under
// their receiver type; a receiver declared in another file of the package
// gets a type without modifiers in this one. All init functions merge into a
// single init().
func goFile(s *scope, root *sitter.Node) ([]model.SourceEntity, error) {
	var (
		entities []model.SourceEntity
		types    []*goType
		byName   = make(map[string]*goType)
		initBody []string
		hasInit  bool
	)
	typeNamed := func(name string) *goType {
		t, ok := byName[name]
		if !ok {
			t = &goType{name: name}
			byName[name] = t
			types = append(types, t)
		}
		return t
	}

	for _, n := range namedChildren(root) {
		switch n.Type() {
		case "function_declaration":
			name := s.text(n.ChildByFieldName("name"))
			if name == "init" {
				hasInit = true
				initBody = append(initBody, s.block(n.ChildByFieldName("body"))...)
				continue
			}
			f, err := s.goFunction(s.path, name, n)
			if err != nil {
				return nil, err
			}
			entities = append(entities, f)
		case "method_declaration":
			t := typeNamed(s.receiverType(n.ChildByFieldName("receiver")))
			f, err := s.goFunction(s.path+string(model.TypeSeparator)+t.name, s.text(n.ChildByFieldName("name")), n)
			if err != nil {
				return nil, err
			}
			t.methods = append(t.methods, f)
		case "type_declaration":
			for _, spec := range namedChildren(n) {
				if spec.Type() != "type_spec" && spec.Type() != "type_alias" {
					continue
				}
				t := typeNamed(s.text(spec.ChildByFieldName("name")))
				if t.modifiers != nil {
					return nil, s.errorf(spec, "type '%s' is declared twice", t.name)
				}
				if err := s.goTypeSpec(t, spec); err != nil {
					return nil, err
				}
			}
		case "var_declaration", "const_declaration":
			vars, err := s.goVariables(n)
			if err != nil {
				return nil, err
			}
			entities = append(entities, vars...)
		}
	}

	if hasInit {
		f, err := model.NewFunction(model.ChildID(s.path, model.KindFunction, "init()"), nil, nil, initBody)
		if err != nil {
			return nil, err
		}
		entities = append(entities, f)
	}
	for _, t := range types {
		id := model.ChildID(s.path, model.KindType, t.name)
		members := append(t.fields, t.methods...)
		typ, err := model.NewType(id, model.NewSet(t.modifiers...), model.NewSet(t.supertypes...), members...)
		if err != nil {
			return nil, err
		}
		entities = append(entities, typ)
	}
	return entities, nil
}

func exported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

func goModifiers(name string, extra ...string) []string {
	if exported(name) {
		extra = append(extra, "exported")
	}
	return extra
}

// receiverType returns the base type name of a method receiver, without
// pointer or type arguments.
func (s *scope) receiverType(receiver *sitter.Node) string {
	name := s.typeName(childOfType(receiver, "parameter_declaration").ChildByFieldName("type"))
	name = strings.TrimPrefix(name, "*")
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

func (s *scope) goTypeSpec(t *goType, spec *sitter.Node) error {
	typ := spec.ChildByFieldName("type")
	kind := "alias"
	if spec.Type() == "type_spec" {
		kind = strings.TrimSuffix(typ.Type(), "_type")
	}
	switch kind {
	case "alias", "struct", "interface":
		t.modifiers = goModifiers(t.name, kind)
	default:
		t.modifiers = goModifiers(t.name, "type")
	}

	typeID := s.path + string(model.TypeSeparator) + t.name
	switch typ.Type() {
	case "struct_type":
		for _, field := range childrenOfType(childOfType(typ, "field_declaration_list"), "field_declaration") {
			fieldType := s.compact(field.ChildByFieldName("type"))
			names := childrenOfType(field, "field_identifier")
			if len(names) == 0 {
				t.supertypes = append(t.supertypes, fieldType)
				continue
			}
			for _, name := range names {
				v, err := model.NewVariable(model.ChildID(typeID, model.KindVariable, s.text(name)),
					model.NewSet(goModifiers(s.text(name))...), []string{fieldType})
				if err != nil {
					return err
				}
				t.fields = append(t.fields, v)
			}
		}
	case "interface_type":
		for _, elem := range namedChildren(typ) {
			switch elem.Type() {
			case "method_spec", "method_elem":
				f, err := s.goSignature(typeID, s.text(elem.ChildByFieldName("name")), elem, nil)
				if err != nil {
					return err
				}
				t.fields = append(t.fields, f)
			case "comment":
			default:
				t.supertypes = append(t.supertypes, s.compact(elem))
			}
		}
	}
	if len(model.NewSet(t.supertypes...)) != len(t.supertypes) {
		return s.errorf(spec, "'%s' embeds a type twice", t.name)
	}
	return nil
}

func (s *scope) goFunction(parentID, name string, n *sitter.Node) (*model.Function, error) {
	return s.goSignature(parentID, name, n, s.block(n.ChildByFieldName("body")))
}

// goSignature builds a function named by its parameter types. Blank and
// unnamed parameters contribute only their type.
func (s *scope) goSignature(parentID, name string, n *sitter.Node, body []string) (*model.Function, error) {
	var types, names []string
	for _, p := range namedChildren(n.ChildByFieldName("parameters")) {
		var prefix string
		switch p.Type() {
		case "parameter_declaration":
		case "variadic_parameter_declaration":
			prefix = "..."
		default:
			continue
		}
		typ := prefix + s.typeName(p.ChildByFieldName("type"))
		ids := childrenOfType(p, "identifier")
		if len(ids) == 0 {
			types = append(types, typ)
			continue
		}
		for _, id := range ids {
			types = append(types, typ)
			if paramName := s.text(id); paramName != "_" {
				names = append(names, paramName)
			}
		}
	}
	signature := name + "(" + strings.Join(types, ", ") + ")"
	return model.NewFunction(model.ChildID(parentID, model.KindFunction, signature),
		model.NewSet(goModifiers(name)...), names, body)
}

// goVariables returns one variable per name of a var or const declaration.
// Blank names are skipped.
func (s *scope) goVariables(n *sitter.Node) ([]model.SourceEntity, error) {
	keyword := "var"
	if n.Type() == "const_declaration" {
		keyword = "const"
	}

	var specs []*sitter.Node
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "var_spec", "const_spec":
			specs = append(specs, child)
		case "var_spec_list":
			specs = append(specs, childrenOfType(child, "var_spec")...)
		}
	}

	var vars []model.SourceEntity
	for _, spec := range specs {
		names := childrenOfType(spec, "identifier")
		values := namedChildren(spec.ChildByFieldName("value"))
		for i, id := range names {
			name := s.text(id)
			if name == "_" {
				continue
			}
			var initializer []string
			switch {
			case len(values) == len(names):
				initializer = s.block(values[i])
			case len(values) > 0:
				initializer = s.block(spec.ChildByFieldName("value"))
			}
			v, err := model.NewVariable(model.ChildID(s.path, model.KindVariable, name),
				model.NewSet(goModifiers(name, keyword)...), initializer)
			if err != nil {
				return nil, err
			}
			vars = append(vars, v)
		}
	}
	return vars, nil
}
