package edit

import (
	"fmt"

	"chronolens/internal/model"
)

// Transaction describes how one existing entity changes. It is implemented
// by exactly *TypeTransaction, *FunctionTransaction and
// *VariableTransaction.
type Transaction interface {
	// Kind returns the kind of entity the transaction applies to.
	Kind() model.Kind
	// IsEmpty reports whether applying the transaction is a no-op.
	IsEmpty() bool
	transaction()
}

// TypeTransaction changes a Type. MemberEdits may nest further transactions.
type TypeTransaction struct {
	SupertypeEdits []SetEdit[string]
	ModifierEdits  []SetEdit[string]
	MemberEdits    []NodeSetEdit
}

// FunctionTransaction changes a Function.
type FunctionTransaction struct {
	ModifierEdits  []SetEdit[string]
	ParameterEdits []ListEdit[string]
	BodyEdits      []ListEdit[string]
}

// VariableTransaction changes a Variable.
type VariableTransaction struct {
	ModifierEdits    []SetEdit[string]
	InitializerEdits []ListEdit[string]
}

func (*TypeTransaction) Kind() model.Kind     { return model.KindType }
func (*FunctionTransaction) Kind() model.Kind { return model.KindFunction }
func (*VariableTransaction) Kind() model.Kind { return model.KindVariable }

func (t *TypeTransaction) IsEmpty() bool {
	return len(t.SupertypeEdits) == 0 && len(t.ModifierEdits) == 0 && len(t.MemberEdits) == 0
}

func (t *FunctionTransaction) IsEmpty() bool {
	return len(t.ModifierEdits) == 0 && len(t.ParameterEdits) == 0 && len(t.BodyEdits) == 0
}

func (t *VariableTransaction) IsEmpty() bool {
	return len(t.ModifierEdits) == 0 && len(t.InitializerEdits) == 0
}

func (*TypeTransaction) transaction()     {}
func (*FunctionTransaction) transaction() {}
func (*VariableTransaction) transaction() {}

// ApplyTransaction returns node changed by tx. The kinds of node and tx must
// match.
func ApplyTransaction(node model.SourceEntity, tx Transaction) (model.SourceEntity, error) {
	if node.Kind() != tx.Kind() {
		return nil, conflictf("can't apply a %s transaction to %s '%s'", tx.Kind(), node.Kind(), node.ID())
	}
	switch n := node.(type) {
	case *model.Type:
		return applyType(n, tx.(*TypeTransaction))
	case *model.Function:
		return applyFunction(n, tx.(*FunctionTransaction))
	case *model.Variable:
		return applyVariable(n, tx.(*VariableTransaction))
	default:
		panic(fmt.Sprintf("edit: unknown entity %T", node))
	}
}

func applyType(t *model.Type, tx *TypeTransaction) (*model.Type, error) {
	supertypes, err := ApplySet(t.Supertypes, tx.SupertypeEdits)
	if err != nil {
		return nil, fmt.Errorf("supertypes: %w", err)
	}
	modifiers, err := ApplySet(t.Modifiers, tx.ModifierEdits)
	if err != nil {
		return nil, fmt.Errorf("modifiers: %w", err)
	}
	members, err := ApplyNodeSet(t.Identifier, t.Members, tx.MemberEdits)
	if err != nil {
		return nil, err
	}
	return model.NewType(t.Identifier, modifiers, supertypes, members...)
}

func applyFunction(f *model.Function, tx *FunctionTransaction) (*model.Function, error) {
	modifiers, err := ApplySet(f.Modifiers, tx.ModifierEdits)
	if err != nil {
		return nil, fmt.Errorf("modifiers: %w", err)
	}
	parameters, err := ApplyList(f.Parameters, tx.ParameterEdits)
	if err != nil {
		return nil, fmt.Errorf("parameters: %w", err)
	}
	body, err := ApplyList(f.Body, tx.BodyEdits)
	if err != nil {
		return nil, fmt.Errorf("body: %w", err)
	}
	return model.NewFunction(f.Identifier, modifiers, parameters, body)
}

func applyVariable(v *model.Variable, tx *VariableTransaction) (*model.Variable, error) {
	modifiers, err := ApplySet(v.Modifiers, tx.ModifierEdits)
	if err != nil {
		return nil, fmt.Errorf("modifiers: %w", err)
	}
	initializer, err := ApplyList(v.Initializer, tx.InitializerEdits)
	if err != nil {
		return nil, fmt.Errorf("initializer: %w", err)
	}
	return model.NewVariable(v.Identifier, modifiers, initializer)
}

// DiffEntity returns the transaction turning before into after. Both must
// have the same kind and id.
func DiffEntity(before, after model.SourceEntity) Transaction {
	if before.Kind() != after.Kind() || before.ID() != after.ID() {
		panic(fmt.Sprintf("edit: can't diff %s '%s' against %s '%s'",
			before.Kind(), before.ID(), after.Kind(), after.ID()))
	}
	switch b := before.(type) {
	case *model.Type:
		a := after.(*model.Type)
		return &TypeTransaction{
			SupertypeEdits: DiffSet(b.Supertypes, a.Supertypes),
			ModifierEdits:  DiffSet(b.Modifiers, a.Modifiers),
			MemberEdits:    DiffNodeSet(b.Members, a.Members),
		}
	case *model.Function:
		a := after.(*model.Function)
		return &FunctionTransaction{
			ModifierEdits:  DiffSet(b.Modifiers, a.Modifiers),
			ParameterEdits: DiffList(b.Parameters, a.Parameters),
			BodyEdits:      DiffList(b.Body, a.Body),
		}
	case *model.Variable:
		a := after.(*model.Variable)
		return &VariableTransaction{
			ModifierEdits:    DiffSet(b.Modifiers, a.Modifiers),
			InitializerEdits: DiffList(b.Initializer, a.Initializer),
		}
	default:
		panic(fmt.Sprintf("edit: unknown entity %T", before))
	}
}

// SourceFileTransaction describes how one file's top-level entities change
// across one revision step.
type SourceFileTransaction struct {
	Edits []NodeSetEdit
}

// IsEmpty reports whether the transaction has no edits.
func (t *SourceFileTransaction) IsEmpty() bool { return t == nil || len(t.Edits) == 0 }

// ApplySourceFile applies tx to file. A nil file is the empty file at path.
func ApplySourceFile(path string, file *model.SourceFile, tx *SourceFileTransaction) (*model.SourceFile, error) {
	var entities []model.SourceEntity
	if file != nil {
		entities = file.Entities
	}
	if tx != nil {
		var err error
		if entities, err = ApplyNodeSet(path, entities, tx.Edits); err != nil {
			return nil, err
		}
	}
	return model.NewSourceFile(path, entities...)
}

// DiffSourceFile returns the transaction turning before into after. Either
// may be nil to stand for the empty file.
func DiffSourceFile(before, after *model.SourceFile) *SourceFileTransaction {
	var b, a []model.SourceEntity
	if before != nil {
		b = before.Entities
	}
	if after != nil {
		a = after.Entities
	}
	return &SourceFileTransaction{Edits: DiffNodeSet(b, a)}
}
