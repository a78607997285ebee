package edit

import (
	"fmt"
	"slices"

	"chronolens/internal/model"
)

// NodeSetEdit is an edit over a set of sibling entities keyed by (kind, id).
// It is implemented by exactly NodeAdd, NodeRemove and NodeChange.
type NodeSetEdit interface {
	// Key returns the (kind, id) of the entity the edit targets.
	Key() (model.Kind, string)
	nodeSetEdit()
}

// NodeAdd adds a new entity.
type NodeAdd struct {
	Node model.SourceEntity
}

// NodeRemove removes an existing entity.
type NodeRemove struct {
	Kind model.Kind
	ID   string
}

// NodeChange applies Transaction to an existing entity.
type NodeChange struct {
	Kind        model.Kind
	ID          string
	Transaction Transaction
}

func (e NodeAdd) Key() (model.Kind, string)    { return e.Node.Kind(), e.Node.ID() }
func (e NodeRemove) Key() (model.Kind, string) { return e.Kind, e.ID }
func (e NodeChange) Key() (model.Kind, string) { return e.Kind, e.ID }

func (NodeAdd) nodeSetEdit()    {}
func (NodeRemove) nodeSetEdit() {}
func (NodeChange) nodeSetEdit() {}

func indexOf(nodes []model.SourceEntity, kind model.Kind, id string) int {
	return slices.IndexFunc(nodes, func(n model.SourceEntity) bool {
		return n.Kind() == kind && n.ID() == id
	})
}

// ApplyNodeSet applies edits in order to the children of parentID and
// returns the new, sorted children. The result is validated against
// parentID, so an edit script can never produce a duplicate or misplaced id.
func ApplyNodeSet(parentID string, nodes []model.SourceEntity, edits []NodeSetEdit) ([]model.SourceEntity, error) {
	out := slices.Clone(nodes)
	for _, e := range edits {
		kind, id := e.Key()
		i := indexOf(out, kind, id)
		switch e := e.(type) {
		case NodeAdd:
			if i >= 0 {
				return nil, conflictf("%s '%s' already exists", kind, id)
			}
			out = append(out, e.Node)
		case NodeRemove:
			if i < 0 {
				return nil, notFoundf("%s '%s' doesn't exist", kind, id)
			}
			out = slices.Delete(out, i, i+1)
		case NodeChange:
			if i < 0 {
				return nil, notFoundf("%s '%s' doesn't exist", kind, id)
			}
			changed, err := ApplyTransaction(out[i], e.Transaction)
			if err != nil {
				return nil, fmt.Errorf("%s '%s': %w", kind, id, err)
			}
			out[i] = changed
		default:
			panic(fmt.Sprintf("edit: unknown node set edit %T", e))
		}
	}
	if err := model.Validate(parentID, out); err != nil {
		return nil, err
	}
	return model.SortEntities(out), nil
}

// DiffNodeSet returns the edits turning before into after. Entities are
// matched by (kind, id). The script lists additions, then removals, then
// changes, each in (kind, id) order. Entities whose content is equal yield
// no edit.
func DiffNodeSet(before, after []model.SourceEntity) []NodeSetEdit {
	before, after = model.SortEntities(before), model.SortEntities(after)

	var adds, removes, changes []NodeSetEdit
	for _, n := range after {
		if indexOf(before, n.Kind(), n.ID()) < 0 {
			adds = append(adds, NodeAdd{Node: n})
		}
	}
	for _, n := range before {
		j := indexOf(after, n.Kind(), n.ID())
		if j < 0 {
			removes = append(removes, NodeRemove{Kind: n.Kind(), ID: n.ID()})
			continue
		}
		if tx := DiffEntity(n, after[j]); !tx.IsEmpty() {
			changes = append(changes, NodeChange{Kind: n.Kind(), ID: n.ID(), Transaction: tx})
		}
	}
	edits := append(adds, removes...)
	return append(edits, changes...)
}
