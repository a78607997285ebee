package repository

import "testing"

func TestProgressGuard_Violations(t *testing.T) {
	tests := []struct {
		name  string
		calls func(g *progressGuard)
	}{
		{"snapshot end before start", func(g *progressGuard) {
			g.OnSnapshotEnd()
		}},
		{"history before snapshot", func(g *progressGuard) {
			g.OnHistoryStart(1)
		}},
		{"too many sources", func(g *progressGuard) {
			g.OnSnapshotStart("r1", 1)
			g.OnSourcePersisted("a.mock")
			g.OnSourcePersisted("b.mock")
		}},
		{"missing sources", func(g *progressGuard) {
			g.OnSnapshotStart("r1", 2)
			g.OnSourcePersisted("a.mock")
			g.OnSnapshotEnd()
		}},
		{"missing revisions", func(g *progressGuard) {
			g.OnSnapshotStart("r1", 0)
			g.OnSnapshotEnd()
			g.OnHistoryStart(1)
			g.OnHistoryEnd()
		}},
		{"restart", func(g *progressGuard) {
			g.OnSnapshotStart("r1", 0)
			g.OnSnapshotEnd()
			g.OnHistoryStart(0)
			g.OnHistoryEnd()
			g.OnSnapshotStart("r1", 0)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected a panic")
				}
			}()
			tt.calls(newProgressGuard(nil))
		})
	}
}

func TestProgressGuard_Protocol(t *testing.T) {
	rec := &recorder{}
	g := newProgressGuard(rec)

	g.OnSnapshotStart("r2", 1)
	g.OnSourcePersisted("a.mock")
	g.OnSnapshotEnd()
	g.OnHistoryStart(2)
	g.OnTransactionPersisted("r1")
	g.OnTransactionPersisted("r2")
	g.OnHistoryEnd()

	if g.state != stateDone {
		t.Errorf("state = %s, want DONE", g.state)
	}
	if len(rec.calls) != 7 {
		t.Errorf("forwarded %d calls, want 7", len(rec.calls))
	}
}
