package repository

import (
	"fmt"
	"sync"
)

// ProgressListener is notified while a store is persisted. Calls arrive in
// the order
//
//	OnSnapshotStart OnSourcePersisted* OnSnapshotEnd
//	OnHistoryStart OnTransactionPersisted* OnHistoryEnd
//
// with one OnSourcePersisted per source and one OnTransactionPersisted per
// revision, oldest first. Calls are never concurrent. A run that fails stops
// notifying at the point of failure.
type ProgressListener interface {
	OnSnapshotStart(headID string, sourceCount int)
	OnSourcePersisted(path string)
	OnSnapshotEnd()
	OnHistoryStart(revisionCount int)
	OnTransactionPersisted(revisionID string)
	OnHistoryEnd()
}

// NopListener ignores all progress.
type NopListener struct{}

func (NopListener) OnSnapshotStart(string, int)   {}
func (NopListener) OnSourcePersisted(string)      {}
func (NopListener) OnSnapshotEnd()                {}
func (NopListener) OnHistoryStart(int)            {}
func (NopListener) OnTransactionPersisted(string) {}
func (NopListener) OnHistoryEnd()                 {}

type progressState int

const (
	stateIdle progressState = iota
	stateSnapshot
	stateTransient
	stateHistory
	stateDone
)

var stateNames = [...]string{"IDLE", "SNAPSHOT", "TRANSIENT", "HISTORY", "DONE"}

func (s progressState) String() string { return stateNames[s] }

// progressGuard forwards to a listener and panics when persist breaks the
// listener protocol. It serializes the calls made by parallel workers.
type progressGuard struct {
	mu        sync.Mutex
	listener  ProgressListener
	state     progressState
	remaining int
}

func newProgressGuard(listener ProgressListener) *progressGuard {
	if listener == nil {
		listener = NopListener{}
	}
	return &progressGuard{listener: listener}
}

func (g *progressGuard) expect(call string, state progressState) {
	if g.state != state {
		panic(fmt.Sprintf("repository: %s called in state %s, want %s", call, g.state, state))
	}
}

func (g *progressGuard) OnSnapshotStart(headID string, sourceCount int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expect("OnSnapshotStart", stateIdle)
	g.state, g.remaining = stateSnapshot, sourceCount
	g.listener.OnSnapshotStart(headID, sourceCount)
}

func (g *progressGuard) OnSourcePersisted(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expect("OnSourcePersisted", stateSnapshot)
	if g.remaining == 0 {
		panic("repository: more sources persisted than announced")
	}
	g.remaining--
	g.listener.OnSourcePersisted(path)
}

func (g *progressGuard) OnSnapshotEnd() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expect("OnSnapshotEnd", stateSnapshot)
	if g.remaining != 0 {
		panic(fmt.Sprintf("repository: snapshot ended with %d sources left", g.remaining))
	}
	g.state = stateTransient
	g.listener.OnSnapshotEnd()
}

func (g *progressGuard) OnHistoryStart(revisionCount int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expect("OnHistoryStart", stateTransient)
	g.state, g.remaining = stateHistory, revisionCount
	g.listener.OnHistoryStart(revisionCount)
}

func (g *progressGuard) OnTransactionPersisted(revisionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expect("OnTransactionPersisted", stateHistory)
	if g.remaining == 0 {
		panic("repository: more revisions persisted than announced")
	}
	g.remaining--
	g.listener.OnTransactionPersisted(revisionID)
}

func (g *progressGuard) OnHistoryEnd() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expect("OnHistoryEnd", stateHistory)
	if g.remaining != 0 {
		panic(fmt.Sprintf("repository: history ended with %d revisions left", g.remaining))
	}
	g.state = stateDone
	g.listener.OnHistoryEnd()
}
