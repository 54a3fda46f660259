package neo4jstore

import (
	"sync"
)

// Loading a model takes two queries, one for the network's payload and one for
// its features, and Neo4j runs them at read-committed isolation. A save that
// commits between the two would hand the loader the payload of one model and
// the features of another.
//
// To prevent this, a Store guards its transactions with a graphWRMutex, an
// adaptation of sync.RWMutex in which multiple concurrent write transactions
// are permissible, but read transactions must be exclusive. Writes to the same
// network are still serialised by Neo4j itself, through the network's node key.
// The zero value for a graphWRMutex is an unlocked mutex.
//
// The guarantees provided by sync.RWMutex regarding the Go memory model,
// especially the "synchronises before" relationship, apply here as well. Thus,
// the n'th call to WUnlock precedes the m'th call to Lock. Likewise, for each
// call to Lock, there exists a call to WUnlock that precedes it.
//
// The mutex only orders the transactions of one process. Stores in separate
// processes sharing a database are not coordinated.
type graphWRMutex sync.RWMutex

// WLock locks wr for writing. It should not be used for recursive write locking;
// a blocked Lock call excludes new writers from acquiring the lock.
func (wr *graphWRMutex) WLock() {
	(*sync.RWMutex)(wr).RLock()
}

// WUnlock undoes a single WLock call; it does not affect other simultaneous
// writers. It is a run-time error if wr is not locked for writing on entry to
// WUnlock.
func (wr *graphWRMutex) WUnlock() {
	(*sync.RWMutex)(wr).RUnlock()
}

// Lock locks wr for reading. If the lock is already locked for writing or
// reading, Lock blocks until the lock is available.
func (wr *graphWRMutex) Lock() {
	(*sync.RWMutex)(wr).Lock()
}

// Unlock unlocks wr for reading. It is a run-time error if wr is not locked
// for reading on entry to Unlock.
func (wr *graphWRMutex) Unlock() {
	(*sync.RWMutex)(wr).Unlock()
}
