package scripting

import "sync"

// ActorBoard holds the ActorInfo scripts read through engine.actor.get. It is
// refreshed between ticks so hooks never reach into live actor state while a
// resolution holds its locks.
type ActorBoard struct {
	mu     sync.RWMutex
	actors map[string]ActorInfo
}

// NewActorBoard returns an empty board.
func NewActorBoard() *ActorBoard {
	return &ActorBoard{actors: make(map[string]ActorInfo)}
}

// Replace swaps the whole board for infos.
func (b *ActorBoard) Replace(infos []ActorInfo) {
	next := make(map[string]ActorInfo, len(infos))
	for _, info := range infos {
		info.Incapacitated = append([]string(nil), info.Incapacitated...)
		next[info.ID] = info
	}
	b.mu.Lock()
	b.actors = next
	b.mu.Unlock()
}

// Get returns a copy of id's info, or nil. Its signature matches
// Manager.GetActor.
func (b *ActorBoard) Get(id string) *ActorInfo {
	b.mu.RLock()
	info, ok := b.actors[id]
	b.mu.RUnlock()
	if !ok {
		return nil
	}
	info.Incapacitated = append([]string(nil), info.Incapacitated...)
	return &info
}

// Len returns the number of actors on the board.
func (b *ActorBoard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.actors)
}
