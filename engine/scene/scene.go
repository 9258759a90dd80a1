package scene

import (
	"sort"
	"sync"
	"time"

	"github.com/metaverse/metaverse-server/engine/common"
	"github.com/metaverse/metaverse-server/engine/config"
	"github.com/metaverse/metaverse-server/engine/obj"
	"github.com/metaverse/metaverse-server/engine/proto"
)

type state int

const (
	stateClean state = iota
	stateDirty
	stateComputing
)

type entry struct {
	rev  uint64
	info proto.ObjectInfo
}

// Scene is one client's computed view of its world: the set of visible
// objects within range, with dirty tracking and incremental diffs.
//
// At most one recomputation runs per scene; mutations arriving while a
// computation is in flight re-mark the scene dirty instead of blocking,
// so the next cycle picks them up. A clear bumps the generation counter,
// which makes any in-flight computation discard its result — clearing
// and recomputing are never interleaved.
type Scene struct {
	client *obj.Client
	world  *obj.World
	props  config.SceneConfig

	mu         sync.Mutex
	st         state
	redirty    bool // mutation arrived while computing
	gen        uint64
	visible    map[common.ObjectID]entry
	lastUpdate time.Time
}

// New creates a clean scene for a client that just entered a world
func New(client *obj.Client, world *obj.World, props config.SceneConfig) *Scene {
	return &Scene{
		client:     client,
		world:      world,
		props:      props,
		st:         stateDirty, // first update computes the initial set
		visible:    map[common.ObjectID]entry{},
		lastUpdate: time.Now(),
	}
}

// Client returns the owning client
func (s *Scene) Client() *obj.Client {
	return s.client
}

// World returns the world this scene views
func (s *Scene) World() *obj.World {
	return s.world
}

// Dirty marks that the visible set may no longer reflect world state
func (s *Scene) Dirty() {
	s.mu.Lock()
	if s.st == stateComputing {
		s.redirty = true
	} else {
		s.st = stateDirty
	}
	s.mu.Unlock()
}

// RemoveAll unconditionally resets the scene: the tracked set is
// discarded and the next update recomputes from empty, emitting every
// visible object as appeared. This is a full resync, not an
// optimization.
func (s *Scene) RemoveAll() {
	s.mu.Lock()
	s.visible = map[common.ObjectID]entry{}
	s.gen++
	if s.st == stateComputing {
		s.redirty = true
	} else {
		s.st = stateDirty
	}
	s.mu.Unlock()
}

// IsDirty reports whether a recomputation is pending
func (s *Scene) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st == stateDirty || s.redirty
}

// VisibleCount returns the size of the current visible set
func (s *Scene) VisibleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visible)
}

// Sees reports whether the object is in the current visible set
func (s *Scene) Sees(id common.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.visible[id]
	return ok
}

func (s *Scene) stale(now time.Time) bool {
	return s.props.Timeout > 0 && now.Sub(s.lastUpdate) >= s.props.Timeout
}

// Update recomputes the visible set when the scene is dirty or stale and
// returns the delta against the previous set, nil when there is nothing
// to push. Only one Update runs per scene at a time.
func (s *Scene) Update() *proto.SceneUpdate {
	now := time.Now()

	s.mu.Lock()
	if s.st == stateComputing {
		// someone else is computing, they will see redirty
		s.mu.Unlock()
		return nil
	}
	if s.st != stateDirty && !s.stale(now) {
		s.mu.Unlock()
		return nil
	}
	s.st = stateComputing
	s.redirty = false
	gen := s.gen
	prev := s.visible
	s.mu.Unlock()

	center := s.world.PositionOf(&s.client.VRObject)
	filter := obj.And(
		obj.IsActiveOrOwned(s.client),
		obj.RemoveOfflineClients(),
	)
	candidates := s.world.QueryRange(center, s.props.Range, filter)

	// nearest first; entries beyond the size cap are dropped
	sort.Slice(candidates, func(i, j int) bool {
		return center.DistanceTo(candidates[i].Position) < center.DistanceTo(candidates[j].Position)
	})

	next := make(map[common.ObjectID]entry, len(candidates))
	update := &proto.SceneUpdate{}
	for _, snap := range candidates {
		if snap.ID == s.client.ID {
			continue // the owner is not part of its own scene
		}
		if s.props.Size > 0 && len(next) >= s.props.Size {
			break
		}
		info := proto.FromSnapshot(snap)
		next[snap.ID] = entry{rev: snap.Rev, info: info}

		old, seen := prev[snap.ID]
		if !seen {
			update.Appeared = append(update.Appeared, info)
		} else if old.rev != snap.Rev {
			update.Updated = append(update.Updated, info)
		}
	}
	for id := range prev {
		if _, still := next[id]; !still {
			update.Disappeared = append(update.Disappeared, string(id))
		}
	}

	s.mu.Lock()
	if s.gen != gen {
		// scene was cleared while computing; drop this result and let
		// the next cycle recompute from empty
		s.st = stateDirty
		s.mu.Unlock()
		return nil
	}
	s.visible = next
	s.lastUpdate = now
	if s.redirty {
		s.st = stateDirty
		s.redirty = false
	} else {
		s.st = stateClean
	}
	s.mu.Unlock()

	if update.IsEmpty() {
		return nil
	}
	return update
}
