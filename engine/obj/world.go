package obj

import (
	"fmt"
	"math"
	"sync"

	"github.com/metaverse/metaverse-server/engine/common"
	"github.com/metaverse/metaverse-server/engine/mvlog"
)

type cell struct {
	cx, cz int
}

type objectSet map[*VRObject]struct{}

// World is a named container of entities forming one connected space.
//
// The world keeps a coarse grid index over object positions so that scene
// recomputation selects candidates by cell lookup instead of a full scan.
// All structural mutation goes through the WorldManager; the internal
// RWMutex only guards the maps against concurrent scene reads.
type World struct {
	Entity

	mu       sync.RWMutex
	objects  map[common.ObjectID]*VRObject
	grid     map[cell]objectSet
	cellSize float64
}

// NewWorld creates an empty world; cellSize is the grid bucketing
// granularity (the configured scene resolution)
func NewWorld(name string, cellSize float64) *World {
	if cellSize < 1 {
		cellSize = 1
	}
	w := &World{
		Entity: Entity{
			ID:   common.GenObjectID(),
			Name: name,
		},
		objects:  map[common.ObjectID]*VRObject{},
		grid:     map[cell]objectSet{},
		cellSize: cellSize,
	}
	return w
}

func (w *World) String() string {
	return fmt.Sprintf("World<%s|%s>", w.Name, w.ID)
}

func (w *World) cellOf(p Point) cell {
	return cell{
		cx: int(math.Floor(p.X / w.cellSize)),
		cz: int(math.Floor(p.Z / w.cellSize)),
	}
}

func (w *World) gridAdd(o *VRObject) {
	c := w.cellOf(o.position)
	set := w.grid[c]
	if set == nil {
		set = objectSet{}
		w.grid[c] = set
	}
	set[o] = struct{}{}
}

func (w *World) gridDel(o *VRObject) {
	c := w.cellOf(o.position)
	if set := w.grid[c]; set != nil {
		delete(set, o)
		if len(set) == 0 {
			delete(w.grid, c)
		}
	}
}

// Add attaches an object to the world at its current position
func (w *World) Add(o *VRObject) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if o.world != nil {
		mvlog.Panicf("%s.Add(%s): already attached to %s", w, o, o.world)
	}
	o.world = w
	o.touch()
	w.objects[o.ID] = o
	w.gridAdd(o)
}

// Remove detaches an object from the world
func (w *World) Remove(o *VRObject) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if o.world != w {
		mvlog.Panicf("%s.Remove(%s): not attached to this world", w, o)
	}
	w.gridDel(o)
	delete(w.objects, o.ID)
	o.world = nil
	o.touch()
}

// Get returns the object of specified ID, nil when unknown
func (w *World) Get(id common.ObjectID) *VRObject {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.objects[id]
}

// Move repositions an object, updating the grid index
func (w *World) Move(o *VRObject, pos Point) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gridDel(o)
	o.position = pos
	o.touch()
	w.gridAdd(o)
}

// SetActive flips the active flag of an object
func (w *World) SetActive(o *VRObject, active bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	o.active = active
	o.touch()
}

func (w *World) setSessionStatus(c *Client, s SessionStatus, active bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c.sessionStatus = s
	c.active = active
	c.touch()
}

// SetPosition places a detached object; attached objects move via Move
func (o *VRObject) SetPosition(pos Point) {
	if o.world != nil {
		o.world.Move(o, pos)
		return
	}
	o.position = pos
}

// PositionOf reads an object's position under the world lock
func (w *World) PositionOf(o *VRObject) Point {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return o.position
}

// ObjectCount returns the number of objects in the world
func (w *World) ObjectCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.objects)
}

// CountUsers returns active and total client counts
func (w *World) CountUsers() (active int, total int) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, o := range w.objects {
		if o.client != nil {
			total++
			if o.active {
				active++
			}
		}
	}
	return
}

// ForEachClient visits every client in the world
func (w *World) ForEachClient(f func(c *Client)) {
	w.mu.RLock()
	clients := make([]*Client, 0)
	for _, o := range w.objects {
		if o.client != nil {
			clients = append(clients, o.client)
		}
	}
	w.mu.RUnlock()

	for _, c := range clients {
		f(c)
	}
}

// ObjectSnapshot is a race-free copy of one object's visible state,
// taken under the world read lock
type ObjectSnapshot struct {
	Object    *VRObject
	ID        common.ObjectID
	Name      string
	Position  Point
	Active    bool
	Rev       uint64
	Permanent bool
	IsClient  bool
}

func snapshotOf(o *VRObject) ObjectSnapshot {
	return ObjectSnapshot{
		Object:    o,
		ID:        o.ID,
		Name:      o.Name,
		Position:  o.position,
		Active:    o.active,
		Rev:       o.rev,
		Permanent: o.Permanent,
		IsClient:  o.client != nil,
	}
}

// QueryRange selects all objects within radius of center that pass the
// filter, by looking up the grid cells overlapping the query circle
func (w *World) QueryRange(center Point, radius float64, filter Filter) []ObjectSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	minC := w.cellOf(Point{X: center.X - radius, Z: center.Z - radius})
	maxC := w.cellOf(Point{X: center.X + radius, Z: center.Z + radius})

	var result []ObjectSnapshot
	for cx := minC.cx; cx <= maxC.cx; cx++ {
		for cz := minC.cz; cz <= maxC.cz; cz++ {
			for o := range w.grid[cell{cx, cz}] {
				if center.DistanceTo(o.position) > radius {
					continue
				}
				if filter != nil && !filter(o) {
					continue
				}
				result = append(result, snapshotOf(o))
			}
		}
	}
	return result
}

// Permanents returns snapshots of all permanent objects, for Welcome
// payloads
func (w *World) Permanents() []ObjectSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var result []ObjectSnapshot
	for _, o := range w.objects {
		if o.Permanent {
			result = append(result, snapshotOf(o))
		}
	}
	return result
}
