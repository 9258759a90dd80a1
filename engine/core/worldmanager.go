package core

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/metaverse/metaverse-server/engine/common"
	"github.com/metaverse/metaverse-server/engine/config"
	"github.com/metaverse/metaverse-server/engine/db"
	"github.com/metaverse/metaverse-server/engine/mvlog"
	"github.com/metaverse/metaverse-server/engine/obj"
	"github.com/metaverse/metaverse-server/engine/proto"
	"github.com/metaverse/metaverse-server/engine/scene"
)

// WorldManager is the orchestration hub: it owns the live worlds, the
// per-client scenes, session admission and the persistence collaborator.
//
// Commands touching the same world are serialized on a per-world mutex;
// commands in different worlds run concurrently. Scene recomputation
// reads world state under the world's internal read lock only, so
// pushes to many clients never wait on each other.
type WorldManager struct {
	db db.MetaverseDB

	mu         sync.RWMutex
	worlds     map[string]*obj.World
	worldLocks map[string]*sync.Mutex
	scenes     map[common.ObjectID]*scene.Scene

	sessionSlots chan struct{} // nil when max_sessions is unlimited
	slotHolders  map[common.ObjectID]struct{}
}

// NewWorldManager creates the manager over an opened storage backend
func NewWorldManager(database db.MetaverseDB) *WorldManager {
	wm := &WorldManager{
		db:          database,
		worlds:      map[string]*obj.World{},
		worldLocks:  map[string]*sync.Mutex{},
		scenes:      map[common.ObjectID]*scene.Scene{},
		slotHolders: map[common.ObjectID]struct{}{},
	}
	if max := config.GetServer().MaxSessions; max > 0 {
		wm.sessionSlots = make(chan struct{}, max)
	}
	return wm
}

// DB returns the persistence collaborator
func (wm *WorldManager) DB() db.MetaverseDB {
	return wm.db
}

func (wm *WorldManager) sceneProps(c *obj.Client) config.SceneConfig {
	if props := c.SceneProperties(); props != nil {
		return *props
	}
	return *config.GetScene()
}

// StartSession activates the client's session, acquiring a session slot
// when [server] max_sessions limits concurrency. With a zero
// session_start_timeout a full server fails the start immediately;
// otherwise the start waits for a slot up to the timeout or until
// cancel fires.
func (wm *WorldManager) StartSession(c *obj.Client, cancel <-chan struct{}) error {
	if c.SessionStatus() == obj.SessionActive {
		return NewSessionError("session already started")
	}

	if wm.sessionSlots != nil {
		if err := wm.acquireSlot(c, cancel); err != nil {
			return err
		}
	}

	c.SetSessionStatus(obj.SessionActive)
	mvlog.Infof("%s session started", c)
	if w := c.World(); w != nil {
		wm.DirtyWorld(w)
	}
	return nil
}

func (wm *WorldManager) acquireSlot(c *obj.Client, cancel <-chan struct{}) error {
	timeout := config.GetServer().SessionStartTimeout
	if timeout <= 0 {
		select {
		case wm.sessionSlots <- struct{}{}:
		default:
			return NewSessionError("session limit reached")
		}
	} else {
		deadline := time.NewTimer(timeout)
		defer deadline.Stop()
		select {
		case wm.sessionSlots <- struct{}{}:
		case <-deadline.C:
			c.SetSessionStatus(obj.SessionTimedOut)
			return NewSessionError("session start timed out after %s", timeout)
		case <-cancel:
			return NewSessionError("session start canceled")
		}
	}

	wm.mu.Lock()
	wm.slotHolders[c.ID] = struct{}{}
	wm.mu.Unlock()
	return nil
}

// EndSession deactivates the client's session and releases its slot.
// Safe to call on sessions that never started.
func (wm *WorldManager) EndSession(c *obj.Client) {
	c.SetSessionStatus(obj.SessionDisconnected)

	wm.mu.Lock()
	_, held := wm.slotHolders[c.ID]
	delete(wm.slotHolders, c.ID)
	wm.mu.Unlock()
	if held {
		<-wm.sessionSlots
	}

	mvlog.Infof("%s session ended", c)
	if w := c.World(); w != nil {
		wm.DirtyWorld(w)
		wm.UpdateScenes(w)
	}
}

// Enter attaches the client to the named world and returns the Welcome
// payload. An unknown world is created when [server] create_worlds is
// set, loaded from storage when it was seen before, and rejected
// otherwise. A client is in at most one world.
func (wm *WorldManager) Enter(c *obj.Client, worldName string) (*proto.Welcome, error) {
	if worldName == "" {
		worldName = "default"
	}
	if w := c.World(); w != nil {
		return nil, &AlreadyEnteredError{WorldName: w.Name}
	}

	w, err := wm.getOrCreateWorld(worldName)
	if err != nil {
		return nil, err
	}

	// the entering client holds no exec lock yet; attach under the
	// target world's lock so concurrent commands there stay serialized
	lock := wm.lockOf(w)
	lock.Lock()
	defer lock.Unlock()

	w.Add(&c.VRObject)
	wm.restoreOwnership(c, w)
	props := wm.sceneProps(c)
	sc := scene.New(c, w, props)

	wm.mu.Lock()
	wm.scenes[c.ID] = sc
	wm.mu.Unlock()

	wm.DirtyWorld(w)
	if !c.Temporary {
		wm.persist(clientRecord(c))
	}

	welcome := &proto.Welcome{
		World: w.Name,
	}
	pos := w.PositionOf(&c.VRObject)
	welcome.Client = proto.ObjectInfo{
		ID:       string(c.ID),
		Name:     c.Name,
		Position: pos,
		Active:   c.IsActive(),
		Client:   true,
	}
	for _, snap := range w.Permanents() {
		welcome.Permanents = append(welcome.Permanents, proto.FromSnapshot(snap))
	}

	mvlog.Infof("%s entered %s", c, w)
	return welcome, nil
}

func (wm *WorldManager) getOrCreateWorld(name string) (*obj.World, error) {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if w, ok := wm.worlds[name]; ok {
		return w, nil
	}

	cellSize := config.GetScene().Resolution
	rec, err := wm.findWorldRecord(name)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		if !config.GetServer().CreateWorlds {
			return nil, &WorldNotFoundError{WorldName: name}
		}
		w := obj.NewWorld(name, cellSize)
		wm.worlds[name] = w
		wm.worldLocks[name] = &sync.Mutex{}
		wm.persist(worldRecord(w))
		mvlog.Infof("%s created", w)
		return w, nil
	}

	w := obj.NewWorld(rec.Name, cellSize)
	w.ID = rec.ID
	wm.worlds[name] = w
	wm.worldLocks[name] = &sync.Mutex{}
	if err := wm.restoreObjects(w); err != nil {
		return nil, err
	}
	mvlog.Infof("%s loaded from storage", w)
	return w, nil
}

func (wm *WorldManager) findWorldRecord(name string) (*db.Record, error) {
	worlds, err := wm.db.ListWorlds()
	if err != nil {
		return nil, errors.Wrap(err, "world lookup failed")
	}
	for _, rec := range worlds {
		if rec.Name == name {
			return rec, nil
		}
	}
	return nil, nil
}

// restoreObjects reattaches persisted objects of a world that was just
// loaded from storage
func (wm *WorldManager) restoreObjects(w *obj.World) error {
	recs, err := wm.db.ListObjects(w.Name)
	if err != nil {
		return errors.Wrap(err, "object restore failed")
	}
	for _, rec := range recs {
		o := obj.NewVRObject(rec.Name)
		o.ID = rec.ID
		o.Permanent = rec.Permanent
		o.SetPosition(obj.Point{X: rec.X, Y: rec.Y, Z: rec.Z})
		w.Add(o)
		w.SetActive(o, rec.Active)
	}
	if len(recs) > 0 {
		mvlog.Debugf("%s restored %d objects", w, len(recs))
	}
	return nil
}

// restoreOwnership re-links the client to its persisted objects already
// living in the world
func (wm *WorldManager) restoreOwnership(c *obj.Client, w *obj.World) {
	recs, err := wm.db.ListObjects(w.Name)
	if err != nil {
		mvlog.Errorf("ownership restore for %s failed: %v", c, err)
		return
	}
	for _, rec := range recs {
		if rec.OwnerID != c.ID {
			continue
		}
		if o := w.Get(rec.ID); o != nil {
			c.AddOwned(o)
		}
	}
}

// Leave detaches the client from its world: temporary owned objects are
// discarded, persistent ones written back, and the world's scenes are
// notified
func (wm *WorldManager) Leave(c *obj.Client) {
	w := c.World()
	if w == nil {
		return
	}

	for _, id := range c.OwnedIDs() {
		o := w.Get(id)
		if o == nil {
			continue
		}
		if o.Temporary {
			w.Remove(o)
			c.RemoveOwned(o)
		} else {
			wm.persist(objectRecord(o, c))
		}
	}

	w.Remove(&c.VRObject)

	wm.mu.Lock()
	sc := wm.scenes[c.ID]
	delete(wm.scenes, c.ID)
	wm.mu.Unlock()
	if sc != nil {
		sc.RemoveAll()
	}

	if !c.Temporary {
		wm.persist(clientRecord(c))
	}

	wm.DirtyWorld(w)
	wm.UpdateScenes(w)
	mvlog.Infof("%s left %s", c, w)
}

// Logout tears the client fully down: leave the world, end the session
func (wm *WorldManager) Logout(c *obj.Client) {
	wm.Leave(c)
	wm.EndSession(c)
	c.BindSender(nil)
}

func (wm *WorldManager) lockOf(w *obj.World) *sync.Mutex {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.worldLocks[w.Name]
}

// Execute runs one decoded command for the client. Commands of the same
// world run one at a time; a client outside any world runs unlocked, so
// a blocking command (a session-slot wait) never stalls other sessions.
// Enter serializes on the target world itself once it is resolved.
// After the command the world's scenes are recomputed and deltas
// pushed, whether the command succeeded or not.
func (wm *WorldManager) Execute(c *obj.Client, cmd Command) (*proto.ClientResponse, error) {
	var lock *sync.Mutex
	if w := c.World(); w != nil {
		lock = wm.lockOf(w)
		lock.Lock()
	}
	resp, err := cmd.Execute(wm, c)
	if lock != nil {
		lock.Unlock()
	}

	if w := c.World(); w != nil {
		wm.UpdateScenes(w)
	}
	return resp, err
}

// AddObject attaches a new object owned by the client to its world
func (wm *WorldManager) AddObject(c *obj.Client, o *obj.VRObject) error {
	w := c.World()
	if w == nil {
		return NewSessionError("not in a world")
	}
	w.Add(o)
	w.SetActive(o, true)
	c.AddOwned(o)
	if !o.Temporary {
		wm.persist(objectRecord(o, c))
	}
	wm.DirtyWorld(w)
	return nil
}

// RemoveObject detaches an object owned by the client from its world
func (wm *WorldManager) RemoveObject(c *obj.Client, id common.ObjectID) error {
	w := c.World()
	if w == nil {
		return NewSessionError("not in a world")
	}
	o := w.Get(id)
	if o == nil {
		return errors.WithStack(db.ErrNotFound)
	}
	if !c.IsOwner(o) {
		return NewSessionError("%s does not own %s", c, o)
	}
	w.Remove(o)
	c.RemoveOwned(o)
	if !o.Temporary {
		if err := wm.db.DeleteByID(id); err != nil && !db.IsNotFound(err) {
			mvlog.Errorf("delete of %s failed: %v", id, err)
		}
	}
	wm.DirtyWorld(w)
	return nil
}

// MoveObject repositions the client itself (its own id) or one of its
// owned objects
func (wm *WorldManager) MoveObject(c *obj.Client, id common.ObjectID, pos obj.Point) error {
	w := c.World()
	if w == nil {
		return NewSessionError("not in a world")
	}
	o := w.Get(id)
	if o == nil {
		return errors.WithStack(db.ErrNotFound)
	}
	if o != &c.VRObject && !c.IsOwner(o) {
		return NewSessionError("%s does not own %s", c, o)
	}
	w.Move(o, pos)
	if !o.Temporary {
		if o == &c.VRObject {
			wm.persist(clientRecord(c))
		} else {
			wm.persist(objectRecord(o, c))
		}
	}
	wm.DirtyWorld(w)
	return nil
}

func (wm *WorldManager) persist(rec *db.Record) {
	if err := wm.db.Put(rec); err != nil {
		mvlog.Errorf("persist of %s %s failed: %v", rec.Kind, rec.ID, err)
	}
}

// SceneOf returns the client's scene, nil when not in a world
func (wm *WorldManager) SceneOf(c *obj.Client) *scene.Scene {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.scenes[c.ID]
}

// GetWorld returns a live world by name, nil when not instantiated
func (wm *WorldManager) GetWorld(name string) *obj.World {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.worlds[name]
}

// DirtyWorld marks every scene viewing the world for recomputation
func (wm *WorldManager) DirtyWorld(w *obj.World) {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	for _, sc := range wm.scenes {
		if sc.World() == w {
			sc.Dirty()
		}
	}
}

// UpdateScenes recomputes every dirty scene of the world and pushes the
// deltas to their clients
func (wm *WorldManager) UpdateScenes(w *obj.World) {
	wm.mu.RLock()
	scenes := make([]*scene.Scene, 0, len(wm.scenes))
	for _, sc := range wm.scenes {
		if sc.World() == w {
			scenes = append(scenes, sc)
		}
	}
	wm.mu.RUnlock()

	for _, sc := range scenes {
		upd := sc.Update()
		if upd == nil {
			continue
		}
		if err := sc.Client().SendMessage(&proto.Message{Type: proto.MT_SCENE, Data: upd}); err != nil {
			mvlog.Debugf("scene push to %s failed: %v", sc.Client(), err)
		}
	}
}

// SweepStaleScenes recomputes scenes whose timeout elapsed without any
// world change, run periodically from the main loop
func (wm *WorldManager) SweepStaleScenes() {
	wm.mu.RLock()
	scenes := make([]*scene.Scene, 0, len(wm.scenes))
	for _, sc := range wm.scenes {
		scenes = append(scenes, sc)
	}
	wm.mu.RUnlock()

	for _, sc := range scenes {
		upd := sc.Update()
		if upd == nil {
			continue
		}
		if err := sc.Client().SendMessage(&proto.Message{Type: proto.MT_SCENE, Data: upd}); err != nil {
			mvlog.Debugf("scene push to %s failed: %v", sc.Client(), err)
		}
	}
}

// WorldStatuses returns per-world user counts over all live worlds
func (wm *WorldManager) WorldStatuses() []proto.WorldStatus {
	wm.mu.RLock()
	worlds := make([]*obj.World, 0, len(wm.worlds))
	for _, w := range wm.worlds {
		worlds = append(worlds, w)
	}
	wm.mu.RUnlock()

	statuses := make([]proto.WorldStatus, 0, len(worlds))
	for _, w := range worlds {
		active, total := w.CountUsers()
		statuses = append(statuses, proto.WorldStatus{
			WorldName:   w.Name,
			ActiveUsers: active,
			TotalUsers:  total,
		})
	}
	return statuses
}
