package core

import (
	"testing"
	"time"

	"github.com/bmizerany/assert"

	"github.com/metaverse/metaverse-server/engine/common"
	"github.com/metaverse/metaverse-server/engine/config"
	"github.com/metaverse/metaverse-server/engine/db"
	"github.com/metaverse/metaverse-server/engine/obj"
	"github.com/metaverse/metaverse-server/engine/proto"
)

func init() {
	config.SetConfigFile("../../metaverse.ini.sample")
}

// recorder captures messages pushed to a client connection
type recorder struct {
	msgs []interface{}
}

func (r *recorder) SendMessage(msg interface{}) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) sceneUpdates() []*proto.SceneUpdate {
	var updates []*proto.SceneUpdate
	for _, m := range r.msgs {
		if msg, ok := m.(*proto.Message); ok && msg.Type == proto.MT_SCENE {
			updates = append(updates, msg.Data.(*proto.SceneUpdate))
		}
	}
	return updates
}

func newTestManager() *WorldManager {
	return NewWorldManager(db.OpenMemoryDB())
}

func activeClient(name string) (*obj.Client, *recorder) {
	c := obj.NewClient(name)
	rec := &recorder{}
	c.BindSender(rec)
	c.SetSessionStatus(obj.SessionActive)
	return c, rec
}

func TestEnterCreatesWorld(t *testing.T) {
	wm := newTestManager()
	c, _ := activeClient("alice")

	welcome, err := wm.Enter(c, "W1")
	assert.Equal(t, nil, err)
	assert.Equal(t, "W1", welcome.World)
	assert.Equal(t, string(c.ID), welcome.Client.ID)
	assert.T(t, c.World() != nil, "client should be attached")

	// the world is persisted and listable
	worlds, err := wm.DB().ListWorlds()
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(worlds))
	assert.Equal(t, "W1", worlds[0].Name)
}

func TestEnterTwiceFails(t *testing.T) {
	wm := newTestManager()
	c, _ := activeClient("alice")

	_, err := wm.Enter(c, "W1")
	assert.Equal(t, nil, err)
	_, err = wm.Enter(c, "W2")
	if _, ok := err.(*AlreadyEnteredError); !ok {
		t.Fatalf("expected AlreadyEnteredError, got %v", err)
	}
}

func TestEnterCreateWorldsDisabled(t *testing.T) {
	cfg := config.GetServer()
	cfg.CreateWorlds = false
	defer func() { cfg.CreateWorlds = true }()

	wm := newTestManager()
	c, _ := activeClient("alice")

	_, err := wm.Enter(c, "nope")
	if _, ok := err.(*WorldNotFoundError); !ok {
		t.Fatalf("expected WorldNotFoundError, got %v", err)
	}
	assert.T(t, c.World() == nil, "client should stay detached")

	worlds, _ := wm.DB().ListWorlds()
	assert.Equal(t, 0, len(worlds), "no world should be created")
}

func TestLeaveDetachesAndNotifies(t *testing.T) {
	wm := newTestManager()
	c1, _ := activeClient("alice")
	c2, rec2 := activeClient("bob")

	wm.Enter(c1, "W1")
	wm.Enter(c2, "W1")
	w := c1.World()
	wm.UpdateScenes(w)

	updates := rec2.sceneUpdates()
	if len(updates) == 0 || len(updates[0].Appeared) != 1 {
		t.Fatalf("bob should see alice appear, got %v", updates)
	}

	wm.Leave(c1)
	assert.T(t, c1.World() == nil, "alice should be detached")

	updates = rec2.sceneUpdates()
	last := updates[len(updates)-1]
	assert.Equal(t, 1, len(last.Disappeared))
	assert.Equal(t, string(c1.ID), last.Disappeared[0])
}

func TestSessionAdmission(t *testing.T) {
	cfg := config.GetServer()
	cfg.MaxSessions = 1
	cfg.SessionStartTimeout = 0
	defer func() { cfg.MaxSessions = 0 }()

	wm := newTestManager()
	c1 := obj.NewClient("alice")
	c2 := obj.NewClient("bob")

	assert.Equal(t, nil, wm.StartSession(c1, nil))
	err := wm.StartSession(c2, nil)
	if _, ok := err.(*SessionError); !ok {
		t.Fatalf("expected SessionError, got %v", err)
	}
	assert.T(t, c1.SessionStatus() == obj.SessionActive, "first session should stay active")

	wm.EndSession(c1)
	assert.Equal(t, nil, wm.StartSession(c2, nil))
}

// a session start blocked on the slot semaphore must not stall other
// clients' commands
func TestSlotWaitDoesNotStallOthers(t *testing.T) {
	cfg := config.GetServer()
	cfg.MaxSessions = 1
	cfg.SessionStartTimeout = 2 * time.Second
	defer func() {
		cfg.MaxSessions = 0
		cfg.SessionStartTimeout = 0
	}()

	wm := newTestManager()
	a := obj.NewClient("alice")
	assert.Equal(t, nil, wm.StartSession(a, nil)) // takes the only slot

	b := obj.NewClient("bob")
	waited := make(chan error, 1)
	go func() {
		waited <- wm.StartSession(b, nil)
	}()
	time.Sleep(20 * time.Millisecond) // let bob block on the slot

	c := obj.NewClient("carol")
	start := time.Now()
	_, err := wm.Execute(c, &fakeCommand{})
	assert.Equal(t, nil, err)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("command stalled %s behind bob's slot wait", elapsed)
	}

	wm.EndSession(a)
	assert.Equal(t, nil, <-waited)
	wm.EndSession(b)
}

func TestStartSessionTwiceFails(t *testing.T) {
	wm := newTestManager()
	c := obj.NewClient("alice")
	assert.Equal(t, nil, wm.StartSession(c, nil))
	err := wm.StartSession(c, nil)
	if _, ok := err.(*SessionError); !ok {
		t.Fatalf("expected SessionError, got %v", err)
	}
}

func TestMovePropagation(t *testing.T) {
	wm := newTestManager()
	c1, _ := activeClient("alice")
	c2, rec2 := activeClient("bob")
	wm.Enter(c1, "W1")
	wm.Enter(c2, "W1")
	w := c1.World()
	wm.UpdateScenes(w)

	before := len(rec2.sceneUpdates())
	assert.Equal(t, nil, wm.MoveObject(c1, c1.ID, obj.Point{X: 5, Z: 5}))
	wm.UpdateScenes(w)

	updates := rec2.sceneUpdates()
	if len(updates) <= before {
		t.Fatalf("bob should get an update after alice moves")
	}
	last := updates[len(updates)-1]
	assert.Equal(t, 1, len(last.Updated))
	assert.Equal(t, obj.Point{X: 5, Z: 5}, last.Updated[0].Position)
}

func TestAddRemoveObject(t *testing.T) {
	wm := newTestManager()
	c, _ := activeClient("alice")
	wm.Enter(c, "W1")

	o := obj.NewVRObject("chair")
	o.SetPosition(obj.Point{X: 1, Z: 1})
	assert.Equal(t, nil, wm.AddObject(c, o))
	assert.T(t, c.IsOwner(o), "creator should own the object")
	assert.T(t, o.IsActive(), "created object should be active")

	// persisted under the world
	objects, _ := wm.DB().ListObjects("W1")
	assert.Equal(t, 1, len(objects))
	assert.Equal(t, c.ID, objects[0].OwnerID)

	assert.Equal(t, nil, wm.RemoveObject(c, o.ID))
	objects, _ = wm.DB().ListObjects("W1")
	assert.Equal(t, 0, len(objects))
}

func TestRemoveForeignObjectFails(t *testing.T) {
	wm := newTestManager()
	c1, _ := activeClient("alice")
	c2, _ := activeClient("bob")
	wm.Enter(c1, "W1")
	wm.Enter(c2, "W1")

	o := obj.NewVRObject("chair")
	wm.AddObject(c1, o)

	err := wm.RemoveObject(c2, o.ID)
	if _, ok := err.(*SessionError); !ok {
		t.Fatalf("expected ownership failure, got %v", err)
	}
}

func TestWorldReloadRestoresObjects(t *testing.T) {
	database := db.OpenMemoryDB()
	ownerID := common.GenObjectID()
	database.Put(&db.Record{ID: common.GenObjectID(), Kind: db.KindWorld, Name: "W1"})
	database.Put(&db.Record{
		ID: common.GenObjectID(), Kind: db.KindObject, Name: "statue",
		WorldName: "W1", OwnerID: ownerID, Active: true, Permanent: true, X: 3,
	})

	wm := NewWorldManager(database)
	c, _ := activeClient("alice")
	welcome, err := wm.Enter(c, "W1")
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(welcome.Permanents))
	assert.Equal(t, "statue", welcome.Permanents[0].Name)
}

func TestOwnershipRestoredOnEnter(t *testing.T) {
	wm := newTestManager()
	c1, _ := activeClient("alice")
	wm.Enter(c1, "W1")
	o := obj.NewVRObject("chair")
	wm.AddObject(c1, o)
	wm.Leave(c1)

	// same identity reconnects
	c2 := obj.NewClient("alice")
	c2.ID = c1.ID
	c2.SetSessionStatus(obj.SessionActive)
	wm.Enter(c2, "W1")
	assert.T(t, c2.IsOwner(o), "ownership should survive reconnect")
}

func TestWorldStatuses(t *testing.T) {
	wm := newTestManager()
	c1, _ := activeClient("alice")
	c2 := obj.NewClient("bob") // never activates
	wm.Enter(c1, "W1")
	wm.Enter(c2, "W1")

	statuses := wm.WorldStatuses()
	assert.Equal(t, 1, len(statuses))
	assert.Equal(t, "W1", statuses[0].WorldName)
	assert.Equal(t, 1, statuses[0].ActiveUsers)
	assert.Equal(t, 2, statuses[0].TotalUsers)
}
