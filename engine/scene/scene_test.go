package scene

import (
	"fmt"
	"testing"
	"time"

	"github.com/bmizerany/assert"

	"github.com/metaverse/metaverse-server/engine/config"
	"github.com/metaverse/metaverse-server/engine/obj"
)

func testProps() config.SceneConfig {
	return config.SceneConfig{
		Range:      2000,
		Resolution: 10,
		Size:       1000,
		Timeout:    0, // staleness disabled unless a test enables it
	}
}

func makeScene(props config.SceneConfig) (*Scene, *obj.Client, *obj.World) {
	w := obj.NewWorld("test", props.Resolution)
	c := obj.NewClient("viewer")
	c.SetSessionStatus(obj.SessionActive)
	w.Add(&c.VRObject)
	return New(c, w, props), c, w
}

func addActive(w *obj.World, name string, pos obj.Point) *obj.VRObject {
	o := obj.NewVRObject(name)
	o.SetPosition(pos)
	w.Add(o)
	w.SetActive(o, true)
	return o
}

func TestInitialUpdateComputesVisibleSet(t *testing.T) {
	sc, _, w := makeScene(testProps())
	addActive(w, "a", obj.Point{X: 1, Z: 1})
	addActive(w, "b", obj.Point{X: 2, Z: 2})

	assert.T(t, sc.IsDirty(), "fresh scene should be dirty")
	upd := sc.Update()
	if upd == nil {
		t.Fatalf("expected initial update")
	}
	assert.Equal(t, 2, len(upd.Appeared))
	assert.Equal(t, 0, len(upd.Updated))
	assert.Equal(t, 0, len(upd.Disappeared))
	assert.T(t, !sc.IsDirty(), "scene should be clean after update")
	assert.Equal(t, 2, sc.VisibleCount())
}

func TestCleanSceneYieldsNoUpdate(t *testing.T) {
	sc, _, w := makeScene(testProps())
	addActive(w, "a", obj.Point{X: 1, Z: 1})
	sc.Update()
	assert.T(t, sc.Update() == nil, "clean scene should not produce updates")
}

func TestOwnerNotInOwnScene(t *testing.T) {
	sc, c, _ := makeScene(testProps())
	upd := sc.Update()
	assert.T(t, upd == nil, "scene with only the owner should be empty")
	assert.T(t, !sc.Sees(c.ID), "owner should never see itself")
}

func TestDiffAppearUpdateDisappear(t *testing.T) {
	sc, _, w := makeScene(testProps())
	a := addActive(w, "a", obj.Point{X: 1, Z: 1})
	sc.Update()

	// mutation: move a
	w.Move(a, obj.Point{X: 5, Z: 5})
	sc.Dirty()
	upd := sc.Update()
	if upd == nil {
		t.Fatalf("expected update after move")
	}
	assert.Equal(t, 1, len(upd.Updated))
	assert.Equal(t, 0, len(upd.Appeared))

	// mutation: deactivate a, it disappears
	w.SetActive(a, false)
	sc.Dirty()
	upd = sc.Update()
	if upd == nil {
		t.Fatalf("expected update after deactivate")
	}
	assert.Equal(t, 1, len(upd.Disappeared))
	assert.Equal(t, string(a.ID), upd.Disappeared[0])
	assert.Equal(t, 0, sc.VisibleCount())
}

func TestRangeExcludesFarObjects(t *testing.T) {
	props := testProps()
	props.Range = 100
	sc, _, w := makeScene(props)
	addActive(w, "near", obj.Point{X: 10, Z: 10})
	far := addActive(w, "far", obj.Point{X: 5000, Z: 5000})

	upd := sc.Update()
	if upd == nil {
		t.Fatalf("expected update")
	}
	assert.Equal(t, 1, len(upd.Appeared))
	assert.T(t, !sc.Sees(far.ID), "far object should be out of range")
}

func TestSizeCapKeepsNearest(t *testing.T) {
	props := testProps()
	props.Size = 3
	sc, _, w := makeScene(props)
	for i := 1; i <= 10; i++ {
		addActive(w, fmt.Sprintf("o%d", i), obj.Point{X: float64(i * 10), Z: 0})
	}

	upd := sc.Update()
	if upd == nil {
		t.Fatalf("expected update")
	}
	assert.Equal(t, 3, len(upd.Appeared))
	assert.Equal(t, 3, sc.VisibleCount())
	// the nearest three survive the cap
	for _, info := range upd.Appeared {
		assert.T(t, info.Position.X <= 30, "size cap should keep nearest objects")
	}
}

func TestOwnedInactiveObjectVisible(t *testing.T) {
	sc, c, w := makeScene(testProps())
	mine := obj.NewVRObject("mine")
	mine.SetPosition(obj.Point{X: 1, Z: 1})
	w.Add(mine)
	c.AddOwned(mine)

	upd := sc.Update()
	if upd == nil {
		t.Fatalf("expected update")
	}
	assert.Equal(t, 1, len(upd.Appeared))
}

func TestOfflineClientsFiltered(t *testing.T) {
	sc, _, w := makeScene(testProps())
	other := obj.NewClient("other")
	w.Add(&other.VRObject)
	other.SetSessionStatus(obj.SessionActive)
	sc.Dirty()

	upd := sc.Update()
	if upd == nil {
		t.Fatalf("expected update")
	}
	assert.Equal(t, 1, len(upd.Appeared))

	other.SetSessionStatus(obj.SessionDisconnected)
	sc.Dirty()
	upd = sc.Update()
	if upd == nil {
		t.Fatalf("expected update")
	}
	assert.Equal(t, 1, len(upd.Disappeared))
}

func TestRemoveAllResyncsFromEmpty(t *testing.T) {
	sc, _, w := makeScene(testProps())
	addActive(w, "a", obj.Point{X: 1, Z: 1})
	addActive(w, "b", obj.Point{X: 2, Z: 2})
	sc.Update()
	assert.Equal(t, 2, sc.VisibleCount())

	sc.RemoveAll()
	assert.T(t, sc.IsDirty(), "clear should mark the scene dirty")
	upd := sc.Update()
	if upd == nil {
		t.Fatalf("expected full resync")
	}
	// everything reappears, nothing is diffed against the old set
	assert.Equal(t, 2, len(upd.Appeared))
	assert.Equal(t, 0, len(upd.Updated))
	assert.Equal(t, 0, len(upd.Disappeared))
}

func TestClearDuringMutationKeepsNoResiduals(t *testing.T) {
	sc, _, w := makeScene(testProps())
	for i := 0; i < 50; i++ {
		addActive(w, fmt.Sprintf("o%d", i), obj.Point{X: float64(i), Z: 0})
	}
	sc.Update()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			o := addActive(w, fmt.Sprintf("n%d", i), obj.Point{X: 1, Z: 1})
			sc.Dirty()
			sc.Update()
			w.Remove(o)
			sc.Dirty()
			sc.Update()
		}
	}()

	for i := 0; i < 100; i++ {
		sc.RemoveAll()
		sc.Update()
	}
	<-done

	// settle: after a final clear and update, the tracked set reflects
	// current world state exactly
	sc.RemoveAll()
	sc.Update()
	assert.Equal(t, 50, sc.VisibleCount())
}

func TestStalenessTriggersRecompute(t *testing.T) {
	props := testProps()
	props.Timeout = time.Millisecond
	sc, _, w := makeScene(props)
	sc.Update()

	a := addActive(w, "late", obj.Point{X: 1, Z: 1})
	// no Dirty call: only the staleness timeout forces the recompute
	time.Sleep(5 * time.Millisecond)
	upd := sc.Update()
	if upd == nil {
		t.Fatalf("stale scene should recompute")
	}
	assert.Equal(t, 1, len(upd.Appeared))
	assert.T(t, sc.Sees(a.ID), "late object should be visible now")
}
