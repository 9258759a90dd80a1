package db

import (
	"testing"
	"time"

	"github.com/bmizerany/assert"

	"github.com/metaverse/metaverse-server/engine/common"
)

func TestWritebackReadsSeePendingState(t *testing.T) {
	inner := OpenMemoryDB()
	db := newWritebackDB(inner, 50*time.Millisecond)
	defer db.Close()

	rec := clientRec("alice")
	assert.Equal(t, nil, db.Put(rec))

	// the write is pending but must be readable immediately
	got, err := db.Get(rec.ID)
	assert.Equal(t, nil, err)
	assert.Equal(t, "alice", got.Name)

	got, err = db.GetClientByName("alice")
	assert.Equal(t, nil, err)
	assert.Equal(t, rec.ID, got.ID)
}

func TestWritebackFlushesAfterDelay(t *testing.T) {
	inner := OpenMemoryDB()
	db := newWritebackDB(inner, 10*time.Millisecond)
	defer db.Close()

	rec := clientRec("alice")
	db.Put(rec)

	deadline := time.Now().Add(time.Second)
	for {
		if _, err := inner.Get(rec.ID); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("write never reached the inner backend")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWritebackCloseFlushesPending(t *testing.T) {
	inner := OpenMemoryDB()
	db := newWritebackDB(inner, time.Hour) // would never flush on its own
	rec := clientRec("alice")
	db.Put(rec)

	assert.Equal(t, nil, db.Close())

	got, err := inner.Get(rec.ID)
	assert.Equal(t, nil, err)
	assert.Equal(t, "alice", got.Name)
}

// a second Close may arrive from independent shutdown paths
func TestWritebackCloseTwice(t *testing.T) {
	inner := OpenMemoryDB()
	db := newWritebackDB(inner, 10*time.Millisecond)

	assert.Equal(t, nil, db.Close())
	assert.Equal(t, nil, db.Close())
}

func TestWritebackListObjectsMergesPending(t *testing.T) {
	inner := OpenMemoryDB()
	inner.Put(&Record{ID: common.GenObjectID(), Kind: KindObject, Name: "old", WorldName: "w1"})

	db := newWritebackDB(inner, time.Hour)
	defer db.Close()
	db.Put(&Record{ID: common.GenObjectID(), Kind: KindObject, Name: "new", WorldName: "w1"})

	objects, err := db.ListObjects("w1")
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(objects))
}
