package db

import (
	"sync"
	"time"

	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"

	"github.com/metaverse/metaverse-server/engine/common"
	"github.com/metaverse/metaverse-server/engine/mvlog"
	"github.com/metaverse/metaverse-server/engine/mvutils"
)

// writebackDB delays Puts: writes arriving within the configured delay
// window are coalesced per record and flushed by a single goroutine, so
// a rapidly moving object costs one write per window instead of one per
// mutation. Reads see the pending state.
type writebackDB struct {
	inner MetaverseDB
	delay time.Duration

	mu      sync.Mutex
	pending map[common.ObjectID]*Record

	wakeups    *xnsyncutil.SyncQueue
	closing    chan struct{}
	terminated *xnsyncutil.OneTimeCond
	closeOnce  sync.Once
	closeErr   error
}

func newWritebackDB(inner MetaverseDB, delay time.Duration) MetaverseDB {
	db := &writebackDB{
		inner:      inner,
		delay:      delay,
		pending:    map[common.ObjectID]*Record{},
		wakeups:    xnsyncutil.NewSyncQueue(),
		closing:    make(chan struct{}),
		terminated: xnsyncutil.NewOneTimeCond(),
	}
	go mvutils.RepeatUntilPanicless(db.flushRoutine)
	return db
}

func (db *writebackDB) flushRoutine() {
	for {
		item := db.wakeups.Pop()
		if item == nil { // queue closed, final flush then quit
			db.flush()
			db.terminated.Signal()
			return
		}
		// coalesce writes arriving within the delay window; a close
		// cuts the window short
		select {
		case <-time.After(db.delay):
		case <-db.closing:
		}
		for db.wakeups.Len() > 0 {
			db.wakeups.Pop()
		}
		db.flush()
	}
}

func (db *writebackDB) flush() {
	db.mu.Lock()
	batch := db.pending
	db.pending = map[common.ObjectID]*Record{}
	db.mu.Unlock()

	for _, rec := range batch {
		if err := db.inner.Put(rec); err != nil {
			mvlog.Errorf("writeback of %s failed: %v", rec.ID, err)
		}
	}
}

func (db *writebackDB) Get(id common.ObjectID) (*Record, error) {
	db.mu.Lock()
	if rec, ok := db.pending[id]; ok {
		cp := *rec
		db.mu.Unlock()
		return &cp, nil
	}
	db.mu.Unlock()
	return db.inner.Get(id)
}

func (db *writebackDB) GetClientByName(name string) (*Record, error) {
	db.mu.Lock()
	for _, rec := range db.pending {
		if rec.Kind == KindClient && rec.Name == name {
			cp := *rec
			db.mu.Unlock()
			return &cp, nil
		}
	}
	db.mu.Unlock()
	return db.inner.GetClientByName(name)
}

func (db *writebackDB) FindByID(id common.ObjectID) (*Record, bool, error) {
	rec, err := db.Get(id)
	if IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (db *writebackDB) Put(rec *Record) error {
	cp := *rec
	db.mu.Lock()
	db.pending[rec.ID] = &cp
	db.mu.Unlock()
	db.wakeups.Push(struct{}{})
	return nil
}

func (db *writebackDB) DeleteByID(id common.ObjectID) error {
	db.mu.Lock()
	delete(db.pending, id)
	db.mu.Unlock()
	return db.inner.DeleteByID(id)
}

func (db *writebackDB) ListWorlds() ([]*Record, error) {
	worlds, err := db.inner.ListWorlds()
	if err != nil {
		return nil, err
	}
	db.mu.Lock()
	for _, rec := range db.pending {
		if rec.Kind == KindWorld {
			cp := *rec
			worlds = append(worlds, &cp)
		}
	}
	db.mu.Unlock()
	return worlds, nil
}

func (db *writebackDB) ListObjects(worldName string) ([]*Record, error) {
	objects, err := db.inner.ListObjects(worldName)
	if err != nil {
		return nil, err
	}
	merged := make(map[common.ObjectID]*Record, len(objects))
	for _, rec := range objects {
		merged[rec.ID] = rec
	}
	db.mu.Lock()
	for _, rec := range db.pending {
		if rec.Kind == KindObject && rec.WorldName == worldName {
			cp := *rec
			merged[rec.ID] = &cp
		}
	}
	db.mu.Unlock()
	result := make([]*Record, 0, len(merged))
	for _, rec := range merged {
		result = append(result, rec)
	}
	return result, nil
}

// Close flushes the pending writes and shuts the backend down; repeated
// calls are no-ops returning the first result
func (db *writebackDB) Close() error {
	db.closeOnce.Do(func() {
		close(db.closing)
		db.wakeups.Close()
		db.terminated.Wait()
		db.closeErr = db.inner.Close()
	})
	return db.closeErr
}
