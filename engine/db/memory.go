package db

import (
	"sync"

	"github.com/petar/GoLLRB/llrb"

	"github.com/metaverse/metaverse-server/engine/common"
)

type nameTreeItem struct {
	name string
	id   common.ObjectID
}

func (it *nameTreeItem) Less(other llrb.Item) bool {
	return it.name < other.(*nameTreeItem).name
}

// memoryDB keeps all records in process memory with an ordered index on
// client names; the default backend and the one used by tests
type memoryDB struct {
	mu      sync.RWMutex
	records map[common.ObjectID]*Record
	names   *llrb.LLRB // client name -> id
}

// OpenMemoryDB creates the in-memory storage backend
func OpenMemoryDB() MetaverseDB {
	return &memoryDB{
		records: map[common.ObjectID]*Record{},
		names:   llrb.New(),
	}
}

func (db *memoryDB) Get(id common.ObjectID) (*Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	rec, ok := db.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (db *memoryDB) GetClientByName(name string) (*Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	item := db.names.Get(&nameTreeItem{name: name})
	if item == nil {
		return nil, ErrNotFound
	}
	rec, ok := db.records[item.(*nameTreeItem).id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (db *memoryDB) FindByID(id common.ObjectID) (*Record, bool, error) {
	rec, err := db.Get(id)
	if IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (db *memoryDB) Put(rec *Record) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if old, ok := db.records[rec.ID]; ok && old.Kind == KindClient {
		db.names.Delete(&nameTreeItem{name: old.Name})
	}
	cp := *rec
	db.records[rec.ID] = &cp
	if rec.Kind == KindClient {
		db.names.ReplaceOrInsert(&nameTreeItem{name: rec.Name, id: rec.ID})
	}
	return nil
}

func (db *memoryDB) DeleteByID(id common.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	rec, ok := db.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Kind == KindClient {
		db.names.Delete(&nameTreeItem{name: rec.Name})
	}
	delete(db.records, id)
	return nil
}

func (db *memoryDB) ListWorlds() ([]*Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var worlds []*Record
	for _, rec := range db.records {
		if rec.Kind == KindWorld {
			cp := *rec
			worlds = append(worlds, &cp)
		}
	}
	return worlds, nil
}

func (db *memoryDB) ListObjects(worldName string) ([]*Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var objects []*Record
	for _, rec := range db.records {
		if rec.Kind == KindObject && rec.WorldName == worldName {
			cp := *rec
			objects = append(objects, &cp)
		}
	}
	return objects, nil
}

func (db *memoryDB) Close() error {
	return nil
}
