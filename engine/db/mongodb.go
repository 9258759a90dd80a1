package db

import (
	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/pkg/errors"

	"github.com/metaverse/metaverse-server/engine/common"
	"github.com/metaverse/metaverse-server/engine/mvlog"
)

const (
	_DEFAULT_MONGO_DB = "metaverse"
	_OBJECTS_COL      = "objects"
)

type mongoDB struct {
	session *mgo.Session
	db      *mgo.Database
}

// OpenMongoDB connects to mongodb as storage backend
func OpenMongoDB(url string, dbname string) (MetaverseDB, error) {
	mvlog.Debugf("Connecting MongoDB %s ...", url)
	session, err := mgo.Dial(url)
	if err != nil {
		return nil, err
	}

	session.SetMode(mgo.Monotonic, true)
	if dbname == "" {
		dbname = _DEFAULT_MONGO_DB
	}
	db := &mongoDB{
		session: session,
		db:      session.DB(dbname),
	}
	if err := db.ensureIndexes(); err != nil {
		session.Close()
		return nil, errors.Wrap(err, "ensure indexes failed")
	}
	return db, nil
}

func (db *mongoDB) col() *mgo.Collection {
	return db.db.C(_OBJECTS_COL)
}

func (db *mongoDB) ensureIndexes() error {
	return db.col().EnsureIndex(mgo.Index{
		Key: []string{"kind", "name"},
	})
}

func (db *mongoDB) Get(id common.ObjectID) (*Record, error) {
	var rec Record
	err := db.col().FindId(id).One(&rec)
	if err == mgo.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (db *mongoDB) GetClientByName(name string) (*Record, error) {
	var rec Record
	err := db.col().Find(bson.M{"kind": KindClient, "name": name}).One(&rec)
	if err == mgo.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (db *mongoDB) FindByID(id common.ObjectID) (*Record, bool, error) {
	rec, err := db.Get(id)
	if IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (db *mongoDB) Put(rec *Record) error {
	_, err := db.col().UpsertId(rec.ID, rec)
	return err
}

func (db *mongoDB) DeleteByID(id common.ObjectID) error {
	err := db.col().RemoveId(id)
	if err == mgo.ErrNotFound {
		return ErrNotFound
	}
	return err
}

func (db *mongoDB) ListWorlds() ([]*Record, error) {
	var worlds []*Record
	err := db.col().Find(bson.M{"kind": KindWorld}).All(&worlds)
	if err != nil {
		return nil, err
	}
	return worlds, nil
}

func (db *mongoDB) ListObjects(worldName string) ([]*Record, error) {
	var objects []*Record
	err := db.col().Find(bson.M{"kind": KindObject, "worldName": worldName}).All(&objects)
	if err != nil {
		return nil, err
	}
	return objects, nil
}

func (db *mongoDB) Close() error {
	db.session.Close()
	return nil
}
