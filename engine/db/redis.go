package db

import (
	"strconv"
	"sync"

	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"

	"github.com/metaverse/metaverse-server/engine/common"
)

const (
	objKeyPrefix      = "_MV_obj_"
	nameKeyPrefix     = "_MV_clientname_"
	worldSetKey       = "_MV_worlds"
	worldObjKeyPrefix = "_MV_worldobjs_"
)

// redisDB stores msgpack-encoded records in redis with a secondary key
// per client name and a set of world ids
type redisDB struct {
	mu sync.Mutex // redigo connections are not safe for concurrent use
	c  redis.Conn
}

// OpenRedisDB connects to redis as storage backend; dbindex selects the
// redis database
func OpenRedisDB(url string, dbindex string) (MetaverseDB, error) {
	c, err := redis.Dial("tcp", url)
	if err != nil {
		return nil, errors.Wrap(err, "redis dial failed")
	}

	db := &redisDB{c: c}
	if dbindex != "" {
		index, err := strconv.Atoi(dbindex)
		if err != nil {
			return nil, errors.Wrap(err, "invalid redis db index")
		}
		if _, err := c.Do("SELECT", index); err != nil {
			return nil, errors.Wrap(err, "redis select failed")
		}
	}
	return db, nil
}

func (db *redisDB) getRecord(key string) (*Record, error) {
	r, err := db.c.Do("GET", key)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrNotFound
	}
	data, err := redis.Bytes(r, nil)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, "decode record failed")
	}
	return &rec, nil
}

func (db *redisDB) Get(id common.ObjectID) (*Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.getRecord(objKeyPrefix + string(id))
}

func (db *redisDB) GetClientByName(name string) (*Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	r, err := db.c.Do("GET", nameKeyPrefix+name)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrNotFound
	}
	id, err := redis.String(r, nil)
	if err != nil {
		return nil, err
	}
	return db.getRecord(objKeyPrefix + id)
}

func (db *redisDB) FindByID(id common.ObjectID) (*Record, bool, error) {
	rec, err := db.Get(id)
	if IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (db *redisDB) Put(rec *Record) error {
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encode record failed")
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if _, err := db.c.Do("SET", objKeyPrefix+string(rec.ID), data); err != nil {
		return err
	}
	if rec.Kind == KindClient {
		if _, err := db.c.Do("SET", nameKeyPrefix+rec.Name, string(rec.ID)); err != nil {
			return err
		}
	}
	if rec.Kind == KindWorld {
		if _, err := db.c.Do("SADD", worldSetKey, string(rec.ID)); err != nil {
			return err
		}
	}
	if rec.Kind == KindObject && rec.WorldName != "" {
		if _, err := db.c.Do("SADD", worldObjKeyPrefix+rec.WorldName, string(rec.ID)); err != nil {
			return err
		}
	}
	return nil
}

func (db *redisDB) DeleteByID(id common.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	rec, err := db.getRecord(objKeyPrefix + string(id))
	if err != nil {
		return err
	}
	if rec.Kind == KindClient {
		if _, err := db.c.Do("DEL", nameKeyPrefix+rec.Name); err != nil {
			return err
		}
	}
	if rec.Kind == KindWorld {
		if _, err := db.c.Do("SREM", worldSetKey, string(id)); err != nil {
			return err
		}
	}
	if rec.Kind == KindObject && rec.WorldName != "" {
		if _, err := db.c.Do("SREM", worldObjKeyPrefix+rec.WorldName, string(id)); err != nil {
			return err
		}
	}
	_, err = db.c.Do("DEL", objKeyPrefix+string(id))
	return err
}

func (db *redisDB) ListWorlds() ([]*Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	ids, err := redis.Strings(db.c.Do("SMEMBERS", worldSetKey))
	if err != nil {
		return nil, err
	}
	var worlds []*Record
	for _, id := range ids {
		rec, err := db.getRecord(objKeyPrefix + id)
		if IsNotFound(err) {
			continue // stale index entry
		}
		if err != nil {
			return nil, err
		}
		worlds = append(worlds, rec)
	}
	return worlds, nil
}

func (db *redisDB) ListObjects(worldName string) ([]*Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	ids, err := redis.Strings(db.c.Do("SMEMBERS", worldObjKeyPrefix+worldName))
	if err != nil {
		return nil, err
	}
	var objects []*Record
	for _, id := range ids {
		rec, err := db.getRecord(objKeyPrefix + id)
		if IsNotFound(err) {
			continue // stale index entry
		}
		if err != nil {
			return nil, err
		}
		objects = append(objects, rec)
	}
	return objects, nil
}

func (db *redisDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.c.Close()
}
