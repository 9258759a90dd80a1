package db

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/metaverse/metaverse-server/engine/common"
	"github.com/metaverse/metaverse-server/engine/config"
	"github.com/metaverse/metaverse-server/engine/mvlog"
)

// Record kinds
const (
	KindClient = "client"
	KindWorld  = "world"
	KindObject = "object"
)

// Record is the flat persisted form of a world graph entity
type Record struct {
	ID        common.ObjectID `json:"id" bson:"_id" msgpack:"id"`
	Kind      string          `json:"kind" bson:"kind" msgpack:"kind"`
	Name      string          `json:"name" bson:"name" msgpack:"name"`
	WorldName string          `json:"worldName,omitempty" bson:"worldName,omitempty" msgpack:"worldName"`
	OwnerID   common.ObjectID `json:"ownerId,omitempty" bson:"ownerId,omitempty" msgpack:"ownerId"`
	Active    bool            `json:"active" bson:"active" msgpack:"active"`
	X         float64         `json:"x" bson:"x" msgpack:"x"`
	Y         float64         `json:"y" bson:"y" msgpack:"y"`
	Z         float64         `json:"z" bson:"z" msgpack:"z"`
	Permanent bool            `json:"permanent,omitempty" bson:"permanent,omitempty" msgpack:"permanent"`
}

// ErrNotFound is returned when a referenced record is absent
var ErrNotFound = errors.New("not found")

// IsNotFound checks if the error means the record is absent
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

// MetaverseDB is the persistence collaborator: every call is treated as
// potentially remote and may fail with ErrNotFound
type MetaverseDB interface {
	// Get returns the record of specified id, ErrNotFound when absent
	Get(id common.ObjectID) (*Record, error)
	// GetClientByName returns the client record of specified name,
	// ErrNotFound when absent
	GetClientByName(name string) (*Record, error)
	// FindByID returns (record, true) or (nil, false) when absent
	FindByID(id common.ObjectID) (*Record, bool, error)
	// Put inserts or replaces a record
	Put(rec *Record) error
	// DeleteByID removes a record, ErrNotFound when absent
	DeleteByID(id common.ObjectID) error
	// ListWorlds returns all world records
	ListWorlds() ([]*Record, error)
	// ListObjects returns all object records of a world
	ListObjects(worldName string) ([]*Record, error)
	// Close releases the backend connection
	Close() error
}

// Open creates the MetaverseDB configured in the [storage] section,
// wrapped with delayed write-back when [writeback] is enabled
func Open(cfg *config.StorageConfig, wb *config.WritebackConfig) (MetaverseDB, error) {
	var (
		database MetaverseDB
		err      error
	)
	switch cfg.Type {
	case "memory":
		database = OpenMemoryDB()
	case "redis":
		database, err = OpenRedisDB(cfg.Url, cfg.DB)
	case "mongodb":
		database, err = OpenMongoDB(cfg.Url, cfg.DB)
	default:
		return nil, errors.Errorf("unknown storage type: %s", cfg.Type)
	}
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("open %s storage failed", cfg.Type))
	}

	mvlog.Infof("Opened %s storage", cfg.Type)
	if wb != nil && wb.Enabled {
		database = newWritebackDB(database, wb.Delay)
	}
	return database, nil
}
