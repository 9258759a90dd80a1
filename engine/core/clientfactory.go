package core

import (
	"fmt"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/metaverse/metaverse-server/engine/config"
	"github.com/metaverse/metaverse-server/engine/db"
	"github.com/metaverse/metaverse-server/engine/mvlog"
	"github.com/metaverse/metaverse-server/engine/obj"
)

// Principal is the identity a connection arrives with. An empty Name
// means an anonymous visitor.
type Principal struct {
	Name string
}

// ClientFactory resolves a connection's identity to its Client entity
type ClientFactory interface {
	Login(p Principal) (*obj.Client, error)
}

// DefaultClientFactory looks clients up by name in storage, creating
// and persisting unknown names; anonymous visitors become temporary
// guest clients when [server] guest_allowed is set
type DefaultClientFactory struct {
	db db.MetaverseDB

	guestSeq int64
}

// NewClientFactory creates the default storage-backed factory
func NewClientFactory(database db.MetaverseDB) *DefaultClientFactory {
	return &DefaultClientFactory{db: database}
}

// Login implements ClientFactory
func (f *DefaultClientFactory) Login(p Principal) (*obj.Client, error) {
	if p.Name == "" {
		return f.loginGuest()
	}

	rec, err := f.db.GetClientByName(p.Name)
	if err != nil && !db.IsNotFound(err) {
		return nil, errors.Wrap(err, "client lookup failed")
	}

	if rec != nil {
		c := obj.NewClient(rec.Name)
		c.ID = rec.ID
		c.SetPosition(obj.Point{X: rec.X, Y: rec.Y, Z: rec.Z})
		mvlog.Debugf("%s logged in", c)
		return c, nil
	}

	c := obj.NewClient(p.Name)
	if err := f.db.Put(clientRecord(c)); err != nil {
		return nil, errors.Wrap(err, "client create failed")
	}
	mvlog.Infof("%s created", c)
	return c, nil
}

func (f *DefaultClientFactory) loginGuest() (*obj.Client, error) {
	if !config.GetServer().GuestAllowed {
		return nil, NewSessionError("anonymous visitors are not allowed")
	}
	seq := atomic.AddInt64(&f.guestSeq, 1)
	c := obj.NewClient(fmt.Sprintf("guest#%d", seq))
	c.Guest = true
	c.Temporary = true // guests are never persisted
	mvlog.Debugf("%s logged in", c)
	return c, nil
}

func clientRecord(c *obj.Client) *db.Record {
	pos := c.Position()
	worldName := ""
	if c.World() != nil {
		worldName = c.World().Name
	}
	return &db.Record{
		ID:        c.ID,
		Kind:      db.KindClient,
		Name:      c.Name,
		WorldName: worldName,
		Active:    c.IsActive(),
		X:         pos.X,
		Y:         pos.Y,
		Z:         pos.Z,
	}
}

func objectRecord(o *obj.VRObject, owner *obj.Client) *db.Record {
	pos := o.Position()
	worldName := ""
	if o.World() != nil {
		worldName = o.World().Name
	}
	rec := &db.Record{
		ID:        o.ID,
		Kind:      db.KindObject,
		Name:      o.Name,
		WorldName: worldName,
		Active:    o.IsActive(),
		X:         pos.X,
		Y:         pos.Y,
		Z:         pos.Z,
		Permanent: o.Permanent,
	}
	if owner != nil {
		rec.OwnerID = owner.ID
	}
	return rec
}

func worldRecord(w *obj.World) *db.Record {
	return &db.Record{
		ID:   w.ID,
		Kind: db.KindWorld,
		Name: w.Name,
	}
}
