package dto

import (
	"github.com/metaverse/metaverse-server/engine/common"
	"github.com/metaverse/metaverse-server/engine/core"
	"github.com/metaverse/metaverse-server/engine/obj"
	"github.com/metaverse/metaverse-server/engine/proto"
)

// Remove deletes an object owned by the client from its current world
type Remove struct {
	ID string `json:"id" msgpack:"id"`
}

// Execute implements core.Command
func (r *Remove) Execute(wm *core.WorldManager, c *obj.Client) (*proto.ClientResponse, error) {
	if len(r.ID) != common.OBJECTID_LENGTH {
		return nil, core.NewProtocolError("bad object id: %s", r.ID)
	}
	return nil, wm.RemoveObject(c, common.ObjectID(r.ID))
}

func init() {
	core.RegisterCommand("Remove", func() core.Command { return &Remove{} })
}
