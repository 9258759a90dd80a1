package dto

import (
	"github.com/metaverse/metaverse-server/engine/common"
	"github.com/metaverse/metaverse-server/engine/core"
	"github.com/metaverse/metaverse-server/engine/obj"
	"github.com/metaverse/metaverse-server/engine/proto"
)

// Move repositions the client itself (empty ID) or one of its owned
// objects
type Move struct {
	ID       string    `json:"id" msgpack:"id"`
	Position obj.Point `json:"position" msgpack:"position"`
}

// Execute implements core.Command
func (m *Move) Execute(wm *core.WorldManager, c *obj.Client) (*proto.ClientResponse, error) {
	id := c.ID
	if m.ID != "" {
		if len(m.ID) != common.OBJECTID_LENGTH {
			return nil, core.NewProtocolError("bad object id: %s", m.ID)
		}
		id = common.ObjectID(m.ID)
	}
	return nil, wm.MoveObject(c, id, m.Position)
}

func init() {
	core.RegisterCommand("Move", func() core.Command { return &Move{} })
}
