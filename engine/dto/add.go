package dto

import (
	"github.com/metaverse/metaverse-server/engine/core"
	"github.com/metaverse/metaverse-server/engine/obj"
	"github.com/metaverse/metaverse-server/engine/proto"
)

// Add creates a new object owned by the client in its current world
type Add struct {
	Name      string    `json:"name" msgpack:"name"`
	Position  obj.Point `json:"position" msgpack:"position"`
	Permanent bool      `json:"permanent" msgpack:"permanent"`
	Temporary bool      `json:"temporary" msgpack:"temporary"`
}

// Execute implements core.Command
func (a *Add) Execute(wm *core.WorldManager, c *obj.Client) (*proto.ClientResponse, error) {
	o := obj.NewVRObject(a.Name)
	o.Permanent = a.Permanent
	o.Temporary = a.Temporary
	o.SetPosition(a.Position)
	if err := wm.AddObject(c, o); err != nil {
		return nil, err
	}
	return &proto.ClientResponse{Response: string(o.ID)}, nil
}

func init() {
	core.RegisterCommand("Add", func() core.Command { return &Add{} })
}
