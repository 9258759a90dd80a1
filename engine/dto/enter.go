package dto

import (
	"github.com/metaverse/metaverse-server/engine/core"
	"github.com/metaverse/metaverse-server/engine/obj"
	"github.com/metaverse/metaverse-server/engine/proto"
)

// Enter attaches the client to the named world and pushes the Welcome
// payload over the connection
type Enter struct {
	World string `json:"world" msgpack:"world"`
}

// Execute implements core.Command
func (e *Enter) Execute(wm *core.WorldManager, c *obj.Client) (*proto.ClientResponse, error) {
	welcome, err := wm.Enter(c, e.World)
	if err != nil {
		return nil, err
	}
	c.SendMessage(&proto.Message{Type: proto.MT_WELCOME, Data: welcome})
	return nil, nil
}

func init() {
	core.RegisterCommand("Enter", func() core.Command { return &Enter{} })
}
