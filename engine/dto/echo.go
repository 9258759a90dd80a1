package dto

import (
	"github.com/metaverse/metaverse-server/engine/core"
	"github.com/metaverse/metaverse-server/engine/obj"
	"github.com/metaverse/metaverse-server/engine/proto"
)

// Echo returns its message unchanged, for connection debugging
type Echo struct {
	Message string `json:"message" msgpack:"message"`
}

// Execute implements core.Command
func (e *Echo) Execute(wm *core.WorldManager, c *obj.Client) (*proto.ClientResponse, error) {
	return &proto.ClientResponse{Response: e.Message}, nil
}

func init() {
	core.RegisterCommand("Echo", func() core.Command { return &Echo{} })
}
