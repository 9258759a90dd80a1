package dto

import (
	"github.com/metaverse/metaverse-server/engine/core"
	"github.com/metaverse/metaverse-server/engine/obj"
	"github.com/metaverse/metaverse-server/engine/proto"
)

const _PONG = "Pong"

// Ping returns a fixed acknowledgment without touching world state
type Ping struct{}

// Execute implements core.Command
func (p *Ping) Execute(wm *core.WorldManager, c *obj.Client) (*proto.ClientResponse, error) {
	return &proto.ClientResponse{Response: _PONG}, nil
}

func init() {
	core.RegisterCommand("Ping", func() core.Command { return &Ping{} })
}
