package dto

import (
	"github.com/metaverse/metaverse-server/engine/core"
	"github.com/metaverse/metaverse-server/engine/obj"
	"github.com/metaverse/metaverse-server/engine/proto"
)

// Refresh forces a scene recomputation. With Clear set the tracked set
// is discarded first, so the client gets a full resync instead of a
// differential update.
type Refresh struct {
	Clear bool `json:"clear" msgpack:"clear"`
}

// Execute implements core.Command
func (r *Refresh) Execute(wm *core.WorldManager, c *obj.Client) (*proto.ClientResponse, error) {
	sc := wm.SceneOf(c)
	if sc == nil {
		return nil, core.NewSessionError("not in a world")
	}
	if r.Clear {
		sc.RemoveAll()
	} else {
		sc.Dirty()
	}
	// scenes are recomputed by the WorldManager after each command
	return nil, nil
}

func init() {
	core.RegisterCommand("Refresh", func() core.Command { return &Refresh{} })
}
