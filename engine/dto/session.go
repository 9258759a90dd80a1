package dto

import (
	"github.com/metaverse/metaverse-server/engine/core"
	"github.com/metaverse/metaverse-server/engine/obj"
	"github.com/metaverse/metaverse-server/engine/proto"
)

// Session drives the session lifecycle. Only "start" is implemented;
// the action field is kept on the wire for future pause/resume/stop.
type Session struct {
	Action string `json:"action" msgpack:"action"`
}

// Execute implements core.Command
func (s *Session) Execute(wm *core.WorldManager, c *obj.Client) (*proto.ClientResponse, error) {
	switch s.Action {
	case "", "start":
		return nil, wm.StartSession(c, c.CloseNotify())
	default:
		return nil, core.NewProtocolError("unknown session action: %s", s.Action)
	}
}

func init() {
	core.RegisterCommand("Session", func() core.Command { return &Session{} })
}
