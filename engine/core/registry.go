package core

import (
	"github.com/metaverse/metaverse-server/engine/mvlog"
	"github.com/metaverse/metaverse-server/engine/obj"
	"github.com/metaverse/metaverse-server/engine/proto"
)

// Command is one decoded client request. Execute runs with the client's
// world serialized, so implementations mutate world state freely through
// the WorldManager without further locking.
type Command interface {
	Execute(wm *WorldManager, c *obj.Client) (*proto.ClientResponse, error)
}

var commandRegistry = map[string]func() Command{}

// RegisterCommand binds a wire tag to a command constructor. Command
// packages register themselves in init, which keeps the dependency
// pointing from the commands to the engine and not back.
func RegisterCommand(tag string, ctor func() Command) {
	if _, dup := commandRegistry[tag]; dup {
		mvlog.Panicf("command %s registered twice", tag)
	}
	commandRegistry[tag] = ctor
}

// NewCommand creates an empty command for the wire tag, ready to be
// unpacked into; unknown tags are a ProtocolError
func NewCommand(tag string) (Command, error) {
	ctor, ok := commandRegistry[tag]
	if !ok {
		return nil, NewProtocolError("unknown command: %s", tag)
	}
	return ctor(), nil
}

// RegisteredCommands returns all known wire tags
func RegisteredCommands() []string {
	tags := make([]string, 0, len(commandRegistry))
	for tag := range commandRegistry {
		tags = append(tags, tag)
	}
	return tags
}
