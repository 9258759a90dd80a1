package proto

import (
	"github.com/metaverse/metaverse-server/engine/obj"
)

// Outbound message types
const (
	MT_RESPONSE = "response"
	MT_WELCOME  = "welcome"
	MT_SCENE    = "scene"
	MT_ERROR    = "error"
)

// Frame is one inbound client frame; Command selects the variant and
// Data carries its payload, re-unpacked into the typed command
type Frame struct {
	Command string                 `json:"command" msgpack:"command"`
	Data    map[string]interface{} `json:"data" msgpack:"data"`
}

// Message is one outbound frame
type Message struct {
	Type string      `json:"type" msgpack:"type"`
	Data interface{} `json:"data" msgpack:"data"`
}

// ObjectInfo describes one visible object on the wire
type ObjectInfo struct {
	ID        string    `json:"id" msgpack:"id"`
	Name      string    `json:"name,omitempty" msgpack:"name"`
	Position  obj.Point `json:"position" msgpack:"position"`
	Active    bool      `json:"active" msgpack:"active"`
	Client    bool      `json:"client,omitempty" msgpack:"client"`
	Permanent bool      `json:"permanent,omitempty" msgpack:"permanent"`
}

// FromSnapshot converts a world snapshot entry to its wire form
func FromSnapshot(s obj.ObjectSnapshot) ObjectInfo {
	return ObjectInfo{
		ID:        string(s.ID),
		Name:      s.Name,
		Position:  s.Position,
		Active:    s.Active,
		Client:    s.IsClient,
		Permanent: s.Permanent,
	}
}

// ClientResponse is a direct command response
type ClientResponse struct {
	Response string `json:"response" msgpack:"response"`
}

// Welcome lists the initial state of a world just entered
type Welcome struct {
	Client     ObjectInfo   `json:"client" msgpack:"client"`
	World      string       `json:"world" msgpack:"world"`
	Permanents []ObjectInfo `json:"permanents,omitempty" msgpack:"permanents"`
}

// SceneUpdate is the delta of one client's visible set
type SceneUpdate struct {
	Appeared    []ObjectInfo `json:"appeared,omitempty" msgpack:"appeared"`
	Updated     []ObjectInfo `json:"updated,omitempty" msgpack:"updated"`
	Disappeared []string     `json:"disappeared,omitempty" msgpack:"disappeared"`
}

// IsEmpty returns whether the update carries no events
func (su *SceneUpdate) IsEmpty() bool {
	return len(su.Appeared) == 0 && len(su.Updated) == 0 && len(su.Disappeared) == 0
}

// ErrorMessage is a typed command-level failure response
type ErrorMessage struct {
	Type    string `json:"type" msgpack:"type"`
	Message string `json:"message" msgpack:"message"`
}

// WorldStatus is the per-world user count rollup
type WorldStatus struct {
	WorldName   string `json:"worldName" msgpack:"worldName"`
	ActiveUsers int    `json:"activeUsers" msgpack:"activeUsers"`
	TotalUsers  int    `json:"totalUsers" msgpack:"totalUsers"`
}
