package obj

import (
	"fmt"

	"github.com/metaverse/metaverse-server/engine/common"
)

// Entity is the base of anything addressable in the world graph.
//
// Identity is the ID alone; mutable fields never participate in equality.
type Entity struct {
	ID        common.ObjectID
	Name      string
	Temporary bool // not persisted, discarded on disconnect

	world *World
}

func (e *Entity) String() string {
	return fmt.Sprintf("Entity<%s|%s>", e.Name, e.ID)
}

// World returns the world this entity is currently attached to, nil for
// world-less entities
func (e *Entity) World() *World {
	return e.world
}

// VRObject is an entity that participates in the visible world
type VRObject struct {
	Entity

	active     bool
	position   Point
	rev        uint64 // bumped on every mutation, lets scenes detect updates
	Permanent  bool   // listed in every Welcome regardless of range
	Properties map[string]interface{}

	client *Client // non-nil if this object is a connected user
}

// NewVRObject creates a detached VRObject
func NewVRObject(name string) *VRObject {
	return &VRObject{
		Entity: Entity{
			ID:   common.GenObjectID(),
			Name: name,
		},
		Properties: map[string]interface{}{},
	}
}

func (o *VRObject) String() string {
	return fmt.Sprintf("VRObject<%s|%s>", o.Name, o.ID)
}

// IsActive returns the active flag; everyone sees active objects
func (o *VRObject) IsActive() bool {
	return o.active
}

// Position returns the current position
func (o *VRObject) Position() Point {
	return o.position
}

// Rev returns the mutation revision
func (o *VRObject) Rev() uint64 {
	return o.rev
}

// Client returns the Client this object represents, nil for plain objects
func (o *VRObject) Client() *Client {
	return o.client
}

// touch records a mutation; caller must hold the world lock when the
// object is attached to a world
func (o *VRObject) touch() {
	o.rev++
}
