package obj

import (
	"fmt"

	"github.com/metaverse/metaverse-server/engine/common"
	"github.com/metaverse/metaverse-server/engine/config"
	"github.com/metaverse/metaverse-server/engine/mvlog"
)

// SessionStatus is the session lifecycle state of a Client
type SessionStatus int

// Session lifecycle states
const (
	SessionDisconnected SessionStatus = iota
	SessionConnecting
	SessionActive
	SessionTimedOut
)

func (s SessionStatus) String() string {
	switch s {
	case SessionDisconnected:
		return "disconnected"
	case SessionConnecting:
		return "connecting"
	case SessionActive:
		return "active"
	case SessionTimedOut:
		return "timedout"
	}
	return fmt.Sprintf("SessionStatus(%d)", int(s))
}

// MessageSender pushes one outbound message to a client connection
type MessageSender interface {
	SendMessage(msg interface{}) error
}

// CloseNotifier is optionally implemented by senders that can report
// connection shutdown
type CloseNotifier interface {
	CloseNotify() <-chan struct{}
}

// Client is a connected user's entity. It owns zero or more VRObjects;
// owned objects persist independently of the client.
type Client struct {
	VRObject

	Guest         bool
	sessionStatus SessionStatus
	owned         common.ObjectIDSet
	sceneProps    *config.SceneConfig // per-client override, nil = server default
	sender        MessageSender
}

// NewClient creates a Client with the given unique name
func NewClient(name string) *Client {
	c := &Client{
		VRObject: VRObject{
			Entity: Entity{
				ID:   common.GenObjectID(),
				Name: name,
			},
			Properties: map[string]interface{}{},
		},
		owned: common.ObjectIDSet{},
	}
	c.client = c
	return c
}

func (c *Client) String() string {
	return fmt.Sprintf("Client<%s|%s>", c.Name, c.ID)
}

// SessionStatus returns the session lifecycle state
func (c *Client) SessionStatus() SessionStatus {
	return c.sessionStatus
}

// SetSessionStatus moves the session lifecycle; an active session also
// makes the client visible (and vice versa), so offline clients drop out
// of other scenes. When the client is attached the flip goes through the
// world so concurrent scene recomputation never reads a torn state.
func (c *Client) SetSessionStatus(s SessionStatus) {
	active := s == SessionActive
	if w := c.world; w != nil {
		w.setSessionStatus(c, s, active)
		return
	}
	c.sessionStatus = s
	c.active = active
	c.touch()
}

// IsOwner returns whether this client owns the object
func (c *Client) IsOwner(o *VRObject) bool {
	return c.owned.Contains(o.ID)
}

// AddOwned records ownership of an object
func (c *Client) AddOwned(o *VRObject) {
	c.owned.Add(o.ID)
}

// RemoveOwned drops ownership of an object
func (c *Client) RemoveOwned(o *VRObject) {
	c.owned.Del(o.ID)
}

// OwnedIDs returns the IDs of all owned objects
func (c *Client) OwnedIDs() []common.ObjectID {
	return c.owned.ToList()
}

// SceneProperties returns the per-client scene parameter override, nil
// when the client uses the server defaults
func (c *Client) SceneProperties() *config.SceneConfig {
	return c.sceneProps
}

// OverrideSceneProperties sets per-client scene parameters
func (c *Client) OverrideSceneProperties(props *config.SceneConfig) {
	c.sceneProps = props
}

// BindSender attaches the live connection; nil detaches it
func (c *Client) BindSender(s MessageSender) {
	c.sender = s
}

// SendMessage pushes a message to the client connection, dropping it
// when the client is not connected
func (c *Client) SendMessage(msg interface{}) error {
	if c.sender == nil {
		mvlog.Debugf("%s has no connection, message dropped", c)
		return nil
	}
	return c.sender.SendMessage(msg)
}

// CloseNotify returns a channel closed when the connection shuts down,
// nil when the client has no connection or the sender cannot tell
func (c *Client) CloseNotify() <-chan struct{} {
	if cn, ok := c.sender.(CloseNotifier); ok {
		return cn.CloseNotify()
	}
	return nil
}
