package core

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/metaverse/metaverse-server/engine/db"
	"github.com/metaverse/metaverse-server/engine/proto"
)

// Wire error types carried in ErrorMessage.Type
const (
	ET_SESSION  = "session"
	ET_ENTERED  = "already-entered"
	ET_NOWORLD  = "world-not-found"
	ET_NOOBJECT = "object-not-found"
	ET_PROTOCOL = "protocol"
	ET_INTERNAL = "internal"
)

// SessionError reports a session lifecycle violation: starting an
// already active session, commands before start, or the session limit
type SessionError struct {
	Reason string
}

func (e *SessionError) Error() string {
	return "session error: " + e.Reason
}

// NewSessionError creates a SessionError
func NewSessionError(format string, args ...interface{}) *SessionError {
	return &SessionError{Reason: fmt.Sprintf(format, args...)}
}

// AlreadyEnteredError reports an Enter while the client is in a world
type AlreadyEnteredError struct {
	WorldName string
}

func (e *AlreadyEnteredError) Error() string {
	return "already entered world " + e.WorldName
}

// WorldNotFoundError reports an Enter into an unknown world while world
// creation is disabled
type WorldNotFoundError struct {
	WorldName string
}

func (e *WorldNotFoundError) Error() string {
	return "world not found: " + e.WorldName
}

// ProtocolError reports an unknown command tag or an undecodable payload
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

// NewProtocolError creates a ProtocolError
func NewProtocolError(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

// ErrorMessageOf maps a command failure to its wire form. Every failed
// command is answered, never silently dropped.
func ErrorMessageOf(err error) *proto.ErrorMessage {
	msg := &proto.ErrorMessage{Message: err.Error()}
	switch errors.Cause(err).(type) {
	case *SessionError:
		msg.Type = ET_SESSION
	case *AlreadyEnteredError:
		msg.Type = ET_ENTERED
	case *WorldNotFoundError:
		msg.Type = ET_NOWORLD
	case *ProtocolError:
		msg.Type = ET_PROTOCOL
	default:
		if db.IsNotFound(err) {
			msg.Type = ET_NOOBJECT
		} else {
			msg.Type = ET_INTERNAL
		}
	}
	return msg
}
