package common

import (
	"github.com/metaverse/metaverse-server/engine/uuid"
)

// OBJECTID_LENGTH is the length of object IDs
const OBJECTID_LENGTH = uuid.UUID_LENGTH

// ObjectID identifies an addressable node in the world graph
type ObjectID string

// IsNil returns if ObjectID is nil
func (id ObjectID) IsNil() bool {
	return id == ""
}

// GenObjectID generates a new ObjectID
func GenObjectID() ObjectID {
	return ObjectID(uuid.GenUUID())
}

// SessionID identifies one client connection
type SessionID string

// GenSessionID generates a new SessionID
func GenSessionID() SessionID {
	return SessionID(uuid.GenUUID())
}

// IsNil returns if SessionID is nil
func (id SessionID) IsNil() bool {
	return id == ""
}
