package netutil

import (
	"bytes"
	"encoding/json"

	"github.com/vmihailenco/msgpack"
)

// MsgPacker serializes wire messages. The format is picked once at
// startup from [server] serialization and shared by every connection.
type MsgPacker interface {
	PackMsg(msg interface{}, buf []byte) ([]byte, error)
	UnpackMsg(data []byte, msg interface{}) error
}

// GetMsgPacker returns the packer for the configured serialization format
func GetMsgPacker(serialization string) MsgPacker {
	if serialization == "msgpack" {
		return MessagePackMsgPacker{}
	}
	return JSONMsgPacker{}
}

// JSONMsgPacker is the default wire format, decodable by browser clients
// without extra libraries
type JSONMsgPacker struct{}

// PackMsg appends the JSON encoding of msg to buf
func (mp JSONMsgPacker) PackMsg(msg interface{}, buf []byte) ([]byte, error) {
	buffer := bytes.NewBuffer(buf)
	if err := json.NewEncoder(buffer).Encode(msg); err != nil {
		return buf, err
	}
	buf = buffer.Bytes()
	return buf[:len(buf)-1], nil // drop the trailing '\n' the encoder emits
}

// UnpackMsg decodes JSON data into msg
func (mp JSONMsgPacker) UnpackMsg(data []byte, msg interface{}) error {
	return json.Unmarshal(data, msg)
}

// MessagePackMsgPacker is the compact binary wire format for native
// clients
type MessagePackMsgPacker struct{}

// PackMsg appends the MessagePack encoding of msg to buf
func (mp MessagePackMsgPacker) PackMsg(msg interface{}, buf []byte) ([]byte, error) {
	buffer := bytes.NewBuffer(buf)
	if err := msgpack.NewEncoder(buffer).Encode(msg); err != nil {
		return buf, err
	}
	return buffer.Bytes(), nil
}

// UnpackMsg decodes MessagePack data into msg
func (mp MessagePackMsgPacker) UnpackMsg(data []byte, msg interface{}) error {
	return msgpack.Unmarshal(data, msg)
}
