package netutil

import (
	"encoding/binary"
	"io"
	"net"

	"github.com/pkg/errors"
	"github.com/xiaonanln/netconnutil"
)

// MAX_FRAME_SIZE is the largest frame payload accepted on a connection
const MAX_FRAME_SIZE = 1 * 1024 * 1024

// Connection is the abstract interface of client connections; writes
// may be buffered until Flush
type Connection interface {
	netconnutil.FlushableConn
}

// NetConn converts net.Conn to a Connection with no write buffering
type NetConn struct {
	net.Conn
}

// Flush implements Connection
func (n NetConn) Flush() error {
	return nil
}

// ReadFrame reads one length-prefixed frame payload from the connection
func ReadFrame(conn io.Reader) ([]byte, error) {
	var head [4]byte
	if _, err := io.ReadFull(conn, head[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(head[:])
	if size > MAX_FRAME_SIZE {
		return nil, errors.Errorf("frame size %d exceeds limit %d", size, MAX_FRAME_SIZE)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes one length-prefixed frame payload to the connection
func WriteFrame(conn io.Writer, payload []byte) error {
	var head [4]byte
	binary.BigEndian.PutUint32(head[:], uint32(len(payload)))
	if _, err := conn.Write(head[:]); err != nil {
		return err
	}
	_, err := conn.Write(payload)
	return err
}

// IsConnectionError checks if the error is a connection error (closed,
// reset), which is the normal way sessions end
func IsConnectionError(err interface{}) bool {
	e, ok := err.(error)
	if !ok {
		return false
	}
	err = errors.Cause(e)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return true
	}

	neterr, ok := err.(net.Error)
	if !ok {
		return false
	}
	if neterr.Timeout() {
		return false
	}

	return true
}
