package core

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"

	"github.com/metaverse/metaverse-server/engine/common"
	"github.com/metaverse/metaverse-server/engine/mvlog"
	"github.com/metaverse/metaverse-server/engine/mvutils"
	"github.com/metaverse/metaverse-server/engine/netutil"
	"github.com/metaverse/metaverse-server/engine/obj"
	"github.com/metaverse/metaverse-server/engine/proto"
)

// ClientProxy is one live client connection: a reader loop decoding and
// executing command frames and a writer goroutine draining the send
// queue, so slow connections never block command execution
type ClientProxy struct {
	sm      *SessionManager
	conn    netutil.Connection
	session common.SessionID
	client  *obj.Client
	packer  netutil.MsgPacker

	sendQueue *xnsyncutil.SyncQueue
	closed    xnsyncutil.AtomicBool
	closeOnce sync.Once
	closeCh   chan struct{}
}

func newClientProxy(sm *SessionManager, conn netutil.Connection, client *obj.Client) *ClientProxy {
	cp := &ClientProxy{
		sm:        sm,
		conn:      conn,
		session:   common.GenSessionID(),
		client:    client,
		packer:    sm.packer,
		sendQueue: xnsyncutil.NewSyncQueue(),
		closeCh:   make(chan struct{}),
	}
	go mvutils.RepeatUntilPanicless(cp.sendRoutine)
	return cp
}

func (cp *ClientProxy) String() string {
	return "ClientProxy<" + string(cp.session) + "|" + cp.client.Name + ">"
}

// Session returns the connection's session ID
func (cp *ClientProxy) Session() common.SessionID {
	return cp.session
}

// Client returns the client entity behind this connection
func (cp *ClientProxy) Client() *obj.Client {
	return cp.client
}

// SendMessage implements obj.MessageSender: the message is queued and
// written by the proxy's writer goroutine
func (cp *ClientProxy) SendMessage(msg interface{}) error {
	if cp.closed.Load() {
		return errors.Errorf("%s is closed", cp)
	}
	cp.sendQueue.Push(msg)
	return nil
}

// CloseNotify implements obj.CloseNotifier
func (cp *ClientProxy) CloseNotify() <-chan struct{} {
	return cp.closeCh
}

func (cp *ClientProxy) close() {
	cp.closeOnce.Do(func() {
		cp.closed.Store(true)
		close(cp.closeCh)
		cp.sendQueue.Close()
		cp.conn.Close()
	})
}

func (cp *ClientProxy) sendRoutine() {
	for {
		msg := cp.sendQueue.Pop()
		if msg == nil {
			return
		}
		data, err := cp.packer.PackMsg(msg, nil)
		if err != nil {
			mvlog.Errorf("%s pack message failed: %v", cp, err)
			continue
		}
		if err := netutil.WriteFrame(cp.conn, data); err != nil {
			if netutil.IsConnectionError(err) {
				cp.close()
				return
			}
			mvlog.Errorf("%s write failed: %v", cp, err)
			continue
		}
		if cp.sendQueue.Len() == 0 {
			if err := cp.conn.Flush(); err != nil && netutil.IsConnectionError(err) {
				cp.close()
				return
			}
		}
	}
}

// serve runs the reader loop until the connection drops
func (cp *ClientProxy) serve() {
	for {
		payload, err := netutil.ReadFrame(cp.conn)
		if err != nil {
			if !netutil.IsConnectionError(err) {
				mvlog.Errorf("%s read failed: %v", cp, err)
			}
			return
		}
		cp.handleFrame(payload)
	}
}

// handleFrame decodes one inbound frame and executes it. The payload is
// decoded in two phases: the envelope selects the command variant, then
// the data is unpacked into it. Failures of any phase are answered with
// a typed error message.
func (cp *ClientProxy) handleFrame(payload []byte) {
	var frame proto.Frame
	if err := cp.packer.UnpackMsg(payload, &frame); err != nil {
		cp.respondError(NewProtocolError("undecodable frame: %v", err))
		return
	}

	cmd, err := NewCommand(frame.Command)
	if err != nil {
		cp.respondError(err)
		return
	}
	if frame.Data != nil {
		data, err := cp.packer.PackMsg(frame.Data, nil)
		if err != nil {
			cp.respondError(NewProtocolError("unpackable data: %v", err))
			return
		}
		if err := cp.packer.UnpackMsg(data, cmd); err != nil {
			cp.respondError(NewProtocolError("bad %s payload: %v", frame.Command, err))
			return
		}
	}

	resp, err := cp.sm.wm.Execute(cp.client, cmd)
	if err != nil {
		mvlog.Debugf("%s command %s failed: %v", cp, frame.Command, err)
		cp.respondError(err)
		return
	}
	if resp != nil {
		cp.SendMessage(&proto.Message{Type: proto.MT_RESPONSE, Data: resp})
	}
}

func (cp *ClientProxy) respondError(err error) {
	cp.SendMessage(&proto.Message{Type: proto.MT_ERROR, Data: ErrorMessageOf(err)})
}
