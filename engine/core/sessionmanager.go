package core

import (
	"net"
	"sync"

	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xiaonanln/netconnutil"
	"golang.org/x/net/websocket"

	"github.com/metaverse/metaverse-server/engine/common"
	"github.com/metaverse/metaverse-server/engine/config"
	"github.com/metaverse/metaverse-server/engine/consts"
	"github.com/metaverse/metaverse-server/engine/mvlog"
	"github.com/metaverse/metaverse-server/engine/netutil"
)

// SessionManager accepts client connections, resolves their identity
// through the ClientFactory and runs one ClientProxy per connection
// until the server terminates
type SessionManager struct {
	wm      *WorldManager
	factory ClientFactory
	packer  netutil.MsgPacker

	proxiesLock sync.RWMutex
	proxies     map[common.SessionID]*ClientProxy

	terminating xnsyncutil.AtomicBool
	terminated  *xnsyncutil.OneTimeCond
}

// NewSessionManager creates the session manager; the wire serialization
// format comes from [server] serialization
func NewSessionManager(wm *WorldManager, factory ClientFactory) *SessionManager {
	return &SessionManager{
		wm:         wm,
		factory:    factory,
		packer:     netutil.GetMsgPacker(config.GetServer().Serialization),
		proxies:    map[common.SessionID]*ClientProxy{},
		terminated: xnsyncutil.NewOneTimeCond(),
	}
}

// WorldManager returns the orchestration hub behind the sessions
func (sm *SessionManager) WorldManager() *WorldManager {
	return sm.wm
}

// ServeTCPConnection implements netutil.TCPServerDelegate: raw socket
// connections carry no identity and always log in anonymously
func (sm *SessionManager) ServeTCPConnection(conn net.Conn) {
	if tcpConn, ok := conn.(*net.TCPConn); ok && consts.CLIENT_PROXY_SET_TCP_NO_DELAY {
		tcpConn.SetNoDelay(true)
	}
	sm.serveClientConnection(conn, Principal{})
}

// WebSocketHandler returns the handler for the configured socket path.
// The client name is taken from the login cookie set by the REST layer,
// absent for anonymous visitors.
func (sm *SessionManager) WebSocketHandler() websocket.Handler {
	return func(wsConn *websocket.Conn) {
		mvlog.Debugf("WebSocket connection: %s", wsConn.RemoteAddr())
		wsConn.PayloadType = websocket.BinaryFrame

		var p Principal
		if req := wsConn.Request(); req != nil {
			p.Name = LoginName(req)
			if p.Name == "" {
				// native clients without a cookie jar pass the name on
				// the handshake URL; the REST endpoints never accept it
				p.Name = req.URL.Query().Get("name")
			}
		}
		sm.serveClientConnection(wsConn, p)
	}
}

func (sm *SessionManager) serveClientConnection(netconn net.Conn, p Principal) {
	if sm.terminating.Load() {
		// server terminating, not accepting more connections
		netconn.Close()
		return
	}

	client, err := sm.factory.Login(p)
	if err != nil {
		mvlog.Errorf("login of %s failed: %v", netconn.RemoteAddr(), err)
		netconn.Close()
		return
	}

	netconn = netconnutil.NewNoTempErrorConn(netconn)
	var conn netutil.Connection = netutil.NetConn{Conn: netconn}
	if config.GetServer().CompressConnection {
		conn = netconnutil.NewSnappyConn(conn)
	}
	conn = netconnutil.NewBufferedConn(conn, consts.BUFFERED_READ_BUFFSIZE, consts.BUFFERED_WRITE_BUFFSIZE)

	cp := newClientProxy(sm, conn, client)
	client.BindSender(cp)

	sm.proxiesLock.Lock()
	sm.proxies[cp.session] = cp
	sm.proxiesLock.Unlock()

	defer func() {
		cp.close()
		sm.onClientProxyClose(cp)

		if err := recover(); err != nil && !netutil.IsConnectionError(err) {
			mvlog.TraceError("%s error: %v", cp, err)
		} else {
			mvlog.Debugf("%s disconnected", cp)
		}
	}()

	cp.serve()
}

func (sm *SessionManager) onClientProxyClose(cp *ClientProxy) {
	sm.proxiesLock.Lock()
	delete(sm.proxies, cp.session)
	left := len(sm.proxies)
	sm.proxiesLock.Unlock()

	sm.wm.Logout(cp.client)

	if sm.terminating.Load() && left == 0 {
		sm.terminated.Signal()
	}
}

// SessionCount returns the number of live connections
func (sm *SessionManager) SessionCount() int {
	sm.proxiesLock.RLock()
	defer sm.proxiesLock.RUnlock()
	return len(sm.proxies)
}

// Terminate stops accepting connections, closes the live ones and waits
// for all proxies to unwind
func (sm *SessionManager) Terminate() {
	mvlog.Infof("SessionManager terminating, %d sessions to close ...", sm.SessionCount())
	sm.terminating.Store(true)

	sm.proxiesLock.RLock()
	proxies := make([]*ClientProxy, 0, len(sm.proxies))
	for _, cp := range sm.proxies {
		proxies = append(proxies, cp)
	}
	sm.proxiesLock.RUnlock()

	if len(proxies) == 0 {
		return
	}
	for _, cp := range proxies {
		cp.close()
	}
	sm.terminated.Wait()
}
