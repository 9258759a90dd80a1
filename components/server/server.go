package main

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	timer "github.com/xiaonanln/goTimer"
	"github.com/xtaci/kcp-go"

	"github.com/metaverse/metaverse-server/engine/api"
	"github.com/metaverse/metaverse-server/engine/binutil"
	"github.com/metaverse/metaverse-server/engine/config"
	"github.com/metaverse/metaverse-server/engine/consts"
	"github.com/metaverse/metaverse-server/engine/core"
	"github.com/metaverse/metaverse-server/engine/db"
	_ "github.com/metaverse/metaverse-server/engine/dto" // registers all wire commands
	"github.com/metaverse/metaverse-server/engine/mvlog"
	"github.com/metaverse/metaverse-server/engine/mvutils"
	"github.com/metaverse/metaverse-server/engine/netutil"
)

// MetaverseServer ties the listeners, the session manager and the main
// tick loop of one server process together
type MetaverseServer struct {
	listenAddr     string
	database       db.MetaverseDB
	sessionManager *core.SessionManager

	terminating   xnsyncutil.AtomicBool
	terminateOnce sync.Once
	terminated    *xnsyncutil.OneTimeCond
}

func newMetaverseServer() *MetaverseServer {
	return &MetaverseServer{
		terminated: xnsyncutil.NewOneTimeCond(),
	}
}

func (s *MetaverseServer) String() string {
	return fmt.Sprintf("MetaverseServer<%s>", s.listenAddr)
}

func (s *MetaverseServer) run() {
	cfg := config.GetServer()
	mvlog.Infof("Compress connection: %v, serialization: %s", cfg.CompressConnection, cfg.Serialization)

	database, err := db.Open(config.GetStorage(), config.GetWriteback())
	if err != nil {
		mvlog.Fatalf("open storage failed: %v", err)
	}
	s.database = database

	wm := core.NewWorldManager(database)
	factory := core.NewClientFactory(database)
	s.sessionManager = core.NewSessionManager(wm, factory)

	restHandler := api.New(wm)
	binutil.SetupHTTPServer(cfg.HTTPIp, cfg.HTTPPort, cfg.SocketPath,
		s.sessionManager.WebSocketHandler(), func(mux *http.ServeMux) {
			restHandler.Register(mux)
		})

	if cfg.Port > 0 {
		s.listenAddr = fmt.Sprintf("%s:%d", cfg.Ip, cfg.Port)
		go netutil.ServeTCPForever(s.listenAddr, s.sessionManager)
		go s.serveKCP(s.listenAddr)
	}

	timer.AddTimer(consts.SCENE_SWEEP_INTERVAL, wm.SweepStaleScenes)

	s.mainLoop()
}

func (s *MetaverseServer) serveKCP(addr string) {
	kcpListener, err := kcp.ListenWithOptions(addr, nil, 10, 3)
	if err != nil {
		mvlog.Panic(err)
	}

	mvlog.Infof("Listening on KCP: %s ...", addr)

	mvutils.RepeatUntilPanicless(func() {
		for {
			conn, err := kcpListener.AcceptKCP()
			if err != nil {
				mvlog.Panic(err)
			}
			go s.handleKCPConn(conn)
		}
	})
}

func (s *MetaverseServer) handleKCPConn(conn *kcp.UDPSession) {
	mvlog.Infof("KCP connection from %s", conn.RemoteAddr())

	// turbo mode per https://github.com/skywind3000/kcp/blob/master/README.en.md#protocol-configuration
	conn.SetStreamMode(true)
	conn.SetWriteDelay(true)
	conn.SetNoDelay(1, 10, 2, 1)
	s.sessionManager.ServeTCPConnection(conn)
}

func (s *MetaverseServer) mainLoop() {
	ticker := time.Tick(consts.SERVER_TICK_INTERVAL)
	for {
		<-ticker
		if s.terminating.Load() {
			s.terminateOnce.Do(s.doTerminate)
		}
		timer.Tick()
	}
}

func (s *MetaverseServer) terminate() {
	s.terminating.Store(true)
}

func (s *MetaverseServer) doTerminate() {
	s.sessionManager.Terminate()
	if err := s.database.Close(); err != nil {
		mvlog.Errorf("storage close failed: %v", err)
	}
	s.terminated.Signal()
	mvlog.Infof("%s terminated gracefully", s)
}
