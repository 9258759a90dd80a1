package binutil

import (
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"

	"golang.org/x/net/websocket"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/metaverse/metaverse-server/engine/mvlog"
)

// SetupHTTPServer starts the HTTP server carrying the websocket
// endpoint, the REST routes and go tool pprof
func SetupHTTPServer(ip string, port int, wsPath string, wsHandler func(ws *websocket.Conn), register func(mux *http.ServeMux)) {
	if port == 0 {
		mvlog.Infof("http server not enabled")
		return
	}

	httpHost := fmt.Sprintf("%s:%d", ip, port)
	mvlog.Infof("http server listening on %s", httpHost)
	mvlog.Infof("pprof http://%s/debug/pprof/ ... available commands: ", httpHost)
	mvlog.Infof("    go tool pprof http://%s/debug/pprof/heap", httpHost)
	mvlog.Infof("    go tool pprof http://%s/debug/pprof/profile", httpHost)

	if wsHandler != nil {
		http.Handle(wsPath, websocket.Handler(wsHandler))
		mvlog.Infof("websocket endpoint on ws://%s%s", httpHost, wsPath)
	}
	if register != nil {
		register(http.DefaultServeMux)
	}

	go http.ListenAndServe(httpHost, nil)
}

// SetupMVLog sets up the log system of a server binary
func SetupMVLog(component string, logLevel string, logFile string, logStderr bool) {
	mvlog.SetSource(component)
	mvlog.Infof("Set log level to %s", logLevel)
	mvlog.SetLevel(mvlog.StringToLevel(logLevel))

	outputWriters := make([]io.Writer, 0, 2)
	if logFile != "" {
		var logFileWriter io.Writer
		logFileWriter = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 100,
			MaxAge:     30, //days
			Compress:   true,
		}

		logFileWriter.(*lumberjack.Logger).Rotate() // rotate immediately
		outputWriters = append(outputWriters, logFileWriter)
	}

	if logStderr {
		outputWriters = append(outputWriters, os.Stderr)
	}

	if len(outputWriters) == 1 {
		mvlog.SetOutput(outputWriters[0])
	} else {
		mvlog.SetOutput(io.MultiWriter(outputWriters...))
	}
}
