package main

import (
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/metaverse/metaverse-server/engine/binutil"
	"github.com/metaverse/metaverse-server/engine/config"
	"github.com/metaverse/metaverse-server/engine/mvlog"
)

var (
	args struct {
		configFile      string
		logLevel        string
		runInDaemonMode bool
	}
	server     *MetaverseServer
	signalChan = make(chan os.Signal, 1)
)

func parseArgs() {
	flag.StringVar(&args.configFile, "configfile", "", "set config file path")
	flag.StringVar(&args.logLevel, "log", "", "set log level, will override log level in config")
	flag.BoolVar(&args.runInDaemonMode, "d", false, "run in daemon mode")
	flag.Parse()
}

func setupSignals() {
	mvlog.Infof("Setup signals ...")
	signal.Ignore(syscall.Signal(10), syscall.Signal(12), syscall.SIGPIPE, syscall.SIGHUP)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for {
			sig := <-signalChan
			if sig == syscall.SIGINT || sig == syscall.SIGTERM {
				mvlog.Infof("Terminating server ...")
				server.terminate()
				server.terminated.Wait()
				os.Exit(0)
			} else {
				mvlog.Errorf("unexpected signal: %s", sig)
			}
		}
	}()
}

func main() {
	rand.Seed(time.Now().UnixNano())
	parseArgs()

	if args.runInDaemonMode {
		daemoncontext := binutil.Daemonize()
		defer daemoncontext.Release()
	}

	if args.configFile != "" {
		config.SetConfigFile(args.configFile)
	}

	cfg := config.GetServer()
	if cfg.GoMaxProcs > 0 {
		mvlog.Infof("SET GOMAXPROCS = %d", cfg.GoMaxProcs)
		runtime.GOMAXPROCS(cfg.GoMaxProcs)
	}
	logLevel := args.logLevel
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	binutil.SetupMVLog("server", logLevel, cfg.LogFile, cfg.LogStderr)

	server = newMetaverseServer()
	setupSignals()
	server.run()
}
