// +build !windows

package binutil

import (
	"os"

	"github.com/sevlyar/go-daemon"

	"github.com/metaverse/metaverse-server/engine/mvlog"
)

func Daemonize() *daemon.Context {
	context := new(daemon.Context)
	child, err := context.Reborn()

	if err != nil {
		// daemonize failed
		mvlog.Panicf("daemonize failed: %v", err)
	}

	if child != nil {
		mvlog.Infof("run in daemon mode")
		os.Exit(0)
		return nil
	} else {
		return context
	}
}
