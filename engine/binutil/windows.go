// +build windows

package binutil

import "github.com/metaverse/metaverse-server/engine/mvlog"

type nopRelease int

func (_ nopRelease) Release() {

}

func Daemonize() nopRelease {
	// Windows can not daemonize
	mvlog.Warnf("can not run in daemon mode in windows, -d ignored")
	return nopRelease(0)
}
