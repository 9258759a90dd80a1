package config

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/bmizerany/assert"

	"github.com/metaverse/metaverse-server/engine/mvlog"
)

func init() {
	SetConfigFile("../../metaverse.ini.sample")
}

func TestLoad(t *testing.T) {
	config := Get()
	mvlog.Debugf("metaverse config: \n%s", DumpPretty(config))
	if config == nil {
		t.FailNow()
	}
	if config.Server.HTTPPort == 0 {
		t.Errorf("http port not found")
	}
	if config.Server.SocketPath == "" {
		t.Errorf("socket path not found")
	}
}

func TestReload(t *testing.T) {
	Get()
	config := Reload()
	mvlog.Debugf("metaverse config: \n%s", DumpPretty(config))
}

func TestGetServer(t *testing.T) {
	cfg := GetServer()
	assert.T(t, cfg != nil, "server config is nil")
	assert.Equal(t, "json", cfg.Serialization)
	assert.T(t, cfg.GuestAllowed, "guests should be allowed by default")
	assert.T(t, cfg.CreateWorlds, "world creation should be allowed by default")
	assert.Equal(t, 0, cfg.MaxSessions)
	assert.Equal(t, time.Duration(0), cfg.SessionStartTimeout)
}

func TestGetScene(t *testing.T) {
	cfg := GetScene()
	assert.T(t, cfg != nil, "scene config is nil")
	assert.Equal(t, float64(2000), cfg.Range)
	assert.Equal(t, float64(10), cfg.Resolution)
	assert.Equal(t, 1000, cfg.Size)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestGetStorage(t *testing.T) {
	cfg := GetStorage()
	if cfg == nil {
		t.Errorf("storage config not found")
	}
	assert.Equal(t, "memory", cfg.Type)
	fmt.Fprintf(os.Stderr, "%s\n", DumpPretty(cfg))
}

func TestGetWriteback(t *testing.T) {
	cfg := GetWriteback()
	assert.T(t, cfg != nil, "writeback config is nil")
	assert.T(t, cfg.Enabled, "writeback should be enabled by default")
	assert.Equal(t, time.Second, cfg.Delay)
}
