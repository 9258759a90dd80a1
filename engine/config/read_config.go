package config

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/go-ini/ini"
	"github.com/pkg/errors"

	"github.com/metaverse/metaverse-server/engine/mvlog"
)

const (
	_DEFAULT_CONFIG_FILE = "metaverse.ini"
	_DEFAULT_LISTEN_IP   = "0.0.0.0"
	_DEFAULT_HTTP_IP     = "127.0.0.1"
	_DEFAULT_LOG_LEVEL   = "debug"
	_DEFAULT_STORAGE_DB  = "metaverse"
)

var (
	configFilePath  = _DEFAULT_CONFIG_FILE
	metaverseConfig *MetaverseConfig
	configLock      sync.Mutex
)

// ServerConfig defines fields of the [server] section.
//
// Defaults: guest users are allowed, new worlds are created on Enter,
// number of concurrent sessions is unlimited (max_sessions=0), and session
// start fails immediately if max_sessions is reached
// (session_start_timeout=0).
type ServerConfig struct {
	Ip                  string
	Port                int
	HTTPIp              string
	HTTPPort            int
	SocketPath          string
	GuestAllowed        bool
	CreateWorlds        bool
	MaxSessions         int
	SessionStartTimeout time.Duration
	CompressConnection  bool
	Serialization       string
	LogFile             string
	LogStderr           bool
	LogLevel            string
	GoMaxProcs          int
}

// SceneConfig defines fields of the [scene] section, the default scene
// parameters of every client; clients can carry per-instance overrides.
type SceneConfig struct {
	Range      float64
	Resolution float64
	Size       int
	Timeout    time.Duration
}

// StorageConfig defines fields of the [storage] section
type StorageConfig struct {
	Type string // memory, redis, mongodb
	Url  string // connection URL (redis, mongodb)
	DB   string // database name (mongodb) or index (redis)
}

// WritebackConfig defines fields of the [writeback] section
type WritebackConfig struct {
	Enabled bool
	Delay   time.Duration
}

// MetaverseConfig defines the total config file structure
type MetaverseConfig struct {
	Server    ServerConfig
	Scene     SceneConfig
	Storage   StorageConfig
	Writeback WritebackConfig
}

// SetConfigFile sets the config file path (metaverse.ini by default)
func SetConfigFile(f string) {
	configFilePath = f
}

// Get returns the total metaverse config
func Get() *MetaverseConfig {
	configLock.Lock()
	defer configLock.Unlock() // protect concurrent access from sessions
	if metaverseConfig == nil {
		metaverseConfig = readMetaverseConfig()
	}
	return metaverseConfig
}

// Reload forces the server to reload the whole config
func Reload() *MetaverseConfig {
	configLock.Lock()
	metaverseConfig = nil
	configLock.Unlock()

	return Get()
}

// GetServer returns the server config
func GetServer() *ServerConfig {
	return &Get().Server
}

// GetScene returns the default scene parameters
func GetScene() *SceneConfig {
	return &Get().Scene
}

// GetStorage returns the storage config
func GetStorage() *StorageConfig {
	return &Get().Storage
}

// GetWriteback returns the writeback config
func GetWriteback() *WritebackConfig {
	return &Get().Writeback
}

// DumpPretty format config to string in pretty format
func DumpPretty(cfg interface{}) string {
	s, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err.Error()
	}
	return string(s)
}

func readMetaverseConfig() *MetaverseConfig {
	config := MetaverseConfig{}
	mvlog.Infof("Using config file: %s", configFilePath)
	iniFile, err := ini.Load(configFilePath)
	checkConfigError(err, "")

	readServerConfig(iniFile.Section("server"), &config.Server)
	readSceneConfig(iniFile.Section("scene"), &config.Scene)
	readStorageConfig(iniFile.Section("storage"), &config.Storage)
	readWritebackConfig(iniFile.Section("writeback"), &config.Writeback)

	for _, sec := range iniFile.Sections() {
		secName := strings.ToLower(sec.Name())
		if secName == "default" || secName == "server" || secName == "scene" || secName == "storage" || secName == "writeback" {
			continue
		}
		mvlog.Errorf("unknown section: %s", secName)
	}

	return &config
}

func readServerConfig(sec *ini.Section, sc *ServerConfig) {
	sc.Ip = _DEFAULT_LISTEN_IP
	sc.Port = 0 // raw socket listeners not enabled by default
	sc.HTTPIp = _DEFAULT_HTTP_IP
	sc.HTTPPort = 8000
	sc.SocketPath = "/metaverse"
	sc.GuestAllowed = true
	sc.CreateWorlds = true
	sc.MaxSessions = 0         // unlimited
	sc.SessionStartTimeout = 0 // fail immediately
	sc.Serialization = "json"
	sc.LogFile = "metaverse.log"
	sc.LogStderr = true
	sc.LogLevel = _DEFAULT_LOG_LEVEL
	sc.GoMaxProcs = 0

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "ip" {
			sc.Ip = key.MustString(sc.Ip)
		} else if name == "port" {
			sc.Port = key.MustInt(sc.Port)
		} else if name == "http_ip" {
			sc.HTTPIp = key.MustString(sc.HTTPIp)
		} else if name == "http_port" {
			sc.HTTPPort = key.MustInt(sc.HTTPPort)
		} else if name == "socket_path" {
			sc.SocketPath = key.MustString(sc.SocketPath)
		} else if name == "guest_allowed" {
			sc.GuestAllowed = key.MustBool(sc.GuestAllowed)
		} else if name == "create_worlds" {
			sc.CreateWorlds = key.MustBool(sc.CreateWorlds)
		} else if name == "max_sessions" {
			sc.MaxSessions = key.MustInt(sc.MaxSessions)
		} else if name == "session_start_timeout" {
			sc.SessionStartTimeout = time.Millisecond * time.Duration(key.MustInt(0))
		} else if name == "compress_connection" {
			sc.CompressConnection = key.MustBool(sc.CompressConnection)
		} else if name == "serialization" {
			sc.Serialization = key.MustString(sc.Serialization)
		} else if name == "log_file" {
			sc.LogFile = key.MustString(sc.LogFile)
		} else if name == "log_stderr" {
			sc.LogStderr = key.MustBool(sc.LogStderr)
		} else if name == "log_level" {
			sc.LogLevel = key.MustString(sc.LogLevel)
		} else if name == "gomaxprocs" {
			sc.GoMaxProcs = key.MustInt(sc.GoMaxProcs)
		} else {
			mvlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}

	if sc.Serialization != "json" && sc.Serialization != "msgpack" {
		mvlog.Fatalf("unknown serialization format: %s", sc.Serialization)
	}
}

func readSceneConfig(sec *ini.Section, sc *SceneConfig) {
	sc.Range = 2000
	sc.Resolution = 10
	sc.Size = 1000
	sc.Timeout = time.Millisecond * 30000

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "range" {
			sc.Range = key.MustFloat64(sc.Range)
		} else if name == "resolution" {
			sc.Resolution = key.MustFloat64(sc.Resolution)
		} else if name == "size" {
			sc.Size = key.MustInt(sc.Size)
		} else if name == "timeout" {
			sc.Timeout = time.Millisecond * time.Duration(key.MustInt(30000))
		} else {
			mvlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func readStorageConfig(sec *ini.Section, sc *StorageConfig) {
	sc.Type = "memory"
	sc.Url = ""
	sc.DB = _DEFAULT_STORAGE_DB

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "type" {
			sc.Type = key.MustString(sc.Type)
		} else if name == "url" {
			sc.Url = key.MustString(sc.Url)
		} else if name == "db" {
			sc.DB = key.MustString(sc.DB)
		} else {
			mvlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}

	if sc.Type != "memory" && sc.Url == "" {
		mvlog.Fatalf("storage type %s requires url", sc.Type)
	}
}

func readWritebackConfig(sec *ini.Section, wc *WritebackConfig) {
	wc.Enabled = true
	wc.Delay = time.Millisecond * 1000

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "enabled" {
			wc.Enabled = key.MustBool(wc.Enabled)
		} else if name == "delay" {
			wc.Delay = time.Millisecond * time.Duration(key.MustInt(1000))
		} else {
			mvlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func checkConfigError(err error, msg string) {
	if err != nil {
		if msg == "" {
			msg = err.Error()
		}
		mvlog.Panic(errors.Wrap(err, msg))
	}
}
