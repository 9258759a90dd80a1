// Package api is the REST surface of the server: user identity and
// world listings. It rides the same HTTP listener as the websocket
// endpoint.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/metaverse/metaverse-server/engine/config"
	"github.com/metaverse/metaverse-server/engine/core"
	"github.com/metaverse/metaverse-server/engine/db"
	"github.com/metaverse/metaverse-server/engine/mvlog"
)

// Handler serves the REST endpoints
type Handler struct {
	wm *core.WorldManager
}

// New creates the REST handler over the orchestration hub
func New(wm *core.WorldManager) *Handler {
	return &Handler{wm: wm}
}

// Register binds all REST routes on the mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/user/available", h.handleAvailable)
	mux.HandleFunc("/user/authenticated", h.handleAuthenticated)
	mux.HandleFunc("/user/name", h.handleName)
	mux.HandleFunc("/user/object", h.handleObject)
	mux.HandleFunc("/user/login", h.handleLogin)
	mux.HandleFunc("/user/logout", h.handleLogout)
	mux.HandleFunc("/worlds/list", h.handleWorldList)
	mux.HandleFunc("/worlds/users", h.handleWorldUsers)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		mvlog.Errorf("api response encode failed: %v", err)
	}
}

// NameAvailable decides whether a client may log in with the name: a
// blank name is a guest login, a known name is only valid when it is
// the caller's own current name
func (h *Handler) NameAvailable(name string, currentName string) (bool, error) {
	if name == "" {
		return config.GetServer().GuestAllowed, nil
	}
	rec, err := h.wm.DB().GetClientByName(name)
	if db.IsNotFound(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return rec.Name == currentName, nil
}

func (h *Handler) handleAvailable(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	currentName := core.LoginName(r)
	valid, err := h.NameAvailable(name, currentName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	mvlog.Debugf("Client name %s available for %s: %v", name, currentName, valid)
	writeJSON(w, valid)
}

func (h *Handler) handleAuthenticated(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, core.LoginName(r) != "")
}

func (h *Handler) handleName(w http.ResponseWriter, r *http.Request) {
	name := core.LoginName(r)
	if name == "" {
		writeJSON(w, nil)
		return
	}
	writeJSON(w, name)
}

func (h *Handler) handleObject(w http.ResponseWriter, r *http.Request) {
	name := core.LoginName(r)
	if name == "" {
		writeJSON(w, nil)
		return
	}
	rec, err := h.wm.DB().GetClientByName(name)
	if db.IsNotFound(err) {
		writeJSON(w, nil)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rec)
}

// handleLogin binds a name to the HTTP session when it is available,
// so the subsequent websocket connection carries the identity
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	valid, err := h.NameAvailable(name, core.LoginName(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !valid {
		http.Error(w, "name not available", http.StatusConflict)
		return
	}
	if name != "" {
		core.SetLoginName(w, name)
	}
	writeJSON(w, valid)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	core.ClearLoginName(w)
	writeJSON(w, true)
}

func (h *Handler) handleWorldList(w http.ResponseWriter, r *http.Request) {
	worlds, err := h.wm.DB().ListWorlds()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, worlds)
}

func (h *Handler) handleWorldUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.wm.WorldStatuses())
}
