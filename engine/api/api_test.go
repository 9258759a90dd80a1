package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bmizerany/assert"

	"github.com/metaverse/metaverse-server/engine/config"
	"github.com/metaverse/metaverse-server/engine/core"
	"github.com/metaverse/metaverse-server/engine/db"
	"github.com/metaverse/metaverse-server/engine/obj"
)

func init() {
	config.SetConfigFile("../../metaverse.ini.sample")
}

func newTestHandler() (*Handler, *core.WorldManager) {
	wm := core.NewWorldManager(db.OpenMemoryDB())
	return New(wm), wm
}

func get(h *Handler, url string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.Register(mux)
	req := httptest.NewRequest("GET", url, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func body(w *httptest.ResponseRecorder) string {
	return strings.TrimSpace(w.Body.String())
}

func TestAvailableBlankNameFollowsGuestConfig(t *testing.T) {
	h, _ := newTestHandler()
	w := get(h, "/user/available")
	assert.Equal(t, "true", body(w))

	cfg := config.GetServer()
	cfg.GuestAllowed = false
	defer func() { cfg.GuestAllowed = true }()
	w = get(h, "/user/available")
	assert.Equal(t, "false", body(w))
}

func TestAvailableUnknownName(t *testing.T) {
	h, _ := newTestHandler()
	w := get(h, "/user/available?name=alice")
	assert.Equal(t, "true", body(w))
}

func TestAvailableTakenName(t *testing.T) {
	h, wm := newTestHandler()
	c := obj.NewClient("alice")
	wm.DB().Put(&db.Record{ID: c.ID, Kind: db.KindClient, Name: "alice"})

	w := get(h, "/user/available?name=alice")
	assert.Equal(t, "false", body(w))
}

func TestAvailableOwnNameIsNotAConflict(t *testing.T) {
	h, wm := newTestHandler()
	c := obj.NewClient("alice")
	wm.DB().Put(&db.Record{ID: c.ID, Kind: db.KindClient, Name: "alice"})

	// alice asking about her own current name
	w := get(h, "/user/available?name=alice", &http.Cookie{Name: "metaverse_name", Value: "alice"})
	assert.Equal(t, "true", body(w))
}

func TestAuthenticated(t *testing.T) {
	h, _ := newTestHandler()
	w := get(h, "/user/authenticated")
	assert.Equal(t, "false", body(w))

	w = get(h, "/user/authenticated", &http.Cookie{Name: "metaverse_name", Value: "alice"})
	assert.Equal(t, "true", body(w))
}

func TestUserName(t *testing.T) {
	h, _ := newTestHandler()
	w := get(h, "/user/name")
	assert.Equal(t, "null", body(w))

	w = get(h, "/user/name", &http.Cookie{Name: "metaverse_name", Value: "alice"})
	assert.Equal(t, `"alice"`, body(w))
}

func TestUserObject(t *testing.T) {
	h, wm := newTestHandler()
	c := obj.NewClient("alice")
	wm.DB().Put(&db.Record{ID: c.ID, Kind: db.KindClient, Name: "alice"})

	w := get(h, "/user/object", &http.Cookie{Name: "metaverse_name", Value: "alice"})
	assert.T(t, strings.Contains(body(w), `"alice"`), "object payload should carry the name")

	w = get(h, "/user/object")
	assert.Equal(t, "null", body(w))
}

func TestLoginSetsCookie(t *testing.T) {
	h, _ := newTestHandler()
	w := get(h, "/user/login?name=alice")
	assert.Equal(t, 200, w.Code)

	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "metaverse_name" && c.Value == "alice" {
			found = true
		}
	}
	assert.T(t, found, "login should set the identity cookie")
}

func TestLoginTakenNameConflicts(t *testing.T) {
	h, wm := newTestHandler()
	c := obj.NewClient("bob")
	wm.DB().Put(&db.Record{ID: c.ID, Kind: db.KindClient, Name: "bob"})

	// an anonymous caller must not be able to claim bob's identity
	w := get(h, "/user/login?name=bob")
	assert.Equal(t, http.StatusConflict, w.Code)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "metaverse_name" && ck.Value != "" {
			t.Fatalf("conflicting login handed out identity cookie %q", ck.Value)
		}
	}

	// bob himself may re-login under his own name
	w = get(h, "/user/login?name=bob", &http.Cookie{Name: "metaverse_name", Value: "bob"})
	assert.Equal(t, 200, w.Code)
}

func TestWorldEndpoints(t *testing.T) {
	h, wm := newTestHandler()
	c := obj.NewClient("alice")
	c.SetSessionStatus(obj.SessionActive)
	wm.Enter(c, "W1")

	w := get(h, "/worlds/list")
	assert.T(t, strings.Contains(body(w), `"W1"`), "world list should contain W1")

	w = get(h, "/worlds/users")
	s := body(w)
	assert.T(t, strings.Contains(s, `"W1"`), "status should name the world")
	assert.T(t, strings.Contains(s, `"activeUsers":1`), "status should count active users")
}
