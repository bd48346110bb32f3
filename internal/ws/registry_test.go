package ws

import (
	"strings"
	"testing"

	"github.com/quaylabs/syncgate/internal/auth"
)

type recordingHandler struct {
	NopHandler
	text   chan string
	binary chan []byte
	closed chan struct{}
	errs   chan error
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		text:   make(chan string, 16),
		binary: make(chan []byte, 16),
		closed: make(chan struct{}, 1),
		errs:   make(chan error, 16),
	}
}

func (h *recordingHandler) OnText(_ *Session, msg string)    { h.text <- msg }
func (h *recordingHandler) OnBinary(_ *Session, data []byte) { h.binary <- data }
func (h *recordingHandler) OnDisconnected(_ *Session)        { h.closed <- struct{}{} }
func (h *recordingHandler) OnError(_ *Session, err error)    { h.errs <- err }

func TestRegistry_DuplicateName(t *testing.T) {
	r := NewRegistry()
	factory := func() Handler { return NopHandler{} }

	if err := r.Add("echo", "/ws/echo", factory); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := r.Add("echo", "/ws/echo2", factory); err == nil {
		t.Error("Add() of duplicate name: expected error")
	}
	if err := r.AddAuthenticated("echo", "/ws/echo3", factory, "admin"); err == nil {
		t.Error("AddAuthenticated() of duplicate name: expected error")
	}
}

func TestRegistry_Validation(t *testing.T) {
	r := NewRegistry()
	factory := func() Handler { return NopHandler{} }

	if err := r.Add("", "/ws/x", factory); err == nil {
		t.Error("Add() with empty name: expected error")
	}
	if err := r.Add("x", "no-slash", factory); err == nil {
		t.Error("Add() with relative prefix: expected error")
	}
	if err := r.Add("x", "/ws/x", nil); err == nil {
		t.Error("Add() with nil factory: expected error")
	}
}

func TestRegistry_Match(t *testing.T) {
	r := NewRegistry()
	factory := func() Handler { return NopHandler{} }
	if err := r.Add("echo", "/ws/echo", factory); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if g := r.Match("/ws/echo"); g == nil || g.Name() != "echo" {
		t.Error("Match() on exact prefix failed")
	}
	if g := r.Match("/ws/echo/room1"); g == nil || g.Name() != "echo" {
		t.Error("Match() on sub-path failed")
	}
	if g := r.Match("/ws/echoes"); g != nil {
		t.Error("Match() must respect segment boundaries")
	}
	if g := r.Match("/other"); g != nil {
		t.Error("Match() of unregistered path should be nil")
	}
}

func TestRegistry_UnknownGroup(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Group("ghost"); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Group(ghost) error = %v, want does-not-exist error", err)
	}
	if _, err := r.Sessions("ghost"); err == nil {
		t.Error("Sessions(ghost): expected error")
	}
}

func TestGroup_CanUse(t *testing.T) {
	r := NewRegistry()
	factory := func() Handler { return NopHandler{} }
	if err := r.Add("open", "/ws/open", factory); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := r.AddAuthenticated("admin", "/ws/admin", factory, "admin"); err != nil {
		t.Fatalf("AddAuthenticated() error = %v", err)
	}

	open, _ := r.Group("open")
	adminGroup, _ := r.Group("admin")

	if !open.CanUse(nil) {
		t.Error("anonymous caller should be admitted to open group")
	}
	if adminGroup.CanUse(nil) {
		t.Error("anonymous caller must not be admitted to admin group")
	}

	adminID := auth.NewIdentity(staticUser{id: "u1", roles: []string{"admin"}})
	userID := auth.NewIdentity(staticUser{id: "u2", roles: []string{"user"}})
	if !adminGroup.CanUse(adminID) {
		t.Error("admin caller should be admitted to admin group")
	}
	if adminGroup.CanUse(userID) {
		t.Error("caller without admin role must not be admitted")
	}
}

type staticUser struct {
	id    string
	roles []string
}

func (u staticUser) ID() string      { return u.id }
func (u staticUser) Roles() []string { return u.roles }
