package chatws

import (
	"strconv"
	"sync"
	"testing"

	"github.com/coder/websocket"
)

func TestSessionManager_Register(t *testing.T) {
	sm := NewSessionManager()
	conn := &websocket.Conn{}

	sm.Register("alice", "tab-1", conn)

	if active := sm.GetActive("alice", "tab-1"); active != conn {
		t.Errorf("Expected connection %v, got %v", conn, active)
	}
	if got := sm.Count(); got != 1 {
		t.Errorf("Expected 1 connection, got %d", got)
	}
}

func TestSessionManager_Unregister(t *testing.T) {
	sm := NewSessionManager()
	conn := &websocket.Conn{}

	sm.Register("alice", "tab-1", conn)
	sm.Unregister("alice", "tab-1", conn)

	if active := sm.GetActive("alice", "tab-1"); active != nil {
		t.Errorf("Expected nil connection, got %v", active)
	}
	if got := sm.Count(); got != 0 {
		t.Errorf("Expected 0 connections, got %d", got)
	}
}

func TestSessionManager_UnregisterStale(t *testing.T) {
	sm := NewSessionManager()
	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}

	sm.Register("alice", "tab-1", conn1)
	// Another tab should remain active when stale unregister happens.
	sm.Register("alice", "tab-2", conn2)
	sm.Unregister("alice", "tab-1", conn1)

	if active := sm.GetActive("alice", "tab-2"); active != conn2 {
		t.Errorf("Expected connection %v, got %v", conn2, active)
	}
}

func TestSessionManager_ConcurrentAccess(t *testing.T) {
	sm := NewSessionManager()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			sm.Register("alice", "tab-"+strconv.Itoa(i), &websocket.Conn{})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			sm.GetActive("alice", "tab-"+strconv.Itoa(i))
		}
	}()
	wg.Wait()

	if got := sm.Count(); got != 1000 {
		t.Errorf("Expected 1000 connections, got %d", got)
	}
}
