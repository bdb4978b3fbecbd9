package ipc

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/austinkregel/local-media/bgmd/internal/bgm"
	"github.com/austinkregel/local-media/bgmd/internal/engine"
	"github.com/rs/zerolog"
)

func startServer(t *testing.T) (*Client, *bgm.System) {
	t.Helper()

	sys := bgm.New(engine.NewMemory(), zerolog.Nop())
	if !sys.Init(bgm.InitParams{}) {
		t.Fatalf("Init failed: %s", sys.Error())
	}

	socket := filepath.Join(t.TempDir(), "bgmd.sock")
	srv := NewServer(socket, sys, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-done:
		cancel()
		t.Fatalf("Server failed to start: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("Timed out waiting for server")
	}

	client, err := Dial(context.Background(), socket)
	if err != nil {
		cancel()
		t.Fatalf("Dial failed: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		cancel()
		<-done
	})
	return client, sys
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestServerPing(t *testing.T) {
	client, _ := startServer(t)

	if err := client.Ping(testContext(t)); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestServerCall(t *testing.T) {
	client, sys := startServer(t)
	ctx := testContext(t)

	resp, err := client.Call(ctx, "LoadModule", "intro.xm", 0)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	id, ok := resp.Result.(float64)
	if !ok || id == 0 {
		t.Fatalf("Expected a song id, got %v", resp.Result)
	}
	if resp.Failed || resp.LastError != "" {
		t.Errorf("Expected a clean call, got %+v", resp)
	}

	resp, err = client.Call(ctx, "IsLoadedBySourceName", "intro.xm")
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if resp.Result != true {
		t.Errorf("Expected intro.xm to be loaded, got %v", resp.Result)
	}

	songs := sys.ListSongs()
	if len(songs) != 2 {
		t.Errorf("Expected quick play plus one song, got %d", len(songs))
	}
}

func TestServerCallReportsLastError(t *testing.T) {
	client, _ := startServer(t)

	resp, err := client.Call(testContext(t), "Load", "notes.txt", 0, 0)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if resp.Result != float64(0) {
		t.Errorf("Expected id 0, got %v", resp.Result)
	}
	if !resp.Failed {
		t.Error("Expected the call to be marked failed")
	}
	if resp.LastError != "Failed to load song: Unknown file extension." {
		t.Errorf("Unexpected lastError %q", resp.LastError)
	}
}

func TestServerCallErrors(t *testing.T) {
	client, _ := startServer(t)
	ctx := testContext(t)

	tests := []struct {
		name     string
		fn       string
		args     []any
		expected string
	}{
		{"unknown function", "Rewind", nil, "unknown function: Rewind"},
		{"wrong arity", "PlayById", []any{1}, "bad call"},
		{"wrong type", "GetAttrById", []any{1, []int{1}}, "bad call"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Call(ctx, tt.fn, tt.args...)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.expected) {
				t.Errorf("Expected %q in %q", tt.expected, err.Error())
			}
		})
	}
}

func TestServerSongs(t *testing.T) {
	client, _ := startServer(t)
	ctx := testContext(t)

	if _, err := client.Call(ctx, "LoadFileStream", "theme.ogg", 0); err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	songs, err := client.Songs(ctx)
	if err != nil {
		t.Fatalf("Songs failed: %v", err)
	}
	if len(songs) != 2 {
		t.Fatalf("Expected 2 songs, got %d", len(songs))
	}
	if !songs[0].QuickPlay || songs[0].Loaded {
		t.Errorf("Expected an empty quick play slot first, got %+v", songs[0])
	}
	if songs[1].Source != "theme.ogg" || songs[1].Type != "stream" {
		t.Errorf("Unexpected song %+v", songs[1])
	}
}

func TestServerFuncs(t *testing.T) {
	client, _ := startServer(t)

	funcs, err := client.Funcs(testContext(t))
	if err != nil {
		t.Fatalf("Funcs failed: %v", err)
	}
	if len(funcs) != len(bgm.Funcs()) {
		t.Errorf("Expected %d funcs, got %d", len(bgm.Funcs()), len(funcs))
	}
	for _, f := range funcs {
		if f.Name == "SetAttrById" && strings.Join(f.Args, ",") != "number,string,string" {
			t.Errorf("Unexpected SetAttrById args %v", f.Args)
		}
	}
}

func TestServerInvalidRequest(t *testing.T) {
	client, _ := startServer(t)

	if _, err := client.conn.Write([]byte("garbage\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	line, err := client.reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	resp, err := DecodeResponse(line)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if resp.Success || resp.Error != "invalid request format" {
		t.Errorf("Unexpected response %+v", resp)
	}

	// The connection stays usable
	if err := client.Ping(testContext(t)); err != nil {
		t.Errorf("Ping after bad request failed: %v", err)
	}
}

func TestServerUnknownCommand(t *testing.T) {
	client, _ := startServer(t)

	resp, err := client.Do(testContext(t), &Request{ID: "abc", Cmd: "rewind"})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if resp.Success || resp.Error != "unknown command" {
		t.Errorf("Unexpected response %+v", resp)
	}
	if resp.ID != "abc" {
		t.Errorf("Expected echoed id, got %q", resp.ID)
	}
}

func TestDialMissingSocket(t *testing.T) {
	_, err := Dial(testContext(t), filepath.Join(t.TempDir(), "missing.sock"))
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Errorf("Expected a dial error, got %v", err)
	}
}
