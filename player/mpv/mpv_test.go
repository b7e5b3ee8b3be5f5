package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"
)

func TestDialObservesPropertiesAndUpdatesStateOnEvent(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "mpvsocket")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	serverConnCh := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			serverConnCh <- c
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := Dial(ctx, sockPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer b.Close()

	serverConn := <-serverConnCh
	defer serverConn.Close()

	scanner := bufio.NewScanner(serverConn)
	for i := 0; i < len(observedProperties); i++ {
		if !scanner.Scan() {
			t.Fatalf("expected %d observe_property commands, scanner ended early", len(observedProperties))
		}
	}

	timePos := `{"event":"property-change","id":1,"data":42.5}` + "\n"
	if _, err := serverConn.Write([]byte(timePos)); err != nil {
		t.Fatalf("write event: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st := b.GetState()
		if st.Position != nil && *st.Position == 42.5 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for state update from property-change event")
}

func TestSetPausedSendsRequestAndAwaitsResponse(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "mpvsocket")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	serverConnCh := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			serverConnCh <- c
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := Dial(ctx, sockPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer b.Close()

	serverConn := <-serverConnCh
	defer serverConn.Close()

	scanner := bufio.NewScanner(serverConn)
	go func() {
		for i := 0; i < len(observedProperties); i++ {
			scanner.Scan()
		}
		if scanner.Scan() {
			var cmd command
			json.Unmarshal(scanner.Bytes(), &cmd)
			resp := response{RequestID: &cmd.RequestID, Error: "success"}
			data, _ := json.Marshal(resp)
			serverConn.Write(append(data, '\n'))
		}
	}()

	if err := b.SetPaused(ctx, true); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}
}
