package main

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func dialExchange(addr, raw string) (string, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := io.WriteString(conn, raw); err != nil {
		return "", err
	}
	out, err := io.ReadAll(conn)
	return string(out), err
}

func roundTrip(t *testing.T, addr, raw string) string {
	t.Helper()
	out, err := dialExchange(addr, raw)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestServerServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := &Server{Files: newTestFileServer(t)}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()

	addr := ln.Addr().String()
	ExpectEqual(t, "HTTP/1.1 200 OK\r\n\r\n", roundTrip(t, addr, "PUT /notes.txt HTTP/1.1\r\nremember the milk\r\n\r\n"))
	ExpectEqual(t, "HTTP/1.1 200 OK\r\n\r\n", roundTrip(t, addr, "POST /notes.txt HTTP/1.1\r\nand the bread\r\n\r\n"))

	body := "remember the milk\nand the bread\n"
	expect := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 32\r\n\r\n" + body
	ExpectEqual(t, expect, roundTrip(t, addr, "GET /notes.txt HTTP/1.1\r\nHost: localhost\r\n\r\n"))

	ExpectEqual(t, "HTTP/1.1 200 OK\r\n\r\n", roundTrip(t, addr, "DELETE /notes.txt HTTP/1.1\r\n\r\n"))
	ExpectEqual(t, "HTTP/1.1 404 Not Found\r\n\r\n", roundTrip(t, addr, "GET /notes.txt HTTP/1.1\r\n\r\n"))

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
	if _, err := net.Dial("tcp", addr); err == nil {
		t.Error("listener still accepting after shutdown")
	}
}

func TestServerConcurrentConnections(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	fsrv := newTestFileServer(t)
	writeFile(t, fsrv, "/shared.txt", "same\n")
	srv := &Server{Files: fsrv}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx, ln)

	// A client that never sends its request line must not hold up others.
	idle, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer idle.Close()

	results := make(chan string, 8)
	for i := 0; i < cap(results); i++ {
		go func() {
			out, err := dialExchange(ln.Addr().String(), "GET /shared.txt HTTP/1.1\r\n\r\n")
			if err != nil {
				out = err.Error()
			}
			results <- out
		}()
	}
	expect := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 5\r\n\r\nsame\n"
	for i := 0; i < cap(results); i++ {
		ExpectEqual(t, expect, <-results)
	}
}

func TestServerShutdownDropsIdleConnections(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := &Server{Files: newTestFileServer(t)}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()

	idle, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer idle.Close()
	// Make sure the idle connection has been accepted before stopping.
	ExpectEqual(t, "HTTP/1.1 404 Not Found\r\n\r\n", roundTrip(t, ln.Addr().String(), "GET /none HTTP/1.1\r\n\r\n"))

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve still blocked by a connection that never sent a request")
	}

	idle.SetReadDeadline(time.Now().Add(5 * time.Second))
	out, _ := io.ReadAll(idle)
	ExpectEqual(t, "", string(out))
}

type flakyListener struct {
	failures int
	calls    int
}

func (l *flakyListener) Accept() (net.Conn, error) {
	l.calls++
	if l.calls <= l.failures {
		return nil, errors.New("accept: too many open files")
	}
	return nil, net.ErrClosed
}

func (l *flakyListener) Close() error   { return nil }
func (l *flakyListener) Addr() net.Addr { return MockAddr{"(flaky)"} }

func TestServerAcceptErrorBackoff(t *testing.T) {
	ln := &flakyListener{failures: 3}
	srv := &Server{Files: newTestFileServer(t)}

	start := time.Now()
	if err := srv.Serve(context.Background(), ln); err != nil {
		t.Fatalf("Serve returned %v", err)
	}
	// 5ms + 10ms + 20ms between the failing calls.
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Errorf("accept retried without backing off, took %v", elapsed)
	}
	if ln.calls != 4 {
		t.Errorf("Accept called %d times, want 4", ln.calls)
	}
}
