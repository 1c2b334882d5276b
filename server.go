package main

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"
)

// Server accepts connections and hands each one to its own Worker. Workers
// share nothing mutable, so filesystem access from concurrent requests is
// not serialized.
type Server struct {
	Files       *FileServer
	ReadTimeout time.Duration

	wg       sync.WaitGroup
	mu       sync.Mutex
	idle     map[net.Conn]struct{} // connections still waiting for a request line
	stopping bool
}

// Serve runs the accept loop on ln until ctx is cancelled, then closes ln,
// drops connections that have not sent a request line and waits for the
// remaining workers.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	log := s.Files.Log
	log.Info().Str("addr", ln.Addr().String()).Str("dir", string(s.Files.Root)).Msg("listening")

	var tempDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info().Msg("listener closed, waiting for workers")
				s.dropIdle()
				s.wg.Wait()
				return ctx.Err()
			}
			// Same backoff as net/http so a persistent error such as EMFILE
			// does not spin.
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if tempDelay > time.Second {
				tempDelay = time.Second
			}
			log.Error().Err(err).Dur("retry_in", tempDelay).Msg("accept error")
			select {
			case <-time.After(tempDelay):
			case <-ctx.Done():
			}
			continue
		}
		tempDelay = 0
		s.wg.Add(1)
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	s.setIdle(conn, true)
	defer s.setIdle(conn, false)

	worker := NewWorker(s.Files, s.ReadTimeout)
	worker.onRequest = func() { s.setIdle(conn, false) }
	worker.Start(conn) // worker takes the ownership of |conn|
}

func (s *Server) setIdle(conn net.Conn, idle bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !idle {
		delete(s.idle, conn)
		return
	}
	if s.stopping {
		conn.SetReadDeadline(time.Now())
		return
	}
	if s.idle == nil {
		s.idle = make(map[net.Conn]struct{})
	}
	s.idle[conn] = struct{}{}
}

// dropIdle unblocks every worker still waiting for a request line. Workers
// already handling a request run to completion.
func (s *Server) dropIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopping = true
	for conn := range s.idle {
		conn.SetReadDeadline(time.Now())
	}
}
