package main

import (
	"bufio"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Worker handles exactly one request on one connection and closes it.
type Worker struct {
	clientConn   net.Conn
	clientReader *bufio.Reader
	server       *FileServer
	readTimeout  time.Duration
	log          zerolog.Logger
	req          *Request
	res          *Response
	started      time.Time
	onRequest    func() // called once the request line has arrived
}

type stateFunc func(*Worker) stateFunc

func NewWorker(server *FileServer, readTimeout time.Duration) *Worker {
	return &Worker{
		server:      server,
		readTimeout: readTimeout,
		log:         server.Log,
	}
}

// Start runs the connection to completion. The worker owns conn and closes
// it on every path.
func (w *Worker) Start(conn net.Conn) {
	w.clientConn = conn
	w.clientReader = bufio.NewReader(conn)
	w.started = time.Now()
	if addr := conn.RemoteAddr(); addr != nil {
		w.log = w.log.With().Str("remote", addr.String()).Logger()
	}

	for state := waitForRequest; state != nil; {
		state = state(w)
	}
}

func (w *Worker) requestReceived(req *Request) stateFunc {
	w.req = req
	w.log.Debug().Str("method", req.Method).Str("path", req.URI).Msg("request received")

	res, err := w.server.Serve(req, w.clientReader)
	if err != nil {
		return w.failed(err)
	}
	if res == nil {
		return finishWorker
	}
	w.res = res
	return sendResponse
}

// failed picks the next state for an error raised before any response was
// written.
func (w *Worker) failed(err error) stateFunc {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		w.log.Info().Msg("idle connection dropped")
		return finishWorker
	}
	if isClientGone(err) {
		w.log.Error().Err(err).Msg("connection read failed")
		return finishWorker
	}
	w.res = ErrorResponse(err)
	if w.res.Status == StatusInternalServerError {
		w.log.Error().Err(err).Msg("request failed")
	} else {
		w.log.Debug().Err(err).Int("status", w.res.Status).Msg("request rejected")
	}
	return sendResponse
}

// state funcs

func waitForRequest(w *Worker) stateFunc {
	r := NewRequestReader(w.clientReader)
	r.Start()

	var timeout <-chan time.Time
	if w.readTimeout > 0 {
		timer := time.NewTimer(w.readTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case req := <-r.RequestReceived():
		if w.onRequest != nil {
			w.onRequest()
		}
		return w.requestReceived(req)
	case err := <-r.ErrorOccurred():
		return w.failed(err)
	case <-timeout:
		w.log.Warn().Dur("timeout", w.readTimeout).Msg("no request line in time")
		return finishWorker
	}
}

func sendResponse(w *Worker) stateFunc {
	if c, ok := w.res.Body.(io.Closer); ok {
		defer c.Close()
	}

	headWritten, err := WriteResponse(w.clientConn, w.res)
	if err != nil {
		ev := w.log.Error().Err(err)
		if headWritten {
			ev = ev.Bool("truncated", true)
		}
		ev.Msg("write response failed")
	}

	ev := w.log.Info().Int("status", w.res.Status).Dur("duration", time.Since(w.started))
	if w.req != nil {
		ev = ev.Str("method", w.req.Method).Str("path", w.req.URI)
	}
	ev.Msg("served")
	return finishWorker
}

func finishWorker(w *Worker) stateFunc {
	if w.clientConn != nil {
		if err := w.clientConn.Close(); err != nil {
			w.log.Debug().Err(err).Msg("close failed")
		}
	}
	return nil
}
