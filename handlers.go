package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// FileServer holds what every connection shares: the base directory and the
// MIME table. Neither changes after startup.
type FileServer struct {
	Root Root
	MIME MIMETable
	Log  zerolog.Logger
}

// handlerFunc produces the response for one request. A nil response with a
// nil error means nothing is sent.
type handlerFunc func(fsrv *FileServer, req *Request, body *bufio.Reader) (*Response, error)

var methodHandlers = map[string]handlerFunc{
	"GET":     (*FileServer).handleGet,
	"HEAD":    (*FileServer).handleHead,
	"POST":    (*FileServer).handlePost,
	"PUT":     (*FileServer).handlePut,
	"DELETE":  (*FileServer).handleDelete,
	"OPTIONS": (*FileServer).handleOptions,
}

// Serve dispatches req by method. body is the connection's reader positioned
// just after the request line.
func (s *FileServer) Serve(req *Request, body *bufio.Reader) (*Response, error) {
	h, ok := methodHandlers[req.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, req.Method)
	}
	return h(s, req, body)
}

func (s *FileServer) fileHead(req *Request) (*Response, string, error) {
	p := s.Root.Resolve(req.URI)
	fi, err := regularFile(p)
	if err != nil {
		return nil, "", err
	}
	res := NewResponse(StatusOK)
	res.Headers.Set("Content-Type", s.MIME.ContentType(p))
	res.Headers.Set("Content-Length", strconv.FormatInt(fi.Size(), 10))
	return res, p, nil
}

func (s *FileServer) handleGet(req *Request, _ *bufio.Reader) (*Response, error) {
	res, p, err := s.fileHead(req)
	if err != nil {
		return nil, err
	}
	// Opened before anything is sent so a read failure is still reportable.
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrServerIO, p, err)
	}
	res.Body = f
	return res, nil
}

func (s *FileServer) handleHead(req *Request, _ *bufio.Reader) (*Response, error) {
	res, _, err := s.fileHead(req)
	return res, err
}

func (s *FileServer) handlePost(req *Request, body *bufio.Reader) (*Response, error) {
	if !strings.HasSuffix(req.URI, ".txt") {
		// Unlike PUT, a POST to a non-text path gets no response at all.
		s.Log.Warn().Str("path", req.URI).Msg("POST to non-text path ignored")
		return nil, nil
	}
	return s.writeText(req, body, os.O_APPEND)
}

func (s *FileServer) handlePut(req *Request, body *bufio.Reader) (*Response, error) {
	if !strings.HasSuffix(req.URI, ".txt") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, req.URI)
	}
	return s.writeText(req, body, os.O_TRUNC)
}

// writeText reads the line body and stores it at the mapped path, appending
// or truncating according to mode.
func (s *FileServer) writeText(req *Request, body *bufio.Reader, mode int) (*Response, error) {
	text, err := readTextBody(body)
	if err != nil {
		return nil, err
	}

	p := s.Root.Resolve(req.URI)
	if err := createIfMissing(p); err != nil {
		s.Log.Warn().Err(err).Str("file", p).Msg("create failed")
	}
	if _, err := regularFile(p); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(p, os.O_WRONLY|mode, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrServerIO, p, err)
	}
	if _, err := f.Write(text); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: write %s: %v", ErrServerIO, p, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("%w: close %s: %v", ErrServerIO, p, err)
	}
	return NewResponse(StatusOK), nil
}

func (s *FileServer) handleDelete(req *Request, _ *bufio.Reader) (*Response, error) {
	p := s.Root.Resolve(req.URI)
	if _, err := regularFile(p); err != nil {
		return nil, err
	}
	if err := os.Remove(p); err != nil {
		return nil, fmt.Errorf("%w: remove %s: %v", ErrServerIO, p, err)
	}
	return NewResponse(StatusOK), nil
}

func (s *FileServer) handleOptions(_ *Request, _ *bufio.Reader) (*Response, error) {
	res := NewResponse(StatusOK)
	res.Headers.Set("Allow", allowedMethods)
	return res, nil
}

// isClientGone reports whether err came from reading the connection rather
// than from the filesystem or the request itself.
func isClientGone(err error) bool {
	for _, known := range []error{
		ErrMalformedRequest, ErrUnsupportedVersion, ErrUnsupportedMethod,
		ErrResourceNotFound, ErrUnsupportedMediaType, ErrServerIO,
	} {
		if errors.Is(err, known) {
			return false
		}
	}
	return true
}
