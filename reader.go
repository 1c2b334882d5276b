package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

type baseReader struct {
	r     *bufio.Reader
	errCh chan error
}

func (r *baseReader) ErrorOccurred() <-chan error {
	return r.errCh
}

// similar to readLineSlice() in net/textproto/reader.go
func (r *baseReader) readLine() (string, error) {
	var line []byte
	for {
		l, more, err := r.r.ReadLine()
		if err != nil {
			return "", err
		}
		if line == nil && !more {
			return string(l), nil
		}
		line = append(line, l...)
		if !more {
			break
		}
	}
	return string(line), nil
}

// RequestReader reads the HTTP/1.1 request line. Header lines are left in
// the stream.
type RequestReader struct {
	baseReader
	req   *Request
	reqCh chan *Request
}

func NewRequestReader(r io.Reader) *RequestReader {
	var br *bufio.Reader
	if casted, ok := r.(*bufio.Reader); ok {
		br = casted
	} else {
		br = bufio.NewReader(r)
	}
	// Buffered so the reading goroutine can always finish, even after the
	// worker stopped waiting for it.
	return &RequestReader{
		baseReader{br, make(chan error, 1)},
		&Request{},
		make(chan *Request, 1),
	}
}

func (r *RequestReader) Start() {
	go func() {
		if err := r.readRequestLine(); err != nil {
			r.errCh <- err
			return
		}
		r.reqCh <- r.req
	}()
}

func (r *RequestReader) RequestReceived() <-chan *Request {
	return r.reqCh
}

func (r *RequestReader) readRequestLine() error {
	rl, err := r.readLine()
	if err == io.EOF {
		return fmt.Errorf("%w: no request line", ErrMalformedRequest)
	}
	if err != nil {
		return fmt.Errorf("failed to read request line: %w", err)
	}
	if rl == "" {
		return fmt.Errorf("%w: empty request line", ErrMalformedRequest)
	}
	fields := strings.Split(rl, " ")
	if len(fields) != 3 {
		return fmt.Errorf("%w: invalid request line %q", ErrMalformedRequest, rl)
	}
	if fields[2] != HTTPVersion {
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, fields[2])
	}
	r.req.Method = fields[0]
	r.req.URI = fields[1]
	r.req.Version = fields[2]
	return nil
}

// readTextBody collects lines up to the first empty line or the end of the
// stream, each terminated with "\n". Anything after the empty line stays
// unread; there is no Content-Length framing.
func readTextBody(br *bufio.Reader) ([]byte, error) {
	r := baseReader{r: br}
	var body strings.Builder
	for {
		line, err := r.readLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
		if line == "" {
			break
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	return []byte(body.String()), nil
}
