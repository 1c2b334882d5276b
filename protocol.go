package main

import "io"

const (
	HTTPVersion = "HTTP/1.1"

	StatusOK                      = 200
	StatusBadRequest              = 400
	StatusNotFound                = 404
	StatusMethodNotAllowed        = 405
	StatusUnsupportedMediaType    = 415
	StatusInternalServerError     = 500
	StatusHTTPVersionNotSupported = 505
)

var reasonPhrases = map[int]string{
	StatusOK:                      "OK",
	StatusBadRequest:              "Bad Request",
	StatusNotFound:                "Not Found",
	StatusMethodNotAllowed:        "Method Not Allowed",
	StatusUnsupportedMediaType:    "Unsupported Media Type",
	StatusInternalServerError:     "Internal Server Error",
	StatusHTTPVersionNotSupported: "HTTP Version Not Supported",
}

// StatusText returns the reason phrase for a supported status code, or ""
// if the code is not one this server sends.
func StatusText(code int) string {
	return reasonPhrases[code]
}

const allowedMethods = "GET, POST, PUT, DELETE, OPTIONS, HEAD"

type HeaderField struct {
	Name  string
	Value string
}

// Unlike http.Header, fields keep the order they were set in.
type HTTPHeader []HeaderField

func (h *HTTPHeader) Set(name, value string) {
	for i := range *h {
		if (*h)[i].Name == name {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, HeaderField{name, value})
}

func (h HTTPHeader) Get(name string) string {
	for _, f := range h {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

type Request struct {
	Method  string
	URI     string
	Version string
}

type Response struct {
	Version string
	Status  int
	Phrase  string
	Headers HTTPHeader
	Body    io.Reader // nil means no body
}

// NewResponse builds a bodiless response with the fixed reason phrase.
func NewResponse(status int) *Response {
	return &Response{
		Version: HTTPVersion,
		Status:  status,
		Phrase:  StatusText(status),
	}
}
