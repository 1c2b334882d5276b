package main

import (
	"path"
	"strings"
)

const defaultContentType = "application/octet-stream"

// MIMETable maps a lowercase extension, without the dot, to a content type.
// It is built once at startup and only read afterwards.
type MIMETable map[string]string

var DefaultMIMETypes = MIMETable{
	"txt":  "text/plain",
	"html": "text/html",
	"json": "text/json",
}

// ContentType resolves the type of name by the text after its last dot.
// Matching is case-sensitive.
func (t MIMETable) ContentType(name string) string {
	base := path.Base(name)
	pos := strings.LastIndex(base, ".")
	if pos == -1 {
		return defaultContentType
	}
	if ct, ok := t[base[pos+1:]]; ok {
		return ct
	}
	return defaultContentType
}
