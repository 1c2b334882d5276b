package main

import (
	"bufio"
	"fmt"
	"io"
	"unicode"
)

func capitalizeHeader(h string) string {
	ret := []rune(h)
	cap := true
	for i, r := range ret {
		if cap && unicode.IsLetter(r) {
			ret[i] = unicode.ToUpper(r)
			cap = false
		}
		if r == '-' {
			cap = true
		}
	}
	return string(ret)
}

// WriteResponse serializes res onto w: status line, headers, blank line and
// then the body bytes with no further framing. headWritten tells a failure
// before the head was flushed from one during the body.
func WriteResponse(w io.Writer, res *Response) (headWritten bool, err error) {
	phrase, ok := reasonPhrases[res.Status]
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrInvalidStatus, res.Status)
	}
	if res.Phrase != "" {
		phrase = res.Phrase
	}
	version := res.Version
	if version == "" {
		version = HTTPVersion
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s %d %s\r\n", version, res.Status, phrase)
	for _, f := range res.Headers {
		fmt.Fprintf(bw, "%s: %s\r\n", capitalizeHeader(f.Name), f.Value)
	}
	bw.WriteString("\r\n")
	if err := bw.Flush(); err != nil {
		return false, fmt.Errorf("write response head: %w", err)
	}

	if res.Body == nil {
		return true, nil
	}
	if _, err := io.Copy(w, res.Body); err != nil {
		return true, fmt.Errorf("write response body: %w", err)
	}
	return true, nil
}
