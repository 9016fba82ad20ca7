// Package header encodes and decodes the structured block at the top of a note
// file. The block is TOML enclosed by two fence lines:
//
//	+++
//	title = 'Alpha'
//	date = 2023-01-01
//	+++
//	body...
package header

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/starford/slipbox/internal/apperr"
)

// Fence is the delimiter line written before and after the header payload.
const Fence = "+++"

// Header is the metadata stored at the top of every note.
type Header struct {
	Title string          `toml:"title"`
	Date  *toml.LocalDate `toml:"date,omitempty"`

	// Extra holds every other top-level key found in the block. It is written
	// back after title and date so foreign metadata survives a save.
	Extra map[string]any `toml:"-"`
}

// Clone returns a deep copy of h.
func (h Header) Clone() Header {
	if h.Date != nil {
		d := *h.Date
		h.Date = &d
	}
	if h.Extra != nil {
		h.Extra = cloneValue(h.Extra).(map[string]any)
	}
	return h
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

// DateOf returns the calendar date of t as a header date.
func DateOf(t time.Time) *toml.LocalDate {
	return &toml.LocalDate{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// Created returns the header date as a time at local midnight.
func (h Header) Created() (time.Time, bool) {
	if h.Date == nil {
		return time.Time{}, false
	}
	return time.Date(h.Date.Year, time.Month(h.Date.Month), h.Date.Day, 0, 0, 0, 0, time.Local), true
}

// Decode splits raw file bytes into a header and the remaining body.
//
// If the first line is not a bare fence the whole input is body and the header
// is empty. A fenced header that never closes, or whose payload is not valid
// TOML, yields an error wrapping apperr.ErrHeaderDecode.
func Decode(data []byte) (Header, string, error) {
	if len(data) == 0 {
		return Header{}, "", nil
	}

	first, rest := nextLine(data)
	if !isFence(first) {
		return Header{}, string(data), nil
	}

	var payload bytes.Buffer
	for {
		if len(rest) == 0 {
			return Header{}, "", fmt.Errorf("header: %w: unterminated %q fence", apperr.ErrHeaderDecode, Fence)
		}
		var line []byte
		line, rest = nextLine(rest)
		if isFence(line) {
			break
		}
		payload.Write(line)
	}

	var h Header
	if err := toml.Unmarshal(payload.Bytes(), &h); err != nil {
		return Header{}, "", fmt.Errorf("header: %w: %w", apperr.ErrHeaderDecode, err)
	}
	var all map[string]any
	if err := toml.Unmarshal(payload.Bytes(), &all); err != nil {
		return Header{}, "", fmt.Errorf("header: %w: %w", apperr.ErrHeaderDecode, err)
	}
	delete(all, "title")
	delete(all, "date")
	if len(all) > 0 {
		h.Extra = all
	}
	return h, string(rest), nil
}

// Encode renders h as a fenced header block, ending with a newline.
func Encode(h Header) ([]byte, error) {
	payload, err := toml.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("header: encode: %w", err)
	}
	if extra := extraKeys(h.Extra); len(extra) > 0 {
		more, err := toml.Marshal(extra)
		if err != nil {
			return nil, fmt.Errorf("header: encode: %w", err)
		}
		if len(payload) > 0 && payload[len(payload)-1] != '\n' {
			payload = append(payload, '\n')
		}
		payload = append(payload, more...)
	}
	var buf bytes.Buffer
	buf.Grow(len(payload) + 2*len(Fence) + 3)
	buf.WriteString(Fence + "\n")
	buf.Write(payload)
	if len(payload) > 0 && payload[len(payload)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString(Fence + "\n")
	return buf.Bytes(), nil
}

// Compose returns the full file content: the encoded header followed by body,
// byte for byte.
func Compose(h Header, body string) ([]byte, error) {
	block, err := Encode(h)
	if err != nil {
		return nil, err
	}
	return append(block, body...), nil
}

// extraKeys drops keys owned by the typed fields.
func extraKeys(extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(extra))
	for k, v := range extra {
		if k == "title" || k == "date" {
			continue
		}
		out[k] = v
	}
	return out
}

// nextLine returns the first line of data including its newline, and the rest.
func nextLine(data []byte) ([]byte, []byte) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return data, nil
	}
	return data[:i+1], data[i+1:]
}

// isFence reports whether line is empty once leading fence characters and
// surrounding whitespace are removed.
func isFence(line []byte) bool {
	return strings.TrimSpace(strings.TrimLeft(string(line), "+")) == ""
}
