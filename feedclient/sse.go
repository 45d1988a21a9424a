// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feedclient

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// maxLine bounds a single stream line.
const maxLine = 64 * 1024

// Event is one server-sent event, or a comment frame when Comment is set.
type Event struct {
	Name    string
	Data    []byte
	Comment string
}

func (e Event) IsComment() bool {
	return e.Name == "" && e.Comment != ""
}

// eventReader parses the text/event-stream format.
type eventReader struct {
	sc *bufio.Scanner
}

func newEventReader(r io.Reader) *eventReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 4096), maxLine)
	return &eventReader{sc: sc}
}

// Next returns the next event or comment. io.EOF means the server closed
// the stream.
func (r *eventReader) Next() (Event, error) {
	var (
		name    string
		data    bytes.Buffer
		hasData bool
	)

	for r.sc.Scan() {
		line := r.sc.Text()

		if line == "" {
			if !hasData && name == "" {
				continue
			}
			if name == "" {
				name = "message"
			}
			return Event{Name: name, Data: data.Bytes()}, nil
		}

		if strings.HasPrefix(line, ":") {
			// comments inside an event are ignored
			if hasData || name != "" {
				continue
			}
			text := strings.TrimPrefix(strings.TrimPrefix(line, ":"), " ")
			if text == "" {
				text = ":"
			}
			return Event{Comment: text}, nil
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			name = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		}
		// id and retry are not used by the poll stream
	}

	if err := r.sc.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}
