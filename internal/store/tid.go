package store

import (
	"bufio"
	"fmt"
	"strings"
)

// ParseTid decodes a .tid file: "name: value" header lines, a blank
// line, then the body. The title and type fields are promoted.
func ParseTid(data string) (*Document, error) {
	doc := &Document{Fields: make(map[string]string)}
	data = strings.ReplaceAll(data, "\r\n", "\n")

	header, body, found := strings.Cut(data, "\n\n")
	if !found {
		header, body = strings.TrimSuffix(data, "\n"), ""
	}

	sc := bufio.NewScanner(strings.NewReader(header))
	sc.Buffer(make([]byte, 0, 64*1024), len(header)+1)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		name, value, ok := strings.Cut(text, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("line %d: expected \"name: value\", got %q", line, text)
		}
		doc.Fields[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	doc.Title = doc.Fields["title"]
	doc.Type = doc.Fields["type"]
	delete(doc.Fields, "title")
	delete(doc.Fields, "type")
	doc.Text = body
	return doc, nil
}

// FormatTid encodes doc as a .tid file with fields sorted by name.
func FormatTid(doc *Document) string {
	fields := make(map[string]string, len(doc.Fields)+2)
	for name, value := range doc.Fields {
		fields[name] = value
	}
	fields["title"] = doc.Title
	if doc.Type != "" {
		fields["type"] = doc.Type
	} else {
		delete(fields, "type")
	}

	var sb strings.Builder
	for _, name := range sortedKeys(fields) {
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(fields[name])
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	sb.WriteString(doc.Text)
	return sb.String()
}

// tidFilename maps a title to a file name, replacing characters that are
// unsafe in paths. '$' is kept, so $:/config/x is stored as $__config_x.tid.
func tidFilename(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < ' ' {
			return '_'
		}
		return r
	}, title)
	name = strings.Trim(name, ". ")
	if name == "" {
		name = "_"
	}
	return name + ".tid"
}
