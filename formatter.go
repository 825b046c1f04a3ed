// FILE: formatter.go
package skylog

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
)

// Canonical templates supported out of the box.
const (
	TemplateShort = "{timestamp} {level} {message}"
	TemplateLong  = "{timestamp} {pid} {level} {message}"
	TemplateNone  = "{message}"
)

// Placeholder fields recognized in templates.
const (
	fieldLiteral = iota
	fieldTimestamp
	fieldLevel
	fieldMessage
	fieldPID
	fieldJob
	fieldUnknown
)

type segment struct {
	kind    int
	literal string // fieldLiteral text or fieldUnknown placeholder name
}

// Formatter renders a record into text per a compiled template. It is
// stateless with respect to records: Render is a pure function of
// (record, template) and safe for concurrent use.
type Formatter struct {
	template string
	datefmt  string
	segs     []segment
}

// NewFormatter compiles a placeholder template. Unknown placeholders are
// kept and surface as a FormatError at render time, per the recovery
// contract at the sink boundary.
func NewFormatter(template, datefmt string) *Formatter {
	if datefmt == "" {
		datefmt = time.RFC3339Nano
	}
	return &Formatter{
		template: template,
		datefmt:  datefmt,
		segs:     compileTemplate(template),
	}
}

// compileTemplate splits a template into literal and placeholder segments.
func compileTemplate(template string) []segment {
	var segs []segment
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			break
		}
		end += open
		if open > 0 {
			segs = append(segs, segment{kind: fieldLiteral, literal: rest[:open]})
		}
		name := rest[open+1 : end]
		switch name {
		case "timestamp":
			segs = append(segs, segment{kind: fieldTimestamp})
		case "level":
			segs = append(segs, segment{kind: fieldLevel})
		case "message":
			segs = append(segs, segment{kind: fieldMessage})
		case "pid":
			segs = append(segs, segment{kind: fieldPID})
		case "job":
			segs = append(segs, segment{kind: fieldJob})
		default:
			segs = append(segs, segment{kind: fieldUnknown, literal: name})
		}
		rest = rest[end+1:]
	}
	if rest != "" {
		segs = append(segs, segment{kind: fieldLiteral, literal: rest})
	}
	return segs
}

// Render produces the textual form of a record. No trailing newline is
// appended; line-oriented sinks add their own separator. The "none"
// template yields exactly the original message with no metadata.
func (f *Formatter) Render(rec Record) ([]byte, error) {
	buf := make([]byte, 0, len(f.template)+len(rec.Message))
	for _, seg := range f.segs {
		switch seg.kind {
		case fieldLiteral:
			buf = append(buf, seg.literal...)
		case fieldTimestamp:
			buf = rec.Time.AppendFormat(buf, f.datefmt)
		case fieldLevel:
			buf = append(buf, LevelToString(rec.Level)...)
		case fieldMessage:
			buf = append(buf, rec.Message...)
		case fieldPID:
			buf = strconv.AppendInt(buf, int64(rec.PID), 10)
		case fieldJob:
			buf = append(buf, rec.Job...)
		default:
			return nil, &FormatError{Placeholder: seg.literal}
		}
	}
	return buf, nil
}

// rawDumper produces the compact fallback representation of a record.
var rawDumper = &spew.ConfigState{
	Indent:                  " ",
	MaxDepth:                10,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// renderOrDump renders a record and, on a FormatError, substitutes a raw
// field dump instead of dropping the record.
func (f *Formatter) renderOrDump(rec Record) []byte {
	data, err := f.Render(rec)
	if err == nil {
		return data
	}
	var b bytes.Buffer
	rawDumper.Fdump(&b, rec)
	out := make([]byte, 0, b.Len()+64)
	out = append(out, "format error ("...)
	out = append(out, err.Error()...)
	out = append(out, "): "...)
	return append(out, bytes.TrimSpace(b.Bytes())...)
}
