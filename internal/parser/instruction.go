package parser

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// reserved holds the characters with a meaning in the instruction grammar
const reserved = "+/()@=,"

// Segment is one parsed component reference of an instruction.
//
// Grammar:
//
//	list    = item { "+" item }
//	item    = segment [ "/" ( "(" list ")" | item ) ]
//	segment = name [ "(" params ")" ] [ "@" viewport ]
//	params  = param { "," param }
//	param   = key "=" value | value
//
// A param without a key is positional and stored under its index ("0", "1", ...).
type Segment struct {
	Name     string
	Viewport string // empty when not given
	Params   map[string]string
	Children []*Segment
}

// String renders the segment and its children in instruction form
func (s *Segment) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	if len(s.Params) > 0 {
		keys := make([]string, 0, len(s.Params))
		for k := range s.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('(')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(s.Params[k])
		}
		b.WriteByte(')')
	}
	if s.Viewport != "" {
		b.WriteByte('@')
		b.WriteString(s.Viewport)
	}
	switch len(s.Children) {
	case 0:
	case 1:
		b.WriteByte('/')
		b.WriteString(s.Children[0].String())
	default:
		b.WriteString("/(")
		b.WriteString(Format(s.Children))
		b.WriteByte(')')
	}
	return b.String()
}

// Format renders sibling segments joined by '+'
func Format(segments []*Segment) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = s.String()
	}
	return strings.Join(parts, "+")
}

// ParseInstruction parses an instruction string. The empty instruction
// parses to no segments.
func ParseInstruction(s string) ([]*Segment, error) {
	p := &instructionParser{src: strings.TrimSpace(s)}
	if p.src == "" {
		return nil, nil
	}

	segments, err := p.list()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos])
	}
	return segments, nil
}

type instructionParser struct {
	src string
	pos int
}

func (p *instructionParser) errorf(format string, args ...any) error {
	return fmt.Errorf("instruction %q at %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *instructionParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *instructionParser) accept(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *instructionParser) list() ([]*Segment, error) {
	var out []*Segment
	for {
		seg, err := p.item()
		if err != nil {
			return nil, err
		}
		out = append(out, seg)
		if !p.accept('+') {
			return out, nil
		}
	}
}

func (p *instructionParser) item() (*Segment, error) {
	seg, err := p.segment()
	if err != nil {
		return nil, err
	}
	if !p.accept('/') {
		return seg, nil
	}

	if p.accept('(') {
		children, err := p.list()
		if err != nil {
			return nil, err
		}
		if !p.accept(')') {
			return nil, p.errorf("missing ')'")
		}
		seg.Children = children
		return seg, nil
	}

	child, err := p.item()
	if err != nil {
		return nil, err
	}
	seg.Children = []*Segment{child}
	return seg, nil
}

func (p *instructionParser) segment() (*Segment, error) {
	name := p.token(reserved)
	if name == "" {
		return nil, p.errorf("missing component name")
	}
	seg := &Segment{Name: name}

	if p.accept('(') {
		params, err := p.params()
		if err != nil {
			return nil, err
		}
		seg.Params = params
	}

	if p.accept('@') {
		seg.Viewport = p.token(reserved)
		if seg.Viewport == "" {
			return nil, p.errorf("missing viewport name after '@'")
		}
	}
	return seg, nil
}

func (p *instructionParser) params() (map[string]string, error) {
	params := make(map[string]string)
	if p.accept(')') {
		return params, nil
	}

	for i := 0; ; i++ {
		token := p.token(",)=")
		if p.accept('=') {
			if token == "" {
				return nil, p.errorf("missing param name")
			}
			params[token] = p.token(",)")
		} else {
			params[strconv.Itoa(i)] = token
		}

		if p.accept(')') {
			return params, nil
		}
		if !p.accept(',') {
			return nil, p.errorf("missing ')' after params")
		}
	}
}

// token reads up to the next stop character
func (p *instructionParser) token(stops string) string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune(stops, rune(p.src[p.pos])) {
		p.pos++
	}
	return strings.TrimSpace(p.src[start:p.pos])
}
