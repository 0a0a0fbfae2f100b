package content

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// reencode decodes raw JSON and writes it back the way browsers stringify
// values: escapes resolved, numbers in shortest form, keys in source order.
// An empty indent gives single-line output.
func reencode(raw []byte, indent string) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	e := &encoder{dec: dec, indent: indent}
	if err := e.value(0); err != nil {
		return "", err
	}
	if _, err := dec.Token(); err == nil {
		return "", errors.New("trailing data after JSON value")
	}
	return e.buf.String(), nil
}

type encoder struct {
	dec    *json.Decoder
	indent string
	buf    strings.Builder
}

func (e *encoder) value(depth int) error {
	if depth > maxDepth {
		return errors.New("JSON nested too deeply")
	}
	tok, err := e.dec.Token()
	if err != nil {
		return err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return e.container(depth, '}', true)
		case '[':
			return e.container(depth, ']', false)
		}
		return fmt.Errorf("unexpected delimiter %v", t)
	case string:
		e.str(t)
	case json.Number:
		f, err := strconv.ParseFloat(string(t), 64)
		if err != nil && !math.IsInf(f, 0) {
			return err
		}
		e.buf.WriteString(jsNumber(f))
	case float64:
		e.buf.WriteString(jsNumber(t))
	case bool:
		e.buf.WriteString(strconv.FormatBool(t))
	case nil:
		e.buf.WriteString("null")
	default:
		return fmt.Errorf("unexpected token %v", tok)
	}
	return nil
}

func (e *encoder) container(depth int, end byte, object bool) error {
	open := byte('[')
	if object {
		open = '{'
	}
	e.buf.WriteByte(open)
	n := 0
	for e.dec.More() {
		if n > 0 {
			e.buf.WriteByte(',')
		}
		e.newline(depth + 1)
		if object {
			tok, err := e.dec.Token()
			if err != nil {
				return err
			}
			key, ok := tok.(string)
			if !ok {
				return fmt.Errorf("unexpected key %v", tok)
			}
			e.str(key)
			e.buf.WriteByte(':')
			if e.indent != "" {
				e.buf.WriteByte(' ')
			}
		}
		if err := e.value(depth + 1); err != nil {
			return err
		}
		n++
	}
	if _, err := e.dec.Token(); err != nil {
		return err
	}
	if n > 0 {
		e.newline(depth)
	}
	e.buf.WriteByte(end)
	return nil
}

func (e *encoder) newline(depth int) {
	if e.indent == "" {
		return
	}
	e.buf.WriteByte('\n')
	e.buf.WriteString(strings.Repeat(e.indent, depth))
}

// str quotes s, escaping only what JSON requires.
func (e *encoder) str(s string) {
	e.buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			e.buf.WriteString(`\"`)
		case '\\':
			e.buf.WriteString(`\\`)
		case '\n':
			e.buf.WriteString(`\n`)
		case '\r':
			e.buf.WriteString(`\r`)
		case '\t':
			e.buf.WriteString(`\t`)
		case '\b':
			e.buf.WriteString(`\b`)
		case '\f':
			e.buf.WriteString(`\f`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&e.buf, `\u%04x`, r)
				continue
			}
			e.buf.WriteRune(r)
		}
	}
	e.buf.WriteByte('"')
}

// jsNumber formats f like JavaScript's Number#toString: plain digits
// from 1e-6 up to 1e21, exponent notation outside. Overflow becomes null.
func jsNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	exp = strings.TrimLeft(exp[1:], "0")
	return mant + "e" + sign + exp
}
