// Package content turns any message content shape into one plain-text string.
package content

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/threadview/pkg/model"
)

const indent = "  "

// Extract returns the printable text of a message. It never fails: a nil
// message or missing content yields "".
func Extract(msg *model.Message) string {
	if msg == nil || msg.Content == nil {
		return ""
	}
	switch c := msg.Content.(type) {
	case model.TextContent:
		parts := make([]string, len(c.Parts))
		for i, p := range c.Parts {
			if s, ok := p.(string); ok {
				parts[i] = s
				continue
			}
			parts[i] = compact(p)
		}
		return strings.Join(parts, "\n")
	case model.PartsContent:
		return pretty(c.Parts)
	case model.OpaqueContent:
		return pretty(c.Value)
	default:
		return pretty(c)
	}
}

// compact renders one non-string text part as single-line JSON.
func compact(v any) string {
	return encode(v, "")
}

// pretty renders a value as indented JSON. Raw JSON keeps its source key order.
func pretty(v any) string {
	return encode(v, indent)
}

func encode(v any, ind string) string {
	raw, ok := asRaw(v)
	if !ok {
		if hasCycle(v) {
			return bestEffort(v)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return bestEffort(v)
		}
		raw = b
	}
	s, err := reencode(raw, ind)
	if err != nil {
		return string(raw)
	}
	return s
}

func asRaw(v any) ([]byte, bool) {
	switch r := v.(type) {
	case json.RawMessage:
		return r, true
	case []byte:
		return r, json.Valid(r)
	}
	return nil, false
}

// hasCycle reports whether v references itself through maps, slices or pointers.
func hasCycle(v any) bool {
	return walkCycle(reflect.ValueOf(v), map[uintptr]bool{}, 0)
}

const maxDepth = 512

func walkCycle(v reflect.Value, onPath map[uintptr]bool, depth int) bool {
	if depth > maxDepth {
		return true
	}
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return false
		}
		return walkCycle(v.Elem(), onPath, depth+1)
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return false
		}
		ptr := v.Pointer()
		if v.Kind() == reflect.Slice && v.Len() == 0 {
			return false
		}
		if onPath[ptr] {
			return true
		}
		onPath[ptr] = true
		defer delete(onPath, ptr)

		switch v.Kind() {
		case reflect.Pointer:
			return walkCycle(v.Elem(), onPath, depth+1)
		case reflect.Map:
			iter := v.MapRange()
			for iter.Next() {
				if walkCycle(iter.Value(), onPath, depth+1) {
					return true
				}
			}
		case reflect.Slice:
			for i := 0; i < v.Len(); i++ {
				if walkCycle(v.Index(i), onPath, depth+1) {
					return true
				}
			}
		}
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if walkCycle(v.Index(i), onPath, depth+1) {
				return true
			}
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if walkCycle(v.Field(i), onPath, depth+1) {
				return true
			}
		}
	}
	return false
}

// bestEffort describes a value that cannot be serialized, without recursing
// into it.
func bestEffort(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case map[string]any:
		return fmt.Sprintf("[object with %d keys]", len(x))
	case []any:
		return fmt.Sprintf("[list of %d items]", len(x))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer, reflect.Struct, reflect.Interface:
		return "[" + rv.Type().String() + "]"
	}
	return fmt.Sprint(v)
}
