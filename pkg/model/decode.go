package model

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// UnmarshalJSON decodes a conversation document. The input must be a JSON
// object; every field inside it is decoded leniently.
func (c *Conversation) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	*c = Conversation{
		Title:          looseString(fields["title"]),
		ConversationID: looseString(fields["conversation_id"]),
		ID:             looseString(fields["id"]),
		CreateTime:     parseEpoch(fields["create_time"]),
		UpdateTime:     parseEpoch(fields["update_time"]),
		CurrentNode:    looseString(fields["current_node"]),
	}

	if raw, ok := fields["mapping"]; ok && isObject(raw) {
		m, err := decodeMapping(raw)
		if err != nil {
			return fmt.Errorf("mapping: %w", err)
		}
		c.Mapping = m
	}
	return nil
}

// UnmarshalJSON decodes a single message object.
func (m *Message) UnmarshalJSON(b []byte) error {
	*m = *decodeMessage(b)
	return nil
}

// decodeMapping walks the mapping object token by token so that the source
// key order is kept; Go maps do not preserve it.
func decodeMapping(raw []byte) (*Mapping, error) {
	m := &Mapping{nodes: make(map[string]*Node)}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", tok)
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, fmt.Errorf("node %q: %w", key, err)
		}
		n, ok := decodeNode(key, val)
		if !ok {
			// null or non-object nodes are treated as absent
			continue
		}
		m.put(key, n)
	}
	return m, nil
}

func decodeNode(key string, raw []byte) (*Node, bool) {
	if !isObject(raw) {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}

	n := &Node{ID: key}

	if parent, present := fields["parent"]; present {
		switch {
		case isNull(parent):
			n.ParentNull = true
		case isString(parent):
			if id := looseString(parent); id != "" {
				n.Parent = id
				n.HasParent = true
			}
		}
	}

	if children := fields["children"]; isArray(children) {
		var items []json.RawMessage
		if err := json.Unmarshal(children, &items); err == nil {
			n.ChildrenListed = true
			n.Children = make([]string, 0, len(items))
			for _, item := range items {
				n.Children = append(n.Children, looseString(item))
			}
		}
	}

	if msg := fields["message"]; isTruthy(msg) {
		n.Message = decodeMessage(msg)
	}
	return n, true
}

func decodeMessage(raw []byte) *Message {
	msg := &Message{}
	if !isObject(raw) {
		return msg
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return msg
	}

	msg.ID = looseString(fields["id"])
	msg.CreateTime = parseEpoch(fields["create_time"])
	msg.Content = decodeContent(fields["content"])

	if author := fields["author"]; isTruthy(author) {
		msg.Author = &Author{}
		if isObject(author) {
			var af map[string]json.RawMessage
			if err := json.Unmarshal(author, &af); err == nil {
				msg.Author.Role = looseString(af["role"])
			}
		}
	}

	if meta := fields["metadata"]; isObject(meta) {
		var mf map[string]json.RawMessage
		if err := json.Unmarshal(meta, &mf); err == nil {
			msg.Metadata.VisuallyHidden = isTruthy(mf["is_visually_hidden_from_conversation"])
		}
	}
	return msg
}

func decodeContent(raw []byte) Content {
	if !isTruthy(raw) {
		return nil
	}
	value := json.RawMessage(clone(raw))
	if !isObject(raw) {
		return OpaqueContent{Value: value}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return OpaqueContent{Value: value}
	}

	ctype := ""
	if t := fields["content_type"]; isString(t) {
		ctype = looseString(t)
	}
	parts, hasParts := fields["parts"]

	if ctype == "text" && isArray(parts) {
		var items []json.RawMessage
		if err := json.Unmarshal(parts, &items); err == nil {
			tc := TextContent{Parts: make([]any, 0, len(items))}
			for _, item := range items {
				if isString(item) {
					tc.Parts = append(tc.Parts, looseString(item))
				} else {
					tc.Parts = append(tc.Parts, json.RawMessage(clone(item)))
				}
			}
			return tc
		}
	}
	if hasParts && isTruthy(parts) {
		return PartsContent{Type: ctype, Parts: json.RawMessage(clone(parts))}
	}
	return OpaqueContent{Type: ctype, Value: value}
}

func clone(b []byte) []byte {
	return append([]byte(nil), bytes.TrimSpace(b)...)
}

func isNull(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || string(t) == "null"
}

func isObject(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '{'
}

func isArray(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}

func isString(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '"'
}

func isNumber(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && (t[0] == '-' || (t[0] >= '0' && t[0] <= '9'))
}

// isTruthy mirrors how the export producers treat optional values: null,
// false, 0 and "" count as absent.
func isTruthy(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return false
	}
	switch t[0] {
	case 'n', 'f':
		return false
	case '"':
		return len(t) > 2
	case '{', '[', 't':
		return true
	}
	f, err := strconv.ParseFloat(string(t), 64)
	return err != nil || f != 0
}

// looseString returns strings as-is and scalars as their JSON text.
// Objects, arrays and null yield "".
func looseString(raw []byte) string {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return ""
	}
	switch {
	case t[0] == '"':
		var s string
		if err := json.Unmarshal(t, &s); err != nil {
			return ""
		}
		return s
	case isNumber(t), string(t) == "true", string(t) == "false":
		return string(t)
	}
	return ""
}

func parseEpoch(raw []byte) Epoch {
	if !isNumber(raw) {
		return Epoch{}
	}
	f, err := strconv.ParseFloat(string(bytes.TrimSpace(raw)), 64)
	if err != nil {
		return Epoch{}
	}
	return Seconds(f)
}
