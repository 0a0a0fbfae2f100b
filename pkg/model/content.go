package model

// Content is the tagged union of message content shapes. The set is sealed:
// TextContent, PartsContent and OpaqueContent are the only implementations.
type Content interface {
	// ContentType returns the declared content_type, or "" when absent.
	ContentType() string
	isContent()
}

// TextContent is the canonical {content_type: "text", parts: [...]} shape.
//
// Each part is either a string or a non-string JSON value. Decoded non-string
// parts are kept as raw JSON bytes (json.RawMessage) so their key order
// survives; parts built in code may hold any Go value.
type TextContent struct {
	Parts []any
}

// ContentType implements Content.
func (TextContent) ContentType() string { return "text" }
func (TextContent) isContent()          {}

// PartsContent is any other shape that carries a parts value.
type PartsContent struct {
	Type string
	// Parts is raw JSON when decoded, or an arbitrary Go value when built in code.
	Parts any
}

// ContentType implements Content.
func (c PartsContent) ContentType() string { return c.Type }
func (PartsContent) isContent()            {}

// OpaqueContent is content the viewer does not understand at all.
type OpaqueContent struct {
	Type string
	// Value is raw JSON when decoded, or an arbitrary Go value when built in code.
	Value any
}

// ContentType implements Content.
func (c OpaqueContent) ContentType() string { return c.Type }
func (OpaqueContent) isContent()            {}

// Text builds a TextContent from string parts.
func Text(parts ...string) TextContent {
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return TextContent{Parts: out}
}
