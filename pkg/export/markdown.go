package export

import (
	"fmt"
	"strings"
)

// MarkdownOptions controls the transcript layout.
type MarkdownOptions struct {
	// IncludeGraph appends a Mermaid diagram of all branches.
	IncludeGraph bool
}

// GenerateMarkdown renders the snapshot as a markdown transcript. Message
// text is copied verbatim since it is markdown already.
func GenerateMarkdown(snap *Snapshot, opts MarkdownOptions) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeInline(snap.Meta.Title)))

	sb.WriteString("| Property | Value |\n|----------|-------|\n")
	writeRow(&sb, "File", snap.Meta.FileName)
	writeRow(&sb, "Conversation", snap.Meta.ConversationID)
	writeRow(&sb, "Created", snap.Meta.Created)
	writeRow(&sb, "Updated", snap.Meta.Updated)
	writeRow(&sb, "Leaf", snap.View.LeafID)
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("> %s\n\n", snap.Status.Text))

	for _, r := range snap.View.Records {
		sb.WriteString(fmt.Sprintf("<a id=\"%s\"></a>\n\n", r.AnchorID))
		heading := r.RoleLabel
		if when := snap.formatTime(r); when != "" {
			heading += " · " + when
		}
		if r.Hidden {
			heading += " (hidden)"
		}
		sb.WriteString(fmt.Sprintf("## %s\n\n", escapeInline(heading)))
		text := strings.TrimRight(r.Text, "\n")
		if text == "" {
			sb.WriteString("*(empty)*\n\n")
		} else {
			sb.WriteString(text + "\n\n")
		}
		sb.WriteString("---\n\n")
	}

	if len(snap.Leaves) > 1 {
		sb.WriteString("## Branches\n\n")
		for _, l := range snap.Leaves {
			marker := " "
			if l.ID == snap.View.LeafID {
				marker = "x"
			}
			sb.WriteString(fmt.Sprintf("- [%s] `%s` %s\n", marker, l.ID, escapeInline(l.Label)))
		}
		sb.WriteString("\n")
	}

	if opts.IncludeGraph {
		sb.WriteString("```mermaid\n")
		sb.WriteString(GenerateMermaidGraph(snap.Doc.Tree, snap.View.Path, MermaidConfig{}))
		sb.WriteString("```\n\n")
	}

	sb.WriteString(fmt.Sprintf("*Exported %s*\n", snap.TimeFormat(snap.GeneratedAt)))
	return sb.String()
}

// SaveMarkdown writes the transcript, graph included, to path.
func SaveMarkdown(snap *Snapshot, path string) error {
	return writeFileAtomic(path, []byte(GenerateMarkdown(snap, MarkdownOptions{IncludeGraph: true})))
}

func writeRow(sb *strings.Builder, key, val string) {
	if val == "" {
		return
	}
	sb.WriteString(fmt.Sprintf("| **%s** | %s |\n", key, escapeCell(val)))
}

var cellReplacer = strings.NewReplacer("\n", " ", "\r", "", "|", "\\|")

func escapeCell(s string) string {
	return cellReplacer.Replace(s)
}

func escapeInline(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r", ""), "\n", " ")
}
