package block

import "fmt"

// Kind classifies a content block. The set mirrors the typed blocks a
// markdown parser emits, plus Document for the synthetic root that holds
// a note's top-level blocks.
type Kind uint8

const (
	// Document is the synthetic root of a note.
	Document Kind = iota

	// Heading is a markdown heading of any level.
	Heading

	// Paragraph is a prose paragraph.
	Paragraph

	// List is an ordered or unordered list container.
	List

	// ListItem is a single item within a List.
	ListItem

	// CodeBlock is a fenced or indented code block.
	CodeBlock

	// Blockquote is a quoted block.
	Blockquote

	// Table is a pipe table.
	Table

	// ThematicBreak is a horizontal rule.
	ThematicBreak

	// HTML is a raw HTML block.
	HTML

	// Raw is any block the parser could not classify further.
	Raw
)

// kindNames maps kinds to their canonical names.
var kindNames = map[Kind]string{
	Document:      "document",
	Heading:       "heading",
	Paragraph:     "paragraph",
	List:          "list",
	ListItem:      "list_item",
	CodeBlock:     "code_block",
	Blockquote:    "blockquote",
	Table:         "table",
	ThematicBreak: "thematic_break",
	HTML:          "html",
	Raw:           "raw",
}

// Valid reports whether the kind is in the known set.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// String returns the canonical name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind converts a canonical name back to a Kind.
func ParseKind(name string) (Kind, error) {
	for kind, kindName := range kindNames {
		if kindName == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("block: unknown kind %q", name)
}
