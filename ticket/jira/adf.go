package jira

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ADFDocument is an Atlassian Document Format document, the rich text
// representation Jira Cloud API v3 uses for descriptions and comments.
type ADFDocument struct {
	Version int       `json:"version"` // always 1
	Type    string    `json:"type"`    // always "doc"
	Content []ADFNode `json:"content"`
}

// ADFNode is a block or inline node in an ADF document.
type ADFNode struct {
	Type    string         `json:"type"`
	Content []ADFNode      `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []ADFMark      `json:"marks,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// ADFMark is formatting applied to a text node.
type ADFMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// ADF node types this package reads and writes.
const (
	adfDoc         = "doc"
	adfParagraph   = "paragraph"
	adfText        = "text"
	adfHardBreak   = "hardBreak"
	adfHeading     = "heading"
	adfBulletList  = "bulletList"
	adfOrderedList = "orderedList"
	adfListItem    = "listItem"
	adfCodeBlock   = "codeBlock"
	adfBlockquote  = "blockquote"
	adfRule        = "rule"
	adfMention     = "mention"
	adfInlineCard  = "inlineCard"
)

// ADF mark types recognized when rendering back to Markdown.
const (
	adfMarkStrong = "strong"
	adfMarkEm     = "em"
	adfMarkStrike = "strike"
	adfMarkCode   = "code"
	adfMarkLink   = "link"
)

// NewADFDocument creates an empty version-1 document.
func NewADFDocument() *ADFDocument {
	return &ADFDocument{Version: 1, Type: adfDoc, Content: []ADFNode{}}
}

// AddParagraph appends a plain text paragraph.
func (d *ADFDocument) AddParagraph(text string) {
	d.Content = append(d.Content, ADFNode{
		Type:    adfParagraph,
		Content: []ADFNode{{Type: adfText, Text: text}},
	})
}

// AddHeading appends a heading, clamping level to 1..6.
func (d *ADFDocument) AddHeading(level int, text string) {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	d.Content = append(d.Content, ADFNode{
		Type:    adfHeading,
		Attrs:   map[string]any{"level": level},
		Content: []ADFNode{{Type: adfText, Text: text}},
	})
}

// AddCodeBlock appends a code block with an optional language.
func (d *ADFDocument) AddCodeBlock(code, language string) {
	d.Content = append(d.Content, ADFNode{
		Type:    adfCodeBlock,
		Attrs:   map[string]any{"language": language},
		Content: []ADFNode{{Type: adfText, Text: code}},
	})
}

// AddBulletList appends a bullet list with one paragraph per item.
func (d *ADFDocument) AddBulletList(items []string) {
	d.Content = append(d.Content, ADFNode{Type: adfBulletList, Content: listItems(items)})
}

// AddOrderedList appends an ordered list with one paragraph per item.
func (d *ADFDocument) AddOrderedList(items []string) {
	d.Content = append(d.Content, ADFNode{Type: adfOrderedList, Content: listItems(items)})
}

// AddBlockquote appends a quoted paragraph.
func (d *ADFDocument) AddBlockquote(text string) {
	d.Content = append(d.Content, ADFNode{
		Type: adfBlockquote,
		Content: []ADFNode{{
			Type:    adfParagraph,
			Content: []ADFNode{{Type: adfText, Text: text}},
		}},
	})
}

// AddRule appends a horizontal rule.
func (d *ADFDocument) AddRule() {
	d.Content = append(d.Content, ADFNode{Type: adfRule})
}

func listItems(items []string) []ADFNode {
	nodes := make([]ADFNode, len(items))
	for i, item := range items {
		nodes[i] = ADFNode{
			Type: adfListItem,
			Content: []ADFNode{{
				Type:    adfParagraph,
				Content: []ADFNode{{Type: adfText, Text: item}},
			}},
		}
	}
	return nodes
}

// MarkdownToADF converts Markdown to an ADF document. Block structure is
// mapped (headings, code fences, lists, quotes, rules); inline marks are
// carried through as plain text.
func MarkdownToADF(markdown string) *ADFDocument {
	doc := NewADFDocument()
	lines := strings.Split(markdown, "\n")

	for i := 0; i < len(lines); {
		line := lines[i]

		if strings.TrimSpace(line) == "" {
			i++
			continue
		}

		if level := headingLevel(line); level > 0 {
			doc.AddHeading(level, strings.TrimSpace(strings.TrimLeft(line, "#")))
			i++
			continue
		}

		if line == "---" || line == "***" || line == "___" {
			doc.AddRule()
			i++
			continue
		}

		if strings.HasPrefix(line, "```") {
			language := strings.TrimPrefix(line, "```")
			var code []string
			i++
			for i < len(lines) && !strings.HasPrefix(lines[i], "```") {
				code = append(code, lines[i])
				i++
			}
			i++ // closing fence
			doc.AddCodeBlock(strings.Join(code, "\n"), language)
			continue
		}

		if strings.HasPrefix(line, "> ") {
			doc.AddBlockquote(strings.TrimPrefix(line, "> "))
			i++
			continue
		}

		if isBulletItem(line) {
			var items []string
			for i < len(lines) && isBulletItem(lines[i]) {
				items = append(items, lines[i][2:])
				i++
			}
			doc.AddBulletList(items)
			continue
		}

		if orderedItem(line) != "" {
			var items []string
			for i < len(lines) && orderedItem(lines[i]) != "" {
				items = append(items, orderedItem(lines[i]))
				i++
			}
			doc.AddOrderedList(items)
			continue
		}

		doc.AddParagraph(line)
		i++
	}

	return doc
}

// headingLevel returns the "#" count of a Markdown heading line, or 0.
func headingLevel(line string) int {
	level := 0
	for _, ch := range line {
		if ch != '#' {
			break
		}
		level++
	}
	if level == 0 || level > 6 || len(line) <= level || line[level] != ' ' {
		return 0
	}
	return level
}

func isBulletItem(line string) bool {
	return strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ")
}

// orderedItem returns the text of a "1. item" line, or "".
func orderedItem(line string) string {
	idx := strings.Index(line, ". ")
	if idx < 1 {
		return ""
	}
	for _, ch := range line[:idx] {
		if ch < '0' || ch > '9' {
			return ""
		}
	}
	return line[idx+2:]
}

// ADFToMarkdown renders an ADF document as Markdown. Unknown node types
// are descended into so their text is not lost.
func ADFToMarkdown(doc *ADFDocument) (string, error) {
	if doc.Version != 1 || doc.Type != adfDoc {
		return "", ErrADFInvalid
	}

	var b strings.Builder
	for i := range doc.Content {
		blockToMarkdown(&b, &doc.Content[i])
	}
	return strings.TrimSpace(b.String()), nil
}

func blockToMarkdown(b *strings.Builder, node *ADFNode) {
	switch node.Type {
	case adfParagraph:
		inlineToMarkdown(b, node.Content)
		b.WriteString("\n\n")

	case adfHeading:
		level := 1
		if l, ok := node.Attrs["level"].(float64); ok {
			level = int(l)
		}
		b.WriteString(strings.Repeat("#", level))
		b.WriteString(" ")
		inlineToMarkdown(b, node.Content)
		b.WriteString("\n\n")

	case adfCodeBlock:
		lang, _ := node.Attrs["language"].(string)
		b.WriteString("```")
		b.WriteString(lang)
		b.WriteString("\n")
		inlineToMarkdown(b, node.Content)
		b.WriteString("\n```\n\n")

	case adfBlockquote:
		for i := range node.Content {
			b.WriteString("> ")
			blockToMarkdown(b, &node.Content[i])
		}

	case adfBulletList:
		for _, item := range node.Content {
			b.WriteString("- ")
			for _, content := range item.Content {
				inlineToMarkdown(b, content.Content)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")

	case adfOrderedList:
		for i, item := range node.Content {
			fmt.Fprintf(b, "%d. ", i+1)
			for _, content := range item.Content {
				inlineToMarkdown(b, content.Content)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")

	case adfRule:
		b.WriteString("---\n\n")

	case adfText:
		textToMarkdown(b, node)

	default:
		for i := range node.Content {
			blockToMarkdown(b, &node.Content[i])
		}
	}
}

func inlineToMarkdown(b *strings.Builder, nodes []ADFNode) {
	for i := range nodes {
		node := &nodes[i]
		switch node.Type {
		case adfText:
			textToMarkdown(b, node)
		case adfHardBreak:
			b.WriteString("\n")
		case adfMention:
			if id, ok := node.Attrs["id"].(string); ok {
				b.WriteString("@")
				b.WriteString(id)
			}
		case adfInlineCard:
			if url, ok := node.Attrs["url"].(string); ok {
				b.WriteString(url)
			}
		default:
			inlineToMarkdown(b, node.Content)
		}
	}
}

func textToMarkdown(b *strings.Builder, node *ADFNode) {
	prefix, suffix := "", ""
	for _, mark := range node.Marks {
		switch mark.Type {
		case adfMarkStrong:
			prefix, suffix = "**"+prefix, suffix+"**"
		case adfMarkEm:
			prefix, suffix = "*"+prefix, suffix+"*"
		case adfMarkStrike:
			prefix, suffix = "~~"+prefix, suffix+"~~"
		case adfMarkCode:
			prefix, suffix = "`"+prefix, suffix+"`"
		case adfMarkLink:
			if href, ok := mark.Attrs["href"].(string); ok {
				prefix = "[" + prefix
				suffix = suffix + "](" + href + ")"
			}
		}
	}
	b.WriteString(prefix)
	b.WriteString(node.Text)
	b.WriteString(suffix)
}

// decodeADF reinterprets a decoded JSON value as an ADF document.
func decodeADF(v any) (*ADFDocument, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal adf: %w", err)
	}
	var doc ADFDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal adf: %w", err)
	}
	return &doc, nil
}
