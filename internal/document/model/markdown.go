package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// block mirrors the subset of the BlockNote block schema needed to render
// markdown.
type block struct {
	Type     string                 `json:"type"`
	Props    map[string]interface{} `json:"props"`
	Content  json.RawMessage        `json:"content"`
	Children []block                `json:"children"`
}

type inline struct {
	Type    string          `json:"type"`
	Text    string          `json:"text"`
	Href    string          `json:"href"`
	Styles  map[string]any  `json:"styles"`
	Content json.RawMessage `json:"content"`
}

// MarkdownText renders the body as markdown. Block payloads that cannot be
// parsed are returned verbatim.
func (c Content) MarkdownText() string {
	if c.Kind != KindBlocks {
		return c.Payload
	}
	var blocks []block
	if err := json.Unmarshal([]byte(c.Payload), &blocks); err != nil {
		return c.Payload
	}
	var sb strings.Builder
	renderBlocks(&sb, blocks, 0)
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// Snippet is a one-line preview of at most n characters.
func (c Content) Snippet(n int) string {
	res := strings.TrimSpace(c.MarkdownText())
	res = strings.ReplaceAll(res, "\n", " ")
	runes := []rune(res)
	if len(runes) > n {
		return string(runes[:n]) + "..."
	}
	return res
}

func renderBlocks(sb *strings.Builder, blocks []block, depth int) {
	indent := strings.Repeat("  ", depth)
	number := 0
	for _, b := range blocks {
		text := renderInline(b.Content)
		if b.Type != "numberedListItem" {
			number = 0
		}
		switch b.Type {
		case "heading":
			level := 1
			if l, ok := b.Props["level"].(float64); ok && l >= 1 && l <= 6 {
				level = int(l)
			}
			fmt.Fprintf(sb, "%s%s %s\n\n", indent, strings.Repeat("#", level), text)
		case "bulletListItem":
			fmt.Fprintf(sb, "%s- %s\n", indent, text)
		case "numberedListItem":
			number++
			fmt.Fprintf(sb, "%s%d. %s\n", indent, number, text)
		case "checkListItem":
			mark := " "
			if checked, _ := b.Props["checked"].(bool); checked {
				mark = "x"
			}
			fmt.Fprintf(sb, "%s- [%s] %s\n", indent, mark, text)
		case "codeBlock":
			fmt.Fprintf(sb, "%s```\n%s%s\n%s```\n\n", indent, indent, text, indent)
		default:
			if text == "" {
				sb.WriteString("\n")
			} else {
				fmt.Fprintf(sb, "%s%s\n\n", indent, text)
			}
		}
		if len(b.Children) > 0 {
			renderBlocks(sb, b.Children, depth+1)
		}
	}
}

func renderInline(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var items []inline
	if err := json.Unmarshal(raw, &items); err != nil {
		return ""
	}
	var sb strings.Builder
	for _, it := range items {
		switch it.Type {
		case "link":
			fmt.Fprintf(&sb, "[%s](%s)", renderInline(it.Content), it.Href)
		default:
			sb.WriteString(styled(it.Text, it.Styles))
		}
	}
	return sb.String()
}

func styled(text string, styles map[string]any) string {
	if text == "" {
		return text
	}
	if on, _ := styles["code"].(bool); on {
		text = "`" + text + "`"
	}
	if on, _ := styles["bold"].(bool); on {
		text = "**" + text + "**"
	}
	if on, _ := styles["italic"].(bool); on {
		text = "*" + text + "*"
	}
	if on, _ := styles["strike"].(bool); on {
		text = "~~" + text + "~~"
	}
	return text
}
