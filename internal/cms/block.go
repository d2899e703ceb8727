package cms

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Block types understood by the renderer.
const (
	BlockParagraph = "paragraph"
	BlockHeading   = "heading"
	BlockList      = "list"
	BlockImage     = "image"
	BlockMarkdown  = "markdown"
)

// Block is one typed content block of a static page or a product description.
type Block struct {
	Type  string   `json:"type"`
	Text  string   `json:"text,omitempty"`
	Level int      `json:"level,omitempty"`
	Items []string `json:"items,omitempty"`
	Src   string   `json:"src,omitempty"`
	Alt   string   `json:"alt,omitempty"`
}

// UnmarshalJSON accepts the canonical shape plus the "content" alias some
// page documents use for paragraph text.
func (b *Block) UnmarshalJSON(data []byte) error {
	type plain Block
	var raw struct {
		plain
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Block(raw.plain)
	b.Type = strings.ToLower(strings.TrimSpace(b.Type))
	if b.Text == "" {
		b.Text = raw.Content
	}
	return nil
}

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	policy   = bluemonday.UGCPolicy()
)

// RenderMarkdown converts markdown to sanitized HTML.
func RenderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("cms: render markdown: %w", err)
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes())), nil
}

// Sanitize strips unsafe markup from trusted-looking HTML.
func Sanitize(raw string) template.HTML {
	return template.HTML(policy.Sanitize(raw))
}

// RenderBlocks renders blocks in order. Unknown block types are skipped.
func RenderBlocks(blocks []Block) (template.HTML, error) {
	var b strings.Builder
	for _, blk := range blocks {
		switch blk.Type {
		case BlockParagraph:
			fmt.Fprintf(&b, "<p>%s</p>", template.HTMLEscapeString(blk.Text))
		case BlockHeading:
			level := blk.Level
			if level < 2 || level > 6 {
				level = 2
			}
			fmt.Fprintf(&b, "<h%d>%s</h%d>", level, template.HTMLEscapeString(blk.Text), level)
		case BlockList:
			b.WriteString("<ul>")
			for _, it := range blk.Items {
				fmt.Fprintf(&b, "<li>%s</li>", template.HTMLEscapeString(it))
			}
			b.WriteString("</ul>")
		case BlockImage:
			if blk.Src == "" {
				continue
			}
			fmt.Fprintf(&b, `<img src="%s" alt="%s" loading="lazy">`,
				template.HTMLEscapeString(blk.Src), template.HTMLEscapeString(blk.Alt))
		case BlockMarkdown:
			h, err := RenderMarkdown(blk.Text)
			if err != nil {
				return "", err
			}
			b.WriteString(string(h))
		}
	}
	// image src values are escaped but not scheme-checked; run the result
	// through the policy so javascript: URLs never survive.
	return Sanitize(b.String()), nil
}
