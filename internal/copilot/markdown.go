package copilot

import (
	"html/template"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BlockKind classifies one line of assistant text.
type BlockKind int

const (
	BlockBreak BlockKind = iota
	BlockBullet
	BlockNumbered
	BlockParagraph
)

// Span is a run of inline text, optionally bold.
type Span struct {
	Text string
	Bold bool
}

// Block is one rendered line.
type Block struct {
	Kind   BlockKind
	Number string
	Spans  []Span
}

var (
	boldRe     = regexp.MustCompile(`\*\*(.*?)\*\*`)
	numberedRe = regexp.MustCompile(`^(\d+)\.\s+(.*)`)
)

// ParseMarkdown splits text into line blocks. Only the small subset the
// assistant uses is understood: blank lines, "•" bullets, "N." items and
// **bold** spans.
func ParseMarkdown(text string) []Block {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	out := make([]Block, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			out = append(out, Block{Kind: BlockBreak})
		case strings.HasPrefix(trimmed, "•"):
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "•"))
			out = append(out, Block{Kind: BlockBullet, Spans: Inline(rest)})
		default:
			if m := numberedRe.FindStringSubmatch(trimmed); m != nil {
				out = append(out, Block{Kind: BlockNumbered, Number: m[1], Spans: Inline(m[2])})
				continue
			}
			out = append(out, Block{Kind: BlockParagraph, Spans: Inline(line)})
		}
	}
	return out
}

// Inline splits s into plain and bold spans.
func Inline(s string) []Span {
	var out []Span
	cur := 0
	for _, loc := range boldRe.FindAllStringSubmatchIndex(s, -1) {
		if loc[0] > cur {
			out = append(out, Span{Text: s[cur:loc[0]]})
		}
		out = append(out, Span{Text: s[loc[2]:loc[3]], Bold: true})
		cur = loc[1]
	}
	if cur < len(s) {
		out = append(out, Span{Text: s[cur:]})
	}
	if len(out) == 0 {
		out = append(out, Span{Text: s})
	}
	return out
}

// HTML renders text as escaped HTML.
func HTML(text string) template.HTML {
	var b strings.Builder
	for _, blk := range ParseMarkdown(text) {
		switch blk.Kind {
		case BlockBreak:
			b.WriteString("<br>")
		case BlockBullet:
			b.WriteString(`<div class="md-item"><span class="md-mark">•</span><span>`)
			writeSpansHTML(&b, blk.Spans)
			b.WriteString("</span></div>")
		case BlockNumbered:
			b.WriteString(`<div class="md-item"><span class="md-mark md-num">`)
			b.WriteString(template.HTMLEscapeString(blk.Number))
			b.WriteString(".</span><span>")
			writeSpansHTML(&b, blk.Spans)
			b.WriteString("</span></div>")
		default:
			b.WriteString("<div>")
			writeSpansHTML(&b, blk.Spans)
			b.WriteString("</div>")
		}
	}
	return template.HTML(b.String()) //nolint:gosec // every span is escaped above
}

func writeSpansHTML(b *strings.Builder, spans []Span) {
	for _, s := range spans {
		if s.Bold {
			b.WriteString("<strong>")
			b.WriteString(template.HTMLEscapeString(s.Text))
			b.WriteString("</strong>")
			continue
		}
		b.WriteString(template.HTMLEscapeString(s.Text))
	}
}

var (
	boldStyle   = lipgloss.NewStyle().Bold(true)
	markStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	numberStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Bold(true)
)

// Terminal renders text for a terminal, with bold spans styled.
func Terminal(text string) string {
	blocks := ParseMarkdown(text)
	lines := make([]string, 0, len(blocks))
	for _, blk := range blocks {
		switch blk.Kind {
		case BlockBreak:
			lines = append(lines, "")
		case BlockBullet:
			lines = append(lines, "  "+markStyle.Render("•")+" "+spansTerminal(blk.Spans))
		case BlockNumbered:
			lines = append(lines, "  "+numberStyle.Render(blk.Number+".")+" "+spansTerminal(blk.Spans))
		default:
			lines = append(lines, spansTerminal(blk.Spans))
		}
	}
	return strings.Join(lines, "\n")
}

func spansTerminal(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		if s.Bold {
			b.WriteString(boldStyle.Render(s.Text))
			continue
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// Plain strips markup, for logs and non-terminal output.
func Plain(text string) string {
	return boldRe.ReplaceAllString(text, "$1")
}
