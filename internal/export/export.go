package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	fontName  = "Calibri"
	fontSize  = 11
	textWidth = 80
)

// ValidFormat reports whether format is one Write understands.
func ValidFormat(format string) bool {
	switch format {
	case FormatMarkdown, FormatText, FormatDocx:
		return true
	}
	return false
}

// Write renders doc into dir/fileName in the given format and returns the
// path written.
func Write(doc Document, format, dir, fileName string) (string, error) {
	format = strings.ToLower(format)
	if !ValidFormat(format) {
		return "", fmt.Errorf("unsupported export format %q", format)
	}
	path := filepath.Join(dir, fileName)

	switch format {
	case FormatDocx:
		if err := writeDocx(doc, path); err != nil {
			return "", fmt.Errorf("write docx: %w", err)
		}
	default:
		var content []byte
		if format == FormatMarkdown {
			content = RenderMarkdown(doc)
		} else {
			content = RenderText(doc)
		}
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", format, err)
		}
	}
	return path, nil
}

func RenderMarkdown(doc Document) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", title(doc))
	if doc.YouTubeURL != "" {
		fmt.Fprintf(&b, "- Source: <%s>\n", doc.YouTubeURL)
	}
	for _, line := range metaLines(doc) {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	b.WriteString("\n## Summary\n\n")
	b.WriteString(doc.Summary)
	b.WriteString("\n")
	return b.Bytes()
}

func RenderText(doc Document) []byte {
	var b bytes.Buffer
	t := title(doc)
	b.WriteString(t + "\n")
	b.WriteString(strings.Repeat("=", len([]rune(t))) + "\n\n")
	if doc.YouTubeURL != "" {
		fmt.Fprintf(&b, "Source: %s\n", doc.YouTubeURL)
	}
	for _, line := range metaLines(doc) {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	for _, line := range wrap(doc.Summary, textWidth) {
		b.WriteString(line + "\n")
	}
	return b.Bytes()
}

func writeDocx(doc Document, path string) error {
	d, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	addRun(d.AddParagraph(""), title(doc), true, 16)
	if doc.YouTubeURL != "" {
		addRun(d.AddParagraph(""), "Source: "+doc.YouTubeURL, false, 9)
	}
	for _, line := range metaLines(doc) {
		addRun(d.AddParagraph(""), line, false, 9)
	}
	d.AddParagraph("")
	addRun(d.AddParagraph(""), "Summary", true, 13)
	addRun(d.AddParagraph(""), doc.Summary, false, fontSize)

	return d.SaveTo(path)
}

func addRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}

func title(doc Document) string {
	if doc.Title != "" {
		return doc.Title
	}
	if doc.VideoID != "" {
		return "Summary of " + doc.VideoID
	}
	return "Video summary"
}

func metaLines(doc Document) []string {
	var lines []string
	if !doc.CreatedAt.IsZero() {
		lines = append(lines, "Created: "+doc.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))
	}
	if doc.Model != "" {
		model := doc.Model
		if doc.Backend != "" {
			model = doc.Backend + " / " + doc.Model
		}
		lines = append(lines, "Model: "+model)
	}
	if doc.ChunkCount > 0 {
		lines = append(lines, fmt.Sprintf("Chunks: %d", doc.ChunkCount))
	}
	return lines
}

// wrap breaks text into lines of at most width runes where word lengths
// allow it.
func wrap(text string, width int) []string {
	var lines []string
	var cur strings.Builder
	curLen := 0
	for _, word := range strings.Fields(text) {
		n := len([]rune(word))
		if curLen > 0 && curLen+1+n > width {
			lines = append(lines, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += n
	}
	if curLen > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
