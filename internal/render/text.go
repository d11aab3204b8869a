package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"cv-tailor-backend/internal/llm"
)

// maxLineWidth is the wrap width, in characters, for directly drawn text.
const maxLineWidth = 90

const (
	titleFontSize   = 16.0
	headingFontSize = 12.0
	bodyFontSize    = 10.5
	lineHeight      = 0.22
)

// document is a minimal layout synthesized for responses that arrive without
// their own markup.
type document struct {
	title    string
	sections []section
}

type section struct {
	heading    string
	paragraphs []string
	bullets    []string
}

func analysisDocument(analysis *llm.StructuredAnalysis) document {
	doc := document{title: "Resume Match Report"}
	if analysis == nil {
		return doc
	}

	doc.sections = append(doc.sections, section{
		heading:    "Match Score",
		paragraphs: []string{fmt.Sprintf("%d / 100", analysis.Score)},
	})
	if len(analysis.KeySkills) > 0 {
		doc.sections = append(doc.sections, section{heading: "Key Skills", bullets: analysis.KeySkills})
	}
	if len(analysis.MissingSkills) > 0 {
		doc.sections = append(doc.sections, section{heading: "Missing Skills", bullets: analysis.MissingSkills})
	}
	if strings.TrimSpace(analysis.Recommendations) != "" {
		doc.sections = append(doc.sections, section{
			heading:    "Recommendations",
			paragraphs: splitParagraphs(analysis.Recommendations),
		})
	}
	if strings.TrimSpace(analysis.ImprovedText) != "" {
		doc.sections = append(doc.sections, section{
			heading:    "Improved Resume Text",
			paragraphs: splitParagraphs(analysis.ImprovedText),
		})
	}
	return doc
}

func textDocument(text string) document {
	return document{
		title: "Resume Recommendations",
		sections: []section{
			{paragraphs: splitParagraphs(text)},
		},
	}
}

// renderDocument draws the synthesized layout straight into paged PDF output.
func (r *Renderer) renderDocument(ctx context.Context, doc document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "in", r.pageName, "")
	pdf.SetMargins(r.margin, r.margin, r.margin)
	pdf.SetAutoPageBreak(true, r.margin)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", titleFontSize)
	pdf.CellFormat(0, lineHeight*1.6, tr(doc.title), "", 1, "L", false, 0, "")
	pdf.Ln(lineHeight * 0.5)

	for _, sec := range doc.sections {
		if sec.heading != "" {
			pdf.SetFont("Helvetica", "B", headingFontSize)
			pdf.CellFormat(0, lineHeight*1.3, tr(sec.heading), "", 1, "L", false, 0, "")
		}
		pdf.SetFont("Helvetica", "", bodyFontSize)
		for _, para := range sec.paragraphs {
			for _, line := range wrapText(para, maxLineWidth) {
				pdf.CellFormat(0, lineHeight, tr(line), "", 1, "L", false, 0, "")
			}
			pdf.Ln(lineHeight * 0.4)
		}
		for _, item := range sec.bullets {
			lines := wrapText(item, maxLineWidth-2)
			for i, line := range lines {
				prefix := "- "
				if i > 0 {
					prefix = "  "
				}
				pdf.CellFormat(0, lineHeight, tr(prefix+line), "", 1, "L", false, 0, "")
			}
		}
		pdf.Ln(lineHeight * 0.6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// wrapText wraps text at the given width without ever splitting a single
// unbreakable token: a token longer than the width gets its own line.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) <= width {
			current += " " + word
			continue
		}
		lines = append(lines, current)
		current = word
	}
	lines = append(lines, current)
	return lines
}

// splitParagraphs breaks free text on blank lines, collapsing internal
// newlines so wrapping controls the layout.
func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, chunk := range strings.Split(normalized, "\n\n") {
		joined := strings.Join(strings.Fields(chunk), " ")
		if joined != "" {
			out = append(out, joined)
		}
	}
	return out
}
