package sandbox

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	pdfLineHeight = 14
	pdfTop        = 800
	pdfBottom     = 50
	pdfWrap       = 90
)

// renderTranscript lays a conversation out as a single-font PDF.
func renderTranscript(title string, msgs []ChatMessage) []byte {
	lines := []string{title, ""}
	for _, m := range msgs {
		prefix := roleLabel(m.Role) + ": "
		for i, l := range wrap(prefix+m.Content, pdfWrap) {
			if i > 0 {
				l = "    " + l
			}
			lines = append(lines, l)
		}
		lines = append(lines, "")
	}

	perPage := (pdfTop - pdfBottom) / pdfLineHeight
	var pages [][]string
	for len(lines) > 0 {
		n := min(perPage, len(lines))
		pages = append(pages, lines[:n])
		lines = lines[n:]
	}
	return writePDF(pages)
}

func roleLabel(role string) string {
	if role == "" {
		return "Unknown"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

func wrap(s string, width int) []string {
	var out []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) > width {
				out = append(out, line)
				line = w
				continue
			}
			line += " " + w
		}
		out = append(out, line)
	}
	return out
}

func escapePDF(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	var b strings.Builder
	for _, c := range s {
		if c < 32 || c > 126 {
			c = '?'
		}
		b.WriteRune(c)
	}
	return r.Replace(b.String())
}

// writePDF emits objects 1 (catalog), 2 (pages), 3 (font), then a page
// and a content stream per page.
func writePDF(pages [][]string) []byte {
	var objs []string
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	)
	for i, lines := range pages {
		var content bytes.Buffer
		fmt.Fprintf(&content, "BT /F1 11 Tf %d TL 50 %d Td\n", pdfLineHeight, pdfTop)
		for _, l := range lines {
			fmt.Fprintf(&content, "(%s) Tj T*\n", escapePDF(l))
		}
		content.WriteString("ET")
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}
