package pdf

import (
	"bytes"
	"fmt"
)

// buildPDF writes a minimal single-font PDF with one page per entry. Each page
// entry is a list of text lines; an empty list produces a page with an empty
// content stream, like a scanned page without a text layer.
func buildPDF(pages [][]string) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) int {
		offsets = append(offsets, buf.Len())
		id := len(offsets)
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", id, body)
		return id
	}

	buf.WriteString("%PDF-1.4\n")

	// Object ids are fixed up front: 1 catalog, 2 pages, 3 font, then
	// (page, contents) pairs.
	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 4+2*i)
	}

	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, lines := range pages {
		contentsID := 5 + 2*i
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", contentsID))

		var stream bytes.Buffer
		if len(lines) > 0 {
			stream.WriteString("BT\n/F1 12 Tf\n14 TL\n72 720 Td\n")
			for _, line := range lines {
				fmt.Fprintf(&stream, "(%s) Tj\nT*\n", line)
			}
			stream.WriteString("ET")
		}
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", stream.Len(), stream.String()))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}
