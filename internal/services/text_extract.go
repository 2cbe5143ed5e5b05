package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

type documentFormat int

const (
	formatUnsupported documentFormat = iota
	formatText
	formatPDF
	formatDOCX
	formatDOC
	// formatUnknown means the stored type says nothing useful; sniff the content
	formatUnknown
)

const (
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeDOC  = "application/msword"

	// minPrintableRun is the shortest byte run kept when scanning legacy .doc files
	minPrintableRun = 8
)

func (f documentFormat) String() string {
	switch f {
	case formatText:
		return "text"
	case formatPDF:
		return "pdf"
	case formatDOCX:
		return "docx"
	case formatDOC:
		return "doc"
	case formatUnknown:
		return "unknown"
	default:
		return "unsupported"
	}
}

// classifyFormat decides from stored metadata whether a document's text can be extracted
func classifyFormat(fileType, fileName string) documentFormat {
	if f := formatFromMIME(fileType); f != formatUnknown {
		return f
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".txt", ".md", ".markdown":
		return formatText
	case ".pdf":
		return formatPDF
	case ".docx":
		return formatDOCX
	case ".doc":
		return formatDOC
	}
	return formatUnknown
}

func formatFromMIME(fileType string) documentFormat {
	mediaType, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(fileType)), ";")
	mediaType = strings.TrimSpace(mediaType)

	switch mediaType {
	case "", "application/octet-stream", "binary/octet-stream":
		return formatUnknown
	case "text/plain", "text/markdown", "text/x-markdown":
		return formatText
	case "application/pdf":
		return formatPDF
	case mimeDOCX:
		return formatDOCX
	case mimeDOC, "application/x-ole-storage":
		return formatDOC
	}
	return formatUnsupported
}

// sniffFormat detects the format from file content
func sniffFormat(data []byte) documentFormat {
	mtype := mimetype.Detect(data)
	for m := mtype; m != nil; m = m.Parent() {
		if f := formatFromMIME(m.String()); f != formatUnsupported && f != formatUnknown {
			return f
		}
	}
	return formatUnsupported
}

// extractText returns the plain text of a document in the given format
func extractText(format documentFormat, data []byte) (string, error) {
	var (
		text string
		err  error
	)

	switch format {
	case formatText:
		text = string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	case formatPDF:
		text, err = extractPDFText(data)
	case formatDOCX:
		text, err = extractDOCXText(data)
	case formatDOC:
		text = extractPrintableRuns(data)
	default:
		return "", fmt.Errorf("unsupported document format: %s", format)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(strings.ToValidUTF8(text, ""))
	if text == "" {
		return "", fmt.Errorf("no text content could be extracted from %s document", format)
	}
	return text, nil
}

func extractPDFText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	return buf.String(), nil
}

// extractDOCXText walks word/document.xml keeping text runs, tabs, breaks and paragraphs
func extractDOCXText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX archive: %w", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("DOCX archive has no word/document.xml")
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX body: %w", err)
	}
	defer rc.Close()

	var sb strings.Builder
	inText := false
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse DOCX body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

// extractPrintableRuns recovers text from legacy binary .doc files by keeping
// runs of printable ASCII. Formatting and non-Latin text are lost.
func extractPrintableRuns(data []byte) string {
	var (
		out strings.Builder
		run []byte
	)
	flush := func() {
		if len(bytes.TrimSpace(run)) >= minPrintableRun {
			out.Write(bytes.TrimSpace(run))
			out.WriteByte('\n')
		}
		run = run[:0]
	}

	for _, b := range data {
		if (b >= 0x20 && b < 0x7f) || b == '\t' || b == '\n' || b == '\r' {
			run = append(run, b)
			continue
		}
		flush()
	}
	flush()
	return out.String()
}
