package ingest

import (
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pageContent returns the decoded content stream of one page. Pages without
// a content stream yield an empty slice.
func pageContent(ctx *model.Context, pageNr int) ([]byte, error) {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	return io.ReadAll(r)
}

// decodePageText recovers the text shown by a page's content stream. It
// reads the literal strings fed to the Tj, ' , " and TJ operators and treats
// the line-moving operators as line breaks. Hex strings are skipped: without
// the font's cmap their bytes are not text.
func decodePageText(content []byte) string {
	var out strings.Builder
	var pending []string

	i := 0
	n := len(content)
	for i < n {
		c := content[i]
		switch {
		case c == '(':
			lit, next := readLiteralString(content, i)
			pending = append(pending, lit)
			i = next
		case c == '<':
			i = skipHexOrDict(content, i)
		case c == '[':
			i++
		case c == ']':
			i++
		case c == '%':
			i = skipComment(content, i)
		case isDelimiter(c):
			i++
		default:
			op, next := readToken(content, i)
			i = next
			switch op {
			case "Tj", "TJ", "'", "\"":
				if op == "'" || op == "\"" {
					// ' and " move to the next line before showing text
					out.WriteByte('\n')
				}
				for _, lit := range pending {
					out.WriteString(lit)
				}
				pending = pending[:0]
			case "Td", "TD", "T*":
				out.WriteByte('\n')
			case "BT":
				pending = pending[:0]
			}
		}
	}
	return strings.TrimSpace(out.String())
}

// readLiteralString parses a PDF literal string starting at the opening
// paren, handling nesting, escapes and octal codes.
func readLiteralString(content []byte, start int) (string, int) {
	var sb strings.Builder
	depth := 0
	i := start
	for i < len(content) {
		c := content[i]
		switch c {
		case '\\':
			if i+1 >= len(content) {
				return sb.String(), i + 1
			}
			i++
			switch e := content[i]; e {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'b', 'f':
				// ignored control glyphs
			case '(', ')', '\\':
				sb.WriteByte(e)
			case '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					code := int(e - '0')
					for k := 0; k < 2 && i+1 < len(content); k++ {
						next := content[i+1]
						if next < '0' || next > '7' {
							break
						}
						code = code*8 + int(next-'0')
						i++
					}
					sb.WriteByte(byte(code))
				}
			}
			i++
		case '(':
			if depth > 0 {
				sb.WriteByte(c)
			}
			depth++
			i++
		case ')':
			depth--
			if depth == 0 {
				return sb.String(), i + 1
			}
			sb.WriteByte(c)
			i++
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String(), i
}

func skipHexOrDict(content []byte, start int) int {
	if start+1 < len(content) && content[start+1] == '<' {
		// dictionary: skip the "<<"; its tokens are consumed individually
		return start + 2
	}
	for i := start + 1; i < len(content); i++ {
		if content[i] == '>' {
			return i + 1
		}
	}
	return len(content)
}

func skipComment(content []byte, start int) int {
	for i := start; i < len(content); i++ {
		if content[i] == '\n' || content[i] == '\r' {
			return i + 1
		}
	}
	return len(content)
}

func readToken(content []byte, start int) (string, int) {
	i := start
	for i < len(content) && !isDelimiter(content[i]) &&
		content[i] != '(' && content[i] != '<' && content[i] != '[' &&
		content[i] != ']' && content[i] != '%' {
		i++
	}
	if i == start {
		return "", start + 1
	}
	return string(content[start:i]), i
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0, '>', '/':
		return true
	}
	return false
}
