package siri

import (
	"bytes"
	"encoding/xml"
	"strings"
	"unicode"
)

// Parse converts raw feed text into a Document. It never fails: producers
// occasionally submit placeholder or non-XML content for liveness checks, so
// unparsable input degrades to an empty document instead of erroring.
func Parse(data []byte) *Document {
	var doc Document
	if err := decode(data, &doc.Siri); err == nil {
		return &doc
	}

	// Some producers emit value-less boolean attributes, which strict XML
	// rejects. Retry once with those normalized.
	doc = Document{}
	if err := decode(quoteBareAttributes(data), &doc.Siri); err != nil {
		return &Document{}
	}
	return &doc
}

func decode(data []byte, v interface{}) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	return dec.Decode(v)
}

// quoteBareAttributes rewrites start tags so attributes without a value token
// (<Journey Monitored>) become well-formed (<Journey Monitored="true">).
// Only tag contents are touched; character data passes through untouched.
func quoteBareAttributes(data []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(data))

	inTag := false
	var quote byte
	var tag bytes.Buffer

	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case !inTag && c == '<':
			inTag = true
			tag.Reset()
			tag.WriteByte(c)
		case inTag && quote == 0 && (c == '"' || c == '\''):
			quote = c
			tag.WriteByte(c)
		case inTag && quote == c:
			quote = 0
			tag.WriteByte(c)
		case inTag && quote == 0 && c == '>':
			tag.WriteByte(c)
			out.WriteString(rewriteTag(tag.String()))
			inTag = false
		case inTag:
			tag.WriteByte(c)
		default:
			out.WriteByte(c)
		}
	}
	if inTag {
		// Unterminated tag; emit as-is and let the decoder reject it.
		out.Write(tag.Bytes())
	}
	return out.Bytes()
}

func rewriteTag(tag string) string {
	if len(tag) < 3 || strings.HasPrefix(tag, "<!") || strings.HasPrefix(tag, "<?") || strings.HasPrefix(tag, "</") {
		return tag
	}

	end := ">"
	body := tag[1 : len(tag)-1]
	if strings.HasSuffix(body, "/") {
		end = "/>"
		body = body[:len(body)-1]
	}

	fields := splitTagFields(body)
	if len(fields) <= 1 {
		return tag
	}

	parts := make([]string, 0, len(fields))
	parts = append(parts, fields[0])
	for _, f := range fields[1:] {
		if strings.Contains(f, "=") {
			parts = append(parts, f)
		} else {
			parts = append(parts, f+`="true"`)
		}
	}
	return "<" + strings.Join(parts, " ") + end
}

// splitTagFields splits a tag body on whitespace, keeping quoted attribute
// values intact.
func splitTagFields(body string) []string {
	var fields []string
	var cur strings.Builder
	var quote rune

	for _, r := range body {
		switch {
		case quote == 0 && (r == '"' || r == '\''):
			quote = r
			cur.WriteRune(r)
		case quote == r:
			quote = 0
			cur.WriteRune(r)
		case quote == 0 && unicode.IsSpace(r):
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields
}
