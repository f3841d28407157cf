package mailbox

import (
	"os"
	"path/filepath"
	"strings"
)

// TextImporter handles .txt, .eml, and any unrecognized text format: a block
// of "Header: value" lines, a blank line, then the decoded body. Recognized
// headers are From, Subject, Date, and Message-Id; anything else is ignored.
type TextImporter struct{}

// CanHandle returns true for text extensions. Also acts as fallback.
func (t *TextImporter) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".eml", ".msg", ".html", ".htm", "":
		return true
	}
	return false
}

// Import parses one message per file.
func (t *TextImporter) Import(path string) ([]*Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	msg := &Message{}
	lines := strings.Split(content, "\n")
	bodyStart := 0

headers:
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			bodyStart = i + 1
			break
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			// Not a header line: everything from here on is body.
			bodyStart = i
			break
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "from":
			msg.From = value
		case "subject":
			msg.Subject = value
		case "date":
			msg.Date = parseDate(value)
		case "message-id":
			msg.ID = strings.Trim(value, "<>")
		default:
			// Unknown key means the header block ended and the body began.
			bodyStart = i
			break headers
		}
		bodyStart = i + 1
	}

	msg.Body = strings.TrimSpace(strings.Join(lines[bodyStart:], "\n"))
	return []*Message{msg}, nil
}
