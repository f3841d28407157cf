package mailbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// JSONImporter handles .json mailbox exports: a single message object or an
// array of them.
type JSONImporter struct{}

// CanHandle returns true for JSON file extensions.
func (j *JSONImporter) CanHandle(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".json"
}

// jsonMessage tolerates the date as a string in any supported layout.
type jsonMessage struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
	Body    string `json:"body"`
	HTML    string `json:"html"`
}

// Import parses a JSON export file.
func (j *JSONImporter) Import(path string) ([]*Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}

	var raw []jsonMessage
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON array: %w", err)
		}
	} else {
		var one jsonMessage
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("invalid JSON object: %w", err)
		}
		raw = []jsonMessage{one}
	}

	messages := make([]*Message, 0, len(raw))
	for _, r := range raw {
		messages = append(messages, r.toMessage())
	}
	return messages, nil
}

func (r jsonMessage) toMessage() *Message {
	body := r.Body
	if body == "" && r.HTML != "" {
		body = NormalizeHTML(r.HTML)
	}
	var date time.Time
	if r.Date != "" {
		date = parseDate(r.Date)
	}
	return &Message{
		ID:      r.ID,
		From:    r.From,
		Subject: r.Subject,
		Date:    date,
		Body:    body,
	}
}
