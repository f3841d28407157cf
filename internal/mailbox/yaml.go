package mailbox

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLImporter handles .yaml and .yml mailbox exports. Multi-document files
// (separated by ---) produce one message per document; a document may also
// hold a "messages" list.
type YAMLImporter struct{}

// CanHandle returns true for YAML file extensions.
func (y *YAMLImporter) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

type yamlMessage struct {
	ID      string `yaml:"id"`
	From    string `yaml:"from"`
	Subject string `yaml:"subject"`
	Date    string `yaml:"date"`
	Body    string `yaml:"body"`
	HTML    string `yaml:"html"`

	Messages []yamlMessage `yaml:"messages"`
}

// Import parses a YAML export file.
func (y *YAMLImporter) Import(path string) ([]*Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	var messages []*Message
	docNum := 0

	for {
		var doc yamlMessage
		err := decoder.Decode(&doc)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("invalid YAML (document %d): %w", docNum+1, err)
		}
		docNum++

		if len(doc.Messages) > 0 {
			for _, m := range doc.Messages {
				messages = append(messages, m.toMessage())
			}
			continue
		}
		if doc.From == "" && doc.Subject == "" && doc.Body == "" && doc.HTML == "" {
			continue
		}
		messages = append(messages, doc.toMessage())
	}

	return messages, nil
}

func (m yamlMessage) toMessage() *Message {
	body := m.Body
	if body == "" && m.HTML != "" {
		body = NormalizeHTML(m.HTML)
	}
	msg := &Message{
		ID:      m.ID,
		From:    m.From,
		Subject: m.Subject,
		Body:    body,
	}
	if m.Date != "" {
		msg.Date = parseDate(m.Date)
	}
	return msg
}
