package parse

import (
	"regexp"
	"strings"
	"time"
)

// ConfidenceReport holds independent [0,1] completeness estimates plus their
// unweighted mean. The report is advisory triage metadata for downstream
// consumers (e.g. routing low-confidence extractions to manual review); it
// never gates acceptance, which is governed solely by validation.
type ConfidenceReport struct {
	OrderNumber float64 `json:"order_number"`
	Vendor      float64 `json:"vendor"`
	Items       float64 `json:"items"`
	Overall     float64 `json:"overall"`
}

// ParsedEmail is the enriched parsing result: the best-effort record with its
// confidence report and forwarding context, whether or not validation passed.
type ParsedEmail struct {
	MessageID      string           `json:"message_id,omitempty"`
	From           string           `json:"from"`
	Subject        string           `json:"subject"`
	ReceivedAt     time.Time        `json:"received_at"`
	Forwarded      bool             `json:"forwarded"`
	OriginalSender string           `json:"original_sender,omitempty"`
	Record         *OrderRecord     `json:"record"`
	Accepted       bool             `json:"accepted"`
	Confidence     ConfidenceReport `json:"confidence"`
}

// Order-number confidence steps at this captured length: ids this long or
// longer are unlikely to be accidental captures.
const confidentOrderNumberLen = 5

var forwardedSenderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)From:\s*[^\n<]*<(.+?)>`),
	regexp.MustCompile(`(?i)From:\s*([^\n<]+)`),
	regexp.MustCompile(`(?i)Sender:\s*[^\n<]*<(.+?)>`),
	regexp.MustCompile(`(?i)Sender:\s*([^\n<]+)`),
}

// ParseEmail runs the full pipeline and returns the enriched result. Unlike
// Parse, a record failing validation is still returned (with Accepted false)
// so callers can inspect what was extracted and why it scored low.
func (e *Engine) ParseEmail(id, sender, subject, body string, received time.Time) *ParsedEmail {
	rec, vp, haveOrderNumber, haveTotal := e.extract(sender, subject, body)

	forwarded := strings.Contains(strings.ToLower(subject), "fwd:")
	originalSender := ""
	if forwarded {
		originalSender = extractOriginalSender(body)
	}

	return &ParsedEmail{
		MessageID:      id,
		From:           sender,
		Subject:        subject,
		ReceivedAt:     received,
		Forwarded:      forwarded,
		OriginalSender: originalSender,
		Record:         rec,
		Accepted:       e.validate(rec, vp, haveOrderNumber, haveTotal),
		Confidence:     e.score(rec, sender, haveOrderNumber, vp != nil),
	}
}

// score computes the confidence report for a best-effort record.
func (e *Engine) score(rec *OrderRecord, sender string, haveOrderNumber, haveVendor bool) ConfidenceReport {
	var c ConfidenceReport

	if haveOrderNumber {
		if len(rec.OrderNumber) >= confidentOrderNumberLen {
			c.OrderNumber = 0.8
		} else {
			c.OrderNumber = 0.4
		}
	}

	if haveVendor {
		if e.allowlist[normalizeSender(sender)] {
			c.Vendor = 0.9
		} else {
			c.Vendor = 0.5
		}
	}

	if len(rec.Items) > 0 {
		complete := 0
		for _, item := range rec.Items {
			if item.Quantity > 0 && item.UnitPrice > 0 && item.Name != "" {
				complete++
			}
		}
		c.Items = float64(complete) / float64(len(rec.Items))
	}

	c.Overall = (c.OrderNumber + c.Vendor + c.Items) / 3
	return c
}

// extractOriginalSender pulls the original sender out of a forwarded body,
// preferring the bracketed address over the display name.
func extractOriginalSender(body string) string {
	for _, re := range forwardedSenderPatterns {
		if m := re.FindStringSubmatch(body); len(m) >= 2 {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func normalizeSender(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.Index(s, "<"); i >= 0 {
		if j := strings.Index(s[i:], ">"); j > 0 {
			return strings.TrimSpace(s[i+1 : i+j])
		}
	}
	return s
}
