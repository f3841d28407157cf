// Package process runs the mailorder pipeline: mailbox messages go through
// the extraction engine and accepted orders land in the store. Each message
// is handled independently; a rejection or a store failure never aborts the
// batch.
package process

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hurttlocker/mailorder/internal/mailbox"
	"github.com/hurttlocker/mailorder/internal/parse"
	"github.com/hurttlocker/mailorder/internal/store"
)

// Processor ties the mail source, the extraction engine and the order store
// together for one account.
type Processor struct {
	engine  *parse.Engine
	store   store.Store
	account string
}

// Options configures a processing run.
type Options struct {
	DryRun     bool
	ProgressFn func(current, total int, subject string)
}

// Result summarizes a processing run.
type Result struct {
	Total    int
	Parsed   int
	Rejected int
	Skipped  int
	Failed   int
	Errors   []ProcessError
}

// ProcessError records a non-fatal error during processing.
type ProcessError struct {
	MessageID string
	Message   string
}

// Add merges another Result into this one.
func (r *Result) Add(other *Result) {
	r.Total += other.Total
	r.Parsed += other.Parsed
	r.Rejected += other.Rejected
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}

// NewProcessor creates a pipeline for one account.
func NewProcessor(engine *parse.Engine, s store.Store, account string) *Processor {
	if engine == nil {
		engine = parse.NewEngine(nil)
	}
	return &Processor{engine: engine, store: s, account: account}
}

// ProcessMessages runs the pipeline over a batch of messages. Messages seen
// in a previous run are skipped; the rest are parsed and either stored or
// logged as rejected. Store failures are recorded per message and the batch
// continues.
func (p *Processor) ProcessMessages(ctx context.Context, msgs []*mailbox.Message, opts Options) (*Result, error) {
	result := &Result{Total: len(msgs)}

	for i, msg := range msgs {
		if opts.ProgressFn != nil {
			opts.ProgressFn(i+1, len(msgs), msg.Subject)
		}

		done, err := p.store.IsMessageProcessed(ctx, p.account, msg.ID)
		if err != nil {
			return result, fmt.Errorf("checking message %s: %w", msg.ID, err)
		}
		if done {
			result.Skipped++
			continue
		}

		rec, ok := p.engine.Parse(msg.From, msg.Subject, msg.Body)
		if !ok {
			result.Rejected++
			if opts.DryRun {
				continue
			}
			if err := p.store.LogMessage(ctx, &store.MessageLog{
				Account:   p.account,
				MessageID: msg.ID,
				Outcome:   store.OutcomeRejected,
				Note:      "no usable order found",
			}); err != nil {
				result.fail(msg.ID, err)
			}
			continue
		}

		if opts.DryRun {
			result.Parsed++
			continue
		}

		order := toStoreOrder(rec)
		if _, err := p.store.UpsertOrder(ctx, p.account, order); err != nil {
			result.fail(msg.ID, err)
			logErr := p.store.LogMessage(ctx, &store.MessageLog{
				Account:   p.account,
				MessageID: msg.ID,
				Outcome:   store.OutcomeError,
				Note:      err.Error(),
			})
			if logErr != nil {
				result.fail(msg.ID, logErr)
			}
			continue
		}

		if err := p.store.LogMessage(ctx, &store.MessageLog{
			Account:     p.account,
			MessageID:   msg.ID,
			Outcome:     store.OutcomeParsed,
			OrderNumber: rec.OrderNumber,
		}); err != nil {
			result.fail(msg.ID, err)
			continue
		}
		result.Parsed++
	}

	return result, nil
}

// ProcessPath loads a file or directory of mailbox exports and processes it.
func (p *Processor) ProcessPath(ctx context.Context, path string, recursive bool, opts Options) (*Result, error) {
	msgs, loadErrs := loadPath(path, recursive)

	result, err := p.ProcessMessages(ctx, msgs, opts)
	if result != nil {
		for _, le := range loadErrs {
			result.Failed++
			result.Errors = append(result.Errors, ProcessError{Message: le.Error()})
		}
	}
	return result, err
}

func loadPath(path string, recursive bool) ([]*mailbox.Message, []error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, []error{err}
	}
	if fi.IsDir() {
		return mailbox.LoadDir(path, mailbox.LoadOptions{Recursive: recursive})
	}
	msgs, err := mailbox.LoadFile(path)
	if err != nil {
		return nil, []error{err}
	}
	return msgs, nil
}

func (r *Result) fail(messageID string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, ProcessError{MessageID: messageID, Message: err.Error()})
}

// FormatResult renders a processing summary for the CLI.
func FormatResult(r *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Processed %d messages: %d parsed, %d rejected, %d skipped", r.Total, r.Parsed, r.Rejected, r.Skipped)
	if r.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", r.Failed)
	}
	b.WriteString("\n")
	for _, e := range r.Errors {
		if e.MessageID != "" {
			fmt.Fprintf(&b, "  %s: %s\n", e.MessageID, e.Message)
		} else {
			fmt.Fprintf(&b, "  %s\n", e.Message)
		}
	}
	return b.String()
}

func toStoreOrder(rec *parse.OrderRecord) *store.Order {
	o := &store.Order{
		OrderNumber: rec.OrderNumber,
		Vendor:      rec.Vendor,
		Total:       rec.Total,
		OrderDate:   rec.OrderDate,
	}
	for _, item := range rec.Items {
		o.Items = append(o.Items, store.OrderItem{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return o
}
