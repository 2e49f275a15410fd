// internal/notify/notifier.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"content-testing-workers/internal/common/logger"
	"content-testing-workers/internal/contenttest"
)

var ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")

// Publisher posts to a topic, see aws.SNSClient.
type Publisher interface {
	Publish(ctx context.Context, subject, message string, attrs map[string]string) (string, error)
}

// Mailer sends plain text mail, see aws.SESClient.
type Mailer interface {
	SendText(ctx context.Context, to []string, subject, body string) (string, error)
}

// Notifier reports runs that did not pass over every configured channel.
type Notifier struct {
	publisher  Publisher
	mailer     Mailer
	recipients []string
	logger     logger.Logger
}

type Option func(*Notifier)

func WithPublisher(p Publisher) Option {
	return func(n *Notifier) { n.publisher = p }
}

func WithMailer(m Mailer, recipients []string) Option {
	return func(n *Notifier) {
		n.mailer = m
		n.recipients = recipients
	}
}

func New(log logger.Logger, opts ...Option) *Notifier {
	n := &Notifier{logger: log.WithFields(map[string]interface{}{"component": "notify"})}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NotifyFailure tries every channel and returns the joined failures.
func (n *Notifier) NotifyFailure(ctx context.Context, result contenttest.RunResult) error {
	subject := Subject(result)
	body := Body(result)
	var errs []error

	if n.publisher != nil {
		id, err := n.publisher.Publish(ctx, subject, body, map[string]string{
			"verdict":         string(result.Verdict),
			"problemLocation": result.ProblemLocation,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: sns: %v", ErrNotificationSendFailed, err))
		} else {
			n.logger.Debug("failure published", map[string]interface{}{"testId": result.TestID, "messageId": id})
		}
	}

	if n.mailer != nil && len(n.recipients) > 0 {
		id, err := n.mailer.SendText(ctx, n.recipients, subject, body)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: ses: %v", ErrNotificationSendFailed, err))
		} else {
			n.logger.Debug("failure mailed", map[string]interface{}{"testId": result.TestID, "messageId": id})
		}
	}

	return errors.Join(errs...)
}

func Subject(r contenttest.RunResult) string {
	return fmt.Sprintf("[content test %s] %s", r.Verdict, r.ProblemLocation)
}

// Body lists the answers in input id order so repeated runs diff cleanly.
func Body(r contenttest.RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Test:     %s\n", r.TestID)
	fmt.Fprintf(&b, "Problem:  %s\n", r.ProblemLocation)
	fmt.Fprintf(&b, "Expected: %s\n", r.ShouldBe)
	fmt.Fprintf(&b, "Verdict:  %s\n", r.Verdict)
	fmt.Fprintf(&b, "Run:      %s at %s\n", r.RunID, r.RanAt.Format("2006-01-02 15:04:05 MST"))
	if r.GradingError != "" {
		fmt.Fprintf(&b, "Error:    %s\n", r.GradingError)
	}

	ids := r.Answers.Keys()
	if len(ids) > 0 {
		b.WriteString("\nAnswers:\n")
	}
	for _, id := range ids {
		line := fmt.Sprintf("  %s = %q", id, r.Answers[id])
		if g, ok := r.Grades[id]; ok {
			line += " (" + g.Correctness + ")"
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
