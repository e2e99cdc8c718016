package slack

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/plaza-hq/rostersync/pkg/domain/model"
	"github.com/plaza-hq/rostersync/pkg/utils/async"
	"github.com/slack-go/slack"
)

// maxListedFailures bounds how many failing items a summary names
const maxListedFailures = 20

type passFailures struct {
	jobTitles []string
	users     []string
}

// Notifier posts to a channel when a pass fails to download the roster or
// finishes with per item failures. Successful passes are silent.
type Notifier struct {
	svc     Service
	channel string

	mu     sync.Mutex
	passes map[string]*passFailures

	inflight sync.WaitGroup
}

func NewNotifier(svc Service, channel string) *Notifier {
	return &Notifier{
		svc:     svc,
		channel: ResolveChannel(channel),
		passes:  make(map[string]*passFailures),
	}
}

// Consume handles events until the channel is closed or ctx is done
func (n *Notifier) Consume(ctx context.Context, events <-chan model.StatusEvent) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			n.Handle(ctx, ev)
		case <-ctx.Done():
			return
		}
	}
}

// Handle updates per pass bookkeeping and posts when a notification is due.
// Posting happens asynchronously so a slow Slack API never stalls the consumer.
func (n *Notifier) Handle(ctx context.Context, ev model.StatusEvent) {
	passID := ev.Meta().PassID

	switch e := ev.(type) {
	case model.RosterDownloadFailed:
		n.post(ctx, buildFailureMessage(
			"Roster download failed",
			passID,
			[]string{errorText(e.Err)},
			"The directory sync worker has stopped.",
		))

	case model.JobTitleSyncFailed:
		n.record(passID, func(f *passFailures) {
			f.jobTitles = append(f.jobTitles, fmt.Sprintf("job title `%s`: %s", e.Label, errorText(e.Err)))
		})

	case model.UserSyncFailed:
		n.record(passID, func(f *passFailures) {
			f.users = append(f.users, fmt.Sprintf("user %d (%s): %s", e.ExternalID, e.FullName, errorText(e.Err)))
		})

	case model.PassFinished:
		n.mu.Lock()
		f, ok := n.passes[passID]
		delete(n.passes, passID)
		n.mu.Unlock()

		if !ok {
			return
		}
		lines := append(append([]string{}, f.jobTitles...), f.users...)
		n.post(ctx, buildFailureMessage(
			"Directory sync finished with failures",
			passID,
			lines,
			fmt.Sprintf("%d job title(s) and %d user(s) failed; they will be retried on the next pass.",
				len(f.jobTitles), len(f.users)),
		))
	}
}

func (n *Notifier) record(passID string, fn func(f *passFailures)) {
	n.mu.Lock()
	defer n.mu.Unlock()

	f, ok := n.passes[passID]
	if !ok {
		f = &passFailures{}
		n.passes[passID] = f
	}
	fn(f)
}

type message struct {
	blocks []slack.Block
	text   string
}

func (n *Notifier) post(ctx context.Context, msg message) {
	n.inflight.Add(1)
	async.Dispatch(ctx, "slack_notify", func(ctx context.Context) error {
		defer n.inflight.Done()
		_, err := n.svc.PostMessage(ctx, n.channel, msg.blocks, msg.text)
		return err
	})
}

// Wait blocks until every post started by Handle has finished or ctx is done
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "slack notifications still in flight")
	}
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func buildFailureMessage(title, passID string, lines []string, footer string) message {
	var body strings.Builder
	for i, line := range lines {
		if i == maxListedFailures {
			fmt.Fprintf(&body, "…and %d more\n", len(lines)-maxListedFailures)
			break
		}
		fmt.Fprintf(&body, "• %s\n", line)
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, title, false, false)),
	}
	if body.Len() > 0 {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, truncateToMaxBytes(body.String(), maxSectionBytes), false, false),
			nil, nil,
		))
	}
	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("%s  pass `%s`", footer, passID), false, false),
	))

	return message{
		blocks: blocks,
		text:   fmt.Sprintf("%s (pass %s)", title, passID),
	}
}
