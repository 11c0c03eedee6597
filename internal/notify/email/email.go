// Package email delivers milestone notifications through shoutrrr service URLs
// (typically smtp://).
package email

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/JakeFAU/container-status-poller/internal/notify"
	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

// recipientParam overrides the SMTP recipient list per message.
const recipientParam = "toaddresses"

type sender interface {
	Send(message string, params *stypes.Params) []error
}

// Config controls the email channel.
type Config struct {
	URLs    []string
	Timeout time.Duration
	// PerWatchRecipient sends to the watch owner's address instead of the
	// recipients in the URL when the watch has one.
	PerWatchRecipient bool
}

// Notifier sends milestone emails.
type Notifier struct {
	cfg    Config
	sender sender
}

// New validates the service URLs and builds the sender.
func New(cfg Config) (*Notifier, error) {
	if len(cfg.URLs) == 0 {
		return nil, errors.New("at least one notify.email url is required")
	}
	router, err := shoutrrr.CreateSender(cfg.URLs...)
	if err != nil {
		return nil, fmt.Errorf("create shoutrrr sender: %w", err)
	}
	if cfg.Timeout > 0 {
		router.Timeout = cfg.Timeout
	}
	router.SetLogger(log.New(io.Discard, "", 0))
	return &Notifier{cfg: cfg, sender: router}, nil
}

func newWithSender(cfg Config, s sender) *Notifier {
	return &Notifier{cfg: cfg, sender: s}
}

// Name implements tracker.Notifier.
func (*Notifier) Name() string { return "email" }

// SendMilestoneNotification implements tracker.Notifier.
func (n *Notifier) SendMilestoneNotification(_ context.Context, msg tracker.MilestoneNotification) error {
	return n.send(notify.Subject(msg), notify.Body(msg), msg.Watch.UserEmail)
}

// SendTest delivers a connectivity check message to address.
func (n *Notifier) SendTest(_ context.Context, address string) error {
	if strings.TrimSpace(address) == "" {
		return errors.New("recipient address is required")
	}
	body := "Dies ist eine Testnachricht des Container-Status-Pollers.\n" +
		"Gesendet: " + tracker.FormatBerlin(ptr(time.Now())) + "\n"
	return n.sendTo("Container-Status-Poller: Testnachricht", body, address)
}

func (n *Notifier) send(subject, body, recipient string) error {
	if !n.cfg.PerWatchRecipient {
		recipient = ""
	}
	return n.sendTo(subject, body, recipient)
}

func (n *Notifier) sendTo(subject, body, recipient string) error {
	params := stypes.Params{}
	params.SetTitle(subject)
	if r := strings.TrimSpace(recipient); r != "" {
		params[recipientParam] = r
	}
	errs := n.sender.Send(body, &params)
	var joined []error
	for _, err := range errs {
		if err != nil {
			joined = append(joined, err)
		}
	}
	if len(joined) > 0 {
		return &tracker.NotifyError{Channel: "email", Err: errors.Join(joined...)}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
