// Package notify announces finished builds over NATS so that serving
// processes can drop their cached artifacts.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/docbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/docbundle/internal/logfields"
)

// UpdateEvent is published after a build wrote new artifacts.
type UpdateEvent struct {
	BuildID        string    `json:"build_id"`
	GeneratedAt    time.Time `json:"generated_at"`
	Mode           string    `json:"mode"`
	ChangedFolders []string  `json:"changed_folders,omitempty"`
	Documents      int       `json:"documents"`
	Source         string    `json:"source,omitempty"`
}

// Notifier publishes and receives update events.
type Notifier interface {
	Updated(ctx context.Context, ev UpdateEvent) error
	// Subscribe calls fn for every event published by other processes until
	// ctx is done.
	Subscribe(ctx context.Context, fn func(UpdateEvent)) error
	Close() error
}

// Noop is used when no broker is configured.
type Noop struct{}

func (Noop) Updated(context.Context, UpdateEvent) error         { return nil }
func (Noop) Subscribe(context.Context, func(UpdateEvent)) error { return nil }
func (Noop) Close() error                                       { return nil }

// conn is the subset of *nats.Conn the notifier uses.
type conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATS publishes update events on a core NATS subject.
type NATS struct {
	conn    conn
	subject string
	source  string
}

// New returns a NATS notifier for url, or Noop when url is empty.
func New(url, subject string) (Notifier, error) {
	if url == "" {
		return Noop{}, nil
	}
	nc, err := nats.Connect(url,
		nats.Name("docbundle"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", logfields.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, errors.NewError(errors.CategoryNotify, "failed to connect to NATS").
			WithCause(err).
			WithContext("url", url).
			Retryable().
			Build()
	}
	slog.Info("NATS notifier connected", slog.String("url", url), slog.String("subject", subject))
	return newNATS(nc, subject), nil
}

func newNATS(c conn, subject string) *NATS {
	return &NATS{conn: c, subject: subject, source: uuid.NewString()}
}

// Updated publishes ev and flushes so the event is on the wire before a
// short-lived build process exits.
func (n *NATS) Updated(ctx context.Context, ev UpdateEvent) error {
	ev.Source = n.source
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal update event: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return errors.NewError(errors.CategoryNotify, "failed to publish update").
			WithCause(err).
			WithContext("subject", n.subject).
			Build()
	}

	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := n.conn.FlushWithContext(flushCtx); err != nil {
		return errors.NewError(errors.CategoryNotify, "failed to flush update").
			WithCause(err).
			Build()
	}
	slog.Debug("Published update event", logfields.BuildID(ev.BuildID), slog.String("subject", n.subject))
	return nil
}

// Subscribe delivers events from other processes to fn. Events this
// notifier published itself are skipped.
func (n *NATS) Subscribe(ctx context.Context, fn func(UpdateEvent)) error {
	sub, err := n.conn.Subscribe(n.subject, func(msg *nats.Msg) {
		var ev UpdateEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			slog.Warn("Ignoring malformed update event", logfields.Error(err))
			return
		}
		if ev.Source == n.source {
			return
		}
		fn(ev)
	})
	if err != nil {
		return errors.NewError(errors.CategoryNotify, "failed to subscribe").
			WithCause(err).
			WithContext("subject", n.subject).
			Build()
	}

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil {
			slog.Debug("Unsubscribe failed", logfields.Error(err))
		}
	}()
	return nil
}

// Close closes the connection.
func (n *NATS) Close() error {
	n.conn.Close()
	return nil
}
