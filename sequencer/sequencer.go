// Package sequencer drives one batch send run: registry order, one dispatch
// at a time, randomized pacing between contacts, cooperative stop.
package sequencer

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/cskr/pubsub"
	"github.com/dchest/uniuri"
	"github.com/dilshat/wa-sender/chat"
	"github.com/dilshat/wa-sender/log"
	"github.com/dilshat/wa-sender/model"
	"github.com/dilshat/wa-sender/registry"
	"github.com/osteele/liquid"
)

const (
	//pubsub topic for per-contact progress events
	PROGRESS = "progress"

	//granularity of the pacing wait, so a stop request takes effect
	//within about a second instead of only at the loop boundary
	paceSlice = time.Second
)

type InvalidConfigErr struct {
	message string
}

func (e *InvalidConfigErr) Error() string {
	return e.message
}

func NewInvalidConfigError(msg string) *InvalidConfigErr {
	return &InvalidConfigErr{message: msg}
}

type Payload struct {
	BodyTemplate    string
	Attachment      *chat.AttachmentRef
	AttachmentFirst bool
}

type Config struct {
	MinDelay     time.Duration
	MaxDelay     time.Duration
	AntiBan      bool
	AddTimestamp bool
}

type Summary struct {
	Sent   int
	Failed int
}

// Progress is published on the PROGRESS topic after every contact and once
// more when the run ends.
type Progress struct {
	Phone    string
	Status   string
	Category string
	Sent     int
	Failed   int
	Total    int
	Done     bool
	Stopped  bool
}

type Sequencer interface {
	//Run processes all PENDING contacts in registry order, one dispatch at
	//a time. Re-running only touches contacts still PENDING.
	Run(ctx context.Context, payload Payload, cfg Config) (Summary, error)
	//RequestStop asks a running batch to stop cooperatively; the in-flight
	//dispatch is not interrupted
	RequestStop()
}

func NewSequencer(reg registry.Registry, dispatcher chat.Dispatcher, session *chat.Session, events *pubsub.PubSub) Sequencer {
	return &sequencer{
		registry:   reg,
		dispatcher: dispatcher,
		session:    session,
		events:     events,
		engine:     liquid.NewEngine(),
	}
}

type sequencer struct {
	registry   registry.Registry
	dispatcher chat.Dispatcher
	session    *chat.Session
	events     *pubsub.PubSub
	engine     *liquid.Engine
	stop       atomic.Bool
}

func (s *sequencer) RequestStop() {
	s.stop.Store(true)
}

func (s *sequencer) Run(ctx context.Context, payload Payload, cfg Config) (Summary, error) {
	if cfg.MinDelay < 0 || cfg.MinDelay > cfg.MaxDelay {
		return Summary{}, NewInvalidConfigError("delay bounds must satisfy 0 <= min <= max")
	}

	s.stop.Store(false)

	contacts := s.registry.All()
	var summary Summary

	for i, contact := range contacts {
		if s.stopping(ctx) {
			break
		}
		if contact.Status != model.PENDING {
			continue
		}

		s.registry.SetStatus(contact.Phone, model.IN_PROGRESS, "")
		s.publish(Progress{Phone: contact.Phone, Status: model.IN_PROGRESS, Sent: summary.Sent, Failed: summary.Failed, Total: len(contacts)})

		body := s.renderBody(payload.BodyTemplate, contact, cfg)
		outcome := s.dispatcher.Dispatch(ctx, s.session, contact.Phone, body, payload.Attachment, payload.AttachmentFirst)

		status := model.SENT
		if outcome.Success {
			summary.Sent++
		} else {
			summary.Failed++
			status = model.FAILED
		}
		s.registry.SetStatus(contact.Phone, status, outcome.Category)
		s.publish(Progress{Phone: contact.Phone, Status: status, Category: outcome.Category, Sent: summary.Sent, Failed: summary.Failed, Total: len(contacts)})

		//only pace when another contact will actually be dispatched,
		//trailing skipped contacts do not earn a delay
		if anyPending(contacts[i+1:]) && !s.stopping(ctx) {
			s.pace(ctx, cfg)
		}
	}

	s.publish(Progress{Sent: summary.Sent, Failed: summary.Failed, Total: len(contacts), Done: true, Stopped: s.stopping(ctx)})

	return summary, nil
}

func (s *sequencer) renderBody(template string, contact model.Contact, cfg Config) string {
	bindings := map[string]interface{}{
		"phone": contact.Phone,
		"name":  contact.Name,
		"date":  time.Now().Format("02/01/2006"),
	}
	for name, value := range contact.Variables {
		bindings[name] = value
	}

	body, err := s.engine.ParseAndRenderString(template, bindings)
	if err != nil {
		log.Warn.Println("template render failed, sending raw text:", err)
		body = template
	}

	if cfg.AntiBan {
		body += "\n\n[ID: " + uniuri.NewLenChars(6, []byte("0123456789")) + "]"
	}
	if cfg.AddTimestamp {
		body += "\n\n" + time.Now().Format("02/01/2006 15:04")
	}

	return body
}

func (s *sequencer) pace(ctx context.Context, cfg Config) {
	delay := cfg.MinDelay
	if span := cfg.MaxDelay - cfg.MinDelay; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span) + 1))
	}

	for delay > 0 && !s.stopping(ctx) {
		slice := paceSlice
		if delay < slice {
			slice = delay
		}
		if chat.Sleep(ctx, slice) != nil {
			return
		}
		delay -= slice
	}
}

func anyPending(contacts []model.Contact) bool {
	for _, c := range contacts {
		if c.Status == model.PENDING {
			return true
		}
	}
	return false
}

func (s *sequencer) stopping(ctx context.Context) bool {
	return s.stop.Load() || ctx.Err() != nil
}

func (s *sequencer) publish(p Progress) {
	if s.events != nil {
		s.events.Pub(p, PROGRESS)
	}
}
