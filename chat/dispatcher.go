package chat

import (
	"context"
	"strings"
	"time"

	"github.com/dilshat/wa-sender/log"
)

// dispatch states, reported in trace logs only
type state string

const (
	stateIdle              state = "IDLE"
	stateNavigating        state = "NAVIGATING"
	stateAwaitingChatReady state = "AWAITING_CHAT_READY"
	stateSendingAttachment state = "SENDING_ATTACHMENT"
	stateSendingText       state = "SENDING_TEXT"
	stateConfirmingSent    state = "CONFIRMING_SENT"
	stateDone              state = "DONE"
	stateFailed            state = "FAILED"
)

// Outcome is the result of one full send attempt to one recipient,
// immutable once produced. Partial delivery counts as success.
type Outcome struct {
	Success        bool
	TextSent       bool
	AttachmentSent bool
	Category       string //empty when Success
}

type Config struct {
	NavTimeout   time.Duration //hard limit on waiting for the chat to open
	PollTick     time.Duration
	SettleDelay  time.Duration //absorbs the surface's own async rendering
	ModalTimeout time.Duration //hard limit on the attachment confirm control
	ConfirmDelay time.Duration //pause after sending before reporting done
}

func DefaultConfig() Config {
	return Config{
		NavTimeout:   20 * time.Second,
		PollTick:     300 * time.Millisecond,
		SettleDelay:  800 * time.Millisecond,
		ModalTimeout: 10 * time.Second,
		ConfirmDelay: time.Second,
	}
}

// Dispatcher executes one full send attempt against one recipient's
// conversation. It is not safe for concurrent dispatches over the same
// session.
type Dispatcher interface {
	Dispatch(ctx context.Context, session *Session, phone, body string, attachment *AttachmentRef, attachmentFirst bool) Outcome
}

func NewDispatcher(cfg Config) Dispatcher {
	return &dispatcher{cfg: cfg}
}

type dispatcher struct {
	cfg Config
}

func (d *dispatcher) Dispatch(ctx context.Context, session *Session, phone, body string, attachment *AttachmentRef, attachmentFirst bool) Outcome {
	t := session.Transport()

	d.transition(session, phone, stateIdle, stateNavigating)
	if err := t.OpenConversation(phone); err != nil {
		return d.fail(session, phone, CategoryOf(err))
	}

	//the open is fire-and-forget, so poll for one of three terminal
	//conditions: composer ready, recognized error, or timeout
	d.transition(session, phone, stateNavigating, stateAwaitingChatReady)
	err := PollUntil(ctx, func() (bool, error) {
		present, err := t.ComposerPresent()
		if err != nil {
			return false, err
		}
		if present {
			return true, nil
		}

		category, found, err := t.ErrorCondition()
		if err != nil {
			return false, err
		}
		if found {
			return false, newExternalError(category)
		}

		return false, nil
	}, d.cfg.PollTick, d.cfg.NavTimeout)
	if err != nil {
		return d.fail(session, phone, navCategoryOf(err))
	}

	if err := Sleep(ctx, d.cfg.SettleDelay); err != nil {
		return d.fail(session, phone, NAVIGATION_TIMEOUT)
	}

	//error surfaces can appear slightly after initial readiness, so
	//re-check once after the settle pause
	if category, found, err := t.ErrorCondition(); err == nil && found {
		return d.fail(session, phone, category)
	}

	var outcome Outcome
	var failCategory string

	subSends := []string{"text"}
	if attachment != nil {
		if attachmentFirst {
			subSends = []string{"attachment", "text"}
		} else {
			subSends = []string{"text", "attachment"}
		}
	}

	for _, subSend := range subSends {
		var err error
		switch subSend {
		case "attachment":
			d.transition(session, phone, stateAwaitingChatReady, stateSendingAttachment)
			if err = d.sendAttachment(ctx, t, *attachment); err == nil {
				outcome.AttachmentSent = true
			}
		case "text":
			if strings.TrimSpace(body) == "" {
				continue
			}
			d.transition(session, phone, stateAwaitingChatReady, stateSendingText)
			if err = d.sendText(t, body); err == nil {
				outcome.TextSent = true
			}
		}

		if err != nil {
			if failCategory == "" {
				failCategory = CategoryOf(err)
			}
			log.WarnIfErr("sub-send "+subSend+" to "+phone+" failed:", err)

			//a vanished composer means the conversation view closed,
			//the other sub-send has nothing left to act on
			if present, perr := t.ComposerPresent(); perr != nil || !present {
				return d.failPartial(session, phone, outcome, CONVERSATION_CLOSED)
			}
		}
	}

	outcome.Success = outcome.TextSent || outcome.AttachmentSent
	if !outcome.Success {
		if failCategory == "" {
			failCategory = SEND_FAILURE
		}
		return d.failPartial(session, phone, outcome, failCategory)
	}

	d.transition(session, phone, stateSendingText, stateConfirmingSent)
	_ = Sleep(ctx, d.cfg.ConfirmDelay)

	d.transition(session, phone, stateConfirmingSent, stateDone)
	return outcome
}

func (d *dispatcher) sendText(t Transport, body string) error {
	//line-by-line insertion so the surface's reactive rendering
	//registers each line break
	for _, line := range strings.Split(body, "\n") {
		if err := t.InsertText(line); err != nil {
			return err
		}
	}

	return t.TriggerSend()
}

func (d *dispatcher) sendAttachment(ctx context.Context, t Transport, ref AttachmentRef) error {
	opened, err := t.OpenAttachmentPicker()
	if err != nil {
		return err
	}
	if !opened {
		return ErrAttachControlNotFound
	}

	if err := t.BindFile(ref); err != nil {
		return err
	}

	err = PollUntil(ctx, func() (bool, error) {
		return t.AttachmentConfirmVisible()
	}, d.cfg.PollTick, d.cfg.ModalTimeout)
	if err != nil {
		return ErrAttachmentModalTimeout
	}

	return t.TriggerAttachmentConfirm()
}

func (d *dispatcher) fail(session *Session, phone, category string) Outcome {
	return d.failPartial(session, phone, Outcome{}, category)
}

func (d *dispatcher) failPartial(session *Session, phone string, outcome Outcome, category string) Outcome {
	d.transition(session, phone, stateAwaitingChatReady, stateFailed)
	outcome.Success = outcome.TextSent || outcome.AttachmentSent
	if !outcome.Success {
		outcome.Category = category
	}
	return outcome
}

func (d *dispatcher) transition(session *Session, phone string, from, to state) {
	log.Trace.Println("session", session.Id, "phone", phone, string(from), "->", string(to))
}
