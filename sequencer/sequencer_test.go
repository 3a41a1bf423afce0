package sequencer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cskr/pubsub"
	"github.com/dilshat/wa-sender/chat"
	"github.com/dilshat/wa-sender/model"
	"github.com/dilshat/wa-sender/registry"
	"github.com/stretchr/testify/require"
)

const (
	PHONE1 = "5215511112222"
	PHONE2 = "5215533334444"
	PHONE3 = "5215555556666"
)

type mockDispatcher struct {
	phones    []string
	bodies    []string
	outcomes  map[string]chat.Outcome //by phone; default success
	afterEach func()
}

func (m *mockDispatcher) Dispatch(ctx context.Context, session *chat.Session, phone, body string, attachment *chat.AttachmentRef, attachmentFirst bool) chat.Outcome {
	m.phones = append(m.phones, phone)
	m.bodies = append(m.bodies, body)
	if m.afterEach != nil {
		m.afterEach()
	}
	if outcome, ok := m.outcomes[phone]; ok {
		return outcome
	}
	return chat.Outcome{Success: true, TextSent: true}
}

func newTestSequencer(d chat.Dispatcher, phones ...string) (Sequencer, registry.Registry) {
	reg := registry.NewRegistry()
	for _, p := range phones {
		_ = reg.Add(model.Contact{Phone: p})
	}
	return NewSequencer(reg, d, chat.NewSession(nil), nil), reg
}

// zero delay bounds make the run deterministic
func zeroDelayConfig() Config {
	return Config{}
}

func TestSequencer_AllSucceed(t *testing.T) {
	d := &mockDispatcher{}
	seq, reg := newTestSequencer(d, PHONE1, PHONE2)

	summary, err := seq.Run(context.Background(), Payload{BodyTemplate: "hola"}, zeroDelayConfig())

	require.NoError(t, err)
	require.Equal(t, Summary{Sent: 2, Failed: 0}, summary)
	require.Equal(t, []string{PHONE1, PHONE2}, d.phones, "contacts dispatched in registry order")
	for _, c := range reg.All() {
		require.Equal(t, model.SENT, c.Status)
	}
}

func TestSequencer_FailureCounted(t *testing.T) {
	d := &mockDispatcher{outcomes: map[string]chat.Outcome{
		PHONE2: {Success: false, Category: chat.NOT_A_USER},
	}}
	seq, reg := newTestSequencer(d, PHONE1, PHONE2)

	summary, err := seq.Run(context.Background(), Payload{BodyTemplate: "hola"}, zeroDelayConfig())

	require.NoError(t, err)
	require.Equal(t, Summary{Sent: 1, Failed: 1}, summary)

	all := reg.All()
	require.Equal(t, model.SENT, all[0].Status)
	require.Equal(t, model.FAILED, all[1].Status)
	require.Equal(t, chat.NOT_A_USER, all[1].Category)
}

func TestSequencer_SkipsNonPending(t *testing.T) {
	d := &mockDispatcher{}
	seq, reg := newTestSequencer(d, PHONE1, PHONE2, PHONE3)
	reg.SetStatus(PHONE2, model.SENT, "")

	summary, err := seq.Run(context.Background(), Payload{BodyTemplate: "hola"}, zeroDelayConfig())

	require.NoError(t, err)
	require.Equal(t, Summary{Sent: 2, Failed: 0}, summary)
	require.Equal(t, []string{PHONE1, PHONE3}, d.phones)
}

func TestSequencer_RerunIsIdempotent(t *testing.T) {
	d := &mockDispatcher{}
	seq, _ := newTestSequencer(d, PHONE1, PHONE2)

	_, err := seq.Run(context.Background(), Payload{BodyTemplate: "hola"}, zeroDelayConfig())
	require.NoError(t, err)

	summary, err := seq.Run(context.Background(), Payload{BodyTemplate: "hola"}, zeroDelayConfig())

	require.NoError(t, err)
	require.Equal(t, Summary{}, summary)
	require.Equal(t, 2, len(d.phones), "already-terminal contacts are untouched")
}

func TestSequencer_StopBetweenContacts(t *testing.T) {
	var seq Sequencer
	d := &mockDispatcher{}
	d.afterEach = func() {
		//stop after the first contact completes, before the next begins
		if len(d.phones) == 1 {
			seq.RequestStop()
		}
	}
	seq, reg := newTestSequencer(d, PHONE1, PHONE2, PHONE3)

	summary, err := seq.Run(context.Background(), Payload{BodyTemplate: "hola"}, zeroDelayConfig())

	require.NoError(t, err)
	require.Equal(t, Summary{Sent: 1, Failed: 0}, summary)

	all := reg.All()
	require.Equal(t, model.SENT, all[0].Status)
	require.Equal(t, model.PENDING, all[1].Status)
	require.Equal(t, model.PENDING, all[2].Status)
}

func TestSequencer_InvalidDelayBounds(t *testing.T) {
	d := &mockDispatcher{}
	seq, _ := newTestSequencer(d, PHONE1)

	_, err := seq.Run(context.Background(), Payload{BodyTemplate: "hola"}, Config{MinDelay: 5 * time.Second, MaxDelay: time.Second})

	require.Error(t, err)
	require.IsType(t, &InvalidConfigErr{}, err)
	require.Empty(t, d.phones)
}

func TestSequencer_NoDelayAfterLastDispatch(t *testing.T) {
	d := &mockDispatcher{}
	seq, reg := newTestSequencer(d, PHONE1, PHONE2, PHONE3)
	reg.SetStatus(PHONE2, model.SENT, "")
	reg.SetStatus(PHONE3, model.FAILED, "")

	start := time.Now()
	summary, err := seq.Run(context.Background(), Payload{BodyTemplate: "hola"}, Config{MinDelay: 3 * time.Second, MaxDelay: 3 * time.Second})

	require.NoError(t, err)
	require.Equal(t, Summary{Sent: 1, Failed: 0}, summary)
	require.Equal(t, []string{PHONE1}, d.phones)
	require.Less(t, time.Since(start), time.Second, "trailing skipped contacts must not earn a pacing delay")
}

func TestSequencer_RendersVariables(t *testing.T) {
	d := &mockDispatcher{}
	reg := registry.NewRegistry()
	_ = reg.Add(model.Contact{Phone: PHONE1, Name: "Ana", Variables: map[string]string{"ciudad": "CDMX"}})
	seq := NewSequencer(reg, d, chat.NewSession(nil), nil)

	_, err := seq.Run(context.Background(), Payload{BodyTemplate: "Hola {{ name }} de {{ ciudad }}, tu numero es {{ phone }}"}, zeroDelayConfig())

	require.NoError(t, err)
	require.Equal(t, "Hola Ana de CDMX, tu numero es "+PHONE1, d.bodies[0])
}

func TestSequencer_AntiBanAndTimestamp(t *testing.T) {
	d := &mockDispatcher{}
	seq, _ := newTestSequencer(d, PHONE1)

	_, err := seq.Run(context.Background(), Payload{BodyTemplate: "hola"}, Config{AntiBan: true, AddTimestamp: true})

	require.NoError(t, err)
	require.True(t, strings.HasPrefix(d.bodies[0], "hola\n\n[ID: "))
	require.Contains(t, d.bodies[0], time.Now().Format("02/01/2006"))
}

func TestSequencer_PublishesProgress(t *testing.T) {
	events := pubsub.New(10)
	sub := events.Sub(PROGRESS)

	d := &mockDispatcher{}
	reg := registry.NewRegistry()
	_ = reg.Add(model.Contact{Phone: PHONE1})
	seq := NewSequencer(reg, d, chat.NewSession(nil), events)

	done := make(chan Summary)
	go func() {
		summary, _ := seq.Run(context.Background(), Payload{BodyTemplate: "hola"}, zeroDelayConfig())
		done <- summary
	}()

	first := (<-sub).(Progress)
	require.Equal(t, model.IN_PROGRESS, first.Status)

	second := (<-sub).(Progress)
	require.Equal(t, model.SENT, second.Status)
	require.Equal(t, 1, second.Sent)

	final := (<-sub).(Progress)
	require.True(t, final.Done)
	require.False(t, final.Stopped)

	require.Equal(t, Summary{Sent: 1, Failed: 0}, <-done)
}
