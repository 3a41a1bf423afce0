package service

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cskr/pubsub"
	"github.com/dchest/uniuri"
	"github.com/dilshat/wa-sender/chat"
	"github.com/dilshat/wa-sender/dao"
	"github.com/dilshat/wa-sender/model"
	"github.com/dilshat/wa-sender/phone"
	"github.com/dilshat/wa-sender/registry"
	"github.com/dilshat/wa-sender/sequencer"
	"github.com/dilshat/wa-sender/service/dto"
	"github.com/dilshat/wa-sender/util"
	"go.uber.org/zap"
)

type InvalidPayloadErr struct {
	message string
}

func (e *InvalidPayloadErr) Error() string {
	return e.message
}

func NewInvalidPayloadError(msg string) *InvalidPayloadErr {
	return &InvalidPayloadErr{message: msg}
}

type RunInProgressErr struct {
}

func (e *RunInProgressErr) Error() string {
	return "a send run is already in progress"
}

type Service interface {
	AddContact(contact dto.Contact) (dto.ContactView, error)
	ImportContacts(r io.Reader) (dto.ImportResult, error)
	Contacts() []dto.ContactView
	ClearContacts() error

	StartRun(req dto.RunRequest) (dto.RunId, error)
	StopRun() error
	RunState() dto.RunState
	SendTest(req dto.TestRequest) (dto.SendResult, error)

	SaveTemplate(template dto.Template) error
	Templates() ([]dto.Template, error)
	RemoveTemplate(name string) error

	GetSettings() (dto.Settings, error)
	SaveSettings(settings dto.Settings) error

	GetStats() (dto.Stats, error)
	ResetStats() error
}

type service struct {
	transport   chat.Transport
	dispatcher  chat.Dispatcher
	contacts    registry.Registry
	templateDao dao.TemplateDao
	settingsDao dao.SettingsDao
	statsDao    dao.StatsDao
	events      *pubsub.PubSub

	//replaceable in tests
	newSequencer func(reg registry.Registry, d chat.Dispatcher, session *chat.Session, events *pubsub.PubSub) sequencer.Sequencer

	mu       sync.Mutex
	running  bool
	testing  bool
	runId    string
	current  sequencer.Sequencer
	progress sequencer.Progress
}

func NewService(transport chat.Transport, dispatcher chat.Dispatcher, contacts registry.Registry,
	templateDao dao.TemplateDao, settingsDao dao.SettingsDao, statsDao dao.StatsDao, events *pubsub.PubSub) Service {
	return &service{
		transport:    transport,
		dispatcher:   dispatcher,
		contacts:     contacts,
		templateDao:  templateDao,
		settingsDao:  settingsDao,
		statsDao:     statsDao,
		events:       events,
		newSequencer: sequencer.NewSequencer,
	}
}

func (s *service) AddContact(contact dto.Contact) (dto.ContactView, error) {
	settings, err := s.settingsDao.Get()
	if err != nil {
		return dto.ContactView{}, err
	}

	normalized, err := phone.NewNormalizer(settings.DefaultCountryCode).Normalize(contact.Phone)
	if err != nil {
		return dto.ContactView{}, err
	}

	c := model.Contact{
		PhoneRaw:  contact.Phone,
		Phone:     normalized,
		Name:      strings.TrimSpace(contact.Name),
		Variables: contact.Variables,
	}
	if err := s.contacts.Add(c); err != nil {
		return dto.ContactView{}, err
	}

	return dto.ContactView{Phone: normalized, PhoneRaw: contact.Phone, Name: c.Name, Status: model.PENDING}, nil
}

// ImportContacts reads CSV rows into the registry. The header row names the
// columns: "phone" is required, "name" is optional, anything else becomes a
// per-contact template variable. Bad rows are reported, not fatal.
func (s *service) ImportContacts(r io.Reader) (dto.ImportResult, error) {
	settings, err := s.settingsDao.Get()
	if err != nil {
		return dto.ImportResult{}, err
	}
	normalizer := phone.NewNormalizer(settings.DefaultCountryCode)

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return dto.ImportResult{}, NewInvalidPayloadError("empty or unreadable import file")
	}

	phoneCol, nameCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "phone", "number", "telefono":
			phoneCol = i
		case "name", "nombre":
			nameCol = i
		}
	}
	if phoneCol < 0 {
		return dto.ImportResult{}, NewInvalidPayloadError("import file has no phone column")
	}

	var result dto.ImportResult
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Rejected = append(result.Rejected, dto.RejectedRow{Line: line, Reason: err.Error()})
			continue
		}
		if phoneCol >= len(record) || util.IsBlank(record[phoneCol]) {
			result.Rejected = append(result.Rejected, dto.RejectedRow{Line: line, Reason: "missing phone"})
			continue
		}

		raw := record[phoneCol]
		normalized, err := normalizer.Normalize(raw)
		if err != nil {
			result.Rejected = append(result.Rejected, dto.RejectedRow{Line: line, Phone: raw, Reason: err.Error()})
			continue
		}

		contact := model.Contact{PhoneRaw: raw, Phone: normalized}
		if nameCol >= 0 && nameCol < len(record) {
			contact.Name = strings.TrimSpace(record[nameCol])
		}
		for i, col := range header {
			if i == phoneCol || i == nameCol || i >= len(record) {
				continue
			}
			name := strings.TrimSpace(col)
			if name == "" {
				continue
			}
			if contact.Variables == nil {
				contact.Variables = make(map[string]string)
			}
			contact.Variables[name] = record[i]
		}

		if err := s.contacts.Add(contact); err != nil {
			result.Rejected = append(result.Rejected, dto.RejectedRow{Line: line, Phone: raw, Reason: err.Error()})
			continue
		}
		result.Imported++
	}

	return result, nil
}

func (s *service) Contacts() []dto.ContactView {
	all := s.contacts.All()
	views := make([]dto.ContactView, 0, len(all))
	for _, c := range all {
		views = append(views, dto.ContactView{
			Phone:    c.Phone,
			PhoneRaw: c.PhoneRaw,
			Name:     c.Name,
			Status:   c.Status,
			Category: c.Category,
		})
	}
	return views
}

func (s *service) ClearContacts() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return &RunInProgressErr{}
	}

	s.contacts.Clear()
	return nil
}

func (s *service) StartRun(req dto.RunRequest) (dto.RunId, error) {
	if util.IsBlank(req.Text) && req.Attachment == nil {
		return dto.RunId{}, NewInvalidPayloadError("write a message or attach a file")
	}
	if s.contacts.PendingCount() == 0 {
		return dto.RunId{}, NewInvalidPayloadError("no pending contacts")
	}

	//run configuration is read once at run start
	settings, err := s.settingsDao.Get()
	if err != nil {
		return dto.RunId{}, err
	}

	payload := sequencer.Payload{
		BodyTemplate:    req.Text,
		AttachmentFirst: req.AttachmentFirst,
	}
	if req.Attachment != nil {
		payload.Attachment = &chat.AttachmentRef{
			Name:      req.Attachment.Name,
			MediaType: req.Attachment.MediaType,
			Data:      req.Attachment.Data,
		}
	}
	cfg := sequencer.Config{
		MinDelay:     time.Duration(settings.DelayMin) * time.Second,
		MaxDelay:     time.Duration(settings.DelayMax) * time.Second,
		AntiBan:      settings.AntiBan,
		AddTimestamp: settings.AddTimestamp,
	}

	s.mu.Lock()
	if s.running || s.testing {
		s.mu.Unlock()
		return dto.RunId{}, &RunInProgressErr{}
	}

	session := chat.NewSession(s.transport)
	seq := s.newSequencer(s.contacts, s.dispatcher, session, s.events)

	s.running = true
	s.runId = uniuri.NewLen(8)
	s.current = seq
	s.progress = sequencer.Progress{}
	runId := s.runId
	s.mu.Unlock()

	//subscribe before the run goroutine starts, so a fast run cannot
	//publish its final event into an unsubscribed topic
	var sub chan interface{}
	if s.events != nil {
		sub = s.events.Sub(sequencer.PROGRESS)
	}

	go s.consumeProgress(sub)
	go s.runBatch(seq, payload, cfg)

	return dto.RunId{Id: runId}, nil
}

func (s *service) runBatch(seq sequencer.Sequencer, payload sequencer.Payload, cfg sequencer.Config) {
	summary, err := seq.Run(context.Background(), payload, cfg)
	if err != nil {
		zap.L().Error("Send run aborted", zap.Error(err))
	}

	//aggregate outcomes survive the session
	if err := s.statsDao.Add(summary.Sent, summary.Failed, time.Now()); err != nil {
		zap.L().Warn("Error accumulating run stats", zap.Error(err))
	}

	s.mu.Lock()
	s.running = false
	s.current = nil
	s.mu.Unlock()
}

func (s *service) consumeProgress(sub chan interface{}) {
	if sub == nil {
		return
	}
	defer s.events.Unsub(sub, sequencer.PROGRESS)

	for ev := range sub {
		p, ok := ev.(sequencer.Progress)
		if !ok {
			continue
		}

		s.mu.Lock()
		s.progress = p
		s.mu.Unlock()

		if p.Done {
			return
		}
	}
}

func (s *service) StopRun() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.current == nil {
		return NewInvalidPayloadError("no run in progress")
	}

	s.current.RequestStop()
	return nil
}

func (s *service) RunState() dto.RunState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return dto.RunState{
		Id:        s.runId,
		Running:   s.running,
		Sent:      s.progress.Sent,
		Failed:    s.progress.Failed,
		Pending:   s.contacts.PendingCount(),
		Total:     s.progress.Total,
		LastPhone: s.progress.Phone,
		Stopped:   s.progress.Stopped,
	}
}

// SendTest sends one message to the stored test number (or an explicit
// override) without touching the contact list.
func (s *service) SendTest(req dto.TestRequest) (dto.SendResult, error) {
	if util.IsBlank(req.Text) {
		return dto.SendResult{}, NewInvalidPayloadError("write a message")
	}

	settings, err := s.settingsDao.Get()
	if err != nil {
		return dto.SendResult{}, err
	}

	raw := req.Phone
	if util.IsBlank(raw) {
		raw = settings.TestNumber
	}
	if util.IsBlank(raw) {
		return dto.SendResult{}, NewInvalidPayloadError("no test number configured")
	}

	normalized, err := phone.NewNormalizer(settings.DefaultCountryCode).Normalize(raw)
	if err != nil {
		return dto.SendResult{}, err
	}

	//the chat surface holds one active conversation, so a test dispatch
	//must be exclusive with batch runs and other test sends for its whole
	//duration, not just at the check
	s.mu.Lock()
	if s.running || s.testing {
		s.mu.Unlock()
		return dto.SendResult{}, &RunInProgressErr{}
	}
	s.testing = true
	s.mu.Unlock()

	outcome := s.dispatcher.Dispatch(context.Background(), chat.NewSession(s.transport), normalized, req.Text, nil, false)

	s.mu.Lock()
	s.testing = false
	s.mu.Unlock()

	return dto.SendResult{Success: outcome.Success, Category: outcome.Category}, nil
}

func (s *service) SaveTemplate(template dto.Template) error {
	if util.IsBlank(template.Name) || util.IsBlank(template.Text) {
		return NewInvalidPayloadError("template needs a name and a text")
	}
	return s.templateDao.Save(strings.TrimSpace(template.Name), template.Text)
}

func (s *service) Templates() ([]dto.Template, error) {
	stored, err := s.templateDao.GetAll()
	if err != nil {
		return nil, err
	}

	templates := make([]dto.Template, 0, len(stored))
	for _, t := range stored {
		templates = append(templates, dto.Template{Name: t.Name, Text: t.Text})
	}
	return templates, nil
}

func (s *service) RemoveTemplate(name string) error {
	return s.templateDao.Remove(name)
}

func (s *service) GetSettings() (dto.Settings, error) {
	settings, err := s.settingsDao.Get()
	if err != nil {
		return dto.Settings{}, err
	}

	return dto.Settings{
		DelayMin:           settings.DelayMin,
		DelayMax:           settings.DelayMax,
		AntiBan:            settings.AntiBan,
		DeleteAfter:        settings.DeleteAfter,
		AddTimestamp:       settings.AddTimestamp,
		DefaultCountryCode: settings.DefaultCountryCode,
		TestNumber:         settings.TestNumber,
	}, nil
}

func (s *service) SaveSettings(settings dto.Settings) error {
	if settings.DelayMin < 1 || settings.DelayMin > settings.DelayMax {
		return NewInvalidPayloadError("delays must satisfy 1 <= min <= max")
	}
	if util.IsBlank(settings.DefaultCountryCode) {
		return NewInvalidPayloadError("default country code is required")
	}

	return s.settingsDao.Save(model.Settings{
		Id:                 1,
		DelayMin:           settings.DelayMin,
		DelayMax:           settings.DelayMax,
		AntiBan:            settings.AntiBan,
		DeleteAfter:        settings.DeleteAfter,
		AddTimestamp:       settings.AddTimestamp,
		DefaultCountryCode: strings.TrimSpace(settings.DefaultCountryCode),
		TestNumber:         strings.TrimSpace(settings.TestNumber),
	})
}

func (s *service) GetStats() (dto.Stats, error) {
	stats, err := s.statsDao.Get()
	if err != nil {
		return dto.Stats{}, err
	}

	return dto.Stats{TotalSent: stats.TotalSent, TotalFailed: stats.TotalFailed, LastSession: stats.LastSession}, nil
}

func (s *service) ResetStats() error {
	return s.statsDao.Reset()
}
