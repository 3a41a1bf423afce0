package chat

import "github.com/dchest/uniuri"

// Session scopes one run's conversation state to an explicit handle instead
// of ambient globals. One session is exclusive: the surface holds a single
// "current conversation", so dispatches through it must stay serial.
type Session struct {
	Id        string
	transport Transport
}

func NewSession(transport Transport) *Session {
	return &Session{Id: uniuri.NewLen(8), transport: transport}
}

func (s *Session) Transport() Transport {
	return s.transport
}
