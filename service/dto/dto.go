package dto

import "time"

type Contact struct {
	Phone     string            `json:"phone"`
	Name      string            `json:"name,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
}

type ContactView struct {
	Phone    string `json:"phone"`
	PhoneRaw string `json:"phoneRaw"`
	Name     string `json:"name,omitempty"`
	Status   string `json:"status"`
	Category string `json:"category,omitempty"`
}

type ImportResult struct {
	Imported int           `json:"imported"`
	Rejected []RejectedRow `json:"rejected,omitempty"`
}

type RejectedRow struct {
	Line   int    `json:"line"`
	Phone  string `json:"phone"`
	Reason string `json:"reason"`
}

type Attachment struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Data      []byte `json:"data"`
}

type RunRequest struct {
	Text            string      `json:"text"`
	Attachment      *Attachment `json:"attachment,omitempty"`
	AttachmentFirst bool        `json:"attachmentFirst"`
}

type RunId struct {
	Id string `json:"id"`
}

type RunState struct {
	Id        string `json:"id,omitempty"`
	Running   bool   `json:"running"`
	Sent      int    `json:"sent"`
	Failed    int    `json:"failed"`
	Pending   int    `json:"pending"`
	Total     int    `json:"total"`
	LastPhone string `json:"lastPhone,omitempty"`
	Stopped   bool   `json:"stopped"`
}

type TestRequest struct {
	Phone string `json:"phone,omitempty"`
	Text  string `json:"text"`
}

type SendResult struct {
	Success  bool   `json:"success"`
	Category string `json:"category,omitempty"`
}

type Template struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type Settings struct {
	DelayMin           int    `json:"delayMin"`
	DelayMax           int    `json:"delayMax"`
	AntiBan            bool   `json:"antiBan"`
	DeleteAfter        bool   `json:"deleteAfter"`
	AddTimestamp       bool   `json:"addTimestamp"`
	DefaultCountryCode string `json:"defaultCountryCode"`
	TestNumber         string `json:"testNumber,omitempty"`
}

type Stats struct {
	TotalSent   int       `json:"totalSent"`
	TotalFailed int       `json:"totalFailed"`
	LastSession time.Time `json:"lastSession"`
}
