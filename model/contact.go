package model

const (
	//contact delivery statuses
	PENDING     string = "PENDING"
	IN_PROGRESS        = "IN_PROGRESS"
	SENT               = "SENT"
	FAILED             = "FAILED"
)

type Contact struct {
	PhoneRaw  string
	Phone     string //normalized, digits only, country-code prefixed
	Name      string
	Variables map[string]string
	Status    string
	Category  string //failure category, empty unless Status is FAILED
}
