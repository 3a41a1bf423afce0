package model

//single record, always stored under Id 1
type Settings struct {
	Id                 int `storm:"id"`
	DelayMin           int //seconds
	DelayMax           int //seconds
	AntiBan            bool
	DeleteAfter        bool
	AddTimestamp       bool
	DefaultCountryCode string
	TestNumber         string
}

func DefaultSettings() Settings {
	return Settings{
		Id:                 1,
		DelayMin:           6,
		DelayMax:           10,
		DefaultCountryCode: "52",
	}
}
