package model

import "time"

//single record, always stored under Id 1
type Stats struct {
	Id          int `storm:"id"`
	TotalSent   int
	TotalFailed int
	LastSession time.Time
}
