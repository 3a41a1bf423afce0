package model

type Template struct {
	Name string `storm:"id"`
	Text string
}
