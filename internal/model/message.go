// internal/model/message.go
package model

import "time"

type Message struct {
	ID        int       `db:"id" json:"id"`
	Subject   string    `db:"subject" json:"subject"`
	Intro     string    `db:"intro" json:"intro"`
	Content   string    `db:"content" json:"content"`
	CTA       string    `db:"cta" json:"cta"`
	PS        string    `db:"ps" json:"ps"`
	PPS       string    `db:"pps" json:"pps"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (m *Message) DisplayText() string {
	if m.CTA == "" {
		return m.Subject
	}
	return m.Subject + " - " + m.CTA
}
