package alphasms

import (
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
)

// sendAtLayout is the timestamp format the gateway expects for scheduled
// delivery times.
const sendAtLayout = "2006-01-02 15:04:05"

// Message is a single outbound SMS. Phone accepts national ("0681234567") or
// international ("+380681234567") form; Sender is the alphanumeric signature
// registered with the gateway; a zero SendAt means immediate delivery.
//
// A Message is never mutated by the library: queueing and sending work on
// normalized copies.
type Message struct {
	Phone  string
	Sender string
	Text   string
	SendAt time.Time
}

// normalize validates the message and returns a copy whose recipient is in
// the wire form the gateway expects: country code first, no leading plus.
func (m Message) normalize(region string) (Message, error) {
	phone := strings.TrimSpace(m.Phone)
	if phone == "" {
		return Message{}, invalidf("phone is required")
	}
	num, err := phonenumbers.Parse(phone, region)
	if err != nil {
		return Message{}, invalidf("phone %q: %v", m.Phone, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return Message{}, invalidf("phone %q is not a valid number", m.Phone)
	}
	if strings.TrimSpace(m.Sender) == "" {
		return Message{}, invalidf("sender signature is required")
	}
	if strings.TrimSpace(m.Text) == "" {
		return Message{}, invalidf("text is required")
	}

	m.Phone = strings.TrimPrefix(phonenumbers.Format(num, phonenumbers.E164), "+")
	return m, nil
}
