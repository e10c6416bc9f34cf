package mailgun

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidSignature = errors.New("mailgun: webhook signature verification failed")
	ErrStaleTimestamp   = errors.New("mailgun: webhook timestamp outside tolerance")
)

// DefaultTimestampTolerance bounds how old a signed inbound route post may be.
const DefaultTimestampTolerance = 15 * time.Minute

// Inbound is the part of a Mailgun "store and notify" / forward route post we keep.
type Inbound struct {
	MessageID string
	Sender    string
	Recipient string
	Subject   string
	BodyPlain string
}

// Verifier checks the HMAC-SHA256 signature Mailgun adds to route posts.
type Verifier struct {
	SigningKey string
	Tolerance  time.Duration
	Now        func() time.Time
}

// Verify checks hex(HMAC-SHA256(key, timestamp+token)) against signature.
// An empty signing key accepts every request.
func (v Verifier) Verify(timestamp, token, signature string) error {
	if strings.TrimSpace(v.SigningKey) == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(v.SigningKey))
	mac.Write([]byte(timestamp + token))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return ErrInvalidSignature
	}
	tolerance := v.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTimestampTolerance
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
	if err != nil {
		return ErrStaleTimestamp
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	if d := now().Sub(time.Unix(secs, 0)); d > tolerance || d < -tolerance {
		return ErrStaleTimestamp
	}
	return nil
}

// ParseInbound verifies and extracts a route post already parsed into form values.
func (v Verifier) ParseInbound(form url.Values) (Inbound, error) {
	if err := v.Verify(form.Get("timestamp"), form.Get("token"), form.Get("signature")); err != nil {
		return Inbound{}, err
	}
	messageID := form.Get("Message-Id")
	if messageID == "" {
		messageID = form.Get("message-id")
	}
	sender := form.Get("sender")
	if sender == "" {
		sender = form.Get("from")
	}
	return Inbound{
		MessageID: strings.TrimSpace(messageID),
		Sender:    strings.TrimSpace(sender),
		Recipient: strings.TrimSpace(form.Get("recipient")),
		Subject:   form.Get("subject"),
		BodyPlain: form.Get("body-plain"),
	}, nil
}
