package transport

import (
	"errors"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := &Error{Transport: "twilio", StatusCode: 400, Code: "21211", Message: "Invalid 'To' Phone Number"}
	want := "twilio send failed (status 400) [code 21211]: Invalid 'To' Phone Number"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if got := err.Detail(); got != "Invalid 'To' Phone Number" {
		t.Fatalf("Detail() = %q", got)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := error(&Error{Transport: "smtp", Err: cause})
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
	var te *Error
	if !errors.As(err, &te) || te.Detail() != cause.Error() {
		t.Fatalf("unexpected detail: %v", te)
	}
	if got := (&Error{Transport: "smtp"}).Detail(); got != "smtp error" {
		t.Fatalf("Detail() = %q", got)
	}
}
