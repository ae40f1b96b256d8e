package mail

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
)

func TestSMTPMailer_Send(t *testing.T) {
	var gotAddr, gotFrom, gotMsg string
	var gotTo []string

	orig := sendMail
	sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}
	defer func() { sendMail = orig }()

	m := NewSMTPMailer("mail.example.com:587", "noreply@example.com", "user", "pass")
	if err := m.Send(context.Background(), "alice@example.com", "Password Reset Code Delivery", "code 123"); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	if gotAddr != "mail.example.com:587" {
		t.Fatalf("unexpected addr: %q", gotAddr)
	}
	if gotFrom != "noreply@example.com" || len(gotTo) != 1 || gotTo[0] != "alice@example.com" {
		t.Fatalf("unexpected envelope: from=%q to=%v", gotFrom, gotTo)
	}
	if !strings.Contains(gotMsg, "Subject: Password Reset Code Delivery") || !strings.Contains(gotMsg, "code 123") {
		t.Fatalf("unexpected message: %q", gotMsg)
	}
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	orig := sendMail
	sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		t.Fatal("sendMail must not be called for a cancelled context")
		return nil
	}
	defer func() { sendMail = orig }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewSMTPMailer("mail.example.com:587", "noreply@example.com", "", "")
	if err := m.Send(ctx, "a@b", "s", "b"); err == nil {
		t.Fatal("expected context error")
	}
}
