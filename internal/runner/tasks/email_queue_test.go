package tasks

import (
	"errors"
	"io"
	"net/textproto"
	"testing"
	"time"
)

func TestConstants(t *testing.T) {
	if MaxRetries != 5 {
		t.Errorf("expected MaxRetries 5, got %d", MaxRetries)
	}
	if RetryDelayBase != 5 {
		t.Errorf("expected RetryDelayBase 5, got %d", RetryDelayBase)
	}
}

func TestCalculateNextRetryTime(t *testing.T) {
	task := &EmailQueueTask{}

	first := task.calculateNextRetryTime(1)
	if first == nil {
		t.Fatal("expected a retry time for the first failure")
	}
	until := time.Until(*first)
	if until < 4*time.Minute || until > 6*time.Minute {
		t.Errorf("expected first retry in ~5m, got %v", until)
	}

	second := task.calculateNextRetryTime(2)
	if second == nil {
		t.Fatal("expected a retry time for the second failure")
	}
	if !second.After(*first) {
		t.Error("expected backoff to grow between attempts")
	}

	if task.calculateNextRetryTime(MaxRetries) != nil {
		t.Error("expected no retry once attempts reach the cap")
	}
}

func TestSMTPStatus(t *testing.T) {
	code, msg := smtpStatus(&textproto.Error{Code: 550, Msg: "mailbox unavailable"})
	if code == nil || *code != 550 {
		t.Fatalf("expected code 550, got %v", code)
	}
	if msg != "550 mailbox unavailable" {
		t.Errorf("unexpected message %q", msg)
	}

	code, _ = smtpStatus(io.EOF)
	if code == nil || *code != 421 {
		t.Errorf("expected 421 for EOF, got %v", code)
	}

	code, msg = smtpStatus(errors.New("connection refused"))
	if code != nil {
		t.Errorf("expected no code for dial error, got %d", *code)
	}
	if msg != "connection refused" {
		t.Errorf("unexpected message %q", msg)
	}
}
