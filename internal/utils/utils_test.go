package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTruncateForLog(t *testing.T) {
	cases := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{"short string untouched", "hello", 10, "hello"},
		{"exact limit untouched", "hello", 5, "hello"},
		{"long string truncated", "hello world", 5, "hello..."},
		{"whitespace trimmed first", "  hello  ", 10, "hello"},
		{"zero limit", "hello", 0, ""},
		{"negative limit", "hello", -1, ""},
		{"multibyte runes", "héllo wörld", 5, "héllo..."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TruncateForLog(tc.input, tc.limit); got != tc.want {
				t.Errorf("TruncateForLog(%q, %d) = %q, want %q", tc.input, tc.limit, got, tc.want)
			}
		})
	}
}

func TestWaitForZeroDuration(t *testing.T) {
	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("expected nil for zero duration, got %v", err)
	}
}

func TestWaitForCompletes(t *testing.T) {
	var slept time.Duration
	orig := sleep
	sleep = func(d time.Duration) { slept = d }
	defer func() { sleep = orig }()

	if err := WaitFor(context.Background(), time.Minute); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if slept != time.Minute {
		t.Fatalf("expected a one minute sleep, got %v", slept)
	}
}

func TestWaitForCancelled(t *testing.T) {
	orig := sleep
	sleep = func(time.Duration) { select {} }
	defer func() { sleep = orig }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
