package shared

import (
	"sync"
	"testing"
)

func TestParseDuration(t *testing.T) {
	tc := []struct {
		name  string
		input string
		want  int
	}{
		{name: "minutes and seconds", input: "3:45", want: 225},
		{name: "hours minutes seconds", input: "1:02:03", want: 3723},
		{name: "zero padded", input: "03:05", want: 185},
		{name: "empty", input: "", want: 0},
		{name: "single component", input: "45", want: 0},
		{name: "too many parts", input: "1:2:3:4", want: 0},
		{name: "not numeric", input: "abc", want: 0},
		{name: "partly numeric", input: "3:xx", want: 0},
		{name: "negative component", input: "-1:30", want: 0},
		{name: "surrounding whitespace", input: " 2:00 ", want: 120},
		{name: "empty component", input: "3:", want: 0},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseDuration(tt.input); got != tt.want {
				t.Errorf("ParseDuration(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tc := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{225, "3:45"},
		{3723, "1:02:03"},
		{-5, "0:00"},
	}

	for _, tt := range tc {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%d) = %s, want %s", tt.seconds, got, tt.want)
		}
	}
}

func TestBusy(t *testing.T) {
	t.Run("saturating counter", func(t *testing.T) {
		var edges []bool
		b := NewBusy(func(active bool) { edges = append(edges, active) })

		first := b.Begin()
		second := b.Begin()
		if !b.Active() {
			t.Fatal("expected busy while operations are in flight")
		}

		first()
		if !b.Active() {
			t.Error("expected busy while one operation remains")
		}

		second()
		if b.Active() {
			t.Error("expected idle after all operations finish")
		}

		if len(edges) != 2 || !edges[0] || edges[1] {
			t.Errorf("expected [true false] edges, got %v", edges)
		}
	})

	t.Run("double release is ignored", func(t *testing.T) {
		b := NewBusy(nil)
		first := b.Begin()
		second := b.Begin()

		first()
		first()
		if !b.Active() {
			t.Error("a repeated release must not free another operation")
		}
		second()
		if b.Active() {
			t.Error("expected idle")
		}
	})

	t.Run("concurrent holders", func(t *testing.T) {
		b := NewBusy(nil)
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				done := b.Begin()
				done()
			}()
		}
		wg.Wait()
		if b.Active() {
			t.Error("expected idle after all goroutines finish")
		}
	})

	t.Run("nil receiver", func(t *testing.T) {
		var b *Busy
		b.Begin()()
		if b.Active() {
			t.Error("nil Busy is never active")
		}
	})
}

func TestBrowserCommand(t *testing.T) {
	for _, goos := range []string{"darwin", "linux", "windows"} {
		cmd, err := browserCommand(goos, "https://example.com")
		if err != nil {
			t.Errorf("%s: unexpected error %v", goos, err)
			continue
		}
		if cmd.Args[len(cmd.Args)-1] != "https://example.com" {
			t.Errorf("%s: url should be the last argument, got %v", goos, cmd.Args)
		}
	}

	if _, err := browserCommand("plan9", "https://example.com"); err == nil {
		t.Error("expected error for unsupported platform")
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b || len(a) != 36 {
		t.Errorf("expected distinct uuids, got %s and %s", a, b)
	}
}
