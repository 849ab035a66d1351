package duration

import (
	"errors"
	"testing"
	"time"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{0, "0 hours 0 minutes"},
		{1, "0 hours 1 minute"},
		{60, "1 hour 0 minutes"},
		{61, "1 hour 1 minute"},
		{390, "6 hours 30 minutes"},
		{600, "10 hours 0 minutes"},
	}
	for _, c := range cases {
		if got := Format(c.minutes); got != c.want {
			t.Errorf("Format(%d) = %q, want %q", c.minutes, got, c.want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for m := 0; m < 3000; m++ {
		got, ok := Parse(Format(m))
		if !ok || got != m {
			t.Fatalf("round trip failed for %d: got %d ok=%v", m, got, ok)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, text := range []string{
		"",
		"-",
		"6 hours",
		"30 minutes",
		"6h30m",
		"six hours thirty minutes",
		"6 hours 30 minutes extra",
		" 6 hours 30 minutes",
	} {
		if _, ok := Parse(text); ok {
			t.Errorf("Parse(%q) unexpectedly ok", text)
		}
	}
}

func TestParseAcceptsBothUnitForms(t *testing.T) {
	cases := map[string]int{
		"1 hour 1 minute":    61,
		"1 hours 1 minutes":  61,
		"0 hour 30 minutes":  30,
		"2 hours 0 minute":   120,
		"10 hours 59 minutes": 659,
	}
	for text, want := range cases {
		got, ok := Parse(text)
		if !ok || got != want {
			t.Errorf("Parse(%q) = %d ok=%v, want %d", text, got, ok, want)
		}
	}
}

func TestElapsedMinutes(t *testing.T) {
	at := func(s string) time.Time {
		tm, err := time.Parse("15:04:05", s)
		if err != nil {
			t.Fatalf("bad clock %q: %v", s, err)
		}
		return tm
	}

	got, err := ElapsedMinutes(at("09:00:00"), at("15:30:00"))
	if err != nil || got != 390 {
		t.Fatalf("ElapsedMinutes = %d, %v; want 390, nil", got, err)
	}

	// Sub-minute remainders floor.
	got, err = ElapsedMinutes(at("09:00:00"), at("09:00:59"))
	if err != nil || got != 0 {
		t.Fatalf("ElapsedMinutes = %d, %v; want 0, nil", got, err)
	}

	if _, err := ElapsedMinutes(at("15:00:00"), at("09:00:00")); !errors.Is(err, ErrInvalidSpan) {
		t.Fatalf("expected ErrInvalidSpan, got %v", err)
	}
}

func TestElapsedClock(t *testing.T) {
	got, err := ElapsedClock("09:00:00", "19:00:00")
	if err != nil || got != 600 {
		t.Fatalf("ElapsedClock = %d, %v; want 600, nil", got, err)
	}
	if _, err := ElapsedClock("blah", "19:00:00"); err == nil {
		t.Fatal("expected error for malformed start")
	}
}
