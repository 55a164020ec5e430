package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2024-05-16", "16-May-2024", " 16-May-2024 ", "2024-05-16T13:45:00Z"} {
		got, ok := ParseDate(s)
		if !ok {
			t.Fatalf("%q: expected ok", s)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: got %v want %v", s, got, want)
		}
	}
	if _, ok := ParseDate("16/05/2024x"); ok {
		t.Fatalf("expected failure")
	}
}

func TestParseDateDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	if got := ParseDateDefault("", def); !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestParseIntList(t *testing.T) {
	got, err := ParseIntList(" 20, 50,,200 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0] != 20 || got[1] != 50 || got[2] != 200 {
		t.Fatalf("unexpected list %v", got)
	}
	if _, err := ParseIntList("20,x"); err == nil {
		t.Fatalf("expected error")
	}
	if got, _ := ParseIntList(""); got != nil {
		t.Fatalf("expected nil")
	}
}

func TestParseNumber(t *testing.T) {
	v, err := ParseNumber(" 17,354.05 ")
	if err != nil || v != 17354.05 {
		t.Fatalf("got %v, %v", v, err)
	}
	if _, err := ParseNumber("-"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOptionalInt(t *testing.T) {
	if v, err := OptionalInt(""); v != nil || err != nil {
		t.Fatalf("expected nil, got %v %v", v, err)
	}
	v, err := OptionalInt("0")
	if err != nil || v == nil || *v != 0 {
		t.Fatalf("explicit zero must be kept, got %v %v", v, err)
	}
	if _, err := OptionalFloat("abc"); err == nil {
		t.Fatalf("expected error")
	}
}
