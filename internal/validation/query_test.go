package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/yourorg/kharkivmetro/internal/metro"
)

func TestStationQuery(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"trimmed", "  Холодна гора ", "Холодна гора", false},
		{"empty", "   ", "", true},
		{"too long", strings.Repeat("я", MaxQueryRunes+1), "", true},
		{"at limit", strings.Repeat("я", MaxQueryRunes), strings.Repeat("я", MaxQueryRunes), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StationQuery(tt.in, "from")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			var qe *QueryError
			if err != nil && (!errors.As(err, &qe) || qe.Field != "from") {
				t.Errorf("want QueryError on from, got %v", err)
			}
		})
	}
}

func TestLanguage(t *testing.T) {
	if lang, err := Language("", metro.LangEN); err != nil || lang != metro.LangEN {
		t.Errorf("default: %v %v", lang, err)
	}
	if lang, err := Language("UK", metro.LangEN); err != nil || lang != metro.LangUA {
		t.Errorf("uk: %v %v", lang, err)
	}
	if _, err := Language("de", metro.LangUA); err == nil {
		t.Error("expected error for de")
	}
}

func TestDayTypeAndClock(t *testing.T) {
	if d, err := DayType(""); err != nil || d != "" {
		t.Errorf("empty day type: %q %v", d, err)
	}
	if d, err := DayType("weekend"); err != nil || d != metro.Weekend {
		t.Errorf("weekend: %q %v", d, err)
	}
	if _, err := DayType("holiday"); err == nil {
		t.Error("expected error for holiday")
	}
	if tod, err := Clock("08:30"); err != nil || tod != metro.NewTimeOfDay(8, 30) {
		t.Errorf("08:30: %v %v", tod, err)
	}
	if _, err := Clock("24:10"); err == nil {
		t.Error("expected error for 24:10")
	}
}

func TestLimit(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 5, false},
		{"3", 3, false},
		{"99", 10, false},
		{"0", 0, true},
		{"x", 0, true},
	}
	for _, tt := range tests {
		got, err := Limit(tt.in, 5, 10)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("Limit(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestStruct(t *testing.T) {
	type login struct {
		Username string `validate:"required"`
		Lang     string `validate:"omitempty,oneof=ua en"`
	}
	if err := Struct(login{Username: "admin"}); err != nil {
		t.Fatalf("valid struct: %v", err)
	}
	err := Struct(login{Lang: "ua"})
	var qe *QueryError
	if !errors.As(err, &qe) || qe.Field != "username" || qe.Message != "is required" {
		t.Fatalf("got %v", err)
	}
	err = Struct(login{Username: "a", Lang: "fr"})
	if !errors.As(err, &qe) || qe.Field != "lang" {
		t.Fatalf("got %v", err)
	}
}
