package insight_test

import (
	"reflect"
	"testing"

	"github.com/fintrackhq/fintrack-bff-go/internal/insight"
)

func TestParseSuggestions_StripsMarkersAndLabels(t *testing.T) {
	raw := "• Save more\n**Bold tip**\nInsights: Track spending"

	got := insight.ParseSuggestions(raw, 3)

	want := []string{"Save more", "Bold tip", "Track spending"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestParseSuggestions_DropsEmptyLines(t *testing.T) {
	raw := "\n\n- First tip\n   \n* Second tip\n\n"

	got := insight.ParseSuggestions(raw, 5)

	want := []string{"First tip", "Second tip"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestParseSuggestions_TruncatesToMax(t *testing.T) {
	raw := "- one\n- two\n- three\n- four"

	got := insight.ParseSuggestions(raw, 2)

	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if got[0] != "one" || got[1] != "two" {
		t.Errorf("unexpected suggestions: %v", got)
	}
}

func TestParseSuggestions_AllUnusable(t *testing.T) {
	got := insight.ParseSuggestions("**\n- \n   ", 3)

	if len(got) != 0 {
		t.Errorf("expected no suggestions, got %v", got)
	}
}

func TestCleanSuggestion(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"• Save more", "Save more"},
		{"**Bold tip**", "Bold tip"},
		{"Insights: Track spending", "Track spending"},
		{"INSIGHTS:   shouty label", "shouty label"},
		{"  - dashed with space  ", "dashed with space"},
		{"* starred", "starred"},
		{"1. numbered tip", "numbered tip"},
		{"plain text", "plain text"},
		{"", ""},
	}

	for _, c := range cases {
		if got := insight.CleanSuggestion(c.in); got != c.want {
			t.Errorf("CleanSuggestion(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
