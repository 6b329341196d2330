package pricelookup

import (
	"strings"
	"testing"
)

func TestParseSuggestion(t *testing.T) {
	reply := "RANGE: 450-900\nNOTES: Rates vary with project scope."
	s, err := parseSuggestion(reply, "EUR")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Low.String() != "450" || s.High.String() != "900" {
		t.Fatalf("range = %s-%s", s.Low, s.High)
	}
	if s.Currency != "EUR" {
		t.Fatalf("currency = %q", s.Currency)
	}
	if s.Notes != "Rates vary with project scope." {
		t.Fatalf("notes = %q", s.Notes)
	}
}

func TestParseSuggestionWithSurroundingText(t *testing.T) {
	reply := "Here is my estimate.\n\nRANGE: 120.50 - 250.00\nNOTES: Hourly.\nHope that helps."
	s, err := parseSuggestion(reply, "USD")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Low.String() != "120.5" || s.High.String() != "250" {
		t.Fatalf("range = %s-%s", s.Low, s.High)
	}
}

func TestParseSuggestionSwapsInvertedRange(t *testing.T) {
	s, err := parseSuggestion("RANGE: 900-450", "USD")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Low.String() != "450" || s.High.String() != "900" {
		t.Fatalf("range = %s-%s", s.Low, s.High)
	}
}

func TestParseSuggestionNoRange(t *testing.T) {
	if _, err := parseSuggestion("I cannot estimate that.", "USD"); err == nil {
		t.Fatal("expected error for reply without a range")
	}
}

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt("logo design", "EUR", "Netherlands")
	for _, want := range []string{"logo design", "EUR", "Netherlands", "RANGE:", "NOTES:"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	p = buildPrompt("logo design", "EUR", "")
	if strings.Contains(p, "Region:") {
		t.Error("prompt should omit empty region")
	}
}
