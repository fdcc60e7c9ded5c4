package phone

import (
	"reflect"
	"testing"
)

func TestNormalizeKenyaMobileForms(t *testing.T) {
	n := NewNormalizer("kenya")

	inputs := []string{"+254712345678", "254712345678", "0712345678", "712345678"}
	for _, in := range inputs {
		r := n.Normalize(in)
		if !r.Valid {
			t.Fatalf("%q: expected valid", in)
		}
		if r.Normalized != "+254712345678" {
			t.Fatalf("%q: expected +254712345678, got %q", in, r.Normalized)
		}
		if r.Type != TypeMobile {
			t.Fatalf("%q: expected mobile, got %q", in, r.Type)
		}
		want := []string{"+254712345678", "254712345678", "0712345678", "712345678"}
		if !reflect.DeepEqual(r.Variants, want) {
			t.Fatalf("%q: unexpected variants %v", in, r.Variants)
		}
	}
}

func TestNormalizeKenyaLandline(t *testing.T) {
	n := NewNormalizer("kenya")

	r := n.Normalize("020-1234567")
	if !r.Valid {
		t.Fatalf("expected valid landline, got %+v", r)
	}
	if r.Type != TypeLandline {
		t.Fatalf("expected landline, got %q", r.Type)
	}
	if r.Normalized != "+254201234567" {
		t.Fatalf("unexpected normalized %q", r.Normalized)
	}
}

func TestNormalizeUSNumber(t *testing.T) {
	n := NewNormalizer("kenya")

	r := n.Normalize("+1-555-123-4567")
	if !r.Valid || r.Country != "us" {
		t.Fatalf("expected valid us number, got %+v", r)
	}
	if r.Normalized != "+15551234567" {
		t.Fatalf("unexpected normalized %q", r.Normalized)
	}
}

func TestNormalizeCountryHintWins(t *testing.T) {
	n := NewNormalizer("kenya")

	// With a UK hint, the UK pattern is probed before Kenya.
	r := n.NormalizeCountry("07123456789", "uk")
	if !r.Valid || r.Country != "uk" {
		t.Fatalf("expected uk match, got %+v", r)
	}
	if r.Normalized != "+447123456789" {
		t.Fatalf("unexpected normalized %q", r.Normalized)
	}
}

func TestNormalizeGarbageNeverPanics(t *testing.T) {
	n := NewNormalizer("kenya")

	for _, in := range []string{"", "   ", "abc", "+", "++--", "call me maybe"} {
		r := n.Normalize(in)
		if r.Valid {
			t.Fatalf("%q: expected invalid", in)
		}
	}

	r := n.Normalize("not-a-number-99")
	if r.Valid {
		t.Fatalf("expected invalid")
	}
	if len(r.Variants) != 1 || r.Variants[0] != "not-a-number-99" {
		t.Fatalf("expected raw input as only variant, got %v", r.Variants)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := NewNormalizer("kenya")

	for _, in := range []string{"0712345678", "+254712345678", "020-1234567", "+1-555-123-4567"} {
		first := n.Normalize(in)
		if !first.Valid {
			t.Fatalf("%q: expected valid", in)
		}
		second := n.Normalize(first.Normalized)
		if second.Normalized != first.Normalized {
			t.Fatalf("%q: normalization not idempotent: %q -> %q", in, first.Normalized, second.Normalized)
		}
	}
}

func TestSearchVariantsInvalidInput(t *testing.T) {
	n := NewNormalizer("kenya")

	got := n.SearchVariants("99-99")
	want := []string{"99-99", "9999"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
