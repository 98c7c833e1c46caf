package model

import "testing"

func TestIsValidURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"https page", "https://gov.rw/about", true},
		{"http root", "http://example.rw", true},
		{"ip literal is valid", "http://192.168.1.1/index.html", true},
		{"missing scheme", "gov.rw/about", false},
		{"relative path", "/about", false},
		{"ftp scheme", "ftp://files.gov.rw/", false},
		{"mailto", "mailto:info@gov.rw", false},
		{"javascript", "javascript:void(0)", false},
		{"empty host", "https:///path", false},
		{"empty string", "", false},
		{"image extension", "https://gov.rw/logo.PNG", false},
		{"pdf extension", "https://gov.rw/report.pdf", false},
		{"stylesheet", "https://gov.rw/static/site.css", false},
		{"office document", "https://gov.rw/budget.xlsx", false},
		{"html extension is fine", "https://gov.rw/index.html", true},
		{"malformed escape", "http://gov.rw/%zz", false},
		{"control character", "http://gov.rw/\x7f", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsValidURL(tt.url); got != tt.want {
				t.Errorf("IsValidURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtractDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"lowercases host", "https://WWW.Gov.RW/path", "www.gov.rw"},
		{"drops port", "http://example.rw:8080/", "example.rw"},
		{"no host", "/relative", ""},
		{"unparseable", "http://[::1", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ExtractDomain(tt.url); got != tt.want {
				t.Errorf("ExtractDomain(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestNormalizeDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"www.example.rw", "example.rw"},
		{"example.rw", "example.rw"},
		{"www.www.example.rw", "example.rw"},
		{"www.rw", "www.rw"},
		{"wwwexample.rw", "wwwexample.rw"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got := NormalizeDomain(tt.in)
			if got != tt.want {
				t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := NormalizeDomain(got); again != got {
				t.Errorf("NormalizeDomain is not idempotent for %q: %q then %q", tt.in, got, again)
			}
		})
	}
}

func TestCanonicalDomain(t *testing.T) {
	t.Parallel()

	if got := CanonicalDomain("  WWW.Irembo.Gov.RW. "); got != "irembo.gov.rw" {
		t.Errorf("CanonicalDomain() = %q, want %q", got, "irembo.gov.rw")
	}
}

func TestTarget(t *testing.T) {
	t.Parallel()

	target := NewTarget("rw")
	if target.Suffix() != ".rw" {
		t.Fatalf("Suffix() = %q, want .rw", target.Suffix())
	}
	if target.Label() != "rw" {
		t.Fatalf("Label() = %q, want rw", target.Label())
	}

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"target domain", "https://gov.rw/", true},
		{"subdomain", "https://sub.gov.rw/page", true},
		{"case insensitive", "https://MINICT.GOV.RW/", true},
		{"other tld", "https://external.com/", false},
		{"suffix inside label", "https://example.rwanda.com/", false},
		{"bare suffix", "https://rw/", false},
		{"ip literal", "http://10.0.0.1/", false},
		{"ipv6 literal", "http://[::1]:8080/", false},
		{"garbage", "::::", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := target.Matches(tt.url); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.url, got, tt.want)
			}
			if got := IsTargetDomain(tt.url, ".rw"); got != tt.want {
				t.Errorf("IsTargetDomain(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}

	t.Run("zero target matches nothing", func(t *testing.T) {
		t.Parallel()

		var zero Target
		if zero.Matches("https://gov.rw/") {
			t.Error("zero Target should not match")
		}
	})
}
