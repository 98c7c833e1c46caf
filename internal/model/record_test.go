package model

import "testing"

func TestNewDomainRecord(t *testing.T) {
	t.Parallel()

	t.Run("canonicalizes the domain", func(t *testing.T) {
		t.Parallel()

		meta := PageMetadata{Title: "Home", H1Tags: []string{"Welcome"}}
		rec, ok := NewDomainRecord("https://WWW.Gov.RW/en", MethodSeed, meta)
		if !ok {
			t.Fatal("expected record")
		}
		if rec.Domain != "gov.rw" {
			t.Errorf("Domain = %q, want gov.rw", rec.Domain)
		}
		if rec.URL != "https://WWW.Gov.RW/en" {
			t.Errorf("URL = %q, want the original URL", rec.URL)
		}
		if rec.Title != "Home" || len(rec.H1Tags) != 1 {
			t.Errorf("metadata not copied: %+v", rec)
		}
		if rec.DiscoveredAt.IsZero() {
			t.Error("DiscoveredAt should be set")
		}
	})

	t.Run("rejects hostless URL", func(t *testing.T) {
		t.Parallel()

		if _, ok := NewDomainRecord("/relative", MethodLink, PageMetadata{}); ok {
			t.Error("expected no record for a relative URL")
		}
	})
}

func TestCatalogDocument(t *testing.T) {
	t.Parallel()

	doc := NewCatalogDocument()
	doc.Domains = append(doc.Domains,
		DomainRecord{Domain: "gov.rw", DiscoveryMethod: MethodSeed},
		DomainRecord{Domain: "risa.rw", DiscoveryMethod: MethodCertificateTransparency},
		DomainRecord{Domain: "rdb.rw", DiscoveryMethod: MethodCertificateTransparency},
	)

	if !doc.Contains("WWW.GOV.RW") {
		t.Error("Contains should match the canonical form")
	}
	if doc.Contains("bnr.rw") {
		t.Error("Contains reported a missing domain")
	}

	counts := doc.CountByMethod()
	if counts[MethodCertificateTransparency] != 2 || counts[MethodSeed] != 1 {
		t.Errorf("CountByMethod() = %v", counts)
	}
}

func TestPageMetadataIsZero(t *testing.T) {
	t.Parallel()

	if !(PageMetadata{}).IsZero() {
		t.Error("empty metadata should be zero")
	}
	if (PageMetadata{Keywords: "rwanda"}).IsZero() {
		t.Error("metadata with keywords should not be zero")
	}
}
