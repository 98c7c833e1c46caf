package crawler

import (
	"slices"
	"testing"
)

func TestParserExtractLinks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		base string
		want []string
	}{
		{
			name: "resolves relative and absolute links",
			html: `<a href="/about">About</a><a href="https://sub.gov.rw/x">Sub</a><a href="news/today">News</a>`,
			base: "https://gov.rw/en/",
			want: []string{"https://gov.rw/about", "https://sub.gov.rw/x", "https://gov.rw/en/news/today"},
		},
		{
			name: "drops non-navigational hrefs",
			html: `<a href="">e</a><a href="#top">f</a><a href="javascript:void(0)">j</a>
				<a href="mailto:info@gov.rw">m</a><a href="TEL:+250">t</a><a href="data:text/plain,hi">d</a>
				<a href="ftp://files.gov.rw/">ftp</a><a>none</a>`,
			base: "https://gov.rw/",
			want: []string{},
		},
		{
			name: "strips fragments and de-duplicates preserving order",
			html: `<a href="/b#one">b</a><a href="/a">a</a><a href="/b#two">b again</a><a href="/a">a again</a>`,
			base: "https://gov.rw/",
			want: []string{"https://gov.rw/b", "https://gov.rw/a"},
		},
		{
			name: "honors base element",
			html: `<html><head><base href="https://cdn.risa.rw/docs/"></head><body><a href="page.html">p</a></body></html>`,
			base: "https://risa.rw/",
			want: []string{"https://cdn.risa.rw/docs/page.html"},
		},
		{
			name: "image map areas count as links",
			html: `<map><area href="/region" alt="r"></map>`,
			base: "https://rdb.rw/",
			want: []string{"https://rdb.rw/region"},
		},
		{
			name: "malformed markup still yields links",
			html: `<div><a href="/ok">ok<p><a href=/unquoted>x`,
			base: "https://bnr.rw/",
			want: []string{"https://bnr.rw/ok", "https://bnr.rw/unquoted"},
		},
		{
			name: "relative base url yields nothing",
			html: `<a href="/x">x</a>`,
			base: "/relative",
			want: []string{},
		},
		{
			name: "unparseable base url yields nothing",
			html: `<a href="/x">x</a>`,
			base: "http://[::1",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			links, _ := NewParser().Extract([]byte(tt.html), tt.base)
			if !slices.Equal(links, tt.want) {
				t.Errorf("Extract() links = %v, want %v", links, tt.want)
			}
		})
	}
}

func TestParserExtractMetadata(t *testing.T) {
	t.Parallel()

	html := `<html><head>
		<title>
			Republic   of Rwanda
		</title>
		<META NAME="Description" content="  Official  portal ">
		<meta name="keywords" content="rwanda, government">
		<meta property="og:title" content="ignored">
	</head><body>
		<svg><title>icon</title></svg>
		<h1>Welcome <span>home</span></h1>
		<h1>   </h1>
		<h1>Services</h1>
	</body></html>`

	_, meta := NewParser().Extract([]byte(html), "https://gov.rw/")

	if meta.Title != "Republic of Rwanda" {
		t.Errorf("Title = %q", meta.Title)
	}
	if meta.Description != "Official portal" {
		t.Errorf("Description = %q", meta.Description)
	}
	if meta.Keywords != "rwanda, government" {
		t.Errorf("Keywords = %q", meta.Keywords)
	}
	if !slices.Equal(meta.H1Tags, []string{"Welcome home", "Services"}) {
		t.Errorf("H1Tags = %v", meta.H1Tags)
	}
}

func TestParserExtractEmpty(t *testing.T) {
	t.Parallel()

	for _, content := range [][]byte{nil, []byte(""), []byte("\x00\xff\xfe binary"), []byte("plain text")} {
		links, meta := NewParser().Extract(content, "https://gov.rw/")
		if len(links) != 0 {
			t.Errorf("Extract(%q) links = %v", content, links)
		}
		if !meta.IsZero() {
			t.Errorf("Extract(%q) meta = %+v", content, meta)
		}
	}
}
