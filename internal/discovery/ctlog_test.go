package discovery

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/nao1215/tldcrawl/internal/fetcher"
	"github.com/nao1215/tldcrawl/internal/model"
)

func TestCTLogRun(t *testing.T) {
	t.Parallel()

	var gotQuery, gotOutput string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotOutput = r.URL.Query().Get("output")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"issuer_name": "C=US", "name_value": "gov.rw\n*.risa.rw", "common_name": "gov.rw"},
			{"name_value": "WWW.UR.AC.RW", "common_name": "ur.ac.rw"},
			{"name_value": "example.com\nrw", "common_name": "admin@mail.rw"},
			{"name_value": "irembo.gov.rw.", "common_name": "irembo.gov.rw"}
		]`))
	}))
	defer srv.Close()

	env, cat, _, _ := newTestEnv(t)
	s := NewCTLog(srv.URL+"/", srv.Client(), WithCTLogUserAgent("test-agent"))
	if s.Name() != "ct_log" {
		t.Errorf("Name() = %s", s.Name())
	}
	if err := s.Run(t.Context(), env); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if gotQuery != "%.rw" || gotOutput != "json" {
		t.Errorf("query q=%q output=%q", gotQuery, gotOutput)
	}
	want := []string{"gov.rw", "risa.rw", "ur.ac.rw", "irembo.gov.rw"}
	if !slices.Equal(cat.Domains(), want) {
		t.Errorf("Domains() = %v, want %v", cat.Domains(), want)
	}
	rec, _ := cat.Get("risa.rw")
	if rec.URL != "https://risa.rw" || rec.DiscoveryMethod != model.MethodCertificateTransparency || rec.Title != ctLogTitle {
		t.Errorf("record = %+v", rec)
	}
}

func TestCTLogRunErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "server error",
			status: http.StatusBadGateway,
			check: func(t *testing.T, err error) {
				t.Helper()
				var se *fetcher.StatusError
				if !errors.As(err, &se) || se.Code != http.StatusBadGateway {
					t.Errorf("error = %v, want StatusError 502", err)
				}
			},
		},
		{
			name:   "not an array",
			status: http.StatusOK,
			body:   `{"error": "busy"}`,
			check: func(t *testing.T, err error) {
				t.Helper()
				if !errors.Is(err, ErrUnexpectedResponse) {
					t.Errorf("error = %v, want ErrUnexpectedResponse", err)
				}
			},
		},
		{
			name:   "truncated array keeps earlier names",
			status: http.StatusOK,
			body:   `[{"name_value": "bnr.rw"}, {"name_value": "rd`,
			check: func(t *testing.T, err error) {
				t.Helper()
				if err == nil {
					t.Error("expected a decode error")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			env, cat, _, _ := newTestEnv(t)
			err := NewCTLog(srv.URL, srv.Client()).Run(t.Context(), env)
			tt.check(t, err)
			if tt.name == "truncated array keeps earlier names" && !cat.Contains("bnr.rw") {
				t.Error("names decoded before the error should be recorded")
			}
		})
	}
}

func TestCertificateNames(t *testing.T) {
	t.Parallel()

	pattern := hostPattern(model.NewTarget("rw"))
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "newline separated", input: "a.rw\nb.co.rw", want: []string{"a.rw", "b.co.rw"}},
		{name: "wildcard stripped", input: "*.*.gov.rw", want: []string{"gov.rw"}},
		{name: "bare suffix rejected", input: "rw", want: nil},
		{name: "other tld rejected", input: "rw.example.com", want: nil},
		{name: "email rejected", input: "hostmaster@nic.rw", want: nil},
		{name: "hyphen edges rejected", input: "-bad.rw", want: nil},
		{name: "comma separated", input: "x.rw, y.rw", want: []string{"x.rw", "y.rw"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := certificateNames(pattern, tt.input); !slices.Equal(got, tt.want) {
				t.Errorf("certificateNames(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
