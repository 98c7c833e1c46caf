package discovery

import (
	"slices"
	"testing"

	"github.com/nao1215/tldcrawl/internal/model"
)

func TestSeedRun(t *testing.T) {
	t.Parallel()

	env, _, queue, _ := newTestEnv(t)
	s := NewSeed([]string{"gov.rw", " risa.rw/ ", "", "https://www.ur.ac.rw/home", "example.com"})
	if err := s.Run(t.Context(), env); err != nil {
		t.Fatal(err)
	}

	want := []string{"https://gov.rw", "https://risa.rw", "https://www.ur.ac.rw/home"}
	if !slices.Equal(queue.urls(), want) {
		t.Errorf("queued %v, want %v", queue.urls(), want)
	}
	for _, it := range queue.items {
		if it.Depth != 0 || it.Source != model.MethodSeed {
			t.Errorf("item %+v should be depth 0 from seed", it)
		}
	}
}

func TestSeedURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "gov.rw", want: "https://gov.rw"},
		{in: "gov.rw/", want: "https://gov.rw"},
		{in: "http://old.rw", want: "http://old.rw"},
		{in: "   ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := seedURL(tt.in); got != tt.want {
				t.Errorf("seedURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
