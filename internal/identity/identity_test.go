package identity

import (
	"testing"

	"github.com/amishk599/jobradar/internal/model"
)

func TestResolveStableAcrossFormattingChanges(t *testing.T) {
	base := model.Listing{
		Title:   "IT Supporter 1st Level",
		Company: "Acme AG",
		Source:  "jobs.ch",
	}
	perturbed := []model.Listing{
		{Title: "it supporter 1st level", Company: "ACME AG", Source: "jobs.ch"},
		{Title: "  IT   Supporter\t1st Level ", Company: "Acme  AG", Source: "JOBS.CH"},
		{Title: "IT Supporter 1st Level!", Company: "Acme, AG", Source: "jobs.ch"},
	}

	want := Resolve(base)
	if len(want) != 16 {
		t.Fatalf("uid length = %d, want 16", len(want))
	}
	for i, l := range perturbed {
		if got := Resolve(l); got != want {
			t.Errorf("perturbation %d: uid = %s, want %s", i, got, want)
		}
	}
}

func TestResolveStripsDiacritics(t *testing.T) {
	a := model.Listing{Title: "Téchniker Zürich", Company: "Müller GmbH", Source: "jobs.ch"}
	b := model.Listing{Title: "Techniker Zurich", Company: "Muller GmbH", Source: "jobs.ch"}

	if Resolve(a) != Resolve(b) {
		t.Error("diacritic variants should resolve to the same uid")
	}
}

func TestResolveDistinctListingsDiffer(t *testing.T) {
	a := model.Listing{Title: "IT Supporter", Company: "Acme AG", Source: "jobs.ch"}
	b := model.Listing{Title: "IT Supporter", Company: "Globex AG", Source: "jobs.ch"}
	c := model.Listing{Title: "IT Supporter", Company: "Acme AG", Source: "indeed"}

	if Resolve(a) == Resolve(b) {
		t.Error("different companies should not collide")
	}
	if Resolve(a) == Resolve(c) {
		t.Error("different sources should not collide")
	}
}

func TestResolveFallsBackToRawText(t *testing.T) {
	a := model.Listing{Source: "jobs.ch", RawText: "Some scraped blob about a role"}
	b := model.Listing{Source: "jobs.ch", RawText: "Some   scraped blob about a role"}
	c := model.Listing{Source: "jobs.ch", RawText: "A completely different blob"}

	if Resolve(a) != Resolve(b) {
		t.Error("whitespace variants of the raw text should resolve identically")
	}
	if Resolve(a) == Resolve(c) {
		t.Error("different raw text should not collide")
	}

	// Title without company also takes the fallback path.
	d := model.Listing{Title: "IT Supporter", Source: "jobs.ch", RawText: "blob"}
	e := model.Listing{Source: "jobs.ch", RawText: "blob"}
	if Resolve(d) != Resolve(e) {
		t.Error("missing company should fall back to the raw text key")
	}
}

func TestResolveIsRepeatable(t *testing.T) {
	l := model.Listing{Title: "System Administrator", Company: "Initech", Source: "indeed"}
	first := Resolve(l)
	for i := 0; i < 5; i++ {
		if got := Resolve(l); got != first {
			t.Fatalf("call %d: uid = %s, want %s", i, got, first)
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Hello,   World! ", "hello world"},
		{"Zürich", "zurich"},
		{"C++ / Go (m/w/d)", "c go m w d"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCanonicalURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"HTTPS://Jobs.CH/vacancies/123/", "https://jobs.ch/vacancies/123"},
		{"https://jobs.ch/vacancies/123?utm=x#top", "https://jobs.ch/vacancies/123"},
		{"not a url", "not a url"},
		{"", ""},
	}
	for _, c := range cases {
		if got := CanonicalURL(c.in); got != c.want {
			t.Errorf("CanonicalURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
