package translator

import (
	"context"
	"testing"

	"github.com/lsilvatti/transdeck/internal/core/ai"
	"github.com/lsilvatti/transdeck/internal/language"
)

// fakeProvider echoes each input line prefixed with a marker, enough to
// assert the translator forwarded text and used the returned lines in order.
type fakeProvider struct {
	lastPrompt string
	err        error
}

func (f *fakeProvider) SendBatch(ctx context.Context, payload []ai.Line, systemPrompt string) ([]ai.Line, error) {
	f.lastPrompt = systemPrompt
	if f.err != nil {
		return nil, f.err
	}
	out := make([]ai.Line, len(payload))
	for i, l := range payload {
		out[i] = ai.Line{ID: l.ID, Text: "TR:" + l.Text}
	}
	return out, nil
}

func (f *fakeProvider) ValidateKey(ctx context.Context) bool        { return true }
func (f *fakeProvider) ListModels(ctx context.Context) ([]string, error) { return nil, nil }

func TestTranslateTrivialInputs(t *testing.T) {
	p := &fakeProvider{}
	tr := New(language.English, language.Japanese, nil, p)

	for _, in := range []string{"", "   ", "-", "ー", "‐"} {
		got, err := tr.Translate(context.Background(), in)
		if err != nil {
			t.Fatalf("Translate(%q): %v", in, err)
		}
		want := in
		if in == "   " {
			want = ""
		}
		if got != want {
			t.Errorf("Translate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTranslateIdentityLanguagePairShortCircuits(t *testing.T) {
	p := &fakeProvider{}
	tr := New(language.English, language.English, nil, p)

	got, err := tr.Translate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "hello" {
		t.Errorf("Translate() = %q, want unchanged %q", got, "hello")
	}
	if p.lastPrompt != "" {
		t.Errorf("expected no provider call for identity language pair, got prompt %q", p.lastPrompt)
	}
}

func TestTranslateForwardsToProvider(t *testing.T) {
	p := &fakeProvider{}
	tr := New(language.English, language.Japanese, map[string]string{"Sasuke": "Sasuke"}, p)

	got, err := tr.Translate(context.Background(), "Hello world")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "TR:Hello world" {
		t.Errorf("Translate() = %q", got)
	}
	if p.lastPrompt == "" {
		t.Fatal("expected a system prompt to be built")
	}
}

func TestTranslatePropagatesProviderError(t *testing.T) {
	p := &fakeProvider{err: errBoom}
	tr := New(language.English, language.Japanese, nil, p)

	if _, err := tr.Translate(context.Background(), "hi"); err == nil {
		t.Fatal("expected error to propagate")
	}
}

var errBoom = testError("boom")

type testError string

func (e testError) Error() string { return string(e) }
