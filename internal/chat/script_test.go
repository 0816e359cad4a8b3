package chat

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestMatch(t *testing.T) {
	s := DefaultScript()
	pricing := s.Rules[0].Reply

	cases := map[string]string{
		"What's the PRICE?":                 pricing,
		"how much for whitening":            pricing,
		"Priceless smile pls":               pricing,
		"yes please":                        s.Rules[1].Reply,
		"Tomorrow morning works":            s.Rules[2].Reply,
		"do you take insurance":             s.Rules[3].Reply,
		"hello there":                       s.DefaultReply,
		"insurance and price, both please?": pricing,
	}
	for in, want := range cases {
		assert.Equal(t, want, s.Match(in), in)
	}
}

func TestMatch_PriceNeverDefault(t *testing.T) {
	s := DefaultScript()
	for _, in := range []string{"price", "PRICE", "xxpricexx", "ok but the Price?", "insurance price"} {
		assert.Equal(t, s.Rules[0].Reply, s.Match(in), in)
	}
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
greeting: "Hello from Bright Smiles"
typing_delay: 250ms
rules:
  - keywords: [hours, open]
    reply: "We are open 8-6."
`), 0o644))

	s, err := LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, "Hello from Bright Smiles", s.Greeting)
	assert.Equal(t, 250*time.Millisecond, s.TypingDelay)
	require.Len(t, s.Rules, 1)
	assert.Equal(t, "We are open 8-6.", s.Match("When are you OPEN?"))
	// untouched fields keep defaults
	assert.Equal(t, DefaultScript().FallbackReply, s.FallbackReply)
	assert.Equal(t, DefaultScript().DefaultReply, s.Match("price?"))
}

func TestLoadScript_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - reply: no keywords\n"), 0o644))
	_, err := LoadScript(path)
	require.Error(t, err)

	_, err = LoadScript(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestBuildContents(t *testing.T) {
	history := []Message{
		{Role: RoleAssistant, Text: "greeting"},
		{Role: RoleUser, Text: "hi"},
		{Role: RoleAssistant, Text: "hello"},
	}
	got := buildContents(history, "price?")
	require.Len(t, got, 3)
	assert.Equal(t, string(genai.RoleUser), got[0].Role)
	assert.Equal(t, "hi", got[0].Parts[0].Text)
	assert.Equal(t, string(genai.RoleModel), got[1].Role)
	assert.Equal(t, "price?", got[2].Parts[0].Text)
}
