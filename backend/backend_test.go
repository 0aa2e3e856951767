package backend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		in   string
		want Provider
		err  bool
	}{
		"claude":         {in: "claude", want: Claude},
		"mixed case":     {in: "Grok", want: Grok},
		"gpt alias":      {in: "gpt", want: OpenAI},
		"openai":         {in: "openai", want: OpenAI},
		"gemini padded":  {in: "  gemini ", want: Gemini},
		"unknown":        {in: "llama", want: Claude, err: true},
		"empty is error": {in: "", want: Claude, err: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseProvider(tc.in)
			if tc.err {
				require.ErrorIs(t, err, ErrUnknownProvider)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestProviderNextCycles(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Grok, Claude.Next())
	assert.Equal(t, OpenAI, Grok.Next())
	assert.Equal(t, Gemini, OpenAI.Next())
	assert.Equal(t, Claude, Gemini.Next())

	seen := map[string]bool{}
	for _, p := range Providers {
		assert.NotEmpty(t, p.Name())
		assert.NotEmpty(t, p.Color())
		seen[p.Key()] = true
	}
	assert.Len(t, seen, len(Providers))
}

func TestStoreAppendClearReload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	s, err := OpenStore(dir)
	require.NoError(t, err)
	assert.Empty(t, s.Messages(Claude))

	require.NoError(t, s.Append(Claude, RoleUser, "hi"))
	require.NoError(t, s.Append(Claude, RoleAssistant, "hello: there\nsecond line"))
	require.NoError(t, s.Append(Gemini, RoleUser, "other"))

	reloaded, err := OpenStore(dir)
	require.NoError(t, err)
	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello: there\nsecond line"},
	}, reloaded.Messages(Claude))
	assert.Len(t, reloaded.Messages(Gemini), 1)

	require.NoError(t, reloaded.Clear(Claude))
	assert.Empty(t, reloaded.Messages(Claude))

	again, err := OpenStore(dir)
	require.NoError(t, err)
	assert.Empty(t, again.Messages(Claude))
	assert.Len(t, again.Messages(Gemini), 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, historyFile, entries[0].Name())
}

func TestStoreMessagesIsCopy(t *testing.T) {
	t.Parallel()

	s, err := OpenStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Append(Grok, RoleUser, "a"))

	msgs := s.Messages(Grok)
	msgs[0].Content = "changed"
	assert.Equal(t, "a", s.Messages(Grok)[0].Content)
}

func TestOpenStoreRejectsGarbage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, historyFile), []byte("claude: [unclosed"), 0o644))

	_, err := OpenStore(dir)
	require.Error(t, err)
}

func TestSettings(t *testing.T) {
	t.Parallel()

	t.Run("defaults written on init", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested")
		require.NoError(t, InitConfigDir(dir))
		require.FileExists(t, filepath.Join(dir, settingsFile))

		assert.Equal(t, DefaultSettings(), LoadSettings(dir))
	})

	t.Run("values override defaults", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		conf := "# comment\nvideo = /tmp/clip.gif\nopacity = 0.75\nprovider=gemini\nqueue_size = 4\nunknown = x\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, settingsFile), []byte(conf), 0o644))

		s := LoadSettings(dir)
		assert.Equal(t, "/tmp/clip.gif", s.Video)
		assert.InDelta(t, 0.75, s.Opacity, 1e-9)
		assert.Equal(t, "gemini", s.Provider)
		assert.Equal(t, "ascii", s.Palette)
		assert.Equal(t, 4, s.QueueSize)
	})

	t.Run("malformed values keep defaults", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		conf := "opacity = lots\nqueue_size = -2\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, settingsFile), []byte(conf), 0o644))

		s := LoadSettings(dir)
		assert.InDelta(t, 0.3, s.Opacity, 1e-9)
		assert.Equal(t, 8, s.QueueSize)
	})

	t.Run("save round trips", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		want := Settings{Video: "a.mp4", Opacity: 0.5, Provider: "grok", Palette: "blocks", QueueSize: 2}
		require.NoError(t, SaveSettings(dir, want))
		assert.Equal(t, want, LoadSettings(dir))
	})
}
