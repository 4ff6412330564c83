package reader

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"readaloud/internal/config"
	"readaloud/internal/speech"
	"readaloud/internal/speech/engine"
	"readaloud/internal/store"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// syncBuffer is written by engine goroutines and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	r   *Reader
	kv  *store.FileKV
	out *syncBuffer
}

func newHarness(t *testing.T, wpm float64, input string) *harness {
	t.Helper()

	kv, err := store.NewFileKV(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	out := &syncBuffer{}
	cfg := config.Config{
		TTS:   config.TTS{Type: "mock", Rate: 1, Pitch: 1, Volume: 1},
		Store: config.Store{Debounce: time.Hour},
	}

	r := New(cfg,
		WithEngine(engine.NewMock(wpm)),
		WithKV(kv),
		WithInput(strings.NewReader(input)),
		WithOutput(out),
	)
	t.Cleanup(r.Close)
	return &harness{r: r, kv: kv, out: out}
}

func (h *harness) run(t *testing.T, args ...string) {
	t.Helper()
	root := &cobra.Command{Use: "readaloud"}
	root.AddCommand(h.r.Commands()...)
	root.SetArgs(args)
	root.SetOut(h.out)
	root.SetErr(h.out)

	done := make(chan error, 1)
	go func() { done <- root.Execute() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Execute(%v) error = %v", args, err)
		}
	case <-time.After(5 * time.Second):
		h.r.Cancel()
		t.Fatalf("Execute(%v) did not return", args)
	}
}

func writePassage(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "passage.txt")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (h *harness) saved(t *testing.T) store.PassageData {
	t.Helper()
	return store.NewPassages(h.kv).Load()
}

func TestReadPassageRunsToCompletion(t *testing.T) {
	h := newHarness(t, 60000, "")
	path := writePassage(t, "Coral Reefs\nReefs (see figure 2) grow slowly.")

	h.run(t, "read", path, "--id", "reefs")

	out := h.out.String()
	if !strings.Contains(out, "📖 Coral Reefs") {
		t.Errorf("output missing title:\n%s", out)
	}
	if !strings.Contains(out, "Passage finished") {
		t.Errorf("output missing completion:\n%s", out)
	}
	if !strings.Contains(out, "slowly.") {
		t.Errorf("follower did not print words:\n%s", out)
	}
	if strings.Contains(out, "figure") {
		t.Errorf("aside was spoken:\n%s", out)
	}

	h.r.Close()
	data := h.saved(t)
	if len(data.RecentlyViewed) != 1 || data.RecentlyViewed[0].ID != "reefs" {
		t.Errorf("recent views = %+v, want reefs", data.RecentlyViewed)
	}
}

func TestReadAsideOnlyPassage(t *testing.T) {
	tests := []struct {
		name  string
		input string
		args  func(t *testing.T) []string
	}{
		{
			name: "file",
			args: func(t *testing.T) []string {
				return []string{"read", writePassage(t, "(Figure 1) [note]"), "--id", "aside"}
			},
		},
		{
			name:  "stdin",
			input: "(x)\n",
			args:  func(*testing.T) []string { return []string{"read", "-", "--id", "aside"} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 60000, tt.input)
			h.run(t, tt.args(t)...)

			if out := h.out.String(); !strings.Contains(out, "Nothing to read") {
				t.Errorf("output = %q, want nothing-to-read warning", out)
			}
			if st := h.r.Speech().State(); st.Phase() != speech.PhaseIdle || st.Loading {
				t.Errorf("state = %+v, want idle", st)
			}

			h.r.Close()
			if data := h.saved(t); len(data.RecentlyViewed) != 0 {
				t.Errorf("recent views = %+v, want none", data.RecentlyViewed)
			}
		})
	}
}

func TestReadInteractiveControls(t *testing.T) {
	// One word per second, so playback outlasts the commands.
	h := newHarness(t, 60, "p\np\nb\nt 5\ns\n")
	path := writePassage(t, "Title\nA long passage that takes a while to read.")

	h.run(t, "read", path, "--id", "p1", "--follow=false")

	out := h.out.String()
	for _, want := range []string{"Paused", "Resumed", "Bookmarked p1", "Sleep timer: 5 minutes", "Stopped"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Passage finished") {
		t.Errorf("stopped passage reported as finished:\n%s", out)
	}

	st := h.r.Speech().State()
	if st.Speaking || st.Loading {
		t.Errorf("state after stop = %+v, want idle", st)
	}
	if h.r.Speech().SleepTimerPending() {
		t.Error("sleep timer still pending after stop")
	}
	if data := h.saved(t); !data.IsBookmarked("p1") {
		t.Errorf("bookmarks = %v, want p1", data.Bookmarks)
	}
}

func TestReadUnknownVoice(t *testing.T) {
	h := newHarness(t, 60000, "")
	path := writePassage(t, "Title\nText.")

	h.run(t, "read", path, "--voice", "Nobody")

	if out := h.out.String(); !strings.Contains(out, `voice "Nobody" not available`) {
		t.Errorf("output = %q, want voice error", out)
	}
	if st := h.r.Speech().State(); st.Loading || st.Speaking {
		t.Errorf("state = %+v, want idle", st)
	}
}

func TestReadUnsupported(t *testing.T) {
	kv, err := store.NewFileKV(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	out := &syncBuffer{}
	r := New(config.Config{TTS: config.TTS{Type: "festival"}}, WithKV(kv), WithOutput(out))
	t.Cleanup(r.Close)

	h := &harness{r: r, kv: kv, out: out}
	h.run(t, "read", writePassage(t, "Title\nText."))

	if !strings.Contains(out.String(), "not available on this system") {
		t.Errorf("output = %q, want unsupported message", out.String())
	}
	if r.Speech().State().Supported {
		t.Error("Supported = true for an engine that failed to start")
	}
}

func TestVoicesCommand(t *testing.T) {
	h := newHarness(t, 60000, "")
	h.run(t, "voices")

	out := h.out.String()
	if !strings.Contains(out, "* Daniel") {
		t.Errorf("default voice not marked:\n%s", out)
	}
	if !strings.Contains(out, "Thomas") {
		t.Errorf("voice list incomplete:\n%s", out)
	}
}

func TestVoicesCommandLanguageFilter(t *testing.T) {
	h := newHarness(t, 60000, "")
	h.run(t, "voices", "--lang", "fr")

	out := h.out.String()
	if !strings.Contains(out, "Thomas") || strings.Contains(out, "Daniel") {
		t.Errorf("filtered list wrong:\n%s", out)
	}
}

func TestVoiceCommandPersists(t *testing.T) {
	h := newHarness(t, 60000, "")
	h.run(t, "voice", "alex")

	if !strings.Contains(h.out.String(), "Voice set to Alex (en-US)") {
		t.Errorf("output = %q", h.out.String())
	}
	if got := store.NewPreferences(h.kv).VoiceName(); got != "Alex" {
		t.Errorf("saved voice = %q, want Alex", got)
	}
	if v := h.r.Speech().Settings().Voice; v == nil || v.Name != "Alex" {
		t.Errorf("settings voice = %v, want Alex", v)
	}
}

func TestSavedVoiceBecomesDefault(t *testing.T) {
	kv, err := store.NewFileKV(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store.NewPreferences(kv).SetVoiceName("Karen")

	r := New(config.Config{TTS: config.TTS{Type: "mock"}},
		WithEngine(engine.NewMock(0)), WithKV(kv), WithOutput(&syncBuffer{}))
	t.Cleanup(r.Close)

	if v := r.Speech().Settings().Voice; v == nil || *v != (speech.Voice{Name: "Karen", Lang: "en-AU"}) {
		t.Errorf("default voice = %v, want Karen", v)
	}
}

func TestCleanCommand(t *testing.T) {
	h := newHarness(t, 60000, "")
	h.run(t, "clean", "Read (quietly)  the [A] text {now}.")

	if got := h.out.String(); got != "Read the text.\n" {
		t.Errorf("clean output = %q", got)
	}
}

func TestCleanCommandStdin(t *testing.T) {
	h := newHarness(t, 60000, "one\n\ntwo (three)")
	h.run(t, "clean")

	if got := h.out.String(); got != "one two\n" {
		t.Errorf("clean output = %q", got)
	}
}

func TestBookmarkCommands(t *testing.T) {
	h := newHarness(t, 60000, "")

	h.run(t, "bookmark", "test-1")
	h.run(t, "bookmark", "test-2")
	h.run(t, "bookmarks")
	out := h.out.String()
	if !strings.Contains(out, "1. test-1") || !strings.Contains(out, "2. test-2") {
		t.Errorf("bookmarks output:\n%s", out)
	}

	h.run(t, "bookmark", "test-1")
	if data := h.saved(t); len(data.Bookmarks) != 1 || data.Bookmarks[0] != "test-2" {
		t.Errorf("bookmarks = %v, want [test-2]", data.Bookmarks)
	}
}

func TestRecentEmpty(t *testing.T) {
	h := newHarness(t, 60000, "")
	h.run(t, "recent")

	if !strings.Contains(h.out.String(), "Nothing read yet") {
		t.Errorf("output = %q", h.out.String())
	}
}

func TestEnginesCommand(t *testing.T) {
	h := newHarness(t, 60000, "")
	h.run(t, "engines")

	if !strings.Contains(h.out.String(), "* mock") {
		t.Errorf("configured engine not marked:\n%s", h.out.String())
	}
}

func TestSettingsCommand(t *testing.T) {
	h := newHarness(t, 60000, "")
	h.run(t, "settings")

	out := h.out.String()
	for _, want := range []string{"Current voice: Daniel (en-GB)", "Rate: 1.0x", "Volume: 100%"} {
		if !strings.Contains(out, want) {
			t.Errorf("settings output missing %q:\n%s", want, out)
		}
	}
}

func TestWordAt(t *testing.T) {
	tests := []struct {
		text string
		i    int
		want string
	}{
		{"hello world", 0, "hello"},
		{"hello world", 6, "world"},
		{"hello world", 3, "lo"},
		{"hello", 5, ""},
		{"hello", -1, ""},
	}

	for _, tt := range tests {
		if got := wordAt(tt.text, tt.i); got != tt.want {
			t.Errorf("wordAt(%q, %d) = %q, want %q", tt.text, tt.i, got, tt.want)
		}
	}
}

func TestFollowerPrintsEachWordOnce(t *testing.T) {
	var out bytes.Buffer
	f := newFollower(&out)
	f.setEnabled(true)

	text := "one two three"
	for _, st := range []speech.State{
		{Supported: true, Loading: true, Text: text},
		{Supported: true, Speaking: true, Text: text},
		{Supported: true, Speaking: true, Text: text, CharIndex: 0},
		{Supported: true, Speaking: true, Text: text, CharIndex: 4},
		{Supported: true, Speaking: true, Paused: true, Text: text, CharIndex: 4},
		{Supported: true, Speaking: true, Text: text, CharIndex: 8},
		{Supported: true},
	} {
		f.update(st)
	}

	if got, want := out.String(), "one two three \n"; got != want {
		t.Errorf("follower output = %q, want %q", got, want)
	}
}
