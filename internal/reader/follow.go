package reader

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode"

	"readaloud/internal/cli/scheme/colours"
	"readaloud/internal/speech"
)

// follower prints each word as the engine reaches it.
type follower struct {
	out io.Writer

	mu      sync.Mutex
	enabled bool
	text    string
	last    int
	phase   speech.Phase
}

func newFollower(out io.Writer) *follower {
	return &follower{out: out, last: -1}
}

func (f *follower) setEnabled(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = on
}

func (f *follower) update(st speech.State) {
	f.mu.Lock()
	defer f.mu.Unlock()

	phase := st.Phase()
	if phase != f.phase {
		if phase == speech.PhaseIdle && f.enabled && f.last >= 0 {
			fmt.Fprintln(f.out)
		}
		f.phase = phase
	}
	if phase == speech.PhaseIdle || st.Text != f.text {
		f.text = st.Text
		f.last = -1
	}
	if phase == speech.PhaseIdle {
		return
	}

	if !f.enabled || st.CharIndex <= f.last {
		return
	}
	word := wordAt(st.Text, st.CharIndex)
	if word == "" {
		return
	}
	f.last = st.CharIndex
	colours.Highlight.Fprint(f.out, word)
	fmt.Fprint(f.out, " ")
}

// wordAt returns the word starting at byte offset i.
func wordAt(text string, i int) string {
	if i < 0 || i >= len(text) {
		return ""
	}
	rest := text[i:]
	if end := strings.IndexFunc(rest, unicode.IsSpace); end >= 0 {
		return rest[:end]
	}
	return rest
}
