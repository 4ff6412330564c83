package speech

import (
	"strings"
	"sync"
)

// House default used when the user never picked a voice.
const (
	defaultVoiceName = "Daniel"
	defaultVoiceLang = "en-GB"
)

// Registry caches the voices reported by a Synthesizer and refreshes the
// snapshot whenever the engine announces a change.
type Registry struct {
	synth Synthesizer

	mu          sync.RWMutex
	voices      []Voice
	subscribers []func([]Voice)

	once sync.Once
}

// NewRegistry snapshots the engine's voices and subscribes to its
// voices-changed notification. A nil synth yields an empty registry.
func NewRegistry(synth Synthesizer) *Registry {
	r := &Registry{synth: synth}
	if synth == nil {
		return r
	}

	r.once.Do(func() {
		synth.OnVoicesChanged(r.Refresh)
	})

	voices := copyVoices(synth.Voices())
	r.mu.Lock()
	r.voices = voices
	r.mu.Unlock()
	return r
}

// Voices returns a copy of the current snapshot.
func (r *Registry) Voices() []Voice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyVoices(r.voices)
}

// ByLanguage returns the voices whose language tag starts with prefix.
func (r *Registry) ByLanguage(prefix string) []Voice {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Voice
	for _, v := range r.voices {
		if strings.HasPrefix(v.Lang, prefix) {
			out = append(out, v)
		}
	}
	return out
}

// Subscribe registers fn to be called with the new snapshot after every
// refresh.
func (r *Registry) Subscribe(fn func([]Voice)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// Refresh re-reads the engine's voices and notifies subscribers.
func (r *Registry) Refresh() {
	if r.synth == nil {
		return
	}
	voices := copyVoices(r.synth.Voices())

	r.mu.Lock()
	r.voices = voices
	subs := append([]func([]Voice){}, r.subscribers...)
	r.mu.Unlock()

	for _, fn := range subs {
		fn(copyVoices(voices))
	}
}

// ResolveDefault picks the voice to use when none was chosen for this
// session. The first rule that matches wins:
//
//  1. the voice named preferred
//  2. Daniel (en-GB)
//  3. any en-GB voice
//  4. any en-US voice
//  5. any English voice
//  6. the first voice
//
// It reports false only when voices is empty.
func ResolveDefault(preferred string, voices []Voice) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}

	rules := []func(Voice) bool{
		func(v Voice) bool { return preferred != "" && v.Name == preferred },
		func(v Voice) bool { return v.Name == defaultVoiceName && v.Lang == defaultVoiceLang },
		func(v Voice) bool { return v.Lang == "en-GB" },
		func(v Voice) bool { return v.Lang == "en-US" },
		func(v Voice) bool { return strings.HasPrefix(v.Lang, "en") },
	}
	for _, match := range rules {
		for _, v := range voices {
			if match(v) {
				return v, true
			}
		}
	}
	return voices[0], true
}

// voiceForLang returns the first voice speaking lang, either as an exact
// tag or as a region of it ("en" matches "en-AU").
func voiceForLang(lang string, voices []Voice) (Voice, bool) {
	if lang == "" {
		return Voice{}, false
	}
	for _, v := range voices {
		if v.Lang == lang {
			return v, true
		}
	}
	for _, v := range voices {
		if strings.HasPrefix(v.Lang, lang+"-") {
			return v, true
		}
	}
	return Voice{}, false
}

func copyVoices(in []Voice) []Voice {
	if in == nil {
		return nil
	}
	return append(make([]Voice, 0, len(in)), in...)
}
