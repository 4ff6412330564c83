package speech

import (
	"errors"
	"sync"
)

// fakeSynth records every call in order and lets tests fire engine
// events by hand. Pause and resume are confirmed synchronously unless
// manualConfirm is set.
type fakeSynth struct {
	mu            sync.Mutex
	calls         []string
	voices        []Voice
	listeners     []func()
	utterances    []*Utterance
	pending       bool
	speakErr      error
	manualConfirm bool
}

func newFakeSynth(voices ...Voice) *fakeSynth {
	return &fakeSynth{voices: voices}
}

func (f *fakeSynth) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeSynth) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSynth) Voices() []Voice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Voice(nil), f.voices...)
}

func (f *fakeSynth) OnVoicesChanged(fn func()) {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
}

func (f *fakeSynth) SetVoices(voices ...Voice) {
	f.mu.Lock()
	f.voices = voices
	listeners := append([]func(){}, f.listeners...)
	f.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func (f *fakeSynth) Speak(u *Utterance) error {
	f.record("speak:" + u.Text)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.speakErr != nil {
		return f.speakErr
	}
	f.utterances = append(f.utterances, u)
	return nil
}

func (f *fakeSynth) Pause() error {
	f.record("pause")
	if !f.manualConfirm {
		f.Last().Events.OnPause()
	}
	return nil
}

func (f *fakeSynth) Resume() error {
	f.record("resume")
	if !f.manualConfirm {
		f.Last().Events.OnResume()
	}
	return nil
}

func (f *fakeSynth) Cancel() error {
	f.record("cancel")
	return nil
}

func (f *fakeSynth) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

func (f *fakeSynth) SetPending(p bool) {
	f.mu.Lock()
	f.pending = p
	f.mu.Unlock()
}

// Last returns the most recent utterance handed to Speak.
func (f *fakeSynth) Last() *Utterance {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.utterances) == 0 {
		panic("fakeSynth: no utterance submitted")
	}
	return f.utterances[len(f.utterances)-1]
}

func (f *fakeSynth) Utterance(i int) *Utterance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.utterances[i]
}

var errSynthesis = errors.New("synthesis-failed")

// memPrefs is an in-memory VoicePreference.
type memPrefs struct {
	mu   sync.Mutex
	name string
	sets []string
}

func (p *memPrefs) VoiceName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

func (p *memPrefs) SetVoiceName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
	p.sets = append(p.sets, name)
}
