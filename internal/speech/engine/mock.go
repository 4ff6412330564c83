package engine

import (
	"sync"

	"readaloud/internal/speech"
)

// Speaking speed of the simulated engine at rate 1.
const defaultMockWPM = 180.0

var mockVoices = []speech.Voice{
	{Name: "Daniel", Lang: "en-GB"},
	{Name: "Serena", Lang: "en-GB"},
	{Name: "Alex", Lang: "en-US"},
	{Name: "Karen", Lang: "en-AU"},
	{Name: "Thomas", Lang: "fr-FR"},
	{Name: "Anna", Lang: "de-DE"},
}

// MockEngine simulates speech without producing audio. Words are
// "spoken" at wpm scaled by the utterance rate, with a boundary event for
// each and an end event after the last one.
type MockEngine struct {
	wpm float64

	mu      sync.Mutex
	voices  []speech.Voice
	current *mockPlayback
}

type mockPlayback struct {
	u      *speech.Utterance
	clock  *wordClock
	paused bool
}

func NewMock(wpm float64) *MockEngine {
	if wpm <= 0 {
		wpm = defaultMockWPM
	}
	return &MockEngine{
		wpm:    wpm,
		voices: append([]speech.Voice(nil), mockVoices...),
	}
}

func (m *MockEngine) Voices() []speech.Voice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]speech.Voice(nil), m.voices...)
}

// OnVoicesChanged is a no-op; the voice list is fixed.
func (m *MockEngine) OnVoicesChanged(func()) {}

func (m *MockEngine) Speak(u *speech.Utterance) error {
	if err := m.Cancel(); err != nil {
		return err
	}

	pb := &mockPlayback{u: u}
	pb.clock = newWordClock(u.Text, perWordAt(m.wpm, u.Rate), u.Events.OnBoundary, func() {
		m.finish(pb)
	})

	m.mu.Lock()
	m.current = pb
	m.mu.Unlock()

	fire(u.Events.OnStart)
	pb.clock.Start()
	return nil
}

func (m *MockEngine) finish(pb *mockPlayback) {
	m.mu.Lock()
	if m.current != pb {
		m.mu.Unlock()
		return
	}
	m.current = nil
	m.mu.Unlock()

	fire(pb.u.Events.OnEnd)
}

func (m *MockEngine) Pause() error {
	m.mu.Lock()
	pb := m.current
	if pb == nil || pb.paused {
		m.mu.Unlock()
		return nil
	}
	pb.paused = true
	m.mu.Unlock()

	pb.clock.Pause()
	fire(pb.u.Events.OnPause)
	return nil
}

func (m *MockEngine) Resume() error {
	m.mu.Lock()
	pb := m.current
	if pb == nil || !pb.paused {
		m.mu.Unlock()
		return nil
	}
	pb.paused = false
	m.mu.Unlock()

	pb.clock.Resume()
	fire(pb.u.Events.OnResume)
	return nil
}

func (m *MockEngine) Cancel() error {
	m.mu.Lock()
	pb := m.current
	m.current = nil
	m.mu.Unlock()

	if pb != nil {
		pb.clock.Stop()
	}
	return nil
}

func (m *MockEngine) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

func (m *MockEngine) Close() error {
	return m.Cancel()
}
