package speech

// Voice is a synthesis voice exposed by the platform engine.
type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// Events receives the lifecycle notifications of a single utterance.
// Engines may call them from any goroutine but never while holding
// their own locks.
type Events struct {
	OnStart    func()
	OnEnd      func()
	OnPause    func()
	OnResume   func()
	OnError    func(err error)
	OnBoundary func(charIndex int)
}

// Utterance is one request to synthesize and play a text.
type Utterance struct {
	Text   string
	Lang   string
	Voice  *Voice
	Rate   float64
	Pitch  float64
	Volume float64

	Events Events
}

// Synthesizer is the platform speech capability. It is a process-wide
// resource: Speak may be called while a previous utterance is still
// queued, Pause/Resume/Cancel are requests whose effect is observed
// through the utterance events.
type Synthesizer interface {
	// Voices returns the voices known so far. It may be empty until the
	// engine announces them through OnVoicesChanged.
	Voices() []Voice
	OnVoicesChanged(fn func())

	Speak(u *Utterance) error
	Pause() error
	Resume() error
	Cancel() error

	// Pending reports whether the engine is still speaking or has
	// queued speech.
	Pending() bool
}
