package speech

// Phase is the state of a playback session.
type Phase int

const (
	// PhaseIdle means nothing is being spoken.
	PhaseIdle Phase = iota
	// PhaseSpeaking means the engine started the utterance.
	PhaseSpeaking
	// PhasePaused means the engine confirmed a pause.
	PhasePaused
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSpeaking:
		return "speaking"
	case PhasePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Legal moves driven by engine events. Stop, end and error always return
// to idle and are not listed.
var phaseTransitions = map[Phase][]Phase{
	PhaseIdle:     {PhaseSpeaking},
	PhaseSpeaking: {PhasePaused},
	PhasePaused:   {PhaseSpeaking},
}

func (p Phase) canTransition(to Phase) bool {
	for _, next := range phaseTransitions[p] {
		if next == to {
			return true
		}
	}
	return false
}

// SpeakOptions tunes a single Speak call. Zero values fall back to the
// facade settings.
type SpeakOptions struct {
	Voice  *Voice
	Lang   string
	Rate   float64
	Pitch  float64
	Volume float64

	OnStart    func()
	OnEnd      func()
	OnError    func(err error)
	OnBoundary func(charIndex int)
}

// session is one utterance attached to the facade. It is detached
// (replaced or set to nil) on stop, error, end or a new Speak; events
// from a detached session are ignored.
type session struct {
	id    uint64
	text  string
	phase Phase
	opts  SpeakOptions
}

func (s *session) transition(to Phase) bool {
	if to == PhaseIdle {
		s.phase = PhaseIdle
		return true
	}
	if !s.phase.canTransition(to) {
		return false
	}
	s.phase = to
	return true
}
