// Package speech drives a text-to-speech engine as a single playback
// session with voice selection, a sleep timer and word position
// tracking for highlighting.
package speech

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultEndDelay is how long an end event waits before it is trusted.
// Some engines report an end between chained utterances while speech
// continues.
const DefaultEndDelay = 100 * time.Millisecond

// Ranges accepted by UpdateSettings.
const (
	minRate   = 0.1
	maxRate   = 10.0
	maxPitch  = 2.0
	maxVolume = 1.0
)

// State is a snapshot of the playback state. Paused implies Speaking.
type State struct {
	Supported bool
	Speaking  bool
	Paused    bool
	Loading   bool
	Text      string
	// CharIndex is the byte offset in Text of the word being spoken.
	CharIndex int
}

// Phase returns the session phase the state describes.
func (s State) Phase() Phase {
	switch {
	case s.Paused:
		return PhasePaused
	case s.Speaking:
		return PhaseSpeaking
	default:
		return PhaseIdle
	}
}

// Settings apply to every utterance unless overridden per call.
type Settings struct {
	Rate   float64
	Pitch  float64
	Volume float64
	Voice  *Voice
}

// DefaultSettings returns neutral rate, pitch and volume with no voice.
func DefaultSettings() Settings {
	return Settings{Rate: 1, Pitch: 1, Volume: 1}
}

// SettingsUpdate is a partial update; nil fields are left unchanged.
type SettingsUpdate struct {
	Rate   *float64
	Pitch  *float64
	Volume *float64
	Voice  *Voice
}

// VoicePreference persists the name of the voice the user picked.
type VoicePreference interface {
	VoiceName() string
	SetVoiceName(name string)
}

// Option configures a Speech.
type Option func(*Speech)

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Speech) { s.log = log }
}

// WithEndDelay overrides DefaultEndDelay. Zero commits end events
// immediately.
func WithEndDelay(d time.Duration) Option {
	return func(s *Speech) { s.endDelay = d }
}

// WithStateListener registers fn to receive every state change.
func WithStateListener(fn func(State)) Option {
	return func(s *Speech) { s.onState = fn }
}

// WithSettings sets the initial settings. A voice given here counts as
// chosen and is never replaced by the default resolution.
func WithSettings(settings Settings) Option {
	return func(s *Speech) {
		s.settings = copySettings(settings)
		s.voiceChosen = settings.Voice != nil
	}
}

// Speech is the control surface used by players: state, controls,
// settings and helpers around one Synthesizer.
type Speech struct {
	synth    Synthesizer
	registry *Registry
	prefs    VoicePreference
	sleep    *SleepTimer
	endDelay time.Duration
	log      *logrus.Entry
	onState  func(State)

	mu          sync.Mutex
	state       State
	settings    Settings
	voiceChosen bool
	session     *session
	nextID      uint64
}

// New builds the facade around synth. A nil synth means the platform has
// no speech support: every control becomes a no-op. prefs may be nil.
func New(synth Synthesizer, prefs VoicePreference, opts ...Option) *Speech {
	s := &Speech{
		synth:    synth,
		prefs:    prefs,
		endDelay: DefaultEndDelay,
		log:      logrus.WithField("component", "speech"),
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.sleep = NewSleepTimer(s.Stop)
	s.state.Supported = synth != nil
	s.registry = NewRegistry(synth)

	if synth == nil {
		s.log.Warn("Speech synthesis is not supported, playback disabled")
		return s
	}

	s.registry.Subscribe(s.voicesChanged)
	s.voicesChanged(s.registry.Voices())
	return s
}

// State returns a snapshot of the playback state.
func (s *Speech) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Settings returns a copy of the current settings.
func (s *Speech) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySettings(s.settings)
}

// UpdateSettings merges u into the settings. A voice in u is persisted
// by name so it can be resolved again on the next run.
func (s *Speech) UpdateSettings(u SettingsUpdate) {
	s.mu.Lock()
	if u.Rate != nil {
		s.settings.Rate = clamp(*u.Rate, minRate, maxRate)
	}
	if u.Pitch != nil {
		s.settings.Pitch = clamp(*u.Pitch, 0, maxPitch)
	}
	if u.Volume != nil {
		s.settings.Volume = clamp(*u.Volume, 0, maxVolume)
	}
	var chosen string
	if u.Voice != nil {
		v := *u.Voice
		s.settings.Voice = &v
		s.voiceChosen = true
		chosen = v.Name
	}
	s.mu.Unlock()

	if chosen != "" && s.prefs != nil {
		s.prefs.SetVoiceName(chosen)
	}
}

// Voices returns the voices currently offered by the engine.
func (s *Speech) Voices() []Voice {
	return s.registry.Voices()
}

// VoicesByLanguage returns the voices whose language tag starts with
// prefix.
func (s *Speech) VoicesByLanguage(prefix string) []Voice {
	return s.registry.ByLanguage(prefix)
}

// Clean returns text as it would be spoken.
func (s *Speech) Clean(text string) string {
	return Clean(text)
}

// Speak cancels whatever is playing and starts speaking text. Text that
// is empty once cleaned is ignored.
func (s *Speech) Speak(text string, opts SpeakOptions) {
	if s.synth == nil {
		s.log.Debug("Speech synthesis is not supported, ignoring speak request")
		return
	}

	cleaned := Clean(text)
	if cleaned == "" {
		s.log.Warn("Nothing to speak after cleaning text")
		return
	}

	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()

	if err := s.synth.Cancel(); err != nil {
		s.log.WithError(err).Warn("Failed to cancel previous utterance")
	}
	s.sleep.Clear()

	voices := s.registry.Voices()
	preferred := s.preferredVoiceName()

	s.mu.Lock()
	settings := copySettings(s.settings)
	voice := pickVoice(opts, settings, voices, preferred)
	s.nextID++
	sess := &session{id: s.nextID, text: cleaned, opts: opts}
	s.session = sess
	s.state.Speaking = false
	s.state.Paused = false
	s.state.Loading = true
	s.state.Text = cleaned
	s.state.CharIndex = 0
	st := s.state
	s.mu.Unlock()
	s.notify(st)

	u := &Utterance{
		Text:   cleaned,
		Lang:   opts.Lang,
		Voice:  voice,
		Rate:   orDefault(opts.Rate, settings.Rate),
		Pitch:  orDefault(opts.Pitch, settings.Pitch),
		Volume: orDefault(opts.Volume, settings.Volume),
		Events: Events{
			OnStart:    func() { s.handleStart(sess) },
			OnEnd:      func() { s.handleEnd(sess) },
			OnPause:    func() { s.handlePause(sess) },
			OnResume:   func() { s.handleResume(sess) },
			OnError:    func(err error) { s.handleError(sess, err) },
			OnBoundary: func(i int) { s.handleBoundary(sess, i) },
		},
	}
	if u.Lang == "" && voice != nil {
		u.Lang = voice.Lang
	}

	fields := logrus.Fields{"session": sess.id, "chars": len(cleaned)}
	if voice != nil {
		fields["voice"] = voice.Name
	}
	s.log.WithFields(fields).Debug("Submitting utterance")

	if err := s.synth.Speak(u); err != nil {
		s.handleError(sess, err)
	}
}

// Pause asks the engine to pause. It only applies while speaking; the
// state changes once the engine confirms.
func (s *Speech) Pause() {
	if s.synth == nil {
		return
	}
	s.mu.Lock()
	ok := s.state.Speaking && !s.state.Paused
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := s.synth.Pause(); err != nil {
		s.log.WithError(err).Warn("Pause request failed")
	}
}

// Resume asks the engine to resume a paused utterance.
func (s *Speech) Resume() {
	if s.synth == nil {
		return
	}
	s.mu.Lock()
	ok := s.state.Paused
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := s.synth.Resume(); err != nil {
		s.log.WithError(err).Warn("Resume request failed")
	}
}

// Stop cancels playback from any state and clears the sleep timer.
func (s *Speech) Stop() {
	if s.synth == nil {
		return
	}

	s.mu.Lock()
	s.session = nil
	s.resetLocked()
	st := s.state
	s.mu.Unlock()

	if err := s.synth.Cancel(); err != nil {
		s.log.WithError(err).Warn("Cancel request failed")
	}
	s.sleep.Clear()
	s.notify(st)
}

// Cancel is an alias of Stop.
func (s *Speech) Cancel() {
	s.Stop()
}

// SetSleepTimer stops playback after minutes, replacing any pending
// timer. minutes <= 0 clears it.
func (s *Speech) SetSleepTimer(minutes float64) {
	if s.synth == nil {
		return
	}
	s.sleep.Schedule(minutes)
	if minutes > 0 {
		s.log.WithField("minutes", minutes).Info("Sleep timer set")
	}
}

// ClearSleepTimer cancels the pending sleep timer.
func (s *Speech) ClearSleepTimer() {
	s.sleep.Clear()
}

// SleepTimerPending reports whether a sleep timer is armed.
func (s *Speech) SleepTimerPending() bool {
	return s.sleep.Pending()
}

// Close stops playback.
func (s *Speech) Close() {
	s.Stop()
	s.sleep.Clear()
}

func (s *Speech) voicesChanged(voices []Voice) {
	if len(voices) == 0 {
		return
	}
	preferred := s.preferredVoiceName()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.voiceChosen {
		return
	}
	v, ok := ResolveDefault(preferred, voices)
	if !ok {
		return
	}
	s.settings.Voice = &v
	s.log.WithFields(logrus.Fields{"voice": v.Name, "lang": v.Lang}).Debug("Resolved default voice")
}

func (s *Speech) preferredVoiceName() string {
	if s.prefs == nil {
		return ""
	}
	return s.prefs.VoiceName()
}

func (s *Speech) handleStart(sess *session) {
	s.mu.Lock()
	// A start only moves an idle session; a late one must not undo a pause.
	if s.session != sess || sess.phase != PhaseIdle || !sess.transition(PhaseSpeaking) {
		s.mu.Unlock()
		return
	}
	s.state.Speaking = true
	s.state.Paused = false
	s.state.Loading = false
	st := s.state
	s.mu.Unlock()

	s.notify(st)
	if sess.opts.OnStart != nil {
		sess.opts.OnStart()
	}
}

func (s *Speech) handlePause(sess *session) {
	s.mu.Lock()
	if s.session != sess || !sess.transition(PhasePaused) {
		s.mu.Unlock()
		return
	}
	s.state.Paused = true
	st := s.state
	s.mu.Unlock()
	s.notify(st)
}

func (s *Speech) handleResume(sess *session) {
	s.mu.Lock()
	if s.session != sess || sess.phase != PhasePaused || !sess.transition(PhaseSpeaking) {
		s.mu.Unlock()
		return
	}
	s.state.Paused = false
	st := s.state
	s.mu.Unlock()
	s.notify(st)
}

func (s *Speech) handleBoundary(sess *session, charIndex int) {
	s.mu.Lock()
	if s.session != sess {
		s.mu.Unlock()
		return
	}
	s.state.CharIndex = charIndex
	st := s.state
	s.mu.Unlock()

	s.notify(st)
	if sess.opts.OnBoundary != nil {
		sess.opts.OnBoundary(charIndex)
	}
}

func (s *Speech) handleError(sess *session, err error) {
	s.mu.Lock()
	if s.session != sess {
		s.mu.Unlock()
		return
	}
	s.session = nil
	sess.transition(PhaseIdle)
	s.resetLocked()
	st := s.state
	s.mu.Unlock()

	s.sleep.Clear()
	s.log.WithError(err).WithField("session", sess.id).Warn("Speech synthesis error")
	s.notify(st)
	if sess.opts.OnError != nil {
		sess.opts.OnError(err)
	}
}

func (s *Speech) handleEnd(sess *session) {
	s.mu.Lock()
	current := s.session == sess
	s.mu.Unlock()
	if !current {
		return
	}

	if s.endDelay <= 0 {
		s.commitEnd(sess)
		return
	}
	time.AfterFunc(s.endDelay, func() { s.commitEnd(sess) })
}

func (s *Speech) commitEnd(sess *session) {
	s.mu.Lock()
	current := s.session == sess
	s.mu.Unlock()
	if !current {
		return
	}

	if s.synth.Pending() {
		s.log.WithField("session", sess.id).Debug("End event while engine is still speaking, ignoring")
		return
	}

	s.mu.Lock()
	if s.session != sess {
		s.mu.Unlock()
		return
	}
	s.session = nil
	sess.transition(PhaseIdle)
	s.resetLocked()
	st := s.state
	s.mu.Unlock()

	s.sleep.Clear()
	s.notify(st)
	if sess.opts.OnEnd != nil {
		sess.opts.OnEnd()
	}
}

func (s *Speech) resetLocked() {
	s.state.Speaking = false
	s.state.Paused = false
	s.state.Loading = false
	s.state.Text = ""
	s.state.CharIndex = 0
}

func (s *Speech) notify(st State) {
	if s.onState != nil {
		s.onState(st)
	}
}

// pickVoice applies the per-call precedence: explicit voice, configured
// voice, a voice for the requested language, then the default chain.
func pickVoice(opts SpeakOptions, settings Settings, voices []Voice, preferred string) *Voice {
	if opts.Voice != nil {
		v := *opts.Voice
		return &v
	}
	if settings.Voice != nil {
		return settings.Voice
	}
	if v, ok := voiceForLang(opts.Lang, voices); ok {
		return &v
	}
	if v, ok := ResolveDefault(preferred, voices); ok {
		return &v
	}
	return nil
}

func copySettings(in Settings) Settings {
	out := in
	if in.Voice != nil {
		v := *in.Voice
		out.Voice = &v
	}
	return out
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
