// Package reader is the readaloud application: it wires the configured
// engine, the speech facade and the passage store behind the CLI
// commands.
package reader

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"readaloud/internal/config"
	"readaloud/internal/speech"
	"readaloud/internal/speech/engine"
	"readaloud/internal/store"

	"github.com/sirupsen/logrus"
)

// How long commands wait for an engine that lists its voices in the
// background.
const voiceWait = 3 * time.Second

// Reader main application structure
type Reader struct {
	cfg config.Config
	log *logrus.Entry
	in  io.Reader
	out io.Writer

	ctx    context.Context
	Cancel context.CancelFunc

	speechOnce sync.Once
	engine     engine.Engine
	speech     *speech.Speech
	follow     *follower
	finished   chan struct{}

	closeOnce sync.Once

	storeOnce sync.Once
	kv        store.KV
	storeDir  string
	prefs     *store.Preferences
	passages  *store.Passages
}

// Option configures a Reader.
type Option func(*Reader)

// WithEngine uses e instead of building the configured engine.
func WithEngine(e engine.Engine) Option {
	return func(r *Reader) { r.engine = e }
}

// WithKV uses kv instead of the on-disk store.
func WithKV(kv store.KV) Option {
	return func(r *Reader) {
		r.kv = kv
		if d, ok := kv.(interface{ Dir() string }); ok {
			r.storeDir = d.Dir()
		}
		r.storeOnce.Do(r.initPassages)
	}
}

// WithInput reads interactive commands and stdin passages from in.
func WithInput(in io.Reader) Option {
	return func(r *Reader) { r.in = in }
}

// WithOutput writes CLI output to out.
func WithOutput(out io.Writer) Option {
	return func(r *Reader) { r.out = out }
}

// New returns a reader for cfg. The engine and store are created on first use.
func New(cfg config.Config, opts ...Option) *Reader {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Reader{
		cfg:      cfg,
		log:      logrus.WithField("component", "reader"),
		in:       os.Stdin,
		out:      os.Stdout,
		ctx:      ctx,
		Cancel:   cancel,
		finished: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Configure replaces the config. It must run before the first command.
func (r *Reader) Configure(cfg config.Config) {
	r.cfg = cfg
}

// Speech returns the facade, building the engine on first use. An engine
// that fails to start leaves the facade unsupported.
func (r *Reader) Speech() *speech.Speech {
	r.speechOnce.Do(r.initSpeech)
	return r.speech
}

func (r *Reader) initSpeech() {
	r.initStore()

	if r.engine == nil {
		e, err := engine.New(engine.Config{
			Type:      r.cfg.TTS.Type,
			CachePath: r.cfg.TTS.CachePath,
			Logger:    logrus.WithField("component", "engine"),
		})
		if err != nil {
			r.log.WithError(err).Warn("Failed to create TTS engine")
		} else {
			r.engine = e
		}
	}

	r.follow = newFollower(r.out)

	var synth speech.Synthesizer
	if r.engine != nil {
		synth = r.engine
	}
	r.speech = speech.New(synth, r.prefs,
		speech.WithLogger(logrus.WithField("component", "speech")),
		speech.WithEndDelay(r.cfg.Speech.EndDelay),
		speech.WithSettings(speech.Settings{
			Rate:   orOne(r.cfg.TTS.Rate),
			Pitch:  r.cfg.TTS.Pitch,
			Volume: r.cfg.TTS.Volume,
		}),
		speech.WithStateListener(r.onState),
	)
}

func (r *Reader) initStore() {
	r.storeOnce.Do(func() {
		dir := r.cfg.Store.Dir
		if dir == "" {
			d, err := store.DefaultDir()
			if err != nil {
				r.log.WithError(err).Warn("Persistence unavailable")
				r.initPassages()
				return
			}
			dir = d
		}

		kv, err := store.NewFileKV(dir)
		if err != nil {
			r.log.WithError(err).Warn("Persistence unavailable")
		} else {
			r.kv = kv
			r.storeDir = kv.Dir()
		}
		r.initPassages()
	})
}

func (r *Reader) initPassages() {
	opts := []store.PassagesOption{
		store.WithPassagesLogger(logrus.WithField("component", "store")),
	}
	if r.cfg.Store.Debounce > 0 {
		opts = append(opts, store.WithDebounce(r.cfg.Store.Debounce))
	}
	r.prefs = store.NewPreferences(r.kv)
	r.passages = store.NewPassages(r.kv, opts...)
}

// Passages returns the bookmark and recent-view store.
func (r *Reader) Passages() *store.Passages {
	r.initStore()
	return r.passages
}

func (r *Reader) onState(st speech.State) {
	if r.follow != nil {
		r.follow.update(st)
	}
	if st.Phase() == speech.PhaseIdle && !st.Loading {
		select {
		case r.finished <- struct{}{}:
		default:
		}
	}
}

// waitForVoices gives engines that list voices in the background a
// moment to report them.
func (r *Reader) waitForVoices() []speech.Voice {
	sp := r.Speech()
	if !sp.State().Supported {
		return nil
	}

	deadline := time.Now().Add(voiceWait)
	for {
		voices := sp.Voices()
		if len(voices) > 0 || time.Now().After(deadline) {
			return voices
		}
		select {
		case <-r.ctx.Done():
			return voices
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Close stops playback, writes pending store changes and releases the
// engine.
func (r *Reader) Close() {
	r.closeOnce.Do(func() {
		if r.speech != nil {
			r.speech.Close()
		}
		if r.passages != nil {
			r.passages.Flush()
		}
		if r.engine != nil {
			if err := r.engine.Close(); err != nil {
				r.log.WithError(err).Warn("Failed to close TTS engine")
			}
		}
	})
}

func orOne(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}
