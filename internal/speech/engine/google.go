package engine

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"readaloud/internal/speech"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/sirupsen/logrus"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
)

const (
	// The API rejects inputs over 5000 bytes.
	maxChunkBytes = 4800
	playbackRate  = beep.SampleRate(44100)
	fallbackLang  = "en-GB"
)

// GoogleEngine synthesizes speech with Google Cloud Text-to-Speech and
// plays the MP3 result through the local speaker. Synthesized audio is
// cached on disk by content hash.
type GoogleEngine struct {
	client   *texttospeech.Client
	cacheDir string
	log      *logrus.Entry

	speakerOnce sync.Once
	speakerErr  error

	mu        sync.Mutex
	voices    []speech.Voice
	listeners []func()
	current   *googlePlayback
}

type googlePlayback struct {
	u      *speech.Utterance
	ctx    context.Context
	cancel context.CancelFunc

	// guarded by GoogleEngine.mu
	ctrl      *beep.Ctrl
	clock     *wordClock
	paused    bool
	cancelled bool
}

func newGoogleEngine(cacheDir string, log *logrus.Entry) (*GoogleEngine, error) {
	ctx := context.Background()
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}

	if cacheDir != "" {
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to create cache dir: %w", err)
		}
	}

	g := &GoogleEngine{
		client:   client,
		cacheDir: cacheDir,
		log:      log,
	}
	go g.loadVoices(ctx)
	return g, nil
}

func (g *GoogleEngine) loadVoices(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{})
	if err != nil {
		g.log.WithError(err).Warn("Failed to list voices")
		return
	}

	voices := make([]speech.Voice, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		lang := ""
		if len(v.LanguageCodes) > 0 {
			lang = canonicalLang(v.LanguageCodes[0])
		}
		voices = append(voices, speech.Voice{Name: v.Name, Lang: lang})
	}

	g.mu.Lock()
	g.voices = voices
	listeners := append([]func(){}, g.listeners...)
	g.mu.Unlock()

	g.log.WithField("voices", len(voices)).Debug("Voices loaded")
	for _, fn := range listeners {
		fn()
	}
}

// Voices returns the voices listed so far.
func (g *GoogleEngine) Voices() []speech.Voice {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]speech.Voice(nil), g.voices...)
}

// OnVoicesChanged registers fn to run once the voice list arrives.
func (g *GoogleEngine) OnVoicesChanged(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

// Speak synthesizes u in the background and starts playback when the
// audio is ready.
func (g *GoogleEngine) Speak(u *speech.Utterance) error {
	if err := g.Cancel(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	pb := &googlePlayback{u: u, ctx: ctx, cancel: cancel}

	g.mu.Lock()
	g.current = pb
	g.mu.Unlock()

	go g.run(pb)
	return nil
}

func (g *GoogleEngine) run(pb *googlePlayback) {
	err := g.play(pb)
	if err == nil {
		return
	}

	g.mu.Lock()
	cancelled := pb.cancelled
	if g.current == pb {
		g.current = nil
	}
	g.mu.Unlock()

	if cancelled {
		return
	}
	if pb.u.Events.OnError != nil {
		pb.u.Events.OnError(err)
	}
}

func (g *GoogleEngine) play(pb *googlePlayback) error {
	files, err := g.synthesize(pb.ctx, pb.u)
	if err != nil {
		return err
	}

	if err := g.initSpeaker(); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	var (
		streamers []beep.Streamer
		total     time.Duration
	)
	for _, audio := range files {
		s, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(audio)))
		if err != nil {
			return fmt.Errorf("failed to decode MP3: %w", err)
		}
		total += format.SampleRate.D(s.Len())
		if format.SampleRate == playbackRate {
			streamers = append(streamers, s)
		} else {
			streamers = append(streamers, beep.Resample(4, format.SampleRate, playbackRate, s))
		}
	}

	g.mu.Lock()
	if pb.cancelled {
		g.mu.Unlock()
		return nil
	}
	pb.ctrl = &beep.Ctrl{Streamer: beep.Seq(streamers...)}
	pb.clock = newWordClock(pb.u.Text, perWordOver(pb.u.Text, total), pb.u.Events.OnBoundary, nil)
	g.mu.Unlock()

	fire(pb.u.Events.OnStart)
	pb.clock.Start()
	// The callback runs on the speaker goroutine with the speaker lock held.
	speaker.Play(beep.Seq(pb.ctrl, beep.Callback(func() { go g.finish(pb) })))
	return nil
}

func (g *GoogleEngine) finish(pb *googlePlayback) {
	g.mu.Lock()
	if g.current == pb {
		g.current = nil
	}
	cancelled := pb.cancelled
	g.mu.Unlock()

	pb.clock.Stop()
	pb.cancel()
	if !cancelled {
		fire(pb.u.Events.OnEnd)
	}
}

func (g *GoogleEngine) initSpeaker() error {
	g.speakerOnce.Do(func() {
		g.speakerErr = speaker.Init(playbackRate, playbackRate.N(time.Second/10))
	})
	return g.speakerErr
}

// synthesize returns one MP3 per chunk of u.Text, from the cache when
// possible.
func (g *GoogleEngine) synthesize(ctx context.Context, u *speech.Utterance) ([][]byte, error) {
	params := voiceParams(u)
	audioCfg := audioConfig(u, params.Name)
	key := cacheKey(u, params)

	chunks := splitIntoChunks(u.Text, maxChunkBytes)
	files := make([][]byte, 0, len(chunks))

	for i, chunk := range chunks {
		path := g.cachePath(key, i)
		if path != "" {
			if audio, err := os.ReadFile(path); err == nil {
				g.log.WithField("chunk", i).Debug("Using cached audio")
				files = append(files, audio)
				continue
			}
		}

		resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
			},
			Voice:       params,
			AudioConfig: audioCfg,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to synthesize chunk %d: %w", i, err)
		}

		if path != "" {
			if err := os.WriteFile(path, resp.AudioContent, 0644); err != nil {
				g.log.WithError(err).WithField("path", path).Warn("Failed to cache audio")
			}
		}
		files = append(files, resp.AudioContent)
	}

	g.log.WithFields(logrus.Fields{
		"voice":  params.Name,
		"chunks": len(chunks),
	}).Debug("Audio ready")
	return files, nil
}

func (g *GoogleEngine) cachePath(key string, chunk int) string {
	if g.cacheDir == "" {
		return ""
	}
	return filepath.Join(g.cacheDir, fmt.Sprintf("%s_%d.mp3", key, chunk))
}

func voiceParams(u *speech.Utterance) *texttospeechpb.VoiceSelectionParams {
	params := &texttospeechpb.VoiceSelectionParams{LanguageCode: u.Lang}
	if u.Voice != nil {
		params.Name = u.Voice.Name
		if params.LanguageCode == "" {
			params.LanguageCode = u.Voice.Lang
		}
	}
	if params.LanguageCode == "" {
		params.LanguageCode = fallbackLang
	}
	return params
}

// audioConfig maps the utterance settings onto the API ranges: speaking
// rate 0.25 to 4, pitch -20 to 20 semitones, gain -96 to 16 dB.
func audioConfig(u *speech.Utterance, voice string) *texttospeechpb.AudioConfig {
	cfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		VolumeGainDb:  gainDb(u.Volume),
	}

	// Chirp voices reject speakingRate and pitch.
	if !strings.Contains(strings.ToLower(voice), "chirp") {
		cfg.SpeakingRate = math.Max(0.25, math.Min(4, orOne(u.Rate)))
		cfg.Pitch = math.Max(-20, math.Min(20, (u.Pitch-1)*20))
	}
	return cfg
}

func gainDb(volume float64) float64 {
	if volume <= 0 {
		return -96
	}
	return math.Max(-96, math.Min(16, 20*math.Log10(volume)))
}

func cacheKey(u *speech.Utterance, params *texttospeechpb.VoiceSelectionParams) string {
	h := md5.New()
	fmt.Fprintf(h, "%s|%s|%s|%g|%g|%g", u.Text, params.Name, params.LanguageCode, u.Rate, u.Pitch, u.Volume)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// splitIntoChunks breaks text at word boundaries into pieces of at most
// limit bytes. Words longer than limit are split on rune boundaries.
func splitIntoChunks(text string, limit int) []string {
	var (
		chunks  []string
		current strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, word := range strings.Fields(text) {
		for len(word) > limit {
			flush()
			cut := limit
			for cut > 0 && !isRuneStart(word[cut]) {
				cut--
			}
			chunks = append(chunks, word[:cut])
			word = word[cut:]
		}
		if current.Len() > 0 && current.Len()+1+len(word) > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	flush()
	return chunks
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// Pause holds playback. It is a no-op while audio is still being
// synthesized.
func (g *GoogleEngine) Pause() error {
	g.mu.Lock()
	pb := g.current
	if pb == nil || pb.ctrl == nil || pb.paused {
		g.mu.Unlock()
		return nil
	}
	pb.paused = true
	g.mu.Unlock()

	speaker.Lock()
	pb.ctrl.Paused = true
	speaker.Unlock()

	pb.clock.Pause()
	fire(pb.u.Events.OnPause)
	return nil
}

// Resume continues held playback.
func (g *GoogleEngine) Resume() error {
	g.mu.Lock()
	pb := g.current
	if pb == nil || pb.ctrl == nil || !pb.paused {
		g.mu.Unlock()
		return nil
	}
	pb.paused = false
	g.mu.Unlock()

	speaker.Lock()
	pb.ctrl.Paused = false
	speaker.Unlock()

	pb.clock.Resume()
	fire(pb.u.Events.OnResume)
	return nil
}

// Cancel drops the current utterance, whether it is synthesizing or
// playing. No end event is sent for it.
func (g *GoogleEngine) Cancel() error {
	g.mu.Lock()
	pb := g.current
	g.current = nil
	var (
		ctrl  *beep.Ctrl
		clock *wordClock
	)
	if pb != nil {
		pb.cancelled = true
		ctrl, clock = pb.ctrl, pb.clock
	}
	g.mu.Unlock()

	if pb == nil {
		return nil
	}
	pb.cancel()
	if clock != nil {
		clock.Stop()
	}
	if ctrl != nil {
		speaker.Lock()
		ctrl.Streamer = nil
		speaker.Unlock()
	}
	return nil
}

// Pending reports whether an utterance is synthesizing or playing.
func (g *GoogleEngine) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current != nil
}

// Close cancels playback and closes the API client.
func (g *GoogleEngine) Close() error {
	if err := g.Cancel(); err != nil {
		return err
	}
	return g.client.Close()
}
