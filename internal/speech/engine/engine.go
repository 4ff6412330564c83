// Package engine provides the speech.Synthesizer implementations:
// command line synthesizers (eSpeak, say, SAPI), Google Cloud
// Text-to-Speech and a simulated engine.
package engine

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"readaloud/internal/speech"

	"github.com/sirupsen/logrus"
)

// Type names an engine implementation.
type Type string

const (
	TypeMock   Type = "mock"
	TypeESpeak Type = "espeak"
	TypeSay    Type = "say"  // macOS only
	TypeSAPI   Type = "sapi" // Windows only
	TypeGoogle Type = "google"
	TypeAuto   Type = "auto" // Automatically choose best for platform
)

func (t Type) String() string {
	return string(t)
}

// ErrUnsupported is returned for engines that cannot run on this
// platform.
var ErrUnsupported = errors.New("engine not supported on this platform")

// Engine is a Synthesizer that holds resources.
type Engine interface {
	speech.Synthesizer
	Close() error
}

// Config selects and configures an engine.
type Config struct {
	Type string
	// CachePath is where the Google engine keeps synthesized audio.
	CachePath string
	Logger    *logrus.Entry
}

// New creates the engine named by cfg.Type.
func New(cfg Config) (Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.WithField("component", "engine")
	}
	if cfg.Type == "" || cfg.Type == TypeAuto.String() {
		cfg.Type = bestForPlatform().String()
	}
	log := cfg.Logger.WithField("engine", cfg.Type)

	var (
		e   Engine
		err error
	)
	switch Type(cfg.Type) {
	case TypeMock:
		return NewMock(defaultMockWPM), nil

	case TypeGoogle:
		e, err = asEngine(newGoogleEngine(cfg.CachePath, log))

	case TypeESpeak:
		e, err = asEngine(newESpeakEngine(log))

	case TypeSay:
		if runtime.GOOS != "darwin" {
			return nil, fmt.Errorf("say: %w", ErrUnsupported)
		}
		e, err = asEngine(newSayEngine(log))

	case TypeSAPI:
		if runtime.GOOS != "windows" {
			return nil, fmt.Errorf("sapi: %w", ErrUnsupported)
		}
		e, err = asEngine(newSAPIEngine(log))

	default:
		return nil, fmt.Errorf("unsupported TTS engine type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	log.Info("TTS engine ready")
	return e, nil
}

// asEngine keeps a failed constructor's typed nil out of the interface.
func asEngine[E Engine](e E, err error) (Engine, error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}

// bestForPlatform returns the recommended engine for the current platform.
func bestForPlatform() Type {
	if hasGoogleCredentials() {
		return TypeGoogle
	}

	switch runtime.GOOS {
	case "windows":
		return TypeSAPI
	case "darwin":
		return TypeSay
	default:
		return TypeESpeak
	}
}

// Available returns the engines usable on the current platform.
func Available() []Type {
	engines := []Type{TypeMock}

	if _, err := findESpeakExecutable(); err == nil {
		engines = append(engines, TypeESpeak)
	}
	if hasGoogleCredentials() {
		engines = append(engines, TypeGoogle)
	}

	switch runtime.GOOS {
	case "windows":
		engines = append(engines, TypeSAPI)
	case "darwin":
		engines = append(engines, TypeSay)
	}

	return engines
}

// hasGoogleCredentials checks if Google Cloud credentials are available
func hasGoogleCredentials() bool {
	_, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS")
	return ok
}

func fire(fn func()) {
	if fn != nil {
		fn()
	}
}
