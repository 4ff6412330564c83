package store

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

// Preferences stores the name of the voice the user picked. Voices are
// kept by name because the engine hands out fresh values on every run.
type Preferences struct {
	kv  KV
	log *logrus.Entry
}

// NewPreferences returns preferences over kv. A nil kv means nothing is
// remembered between runs.
func NewPreferences(kv KV) *Preferences {
	return &Preferences{kv: kv, log: logrus.WithField("component", "store")}
}

// VoiceName returns the saved voice name or "".
func (p *Preferences) VoiceName() string {
	if p.kv == nil {
		return ""
	}
	raw, err := p.kv.Get(KeyVoiceName)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.log.WithError(err).Warn("Failed to read voice preference")
		}
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// SetVoiceName saves name. Errors are logged.
func (p *Preferences) SetVoiceName(name string) {
	if p.kv == nil {
		return
	}
	if err := p.kv.Set(KeyVoiceName, []byte(name)); err != nil {
		p.log.WithError(err).WithField("voice", name).Warn("Failed to save voice preference")
	}
}
