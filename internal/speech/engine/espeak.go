package engine

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"readaloud/internal/speech"

	"github.com/sirupsen/logrus"
)

// newESpeakEngine creates a command engine backed by eSpeak or eSpeak-NG.
func newESpeakEngine(log *logrus.Entry) (*CommandEngine, error) {
	path, err := findESpeakExecutable()
	if err != nil {
		return nil, fmt.Errorf("eSpeak not found: %w", err)
	}

	if err := exec.Command(path, "--version").Run(); err != nil {
		return nil, fmt.Errorf("eSpeak test failed: %w", err)
	}

	return newCommandEngine(commandProgram{
		name:   "espeak",
		path:   path,
		args:   espeakArgs,
		voices: listESpeakVoices,
	}, log), nil
}

func findESpeakExecutable() (string, error) {
	candidates := []string{"espeak-ng", "espeak"}

	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

// espeakArgs maps an utterance onto eSpeak flags. Rate scales the
// default 175 words per minute, volume the default amplitude of 100 and
// pitch the default of 50 (eSpeak caps it at 99).
func espeakArgs(u *speech.Utterance) []string {
	var args []string

	switch {
	case u.Lang != "":
		args = append(args, "-v", strings.ToLower(u.Lang))
	case u.Voice != nil && u.Voice.Lang != "":
		args = append(args, "-v", strings.ToLower(u.Voice.Lang))
	}

	args = append(args,
		"-s", strconv.Itoa(int(defaultWPM*orOne(u.Rate))),
		"-a", strconv.Itoa(int(100*u.Volume)),
		"-p", strconv.Itoa(min(int(50*u.Pitch), 99)),
		"--", u.Text,
	)
	return args
}

func listESpeakVoices(path string) ([]speech.Voice, error) {
	output, err := exec.Command(path, "--voices").Output()
	if err != nil {
		return nil, err
	}
	return parseESpeakVoices(string(output)), nil
}

// parseESpeakVoices reads the table printed by "espeak --voices":
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  en-gb           --/M      English_(Great_Britain) gmw/en
func parseESpeakVoices(output string) []speech.Voice {
	lines := strings.Split(output, "\n")
	voices := make([]speech.Voice, 0)

	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) >= 4 {
			voices = append(voices, speech.Voice{
				Name: fields[3],
				Lang: canonicalLang(fields[1]),
			})
		}
	}

	return voices
}

// orOne treats an unset rate as normal speed.
func orOne(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}
