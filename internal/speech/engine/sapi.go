package engine

import (
	"fmt"
	"os/exec"
	"strings"

	"readaloud/internal/speech"

	"github.com/sirupsen/logrus"
)

const sapiListVoices = `Add-Type -AssemblyName System.Speech;
$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer;
$synth.GetInstalledVoices() | ForEach-Object { $_.VoiceInfo.Name + "|" + $_.VoiceInfo.Culture.Name }`

// newSAPIEngine creates a command engine that drives the Windows speech
// API through PowerShell.
func newSAPIEngine(log *logrus.Entry) (*CommandEngine, error) {
	path, err := exec.LookPath("powershell")
	if err != nil {
		return nil, fmt.Errorf("powershell not found: %w", err)
	}

	return newCommandEngine(commandProgram{
		name:   "sapi",
		path:   path,
		args:   sapiArgs,
		voices: listSAPIVoices,
	}, log), nil
}

func sapiArgs(u *speech.Utterance) []string {
	var script strings.Builder
	script.WriteString("Add-Type -AssemblyName System.Speech;\n")
	script.WriteString("$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer;\n")
	if u.Voice != nil && u.Voice.Name != "" {
		fmt.Fprintf(&script, "$synth.SelectVoice('%s');\n", psQuote(u.Voice.Name))
	}
	// SAPI rate runs from -10 to 10 and volume from 0 to 100.
	rate := max(-10, min(10, int(orOne(u.Rate)*10)-10))
	fmt.Fprintf(&script, "$synth.Rate = %d;\n", rate)
	fmt.Fprintf(&script, "$synth.Volume = %d;\n", int(100*u.Volume))
	fmt.Fprintf(&script, "$synth.Speak('%s')", psQuote(u.Text))

	return []string{"-NoProfile", "-Command", script.String()}
}

// psQuote escapes s for a single-quoted PowerShell string.
func psQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func listSAPIVoices(path string) ([]speech.Voice, error) {
	output, err := exec.Command(path, "-NoProfile", "-Command", sapiListVoices).Output()
	if err != nil {
		return nil, err
	}
	return parseSAPIVoices(string(output)), nil
}

// parseSAPIVoices reads "Name|culture" lines.
func parseSAPIVoices(output string) []speech.Voice {
	voices := make([]speech.Voice, 0)
	for _, line := range strings.Split(output, "\n") {
		name, lang, ok := strings.Cut(strings.TrimSpace(line), "|")
		if !ok || name == "" {
			continue
		}
		voices = append(voices, speech.Voice{Name: name, Lang: canonicalLang(lang)})
	}
	return voices
}
