package engine

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"readaloud/internal/speech"

	"github.com/sirupsen/logrus"
)

// A line of "say -v ?":
//
//	Daniel              en_GB    # Hello, my name is Daniel.
var sayVoiceLine = regexp.MustCompile(`^(.+?)\s+([a-z]{2,3}_[A-Z0-9]+)\s+#`)

// newSayEngine creates a command engine around the macOS say command.
func newSayEngine(log *logrus.Entry) (*CommandEngine, error) {
	path, err := exec.LookPath("say")
	if err != nil {
		return nil, fmt.Errorf("say not found: %w", err)
	}

	return newCommandEngine(commandProgram{
		name:   "say",
		path:   path,
		args:   sayArgs,
		voices: listSayVoices,
	}, log), nil
}

// say has no pitch or volume flags; rate is in words per minute.
func sayArgs(u *speech.Utterance) []string {
	var args []string
	if u.Voice != nil && u.Voice.Name != "" {
		args = append(args, "-v", u.Voice.Name)
	}
	args = append(args, "-r", strconv.Itoa(int(defaultWPM*orOne(u.Rate))), "--", u.Text)
	return args
}

func listSayVoices(path string) ([]speech.Voice, error) {
	output, err := exec.Command(path, "-v", "?").Output()
	if err != nil {
		return nil, err
	}
	return parseSayVoices(string(output)), nil
}

func parseSayVoices(output string) []speech.Voice {
	voices := make([]speech.Voice, 0)
	for _, line := range strings.Split(output, "\n") {
		m := sayVoiceLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		voices = append(voices, speech.Voice{
			Name: strings.TrimSpace(m[1]),
			Lang: canonicalLang(m[2]),
		})
	}
	return voices
}
