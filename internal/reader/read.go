package reader

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"readaloud/internal/cli/scheme/colours"
	"readaloud/internal/domain/passage"
	"readaloud/internal/speech"

	"github.com/spf13/cobra"
)

// ReadPassage speaks the passage in args[0], or stdin for "-".
func (r *Reader) ReadPassage(cmd *cobra.Command, args []string) {
	p, err := r.loadPassage(args)
	if err != nil {
		colours.Error.Fprintf(r.out, "❌ %v\n", err)
		return
	}
	if id, _ := cmd.Flags().GetString("id"); id != "" {
		p.ID = id
	}

	sp := r.Speech()
	if !sp.State().Supported {
		colours.Error.Fprintln(r.out, "❌ Speech synthesis is not available on this system")
		return
	}
	if sp.Clean(p.Content) == "" {
		colours.Warning.Fprintln(r.out, "⚠️  Nothing to read once asides are removed")
		return
	}

	opts, err := r.speakOptions(cmd)
	if err != nil {
		colours.Error.Fprintf(r.out, "❌ %v\n", err)
		return
	}

	pass := r.Passages()
	data := pass.AddRecentView(p.ID, pass.Load())

	fmt.Fprintln(r.out)
	colours.Title.Fprintf(r.out, "📖 %s\n", p.Title)
	if data.IsBookmarked(p.ID) {
		colours.Info.Fprintln(r.out, "🔖 Bookmarked")
	}
	fmt.Fprintln(r.out)

	follow, _ := cmd.Flags().GetBool("follow")
	r.follow.setEnabled(follow)

	r.drainFinished()
	sp.Speak(p.Content, opts)

	sleep, _ := cmd.Flags().GetFloat64("sleep")
	if !cmd.Flags().Changed("sleep") {
		sleep = r.cfg.Speech.SleepMinutes
	}
	if sleep > 0 {
		sp.SetSleepTimer(sleep)
		colours.Info.Fprintf(r.out, "😴 Sleep timer: %g minutes\n", sleep)
	}

	interactive := len(args) > 0 && args[0] != "-"
	r.waitForPlayback(p.ID, interactive)
}

func (r *Reader) loadPassage(args []string) (passage.Passage, error) {
	if len(args) == 0 || args[0] == "-" {
		return passage.FromReader("stdin", r.in)
	}
	return passage.FromFile(args[0])
}

func (r *Reader) speakOptions(cmd *cobra.Command) (speech.SpeakOptions, error) {
	var opts speech.SpeakOptions
	flags := cmd.Flags()

	opts.Rate, _ = flags.GetFloat64("rate")
	opts.Pitch, _ = flags.GetFloat64("pitch")
	opts.Volume, _ = flags.GetFloat64("volume")

	opts.Lang, _ = flags.GetString("lang")
	if opts.Lang == "" {
		opts.Lang = r.cfg.TTS.Lang
	}

	name, _ := flags.GetString("voice")
	if name == "" {
		name = r.cfg.TTS.Voice
	}
	if name != "" {
		v, ok := findVoice(r.waitForVoices(), name)
		if !ok {
			return opts, fmt.Errorf("voice %q not available, see 'readaloud voices'", name)
		}
		opts.Voice = &v
	}
	return opts, nil
}

func findVoice(voices []speech.Voice, name string) (speech.Voice, bool) {
	for _, v := range voices {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return speech.Voice{}, false
}

func (r *Reader) drainFinished() {
	select {
	case <-r.finished:
	default:
	}
}

// waitForPlayback blocks until the passage ends, is stopped or the
// reader is cancelled. In interactive mode it reads control commands
// from the input.
func (r *Reader) waitForPlayback(id string, interactive bool) {
	var lines chan string
	if interactive {
		lines = make(chan string)
		go r.scanInput(lines)
		colours.Muted.Fprintln(r.out, "⏸️  'p' pause/resume, 's' stop, 'b' bookmark, 't <minutes>' sleep timer")
	}

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.finished:
			colours.Success.Fprintln(r.out, "✅ Passage finished! 🌟")
			return
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if r.handleControl(id, line) {
				return
			}
		}
	}
}

func (r *Reader) scanInput(lines chan<- string) {
	defer close(lines)
	sc := bufio.NewScanner(r.in)
	for sc.Scan() {
		select {
		case lines <- sc.Text():
		case <-r.ctx.Done():
			return
		}
	}
}

// handleControl applies one interactive command and reports whether
// playback is over.
func (r *Reader) handleControl(id, line string) bool {
	sp := r.Speech()
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "p", "pause":
		switch sp.State().Phase() {
		case speech.PhaseSpeaking:
			sp.Pause()
			colours.Warning.Fprintln(r.out, "⏸️  Paused")
		case speech.PhasePaused:
			sp.Resume()
			colours.Success.Fprintln(r.out, "▶️  Resumed")
		}
	case "s", "stop":
		sp.Stop()
		r.drainFinished()
		colours.Warning.Fprintln(r.out, "⏹️  Stopped")
		return true
	case "b", "bookmark":
		r.toggleBookmark(id)
	case "t", "timer":
		if len(fields) < 2 {
			sp.ClearSleepTimer()
			colours.Info.Fprintln(r.out, "⏰ Sleep timer cleared")
			break
		}
		minutes, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			colours.Error.Fprintf(r.out, "❌ Invalid minutes %q\n", fields[1])
			break
		}
		sp.SetSleepTimer(minutes)
		if sp.SleepTimerPending() {
			colours.Info.Fprintf(r.out, "😴 Sleep timer: %g minutes\n", minutes)
		} else {
			colours.Info.Fprintln(r.out, "⏰ Sleep timer cleared")
		}
	default:
		colours.Info.Fprintln(r.out, "ℹ️  Use 'p' to pause/resume, 's' to stop, 'b' to bookmark, 't <minutes>' for a sleep timer")
	}
	return false
}

func (r *Reader) toggleBookmark(id string) {
	pass := r.Passages()
	data := pass.ToggleBookmark(id, pass.Load())
	if data.IsBookmarked(id) {
		colours.Success.Fprintf(r.out, "🔖 Bookmarked %s\n", id)
	} else {
		colours.Warning.Fprintf(r.out, "🗑️  Removed bookmark %s\n", id)
	}
}
