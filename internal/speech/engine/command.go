package engine

import (
	"fmt"
	"os/exec"
	"sync"

	"readaloud/internal/speech"

	"github.com/sirupsen/logrus"
)

// commandProgram describes a synthesizer driven through a child process,
// one process per utterance.
type commandProgram struct {
	name string
	path string
	args func(u *speech.Utterance) []string
	// voices lists the voices the program offers.
	voices func(path string) ([]speech.Voice, error)
}

// CommandEngine implements speech.Synthesizer over a command line
// synthesizer. Pause and resume stop and continue the process; word
// boundaries are estimated from the speaking rate.
type CommandEngine struct {
	prog commandProgram
	log  *logrus.Entry

	mu        sync.Mutex
	voices    []speech.Voice
	listeners []func()
	current   *commandPlayback
}

type commandPlayback struct {
	cmd       *exec.Cmd
	u         *speech.Utterance
	clock     *wordClock
	paused    bool
	cancelled bool
}

func newCommandEngine(prog commandProgram, log *logrus.Entry) *CommandEngine {
	e := &CommandEngine{prog: prog, log: log}
	go e.loadVoices()
	return e
}

func (e *CommandEngine) loadVoices() {
	if e.prog.voices == nil {
		return
	}
	voices, err := e.prog.voices(e.prog.path)
	if err != nil {
		e.log.WithError(err).Warn("Failed to list voices")
		return
	}

	e.mu.Lock()
	e.voices = voices
	listeners := append([]func(){}, e.listeners...)
	e.mu.Unlock()

	e.log.WithField("voices", len(voices)).Debug("Voices loaded")
	for _, fn := range listeners {
		fn()
	}
}

// Voices returns the voices loaded so far.
func (e *CommandEngine) Voices() []speech.Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]speech.Voice(nil), e.voices...)
}

// OnVoicesChanged registers fn to run once voices are loaded.
func (e *CommandEngine) OnVoicesChanged(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Speak starts a new process for u, cancelling the running one.
func (e *CommandEngine) Speak(u *speech.Utterance) error {
	if err := e.Cancel(); err != nil {
		return err
	}

	cmd := exec.Command(e.prog.path, e.prog.args(u)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", e.prog.name, err)
	}

	pb := &commandPlayback{cmd: cmd, u: u}
	pb.clock = newWordClock(u.Text, perWordAt(defaultWPM, u.Rate), u.Events.OnBoundary, nil)

	e.mu.Lock()
	e.current = pb
	e.mu.Unlock()

	e.log.WithField("pid", cmd.Process.Pid).Debug("Speaking")
	fire(u.Events.OnStart)
	pb.clock.Start()

	go e.wait(pb)
	return nil
}

func (e *CommandEngine) wait(pb *commandPlayback) {
	err := pb.cmd.Wait()
	pb.clock.Stop()

	e.mu.Lock()
	if e.current == pb {
		e.current = nil
	}
	cancelled := pb.cancelled
	e.mu.Unlock()

	if cancelled {
		return
	}
	if err != nil {
		if pb.u.Events.OnError != nil {
			pb.u.Events.OnError(fmt.Errorf("%s: %w", e.prog.name, err))
		}
		return
	}
	fire(pb.u.Events.OnEnd)
}

// Pause stops the running process.
func (e *CommandEngine) Pause() error {
	e.mu.Lock()
	pb := e.current
	if pb == nil || pb.paused {
		e.mu.Unlock()
		return nil
	}
	if err := pauseProcess(pb.cmd.Process); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("pause %s: %w", e.prog.name, err)
	}
	pb.paused = true
	e.mu.Unlock()

	pb.clock.Pause()
	fire(pb.u.Events.OnPause)
	return nil
}

// Resume continues a paused process.
func (e *CommandEngine) Resume() error {
	e.mu.Lock()
	pb := e.current
	if pb == nil || !pb.paused {
		e.mu.Unlock()
		return nil
	}
	if err := resumeProcess(pb.cmd.Process); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("resume %s: %w", e.prog.name, err)
	}
	pb.paused = false
	e.mu.Unlock()

	pb.clock.Resume()
	fire(pb.u.Events.OnResume)
	return nil
}

// Cancel kills the running process. No end event is sent for it.
func (e *CommandEngine) Cancel() error {
	e.mu.Lock()
	pb := e.current
	e.current = nil
	if pb != nil {
		pb.cancelled = true
	}
	e.mu.Unlock()

	if pb == nil {
		return nil
	}
	pb.clock.Stop()
	if err := pb.cmd.Process.Kill(); err != nil {
		e.log.WithError(err).Debug("Kill failed, process probably exited")
	}
	return nil
}

// Pending reports whether a process is running.
func (e *CommandEngine) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// Close cancels playback.
func (e *CommandEngine) Close() error {
	return e.Cancel()
}
