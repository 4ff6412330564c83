package engine

import (
	"sync"
	"time"
	"unicode"
)

// Default speaking speed used to estimate word boundaries for engines
// that do not report them.
const defaultWPM = 175.0

// wordClock estimates boundary events by stepping through the words of
// a text at a fixed pace.
type wordClock struct {
	offsets []int
	perWord time.Duration
	emit    func(int)
	done    func()

	mu      sync.Mutex
	next    int
	timer   *time.Timer
	gen     uint64
	paused  bool
	stopped bool
}

// newWordClock returns a stopped clock. emit receives the byte offset of
// each word; done, if set, runs one word after the last offset.
func newWordClock(text string, perWord time.Duration, emit func(int), done func()) *wordClock {
	if perWord <= 0 {
		perWord = time.Millisecond
	}
	return &wordClock{
		offsets: wordOffsets(text),
		perWord: perWord,
		emit:    emit,
		done:    done,
	}
}

// perWordAt returns the time per word at wpm scaled by rate.
func perWordAt(wpm, rate float64) time.Duration {
	if rate <= 0 {
		rate = 1
	}
	return time.Duration(float64(time.Minute) / (wpm * rate))
}

// perWordOver spreads total evenly over the words of text.
func perWordOver(text string, total time.Duration) time.Duration {
	n := len(wordOffsets(text))
	if n == 0 {
		return total
	}
	return total / time.Duration(n)
}

func (c *wordClock) Start() {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	c.tick(gen)
}

func (c *wordClock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.paused {
		return
	}
	c.paused = true
	c.stopTimerLocked()
}

func (c *wordClock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || !c.paused {
		return
	}
	c.paused = false
	c.scheduleLocked()
}

func (c *wordClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.stopTimerLocked()
}

func (c *wordClock) tick(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.stopped || c.paused {
		c.mu.Unlock()
		return
	}

	if c.next >= len(c.offsets) {
		c.stopped = true
		done := c.done
		c.mu.Unlock()
		if done != nil {
			done()
		}
		return
	}

	offset := c.offsets[c.next]
	c.next++
	c.mu.Unlock()

	if c.emit != nil {
		c.emit(offset)
	}

	c.mu.Lock()
	if gen == c.gen && !c.stopped && !c.paused {
		c.scheduleLocked()
	}
	c.mu.Unlock()
}

func (c *wordClock) scheduleLocked() {
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(c.perWord, func() { c.tick(gen) })
}

func (c *wordClock) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}

// wordOffsets returns the byte offset of every word in text.
func wordOffsets(text string) []int {
	var offsets []int
	inWord := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			offsets = append(offsets, i)
			inWord = true
		}
	}
	return offsets
}
