// Package speech wraps host speech recognition and synthesis behind a
// callback-based start/stop contract. Capabilities are resolved once at
// startup; on hosts without speech tooling every operation is a no-op
// rather than an error.
package speech

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"voxd/pkg/logger"
)

// State of the recognition side of the bridge.
type State int

const (
	Idle State = iota
	Listening
)

// ResultFunc receives interim and final transcripts. final is true exactly
// once, for the last transcript of a listening run.
type ResultFunc func(transcript string, final bool)

// SpeakOptions tune synthesis playback. Zero values mean 1.0.
type SpeakOptions struct {
	Rate   float64
	Pitch  float64
	Volume float64
}

func (o SpeakOptions) withDefaults() SpeakOptions {
	if o.Rate == 0 {
		o.Rate = 1.0
	}
	if o.Pitch == 0 {
		o.Pitch = 1.0
	}
	if o.Volume == 0 {
		o.Volume = 1.0
	}
	return o
}

// Bridge is the speech state machine. A nil recognizer or synthesizer marks
// that capability as unavailable.
type Bridge struct {
	mu    sync.Mutex
	state State

	rec Recognizer
	syn Synthesizer

	listenCancel context.CancelFunc
	speakCancel  context.CancelFunc

	language  string
	preferred []string
}

// NewBridge assembles a bridge over the given engines. Either may be nil.
func NewBridge(rec Recognizer, syn Synthesizer, language string, preferredVoices []string) *Bridge {
	return &Bridge{rec: rec, syn: syn, language: language, preferred: preferredVoices}
}

// State returns the current recognition state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// CanListen reports whether a recognition engine is available.
func (b *Bridge) CanListen() bool { return b.rec != nil }

// CanSpeak reports whether a synthesis engine is available.
func (b *Bridge) CanSpeak() bool { return b.syn != nil }

// StartListening begins a recognition run and reports whether one was
// started. It returns false, firing no callbacks, when already listening or
// when the host has no recognition capability. For a started run onResult
// fires zero or more times; exactly one of onEnd or onError fires
// afterwards, with the bridge back in Idle either way.
func (b *Bridge) StartListening(onResult ResultFunc, onEnd func(), onError func(error)) bool {
	b.mu.Lock()
	if b.rec == nil || b.state == Listening {
		b.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.listenCancel = cancel
	b.state = Listening
	rec := b.rec
	b.mu.Unlock()

	logger.Info("speech_listening_started")
	go func() {
		err := rec.Listen(ctx, onResult)

		b.mu.Lock()
		b.state = Idle
		b.listenCancel = nil
		b.mu.Unlock()

		if err != nil && ctx.Err() == nil {
			logger.Warn("speech_recognition_failed", zap.Error(err))
			if onError != nil {
				onError(err)
			}
			return
		}
		logger.Info("speech_listening_ended")
		if onEnd != nil {
			onEnd()
		}
	}()
	return true
}

// StopListening requests early termination of the active recognition run.
// No-op when idle.
func (b *Bridge) StopListening() {
	b.mu.Lock()
	cancel := b.listenCancel
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Speak cancels any in-progress playback and synthesizes text. Playback is
// fire-and-forget; no completion callback is offered.
func (b *Bridge) Speak(text string, opts SpeakOptions) {
	b.mu.Lock()
	if b.syn == nil {
		b.mu.Unlock()
		return
	}
	if b.speakCancel != nil {
		b.speakCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.speakCancel = cancel
	syn := b.syn
	voice := b.pickVoiceLocked()
	b.mu.Unlock()

	go func() {
		if err := syn.Speak(ctx, text, voice, opts.withDefaults()); err != nil && ctx.Err() == nil {
			logger.Warn("speech_synthesis_failed", zap.Error(err))
		}
	}()
}

// StopSpeaking cancels in-progress playback; no-op if none.
func (b *Bridge) StopSpeaking() {
	b.mu.Lock()
	cancel := b.speakCancel
	b.speakCancel = nil
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Voices lists the synthesis voices the host exposes.
func (b *Bridge) Voices() []Voice {
	if b.syn == nil {
		return nil
	}
	return b.syn.Voices()
}

// pickVoiceLocked applies the preference heuristic: a voice whose name
// contains a preferred marker wins, then any voice matching the configured
// language, then the engine default (empty name).
func (b *Bridge) pickVoiceLocked() string {
	if b.syn == nil {
		return ""
	}
	voices := b.syn.Voices()
	for _, p := range b.preferred {
		for _, v := range voices {
			if p != "" && containsFold(v.Name, p) {
				return v.Name
			}
		}
	}
	if b.language != "" {
		for _, v := range voices {
			if hasPrefixFold(v.Lang, b.language) {
				return v.Name
			}
		}
	}
	return ""
}
