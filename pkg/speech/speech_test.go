package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	mu       sync.Mutex
	starts   int
	results  []string
	err      error
	release  chan struct{} // closed to let Listen return
	blocking bool
}

func newFakeRecognizer(results ...string) *fakeRecognizer {
	return &fakeRecognizer{results: results, release: make(chan struct{})}
}

func (f *fakeRecognizer) Listen(ctx context.Context, onResult ResultFunc) error {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()
	for i, r := range f.results {
		onResult(r, i == len(f.results)-1)
	}
	if f.blocking {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.release:
		}
	}
	return f.err
}

func (f *fakeRecognizer) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

type fakeSynthesizer struct {
	mu     sync.Mutex
	spoken []string
	voice  string
	voices []Voice
}

func (f *fakeSynthesizer) Speak(ctx context.Context, text, voice string, opts SpeakOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	f.voice = voice
	return nil
}

func (f *fakeSynthesizer) Voices() []Voice { return f.voices }

func (f *fakeSynthesizer) lastVoice() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.voice
}

func (f *fakeSynthesizer) spokenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spoken)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never satisfied")
}

func TestListenDeliversTranscriptsThenEnd(t *testing.T) {
	rec := newFakeRecognizer("hel", "hello")
	b := NewBridge(rec, nil, "", nil)

	var mu sync.Mutex
	var got []string
	var finals []bool
	ended := false

	started := b.StartListening(
		func(tr string, final bool) {
			mu.Lock()
			got = append(got, tr)
			finals = append(finals, final)
			mu.Unlock()
		},
		func() { mu.Lock(); ended = true; mu.Unlock() },
		func(err error) { t.Errorf("unexpected error: %v", err) },
	)
	require.True(t, started)

	waitFor(t, func() bool { mu.Lock(); defer mu.Unlock(); return ended })
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"hel", "hello"}, got)
	assert.Equal(t, []bool{false, true}, finals)
	assert.Equal(t, Idle, b.State())
}

func TestStartListeningWhileListeningIsNoop(t *testing.T) {
	rec := newFakeRecognizer()
	rec.blocking = true
	b := NewBridge(rec, nil, "", nil)

	assert.True(t, b.StartListening(nil, nil, nil))
	waitFor(t, func() bool { return b.State() == Listening })

	assert.False(t, b.StartListening(nil, nil, nil), "second start must report that no run began")
	assert.Equal(t, 1, rec.startCount(), "second start must not spawn a second run")

	b.StopListening()
	waitFor(t, func() bool { return b.State() == Idle })

	// once idle again a new run can be claimed
	assert.True(t, b.StartListening(nil, nil, nil))
	b.StopListening()
	waitFor(t, func() bool { return b.State() == Idle })
}

func TestListenErrorReported(t *testing.T) {
	rec := newFakeRecognizer()
	rec.err = errors.New("mic broke")
	b := NewBridge(rec, nil, "", nil)

	errCh := make(chan error, 1)
	b.StartListening(nil, func() { t.Error("onEnd fired for a failed run") }, func(err error) { errCh <- err })

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("onError never fired")
	}
	assert.Equal(t, Idle, b.State())
}

func TestNoCapabilityIsNoop(t *testing.T) {
	b := NewBridge(nil, nil, "", nil)
	assert.False(t, b.CanListen())
	assert.False(t, b.CanSpeak())

	assert.False(t, b.StartListening(func(string, bool) { t.Error("no recognizer, no results") }, nil, nil))
	b.Speak("hello", SpeakOptions{})
	b.StopListening()
	b.StopSpeaking()
	assert.Equal(t, Idle, b.State())
	assert.Nil(t, b.Voices())
}

func TestSpeakUsesPreferredVoice(t *testing.T) {
	syn := &fakeSynthesizer{voices: []Voice{
		{Name: "Alloy", Lang: "en-US"},
		{Name: "Claire", Lang: "fr-FR"},
	}}
	b := NewBridge(nil, syn, "fr", []string{"claire"})

	b.Speak("bonjour", SpeakOptions{})
	waitFor(t, func() bool { return syn.spokenCount() == 1 })
	assert.Equal(t, "Claire", syn.lastVoice())
}

func TestSpeakFallsBackToLanguage(t *testing.T) {
	syn := &fakeSynthesizer{voices: []Voice{
		{Name: "Alloy", Lang: "en-US"},
		{Name: "Claire", Lang: "fr-FR"},
	}}
	b := NewBridge(nil, syn, "fr", []string{"nonexistent"})

	b.Speak("bonjour", SpeakOptions{})
	waitFor(t, func() bool { return syn.spokenCount() == 1 })
	assert.Equal(t, "Claire", syn.lastVoice())
}

func TestSpeakDefaultVoiceWhenNothingMatches(t *testing.T) {
	syn := &fakeSynthesizer{voices: []Voice{{Name: "Alloy", Lang: "en-US"}}}
	b := NewBridge(nil, syn, "de", nil)

	b.Speak("hallo", SpeakOptions{})
	waitFor(t, func() bool { return syn.spokenCount() == 1 })
	assert.Equal(t, "", syn.lastVoice())
}
