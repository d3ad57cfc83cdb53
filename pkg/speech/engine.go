package speech

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"

	"voxd/pkg/logger"
)

// Voice is one synthesis voice exposed by the host engine.
type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// Recognizer turns host audio into transcripts. Listen blocks until the run
// completes, fails, or ctx is canceled; cancellation is a clean end, not an
// error.
type Recognizer interface {
	Listen(ctx context.Context, onResult ResultFunc) error
}

// Synthesizer speaks text through the host. voice may be empty for the
// engine default.
type Synthesizer interface {
	Speak(ctx context.Context, text, voice string, opts SpeakOptions) error
	Voices() []Voice
}

// synthCandidates are probed in order when no speak command is configured.
var synthCandidates = []string{"say", "espeak", "flite"}

// Detect resolves host speech capability once. Unavailable engines come back
// nil; the bridge then degrades those operations to no-ops.
func Detect(speakCmd, listenCmd string) (Recognizer, Synthesizer) {
	var syn Synthesizer
	if speakCmd != "" {
		if path, err := exec.LookPath(speakCmd); err == nil {
			syn = &cmdSynthesizer{bin: path, name: speakCmd}
		}
	} else {
		for _, c := range synthCandidates {
			if path, err := exec.LookPath(c); err == nil {
				syn = &cmdSynthesizer{bin: path, name: c}
				break
			}
		}
	}

	var rec Recognizer
	if listenCmd != "" {
		if path, err := exec.LookPath(listenCmd); err == nil {
			rec = &cmdRecognizer{bin: path}
		}
	}

	logger.Info("speech_capability_resolved",
		zap.Bool("synthesis", syn != nil),
		zap.Bool("recognition", rec != nil),
	)
	return rec, syn
}

// cmdRecognizer runs an external recognizer that prints transcript lines on
// stdout. Each line is an interim transcript; the last one is re-delivered
// as final when the process exits cleanly.
type cmdRecognizer struct {
	bin string
}

func (c *cmdRecognizer) Listen(ctx context.Context, onResult ResultFunc) error {
	cmd := exec.CommandContext(ctx, c.bin)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	var last string
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		last = line
		if onResult != nil {
			onResult(line, false)
		}
	}

	err = cmd.Wait()
	if ctx.Err() != nil {
		// stopped by the caller; treat as a clean end
		return nil
	}
	if err != nil {
		return fmt.Errorf("recognizer exited: %w", err)
	}
	if last != "" && onResult != nil {
		onResult(last, true)
	}
	return nil
}

// cmdSynthesizer shells out to a host TTS binary (say/espeak/flite).
type cmdSynthesizer struct {
	bin  string
	name string

	once   sync.Once
	voices []Voice
}

func (c *cmdSynthesizer) Speak(ctx context.Context, text, voice string, opts SpeakOptions) error {
	args := c.speakArgs(text, voice, opts)
	cmd := exec.CommandContext(ctx, c.bin, args...)
	if err := cmd.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("%s failed: %w", c.name, err)
	}
	return nil
}

// speakArgs maps the portable options onto the specific binary's flags.
func (c *cmdSynthesizer) speakArgs(text, voice string, opts SpeakOptions) []string {
	switch c.name {
	case "say":
		// say measures rate in words per minute; ~175 wpm is its default.
		args := []string{"-r", fmt.Sprintf("%d", int(opts.Rate*175))}
		if voice != "" {
			args = append(args, "-v", voice)
		}
		return append(args, text)
	case "espeak":
		// espeak default is 175 wpm, amplitude 0-200, pitch 0-99.
		args := []string{
			"-s", fmt.Sprintf("%d", int(opts.Rate*175)),
			"-a", fmt.Sprintf("%d", int(opts.Volume*100)),
			"-p", fmt.Sprintf("%d", int(opts.Pitch*50)),
		}
		if voice != "" {
			args = append(args, "-v", voice)
		}
		return append(args, text)
	default:
		args := []string{}
		if voice != "" {
			args = append(args, "-voice", voice)
		}
		return append(args, "-t", text)
	}
}

func (c *cmdSynthesizer) Voices() []Voice {
	c.once.Do(func() { c.voices = c.listVoices() })
	return c.voices
}

// listVoices enumerates voices best-effort; engines without a listing flag
// report none and the bridge falls back to the engine default voice.
func (c *cmdSynthesizer) listVoices() []Voice {
	var args []string
	switch c.name {
	case "say":
		args = []string{"-v", "?"}
	case "espeak":
		args = []string{"--voices"}
	default:
		return nil
	}
	out, err := exec.Command(c.bin, args...).Output()
	if err != nil {
		return nil
	}
	var voices []Voice
	for i, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch c.name {
		case "say":
			// "Alex   en_US   # Most people recognize me by my voice."
			voices = append(voices, Voice{Name: fields[0], Lang: fields[1]})
		case "espeak":
			// header row, then "Pty Language Age/Gender VoiceName ..."
			if i == 0 || len(fields) < 4 {
				continue
			}
			voices = append(voices, Voice{Name: fields[3], Lang: fields[1]})
		}
	}
	return voices
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(s), strings.ToLower(prefix))
}
