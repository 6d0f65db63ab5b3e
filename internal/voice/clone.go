package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/consultdeck/consultdeck/internal/errdefs"
)

// minSampleBytes rejects voice samples too short to clone from; anything
// under a second of audio produces unusable clones.
const minSampleBytes = 1000

// CloneSynthesizer speaks answers in the presenter's own voice. Samples are
// stored on local disk and synthesis is delegated to a sidecar service (an
// XTTS-compatible HTTP endpoint) that reads the reference sample.
type CloneSynthesizer struct {
	dir      string
	endpoint string
	client   *http.Client
}

// NewCloneSynthesizer constructs a CloneSynthesizer storing samples under
// dir. endpoint is the sidecar base URL; empty disables cloned synthesis.
func NewCloneSynthesizer(dir, endpoint string) (*CloneSynthesizer, error) {
	if dir == "" {
		dir = "cloned_voices"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("voice clone: create samples dir: %w", err)
	}
	return &CloneSynthesizer{
		dir:      dir,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Enabled reports whether a synthesis sidecar is configured. Sample saving
// works either way; synthesis needs the sidecar.
func (c *CloneSynthesizer) Enabled() bool { return c.endpoint != "" }

// SaveSample stores the presenter's reference audio and returns the voice ID
// to pass back on synthesis requests. Samples below minSampleBytes are
// rejected with a validation error.
func (c *CloneSynthesizer) SaveSample(sessionID string, audio []byte) (string, error) {
	if len(audio) < minSampleBytes {
		return "", errdefs.Validationf("voice sample too short: got %d bytes, need at least %d", len(audio), minSampleBytes)
	}

	voiceID := sessionID + ".wav"
	path := filepath.Join(c.dir, filepath.Base(voiceID))
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("voice clone: save sample: %w", err)
	}
	return voiceID, nil
}

// HasSample reports whether a reference sample exists for the voice ID.
func (c *CloneSynthesizer) HasSample(voiceID string) bool {
	if voiceID == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(c.dir, filepath.Base(voiceID)))
	return err == nil
}

type cloneSynthesizeRequest struct {
	Text      string `json:"text"`
	Reference string `json:"reference"`
	Language  string `json:"language,omitempty"`
}

// Synthesize renders the text in the cloned voice, returning WAV bytes.
func (c *CloneSynthesizer) Synthesize(ctx context.Context, req SynthesizeRequest) ([]byte, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("voice clone: no synthesis endpoint configured")
	}
	sample := filepath.Join(c.dir, filepath.Base(req.VoiceID))
	if _, err := os.Stat(sample); err != nil {
		return nil, fmt.Errorf("voice clone: no sample for voice %q: %w", req.VoiceID, err)
	}
	abs, err := filepath.Abs(sample)
	if err != nil {
		return nil, fmt.Errorf("voice clone: resolve sample path: %w", err)
	}

	payload, err := json.Marshal(cloneSynthesizeRequest{
		Text:      req.Text,
		Reference: abs,
		Language:  req.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("voice clone: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/synthesize", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("voice clone: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("voice clone: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("voice clone: HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("voice clone: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("voice clone: empty audio in response")
	}
	return audio, nil
}
