package voice

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// freeTTSMaxSegment is the longest text the free endpoint accepts per
// request. Longer texts are split on word boundaries and the MP3 segments
// concatenated; players handle back-to-back MP3 frames fine.
const freeTTSMaxSegment = 200

// freeTTS is the terminal synthesis fallback: the unauthenticated Google
// Translate TTS endpoint. Quality is modest but it needs no credentials, so
// the synthesis chain always has a last resort.
type freeTTS struct {
	baseURL string
	client  *http.Client
}

func newFreeTTS(baseURL string) *freeTTS {
	if baseURL == "" {
		baseURL = "https://translate.google.com"
	}
	return &freeTTS{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Synthesize fetches MP3 audio for the text, one segment at a time.
func (f *freeTTS) Synthesize(ctx context.Context, req SynthesizeRequest) ([]byte, error) {
	lang := "en"
	if req.Language == "hi" {
		lang = "hi"
	}

	var audio []byte
	for _, segment := range splitSegments(req.Text, freeTTSMaxSegment) {
		b, err := f.fetchSegment(ctx, segment, lang)
		if err != nil {
			return nil, err
		}
		audio = append(audio, b...)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("free tts: no audio produced")
	}
	return audio, nil
}

func (f *freeTTS) fetchSegment(ctx context.Context, text, lang string) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/translate_tts?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("free tts: create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("free tts: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("free tts: HTTP %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("free tts: read audio: %w", err)
	}
	return b, nil
}

// splitSegments breaks text into pieces of at most maxLen characters,
// preferring word boundaries.
func splitSegments(text string, maxLen int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxLen {
		return []string{text}
	}

	var segments []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+1+len(word) > maxLen {
			segments = append(segments, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		// A single word longer than maxLen goes out as its own segment.
		current.WriteString(word)
	}
	if current.Len() > 0 {
		segments = append(segments, current.String())
	}
	return segments
}
