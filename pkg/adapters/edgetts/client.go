// Package edgetts synthesizes speech with the Microsoft Edge read-aloud
// service over its websocket protocol. No API key is required.
package edgetts

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/ports"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	DefaultEndpoint = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"
	DefaultVoice    = "en-US-AriaNeural"
	DefaultFormat   = "audio-24khz-48kbitrate-mono-mp3"

	trustedClientToken = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"
	secMSGECVersion    = "1-130.0.2849.68"
	origin             = "chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold"
	userAgent          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36 Edg/130.0.0.0"

	// windowsEpochOffset is the seconds between 1601-01-01 and 1970-01-01.
	windowsEpochOffset = 11644473600
)

// Config configures the client.
type Config struct {
	Endpoint string
	Voice    string
	Format   string
	Rate     string
	Pitch    string
	Volume   string
	Timeout  time.Duration
}

// Client implements ports.SpeechSynthesizer.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	now    func() time.Time
}

var _ ports.SpeechSynthesizer = (*Client)(nil)

// New creates a client. Empty fields take the defaults.
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.Format == "" {
		cfg.Format = DefaultFormat
	}
	if cfg.Rate == "" {
		cfg.Rate = "+0%"
	}
	if cfg.Pitch == "" {
		cfg.Pitch = "+0Hz"
	}
	if cfg.Volume == "" {
		cfg.Volume = "+0%"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 15 * time.Second,
			ReadBufferSize:   64 * 1024,
			WriteBufferSize:  16 * 1024,
			Proxy:            http.ProxyFromEnvironment,
		},
		now: time.Now,
	}
}

// Synthesize converts text to audio in the configured format.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := ports.ValidateSpeechText(text); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	header := http.Header{}
	header.Set("Origin", origin)
	header.Set("User-Agent", userAgent)
	header.Set("Pragma", "no-cache")
	header.Set("Cache-Control", "no-cache")

	conn, _, err := c.dialer.DialContext(ctx, c.endpointURL(), header)
	if err != nil {
		return nil, fmt.Errorf("dial speech service: %w", err)
	}
	defer conn.Close()

	// Unblock reads when ctx ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(c.configMessage())); err != nil {
		return nil, fmt.Errorf("send speech config: %w", err)
	}
	requestID := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := conn.WriteMessage(websocket.TextMessage, []byte(c.ssmlMessage(requestID, text))); err != nil {
		return nil, fmt.Errorf("send ssml: %w", err)
	}

	var audio bytes.Buffer
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read speech stream: %w", err)
		}
		switch kind {
		case websocket.TextMessage:
			if path(headerBlock(data)) == "turn.end" {
				if audio.Len() == 0 {
					return nil, domain.ErrEmptyAudio
				}
				return audio.Bytes(), nil
			}
		case websocket.BinaryMessage:
			chunk, err := audioChunk(data)
			if err != nil {
				return nil, err
			}
			audio.Write(chunk)
		}
	}
}

func (c *Client) endpointURL() string {
	q := url.Values{}
	q.Set("TrustedClientToken", trustedClientToken)
	q.Set("Sec-MS-GEC", secMSGEC(c.now()))
	q.Set("Sec-MS-GEC-Version", secMSGECVersion)
	q.Set("ConnectionId", strings.ReplaceAll(uuid.NewString(), "-", ""))
	return c.cfg.Endpoint + "?" + q.Encode()
}

// secMSGEC is the anti-abuse token: SHA-256 of the Windows file time
// rounded down to five minutes, concatenated with the client token.
func secMSGEC(now time.Time) string {
	ticks := now.Unix() + windowsEpochOffset
	ticks -= ticks % 300
	ticks *= 10_000_000 // 100ns intervals
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d%s", ticks, trustedClientToken)))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func (c *Client) timestamp() string {
	return c.now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")
}

func (c *Client) configMessage() string {
	return "X-Timestamp:" + c.timestamp() + "\r\n" +
		"Content-Type:application/json; charset=utf-8\r\n" +
		"Path:speech.config\r\n\r\n" +
		`{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},"outputFormat":"` + c.cfg.Format + `"}}}}` + "\r\n"
}

func (c *Client) ssmlMessage(requestID, text string) string {
	var escaped strings.Builder
	_ = xml.EscapeText(&escaped, []byte(text))
	ssml := fmt.Sprintf(
		"<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'>"+
			"<voice name='%s'><prosody pitch='%s' rate='%s' volume='%s'>%s</prosody></voice></speak>",
		c.cfg.Voice, c.cfg.Pitch, c.cfg.Rate, c.cfg.Volume, escaped.String())
	return "X-RequestId:" + requestID + "\r\n" +
		"Content-Type:application/ssml+xml\r\n" +
		"X-Timestamp:" + c.timestamp() + "Z\r\n" +
		"Path:ssml\r\n\r\n" + ssml
}

// headerBlock returns the header part of a text frame.
func headerBlock(frame []byte) []byte {
	if i := bytes.Index(frame, []byte("\r\n\r\n")); i >= 0 {
		return frame[:i]
	}
	return frame
}

// path extracts the Path header value.
func path(headers []byte) string {
	for _, line := range strings.Split(string(headers), "\r\n") {
		if v, ok := strings.CutPrefix(line, "Path:"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// audioChunk returns the payload of a binary frame carrying audio. Binary
// frames start with a big-endian uint16 header length.
func audioChunk(frame []byte) ([]byte, error) {
	if len(frame) < 2 {
		return nil, errors.New("binary frame too short")
	}
	n := int(binary.BigEndian.Uint16(frame[:2]))
	if len(frame) < 2+n {
		return nil, errors.New("binary frame header exceeds frame")
	}
	if path(frame[2:2+n]) != "audio" {
		return nil, nil
	}
	return frame[2+n:], nil
}
