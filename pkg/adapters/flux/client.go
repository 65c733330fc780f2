// Package flux generates images through the RapidAPI-hosted Flux
// text-to-image service.
package flux

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/companion/internal/httpkit"
	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/ports"
)

const (
	DefaultHost = "ai-text-to-image-generator-flux-free-api.p.rapidapi.com"
	DefaultURL  = "https://" + DefaultHost + "/aaaaaaaaaaaaaaaaaiimagegenerator/quick.php"

	// maxImageBytes bounds a downloaded image.
	maxImageBytes = 20 << 20
)

// Config configures the client.
type Config struct {
	APIKey  string
	URL     string
	Host    string
	StyleID int
	Size    string
	Timeout time.Duration
}

// Client implements ports.ImageGenerator.
type Client struct {
	cfg  Config
	http *http.Client
}

var _ ports.ImageGenerator = (*Client)(nil)

// New creates a client. Empty fields take the service defaults.
func New(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.StyleID == 0 {
		cfg.StyleID = 4
	}
	if cfg.Size == "" {
		cfg.Size = "1-1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{cfg: cfg, http: httpkit.NewClient(httpkit.WithTimeout(cfg.Timeout))}
}

type generateRequest struct {
	Prompt  string `json:"prompt"`
	StyleID int    `json:"style_id"`
	Size    string `json:"size"`
}

type generateResponse struct {
	FinalResult []struct {
		Origin string `json:"origin"`
		NSFW   bool   `json:"nsfw"`
	} `json:"final_result"`
}

// Generate requests images for prompt and downloads the first one not
// flagged as NSFW.
func (c *Client) Generate(ctx context.Context, prompt string) (ports.Image, error) {
	if strings.TrimSpace(prompt) == "" {
		return ports.Image{}, fmt.Errorf("%w: image prompt cannot be empty", domain.ErrValidation)
	}

	header := http.Header{}
	header.Set("x-rapidapi-host", c.cfg.Host)
	header.Set("x-rapidapi-key", c.cfg.APIKey)

	var resp generateResponse
	req := generateRequest{Prompt: prompt, StyleID: c.cfg.StyleID, Size: c.cfg.Size}
	if err := httpkit.DoJSON(ctx, c.http, c.cfg.URL, header, req, &resp); err != nil {
		return ports.Image{}, fmt.Errorf("request image: %w", err)
	}

	if len(resp.FinalResult) == 0 {
		return ports.Image{}, fmt.Errorf("%w: service returned no images", domain.ErrEmptyImage)
	}
	var url string
	for _, r := range resp.FinalResult {
		if !r.NSFW && r.Origin != "" {
			url = r.Origin
			break
		}
	}
	if url == "" {
		return ports.Image{}, domain.ErrNoAcceptableImage
	}

	data, ext, err := c.download(ctx, url)
	if err != nil {
		return ports.Image{}, fmt.Errorf("download image: %w", err)
	}
	if len(data) == 0 {
		return ports.Image{}, fmt.Errorf("%w: downloaded image is empty", domain.ErrEmptyImage)
	}
	return ports.Image{Data: data, Ext: ext}, nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", &httpkit.StatusError{StatusCode: resp.StatusCode, Body: httpkit.ReadErrorBody(resp.Body, 256)}
	}
	defer httpkit.DrainAndClose(resp.Body, 1024)

	data, err := readLimited(resp, maxImageBytes)
	if err != nil {
		return nil, "", err
	}
	return data, extension(resp.Header.Get("Content-Type")), nil
}

// extension maps an image content type to a file extension. The service
// serves webp, so unknown types fall back to it.
func extension(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".webp"
	}
	switch mt {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	default:
		return ".webp"
	}
}

func readLimited(resp *http.Response, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("image exceeds %d bytes", limit)
	}
	return data, nil
}
