package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/aretw0/companion"
	"github.com/aretw0/companion/pkg/domain"
)

// JSONHandler implements IOHandler for JSON-Lines communication.
//
// Each input line is either an object {"text": "..."}, a JSON string, or
// plain text. Each turn produces exactly one output line: the Reply, or an
// ErrorLine when the turn failed.
type JSONHandler struct {
	Reader  *bufio.Reader
	Encoder *json.Encoder
}

// ErrorLine is emitted for a failed turn.
type ErrorLine struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type messageLine struct {
	Text string `json:"text"`
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Encoder: json.NewEncoder(w),
	}
}

// Input reads the next non-blank line. Validation is left to the agent so
// that rejected lines are answered with an ErrorLine.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := h.Reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			if err != nil {
				return "", err
			}
			continue
		}
		return decodeLine(line), nil
	}
}

func decodeLine(line string) string {
	var msg messageLine
	if strings.HasPrefix(line, "{") && json.Unmarshal([]byte(line), &msg) == nil {
		return msg.Text
	}
	var s string
	if json.Unmarshal([]byte(line), &s) == nil {
		return s
	}
	return line
}

func (h *JSONHandler) Output(ctx context.Context, reply *companion.Reply) error {
	return h.Encoder.Encode(reply)
}

func (h *JSONHandler) Failure(ctx context.Context, err error) error {
	return h.Encoder.Encode(ErrorLine{Error: err.Error(), Kind: domain.KindOf(err)})
}
