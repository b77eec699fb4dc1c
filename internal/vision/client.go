package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eleven-am/vlm-docking/internal/camera"
)

const maxResponseBytes = 1 << 20

type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.InferenceURL, "/"),
		logger:     logger.With("component", "inference-client"),
	}
}

type inferReply struct {
	Action     *string  `json:"action"`
	Confidence *float64 `json:"confidence"`
}

// Infer posts one image to the inference service and waits for its decision.
// Errors are always *Failure.
func (c *Client) Infer(ctx context.Context, req InferRequest) (*InferResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &Failure{Kind: FailureTransport, Err: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/infer", bytes.NewReader(body))
	if err != nil {
		return nil, &Failure{Kind: FailureTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Failure{Kind: FailureTransport, Err: fmt.Errorf("inference request: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Failure{Kind: FailureTransport, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Failure{
			Kind:       FailureTransport,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("inference service returned status %d", resp.StatusCode),
		}
	}

	return parseReply(data)
}

func parseReply(data []byte) (*InferResponse, error) {
	var reply inferReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, &Failure{Kind: FailureParse, Err: fmt.Errorf("decode response: %w", err)}
	}
	if reply.Action == nil {
		return nil, &Failure{Kind: FailureParse, Err: fmt.Errorf("%w: action", ErrMissingField)}
	}
	if reply.Confidence == nil {
		return nil, &Failure{Kind: FailureParse, Err: fmt.Errorf("%w: confidence", ErrMissingField)}
	}

	return &InferResponse{
		Action:     *reply.Action,
		Confidence: *reply.Confidence,
	}, nil
}

// Send issues the request on its own goroutine and returns immediately.
// onComplete runs exactly once, on the request goroutine, with either a
// response or a *Failure.
func (c *Client) Send(ctx context.Context, img EncodedImage, command string, onComplete func(Result)) {
	req := InferRequest{
		CameraID:    img.CameraID,
		ImageBase64: img.Base64,
		Command:     command,
	}

	go func() {
		start := time.Now()
		resp, err := c.Infer(ctx, req)

		result := Result{
			CameraID: req.CameraID,
			Command:  command,
			Latency:  time.Since(start),
		}
		if err != nil {
			result.Err = err
			c.logger.Debug("inference failed", "camera_id", req.CameraID, "error", err)
		} else {
			result.Response = resp
		}

		onComplete(result)
	}()
}

// IsAvailable reports whether the inference service answers HTTP at all.
// IsAvailable sends GET to the infer route. The service only accepts POST
// there, so any status below 500 (typically 405) means it is up.
func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/infer", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < http.StatusInternalServerError
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// NewRequest builds the wire request for one camera.
func NewRequest(id camera.ID, img string, command string) InferRequest {
	return InferRequest{CameraID: id, ImageBase64: img, Command: command}
}
