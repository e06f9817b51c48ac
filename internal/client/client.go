// Package client talks to the Prompt Lab generation service. The generate,
// modify and explain endpoints answer with unbounded chunked text streams;
// the client preserves the transport's arbitrary chunk boundaries and hands
// them to the caller over a channel, the same way it received them.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// readBufSize bounds a single delivered chunk. Boundaries carry no meaning;
// the parser downstream reassembles lines itself.
const readBufSize = 4096

// Upload is one file attached to a request.
type Upload struct {
	FileName string
	Data     []byte
}

// Chunk is one transport delivery. A Chunk with Err set is terminal: the
// channel closes right after it. A clean end-of-stream closes the channel
// with no error chunk.
type Chunk struct {
	Text string
	Err  error
}

type Client struct {
	baseURL string
	httpc   *http.Client
	log     *zap.SugaredLogger
}

func New(baseURL string, log *zap.SugaredLogger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{},
		log:     log,
	}
}

// Generate requests a new document for prompt and streams the sectioned
// response. Cancel ctx to abandon the stream.
func (c *Client) Generate(ctx context.Context, prompt string, files []Upload) (<-chan Chunk, error) {
	form := func(w *multipart.Writer) error {
		if err := w.WriteField("prompt", prompt); err != nil {
			return err
		}
		return writeFileParts(w, files)
	}
	return c.streamForm(ctx, "/generate", form)
}

// Modify requests a change to currentCode, carrying the conversational
// prompt history and optional browser console logs as context.
func (c *Client) Modify(ctx context.Context, prompt, currentCode, consoleLogs string, promptHistory []string, files []Upload) (<-chan Chunk, error) {
	form := func(w *multipart.Writer) error {
		fields := map[string]string{
			"prompt":       prompt,
			"current_code": currentCode,
			"console_logs": consoleLogs,
		}
		for name, val := range fields {
			if err := w.WriteField(name, val); err != nil {
				return err
			}
		}
		for _, p := range promptHistory {
			if err := w.WriteField("prompt_history", p); err != nil {
				return err
			}
		}
		return writeFileParts(w, files)
	}
	return c.streamForm(ctx, "/modify", form)
}

// Explain asks a question about currentCode. The answer is a raw text
// stream with no section markers.
func (c *Client) Explain(ctx context.Context, question, currentCode string) (<-chan Chunk, error) {
	body, err := json.Marshal(map[string]string{
		"question":     question,
		"current_code": currentCode,
	})
	if err != nil {
		return nil, fmt.Errorf("encode explain request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/explain", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doStream(req)
}

// Export asks the server to package the document and its assets into a
// deployable archive and copies it to w.
func (c *Client) Export(ctx context.Context, documentText string, files []Upload, w io.Writer) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("html_content", documentText); err != nil {
		return fmt.Errorf("build export form: %w", err)
	}
	if err := writeFileParts(mw, files); err != nil {
		return fmt.Errorf("build export form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/download_zip", &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read archive: %w", err)
	}
	return nil
}

// Health checks the service's /healthz endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

func (c *Client) streamForm(ctx context.Context, path string, form func(*multipart.Writer) error) (<-chan Chunk, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := form(mw); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.doStream(req)
}

func (c *Client) doStream(req *http.Request) (<-chan Chunk, error) {
	c.log.Debugw("starting stream", "path", req.URL.Path)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.URL.Path, err)
	}
	if resp.StatusCode != http.StatusOK {
		err := statusError(resp)
		resp.Body.Close()
		return nil, err
	}

	out := make(chan Chunk, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		buf := make([]byte, readBufSize)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				out <- Chunk{Text: string(buf[:n])}
			}
			if err != nil {
				if err != io.EOF {
					out <- Chunk{Err: err}
				}
				return
			}
		}
	}()
	return out, nil
}

func writeFileParts(w *multipart.Writer, files []Upload) error {
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.FileName)
		if err != nil {
			return err
		}
		if _, err := part.Write(f.Data); err != nil {
			return err
		}
	}
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
}
