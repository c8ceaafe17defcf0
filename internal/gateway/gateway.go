// ABOUTME: Transport loop for the lumen-gateway NDJSON protocol.
// ABOUTME: Reads one request per line from stdin, writes exactly one response per line to stdout.

package gateway

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/lumenlabs/lumen-gateway/internal/availability"
	"github.com/lumenlabs/lumen-gateway/internal/executor"
	"github.com/lumenlabs/lumen-gateway/internal/protocol"
	"github.com/lumenlabs/lumen-gateway/internal/session"
)

// maxLineBytes bounds a single request line. Content is capped at 10k
// characters anyway; this just keeps a runaway writer from exhausting memory.
// An oversized line is drained and answered with invalid_json rather than
// buffered or allowed to terminate the loop.
const maxLineBytes = 4 * 1024 * 1024

// Gateway wires the transport loop to the router and its collaborators.
type Gateway struct {
	sessions *session.Manager
	executor *executor.Executor
	checker  *availability.Checker
	logger   *slog.Logger
}

// New creates a Gateway.
func New(sessions *session.Manager, exec *executor.Executor, checker *availability.Checker, logger *slog.Logger) *Gateway {
	return &Gateway{
		sessions: sessions,
		executor: exec,
		checker:  checker,
		logger:   logger,
	}
}

// Run consumes requests from in until EOF, a shutdown command, or ctx
// cancellation, writing one response line per non-blank request line to out.
// Out carries only protocol responses; diagnostics go to the logger.
// All termination paths converge here: sessions are closed before return.
func (g *Gateway) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	defer g.sessions.Stop()

	writer := bufio.NewWriter(out)

	lines := make(chan inputLine)
	readErr := make(chan error, 1)
	go func() {
		reader := bufio.NewReaderSize(in, 64*1024)
		for {
			line, err := readLine(reader)
			if len(line.data) > 0 || line.oversized {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if err == io.EOF {
					err = nil
				}
				readErr <- err
				close(lines)
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// Signal path: the handler only tripped the context; cleanup
			// happens here, on the normal execution path.
			g.logger.Info("termination signal observed, shutting down")
			return nil

		case line, ok := <-lines:
			if !ok {
				// End of input is a graceful shutdown.
				if err := <-readErr; err != nil {
					g.logger.Error("reading input stream", "error", err)
				}
				g.logger.Info("input stream closed, shutting down")
				return nil
			}

			if line.oversized {
				g.logger.Debug("request line exceeds size limit", "max_bytes", maxLineBytes)
				if err := g.writeResponse(writer, protocol.ErrorResponse(protocol.ErrCodeInvalidJSON)); err != nil {
					g.logger.Error("writing response", "error", err)
					return err
				}
				continue
			}

			if len(bytes.TrimSpace(line.data)) == 0 {
				continue // blank lines produce no response
			}

			resp, shutdown := g.handleLine(ctx, line.data)
			if err := g.writeResponse(writer, resp); err != nil {
				g.logger.Error("writing response", "error", err)
				return err
			}

			if shutdown {
				g.logger.Info("shutdown command received")
				return nil
			}
		}
	}
}

// inputLine is one line of input. An oversized line arrives with no data;
// its remainder has already been drained from the stream.
type inputLine struct {
	data      []byte
	oversized bool
}

// readLine reads up to the next newline. A line longer than maxLineBytes is
// consumed to its end but not buffered, keeping the stream aligned on line
// boundaries so the requests after it still get served.
func readLine(r *bufio.Reader) (inputLine, error) {
	var line inputLine
	for {
		chunk, err := r.ReadSlice('\n')
		if !line.oversized {
			line.data = append(line.data, chunk...)
			if len(line.data) > maxLineBytes {
				line.data = nil
				line.oversized = true
			}
		}

		switch err {
		case nil:
			line.data = trimEOL(line.data)
			return line, nil
		case bufio.ErrBufferFull:
			continue
		default:
			line.data = trimEOL(line.data)
			return line, err
		}
	}
}

func trimEOL(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	return bytes.TrimSuffix(b, []byte("\r"))
}

// handleLine decodes and dispatches one request line. Every failure becomes
// a structured response; nothing escapes to terminate the loop.
func (g *Gateway) handleLine(ctx context.Context, line []byte) (*protocol.Response, bool) {
	req, err := protocol.DecodeRequest(line)
	if err != nil {
		g.logger.Debug("malformed request line", "error", err)
		return protocol.ErrorResponse(protocol.ErrCodeInvalidJSON), false
	}

	start := time.Now()
	resp := g.dispatch(ctx, req)
	g.logger.Debug("request handled",
		"command", string(req.Command),
		"ok", resp.OK,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return resp, req.Command == protocol.CmdShutdown
}

// writeResponse emits one response line and flushes it immediately, so the
// client never waits on a buffered reply and a crash cannot shear a line.
func (g *Gateway) writeResponse(w *bufio.Writer, resp *protocol.Response) error {
	data, err := resp.Encode()
	if err != nil {
		// A response failing to encode would corrupt framing; degrade to a
		// generic error line instead.
		g.logger.Error("encoding response", "error", err)
		data = []byte(`{"ok":false,"error":"execution_failed"}`)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}
