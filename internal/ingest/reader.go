package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"buffwatch/internal/domain"
)

const maxLineBytes = 4 << 20

// Reader feeds newline-delimited JSON frames into sink.
type Reader struct {
	source io.Reader
	sink   FrameSink
	logger *slog.Logger
}

// NewReader creates line-oriented frame reader.
// Params: byte source, frame sink, and optional logger.
// Returns: reader ready to Run.
func NewReader(source io.Reader, sink FrameSink, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{source: source, sink: sink, logger: logger}
}

// Run decodes lines until EOF or context cancellation.
// Params: context checked between lines.
// Returns: nil on EOF, context error, read error, or sink error.
func (r *Reader) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.source)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		frame, err := domain.DecodeFrame(raw)
		if err != nil {
			r.logger.Warn("frame dropped", "line", line, "error", err.Error())
			continue
		}
		if err := r.sink.Push(frame); err != nil {
			return fmt.Errorf("push frame at line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read frames: %w", err)
	}
	return nil
}
