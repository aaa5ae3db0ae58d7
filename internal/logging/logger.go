package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"

	"buffwatch/internal/config"

	"github.com/charmbracelet/lipgloss"
)

var (
	stringPattern = regexp.MustCompile(`"[^"\n]*"`)
	keyPattern    = regexp.MustCompile(`\b[a-z_]+=`)
	numberPattern = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
)

// New builds a logger for configured sinks and returns a cleanup function.
// Console output goes to stderr; stdout belongs to the surface renderer.
// Params: cfg contains console/file sink settings.
// Returns: slog logger, cleanup callback, and setup error.
func New(cfg config.LogConfig) (*slog.Logger, func(), error) {
	var (
		handlers []slog.Handler
		closers  []io.Closer
	)

	if cfg.Console.Enabled {
		handler, err := buildConsoleHandler(cfg.Console, os.Stderr, lipgloss.NewRenderer(os.Stderr))
		if err != nil {
			return nil, nil, fmt.Errorf("build console handler: %w", err)
		}
		handlers = append(handlers, handler)
	}

	if cfg.File.Enabled {
		handler, closer, err := buildFileHandler(cfg.File)
		if err != nil {
			return nil, nil, fmt.Errorf("build file handler: %w", err)
		}
		handlers = append(handlers, handler)
		closers = append(closers, closer)
	}

	if len(handlers) == 0 {
		return nil, nil, fmt.Errorf("no log sinks enabled")
	}

	closeFn := func() {
		for _, closer := range closers {
			_ = closer.Close()
		}
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0]), closeFn, nil
	}

	return slog.New(teeHandler{handlers: handlers}), closeFn, nil
}

// buildConsoleHandler creates a console sink handler.
// Params: sink settings, destination writer, and lipgloss renderer bound to it.
// Returns: configured slog handler or error.
func buildConsoleHandler(sink config.LogSinkConfig, dst io.Writer, renderer *lipgloss.Renderer) (slog.Handler, error) {
	level, err := parseLevel(sink.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return attr
		},
	}

	switch sink.Format {
	case "line":
		return slog.NewTextHandler(newColorLineWriter(dst, renderer), opts), nil
	case "json":
		return slog.NewJSONHandler(dst, opts), nil
	default:
		return nil, fmt.Errorf("unsupported console format %q", sink.Format)
	}
}

// buildFileHandler creates a file sink handler.
// Params: sink contains path, level, and format.
// Returns: handler, file closer, and error.
func buildFileHandler(sink config.LogSinkConfig) (slog.Handler, io.Closer, error) {
	level, err := parseLevel(sink.Level)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.OpenFile(sink.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open file %q: %w", sink.Path, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch sink.Format {
	case "line":
		return slog.NewTextHandler(file, opts), file, nil
	case "json":
		return slog.NewJSONHandler(file, opts), file, nil
	default:
		_ = file.Close()
		return nil, nil, fmt.Errorf("unsupported file format %q", sink.Format)
	}
}

// parseLevel converts configuration level into slog.Level.
// Params: value is lower-case log level name.
// Returns: slog level or error.
func parseLevel(value string) (slog.Level, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported level %q", value)
	}
}

// teeHandler fan-outs one record to multiple handlers.
// Params: handlers list to call.
// Returns: composed handler behavior.
type teeHandler struct {
	handlers []slog.Handler
}

// Enabled checks if at least one downstream handler is enabled.
func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range t.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle forwards the record to all enabled downstream handlers.
// Params: ctx context and record to write.
// Returns: first error if any sink fails.
func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range t.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}

		if err := handler.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

// WithAttrs applies attrs to each downstream handler.
func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, 0, len(t.handlers))
	for _, handler := range t.handlers {
		next = append(next, handler.WithAttrs(attrs))
	}
	return teeHandler{handlers: next}
}

// WithGroup applies group to each downstream handler.
func (t teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, 0, len(t.handlers))
	for _, handler := range t.handlers {
		next = append(next, handler.WithGroup(name))
	}
	return teeHandler{handlers: next}
}

// palette holds lipgloss styles of the console sink.
type palette struct {
	debug  lipgloss.Style
	info   lipgloss.Style
	warn   lipgloss.Style
	err    lipgloss.Style
	str    lipgloss.Style
	key    lipgloss.Style
	number lipgloss.Style
}

func newPalette(renderer *lipgloss.Renderer) palette {
	return palette{
		debug:  renderer.NewStyle().Foreground(lipgloss.Color("8")),
		info:   renderer.NewStyle().Foreground(lipgloss.Color("4")),
		warn:   renderer.NewStyle().Foreground(lipgloss.Color("3")),
		err:    renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		str:    renderer.NewStyle().Foreground(lipgloss.Color("2")),
		key:    renderer.NewStyle().Foreground(lipgloss.Color("6")),
		number: renderer.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

// colorLineWriter styles console line logs by level and token class.
// Params: dst is output writer.
// Returns: bytes written or write error.
type colorLineWriter struct {
	dst     io.Writer
	palette palette
}

func newColorLineWriter(dst io.Writer, renderer *lipgloss.Renderer) *colorLineWriter {
	return &colorLineWriter{dst: dst, palette: newPalette(renderer)}
}

// Write styles one line according to level markers.
// Params: payload is rendered slog line.
// Returns: bytes written or write error.
func (w *colorLineWriter) Write(payload []byte) (int, error) {
	line := strings.TrimSuffix(string(payload), "\n")
	base, ok := w.levelStyle(line)
	if !ok {
		return w.dst.Write(payload)
	}

	rendered := w.highlightLineTokens(line, base) + "\n"
	n, err := io.WriteString(w.dst, rendered)
	if n > len(payload) {
		n = len(payload)
	}
	return n, err
}

// levelStyle maps rendered level token to base style.
func (w *colorLineWriter) levelStyle(line string) (lipgloss.Style, bool) {
	switch {
	case strings.Contains(line, "level=DEBUG"):
		return w.palette.debug, true
	case strings.Contains(line, "level=INFO"):
		return w.palette.info, true
	case strings.Contains(line, "level=WARN"):
		return w.palette.warn, true
	case strings.Contains(line, "level=ERROR"):
		return w.palette.err, true
	default:
		return lipgloss.Style{}, false
	}
}

type styleRegion struct {
	start int
	end   int
	style lipgloss.Style
}

type weightedStyleRegion struct {
	styleRegion
	priority int
}

// highlightLineTokens styles tokens over line while plain segments keep the level style.
// Params: line rendered line text; base level style.
// Returns: styled line text.
func (w *colorLineWriter) highlightLineTokens(line string, base lipgloss.Style) string {
	regions := w.collectStyleRegions(line)

	var builder strings.Builder
	builder.Grow(len(line) + len(regions)*12)

	cursor := 0
	for _, region := range regions {
		if region.start < cursor || region.start >= region.end || region.end > len(line) {
			continue
		}
		if region.start > cursor {
			builder.WriteString(base.Render(line[cursor:region.start]))
		}
		builder.WriteString(region.style.Render(line[region.start:region.end]))
		cursor = region.end
	}
	if cursor < len(line) {
		builder.WriteString(base.Render(line[cursor:]))
	}
	return builder.String()
}

// collectStyleRegions extracts non-overlapping token regions for strings, keys, and numbers.
// Params: line rendered line text.
// Returns: sorted non-overlapping regions.
func (w *colorLineWriter) collectStyleRegions(line string) []styleRegion {
	weighted := make([]weightedStyleRegion, 0, 32)
	weighted = append(weighted, findPatternRegions(line, stringPattern, w.palette.str, 1)...)
	weighted = append(weighted, findPatternRegions(line, keyPattern, w.palette.key, 2)...)
	weighted = append(weighted, findPatternRegions(line, numberPattern, w.palette.number, 3)...)

	sort.SliceStable(weighted, func(i, j int) bool {
		if weighted[i].start == weighted[j].start {
			if weighted[i].priority == weighted[j].priority {
				return weighted[i].end > weighted[j].end
			}
			return weighted[i].priority < weighted[j].priority
		}
		return weighted[i].start < weighted[j].start
	})

	out := make([]styleRegion, 0, len(weighted))
	cursor := 0
	for _, region := range weighted {
		if region.start < cursor {
			continue
		}
		out = append(out, region.styleRegion)
		cursor = region.end
	}
	return out
}

// findPatternRegions finds regexp regions and tags them with style and priority.
// Params: line rendered text; pattern regexp; style; priority overlap order (lower first).
// Returns: list of matched style regions with priority.
func findPatternRegions(
	line string,
	pattern *regexp.Regexp,
	style lipgloss.Style,
	priority int,
) []weightedStyleRegion {
	indices := pattern.FindAllStringIndex(line, -1)
	out := make([]weightedStyleRegion, 0, len(indices))
	for _, indexPair := range indices {
		out = append(out, weightedStyleRegion{
			styleRegion: styleRegion{
				start: indexPair[0],
				end:   indexPair[1],
				style: style,
			},
			priority: priority,
		})
	}
	return out
}
