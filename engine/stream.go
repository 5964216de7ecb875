package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spacemeshos/go-researchsync/tech"
)

// StdioPath selects the process standard streams instead of a file.
const StdioPath = "-"

type Config struct {
	// CommandPath receives rendered commands, one per line.
	CommandPath string `mapstructure:"command-path"`
	// OutputPath is read for technology lines.
	OutputPath string `mapstructure:"output-path"`
	// Force is the engine force whose technologies are synchronized.
	Force             string  `mapstructure:"force"`
	CommandsPerSecond float64 `mapstructure:"commands-per-second"`
	Burst             int     `mapstructure:"burst"`
}

func DefaultConfig() Config {
	return Config{
		CommandPath:       StdioPath,
		OutputPath:        StdioPath,
		Force:             "player",
		CommandsPerSecond: 20,
		Burst:             10,
	}
}

type Opt func(*Stream)

func WithLogger(logger *zap.Logger) Opt {
	return func(s *Stream) {
		s.logger = logger
	}
}

// Stream writes commands to the engine input and reads technology lines from
// the engine output.
type Stream struct {
	logger   *zap.Logger
	renderer *Renderer
	limiter  *rate.Limiter

	mu sync.Mutex
	w  io.Writer
}

func NewStream(w io.Writer, cfg Config, opts ...Opt) (*Stream, error) {
	renderer, err := NewRenderer(cfg.Force)
	if err != nil {
		return nil, err
	}
	limit := rate.Inf
	if cfg.CommandsPerSecond > 0 {
		limit = rate.Limit(cfg.CommandsPerSecond)
	}
	s := &Stream{
		logger:   zap.NewNop(),
		renderer: renderer,
		limiter:  rate.NewLimiter(limit, max(cfg.Burst, 1)),
		w:        w,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send renders cmd and writes it as one line. There is no acknowledgment.
func (s *Stream) Send(ctx context.Context, cmd Command) error {
	line, err := s.renderer.Render(cmd)
	if err != nil {
		return err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait to send %s: %w", cmd.Kind(), err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, line+"\n"); err != nil {
		return fmt.Errorf("write %s: %w", cmd.Kind(), err)
	}
	commandsSent.WithLabelValues(cmd.Kind()).Inc()
	s.logger.Debug("sent engine command", zap.String("kind", cmd.Kind()))
	return nil
}

// Listen reads r line by line and passes every technology line to handle.
// Other lines are dropped. It returns when r is exhausted or ctx is done.
// If r is an io.Closer it is closed once ctx is done, which unblocks the
// pending read.
func (s *Stream) Listen(ctx context.Context, r io.Reader, handle func(tech.Scan)) error {
	if c, ok := r.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() {
			if err := c.Close(); err != nil {
				s.logger.Debug("failed to close engine output", zap.Error(err))
			}
		})
		defer stop()
	}
	lines := make(chan string)
	done := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				done <- nil
				return
			}
		}
		done <- scanner.Err()
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-lines:
			scan, err := ParseLine(line)
			if err != nil {
				scanMalformed.Inc()
				s.logger.Debug("dropped engine line", zap.String("line", line), zap.Error(err))
				continue
			}
			scanAccepted.Inc()
			handle(scan)
		case err := <-done:
			if err != nil {
				return fmt.Errorf("read engine output: %w", err)
			}
			s.logger.Info("engine output closed")
			return nil
		}
	}
}

// OpenCommands opens the command sink named by cfg. Regular files are appended to.
func OpenCommands(fs afero.Fs, cfg Config) (io.WriteCloser, error) {
	if cfg.CommandPath == StdioPath || cfg.CommandPath == "" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := fs.OpenFile(cfg.CommandPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open engine commands %s: %w", cfg.CommandPath, err)
	}
	return f, nil
}

// OpenOutput opens the engine output named by cfg.
func OpenOutput(fs afero.Fs, cfg Config) (io.ReadCloser, error) {
	if cfg.OutputPath == StdioPath || cfg.OutputPath == "" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := fs.Open(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("open engine output %s: %w", cfg.OutputPath, err)
	}
	return f, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
