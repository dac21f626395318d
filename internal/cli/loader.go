package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/litelog/internal/engine"
	"github.com/roach88/litelog/internal/frontend"
	"github.com/roach88/litelog/internal/store"
)

// LoadProgram reads a program from path.
//
// A directory or a .cue file is loaded as a CUE program file; any other
// file is Datalog rule text, which must declare its relations with
// Decl ... bound [...].
func LoadProgram(path string) (*frontend.Program, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "program not found", err)
	}
	if info.IsDir() || filepath.Ext(path) == ".cue" {
		return frontend.LoadProgram(path)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read program", err)
	}
	rules, err := frontend.ParseRules(string(src))
	if err != nil {
		return nil, err
	}
	return &frontend.Program{
		Name:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Relations: rules.Relations,
		Clauses:   rules.Clauses,
	}, nil
}

// session is an open store with an engine over it.
type session struct {
	store  *store.Store
	engine *engine.Engine
	logger *zap.Logger
}

// openSession opens the --db store and creates an engine configured from
// the global flags plus extra.
func openSession(ctx context.Context, opts *RootOptions, extra ...engine.Option) (*session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	engOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.RunIDs != nil {
		engOpts = append(engOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	eng, err := engine.New(ctx, st, append(engOpts, extra...)...)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create engine", err)
	}
	return &session{store: st, engine: eng, logger: logger}, nil
}

// load opens a session and applies the program at path.
func load(ctx context.Context, opts *RootOptions, path string, extra ...engine.Option) (*session, *frontend.Program, error) {
	p, err := LoadProgram(path)
	if err != nil {
		return nil, nil, err
	}
	s, err := openSession(ctx, opts, extra...)
	if err != nil {
		return nil, nil, err
	}
	if err := p.Apply(ctx, s.engine); err != nil {
		s.Close()
		return nil, nil, err
	}
	s.logger.Debug("program loaded",
		zap.String("program", p.Name),
		zap.Int("relations", len(p.Relations)),
		zap.Int("clauses", len(p.Clauses)),
	)
	return s, p, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", zap.Error(err))
	}
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// commandError reports err unless it already carries an exit code.
func commandError(f *OutputFormatter, message string, err error) error {
	if _, ok := err.(*ExitError); ok {
		if outErr := f.Error("COMMAND", err.Error(), nil); outErr != nil {
			return outErr
		}
		return err
	}
	return f.Fail(message, err)
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
