package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stylist/config"
	"stylist/css"
	"stylist/state"
	"stylist/style"
)

type source struct {
	name string
	text string
}

func readSource(name string) (source, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(os.Stdin)
		name = "STDIN"
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return source{}, fmt.Errorf("unable to read style source '%s': %w", name, err)
	}
	return source{name: name, text: string(data)}, nil
}

// classPrefix picks prefix for generated class: explicit flag, configured
// prefix or source file name without extension.
func classPrefix(flag, configured, name string) string {
	switch {
	case flag != "":
		return flag
	case configured != "":
		return configured
	case name == "STDIN":
		return ""
	}
	return strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
}

// compileSources compiles every source concurrently. Failed sources do not
// stop the rest, all errors are combined. On error styles compiled so far are
// released, so nothing is left mounted for a failed run.
func compileSources(ctx context.Context, reg *style.Registry, names []string, prefix, configured string, bindings map[string]string, log *zap.Logger) ([]*style.Style, []source, error) {
	var (
		styles  = make([]*style.Style, len(names))
		sources = make([]source, len(names))
		errs    = make([]error, len(names))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := readSource(name)
			if err != nil {
				errs[i] = err
				return nil
			}
			sources[i] = src

			s, err := reg.Compile(src.text, classPrefix(prefix, configured, src.name), bindings)
			if err != nil {
				if pe := (*css.ParseError)(nil); errors.As(err, &pe) {
					log.Debug("Style source rejected", zap.String("source", src.name), zap.Stringer("kind", pe.Kind), zap.Stringer("pos", pe.Pos))
				}
				errs[i] = fmt.Errorf("%s: %w", src.name, err)
				return nil
			}
			styles[i] = s
			log.Debug("Style compiled", zap.String("source", src.name), zap.String("class", s.ClassName()))
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = multierr.Combine(errs...)
	}
	if err != nil {
		for _, s := range styles {
			if s != nil {
				s.Release()
			}
		}
		return nil, nil, err
	}
	return styles, sources, nil
}

func runCompile(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("compile")

	names := cmd.Args().Slice()
	if len(names) == 0 {
		return errors.New("no style sources specified")
	}

	format := config.OutputFormat(cmd.String("format"))
	switch format {
	case "":
		format = env.Cfg.Output.Format
	case config.OutputCSS, config.OutputHTML:
	default:
		return fmt.Errorf("unsupported output format '%s'", format)
	}
	if db := cmd.String("db"); db != "" {
		env.Cfg.Output.SQLitePath = db
	}
	if err := env.PrepareStyles(); err != nil {
		return fmt.Errorf("unable to prepare style registry: %w", err)
	}

	styles, sources, err := compileSources(ctx, env.Registry, names, cmd.String("prefix"), env.Cfg.Styles.ClassPrefix, cmd.StringMap("var"), log)
	if err != nil {
		return err
	}

	// compiled styles stay mounted until the document is written
	defer func() {
		if env.Cfg.Output.SQLitePath != "" {
			// keep stored rows, releasing would delete them
			return
		}
		for _, s := range styles {
			s.Release()
		}
	}()

	out := io.Writer(os.Stdout)
	if fname := cmd.String("output"); fname != "" {
		f, err := os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer f.Close()
		out = f
	}

	switch format {
	case config.OutputHTML:
		for i, s := range styles {
			env.Document.AddElement("div", s.ClassName(), sources[i].name)
		}
		if _, err := env.Document.WriteTo(out); err != nil {
			return fmt.Errorf("unable to write document: %w", err)
		}
	default:
		if _, err := io.WriteString(out, env.Document.CSS()+"\n"); err != nil {
			return fmt.Errorf("unable to write stylesheet: %w", err)
		}
	}

	log.Info("Compiled styles", zap.Int("sources", len(names)), zap.Int("classes", env.Registry.Len()), zap.Duration("elapsed", env.Uptime()))
	return nil
}

func runAST(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	if cmd.Args().Len() != 1 {
		return errors.New("exactly one style source expected")
	}
	src, err := readSource(cmd.Args().First())
	if err != nil {
		return err
	}
	ast, err := css.NewParser(env.Log).Parse(src.text, cmd.StringMap("var"))
	if err != nil {
		return fmt.Errorf("%s: %w", src.name, err)
	}
	_, err = io.WriteString(os.Stdout, ast.Dump())
	return err
}
