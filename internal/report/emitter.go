package report

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gaugekit/gauge/internal/pkg/errors"
	"github.com/gaugekit/gauge/internal/pkg/logger"
)

// Emitter writes report targets.
type Emitter struct {
	log *logger.Logger
}

// NewEmitter creates an emitter. log may be nil.
func NewEmitter(log *logger.Logger) *Emitter {
	if log == nil {
		log = logger.Discard()
	}
	return &Emitter{log: log}
}

// Emit writes every target independently. Each file is written to a temp
// file in the target directory and renamed into place, so a failed target
// leaves no partial file and does not affect the others. Failures are
// joined; each is a ReportWriteError naming its target.
func (e *Emitter) Emit(ctx context.Context, rep *Report, targets []Target) error {
	var errs []error
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, errors.ReportWriteError(t.String(), err))
			continue
		}
		if err := e.emitOne(rep, t); err != nil {
			e.log.WithContext(ctx).WithError(err).Warn("Report target failed", "target", t.String())
			errs = append(errs, errors.ReportWriteError(t.String(), err))
			continue
		}
		e.log.WithContext(ctx).Debug("Report written", "target", t.String())
	}
	return stderrors.Join(errs...)
}

func (e *Emitter) emitOne(rep *Report, t Target) error {
	return WriteFile(t.Path, t.Format, rep)
}

// WriteFile renders rep in format and writes it atomically to path.
func WriteFile(path string, format Format, rep *Report) error {
	var render func(io.Writer, *Report) error
	switch format {
	case FormatJSON:
		render = WriteJSON
	case FormatHTML:
		render = WriteHTML
	case FormatXLSX:
		render = WriteXLSX
	case FormatCSV:
		render = WriteCSV
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
	if path == "" {
		return fmt.Errorf("empty path")
	}
	return writeAtomic(path, func(w io.Writer) error { return render(w, rep) })
}

// writeAtomic writes through a temp file in the same directory and renames
// it over path once the content is complete.
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err := write(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
