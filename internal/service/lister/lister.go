package lister

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"go.uber.org/zap/zapcore"

	"github.com/cogniteev/easy-upgrade/internal/domain/release"
	"github.com/cogniteev/easy-upgrade/internal/logger"
	"github.com/cogniteev/easy-upgrade/internal/service/common"
)

// Options are inputs accepted by the list entry point.
type Options struct {
	common.Options

	// All lists every release instead of the outdated ones only.
	All bool
	// Out receives one line per release, os.Stdout when nil.
	Out io.Writer
	// NoColor disables colors even on a terminal.
	NoColor bool
}

// printer renders package lines.
type printer struct {
	out       io.Writer
	ref       *color.Color
	candidate *color.Color
	installed *color.Color
	missing   *color.Color
}

func newPrinter(out io.Writer, noColor bool) *printer {
	p := &printer{
		out:       out,
		ref:       color.New(color.Bold),
		candidate: color.New(color.FgGreen),
		installed: color.New(color.FgCyan),
		missing:   color.New(color.FgYellow),
	}

	if noColor {
		for _, c := range []*color.Color{p.ref, p.candidate, p.installed, p.missing} {
			c.DisableColor()
		}
	}

	return p
}

// Format renders pkg as "provider:release: candidate X, currently installed: Y"
// with "no candidate" and "not installed" for absent versions.
func (p *printer) Format(pkg release.Package) string {
	line := p.ref.Sprint(pkg.Reference()) + ": "

	if pkg.Versions.Candidate.IsNone() {
		line += p.missing.Sprint("no candidate")
	} else {
		line += "candidate " + p.candidate.Sprint(pkg.Versions.Candidate.String())
	}

	if pkg.Versions.Installed.IsNone() {
		line += ", " + p.missing.Sprint("not installed")
	} else {
		line += ", currently installed: " + p.installed.Sprint(pkg.Versions.Installed.String())
	}

	return line
}

// Run lists outdated releases, or every release with All. A release whose
// versions cannot be resolved is logged and listing goes on; the errors are
// returned together at the end.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "list")

	// Informational logs would interleave with the listing.
	if logger.Level() > zapcore.DebugLevel {
		ctx = logger.WithMinLevel(ctx, zapcore.WarnLevel)
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	session, err := common.Open(ctx, &opts.Options)
	if err != nil {
		return err
	}

	defer session.Close(ctx)

	packages := session.Coordinator.ListOutdatedPackages(ctx)
	if opts.All {
		packages = session.Coordinator.ListPackagesVersions(ctx)
	}

	p := newPrinter(out, opts.NoColor || color.NoColor)

	var errs []error

	for pkg, err := range packages {
		if err != nil {
			logger.ErrorKV(ctx, "Could not resolve versions", "release", pkg.Reference(), "error", err)
			errs = append(errs, err)

			continue
		}

		if _, err = fmt.Fprintln(out, p.Format(pkg)); err != nil {
			return fmt.Errorf("write listing: %w", err)
		}
	}

	return errors.Join(errs...)
}
