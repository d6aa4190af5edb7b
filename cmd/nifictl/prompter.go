package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/medalizaidi/nifi-jar-automation-option2/internal/reconcile"
	"github.com/medalizaidi/nifi-jar-automation-option2/pkg/logging"
)

// gatePhrase is what the operator must type, exactly, before the
// destructive phase runs. A bare "y" is too easy to produce by habit.
const gatePhrase = "DELETE AND REPLACE"

// InteractivePrompter asks the operator on the terminal and requires
// the gate phrase verbatim.
type InteractivePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

var _ reconcile.Confirmer = (*InteractivePrompter)(nil)

func NewInteractivePrompter() *InteractivePrompter {
	return NewInteractivePrompterWithIO(os.Stdin, os.Stderr)
}

func NewInteractivePrompterWithIO(in io.Reader, out io.Writer) *InteractivePrompter {
	return &InteractivePrompter{in: bufio.NewReader(in), out: out}
}

// Confirm implements reconcile.Confirmer.
func (p *InteractivePrompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, prompt)
	fmt.Fprintf(p.out, "Type %q to proceed, anything else to cancel: ", gatePhrase)

	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return strings.TrimSpace(line) == gatePhrase, nil
}

// AutoApprovePrompter approves without asking, for scheduled runs that
// opted in with --yes.
type AutoApprovePrompter struct {
	logger *logging.Logger
}

var _ reconcile.Confirmer = (*AutoApprovePrompter)(nil)

func NewAutoApprovePrompter(logger *logging.Logger) *AutoApprovePrompter {
	if logger == nil {
		logger = logging.Default()
	}
	return &AutoApprovePrompter{logger: logger}
}

// Confirm implements reconcile.Confirmer.
func (p *AutoApprovePrompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	p.logger.Warn("auto-approving destructive operation", "prompt", prompt)
	return true, nil
}

// NonInteractivePrompter declines every request. It is the fallback
// when there is no terminal and --yes was not given, so an unattended
// run can never destroy a flow by accident.
type NonInteractivePrompter struct {
	logger *logging.Logger
}

var _ reconcile.Confirmer = (*NonInteractivePrompter)(nil)

func NewNonInteractivePrompter(logger *logging.Logger) *NonInteractivePrompter {
	if logger == nil {
		logger = logging.Default()
	}
	return &NonInteractivePrompter{logger: logger}
}

// Confirm implements reconcile.Confirmer.
func (p *NonInteractivePrompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	p.logger.Warn("no terminal and --yes not set; declining", "prompt", prompt)
	return false, nil
}

// newConfirmer picks the prompter for this invocation.
func newConfirmer(logger *logging.Logger) reconcile.Confirmer {
	if autoConfirm {
		return NewAutoApprovePrompter(logger)
	}
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return NewInteractivePrompter()
	}
	return NewNonInteractivePrompter(logger)
}
