package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
)

var (
	yesFlag = &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Skip the confirmation prompt",
	}

	resetCmd = &cli.Command{
		Name:            "reset",
		Usage:           "Delete stored evaluations (all, or one project)",
		UsageText:       "healthscore reset --project demo",
		HideHelpCommand: true,
		Action:          cmdReset,
		Flags: []cli.Flag{
			projectFlag,
			yesFlag,
		},
	}
)

func cmdReset(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)
	project := cmd.String(projectFlag.Name)

	if !cmd.Bool(yesFlag.Name) {
		scope := "all projects"
		if project != "" {
			scope = "project " + project
		}
		ok, err := confirm(os.Stdin, cfg.Out, fmt.Sprintf("This will permanently delete stored results for %s", scope))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cfg.Out, "Aborted.")
			return nil
		}
	}

	s, err := cfg.Store(ctx)
	if err != nil {
		return err
	}

	n, err := s.DeleteResults(ctx, project)
	if err != nil {
		return fmt.Errorf("deleting results: %w", err)
	}

	slog.Info("results deleted", "project", project, "count", n)
	return nil
}

func confirm(in io.Reader, out io.Writer, msg string) (bool, error) {
	fmt.Fprintln(out, msg)
	fmt.Fprint(out, "Are you sure? [y/N]: ")

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading input: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(answer)) == "y", nil
}
