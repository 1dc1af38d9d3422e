package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

const historyLimitDefault = 20

var (
	historyLimitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "Limits number of results returned",
		Value: historyLimitDefault,
	}

	idFlag = &cli.StringFlag{
		Name:     "id",
		Usage:    "Stored evaluation id",
		Required: true,
	}

	historyCmd = &cli.Command{
		Name:            "history",
		Usage:           "List stored evaluations, newest first",
		UsageText:       "healthscore history --project demo --limit 5",
		HideHelpCommand: true,
		Action:          cmdHistory,
		Flags: []cli.Flag{
			projectFlag,
			historyLimitFlag,
		},
	}

	showCmd = &cli.Command{
		Name:            "show",
		Usage:           "Print a stored evaluation with its full result tree",
		UsageText:       "healthscore show --id 1b4e28ba-2fa1-11d2-883f-0016d3cca427",
		HideHelpCommand: true,
		Action:          cmdShow,
		Flags: []cli.Flag{
			idFlag,
		},
	}
)

func cmdHistory(ctx context.Context, cmd *cli.Command) error {
	s, err := getConfig(cmd).Store(ctx)
	if err != nil {
		return err
	}

	list, err := s.ListResults(ctx, cmd.String(projectFlag.Name), cmd.Int(historyLimitFlag.Name))
	if err != nil {
		return fmt.Errorf("listing results: %w", err)
	}
	return encode(cmd, list)
}

func cmdShow(ctx context.Context, cmd *cli.Command) error {
	s, err := getConfig(cmd).Store(ctx)
	if err != nil {
		return err
	}

	r, err := s.GetResult(ctx, cmd.String(idFlag.Name))
	if err != nil {
		return fmt.Errorf("getting result: %w", err)
	}
	return encode(cmd, r)
}
