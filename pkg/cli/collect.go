package cli

import (
	"context"
	"fmt"

	"github.com/google/go-github/v83/github"
	ghadapter "github.com/mchmarny/healthscore/pkg/adapter/github"
	"github.com/mchmarny/healthscore/pkg/auth"
	"github.com/mchmarny/healthscore/pkg/net"
	"github.com/urfave/cli/v3"
)

const commitLimitDefault = 100

var (
	ownerFlag = &cli.StringFlag{
		Name:     "owner",
		Usage:    "GitHub repository owner (user or org)",
		Required: true,
	}

	repoFlag = &cli.StringFlag{
		Name:     "repo",
		Usage:    "GitHub repository name",
		Required: true,
	}

	commitLimitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "Number of recent commits to inspect",
		Value: commitLimitDefault,
	}

	collectCmd = &cli.Command{
		Name:            "collect",
		Usage:           "Collect raw measurements from external tools",
		HideHelpCommand: true,
		Commands: []*cli.Command{
			{
				Name:            "github",
				Usage:           "Commit signing and contributor reputation measurements",
				UsageText:       "healthscore collect github --owner acme --repo widget > github.json",
				HideHelpCommand: true,
				Action:          cmdCollectGitHub,
				Flags: []cli.Flag{
					ownerFlag,
					repoFlag,
					commitLimitFlag,
				},
			},
		},
	}
)

func cmdCollectGitHub(ctx context.Context, cmd *cli.Command) error {
	token, err := auth.GetToken()
	if err != nil {
		return fmt.Errorf("getting GitHub token (run auth first): %w", err)
	}

	client := github.NewClient(net.GetOAuthClient(ctx, token))
	a, err := ghadapter.New(client, cmd.String(ownerFlag.Name), cmd.String(repoFlag.Name))
	if err != nil {
		return err
	}

	list, err := a.Collect(ctx, cmd.Int(commitLimitFlag.Name))
	if err != nil {
		return fmt.Errorf("collecting measurements: %w", err)
	}

	return encode(cmd, list)
}
