package cli

import (
	"context"
	"fmt"

	"github.com/mchmarny/healthscore/pkg/auth"
	"github.com/urfave/cli/v3"
)

var (
	tokenFlag = &cli.StringFlag{
		Name:  "token",
		Usage: "GitHub personal access token to store in the OS keychain",
	}

	logoutFlag = &cli.BoolFlag{
		Name:  "delete",
		Usage: "Remove the stored token",
	}

	authCmd = &cli.Command{
		Name:            "auth",
		Usage:           "Store the GitHub token used by collect",
		UsageText:       "healthscore auth --token ghp_xxx",
		HideHelpCommand: true,
		Action:          cmdAuth,
		Flags: []cli.Flag{
			tokenFlag,
			logoutFlag,
		},
	}
)

func cmdAuth(_ context.Context, cmd *cli.Command) error {
	out := getConfig(cmd).Out

	if cmd.Bool(logoutFlag.Name) {
		if err := auth.DeleteToken(); err != nil {
			return fmt.Errorf("deleting token: %w", err)
		}
		fmt.Fprintln(out, "Token removed from OS keychain")
		return nil
	}

	token := cmd.String(tokenFlag.Name)
	if token == "" {
		return fmt.Errorf("%w: --%s", errMissingArg, tokenFlag.Name)
	}

	if err := auth.SaveToken(token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	fmt.Fprintln(out, "Token saved to OS keychain")
	return nil
}
