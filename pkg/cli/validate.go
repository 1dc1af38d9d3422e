package cli

import (
	"context"
	"fmt"

	"github.com/mchmarny/healthscore/pkg/hierarchy"
	"github.com/mchmarny/healthscore/pkg/strategy"
	"github.com/urfave/cli/v3"
)

var validateCmd = &cli.Command{
	Name:            "validate",
	Usage:           "Validate a hierarchy definition and print its shape",
	UsageText:       "healthscore validate --hierarchy kpi.yaml",
	HideHelpCommand: true,
	Action:          cmdValidate,
	Flags: []cli.Flag{
		hierarchyFlag,
	},
}

// ValidationReport summarizes a valid hierarchy definition.
type ValidationReport struct {
	Version    string                 `json:"version" yaml:"version"`
	Shape      hierarchy.Shape        `json:"shape" yaml:"shape"`
	Leaves     []string               `json:"leaves" yaml:"leaves"`
	Strategies []hierarchy.StrategyID `json:"strategies" yaml:"strategies"`
}

func cmdValidate(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	src := cmd.String(hierarchyFlag.Name)
	if src == "" {
		src = cfg.Config.Hierarchy
	}
	if src == "" {
		return fmt.Errorf("%w: --%s", errMissingArg, hierarchyFlag.Name)
	}

	h, err := loadHierarchy(ctx, src)
	if err != nil {
		return err
	}

	if _, err := strategy.NewRegistry().ResolveAll(h); err != nil {
		return fmt.Errorf("resolving strategies: %w", err)
	}

	return encode(cmd, &ValidationReport{
		Version:    h.Version,
		Shape:      h.Shape(),
		Leaves:     h.LeafTypes(),
		Strategies: h.Strategies(),
	})
}
