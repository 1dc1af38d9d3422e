package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mchmarny/healthscore/pkg/config"
	"github.com/mchmarny/healthscore/pkg/engine"
	"github.com/mchmarny/healthscore/pkg/hierarchy"
	"github.com/mchmarny/healthscore/pkg/measurement"
	"github.com/mchmarny/healthscore/pkg/metrics"
	"github.com/mchmarny/healthscore/pkg/net"
	"github.com/mchmarny/healthscore/pkg/result"
	"github.com/mchmarny/healthscore/pkg/transform"
	"github.com/urfave/cli/v3"
)

var (
	hierarchyFlag = &cli.StringFlag{
		Name:    "hierarchy",
		Aliases: []string{"H"},
		Usage:   "Hierarchy definition file or URL (defaults to config)",
	}

	measurementsFlag = &cli.StringSliceFlag{
		Name:     "measurements",
		Aliases:  []string{"m"},
		Usage:    "Measurement list file or URL (repeatable)",
		Required: true,
	}

	strictFlag = &cli.BoolFlag{
		Name:  "strict",
		Usage: "Fail a parent when any child fails (overrides config)",
	}

	parallelFlag = &cli.BoolFlag{
		Name:  "parallel",
		Usage: "Evaluate sibling subtrees concurrently (overrides config)",
	}

	duplicatesFlag = &cli.StringFlag{
		Name:  "duplicates",
		Usage: "Duplicate measurement policy [first, last, reject] (overrides config)",
	}

	saveFlag = &cli.BoolFlag{
		Name:  "save",
		Usage: "Store the result in the local history",
	}

	projectFlag = &cli.StringFlag{
		Name:  "project",
		Usage: "Project name the result is stored under",
	}

	evalCmd = &cli.Command{
		Name:    "eval",
		Aliases: []string{"e"},
		Usage:   "Evaluate measurements against a hierarchy definition",
		UsageText: `healthscore eval --hierarchy kpi.yaml -m scores.json                       # lenient
   healthscore eval -H kpi.yaml -m a.json -m b.yaml --strict --save --project demo`,
		HideHelpCommand: true,
		Action:          cmdEval,
		Flags: []cli.Flag{
			hierarchyFlag,
			measurementsFlag,
			strictFlag,
			parallelFlag,
			duplicatesFlag,
			saveFlag,
			projectFlag,
		},
	}
)

func cmdEval(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	src := cmd.String(hierarchyFlag.Name)
	if src == "" {
		src = cfg.Config.Hierarchy
	}
	if src == "" {
		return fmt.Errorf("%w: --%s", errMissingArg, hierarchyFlag.Name)
	}

	save := cmd.Bool(saveFlag.Name)
	project := cmd.String(projectFlag.Name)
	if save && project == "" {
		return fmt.Errorf("%w: --%s is required with --%s", errMissingArg, projectFlag.Name, saveFlag.Name)
	}

	h, err := loadHierarchy(ctx, src)
	if err != nil {
		return err
	}

	list, err := loadMeasurements(ctx, cmd.StringSlice(measurementsFlag.Name)...)
	if err != nil {
		return err
	}

	c := *cfg.Config
	if cmd.IsSet(strictFlag.Name) {
		c.Strict = cmd.Bool(strictFlag.Name)
	}
	if cmd.IsSet(parallelFlag.Name) {
		c.Parallel = cmd.Bool(parallelFlag.Name)
	}
	if cmd.IsSet(duplicatesFlag.Name) {
		c.Duplicates = cmd.String(duplicatesFlag.Name)
	}

	opts, err := engineOptions(&c)
	if err != nil {
		return err
	}

	res, err := evaluate(ctx, h, list, opts)
	if err != nil {
		return err
	}

	if save {
		s, err := cfg.Store(ctx)
		if err != nil {
			return err
		}
		e, err := s.SaveResult(ctx, project, res)
		if err != nil {
			return fmt.Errorf("saving result: %w", err)
		}
		slog.Info("result saved", "project", project, "id", e.ID)
	}

	return encode(cmd, res)
}

func loadHierarchy(ctx context.Context, src string) (*hierarchy.Hierarchy, error) {
	b, err := net.ReadSource(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("reading hierarchy: %w", err)
	}
	h, err := hierarchy.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parsing hierarchy %s: %w", src, err)
	}
	return h, nil
}

func loadMeasurements(ctx context.Context, srcs ...string) ([]*measurement.Measurement, error) {
	list := make([]*measurement.Measurement, 0)
	for _, src := range srcs {
		b, err := net.ReadSource(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("reading measurements: %w", err)
		}
		items, err := measurement.Parse(b)
		if err != nil {
			return nil, fmt.Errorf("parsing measurements %s: %w", src, err)
		}
		list = append(list, items...)
	}
	return list, nil
}

// engineOptions maps the app config onto evaluation options.
func engineOptions(c *config.Config) (engine.Options, error) {
	policy, err := measurement.ParseDuplicatePolicy(c.Duplicates)
	if err != nil {
		return engine.Options{}, err
	}

	transforms := transform.NewRegistry()
	for _, t := range c.TransformTypes {
		if err := transforms.Register(t, transform.TechnicalLag); err != nil {
			return engine.Options{}, fmt.Errorf("registering transform for %s: %w", t, err)
		}
	}

	return engine.Options{
		Strict:     c.Strict,
		Parallel:   c.Parallel,
		Duplicates: policy,
		Transforms: transforms,
	}, nil
}

// evaluate runs the engine and records metrics for the call.
func evaluate(ctx context.Context, h *hierarchy.Hierarchy, list []*measurement.Measurement, opts engine.Options) (*result.Hierarchy, error) {
	start := time.Now()
	res, err := engine.Evaluate(ctx, h, list, opts)
	metrics.Default.Observe(res, time.Since(start), opts.Strict)
	if err != nil {
		return nil, fmt.Errorf("evaluating hierarchy: %w", err)
	}
	return res, nil
}
