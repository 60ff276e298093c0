package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"causalboot/adapters/glm"
	"causalboot/adapters/resample"
	"causalboot/adapters/tabular"
	"causalboot/domain/causal"
	"causalboot/domain/core"
	"causalboot/internal/analysis"
	"causalboot/internal/bootstrap"
	"causalboot/internal/config"
	"causalboot/internal/report"
	"causalboot/internal/weights"
)

func main() {
	_ = godotenv.Load()

	var (
		input      = flag.String("input", "", "path to a .csv or .xlsx observation table")
		outcomeCol = flag.String("outcome", "", "outcome column name")
		exposure   = flag.String("exposure", "", "exposure column name")
		covariates = flag.String("covariates", "", "comma-separated covariate column names")
		continuous = flag.Bool("continuous", false, "treat the exposure as continuous")
		stabilize  = flag.Bool("stabilize", true, "use stabilized weights")
		truncate   = flag.Float64("truncate", 0, "weight truncation percentile (0 disables)")
		replicates = flag.Int("replicates", 0, "bootstrap replicate count (0 uses config)")
		method     = flag.String("method", "studentized", "interval method: percentile or studentized")
		pointMode  = flag.String("point", "apparent", "point estimate: apparent or replicate_mean")
		seed       = flag.Int64("seed", 0, "base RNG seed (0 uses config)")
		out        = flag.String("out", "", "write an HTML report to this path")
	)
	flag.Parse()

	if *input == "" || *outcomeCol == "" || *exposure == "" || *covariates == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("config: %v", err)
	}
	if *replicates == 0 {
		*replicates = cfg.Bootstrap.Replicates
	}
	if *seed == 0 {
		*seed = cfg.Bootstrap.Seed
	}

	table, err := tabular.NewReader(*input).Read()
	if err != nil {
		fatal("read dataset: %v", err)
	}

	exposureType := causal.ExposureBinary
	if *continuous {
		exposureType = causal.ExposureContinuous
	}

	var covariateKeys []core.ColumnKey
	for _, name := range strings.Split(*covariates, ",") {
		covariateKeys = append(covariateKeys, core.ColumnKey(strings.TrimSpace(name)))
	}

	req := analysis.Request{
		Outcome:    core.ColumnKey(*outcomeCol),
		Exposure:   core.ColumnKey(*exposure),
		Covariates: covariateKeys,
		Weight: weights.Options{
			Exposure:           exposureType,
			Stabilize:          *stabilize,
			TruncatePercentile: *truncate,
		},
		Alpha: cfg.Bootstrap.Alpha,
	}

	driver := bootstrap.NewDriver(resample.NewResampler(), resample.NewStreamFactory(*seed))
	service := analysis.NewService(glm.NewFitter(), driver)

	opts := bootstrap.DefaultOptions()
	opts.Replicates = *replicates
	opts.Workers = cfg.Bootstrap.Workers
	opts.Alpha = cfg.Bootstrap.Alpha
	opts.FailureThreshold = cfg.Bootstrap.FailureThreshold
	opts.Method = causal.IntervalMethod(*method)
	opts.PointMode = causal.PointEstimateMode(*pointMode)

	ctx := context.Background()

	// Weight diagnostics come from the apparent sample.
	vector, err := service.ComputeWeights(ctx, table, req)
	if err != nil {
		fatal("weights: %v", err)
	}
	diag := weights.Diagnose(vector)

	result, err := service.RunBootstrap(ctx, table, req, opts)
	if err != nil {
		fatal("bootstrap: %v", err)
	}

	fmt.Printf("point estimate: %.4f\n", result.PointEstimate)
	fmt.Printf("%.0f%% interval (%s): [%.4f, %.4f]\n",
		(1-result.Alpha)*100, result.Method, result.Lower, result.Upper)
	fmt.Printf("replicates used: %d, failed: %d\n", result.NUsed, result.NFailed)
	fmt.Printf("effective sample size: %.1f\n", diag.EffectiveSampleSize)

	if *out != "" {
		builder := report.NewBuilder(filepath.Base(*input))
		if err := os.WriteFile(*out, builder.HTML(result, diag), 0o644); err != nil {
			fatal("write report: %v", err)
		}
		fmt.Printf("report written to %s\n", *out)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
