// Copyright the s3-concat authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/urfave/cli/v2"

	s3concat "github.com/s3-utils/s3-concat"
)

func main() {
	ctx := s3concat.SetupLogger(context.Background())
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		cleanup         bool
		dryRun          bool
		quiet           bool
		splitOversize   bool
		region          string
		logLevel        int
		concurrency     int
		partConcurrency int
	)

	app := &cli.App{
		Name:      "s3concat",
		Usage:     "concatenate S3 objects remotely using flexible patterns",
		ArgsUsage: "s3://bucket/prefix source-pattern target-pattern",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "cleanup",
				Aliases:     []string{"c"},
				Usage:       "remove source files after concatenation",
				Destination: &cleanup,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Aliases:     []string{"d"},
				Usage:       "only print out the calculated writes",
				Destination: &dryRun,
			},
			&cli.BoolFlag{
				Name:        "quiet",
				Aliases:     []string{"q"},
				Usage:       "only print errors during execution",
				Destination: &quiet,
			},
			&cli.BoolFlag{
				Name:        "split-oversize",
				Usage:       "write numbered .partN targets when a target exceeds the part limit",
				Destination: &splitOversize,
			},
			&cli.StringFlag{
				Name:        "region",
				Usage:       "region to initialize the sdk",
				Destination: &region,
				EnvVars:     []string{"AWS_DEFAULT_REGION", "AWS_REGION"},
			},
			&cli.IntFlag{
				Name:        "log-level",
				Value:       1,
				Usage:       "zerolog level (0 debug, 1 info, 2 warn, 3 error)",
				Destination: &logLevel,
			},
			&cli.IntFlag{
				Name:        "concurrency",
				Value:       20,
				Usage:       "concurrent target uploads",
				Destination: &concurrency,
			},
			&cli.IntFlag{
				Name:        "part-concurrency",
				Value:       50,
				Usage:       "concurrent part copies per upload",
				Destination: &partConcurrency,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				cli.ShowAppHelp(c)
				return fmt.Errorf("bucket, source pattern and target pattern are required")
			}
			if quiet {
				logLevel = 3
			}
			runCtx := s3concat.SetLogLevel(ctx, logLevel)

			bucket, prefix := s3concat.ExtractBucketAndPath(c.Args().Get(0))
			if bucket == "" {
				return fmt.Errorf("unable to parse bucket from %q", c.Args().Get(0))
			}

			cfg, err := config.LoadDefaultConfig(runCtx, config.WithRegion(region))
			if err != nil {
				return err
			}
			svc := s3.NewFromConfig(cfg)
			client := s3concat.NewConcatClient(svc)

			opts := &s3concat.ConcatOptions{
				Bucket:          bucket,
				Prefix:          prefix,
				SourcePattern:   c.Args().Get(1),
				TargetPattern:   c.Args().Get(2),
				Cleanup:         cleanup,
				SplitOversize:   splitOversize,
				Concurrency:     concurrency,
				PartConcurrency: partConcurrency,
			}

			var report *s3concat.Report
			if dryRun {
				report, err = client.Plan(runCtx, opts)
			} else {
				report, err = client.Run(runCtx, opts)
			}
			if err != nil {
				return err
			}

			report.Write(os.Stdout)
			if report.Failed() {
				return fmt.Errorf("one or more targets failed")
			}
			return nil
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
