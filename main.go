package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/elowenm/gradescope-regrader/config"
	"github.com/elowenm/gradescope-regrader/gradescope"
	"github.com/elowenm/gradescope-regrader/validate"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a JSON or YAML configuration file")
		cookieFile = flag.String("cookies", "", "filename for the cookie cache (overrides the config)")
		workers    = flag.Int("workers", 0, "maximum concurrent status checks (overrides the config)")
		onlyZeros  = flag.Bool("only-zeros", true, "validate only submissions with a score of exactly zero")
		dryRun     = flag.Bool("dry-run", false, "report autograder statuses without issuing regrades")
		maxRounds  = flag.Int("max-rounds", 0, "maximum validation rounds, 0 to retry until convergence")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		usage()
		os.Exit(2)
	}
	courseID, err := strconv.Atoi(flag.Arg(0))
	if err != nil {
		log.Fatalf("invalid course id %q", flag.Arg(0))
	}
	assignmentID, err := strconv.Atoi(flag.Arg(1))
	if err != nil {
		log.Fatalf("invalid assignment id %q", flag.Arg(1))
	}

	cfg := config.Default()
	if *configPath != "" {
		if err := cfg.LoadFromFile(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	if *cookieFile != "" {
		cfg.GradescopeConfig.CookieFile = *cookieFile
	}
	if *workers > 0 {
		cfg.ValidatorConfig.WorkerCount = *workers
	}
	if *maxRounds > 0 {
		cfg.ValidatorConfig.MaxRounds = *maxRounds
	}
	if *verbose {
		cfg.LoggerConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := cfg.LoggerConfig.Build()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	creds, err := config.LoadCredentials()
	if err != nil {
		logger.Warn("credentials not found in environment, relying on the cookie cache", zap.Error(err))
	}

	client, err := gradescope.New(gradescope.Config{
		BaseURL:    cfg.GradescopeConfig.BaseURL,
		Email:      creds.Email,
		Password:   creds.Password,
		CookieFile: cfg.GradescopeConfig.CookieFile,
	}, logger)
	if err != nil {
		log.Fatal(err)
	}

	validator := validate.New(client, logger, validate.NewConsoleReporter(os.Stdout), validate.Options{
		CourseID:       courseID,
		AssignmentID:   assignmentID,
		Workers:        cfg.ValidatorConfig.WorkerCount,
		OnlyZeroScores: *onlyZeros,
		DryRun:         *dryRun,
		WaitInterval:   time.Duration(cfg.ValidatorConfig.WaitSeconds) * time.Second,
		MaxRounds:      cfg.ValidatorConfig.MaxRounds,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := validator.Run(ctx); err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] course_id assignment_id\n", os.Args[0])
	flag.PrintDefaults()
}
