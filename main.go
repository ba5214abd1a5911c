package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"leadscout/internal/config"
	"leadscout/internal/service"
	"leadscout/pkg/logger"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("CRITICAL ERROR: Application panic recovered: %v\n", r)
			fmt.Printf("Please check the logs for more details and report this issue.\n")
			os.Exit(1)
		}
	}()

	var (
		configPath = flag.String("config", "", "Optional YAML configuration file")
		debug      = flag.Bool("debug", false, "Enable debug logging")
		help       = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		printUsage()
		return
	}

	cfg, err := config.NewManager().Load(*configPath)
	if err != nil {
		fmt.Printf("ERROR: %v\n\n", err)
		printUsage()
		os.Exit(1)
	}
	if *debug {
		cfg.Logger.Level = "debug"
	}
	logger.SetLogger(logger.New(cfg.Logger))
	log := logger.GetLogger().WithField("component", "main")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	comps, err := service.NewComponents(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialise components")
	}
	defer func() {
		if err := comps.Close(); err != nil {
			log.WithError(err).Warn("Failed to close dedup store cleanly")
		}
	}()

	scout, err := service.NewScout(cfg, comps)
	if err != nil {
		log.WithError(err).Fatal("Failed to build pipeline")
	}

	niches := make([]string, 0, flag.NArg())
	for _, arg := range flag.Args() {
		if arg = strings.TrimSpace(arg); arg != "" {
			niches = append(niches, arg)
		}
	}
	if len(niches) > 0 {
		log.WithField("niches", len(niches)).Info("Using niches from the command line")
	}

	result, err := scout.Run(ctx, niches)
	if err != nil {
		log.WithError(err).Error("Run finished with errors")
	}
	if result == nil {
		os.Exit(1)
	}

	fmt.Println(result.Summary())
	fmt.Printf("\nDone - %d qualified channels found.\n", len(result.Rows))
	if err != nil {
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("leadscout - YouTube channel lead scraper")
	fmt.Println("")
	fmt.Println("USAGE:")
	fmt.Println("    ./leadscout [OPTIONS] [niche ...]")
	fmt.Println("")
	fmt.Println("Positional arguments replace the configured niche list for this run.")
	fmt.Println("")
	fmt.Println("OPTIONS:")
	fmt.Println("    -config string   Optional YAML configuration file")
	fmt.Println("    -debug           Enable debug logging")
	fmt.Println("    -help            Show this help message")
	fmt.Println("")
	fmt.Println("ENVIRONMENT VARIABLES (.env is read when present):")
	fmt.Println("    YOUTUBE_API_KEY                 Data API key (required)")
	fmt.Println("    GOOGLE_SHEETS_CREDENTIALS_FILE  Service-account key file (default: credentials.json)")
	fmt.Println("    GOOGLE_SHEET_NAME               Spreadsheet name (default: YouTube Leads)")
	fmt.Println("    SMTP_HOST, SMTP_PORT            Mail relay for the run report")
	fmt.Println("    SMTP_USER, SMTP_PASSWORD        Mail relay credentials")
	fmt.Println("    NOTIFICATION_EMAIL              Report recipient")
	fmt.Println("    DATABASE_URL                    PostgreSQL DSN; sqlite is used when unset")
	fmt.Println("")
	fmt.Println("Any setting can also be given as LEADSCOUT_<SECTION>_<KEY>, e.g. LEADSCOUT_PIPELINE_MAX_CHANNELS_PER_RUN=100")
	fmt.Println("")
	fmt.Println("EXAMPLES:")
	fmt.Println("    ./leadscout")
	fmt.Println("    ./leadscout \"video essays\" \"retro gaming history\"")
	fmt.Println("    ./leadscout -config config/config.example.yaml -debug")
}
