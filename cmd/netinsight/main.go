package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"netinsight/internal/app"
	"netinsight/internal/model"
	"netinsight/internal/pipeline"
	"netinsight/internal/utils"

	"github.com/prometheus/common/version"
)

func main() {
	var (
		configFile   = flag.String("config", "configs/netinsight.yaml", "Configuration file path (YAML)")
		scan         = flag.String("scan", "", "Sweep a subnet, e.g. 192.168.1.0/24")
		liveTraffic  = flag.Bool("traffic", false, "Aggregate the live connection table")
		trafficFile  = flag.String("traffic-file", "", "Aggregate connection-table text from a file")
		showVersion  = flag.Bool("version", false, "Show version information")
		testTelegram = flag.Bool("test-telegram", false, "Send test message to Telegram")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Print("netinsight"))
		return
	}

	config, err := utils.LoadConfig(*configFile)
	if err != nil {
		fmt.Printf("Failed to load YAML config %s: %v\n", *configFile, err)
		fmt.Println("Using default configuration...")
		config = utils.GetDefaultConfig()
	}

	logger := utils.NewLogger(config.Logging.Level, config.Logging.Format)

	a, err := app.New(config, logger, "netinsight", app.Deps{})
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	if *testTelegram {
		if a.Telegram == nil {
			fmt.Println("Telegram channel is not configured")
			os.Exit(1)
		}
		if err := a.Telegram.SendTestMessage(context.Background()); err != nil {
			fmt.Printf("Failed to send test message: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Test message sent")
		return
	}

	if *scan == "" && !*liveTraffic && *trafficFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, a.Diagnostics, *scan, *liveTraffic, *trafficFile); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, diag *pipeline.Diagnostics, scan string, liveTraffic bool, trafficFile string) error {
	if scan != "" {
		res, err := diag.Discover(ctx, scan)
		if err != nil {
			return fmt.Errorf("discovery of %s: %w", scan, err)
		}
		printDiscovery(res.Result)
		printAlerts(res.AlertsRaised)
	}

	if liveTraffic || trafficFile != "" {
		var (
			res *pipeline.Result[model.FlowSnapshot]
			err error
		)
		if trafficFile != "" {
			data, readErr := os.ReadFile(trafficFile)
			if readErr != nil {
				return fmt.Errorf("failed to read %s: %w", trafficFile, readErr)
			}
			res, err = diag.AggregateTraffic(ctx, string(data))
		} else {
			res, err = diag.AnalyzeTraffic(ctx)
		}
		if err != nil {
			return fmt.Errorf("traffic analysis: %w", err)
		}
		printTraffic(res.Result)
		printAlerts(res.AlertsRaised)
	}

	return nil
}

func printDiscovery(report *model.DiscoveryReport) {
	fmt.Printf("\nSubnet %s: %d of %d hosts active\n", report.Subnet, report.DiscoveredHosts, report.TotalHosts)
	for _, d := range report.Devices {
		name := d.Hostname
		if name == "" {
			name = "-"
		}
		fmt.Printf("  %-40s %-40s %s\n", d.IP, name, d.Status)
	}
}

func printTraffic(snapshot model.FlowSnapshot) {
	fmt.Printf("\nConnections: TCP %d, UDP %d\n", snapshot.Protocols[model.ProtocolTCP], snapshot.Protocols[model.ProtocolUDP])
	fmt.Println("Top sources:")
	for _, t := range snapshot.TopSources {
		fmt.Printf("  %-40s %d\n", t.IP, t.Count)
	}
	fmt.Println("Top destinations:")
	for _, t := range snapshot.TopDestinations {
		fmt.Printf("  %-40s %d\n", t.IP, t.Count)
	}
}

func printAlerts(alerts []model.Alert) {
	for _, a := range alerts {
		timestamp := a.Timestamp.Format("2006-01-02 15:04:05")
		fmt.Printf("\n[%s] %s %s - %s: %s\n", timestamp, a.ID, a.Severity, a.Title, a.Description)
	}
}
