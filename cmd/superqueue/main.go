package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli"

	"github.com/elsieclark/superqueue/internal/app"
	"github.com/elsieclark/superqueue/internal/config"
	"github.com/elsieclark/superqueue/internal/storage"
	logx "github.com/elsieclark/superqueue/pkg/logx"
)

// set by -ldflags
var (
	version = "dev"
	commit  = "none"
)

var (
	cfgPath  string
	histSize int

	configFlag = cli.StringFlag{
		Name:        "config, c",
		Usage:       "path to the config file (json or yaml)",
		Value:       "./superqueue.yaml",
		Destination: &cfgPath,
	}
)

func main() {
	a := cli.App{
		Name:        "superqueue",
		HelpName:    "superqueue",
		Usage:       "run scheduled jobs through a rate-limited priority queue",
		UsageText:   "superqueue <command> [arguments...]",
		Version:     fmt.Sprintf("%s (%s)", version, commit),
		HideVersion: true,
		Commands: []cli.Command{
			{
				Name:   "run",
				Usage:  "run the daemon until SIGINT/SIGTERM",
				Flags:  []cli.Flag{configFlag},
				Action: run,
			},
			{
				Name:   "check",
				Usage:  "validate a config file and exit",
				Flags:  []cli.Flag{configFlag},
				Action: check,
			},
			{
				Name:  "history",
				Usage: "print the most recent runs from storage",
				Flags: []cli.Flag{
					configFlag,
					cli.IntFlag{
						Name:        "n",
						Usage:       "number of runs to print",
						Value:       20,
						Destination: &histSize,
					},
				},
				Action: history,
			},
			{
				Name:  "version",
				Usage: "print the version",
				Action: func(*cli.Context) error {
					fmt.Printf("superqueue %s (commit %s)\n", version, commit)
					return nil
				},
			},
		},
	}
	if err := a.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "superqueue:", err)
		os.Exit(1)
	}
}

func run(*cli.Context) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := app.New(cfgPath)
	if err != nil {
		return fmt.Errorf("fatal: %w", err)
	}
	if err := d.Start(ctx); err != nil {
		_ = d.Stop(context.Background(), app.StopFatalError)
		return fmt.Errorf("fatal start: %w", err)
	}

	var reason app.StopReason
	select {
	case sig := <-sigs:
		reason = app.StopSIGTERM
		if sig == os.Interrupt {
			reason = app.StopSIGINT
		}
	case <-d.Done():
		reason = app.StopFatalError
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	_ = d.Stop(stopCtx, reason)
	if err := d.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func check(*cli.Context) error {
	cfg, err := config.NewManager(cfgPath).Load()
	if err != nil {
		return err
	}
	if err := app.Check(cfg); err != nil {
		return err
	}
	fmt.Printf("%s: ok (%d flags, %d jobs)\n", cfgPath, len(cfg.Flags), len(cfg.Jobs))
	return nil
}

func history(*cli.Context) error {
	cfg, err := config.NewManager(cfgPath).Load()
	if err != nil {
		return err
	}
	sc, enabled, err := app.MapStorageConfig(cfg)
	if err != nil {
		return err
	}
	if !enabled {
		return errors.New("storage is disabled in this config")
	}
	st, err := storage.Open(sc, logx.Nop())
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.RecentRuns(context.Background(), histSize)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tNAME\tFLAGS\tWAIT\tTOOK\tRESULT")
	for _, r := range runs {
		res := "ok"
		if !r.OK {
			res = "error: " + r.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Started.Local().Format("2006-01-02 15:04:05"),
			orDash(r.Name), orDash(strings.Join(r.Flags, ",")),
			r.QueueDelay.Round(time.Millisecond), r.Duration.Round(time.Millisecond), res)
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
