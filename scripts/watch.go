package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"wgdash/config"
	"wgdash/models"
	"wgdash/services"
)

// Terminal dashboard that polls the JSON endpoint.
// Usage: go run ./scripts -url http://localhost:8123/api/dashboard

func main() {
	cfg := config.Default()
	if val := os.Getenv("POLL_INTERVAL"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.Stream.PollInterval = n
		}
	}

	url := flag.String("url", "http://localhost:8123/api/dashboard", "dashboard JSON endpoint")
	interval := flag.Duration("interval", cfg.PollIntervalDuration(), "poll interval")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Monitoring since %s\n", time.Now().Format(time.Kitchen))

	services.NewPoller(*url, *interval).Run(ctx, func(view models.AggregateView, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "[%s] Error: %v\n", time.Now().Format(time.TimeOnly), err)
			return
		}
		render(os.Stdout, view)
	})
}

func render(w io.Writer, view models.AggregateView) {
	fmt.Fprintf(w, "\nActive: %d   Received: %s   Sent: %s   Updated %s\n",
		view.ActiveCount, view.Rx, view.Tx, view.Updated)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INTERFACE\tPEER\tKEY\tENDPOINT\tSTATUS\tRX\tTX")
	for _, r := range view.Rows {
		endpoint := r.Endpoint
		if r.Country != "" {
			endpoint += " (" + r.Country + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Interface, r.PeerName, r.PublicKey, endpoint, r.StatusText, r.Rx, r.Tx)
	}
	tw.Flush()
}
