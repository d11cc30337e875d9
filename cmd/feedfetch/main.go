package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/feedproxy/internal/infrastructure/logging"
	"github.com/GriffinCanCode/feedproxy/pkg/client"
)

func main() {
	os.Exit(run())
}

func run() int {
	proxy := flag.String("proxy", envOr("FEEDPROXY_URL", "http://localhost:10000"), "Feed proxy base URL")
	retries := flag.Int("retries", 2, "Retries on transport errors and 5xx answers")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall timeout including retries")
	screenshot := flag.String("screenshot", "", "Write the failure screenshot (PNG) to this file")
	verbose := flag.Bool("v", false, "Log retry attempts to stderr")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <feed-url>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return 2
	}

	c := client.New(*proxy).
		SetRetry(*retries, 2*time.Second, 30*time.Second).
		SetTimeout(*timeout)
	if *verbose {
		logger := logging.NewOrNop(logging.Config{
			Level:       "debug",
			Development: true,
			OutputPaths: []string{"stderr"},
		})
		defer func() { _ = logger.Sync() }()
		c.SetLogger(logger.Logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feed, err := c.Fetch(ctx, flag.Arg(0))
	if err != nil {
		return report(err, *screenshot)
	}

	if _, err := os.Stdout.Write(feed.Body); err != nil {
		fmt.Fprintf(os.Stderr, "write feed: %v\n", err)
		return 1
	}
	return 0
}

func report(err error, screenshotPath string) int {
	var perr *client.ProxyError
	if !errors.As(err, &perr) {
		fmt.Fprintf(os.Stderr, "feedfetch: %v\n", err)
		return 1
	}

	fmt.Fprintf(os.Stderr, "feedfetch: proxy answered %d: %s\n", perr.StatusCode, perr.Message)
	if perr.RequestID != "" {
		fmt.Fprintf(os.Stderr, "  request id:  %s\n", perr.RequestID)
	}
	d := perr.Diagnostic
	if d == nil {
		return 1
	}
	fmt.Fprintf(os.Stderr, "  current url: %s\n", d.CurrentURL)
	if d.Challenge != "" {
		fmt.Fprintf(os.Stderr, "  challenge:   %s\n", d.Challenge)
	}
	if screenshotPath != "" && d.ScreenshotBase64 != "" {
		if err := writeScreenshot(screenshotPath, d.ScreenshotBase64); err != nil {
			fmt.Fprintf(os.Stderr, "  screenshot:  %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "  screenshot:  %s\n", screenshotPath)
		}
	}
	return 1
}

func writeScreenshot(path, encoded string) error {
	png, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return os.WriteFile(path, png, 0o644)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
