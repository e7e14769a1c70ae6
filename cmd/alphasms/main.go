package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	alphasms "github.com/obramko/alphasms-go"
	"github.com/obramko/alphasms-go/internal/config"
	"github.com/obramko/alphasms-go/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fail("config load", err)
	}

	baseLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		fail("logger init", err)
	}
	log := baseLogger.With().Str("service", "alphasms-cli").Logger()

	opts := []alphasms.Option{
		alphasms.WithTimeout(time.Duration(cfg.Gateway.TimeoutSeconds) * time.Second),
		alphasms.WithDefaultRegion(cfg.Gateway.DefaultRegion),
	}
	if cfg.Gateway.BaseURL != "" {
		opts = append(opts, alphasms.WithBaseURL(cfg.Gateway.BaseURL))
	}

	auth := alphasms.Auth{
		APIKey:   cfg.Gateway.APIKey,
		Login:    cfg.Gateway.Login,
		Password: cfg.Gateway.Password,
	}
	client, err := alphasms.NewClient(auth, log, opts...)
	if err != nil {
		fail("client init", err)
	}

	switch os.Args[1] {
	case "send":
		runSend(ctx, client, os.Args[2:])
	case "status":
		runStatus(ctx, client, os.Args[2:])
	case "balance":
		runBalance(ctx, client)
	default:
		usage()
		os.Exit(2)
	}
}

func runSend(ctx context.Context, client *alphasms.Client, args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	to := fs.String("to", "", "recipient phone number")
	from := fs.String("from", "", "registered sender signature")
	text := fs.String("text", "", "message text")
	at := fs.String("at", "", "scheduled delivery time (RFC3339, optional)")
	_ = fs.Parse(args)

	msg := alphasms.Message{Phone: *to, Sender: *from, Text: *text}
	if *at != "" {
		ts, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			fail("parse -at", err)
		}
		msg.SendAt = ts
	}

	result, err := client.SendSMS(ctx, msg)
	if err != nil {
		fail("send", err)
	}
	if !result.Accepted {
		fmt.Fprintf(os.Stderr, "rejected: %s\n", result.ProviderMessage)
		os.Exit(1)
	}
	fmt.Printf("accepted sms_id=%s\n", result.SMSID)
}

func runStatus(ctx context.Context, client *alphasms.Client, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	id := fs.String("id", "", "sms id returned by send")
	_ = fs.Parse(args)

	result, err := client.Status(ctx, *id)
	if err != nil {
		fail("status", err)
	}
	fmt.Printf("sms_id=%s state=%s", result.SMSID, result.State)
	if result.Detail != "" {
		fmt.Printf(" detail=%q", result.Detail)
	}
	fmt.Println()
}

func runBalance(ctx context.Context, client *alphasms.Client) {
	result, err := client.Balance(ctx)
	if err != nil {
		fail("balance", err)
	}
	fmt.Printf("%.2f %s\n", result.Amount, result.Currency)
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: alphasms <command> [flags]

commands:
  send     -to <phone> -from <sender> -text <text> [-at <RFC3339>]
  status   -id <sms_id>
  balance

credentials and endpoint come from the environment (ALPHASMS_API_KEY or
ALPHASMS_LOGIN/ALPHASMS_PASSWORD, optional ALPHASMS_BASE_URL).`)
}

func fail(stage string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", stage, err)
	os.Exit(1)
}
