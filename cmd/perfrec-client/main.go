// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Command perfrec-client exercises the recommendation API with signed
// requests:
//
//	perfrec-client status -a APP_ID -h HOST -k KEY
//	perfrec-client sign   -h HOST -k KEY -p PATH [-b BODY]
//	perfrec-client get    -a APP_ID -h HOST -k KEY -r RECOMMENDATION_ID
//	perfrec-client post   -a APP_ID -h HOST -k KEY -s SERVICE_ID -w BW_CHANGE
//
// Signatures come from the service's /sign endpoint unless -local is given.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-core-stack/perfrec-auth/pkg/auth"
	"github.com/go-core-stack/perfrec-auth/pkg/client"
)

const usage = "usage: perfrec-client <status|sign|get|post> [options]"

type options struct {
	appID     string
	host      string
	key       string
	body      string
	path      string
	serviceID string
	recID     int64
	bwChange  int
	local     bool
	timeout   time.Duration
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	out, err := run(os.Args[1], os.Args[2:])
	if err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("command failed")
	}
	fmt.Println(out)
}

func run(command string, args []string) (string, error) {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	var opts options
	fs.StringVar(&opts.appID, "a", "", "application id")
	fs.StringVar(&opts.host, "h", "", "API host, scheme://host[:port]")
	fs.StringVar(&opts.key, "k", "", "shared secret key")
	fs.BoolVar(&opts.local, "local", false, "sign locally instead of calling /sign")
	fs.DurationVar(&opts.timeout, "timeout", 15*time.Second, "request timeout")

	var required []string
	switch command {
	case "status":
		required = []string{"a", "h", "k"}
	case "sign":
		fs.StringVar(&opts.body, "b", "", "body to sign")
		fs.StringVar(&opts.path, "p", "", "request path to sign")
		required = []string{"h", "k", "p"}
	case "get":
		fs.Int64Var(&opts.recID, "r", 0, "recommendation id")
		required = []string{"a", "h", "k", "r"}
	case "post":
		fs.StringVar(&opts.serviceID, "s", "", "service id")
		fs.IntVar(&opts.bwChange, "w", 0, "bandwidth change, positive to increase")
		required = []string{"a", "h", "k", "s", "w"}
	default:
		return "", fmt.Errorf("unknown command %q\n%s", command, usage)
	}

	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if err := requireFlags(fs, required); err != nil {
		return "", err
	}

	c, err := client.New(opts.host, opts.appID, opts.key)
	if err != nil {
		return "", err
	}
	c.Local = opts.local
	c.HTTP.Timeout = opts.timeout

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	var raw json.RawMessage
	switch command {
	case "status":
		raw, err = c.Status(ctx)
	case "sign":
		if c.Local {
			return auth.SignAt([]byte(opts.body), opts.path, opts.key, c.Now())
		}
		return c.RemoteSign(ctx, []byte(opts.body), opts.path)
	case "get":
		raw, err = c.GetRecommendation(ctx, opts.recID)
	case "post":
		raw, err = c.PostRecommendation(ctx, opts.serviceID, opts.bwChange)
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// requireFlags fails unless every name in required was set on the command line.
func requireFlags(fs *flag.FlagSet, required []string) error {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	for _, name := range required {
		if !set[name] {
			return fmt.Errorf("you must supply -%s (%s)", name, fs.Lookup(name).Usage)
		}
	}
	return nil
}
