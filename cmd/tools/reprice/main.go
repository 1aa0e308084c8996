package main

import (
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/document"
	"github.com/noah-isme/backend-billing/internal/obs"
	"github.com/noah-isme/backend-billing/internal/pricing"
)

type result struct {
	Kind       document.Kind  `json:"kind"`
	Reconciled bool           `json:"reconciled"`
	Submitted  pricing.Totals `json:"submitted"`
	Computed   pricing.Totals `json:"computed"`
	OffLines   []int          `json:"offLines,omitempty"`
}

func main() {
	var (
		rounding  = flag.String("rounding", "nearest", "round-off mode: nearest or truncate")
		encoding  = flag.String("encoding", "flat-zero", "discount type encoding: flat-zero or percent-zero")
		tolerance = flag.String("tolerance", "0", "accepted difference per total")
		logLevel  = flag.String("log-level", "info", "log level")
	)
	flag.Parse()
	log := obs.NewLoggerTo(os.Stderr, "console", *logLevel)

	opts, err := verifyOptions(*rounding, *encoding, *tolerance)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid flags")
	}

	in := io.Reader(os.Stdin)
	if path := flag.Arg(0); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			log.Fatal().Err(err).Msg("open submission")
		}
		defer f.Close()
		in = f
	}

	res, err := reprice(in, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("reprice submission")
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatal().Err(err).Msg("write result")
	}
	logResult(log, res)
	if !res.Reconciled {
		os.Exit(2)
	}
}

func verifyOptions(rounding, encoding, tolerance string) (document.VerifyOptions, error) {
	mode, err := pricing.ParseRoundingMode(rounding)
	if err != nil {
		return document.VerifyOptions{}, err
	}
	enc, err := pricing.ParseDiscountEncoding(encoding)
	if err != nil {
		return document.VerifyOptions{}, err
	}
	tol, err := decimal.NewFromString(tolerance)
	if err != nil {
		return document.VerifyOptions{}, err
	}
	return document.VerifyOptions{Encoding: enc, Rounding: mode, Tolerance: tol.Abs()}, nil
}

func reprice(r io.Reader, opts document.VerifyOptions) (result, error) {
	var sub document.Submission
	if err := json.NewDecoder(r).Decode(&sub); err != nil {
		return result{}, err
	}
	computed, err := document.Verify(sub, opts)
	res := result{Kind: sub.Kind, Submitted: sub.Totals, Computed: computed, Reconciled: err == nil}
	var mismatch *document.MismatchError
	switch {
	case errors.As(err, &mismatch):
		res.OffLines = mismatch.Lines
	case err != nil:
		return result{}, err
	}
	return res, nil
}

func logResult(log zerolog.Logger, res result) {
	ev := log.Info()
	if !res.Reconciled {
		ev = log.Warn().Ints("off_lines", res.OffLines)
	}
	ev.Str("kind", string(res.Kind)).
		Str("total", res.Computed.TotalAmount.String()).
		Bool("reconciled", res.Reconciled).
		Msg("repriced submission")
}
