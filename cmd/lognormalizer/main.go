package main

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	lognorm "github.com/averhart/lognorm"
	"github.com/averhart/lognorm/internal/encoder"
)

var (
	flagRulebase     string
	flagEncoder      string
	flagEncFormat    string
	flagIncludeTags  bool
	flagParsedOnly   bool
	flagUnparsedOnly bool
	flagTag          string
	flagVerbose      bool
	flagOptions      []string
)

func main() {
	cmd := &cobra.Command{
		Use:   "lognormalizer [file]",
		Short: "normalize log lines against a sample rulebase",
		Long: `lognormalizer reads log lines from a file or stdin, matches each
against the given rulebase and writes one structured record per line.`,
		Args: cobra.MaximumNArgs(1),
		RunE: run,

		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&flagRulebase, "rulebase", "r", "", "rulebase file to use (required)")
	cmd.Flags().StringVarP(&flagEncoder, "encoder", "e", "json", "output format: json, xml, csv, rfc5424")
	cmd.Flags().StringVarP(&flagEncFormat, "enc-format", "E", "", "encoder-specific format (CSV field list)")
	cmd.Flags().BoolVarP(&flagIncludeTags, "tags", "T", false, "include event.tags in JSON output")
	cmd.Flags().BoolVarP(&flagParsedOnly, "parsed-only", "p", false, "print only successfully parsed messages")
	cmd.Flags().BoolVarP(&flagUnparsedOnly, "unparsed-only", "P", false, "print only messages that did not parse")
	cmd.Flags().StringVarP(&flagTag, "tag", "t", "", "print only messages carrying this tag")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable engine debug output")
	cmd.Flags().StringArrayVarP(&flagOptions, "option", "o", nil, "generic engine option (allowRegex)")
	cmd.MarkFlagRequired("rulebase")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if flagVerbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	var csvFields []string
	if flagEncFormat != "" {
		csvFields = strings.Split(flagEncFormat, ",")
	}
	encName := flagEncoder
	if encName == "json" && flagIncludeTags {
		encName = "json-tags"
	}
	enc, err := encoder.ForName(encName, csvFields)
	if err != nil {
		return err
	}

	ctx := lognorm.New(lognorm.WithAllowRegex(slices.Contains(flagOptions, "allowRegex")))
	defer ctx.Destroy()
	ctx.SetErrorCB(func(msg string) { logger.Error(msg) })
	if flagVerbose {
		ctx.SetDebugCB(func(msg string) { logger.Debug(msg) })
	}

	if err := ctx.LoadRulebase(flagRulebase); err != nil {
		return fmt.Errorf("loading rulebase %s: %w", flagRulebase, err)
	}

	in := os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	var numParsed, numUnparsed int
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		rec, err := ctx.Normalize(scanner.Bytes())
		if err != nil {
			return err
		}
		if rec.Unparsed() {
			numUnparsed++
		} else {
			numParsed++
		}
		if flagParsedOnly && rec.Unparsed() {
			continue
		}
		if flagUnparsedOnly && !rec.Unparsed() {
			continue
		}
		if flagTag != "" && !slices.Contains(rec.Tags(), flagTag) {
			continue
		}
		if err := enc.Encode(out, rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	logger.Info("done",
		zap.Int("parsed", numParsed),
		zap.Int("unparsed", numUnparsed),
	)
	return nil
}
