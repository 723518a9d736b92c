package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:     "solvanity",
		Short:   "Search for Solana vanity addresses on GPU or CPU",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.prefix, "prefix", "p", "", "address prefix to search for")
	flags.StringVarP(&opts.suffix, "suffix", "s", "", "address suffix to search for")
	flags.IntVarP(&opts.count, "count", "n", 0, "number of matching keypairs to find")
	flags.IntVarP(&opts.iterationBits, "iteration-bits", "i", 0, "batch size exponent (16-28)")
	flags.BoolVar(&opts.caseInsensitive, "case-insensitive", false, "match without case sensitivity")
	flags.StringVarP(&opts.outputDir, "output", "o", "", "directory for found keyfiles")
	flags.BoolVar(&opts.allowCPU, "allow-cpu", false, "search on the CPU when no GPU is available")
	flags.StringVar(&opts.kernelPath, "kernel", "", "path to the OpenCL kernel source")
	flags.StringSliceVar(&opts.devices, "devices", nil, "restrict the search to these device IDs")
	flags.StringVarP(&opts.configFile, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newDevicesCmd(opts))
	return root
}

type cliOptions struct {
	prefix          string
	suffix          string
	count           int
	iterationBits   int
	caseInsensitive bool
	outputDir       string
	allowCPU        bool
	kernelPath      string
	devices         []string
	configFile      string
	logLevel        string
}
