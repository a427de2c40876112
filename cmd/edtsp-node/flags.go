package main

import "flag"

// Options holds CLI options for the node.
type Options struct {
    ConfigPath string
    ResetID    bool
    PrintID    bool
}

// ParseFlags parses CLI flags from args and returns Options.
func ParseFlags(args []string) Options {
    fs := flag.NewFlagSet("edtsp-node", flag.ExitOnError)
    var opts Options
    fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
    fs.BoolVar(&opts.ResetID, "reset-id", false, "Discard the persisted device id and generate a new one")
    fs.BoolVar(&opts.PrintID, "print-id", false, "Print the device id and exit")
    _ = fs.Parse(args)
    return opts
}
