package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// outputResult writes result to the command's stdout in the selected format.
func outputResult(cmd *cobra.Command, result CLIResult) error {
	w := cmd.OutOrStdout()
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// result envelope; in text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// formatBuildText formats a build as aligned columns, marking changed paths
// with "*" and listing removed paths after them.
func formatBuildText(w io.Writer, b CLIBuild) {
	changed := make(map[string]bool, len(b.Changed))
	for _, p := range b.Changed {
		changed[p] = true
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tPATH\tHASH")
	for _, a := range b.Artifacts {
		mark := ""
		if changed[a.Path] {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", mark, a.Path, a.Hash)
	}
	tw.Flush()

	for _, p := range b.Removed {
		fmt.Fprintf(w, "removed: %s\n", p)
	}
}

// formatHashesText formats file hashes like sha1sum does.
func formatHashesText(w io.Writer, hashes []CLIHash) {
	for _, h := range hashes {
		fmt.Fprintf(w, "%s  %s\n", h.Hash, h.Path)
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case string:
		fmt.Fprintln(w, v)
	case CLIBuild:
		formatBuildText(w, v)
	case []CLIHash:
		formatHashesText(w, v)
	case CLICacheClear:
		fmt.Fprintf(w, "Removed %d cached modules\n", v.Removed)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
