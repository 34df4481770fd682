package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jward/kiln"
	"github.com/spf13/cobra"
)

var flagDocType string

var renderCmd = &cobra.Command{
	Use:   "render <page>",
	Short: "Render a page template to stdout",
	Long:  "Evaluates the Risor page template at the given specifier and prints its markup.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVar(&flagDocType, "doctype", "html", "document type: html|xhtml|xml")
}

func runRender(cmd *cobra.Command, args []string) error {
	dt, err := kiln.ParseDocType(flagDocType)
	if err != nil {
		return outputError("render", err)
	}
	engine, err := openEngine(flagRoot)
	if err != nil {
		return outputError("render", err)
	}
	defer engine.Close()

	out, err := engine.RenderPage(context.Background(), args[0], dt)
	if err != nil {
		return outputError("render", err)
	}
	return outputResult(cmd, CLIResult{Command: "render", Results: out})
}

var bundleCmd = &cobra.Command{
	Use:   "bundle <entry>",
	Short: "Bundle a script and everything it imports to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runBundle,
}

func runBundle(cmd *cobra.Command, args []string) error {
	engine, err := openEngine(flagRoot)
	if err != nil {
		return outputError("bundle", err)
	}
	defer engine.Close()

	out, err := engine.Bundle(context.Background(), args[0], nil)
	if err != nil {
		return outputError("bundle", err)
	}
	return outputResult(cmd, CLIResult{Command: "bundle", Results: out})
}

var hashCmd = &cobra.Command{
	Use:   "hash <file>...",
	Short: "Print the manifest hash of files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHash,
}

func runHash(cmd *cobra.Command, args []string) error {
	hashes := make([]CLIHash, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return outputError("hash", fmt.Errorf("reading %s: %w", path, err))
		}
		hashes = append(hashes, CLIHash{Path: path, Hash: kiln.Hash(data)})
	}
	return outputResult(cmd, CLIResult{Command: "hash", Results: hashes})
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the remote module cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached remote module",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	engine, err := openEngine(flagRoot)
	if err != nil {
		return outputError("cache clear", err)
	}
	defer engine.Close()

	n, err := engine.Store().ClearSources()
	if err != nil {
		return outputError("cache clear", err)
	}
	return outputResult(cmd, CLIResult{Command: "cache clear", Results: CLICacheClear{Removed: n}})
}
