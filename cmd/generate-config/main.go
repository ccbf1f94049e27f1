package main

import (
	"fmt"
	"os"

	"github.com/debemdeboas/feedback-board/internal/config"
	"gopkg.in/yaml.v3"
)

const header = "# Feedback Board Configuration Example\n" +
	"# Copy this file to config.yaml and customize as needed.\n" +
	"# Every key can be overridden with a " + config.EnvPrefix + "* environment variable,\n" +
	"# e.g. " + config.EnvPrefix + "SERVER_PORT. Secrets are read from the environment only.\n\n"

func generate() ([]byte, error) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	return append([]byte(header), yamlData...), nil
}

func main() {
	output, err := generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating YAML: %v\n", err)
		os.Exit(1)
	}

	outputFile := "config.example.yaml"
	if len(os.Args) > 1 {
		outputFile = os.Args[1]
	}

	if outputFile == "-" {
		os.Stdout.Write(output)
		return
	}

	if err := os.WriteFile(outputFile, output, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, config.ErrWriteConfigContentFmt+"\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated example config: %s\n", outputFile)
}
