package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const sectionRule = "# -----------------------------------------------------------------------------\n"

type envSection struct {
	title string
	flags []string
	// example values for flags without a useful default
	examples map[string]string
}

var envSections = []envSection{
	{
		title: "Spotify Configuration (Required)",
		flags: []string{"spotify-client-id", "spotify-client-secret", "spotify-redirect-url", "spotify-token-path", "source"},
		examples: map[string]string{
			"spotify-client-id":     "your_client_id",
			"spotify-client-secret": "your_client_secret",
			"source":                "37i9dQZF1DXcBWIGoYBM5M",
		},
	},
	{
		title: "Weights",
		flags: []string{"weights-path", "weights-match", "weights-watch"},
	},
	{
		title: "Queue Refill",
		flags: []string{
			"batch-size", "requeue-depth", "poll-interval", "max-retries",
			"retry-min-delay", "retry-max-delay", "history-size",
		},
	},
	{
		title: "Materialized Playlist",
		flags: []string{"playlist-name", "playlist-owner"},
	},
	{
		title: "HTTP Server Configuration",
		flags: []string{"server-enabled", "server-host", "server-port"},
	},
	{
		title: "Logging Configuration",
		flags: []string{"log-level", "log-format"},
	},
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# bettershuffle Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	fmt.Fprintf(&content, "# Format: %s_<SETTING>=value\n", envPrefix)
	content.WriteString("# CLI equivalent: --<setting>\n")
	content.WriteString("#\n\n")

	for _, section := range envSections {
		generateSection(&content, cmd, section)
	}
	generateSetupSteps(&content)

	return content.String()
}

func generateSection(content *strings.Builder, cmd *cobra.Command, section envSection) {
	content.WriteString(sectionRule)
	fmt.Fprintf(content, "# %s\n", section.title)
	content.WriteString(sectionRule)
	fmt.Fprintf(content, "# CLI: --%s\n", strings.Join(section.flags, ", --"))

	for _, name := range section.flags {
		value := getDefaultValueString(cmd, name)
		if example, ok := section.examples[name]; ok {
			value = example
		}
		fmt.Fprintf(content, "# %s\n", getUsageString(cmd, name))
		fmt.Fprintf(content, "%s=%s\n", flagToEnvVar(name), value)
	}
	content.WriteString("\n")
}

func generateSetupSteps(content *strings.Builder) {
	content.WriteString("# =============================================================================\n")
	content.WriteString("# QUICK SETUP GUIDE\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# 1. SPOTIFY SETUP:\n")
	content.WriteString("#    - Go to https://developer.spotify.com/dashboard and create an app\n")
	content.WriteString("#    - Add redirect URI: http://127.0.0.1:8080/callback\n")
	content.WriteString("#    - Copy Client ID and Secret to config above\n")
	content.WriteString("#    - Run `bettershuffle auth` once to cache a token\n")
	content.WriteString("#\n")
	content.WriteString("# 2. WEIGHTS:\n")
	content.WriteString("#    - One `track name = weight` per line, e.g. `Shake It Off = 3`\n")
	content.WriteString("#    - Weight 0 removes a track from the shuffle\n")
	content.WriteString("#    - `bettershuffle tracks --unmatched` lists lines that match nothing\n")
	content.WriteString("#\n")
	content.WriteString("# 3. RUN:\n")
	content.WriteString("#    bettershuffle queue      # keep the live queue topped up\n")
	content.WriteString("#    bettershuffle playlist   # write the weighted playlist once\n")
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func getDefaultValueString(cmd *cobra.Command, flagName string) string {
	if f := cmd.PersistentFlags().Lookup(flagName); f != nil {
		return f.DefValue
	}
	return ""
}

func getUsageString(cmd *cobra.Command, flagName string) string {
	if f := cmd.PersistentFlags().Lookup(flagName); f != nil {
		return f.Usage
	}
	return ""
}
