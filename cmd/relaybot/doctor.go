package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"relaybot/internal/config"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks without connecting to Discord",
		Long: `Verifies that relaybot's configuration is valid, the bot token is set,
Ollama is reachable and the configured model is installed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runDoctor(ctx context.Context, out io.Writer) error {
	fmt.Fprintf(out, "relaybot doctor v%s\n", version)
	fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	passed, failed := 0, 0
	pass := func(check, detail string) { printPass(out, check, detail); passed++ }
	fail := func(check, detail string) { printFail(out, check, detail); failed++ }

	cfg, err := loadConfig()
	if err != nil {
		fail("Config", err.Error())
		return summarize(out, passed, failed)
	}
	pass("Config", "valid")

	ollama := newOllama(cfg)
	v := newValidator(cfg, ollama)

	if err := v.CheckCredential(); err != nil {
		fail("Discord token", err.Error())
	} else {
		pass("Discord token", config.Sanitize(cfg).Discord.Token)
	}

	start := time.Now()
	models, err := v.Probe(ctx)
	if err != nil {
		fail("Ollama", err.Error())
		return summarize(out, passed, failed)
	}
	pass("Ollama", fmt.Sprintf("%s (%d models, %s)", ollama.BaseURL(), len(models), time.Since(start).Round(time.Millisecond)))

	if err := v.CheckModel(models); err != nil {
		fail("Model", err.Error())
	} else {
		pass("Model", ollama.Model())
	}

	return summarize(out, passed, failed)
}

func summarize(out io.Writer, passed, failed int) error {
	fmt.Fprintf(out, "\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(out, "Results: %d passed, %d failed\n", passed, failed)
	if failed > 0 {
		fmt.Fprintf(out, "\nPlease fix the failed checks before running relaybot.\n")
		return fmt.Errorf("%d check(s) failed", failed)
	}
	fmt.Fprintf(out, "\nAll checks passed! relaybot is ready to run.\n")
	return nil
}

func printPass(out io.Writer, check, detail string) {
	fmt.Fprintf(out, "  [PASS] %-15s %s\n", check, detail)
}

func printFail(out io.Writer, check, detail string) {
	fmt.Fprintf(out, "  [FAIL] %-15s %s\n", check, detail)
}
