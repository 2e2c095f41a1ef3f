package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"relaybot/internal/config"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive setup: bot token → Ollama URL → model → save .env",
		Long:  "Prompts for the Discord bot token and Ollama settings and writes them to the file named by --env-file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(envFile); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", envFile)
			}
			cfg, err := runInit(cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := config.WriteDotEnv(envFile, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nSettings saved to %s\n", envFile)
			fmt.Fprintln(cmd.OutOrStdout(), "Next: run 'relaybot doctor' to check them, then 'relaybot' to start the bot.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// runInit asks for each setting in turn. An empty answer keeps the default.
func runInit(in io.Reader, out io.Writer) (*config.Config, error) {
	cfg := config.Defaults()
	reader := bufio.NewReader(in)
	prompt := func(label, def string) (string, error) {
		if def != "" {
			fmt.Fprintf(out, "%s [%s]: ", label, def)
		} else {
			fmt.Fprintf(out, "%s: ", label)
		}
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		s := strings.TrimSpace(line)
		if s == "" {
			return def, nil
		}
		return s, nil
	}

	fmt.Fprintln(out, "\n--- Step 1: Discord ---")
	fmt.Fprintln(out, "Create a bot at https://discord.com/developers/applications and enable the Message Content intent.")
	token, err := prompt("Bot token", "")
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, errors.New("a bot token is required")
	}
	cfg.Discord.Token = token

	fmt.Fprintln(out, "\n--- Step 2: Ollama ---")
	if cfg.Ollama.APIURL, err = prompt("Generate endpoint", cfg.Ollama.APIURL); err != nil {
		return nil, err
	}
	if cfg.Ollama.Model, err = prompt("Model", cfg.Ollama.Model); err != nil {
		return nil, err
	}
	timeout, err := prompt("Request timeout", cfg.Ollama.Timeout.String())
	if err != nil {
		return nil, err
	}
	if cfg.Ollama.Timeout, err = time.ParseDuration(timeout); err != nil {
		return nil, fmt.Errorf("invalid timeout %q: %w", timeout, err)
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}
