package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

func installServiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install relaybot as a user service (launchd/systemd)",
		Long:  "Generates and installs a service file that keeps the bot running. The service starts in the current directory so it picks up the same .env file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			execPath, err := os.Executable()
			if err != nil {
				return fmt.Errorf("cannot determine executable path: %w", err)
			}
			workDir, err := os.Getwd()
			if err != nil {
				return err
			}
			args = serviceArgs(workDir)

			switch runtime.GOOS {
			case "darwin":
				return installLaunchd(execPath, workDir, args)
			case "linux":
				return installSystemd(execPath, workDir, args)
			default:
				return fmt.Errorf("unsupported OS: %s (supported: darwin, linux)", runtime.GOOS)
			}
		},
	}
}

func uninstallServiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the relaybot user service",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch runtime.GOOS {
			case "darwin":
				return uninstallLaunchd()
			case "linux":
				return uninstallSystemd()
			default:
				return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
			}
		},
	}
}

// serviceArgs returns the flags the service passes to the bot, with paths
// made absolute against workDir.
func serviceArgs(workDir string) []string {
	abs := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(workDir, p)
	}
	var args []string
	if configPath != "" {
		args = append(args, "--config", abs(configPath))
	}
	if envFile != "" {
		args = append(args, "--env-file", abs(envFile))
	}
	return args
}

const launchdLabel = "com.relaybot.bot"

func installLaunchd(execPath, workDir string, args []string) error {
	home, _ := os.UserHomeDir()
	plistDir := filepath.Join(home, "Library", "LaunchAgents")
	plistPath := filepath.Join(plistDir, launchdLabel+".plist")
	logDir := filepath.Join(home, "Library", "Logs", "relaybot")

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}

	var progArgs strings.Builder
	for _, a := range append([]string{execPath}, args...) {
		fmt.Fprintf(&progArgs, "        <string>%s</string>\n", a)
	}

	plist := strings.NewReplacer(
		"{{LABEL}}", launchdLabel,
		"{{ARGS}}", progArgs.String(),
		"{{WORKDIR}}", workDir,
		"{{LOG}}", filepath.Join(logDir, "relaybot.log"),
		"{{ERR_LOG}}", filepath.Join(logDir, "relaybot-error.log"),
	).Replace(launchdTemplate)

	if err := os.MkdirAll(plistDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(plistPath, []byte(plist), 0o644); err != nil {
		return err
	}

	fmt.Printf("Service installed: %s\n", plistPath)
	fmt.Printf("To start: launchctl load %s\n", plistPath)
	fmt.Printf("To stop:  launchctl unload %s\n", plistPath)
	return nil
}

func uninstallLaunchd() error {
	home, _ := os.UserHomeDir()
	plistPath := filepath.Join(home, "Library", "LaunchAgents", launchdLabel+".plist")
	if err := os.Remove(plistPath); err != nil {
		return fmt.Errorf("remove plist: %w", err)
	}
	fmt.Printf("Service uninstalled: %s\n", plistPath)
	return nil
}

func installSystemd(execPath, workDir string, args []string) error {
	home, _ := os.UserHomeDir()
	unitDir := filepath.Join(home, ".config", "systemd", "user")
	unitPath := filepath.Join(unitDir, "relaybot.service")

	if err := os.MkdirAll(unitDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(unitPath, []byte(systemdUnit(execPath, workDir, args)), 0o644); err != nil {
		return err
	}

	fmt.Printf("Service installed: %s\n", unitPath)
	fmt.Printf("To start:  systemctl --user start relaybot\n")
	fmt.Printf("To enable: systemctl --user enable relaybot\n")
	fmt.Printf("To stop:   systemctl --user stop relaybot\n")
	return nil
}

func uninstallSystemd() error {
	home, _ := os.UserHomeDir()
	unitPath := filepath.Join(home, ".config", "systemd", "user", "relaybot.service")
	if err := os.Remove(unitPath); err != nil {
		return fmt.Errorf("remove unit: %w", err)
	}
	fmt.Printf("Service uninstalled: %s\n", unitPath)
	return nil
}

func systemdUnit(execPath, workDir string, args []string) string {
	return strings.NewReplacer(
		"{{EXEC}}", strings.Join(append([]string{execPath}, args...), " "),
		"{{WORKDIR}}", workDir,
	).Replace(systemdTemplate)
}

const launchdTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{LABEL}}</string>
    <key>ProgramArguments</key>
    <array>
{{ARGS}}    </array>
    <key>WorkingDirectory</key>
    <string>{{WORKDIR}}</string>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{LOG}}</string>
    <key>StandardErrorPath</key>
    <string>{{ERR_LOG}}</string>
</dict>
</plist>`

const systemdTemplate = `[Unit]
Description=relaybot Discord relay bot
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
WorkingDirectory={{WORKDIR}}
ExecStart={{EXEC}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target`
