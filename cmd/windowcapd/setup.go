package main

import (
	"fmt"
	"os"

	"github.com/allaspectsdev/windowcapd/internal/config"
	"github.com/allaspectsdev/windowcapd/internal/daemon"
)

func cmdStart(args []string) {
	foreground := false
	for _, a := range args {
		if a == "--foreground" || a == "-f" {
			foreground = true
		}
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := daemon.Run(cfg, foreground); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func cmdStop() {
	if err := daemon.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "error stopping daemon: %v\n", err)
		os.Exit(1)
	}
}

func cmdStatus() {
	if err := daemon.Status(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func cmdSetup(args []string) {
	nonInteractive := false
	for _, a := range args {
		if a == "--non-interactive" {
			nonInteractive = true
		}
	}

	if nonInteractive {
		if err := cmdInitConfigErr(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Setup complete. Run 'windowcapd start' to begin tracking windows.")
		return
	}

	fmt.Println("windowcapd Setup Wizard")
	fmt.Println("=======================")
	fmt.Println()

	if err := cmdInitConfigErr(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("The ingestion socket accepts payloads from the browser extension's")
	fmt.Println("native-messaging relay and the accessibility backend. An auth token")
	fmt.Println("can be stored for it; the socket does not check it.")
	fmt.Println()
	fmt.Println("To generate and store that token, run: windowcapd auth set")
	fmt.Println()
	fmt.Println("Setup complete. Run 'windowcapd start' to begin tracking windows.")
}

func cmdInitConfig() {
	if err := cmdInitConfigErr(); err != nil {
		fmt.Fprintf(os.Stderr, "error initializing config: %v\n", err)
		os.Exit(1)
	}
}

func cmdInitConfigErr() error {
	return config.InitConfig()
}

func cmdInstallService() {
	if err := daemon.InstallService(); err != nil {
		fmt.Fprintf(os.Stderr, "error installing service: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Service installed. It will start automatically on login.")
}

func cmdConfigExport(args []string) {
	path := "windowcapd-export.toml"
	if len(args) > 0 {
		path = args[0]
	}

	if _, err := config.Load(""); err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := config.ExportConfig(path); err != nil {
		fmt.Fprintf(os.Stderr, "error exporting config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Config exported to %s\n", path)
}

func cmdConfigImport(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: windowcapd config-import <path>")
		os.Exit(1)
	}
	if err := config.ImportConfig(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "error importing config: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Config imported successfully")
}
