package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"fleetguard/cmd/console/ui"
)

func main() {
	serverURL := flag.String("url", "http://127.0.0.1:9400", "Coordinator base URL")
	flag.Parse()

	p := tea.NewProgram(ui.NewRootModel(*serverURL), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "console: %v\n", err)
		os.Exit(1)
	}
}
