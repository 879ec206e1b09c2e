package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner with the running version.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Canopy-to-trunk green gradient
	s1 := termenv.String("  _                 _                    ").Foreground(p.Color("#86efac"))
	s2 := termenv.String(" | |_ _ __ ___  ___| | __ _ _ __   __ _  ").Foreground(p.Color("#4ade80"))
	s3 := termenv.String(" | __| '__/ _ \\/ _ \\ |/ _` | '_ \\ / _` | ").Foreground(p.Color("#22c55e"))
	s4 := termenv.String(" | |_| | |  __/  __/ | (_| | | | | (_| | ").Foreground(p.Color("#16a34a"))
	s5 := termenv.String("  \\__|_|  \\___|\\___|_|\\__,_|_| |_|\\__, | ").Foreground(p.Color("#15803d"))
	s6 := termenv.String("                                  |___/  ").Foreground(p.Color("#166534"))
	tag := termenv.String(fmt.Sprintf("  v%s", version)).Faint()

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println(s6)
	fmt.Println(tag)
	fmt.Println()
}
