package display

import (
	_ "embed"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
)

//go:embed banner.txt
var bannerRaw string

// RenderBanner returns the banner art centred for the given width. A
// non-positive width uses the terminal's.
func RenderBanner(width int) string {
	if width <= 0 {
		width = termWidth()
	}

	lines := strings.Split(strings.TrimRight(bannerRaw, "\n"), "\n")

	widest := 0
	for _, l := range lines {
		if len(l) > widest {
			widest = len(l)
		}
	}
	if widest > width {
		return BannerStyle.Render("OttoBoard")
	}

	pad := strings.Repeat(" ", (width-widest)/2)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = pad + BannerStyle.Render(l)
	}
	return strings.Join(out, "\n")
}

// termWidth returns the current terminal column count, or 80 as fallback.
func termWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return 80
}
