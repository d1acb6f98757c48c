package platform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/glabrego/conch/internal/blast"
	"github.com/glabrego/conch/internal/render/text"
)

// ErrNoClipboard is returned when no clipboard utility is available.
var ErrNoClipboard = errors.New("no clipboard command available")

func CopyToClipboard(s string) error {
	if clipboard.Unsupported {
		return ErrNoClipboard
	}
	if err := clipboard.WriteAll(s); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

// YankText is what gets copied for a blast: its author and flattened
// content.
func YankText(b blast.Blast) string {
	return strings.TrimSpace(b.Author) + ": " + text.Flatten(b.Content)
}
