package utils

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/meysamhadeli/corpus/constants/lipgloss"
)

// ConfirmPrompt asks a yes/no question and reads the answer from reader.
// Anything other than "y" or "yes" is a refusal.
func ConfirmPrompt(question string, reader *bufio.Reader, w io.Writer) (bool, error) {
	fmt.Fprint(w, lipgloss.BlueSky.Render(fmt.Sprintf("%s (y/N): ", question)))

	response, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("error reading input: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}
