package contract

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// PromptConfirmation reads the confirmation token as one line from In after writing
// the prompt to Out.
type PromptConfirmation struct {
	In  io.Reader
	Out io.Writer
}

var _ ConfirmationSource = &PromptConfirmation{} // Compile-time check

// Confirm implements the ConfirmationSource interface.
func (p *PromptConfirmation) Confirm(prompt string) (string, error) {
	if p.Out != nil {
		if _, err := fmt.Fprint(p.Out, prompt); err != nil {
			return "", err
		}
	}
	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if errors.Is(err, io.EOF) && line == "" {
		return "", fmt.Errorf("no confirmation given: %w", io.ErrUnexpectedEOF)
	}
	return strings.TrimSpace(line), nil
}

// StaticConfirmation always answers with the same token. It is used where no operator
// can be asked, for example over MCP, where it answers "no".
type StaticConfirmation string

var _ ConfirmationSource = StaticConfirmation("") // Compile-time check

// Confirm implements the ConfirmationSource interface.
func (s StaticConfirmation) Confirm(string) (string, error) {
	return string(s), nil
}
