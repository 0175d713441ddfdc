// Package terminal reads credentials from the user and tidies up prompts
// afterwards.
package terminal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

func width() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// linesFor returns how many terminal lines textLength characters occupy at the
// given width, plus the line Enter leaves the cursor on.
func linesFor(textLength, width int) int {
	if width <= 0 {
		width = 80
	}
	n := (textLength + width - 1) / width
	if n < 1 {
		n = 1
	}
	return n + 1
}

// ClearPreviousLines erases the last textLength characters printed (prompt plus
// answer) together with the line Enter moved the cursor to.
func ClearPreviousLines(textLength int) {
	n := linesFor(textLength, width())
	for i := 0; i < n; i++ {
		fmt.Print("\r\x1b[2K")
		if i < n-1 {
			fmt.Print("\x1b[1A")
		}
	}
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Prompt prints prompt and reads one line from in.
func Prompt(in io.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ReadPassword prints prompt and reads a line from the terminal without echo.
func ReadPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
