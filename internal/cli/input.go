package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// GetSimpleText prints a prompt to w and reads a single line of input
// from reader. The trailing newline is trimmed. If EOF occurs after
// some input was read, the partial line is returned.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetDecimal reads a money amount. An empty line returns the fallback
// value, which keeps optional amounts (moratory) a single keystroke.
func GetDecimal(reader *bufio.Reader, prompt string, fallback decimal.Decimal, w io.Writer) (decimal.Decimal, error) {
	line, err := GetSimpleText(reader, prompt, w)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if line == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(line)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("not a valid amount: %q", line)
	}
	return d, nil
}

// GetChoice reads one of the allowed options, returning the fallback
// on an empty line.
func GetChoice(reader *bufio.Reader, prompt string, options []string, fallback string, w io.Writer) (string, error) {
	line, err := GetSimpleText(reader, fmt.Sprintf("%s [%s]", prompt, strings.Join(options, "/")), w)
	if err != nil {
		return "", err
	}
	if line == "" {
		return fallback, nil
	}
	for _, o := range options {
		if strings.EqualFold(line, o) {
			return o, nil
		}
	}
	return "", fmt.Errorf("invalid option %q", line)
}
