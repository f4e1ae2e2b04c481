package main

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

var passwordFile string

// readPassphrase returns the passphrase from --password-file, or prompts
// for it without echo
func readPassphrase(prompt string) (string, error) {
	if passwordFile != "" {
		return readPasswordFile(passwordFile)
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal (use --password-file)")
	}

	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(pass), nil
}

// readPasswordFile returns the first line of path
func readPasswordFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read password file: %w", err)
	}

	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimRight(line, "\r"), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&passwordFile, "password-file", "", "read the account passphrase from the first line of this file")
}
