package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/xkilldash9x/workd-cli/internal/portal"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// promptCredential asks for the portal login on out. The identifier is read
// from in; the secret is read from the terminal without echo.
func promptCredential(in io.Reader, out io.Writer) (portal.Credential, error) {
	reader := bufio.NewReader(in)
	if _, err := fmt.Fprint(out, "workD username: "); err != nil {
		return portal.Credential{}, err
	}
	identifier, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && identifier != "") {
		return portal.Credential{}, fmt.Errorf("failed to read username: %w", err)
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return portal.Credential{}, portal.ArgumentError("username must not be empty")
	}

	if _, err := fmt.Fprint(out, "workD password: "); err != nil {
		return portal.Credential{}, err
	}
	secret, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return portal.Credential{}, fmt.Errorf("failed to read password: %w", err)
	}
	return portal.Credential{Identifier: identifier, Secret: string(secret)}, nil
}
