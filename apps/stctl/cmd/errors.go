package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quatton/skintwin/pkg/stsdk/sterr"
)

// friendlyError turns SDK errors into guidance for the terminal.
func friendlyError(err error) error {
	if err == nil {
		return nil
	}
	switch sterr.CodeOf(err) {
	case sterr.CodeUnauthorized:
		return fmt.Errorf("authentication required: run 'stctl auth login' (%v)", err)
	case sterr.CodeRefreshFailed, sterr.CodeExpiredToken:
		return fmt.Errorf("session expired: run 'stctl auth login' (%v)", err)
	case sterr.CodeInvalidCredentials:
		return fmt.Errorf("login failed: check your username and password (%v)", err)
	case sterr.CodeNetwork, sterr.CodeTimeout:
		return fmt.Errorf("cannot reach the API, check --base-url (%v)", err)
	case sterr.CodeValidation, sterr.CodeDuplicateIdentity:
		if fields := sterr.FieldsOf(err); len(fields) > 0 {
			return fmt.Errorf("%v\n%s", err, formatFields(fields))
		}
	}
	return err
}

func formatFields(fields map[string][]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "  %s: %s\n", name, strings.Join(fields[name], " "))
	}
	return strings.TrimRight(b.String(), "\n")
}
