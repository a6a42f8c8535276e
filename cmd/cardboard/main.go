package main

import (
	"os"
	"strings"

	"cardboard/internal/cli"
)

func isCardID(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "card-") && len(s) > len("card-")
}

// rewriteCardLookupArgs turns `cardboard [flags] <card-id>` into
// `cardboard [flags] cards show <card-id>`. Cobra would otherwise take the id
// for a subcommand.
func rewriteCardLookupArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}
	valueFlags := map[string]bool{
		"--dir":    true,
		"--page":   true,
		"--remote": true,
		"--format": true,
	}
	boolFlags := map[string]bool{
		"--pretty":  true,
		"--verbose": true,
		"-v":        true,
	}

	rewrite := func(at int) []string {
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:at]...)
		out = append(out, "cards", "show")
		return append(out, argv[at:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		switch {
		case a == "":
			continue
		case a == "--":
			if i+1 < len(argv) && isCardID(argv[i+1]) {
				return rewrite(i + 1)
			}
			return argv
		case strings.HasPrefix(a, "-"):
			// Unknown flags are skipped without their value so a card id
			// after them is not swallowed.
			if !strings.Contains(a, "=") && !boolFlags[a] && valueFlags[a] {
				i++
			}
			continue
		case isCardID(a):
			return rewrite(i)
		default:
			return argv
		}
	}
	return argv
}

func main() {
	os.Args = rewriteCardLookupArgs(os.Args)

	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
