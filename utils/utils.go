package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Commands the CLI understands.
var commands = []string{
	"scan", "backfill", "rehash", "similar", "groups", "exact", "morelike", "stats", "tag", "exclude",
}

// ParseArguments converts command-line arguments into a map of flags and
// values. The first bare word matching a known command lands under "command".
func ParseArguments() map[string]string {
	args := make(map[string]string)

	command := ""
	commandIndex := -1
	for i := 1; i < len(os.Args); i++ {
		for _, c := range commands {
			if os.Args[i] == c {
				command = c
				commandIndex = i
				break
			}
		}
		if command != "" {
			break
		}
	}

	if command != "" {
		args["command"] = command
	}

	for i := 1; i < len(os.Args); i++ {
		if i == commandIndex {
			continue
		}

		arg := os.Args[i]

		// Handle flags with equals sign (--key=value)
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			flagName := strings.TrimPrefix(parts[0], "--")
			args[flagName] = parts[1]
			continue
		}

		// Handle flags without equals sign (--key value)
		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")

			// Boolean flag when no value follows
			if i+1 >= len(os.Args) || strings.HasPrefix(os.Args[i+1], "--") {
				args[flagName] = "true"
			} else {
				args[flagName] = os.Args[i+1]
				i++
			}
		}
	}

	return args
}

// GetDefaultDatabasePath returns the default path for the database file.
func GetDefaultDatabasePath() string {
	exePath, err := os.Executable()
	if err != nil {
		return "medialib.db"
	}
	return filepath.Join(filepath.Dir(exePath), "medialib.db")
}

// IntArg reads an integer flag, falling back to def when absent or invalid.
func IntArg(args map[string]string, key string, def int) int {
	raw, ok := args[key]
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		fmt.Printf("Warning: invalid value for --%s: %q, using %d\n", key, raw, def)
		return def
	}
	return v
}

// Int64Arg reads an id flag. The second return is false when the flag is
// absent or not a number.
func Int64Arg(args map[string]string, key string) (int64, bool) {
	raw, ok := args[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PrintUsage outputs the command-line usage instructions.
func PrintUsage() {
	fmt.Printf("Usage:\n")
	fmt.Printf("  %s scan --folder=PATH [--rehash] [--workers=N]\n", os.Args[0])
	fmt.Printf("  %s backfill [--limit=N]\n", os.Args[0])
	fmt.Printf("  %s rehash --id=ID\n", os.Args[0])
	fmt.Printf("  %s similar --id=ID [--threshold=N] [--limit=N] [--same-kind]\n", os.Args[0])
	fmt.Printf("  %s groups [--threshold=N] [--min-size=N]\n", os.Args[0])
	fmt.Printf("  %s exact\n", os.Args[0])
	fmt.Printf("  %s morelike --id=ID [--limit=N]\n", os.Args[0])
	fmt.Printf("  %s stats\n", os.Args[0])
	fmt.Printf("  %s tag --id=ID --name=TAG\n", os.Args[0])
	fmt.Printf("  %s exclude --id=ID [--undo]\n", os.Args[0])
	fmt.Printf("\nParameters:\n")
	fmt.Printf("  --folder      : Path to folder containing media to index\n")
	fmt.Printf("  --database    : Path to database file (default: %s)\n", GetDefaultDatabasePath())
	fmt.Printf("  --config      : Path to YAML config file\n")
	fmt.Printf("  --id          : Media item id\n")
	fmt.Printf("  --threshold   : Similarity threshold, 0-100\n")
	fmt.Printf("  --limit       : Maximum number of results\n")
	fmt.Printf("  --min-size    : Minimum duplicate group size (default: 2)\n")
	fmt.Printf("  --same-kind   : Only match items of the same media kind\n")
	fmt.Printf("  --rehash      : Clear stored fingerprints during scan\n")
	fmt.Printf("  --workers     : Concurrent scan workers\n")
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  %s scan --folder=/media/library\n", os.Args[0])
	fmt.Printf("  %s backfill\n", os.Args[0])
	fmt.Printf("  %s similar --id=42 --threshold=90\n", os.Args[0])
}
