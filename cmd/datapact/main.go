package main

import (
	"fmt"
	"os"
	"strings"
)

const usageText = `datapact - validation gates for tabular data pipelines

Usage:
  datapact check    [-conf <dir>] [-suites <dir>]
  datapact validate [-conf <dir>] [-suites <dir>] -dataset <name> [-run-id <id>] [-reports <dir>]
  datapact copy     [-conf <dir>] [-suites <dir>] -from <name> -to <name> [-run-id <id>] [-reports <dir>]

Commands:
  check     verify configuration: catalog entries, annotations, suites
  validate  load one dataset through its validation gates
  copy      move a dataset through the gates on both sides

Environment:
  DATAPACT_CONF_DIR       catalog configuration directory (default "conf")
  DATAPACT_SUITES_DIR     expectation suite directory (default "suites")
  DATAPACT_REPORTS_DIR    report directory for the filesystem store (default "reports")
  DATAPACT_REPORTS_S3     "true" to archive reports in the object store instead
  DATAPACT_DATABASE_URL   postgres connection string, wires postgres datasets
  DATAPACT_S3_ENDPOINT    object store endpoint, wires object datasets
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "check":
		runCheck(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "copy":
		runCopy(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usageText)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func die(step string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", step, err)
	os.Exit(1)
}
