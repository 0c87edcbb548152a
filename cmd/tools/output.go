package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/lychee-technology/kindgen/internal"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
)

// confirm asks a yes/no question on the terminal. Replaced in tests.
var confirm = func(message string) (bool, error) {
	ok := false
	prompt := &survey.Confirm{Message: message, Default: true}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

func printSuccess(w io.Writer, format string, args ...any) {
	okColor.Fprint(w, "✔ ")
	fmt.Fprintf(w, format+"\n", args...)
}

// reportFailure prints err and returns errReported so run exits 1 without printing it again.
func reportFailure(w io.Writer, err error) error {
	failColor.Fprint(w, "✘ ")
	fmt.Fprintln(w, err)
	return errReported
}

// ensureOutputDir makes sure dir exists, asking before creating it unless assumeYes is set.
// S3 locations are created by the artifact store itself.
func ensureOutputDir(dir string, assumeYes bool) error {
	if dir == "" || strings.HasPrefix(dir, internal.S3URIPrefix) {
		return nil
	}

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return fmt.Errorf("output path %s is not a directory", dir)
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("cannot access output directory %s: %w", dir, err)
	}

	if !assumeYes {
		ok, err := confirm(fmt.Sprintf("Output directory %s does not exist. Create it?", dir))
		if err != nil {
			return fmt.Errorf("output directory %s does not exist: %w", dir, err)
		}
		if !ok {
			return fmt.Errorf("output directory %s does not exist", dir)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return nil
}
