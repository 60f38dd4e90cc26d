package validation

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/alexisbeaulieu97/converge/internal/system"
)

// CheckCommandExists verifies a command resolves in the shell's PATH.
func CheckCommandExists(ctx context.Context, runner system.Runner, command string) error {
	if command == "" {
		return fmt.Errorf("command name is required")
	}

	_, err := runner.Run(ctx, system.Command{Name: "sh", Args: []string{"-c", "command -v " + command}})
	if err != nil {
		if _, isExit := system.ExitCode(err); isExit {
			return fmt.Errorf("command %s not found", command)
		}
		return err
	}
	return nil
}

// CheckFileExists verifies a file or directory exists at the given path.
func CheckFileExists(state system.State, path string) error {
	if path == "" {
		return fmt.Errorf("path is required")
	}

	file, err := state.FileExists(path)
	if err != nil {
		return err
	}
	if file {
		return nil
	}
	dir, err := state.DirectoryExists(path)
	if err != nil {
		return err
	}
	if !dir {
		return fmt.Errorf("path %s does not exist", path)
	}
	return nil
}

// CheckPathContains verifies that file matches the provided pattern.
func CheckPathContains(path, text string) error {
	if path == "" {
		return fmt.Errorf("file path is required")
	}
	if text == "" {
		return fmt.Errorf("text is required")
	}

	pattern, err := regexp.Compile(text)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if !pattern.Match(data) {
		return fmt.Errorf("pattern %q not found in %s", text, path)
	}
	return nil
}
