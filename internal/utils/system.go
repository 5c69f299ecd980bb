package utils

import (
	"os/user"
	"runtime"
)

// GetUsername returns the current username.
func GetUsername() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

// ShellCommand returns the argv that runs one command line through the
// platform shell.
func ShellCommand(line string) []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/c", line}
	}
	return []string{"bash", "-c", line}
}
