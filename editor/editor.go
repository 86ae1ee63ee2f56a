// Package editor launches the user's configured editor to compose the body
// of an annotated tag, the way `git tag -a` drops the user into $EDITOR.
package editor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"dit/errs"
	"dit/gitutil"
)

const tagMsgTemplate = `
# Write a message for tag:
#   %s
# Lines starting with '#' will be ignored.`

// editorCommand picks the editor to invoke: `git config core.editor`,
// falling back to $EDITOR, then to vi.
func editorCommand() (string, error) {
	cfg, err := gitutil.Config()
	if err == nil {
		if e, ok := cfg["core.editor"]; ok && e != "" {
			return e, nil
		}
	}
	if e := os.Getenv("EDITOR"); e != "" {
		return e, nil
	}
	return "vi", nil
}

// TagMessage opens the user's editor against a scratch file pre-populated
// with a comment header naming tagName, then returns the composed message
// with comment lines stripped — the same flow as `git tag -a`.
func TagMessage(tagName string) (string, error) {
	root, err := gitutil.RepoRoot()
	if err != nil {
		return "", err
	}
	path := filepath.Join(root, ".git", "TAG_EDITMSG")
	seed := fmt.Sprintf(tagMsgTemplate, tagName)
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		return "", errs.New(errs.FileSystem, "writing "+path, err)
	}
	defer os.Remove(path)

	editorBin, err := editorCommand()
	if err != nil {
		return "", err
	}
	cmd := exec.Command(editorBin, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", errs.New(errs.Subprocess, "launching editor "+editorBin, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", errs.New(errs.FileSystem, "reading "+path, err)
	}
	return stripComments(string(raw)), nil
}

// stripComments removes lines beginning with '#', the way git tag message
// editing discards its instructional header.
func stripComments(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
