// Package gitutil shells out to the system git binary for everything dit
// needs to know about the repository it runs in: the toplevel directory,
// commit resolution, the user's git config, and writing the finished tag
// object into refs/tags.
package gitutil

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"dit/errs"
)

func run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", errs.New(errs.Subprocess, fmt.Sprintf("git %s", strings.Join(args, " ")), fmt.Errorf("%w: %s", err, stderr.String()))
	}
	return strings.TrimRight(stdout.String(), "\n"), nil
}

// RepoRoot returns the absolute path of the working tree's toplevel
// directory, i.e. `git rev-parse --show-toplevel`.
func RepoRoot() (string, error) {
	return run("rev-parse", "--show-toplevel")
}

// CommitHash resolves a revision (a ref, short hash, or HEAD-relative
// expression) to its full commit hash.
func CommitHash(rev string) (string, error) {
	return run("rev-parse", rev)
}

// Config reads the full set of effective git configuration key/value pairs
// (`git config -l`) into a flat map keyed by the dotted config name.
func Config() (map[string]string, error) {
	out, err := run("config", "-l")
	if err != nil {
		return nil, err
	}
	cfg := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		cfg[parts[0]] = parts[1]
	}
	return cfg, nil
}

// UserIdentity returns the tagger name and email from `user.name` and
// `user.email` in the effective git configuration.
func UserIdentity() (name, email string, err error) {
	cfg, err := Config()
	if err != nil {
		return "", "", err
	}
	return cfg["user.name"], cfg["user.email"], nil
}

// CreateTagString renders the canonical pre-image of an annotated tag
// object: the exact bytes that get hashed with `git hash-object -t tag`.
func CreateTagString(commit, tagName, tagMessage, taggerName, taggerEmail string, when time.Time) string {
	return fmt.Sprintf(
		"object %s\ntype commit\ntag %s\ntagger %s <%s> %d %s\n\n%s\n",
		commit, tagName, taggerName, taggerEmail, when.Unix(), when.Format("-0700"), tagMessage,
	)
}

// WriteTagObject hashes tagBody as a tag object (`git hash-object -t tag -w
// --stdin`) and writes the resulting hash as the ref `refs/tags/<tagName>`,
// making the tag visible to ordinary git commands.
func WriteTagObject(tagName, tagBody string) (string, error) {
	cmd := exec.Command("git", "hash-object", "-t", "tag", "-w", "--stdin")
	cmd.Stdin = strings.NewReader(tagBody)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", errs.New(errs.Subprocess, "git hash-object -t tag -w --stdin", fmt.Errorf("%w: %s", err, stderr.String()))
	}
	hash := strings.TrimRight(stdout.String(), "\n")

	root, err := RepoRoot()
	if err != nil {
		return "", err
	}
	refPath := filepath.Join(root, ".git", "refs", "tags", tagName)
	if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
		return "", errs.New(errs.FileSystem, "creating refs/tags directory", err)
	}
	if err := os.WriteFile(refPath, []byte(hash+"\n"), 0o644); err != nil {
		return "", errs.New(errs.FileSystem, "writing "+refPath, err)
	}
	return hash, nil
}
