// Command dit wraps a repository's normal git workflow with distributed
// key generation and threshold-signed annotated tags. Anything that isn't
// one of its own subcommands is forwarded verbatim to the system git
// binary, stdio inherited, so dit can sit in front of a user's ordinary
// git muscle memory without getting in the way.
package main

import (
	"crypto/sha256"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/bfix/gospel/logger"
	"github.com/urfave/cli/v2"

	"dit/config"
	"dit/editor"
	"dit/errs"
	"dit/gitutil"
	"dit/keystore"
	"dit/pgp"
	"dit/rendezvous"
	"dit/rendezvous/channel"
	"dit/tss/keygen"
	"dit/tss/party"
	"dit/tss/signing"
)

func main() {
	app := &cli.App{
		Name:  "dit",
		Usage: "git with threshold-signed tags",
		Commands: []*cli.Command{
			keygenCommand(),
			startTagCommand(),
		},
		CommandNotFound: func(cCtx *cli.Context, command string) {
			passthrough(cCtx.Args().Slice())
		},
	}
	if err := app.Run(os.Args); err != nil {
		// a repository with no config.toml, or a rendezvous server dit
		// can't reach, is not a dit failure: the tool degrades to plain
		// git passthrough rather than blocking the user's workflow.
		if shouldDegradeToPassthrough(err) {
			passthrough(os.Args[1:])
		}
		printErr(err)
		os.Exit(1)
	}
}

// shouldDegradeToPassthrough reports whether err is the kind of failure
// that should fall back to plain git instead of aborting: a missing
// config.toml (errConfigMissing) or any Connection-kind error, both of
// which mean dit has nothing useful to coordinate, not that the git
// operation itself failed.
func shouldDegradeToPassthrough(err error) bool {
	return errs.KindOf(err) == errs.Connection
}

// gitCommand builds the exec.Cmd passthrough runs: git invoked with args,
// inheriting this process's stdio.
func gitCommand(args []string) *exec.Cmd {
	cmd := exec.Command("git", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

// passthrough execs git with args, inheriting this process's stdio, and
// exits with git's own exit code. It never returns.
func passthrough(args []string) {
	if err := gitCommand(args).Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		printErr(errs.New(errs.Subprocess, "running git", err))
		os.Exit(1)
	}
	os.Exit(0)
}

func printErr(err error) {
	if e, ok := errs.As(err); ok {
		fmt.Fprintf(os.Stderr, "dit: %s: %s\n", e.Kind, e.Error())
		return
	}
	fmt.Fprintf(os.Stderr, "dit: %s\n", err)
}

// errConfigMissing signals that a repository has no config.toml. It is
// classified as a Connection-kind error: like an unreachable rendezvous
// server, it means dit has nothing to coordinate here, not that
// anything actually went wrong, so main() degrades to passthrough
// exactly the same way for both.
var errConfigMissing = errs.Newf(errs.Connection, "no config.toml in repository root; degrading to git passthrough")

// loadRepoConfig finds the repository root, loads config.toml from it into
// config.Cfg, and returns the root and the .dit state directory. A
// repository with no config.toml yields errConfigMissing rather than a
// fatal error, per spec: dit without a configured signing group is just
// git.
func loadRepoConfig() (root string, dir string, err error) {
	root, err = gitutil.RepoRoot()
	if err != nil {
		return "", "", err
	}
	cfgPath := filepath.Join(root, "config.toml")
	if _, statErr := os.Stat(cfgPath); statErr != nil {
		if os.IsNotExist(statErr) {
			return "", "", errConfigMissing
		}
		return "", "", errs.New(errs.FileSystem, "checking "+cfgPath, statErr)
	}
	if err := config.ParseConfig(cfgPath); err != nil {
		return "", "", err
	}
	dir, err = keystore.Dir(filepath.Join(root, ".git"))
	if err != nil {
		return "", "", err
	}
	return root, dir, nil
}

func keygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "run distributed key generation for this repository's signing group",
		Action: func(cCtx *cli.Context) error {
			_, dir, err := loadRepoConfig()
			if err != nil {
				return err
			}
			cfg := config.Cfg

			addr := fmt.Sprintf("http://%s:%d", cfg.Server.Address, cfg.Server.Port)
			admin := channel.New(addr, cfg.Project, 0)
			op, err := admin.StartOperation(rendezvous.Operation{
				Kind:         rendezvous.KindKeyGen,
				Participants: cfg.Participants,
				Threshold:    cfg.Threshold,
			})
			if err != nil {
				return err
			}

			signup, err := admin.SignupKeyGen()
			if err != nil {
				return err
			}
			logger.Printf(logger.INFO, "[dit] keygen %s: assigned party %d/%d\n", op.ID, signup.Number, cfg.Participants)

			ch := channel.New(addr, cfg.Project, signup.Number)
			kp, err := keygen.Run(ch, party.Parameters{Participants: cfg.Participants, Threshold: cfg.Threshold}, signup.Number)
			if err != nil {
				endFailedOperation(admin, err)
				return err
			}
			if err := keystore.SaveKeyPair(dir, kp); err != nil {
				return err
			}

			name, email, err := identity(cfg)
			if err != nil {
				return err
			}
			armored, keyID, err := certifyGroupKey(kp, name, email)
			if err != nil {
				return err
			}
			if err := keystore.SaveKeyFile(dir, armored, keyID); err != nil {
				return err
			}
			_ = admin.EndOperation()
			fmt.Printf("dit: key pair generated, key-id %x\n", keyID)
			return nil
		},
	}
}

func startTagCommand() *cli.Command {
	return &cli.Command{
		Name:      "start-tag",
		Usage:     "create a threshold-signed annotated tag",
		ArgsUsage: "<tag-name> [commit]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}},
			&cli.StringFlag{Name: "keyfile", Aliases: []string{"p"}},
		},
		Action: func(cCtx *cli.Context) error {
			tagName := cCtx.Args().Get(0)
			if tagName == "" {
				return errs.Newf(errs.User, "start-tag: tag name is required")
			}
			commit := cCtx.Args().Get(1)
			if commit == "" {
				commit = "HEAD"
			}

			_, dir, err := loadRepoConfig()
			if err != nil {
				return err
			}
			cfg := config.Cfg
			if override := cCtx.String("keyfile"); override != "" {
				dir = override
			}

			kp, err := keystore.LoadKeyPair(dir)
			if err != nil {
				return err
			}
			keyID, err := keystore.LoadKeyID(dir)
			if err != nil {
				return err
			}

			message := cCtx.String("message")
			if message == "" {
				message, err = editor.TagMessage(tagName)
				if err != nil {
					return err
				}
				if message == "" {
					return errs.Newf(errs.User, "start-tag: empty tag message, aborting")
				}
			}

			commitHash, err := gitutil.CommitHash(commit)
			if err != nil {
				return err
			}
			name, email, err := identity(cfg)
			if err != nil {
				return err
			}
			now := time.Now()
			preimage := gitutil.CreateTagString(commitHash, tagName, message, name, email, now)

			addr := fmt.Sprintf("http://%s:%d", cfg.Server.Address, cfg.Server.Port)
			admin := channel.New(addr, cfg.Project, 0)
			op, err := admin.StartOperation(rendezvous.Operation{
				Kind:      rendezvous.KindSignTag,
				Threshold: cfg.Threshold,
				Tag: &rendezvous.TagRecord{
					CreatorName: name, Email: email, Epoch: now.Unix(),
					Timezone: now.Format("-0700"), CommitHash: commitHash,
					TagName: tagName, Message: message,
				},
			})
			if err != nil {
				return err
			}

			signup, err := admin.SignupSign()
			if err != nil {
				return err
			}
			logger.Printf(logger.INFO, "[dit] start-tag %s: assigned signer %d\n", op.ID, signup.Number)

			ch := channel.New(addr, cfg.Project, signup.Number)
			signers := make([]int, cfg.Threshold+1)
			for i := range signers {
				signers[i] = i + 1
			}

			msg := pgp.NewTagMessage(uint32(now.Unix()))
			digest := sha256.Sum256(msg.HashPreimage([]byte(preimage)))

			result, err := signing.Run(ch, kp, signers, digest)
			if err != nil {
				endFailedOperation(admin, err)
				return err
			}
			msg.Signature.Finalize(keyID, [2]byte{digest[0], digest[1]}, result.R, result.S)

			tagBody := preimage + msg.Armored()
			if _, err := gitutil.WriteTagObject(tagName, tagBody); err != nil {
				_ = admin.EndOperation()
				return err
			}
			_ = admin.EndOperation()
			fmt.Printf("dit: tag %q created at %s\n", tagName, commitHash)
			return nil
		},
	}
}

// endFailedOperation ends admin's in-flight operation after a DKG or
// signing round failed. A Protocol-kind failure (a malformed share, a
// failing ZK proof, a peer's own abort) leaves the project in the
// terminal Blame state so anyone else polling it can see the round
// failed; anything else (most commonly a Connection blip) just returns
// the project to Idle, since the protocol itself never ran to a
// verdict.
func endFailedOperation(admin *channel.Channel, cause error) {
	if errs.KindOf(cause) == errs.Protocol {
		_ = admin.AbortOperation()
		return
	}
	_ = admin.EndOperation()
}

func identity(cfg *config.Config) (name, email string, err error) {
	if cfg.User != nil && cfg.User.Username != "" {
		return cfg.User.Username, cfg.User.Email, nil
	}
	return gitutil.UserIdentity()
}

// certifyGroupKey renders the group's public point as a bare armored
// OpenPGP public-key packet for external verifiers, and returns its
// key-ID. A full self-certification (PublicKey + UserID + Signature)
// would need its own threshold-signing round during keygen; dit only
// threshold-signs tags, so the key file stays an unsigned public key,
// the same way `gpg --export` without `--export-options export-minimal`
// still works without a self-signature being mandatory for verification.
func certifyGroupKey(kp *party.KeyPair, name, email string) (armored string, keyID []byte, err error) {
	pub := &pgp.PublicKey{CreatedAt: uint32(time.Now().Unix()), X: kp.GroupPublicKey.X, Y: kp.GroupPublicKey.Y}
	return pgp.Armor(pub.Formatted()), pub.KeyID(), nil
}
