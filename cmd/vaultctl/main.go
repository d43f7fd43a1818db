package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"vaultchain/cmd/internal/passphrase"
	cdperrors "vaultchain/core/errors"
	"vaultchain/crypto"
	vaultotel "vaultchain/observability/otel"
)

const defaultConfig = "./config.toml"

// command is one vaultctl subcommand. flags registers the command's flags
// and returns the action to run once they are parsed.
type command struct {
	name         string
	summary      string
	needsRuntime bool
	flags        func(fs *flag.FlagSet) func(ctx context.Context, env *invocation) error
}

// invocation carries the per-run state handed to a command.
type invocation struct {
	rt      *runtime
	caller  func() (crypto.Address, error)
	passEnv string
	out     io.Writer
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}
	cmd, ok := commands()[args[0]]
	if !ok {
		usage(stderr)
		return 2
	}

	fs := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfig, "Path to the vaultchain config file")
	keystorePath := fs.String("keystore", "", "Keystore holding the caller key (defaults to KeystorePath)")
	passEnv := fs.String("pass-env", passphrase.DefaultEnv, "Environment variable containing the keystore passphrase")
	action := cmd.flags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	env := &invocation{out: stdout, passEnv: *passEnv}
	if cmd.needsRuntime {
		rt, err := openRuntime(ctx, *configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		defer rt.Close(ctx)
		env.rt = rt
		env.caller = func() (crypto.Address, error) {
			path := *keystorePath
			if path == "" {
				path = rt.cfg.KeystorePath
			}
			return signer(path, *passEnv)
		}
	}

	spanCtx, span := vaultotel.StartCommand(ctx, cmd.name)
	err := action(spanCtx, env)
	vaultotel.EndCommand(span, err)
	if err != nil {
		if kind := cdperrors.KindOf(err); kind != cdperrors.KindInternal {
			fmt.Fprintf(stderr, "Error: %s: %v\n", kind, err)
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: vaultctl <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	all := commands()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %s\n", name, all[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'vaultctl <command> -h' for command flags.")
}
