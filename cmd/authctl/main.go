package main

import (
	"fmt"
	"os"
	"path/filepath"

	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/pflag"

	auth "github.com/furfightclub/ffc-auth-service"
	"github.com/furfightclub/ffc-auth-service/config"
)

const usage = `usage: authctl <command> [flags]

commands:
  keygen          write a new RSA key pair
  service-token   print a service token for the configured service
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "keygen":
		err = keygen(os.Args[2:])
	case "service-token":
		err = serviceToken(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func keygen(args []string) error {
	flags := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
	out := flags.String("out", "ssl", "output directory")
	bits := flags.Int("bits", auth.DefaultKeyBits, "RSA modulus size")
	force := flags.Bool("force", false, "overwrite existing files")
	if err := flags.Parse(args); err != nil {
		return err
	}

	privPath := filepath.Join(*out, "private.pem")
	pubPath := filepath.Join(*out, "public.pem")

	if !*force {
		for _, path := range []string{privPath, pubPath} {
			if _, err := os.Stat(path); err == nil {
				return goerrors.New(fmt.Sprintf("%s already exists, use --force to overwrite", path), goerrors.CategoryConflict)
			}
		}
	}

	key, err := auth.GenerateKey(*bits)
	if err != nil {
		return err
	}

	pub, err := auth.EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*out, 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(privPath, auth.EncodePrivateKeyPEM(key), 0o600); err != nil {
		return err
	}
	if err := os.WriteFile(pubPath, pub, 0o644); err != nil {
		return err
	}

	kid, err := auth.KeyID(&key.PublicKey)
	if err != nil {
		return err
	}

	fmt.Printf("wrote %s and %s (kid %s)\n", privPath, pubPath, kid)
	return nil
}

func serviceToken(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	keys, err := auth.LoadKeySet(cfg.Auth.KeyPaths())
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenService(keys, cfg.Auth)
	if err != nil {
		return err
	}

	token, err := tokens.IssueServiceToken()
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
