package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/eris/internal/discord"
)

var (
	signSeed      string
	signTimestamp string
	signBody      string
)

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	keyColor   = color.New(color.FgGreen)
	dimColor   = color.New(color.FgHiBlack)
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign an interaction payload the way Discord does",
	Long: `Signs a request body with an Ed25519 seed and prints the signature headers
the webhook endpoint expects. The body is read from --body or stdin.

Examples:
  eris-cli sign --seed $SEED --body '{"type":1}'
  echo '{"type":1}' | eris-cli sign --seed $SEED`,
	Args: cobra.NoArgs,
	RunE: runSign,
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an Ed25519 seed and its public key for local testing",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		pub, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			return err
		}
		titleColor.Println("Ed25519 key pair")
		fmt.Printf("  seed:       %s\n", keyColor.Sprint(hex.EncodeToString(priv.Seed())))
		fmt.Printf("  public key: %s\n", keyColor.Sprint(hex.EncodeToString(pub)))
		dimColor.Println("Set DISCORD_PUBLIC_KEY to the public key and pass the seed to `eris-cli sign`.")
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	signCmd.Flags().StringVarP(&signSeed, "seed", "s", os.Getenv("ERIS_SIGNING_SEED"), "hex encoded 32 byte Ed25519 seed")
	signCmd.Flags().StringVarP(&signTimestamp, "timestamp", "t", "", "signature timestamp (default: now)")
	signCmd.Flags().StringVarP(&signBody, "body", "b", "", "request body (default: stdin)")
	rootCmd.AddCommand(signCmd, keygenCmd)
}

func runSign(cmd *cobra.Command, _ []string) error {
	key, err := signingKey(signSeed)
	if err != nil {
		return err
	}

	body := []byte(signBody)
	if signBody == "" {
		body, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read body: %w", err)
		}
	}

	timestamp := signTimestamp
	if timestamp == "" {
		timestamp = strconv.FormatInt(time.Now().Unix(), 10)
	}

	header := discord.Sign(key, timestamp, body)
	titleColor.Println("Signature headers")
	for _, name := range []string{discord.HeaderSignature, discord.HeaderTimestamp} {
		fmt.Printf("  %s: %s\n", name, keyColor.Sprint(header.Get(name)))
	}
	dimColor.Printf("Public key: %s\n", hex.EncodeToString(key.Public().(ed25519.PublicKey)))
	return nil
}

func signingKey(seedHex string) (ed25519.PrivateKey, error) {
	if seedHex == "" {
		return nil, errors.New("a seed is required (--seed or ERIS_SIGNING_SEED)")
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("seed is not hex: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
