// ordforge-cli is a command-line client for operating the minting
// engine: cost estimates, commit target previews, key management and
// administrative collection resets.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/ordforge/ordforge/config"
	"github.com/ordforge/ordforge/internal/content"
	"github.com/ordforge/ordforge/internal/feeoracle"
	"github.com/ordforge/ordforge/internal/keyring"
	"github.com/ordforge/ordforge/internal/ledger"
	"github.com/ordforge/ordforge/internal/log"
	"github.com/ordforge/ordforge/internal/storage"
	"github.com/ordforge/ordforge/pkg/address"
	"github.com/ordforge/ordforge/pkg/fees"
	"github.com/ordforge/ordforge/pkg/inscribe"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	dataDir := config.DefaultDataDir()
	network := "mainnet"

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	// The CLI logs to the console only.
	if err := log.Init("warn", false, ""); err != nil {
		fatal("init logging: %v", err)
	}

	cfg := config.Default(config.NetworkType(network))
	cfg.DataDir = dataDir

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "estimate":
		cmdEstimate(cfg, cmdArgs)
	case "commit-target":
		cmdCommitTarget(cfg, cmdArgs)
	case "keygen":
		cmdKeygen(cfg, cmdArgs)
	case "keys":
		cmdKeys(cfg)
	case "fees":
		cmdFees(cfg)
	case "reset":
		cmdReset(cfg, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: ordforge-cli [global flags] <command> [flags]

Global flags:
  --datadir <path>    Data directory (default: ~/.ordforge)
  --network <net>     mainnet (default), testnet or signet

Commands:
  estimate --size <bytes> --rate <sat/vB> --payer <address> [--inputs <n>]
                                  Quote commit + reveal cost
  commit-target --file <asset> --keystore <name> --index <n>
                                  Preview the commit address for an asset
  keygen --name <name>            Generate a mnemonic and encrypted keystore
  keys                            List keystore entries
  fees                            Show recommended fee rates and health
  reset --collection <id> [--delete-test-mints] [--reset-phase-times]
                                  Administrative collection reset
`)
}

// ── estimate ────────────────────────────────────────────────────────

func cmdEstimate(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("estimate", flag.ExitOnError)
	size := fs.Int("size", 0, "Content size in bytes")
	rate := fs.Float64("rate", 0, "Fee rate in sat/vB")
	payer := fs.String("payer", "", "Payer wallet address (determines input size)")
	inputs := fs.Int("inputs", 1, "Commit transaction input count")
	fs.Parse(args)

	params := cfg.Network.ChainParams()
	class := address.Taproot
	if *payer != "" {
		var err error
		class, err = address.Classify(*payer, params)
		if err != nil {
			fatal("classify payer address: %v", err)
		}
	}

	est, err := fees.EstimateCost(*size, *rate, class, *inputs)
	if err != nil {
		fatal("estimate: %v", err)
	}

	fmt.Printf("Commit:  %d vB, %d sats\n", est.CommitVSize, est.CommitFee)
	fmt.Printf("Reveal:  %d vB, %d sats\n", est.RevealVSize, est.RevealFee)
	fmt.Printf("Total fee: %d sats\n", est.Total())
	fmt.Printf("Reveal output minimum: %d sats\n", address.MinOutputValue(address.Taproot))
}

// ── commit-target ───────────────────────────────────────────────────

func cmdCommitTarget(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("commit-target", flag.ExitOnError)
	file := fs.String("file", "", "Asset file to inscribe")
	keystoreName := fs.String("keystore", "", "Keystore entry holding the mint seed")
	index := fs.Uint("index", 0, "Ephemeral key index")
	fs.Parse(args)

	if *file == "" || *keystoreName == "" {
		fatal("commit-target requires --file and --keystore")
	}

	body, err := os.ReadFile(*file)
	if err != nil {
		fatal("read asset: %v", err)
	}
	asset, err := content.NewAsset(*file, body)
	if err != nil {
		fatal("load asset: %v", err)
	}

	password, err := readPassword("Enter keystore password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	ks, err := keyring.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	priv, err := ks.MintKeyAt(*keystoreName, password, uint32(*index))
	if err != nil {
		fatal("derive mint key: %v", err)
	}

	target, err := inscribe.BuildCommitTarget(priv.PubKey(), []inscribe.Item{{
		ContentType: asset.ContentType,
		Body:        asset.Body,
	}}, cfg.Network.ChainParams())
	if err != nil {
		fatal("build commit target: %v", err)
	}

	fmt.Printf("Content:        %s (%s, %d bytes)\n", asset.ID[:16], asset.ContentType, len(asset.Body))
	fmt.Printf("Commit address: %s\n", target.Address)
	fmt.Printf("Leaf script:    %d bytes\n", len(target.LeafScript))
	fmt.Printf("Control block:  %s\n", hex.EncodeToString(target.ControlBlock))
}

// ── keygen / keys ───────────────────────────────────────────────────

func cmdKeygen(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	name := fs.String("name", "", "Keystore entry name")
	fs.Parse(args)

	if *name == "" {
		fatal("keygen requires --name")
	}

	mnemonic, err := keyring.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}
	seed, err := keyring.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}

	password, err := readPassword("Enter new keystore password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	ks, err := keyring.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if err := ks.Create(*name, seed, password, keyring.DefaultParams()); err != nil {
		fatal("create keystore: %v", err)
	}

	fmt.Printf("Created keystore entry %q\n\n", *name)
	fmt.Println("Recovery mnemonic (write this down, it is shown once):")
	fmt.Printf("\n  %s\n\n", mnemonic)
}

func cmdKeys(cfg *config.Config) {
	ks, err := keyring.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	names, err := ks.List()
	if err != nil {
		fatal("list keys: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No keystore entries")
		return
	}
	for _, n := range names {
		fmt.Println(n)
	}
}

// ── fees ────────────────────────────────────────────────────────────

func cmdFees(cfg *config.Config) {
	oracle := feeoracle.New(feeoracle.Options{
		Endpoints: cfg.Fees.Endpoints,
		Floor:     cfg.Fees.Floor,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	rec := oracle.Recommend(ctx)
	fmt.Printf("Fastest:   %g sat/vB\n", rec.Fastest)
	fmt.Printf("Half hour: %g sat/vB\n", rec.HalfHour)
	fmt.Printf("Hour:      %g sat/vB\n", rec.Hour)
	fmt.Printf("Economy:   %g sat/vB\n", rec.Economy)
	fmt.Printf("Minimum:   %g sat/vB\n", rec.Minimum)
}

// ── reset ───────────────────────────────────────────────────────────

func cmdReset(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	collectionID := fs.String("collection", "", "Collection id to reset")
	deleteTestMints := fs.Bool("delete-test-mints", false, "Purge test mint records")
	resetPhaseTimes := fs.Bool("reset-phase-times", false, "Extend lapsed phase end times")
	fs.Parse(args)

	if *collectionID == "" {
		fatal("reset requires --collection")
	}

	raw, err := storage.NewBadger(cfg.LedgerDir())
	if err != nil {
		fatal("open ledger database: %v", err)
	}
	defer raw.Close()
	db := storage.NewPrefixDB(raw, []byte(string(cfg.Network)+"/"))

	led := ledger.New(db)
	summary, err := led.ResetCollection(*collectionID, ledger.ResetOptions{
		DeleteTestMints: *deleteTestMints,
		ResetPhaseTimes: *resetPhaseTimes,
	})
	if err != nil {
		if summary != nil && summary.FailedStage != "" {
			fmt.Fprintf(os.Stderr, "Reset failed during stage %q\n", summary.FailedStage)
		}
		fatal("reset collection: %v", err)
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
}

// ── helpers ─────────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
