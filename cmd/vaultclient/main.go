package main

import (
	"crypto/ecdsa"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"github.com/ruteri/encrypted-secrets-vault/api/clients"
	"github.com/ruteri/encrypted-secrets-vault/cmd/flags"
	"github.com/ruteri/encrypted-secrets-vault/interfaces"
	"github.com/ruteri/encrypted-secrets-vault/issuer"
	"github.com/ruteri/encrypted-secrets-vault/vault"
	"github.com/urfave/cli/v2"
)

var messageFlag = &cli.StringFlag{
	Name:     "message",
	Required: true,
	Usage:    "secret message to store",
}

var labelFlag = &cli.StringFlag{
	Name:  "label",
	Usage: "optional label for the secret",
}

var indexFlag = &cli.Uint64Flag{
	Name:     "index",
	Required: true,
	Usage:    "index of the secret record",
}

var durationDaysFlag = &cli.Uint64Flag{
	Name:  "duration-days",
	Value: issuer.DefaultDurationDays,
	Usage: "validity window of the decrypt authorization in days",
}

var clientFlags = append([]cli.Flag{
	flags.ServerAddrFlag,
	flags.ContractAddrFlag,
	flags.PrivateKeyFlag,
}, flags.CommonFlags...)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "vault-client",
		Usage: "Store and read secrets in the encrypted vault",
		Flags: clientFlags,
		Commands: []*cli.Command{
			{
				Name:   "store",
				Usage:  "Encrypt a message locally and store the sealed record",
				Flags:  []cli.Flag{messageFlag, labelFlag},
				Action: runStore,
			},
			{
				Name:   "read",
				Usage:  "Decrypt a stored secret through the authorization protocol",
				Flags:  []cli.Flag{indexFlag, durationDaysFlag},
				Action: runRead,
			},
			{
				Name:   "get-secret",
				Usage:  "Fetch one raw record without decrypting it",
				Flags:  []cli.Flag{indexFlag},
				Action: runGet,
			},
			{
				Name:   "secret-count",
				Usage:  "Show how many secrets the owner has stored",
				Action: runCount,
			},
			{
				Name:   "list",
				Usage:  "List all of the owner's records with display labels",
				Action: runList,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type clientEnv struct {
	client   *clients.VaultClient
	key      *ecdsa.PrivateKey
	owner    common.Address
	contract common.Address
}

func setupClient(cCtx *cli.Context) (*clientEnv, error) {
	keyHex := cCtx.String(flags.PrivateKeyFlag.Name)
	if keyHex == "" {
		return nil, fmt.Errorf("--%s is required", flags.PrivateKeyFlag.Name)
	}

	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	contractHex := cCtx.String(flags.ContractAddrFlag.Name)
	if !common.IsHexAddress(contractHex) {
		return nil, fmt.Errorf("invalid vault-contract address: %s", contractHex)
	}

	return &clientEnv{
		client:   &clients.VaultClient{ServerAddr: cCtx.String(flags.ServerAddrFlag.Name)},
		key:      key,
		owner:    crypto.PubkeyToAddress(key.PublicKey),
		contract: common.HexToAddress(contractHex),
	}, nil
}

func runStore(cCtx *cli.Context) error {
	env, err := setupClient(cCtx)
	if err != nil {
		return err
	}

	message := cCtx.String(messageFlag.Name)
	label := cCtx.String(labelFlag.Name)

	index, err := env.client.Store(cCtx.Context, env.owner, []byte(message), label)
	if err != nil {
		return err
	}

	fmt.Printf("Stored secret %q at index %d for owner %s\n",
		vault.DisplayLabel(label, index), index, env.owner.Hex())
	return nil
}

func runRead(cCtx *cli.Context) error {
	env, err := setupClient(cCtx)
	if err != nil {
		return err
	}

	index := cCtx.Uint64(indexFlag.Name)
	durationDays := cCtx.Uint64(durationDaysFlag.Name)

	record, err := env.client.Get(cCtx.Context, env.owner, index)
	if err != nil {
		return err
	}

	auth, err := issuer.SignDecryptAuthorization(env.key,
		[]interfaces.PasswordHandle{record.PasswordHandle}, env.contract,
		time.Now().Unix(), durationDays)
	if err != nil {
		return err
	}

	read, err := env.client.Read(cCtx.Context, env.owner, index, auth)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", read.DisplayLabel, read.Message)
	return nil
}

func runGet(cCtx *cli.Context) error {
	env, err := setupClient(cCtx)
	if err != nil {
		return err
	}

	index := cCtx.Uint64(indexFlag.Name)
	record, err := env.client.Get(cCtx.Context, env.owner, index)
	if err != nil {
		return err
	}

	fmt.Printf("Secret %d of owner %s\n", index, env.owner.Hex())
	fmt.Printf("  label:          %s\n", vault.DisplayLabel(record.Label, index))
	fmt.Printf("  createdAt:      %s\n", time.Unix(record.CreatedAt, 0).UTC().Format(time.RFC3339))
	fmt.Printf("  passwordHandle: %s\n", record.PasswordHandle)
	fmt.Printf("  iv:             %s\n", record.IV)
	fmt.Printf("  ciphertext:     %s\n", record.Ciphertext)
	return nil
}

func runCount(cCtx *cli.Context) error {
	env, err := setupClient(cCtx)
	if err != nil {
		return err
	}

	count, err := env.client.Count(cCtx.Context, env.owner)
	if err != nil {
		return err
	}

	fmt.Printf("Owner %s has %d secret(s)\n", env.owner.Hex(), count)
	return nil
}

func runList(cCtx *cli.Context) error {
	env, err := setupClient(cCtx)
	if err != nil {
		return err
	}

	entries, err := env.client.List(cCtx.Context, env.owner)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Printf("Owner %s has no secrets\n", env.owner.Hex())
		return nil
	}

	for _, entry := range entries {
		fmt.Printf("%4d  %-24s  %s\n", entry.Index, entry.DisplayLabel,
			time.Unix(entry.Record.CreatedAt, 0).UTC().Format(time.RFC3339))
	}
	return nil
}
