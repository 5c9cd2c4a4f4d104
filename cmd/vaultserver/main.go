package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/ruteri/encrypted-secrets-vault/cmd/flags"
	"github.com/ruteri/encrypted-secrets-vault/httpserver"
	"github.com/ruteri/encrypted-secrets-vault/issuer"
	"github.com/ruteri/encrypted-secrets-vault/ledger"
	"github.com/ruteri/encrypted-secrets-vault/storage"
	"github.com/ruteri/encrypted-secrets-vault/vault"
	"github.com/urfave/cli/v2"
)

var serverFlags = append([]cli.Flag{
	flags.ListenAddrFlag,
	flags.ContractAddrFlag,
	flags.RecordStoreFlag,
}, flags.CommonFlags...)

func main() {
	// Missing .env is fine, flags and real env still apply
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "vault-server",
		Usage: "Serve the encrypted secret vault API",
		Flags: serverFlags,
		Action: func(cCtx *cli.Context) error {
			listenAddr := cCtx.String(flags.ListenAddrFlag.Name)
			contractHex := cCtx.String(flags.ContractAddrFlag.Name)
			recordStoreURI := cCtx.String(flags.RecordStoreFlag.Name)

			logger := flags.SetupLogger(cCtx)

			if !common.IsHexAddress(contractHex) {
				return fmt.Errorf("invalid vault-contract address: %s", contractHex)
			}
			contract := common.HexToAddress(contractHex)

			storeFactory := storage.NewRecordStoreFactory(logger)
			store, err := storeFactory.RecordStoreFor(recordStoreURI)
			if err != nil {
				logger.Error("Failed to create record store", "err", err, "uri", recordStoreURI)
				return err
			}
			if !store.Available(context.Background()) {
				logger.Error("Record store is not available", "store", store.Name())
				return fmt.Errorf("record store %s unavailable", store.Name())
			}
			logger.Info("Record store ready", "store", store.Name(), "location", store.LocationURI())

			iss := issuer.NewSimulatedIssuer(contract)
			led := ledger.New(store, logger)
			v := vault.New(led, iss, logger)

			handler := httpserver.NewHandler(v, iss, logger)
			server, err := httpserver.New(flags.ConfigureServer(cCtx, logger, listenAddr), handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server", "contract", contract.Hex())
			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
