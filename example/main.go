package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	oceansdk "github.com/oceanprotocol/ocean-sdk-go"
	"github.com/oceanprotocol/ocean-sdk-go/chain"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	client, err := oceansdk.NewClient(&oceansdk.Config{
		ChainID:    oceansdk.ChainIDDevelopment,
		RPCURL:     envOr("RPC_URL", "http://localhost:8545"),
		PrivateKey: os.Getenv("PRIVATE_KEY"),
		Logger:     logger,
	})
	if err != nil {
		log.Fatalf("failed to create client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Publish a free asset: data NFT, datatoken, dispenser and indexed DDO
	// in one call.
	result, err := client.Assets().CreateAsset(ctx, oceansdk.CreateAssetArgs{
		Metadata: oceansdk.Metadata{
			Type:        "dataset",
			Name:        "Branin dataset",
			Description: "Branin function sample data",
			Author:      "Ocean Protocol Foundation",
			License:     "CC0",
		},
		Files: []oceansdk.File{{
			Type: "url",
			URL:  "https://raw.githubusercontent.com/oceanprotocol/c2d-examples/main/branin_and_gpr/branin.arff",
		}},
		NFT: chain.DataNFTArguments{
			Name:   "Branin Data NFT",
			Symbol: "BRANIN-NFT",
		},
		Datatoken: chain.DatatokenArguments{
			Name:   "Branin Datatoken",
			Symbol: "BRANIN-DT",
		},
		Pricing: oceansdk.PricingArgs{
			Kind: oceansdk.PricingFree,
			Dispenser: chain.DispenserArgs{
				MaxTokens:  chain.MaxUint256,
				MaxBalance: chain.MaxUint256,
				WithMint:   true,
			},
		},
	})
	if err != nil {
		log.Fatalf("publish failed: %v", err)
	}
	fmt.Printf("published %s\n", result.DDO.ID)

	// Consume it back: the dispatcher picks the dispenser path and the
	// provider streams the file once the order confirms.
	path, err := client.Assets().DownloadAsset(ctx, result.DDO.ID,
		oceansdk.PayForAccessArgs{}, common.Hash{}, "downloads", 0)
	if err != nil {
		log.Fatalf("download failed: %v", err)
	}
	fmt.Printf("downloaded to %s\n", path)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
