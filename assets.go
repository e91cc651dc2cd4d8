package oceansdk

import (
	"bytes"
	"compress/flate"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/oceanprotocol/ocean-sdk-go/chain"
)

const ddoVersion = "4.1.0"

// PricingKind selects the pricing schema attached at publish time.
type PricingKind int

const (
	// PricingNone leaves the datatoken without a schema; the publisher mints
	// or attaches pricing later.
	PricingNone PricingKind = iota
	// PricingFixedRate attaches a fixed-rate exchange.
	PricingFixedRate
	// PricingFree attaches a dispenser.
	PricingFree
)

// PricingArgs configure the optional pricing schema of CreateAsset.
type PricingArgs struct {
	Kind PricingKind
	// FixedRate applies when Kind is PricingFixedRate.
	FixedRate chain.FixedRateArgs
	// Dispenser applies when Kind is PricingFree.
	Dispenser chain.DispenserArgs
}

// CreateAssetArgs bundle everything CreateAsset needs to publish.
type CreateAssetArgs struct {
	Metadata Metadata
	// Files are sent to the provider for encryption; their URLs never appear
	// in the published document.
	Files       []File
	ServiceType string // defaults to "access"
	// ServiceTimeout in seconds; 0 means one-time access only.
	ServiceTimeout int64
	Credentials    *Credentials

	NFT       chain.DataNFTArguments
	Datatoken chain.DatatokenArguments
	Pricing   PricingArgs

	// Encrypt and Compress control the on-chain metadata encoding.
	Encrypt  bool
	Compress bool

	Tx chain.TxOpts
}

// CreateAssetResult reports the deployed pieces of a publish.
type CreateAssetResult struct {
	DDO       *DDO
	NFT       *chain.DataNFT
	Datatoken *chain.Datatoken
	// Exchange is set when a fixed-rate schema was attached.
	Exchange *chain.OneExchange
	// Dispenser is set when a free schema was attached.
	Dispenser *chain.Dispenser
}

// OceanAssets orchestrates the full publish and consume flows across the
// contracts, the metadata index, and the access controller.
type OceanAssets struct {
	client *Client
	log    *zap.Logger
}

func newOceanAssets(client *Client) *OceanAssets {
	return &OceanAssets{client: client, log: client.log}
}

// CreateAsset publishes a complete asset: data NFT, datatoken, optional
// pricing schema, provider-encrypted file references, and the DDO written to
// the NFT's metadata slot. It returns once the metadata index has picked the
// document up.
func (oa *OceanAssets) CreateAsset(ctx context.Context, args CreateAssetArgs) (*CreateAssetResult, error) {
	if len(args.Files) == 0 {
		return nil, &InvalidParamError{Message: "at least one file is required"}
	}
	if args.ServiceType == "" {
		args.ServiceType = "access"
	}

	nft, err := oa.client.Factory().CreateNFT(ctx, args.NFT, args.Tx)
	if err != nil {
		return nil, err
	}

	chainID := int64(oa.client.config.ChainID)
	did := DeriveDID(nft.Address(), chainID)

	// The DID is a pure function of the NFT address, so a collision means
	// this NFT already carries a published document.
	exists, err := oa.client.aquarius.DDOExists(ctx, did)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &DIDAlreadyRegisteredError{DID: did}
	}

	datatoken, err := nft.CreateDatatoken(ctx, args.Datatoken, args.Tx)
	if err != nil {
		return nil, err
	}

	result := &CreateAssetResult{NFT: nft, Datatoken: datatoken}
	switch args.Pricing.Kind {
	case PricingFixedRate:
		result.Exchange, err = datatoken.CreateFixedRate(ctx, args.Pricing.FixedRate, args.Tx)
	case PricingFree:
		result.Dispenser, err = datatoken.CreateDispenser(ctx, args.Pricing.Dispenser, args.Tx)
	case PricingNone:
	default:
		err = &InvalidParamError{Message: fmt.Sprintf("unknown pricing kind %d", args.Pricing.Kind)}
	}
	if err != nil {
		return nil, err
	}

	filesJSON, err := json.Marshal(struct {
		DatatokenAddress string `json:"datatokenAddress"`
		NFTAddress       string `json:"nftAddress"`
		Files            []File `json:"files"`
	}{
		DatatokenAddress: datatoken.Address().Hex(),
		NFTAddress:       nft.Address().Hex(),
		Files:            args.Files,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode files: %w", err)
	}
	encryptedFiles, err := oa.client.provider.Encrypt(ctx, filesJSON, chainID)
	if err != nil {
		return nil, err
	}

	metadata := args.Metadata
	if metadata.Created == "" {
		metadata.Created = nowUTC()
	}
	metadata.Updated = nowUTC()
	if metadata.Type == "" {
		metadata.Type = "dataset"
	}

	ddo := &DDO{
		Context:    []string{"https://w3id.org/did/v1"},
		ID:         did,
		Version:    ddoVersion,
		ChainID:    chainID,
		NFTAddress: nft.Address().Hex(),
		Metadata:   metadata,
		Services: []Service{{
			ID:              "0",
			Type:            args.ServiceType,
			Datatoken:       datatoken.Address().Hex(),
			ServiceEndpoint: oa.client.provider.BaseURL(),
			Timeout:         args.ServiceTimeout,
			Files:           encryptedFiles,
		}},
		Credentials: args.Credentials,
	}

	if err := oa.validateRemote(ctx, ddo); err != nil {
		return nil, err
	}

	if err := oa.writeMetadata(ctx, nft, ddo, args.Encrypt, args.Compress, args.Tx); err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, oa.client.config.IndexTimeout)
	defer cancel()
	indexed, err := oa.client.aquarius.WaitForDDO(waitCtx, did)
	if err != nil {
		return nil, err
	}

	oa.log.Info("asset published",
		zap.String("did", did),
		zap.String("nft", nft.Address().Hex()),
		zap.String("datatoken", datatoken.Address().Hex()))

	oa.client.cacheDDO(indexed)
	result.DDO = indexed
	return result, nil
}

// UpdateAsset republishes an edited document to its NFT's metadata slot.
// Cross-chain reuse is disallowed: the document's chain id must match the
// client's.
func (oa *OceanAssets) UpdateAsset(ctx context.Context, ddo *DDO, encrypt, compress bool, opts chain.TxOpts) (*DDO, error) {
	chainID := int64(oa.client.config.ChainID)
	if ddo.ChainID != chainID {
		return nil, &ValidationError{DID: ddo.ID, Detail: fmt.Sprintf("document chain id %d does not match client chain id %d", ddo.ChainID, chainID)}
	}
	ddo.Metadata.Updated = nowUTC()

	if err := oa.validateRemote(ctx, ddo); err != nil {
		return nil, err
	}

	nft := oa.client.DataNFT(common.HexToAddress(ddo.NFTAddress))
	if err := oa.writeMetadata(ctx, nft, ddo, encrypt, compress, opts); err != nil {
		return nil, err
	}
	oa.client.invalidateDDO(ddo.ID)

	waitCtx, cancel := context.WithTimeout(ctx, oa.client.config.IndexTimeout)
	defer cancel()
	indexed, err := oa.client.aquarius.WaitForDDO(waitCtx, ddo.ID)
	if err != nil {
		return nil, err
	}
	oa.client.cacheDDO(indexed)
	return indexed, nil
}

func (oa *OceanAssets) validateRemote(ctx context.Context, ddo *DDO) error {
	validation, err := oa.client.aquarius.ValidateDDO(ctx, ddo)
	if err != nil {
		return err
	}
	if !validation.Valid {
		return &ValidationError{DID: ddo.ID, Detail: validation.Errors}
	}
	return nil
}

// writeMetadata encodes the DDO per the flags and submits setMetaData with
// the sha256 proof over the plaintext document.
func (oa *OceanAssets) writeMetadata(ctx context.Context, nft *chain.DataNFT, ddo *DDO, encrypt, compress bool, opts chain.TxOpts) error {
	plaintext, err := json.Marshal(ddo)
	if err != nil {
		return fmt.Errorf("failed to encode DDO: %w", err)
	}

	data := plaintext
	flags := MetadataFlagPlain
	if compress {
		compressed, err := flateCompress(data)
		if err != nil {
			return err
		}
		data = compressed
		flags |= MetadataFlagCompressed
	}
	if encrypt {
		encrypted, err := oa.client.provider.Encrypt(ctx, data, ddo.ChainID)
		if err != nil {
			return err
		}
		blob, err := hexutil.Decode(encrypted)
		if err != nil {
			return fmt.Errorf("provider returned malformed ciphertext: %w", err)
		}
		data = blob
		flags |= MetadataFlagEncrypted
	}

	_, err = nft.SetMetadata(ctx,
		chain.MetadataStateActive,
		oa.client.provider.BaseURL(),
		oa.client.SignerAddress().Hex(),
		[]byte{flags},
		data,
		checksumHash(plaintext),
		opts)
	return err
}

func flateCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Resolve fetches a DDO from the metadata index, through the client cache
// when one is configured.
func (oa *OceanAssets) Resolve(ctx context.Context, did string) (*DDO, error) {
	if ddo, ok := oa.client.cachedDDO(did); ok {
		return ddo, nil
	}
	ddo, err := oa.client.aquarius.Resolve(ctx, did)
	if err != nil {
		return nil, err
	}
	oa.client.cacheDDO(ddo)
	return ddo, nil
}

// PayForAccessArgs tune the consume-side fees of an order.
type PayForAccessArgs struct {
	// ServiceID selects the service; empty means the first one.
	ServiceID string
	// Consumer defaults to the signer.
	Consumer                    common.Address
	ConsumeMarketFee            chain.TokenFeeInfo
	ConsumeMarketSwapFee        *big.Int
	ConsumeMarketSwapFeeAddress common.Address
	Tx                          chain.TxOpts
}

// PayForAccessService obtains one access token for the service by whatever
// pricing schema its datatoken carries, and places the order. The returned
// transaction hash is the capability the provider accepts at download time.
func (oa *OceanAssets) PayForAccessService(ctx context.Context, ddo *DDO, args PayForAccessArgs) (common.Hash, error) {
	svc := ddo.ServiceByID(args.ServiceID)
	if svc == nil {
		return common.Hash{}, &InvalidParamError{Message: fmt.Sprintf("asset %s has no service %q", ddo.ID, args.ServiceID)}
	}

	consumer := args.Consumer
	if consumer == (common.Address{}) {
		consumer = oa.client.SignerAddress()
	}
	if !ddo.IsConsumable(consumer) {
		return common.Hash{}, &ConsumableError{DID: ddo.ID, Consumer: consumer.Hex()}
	}

	providerFee, err := oa.client.provider.Initialize(ctx, ddo.ID, svc, consumer)
	if err != nil {
		return common.Hash{}, err
	}

	datatoken := oa.client.Datatoken(svc.DatatokenAddress())
	receipt, err := datatoken.OrderFromPricingSchema(ctx, chain.OrderArgs{
		Consumer:                    consumer,
		ServiceIndex:                uint64(ddo.ServiceIndex(svc.ID)),
		ProviderFee:                 *providerFee,
		ConsumeMarketFee:            args.ConsumeMarketFee,
		ConsumeMarketSwapFee:        args.ConsumeMarketSwapFee,
		ConsumeMarketSwapFeeAddress: args.ConsumeMarketSwapFeeAddress,
		Tx:                          args.Tx,
	})
	if err != nil {
		return common.Hash{}, err
	}

	oa.log.Info("order placed",
		zap.String("did", ddo.ID),
		zap.String("service", svc.ID),
		zap.String("tx", receipt.TxHash.Hex()))
	return receipt.TxHash, nil
}

// DownloadAsset resolves the asset, pays for access unless an existing order
// is supplied, and streams the file into destDir. It returns the path of the
// written file.
func (oa *OceanAssets) DownloadAsset(ctx context.Context, did string, args PayForAccessArgs, orderTxID common.Hash, destDir string, fileIndex int) (string, error) {
	ddo, err := oa.Resolve(ctx, did)
	if err != nil {
		return "", err
	}
	svc := ddo.ServiceByID(args.ServiceID)
	if svc == nil {
		return "", &InvalidParamError{Message: fmt.Sprintf("asset %s has no service %q", did, args.ServiceID)}
	}

	if orderTxID == (common.Hash{}) {
		orderTxID, err = oa.PayForAccessService(ctx, ddo, args)
		if err != nil {
			return "", err
		}
	}

	body, err := oa.client.provider.Download(ctx, did, svc, orderTxID, fileIndex)
	if err != nil {
		return "", err
	}
	defer body.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create destination directory: %w", err)
	}
	path := filepath.Join(destDir, fmt.Sprintf("file_%d", fileIndex))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, body); err != nil {
		return "", fmt.Errorf("failed to write download: %w", err)
	}

	oa.log.Info("asset downloaded",
		zap.String("did", did),
		zap.String("path", path))
	return path, nil
}
