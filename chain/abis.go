package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Trimmed ABIs: only the methods and events this SDK touches. The full
// artifacts ship with the contract deployments; carrying them here would just
// bloat the binary.

const erc20ABIJSON = `[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// providerFee and consumeMarketFee tuple components used by order methods.
const providerFeeComponents = `[
	{"name":"providerFeeAddress","type":"address"},
	{"name":"providerFeeToken","type":"address"},
	{"name":"providerFeeAmount","type":"uint256"},
	{"name":"v","type":"uint8"},
	{"name":"r","type":"bytes32"},
	{"name":"s","type":"bytes32"},
	{"name":"validUntil","type":"uint256"},
	{"name":"providerData","type":"bytes"}
]`

const consumeFeeComponents = `[
	{"name":"consumeMarketFeeAddress","type":"address"},
	{"name":"consumeMarketFeeToken","type":"address"},
	{"name":"consumeMarketFeeAmount","type":"uint256"}
]`

var datatokenABIJSON = `[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"cap","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getId","stateMutability":"pure","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"},{"name":"value","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"permissions","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"minter","type":"bool"},{"name":"paymentManager","type":"bool"}]},
	{"type":"function","name":"addMinter","stateMutability":"nonpayable","inputs":[{"name":"minter","type":"address"}],"outputs":[]},
	{"type":"function","name":"removeMinter","stateMutability":"nonpayable","inputs":[{"name":"minter","type":"address"}],"outputs":[]},
	{"type":"function","name":"cleanPermissions","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"getPaymentCollector","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"setPaymentCollector","stateMutability":"nonpayable","inputs":[{"name":"newCollector","type":"address"}],"outputs":[]},
	{"type":"function","name":"createFixedRate","stateMutability":"nonpayable","inputs":[{"name":"fixedPriceAddress","type":"address"},{"name":"addresses","type":"address[]"},{"name":"uints","type":"uint256[]"}],"outputs":[{"name":"exchangeId","type":"bytes32"}]},
	{"type":"function","name":"createDispenser","stateMutability":"nonpayable","inputs":[{"name":"dispenserAddress","type":"address"},{"name":"maxTokens","type":"uint256"},{"name":"maxBalance","type":"uint256"},{"name":"withMint","type":"bool"},{"name":"allowedSwapper","type":"address"}],"outputs":[]},
	{"type":"function","name":"getFixedRates","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"tuple[]","components":[{"name":"contractAddress","type":"address"},{"name":"id","type":"bytes32"}]}]},
	{"type":"function","name":"getDispensers","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
	{"type":"function","name":"startOrder","stateMutability":"nonpayable","inputs":[
		{"name":"consumer","type":"address"},
		{"name":"serviceIndex","type":"uint256"},
		{"name":"providerFee","type":"tuple","components":` + providerFeeComponents + `},
		{"name":"consumeMarketFee","type":"tuple","components":` + consumeFeeComponents + `}
	],"outputs":[]},
	{"type":"function","name":"reuseOrder","stateMutability":"nonpayable","inputs":[
		{"name":"orderTxId","type":"bytes32"},
		{"name":"providerFee","type":"tuple","components":` + providerFeeComponents + `}
	],"outputs":[]},
	{"type":"function","name":"buyFromFreAndOrder","stateMutability":"nonpayable","inputs":[
		{"name":"orderParams","type":"tuple","components":[
			{"name":"consumer","type":"address"},
			{"name":"serviceIndex","type":"uint256"},
			{"name":"providerFee","type":"tuple","components":` + providerFeeComponents + `},
			{"name":"consumeMarketFee","type":"tuple","components":` + consumeFeeComponents + `}
		]},
		{"name":"freParams","type":"tuple","components":[
			{"name":"exchangeContract","type":"address"},
			{"name":"exchangeId","type":"bytes32"},
			{"name":"maxBaseTokenAmount","type":"uint256"},
			{"name":"swapMarketFee","type":"uint256"},
			{"name":"marketFeeAddress","type":"address"}
		]}
	],"outputs":[]},
	{"type":"function","name":"buyFromDispenserAndOrder","stateMutability":"nonpayable","inputs":[
		{"name":"orderParams","type":"tuple","components":[
			{"name":"consumer","type":"address"},
			{"name":"serviceIndex","type":"uint256"},
			{"name":"providerFee","type":"tuple","components":` + providerFeeComponents + `},
			{"name":"consumeMarketFee","type":"tuple","components":` + consumeFeeComponents + `}
		]},
		{"name":"dispenserContract","type":"address"}
	],"outputs":[]},
	{"type":"event","name":"OrderStarted","anonymous":false,"inputs":[
		{"name":"consumer","type":"address","indexed":true},
		{"name":"payer","type":"address","indexed":false},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"serviceIndex","type":"uint256","indexed":false},
		{"name":"timestamp","type":"uint256","indexed":false},
		{"name":"publishMarketAddress","type":"address","indexed":true},
		{"name":"blockNumber","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"OrderReused","anonymous":false,"inputs":[
		{"name":"orderTxId","type":"bytes32","indexed":false},
		{"name":"caller","type":"address","indexed":false},
		{"name":"timestamp","type":"uint256","indexed":false},
		{"name":"number","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"NewFixedRate","anonymous":false,"inputs":[
		{"name":"exchangeId","type":"bytes32","indexed":false},
		{"name":"owner","type":"address","indexed":true},
		{"name":"exchangeContract","type":"address","indexed":false},
		{"name":"baseToken","type":"address","indexed":true}
	]},
	{"type":"event","name":"NewDispenser","anonymous":false,"inputs":[
		{"name":"dispenserContract","type":"address","indexed":false}
	]}
]`

const nftABIJSON = `[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"tokenURI","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"setTokenURI","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"tokenURI","type":"string"}],"outputs":[]},
	{"type":"function","name":"createERC20","stateMutability":"nonpayable","inputs":[
		{"name":"templateIndex","type":"uint256"},
		{"name":"strings","type":"string[]"},
		{"name":"addresses","type":"address[]"},
		{"name":"uints","type":"uint256[]"},
		{"name":"bytess","type":"bytes[]"}
	],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"setMetaData","stateMutability":"nonpayable","inputs":[
		{"name":"metaDataState","type":"uint8"},
		{"name":"metaDataDecryptorUrl","type":"string"},
		{"name":"metaDataDecryptorAddress","type":"string"},
		{"name":"flags","type":"bytes"},
		{"name":"data","type":"bytes"},
		{"name":"metaDataHash","type":"bytes32"}
	],"outputs":[]},
	{"type":"function","name":"setMetaDataState","stateMutability":"nonpayable","inputs":[{"name":"metaDataState","type":"uint8"}],"outputs":[]},
	{"type":"function","name":"getMetaData","stateMutability":"view","inputs":[],"outputs":[
		{"name":"metaDataDecryptorUrl","type":"string"},
		{"name":"metaDataDecryptorAddress","type":"string"},
		{"name":"metaDataState","type":"uint8"},
		{"name":"metaDataValidated","type":"bool"}
	]},
	{"type":"function","name":"addManager","stateMutability":"nonpayable","inputs":[{"name":"manager","type":"address"}],"outputs":[]},
	{"type":"function","name":"addToCreateERC20List","stateMutability":"nonpayable","inputs":[{"name":"allowed","type":"address"}],"outputs":[]},
	{"type":"function","name":"addToMetadataList","stateMutability":"nonpayable","inputs":[{"name":"allowed","type":"address"}],"outputs":[]},
	{"type":"function","name":"addTo725StoreList","stateMutability":"nonpayable","inputs":[{"name":"allowed","type":"address"}],"outputs":[]},
	{"type":"function","name":"getPermissions","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[
		{"name":"manager","type":"bool"},
		{"name":"deployERC20","type":"bool"},
		{"name":"updateMetadata","type":"bool"},
		{"name":"store","type":"bool"}
	]},
	{"type":"event","name":"TokenCreated","anonymous":false,"inputs":[
		{"name":"newTokenAddress","type":"address","indexed":false},
		{"name":"templateAddress","type":"address","indexed":false},
		{"name":"name","type":"string","indexed":false},
		{"name":"symbol","type":"string","indexed":false},
		{"name":"creator","type":"address","indexed":true}
	]},
	{"type":"event","name":"MetadataCreated","anonymous":false,"inputs":[
		{"name":"createdBy","type":"address","indexed":true},
		{"name":"state","type":"uint8","indexed":false},
		{"name":"metaDataHash","type":"bytes32","indexed":false}
	]},
	{"type":"event","name":"MetadataUpdated","anonymous":false,"inputs":[
		{"name":"updatedBy","type":"address","indexed":true},
		{"name":"state","type":"uint8","indexed":false},
		{"name":"metaDataHash","type":"bytes32","indexed":false}
	]},
	{"type":"event","name":"MetadataState","anonymous":false,"inputs":[
		{"name":"updatedBy","type":"address","indexed":true},
		{"name":"state","type":"uint8","indexed":false}
	]}
]`

const factoryABIJSON = `[
	{"type":"function","name":"createNFT","stateMutability":"nonpayable","inputs":[
		{"name":"nftData","type":"tuple","components":[
			{"name":"name","type":"string"},
			{"name":"symbol","type":"string"},
			{"name":"templateIndex","type":"uint256"},
			{"name":"tokenURI","type":"string"},
			{"name":"transferable","type":"bool"},
			{"name":"owner","type":"address"}
		]}
	],"outputs":[{"name":"","type":"address"}]},
	{"type":"event","name":"NFTCreated","anonymous":false,"inputs":[
		{"name":"admin","type":"address","indexed":true},
		{"name":"newTokenAddress","type":"address","indexed":false},
		{"name":"tokenName","type":"string","indexed":false},
		{"name":"symbol","type":"string","indexed":false},
		{"name":"tokenURI","type":"string","indexed":false},
		{"name":"transferable","type":"bool","indexed":false}
	]}
]`

const fixedRateABIJSON = `[
	{"type":"function","name":"getExchange","stateMutability":"view","inputs":[{"name":"exchangeId","type":"bytes32"}],"outputs":[
		{"name":"exchangeOwner","type":"address"},
		{"name":"datatoken","type":"address"},
		{"name":"dtDecimals","type":"uint8"},
		{"name":"baseToken","type":"address"},
		{"name":"btDecimals","type":"uint8"},
		{"name":"fixedRate","type":"uint256"},
		{"name":"active","type":"bool"},
		{"name":"dtSupply","type":"uint256"},
		{"name":"btSupply","type":"uint256"},
		{"name":"dtBalance","type":"uint256"},
		{"name":"btBalance","type":"uint256"},
		{"name":"withMint","type":"bool"}
	]},
	{"type":"function","name":"getFeesInfo","stateMutability":"view","inputs":[{"name":"exchangeId","type":"bytes32"}],"outputs":[
		{"name":"marketFee","type":"uint256"},
		{"name":"marketFeeCollector","type":"address"},
		{"name":"opcFee","type":"uint256"},
		{"name":"marketFeeAvailable","type":"uint256"},
		{"name":"oceanFeeAvailable","type":"uint256"}
	]},
	{"type":"function","name":"getAllowedSwapper","stateMutability":"view","inputs":[{"name":"exchangeId","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"calcBaseInGivenOutDT","stateMutability":"view","inputs":[
		{"name":"exchangeId","type":"bytes32"},
		{"name":"datatokenAmount","type":"uint256"},
		{"name":"consumeMarketSwapFeeAmount","type":"uint256"}
	],"outputs":[
		{"name":"baseTokenAmount","type":"uint256"},
		{"name":"oceanFeeAmount","type":"uint256"},
		{"name":"publishMarketFeeAmount","type":"uint256"},
		{"name":"consumeMarketFeeAmount","type":"uint256"}
	]},
	{"type":"function","name":"calcBaseOutGivenInDT","stateMutability":"view","inputs":[
		{"name":"exchangeId","type":"bytes32"},
		{"name":"datatokenAmount","type":"uint256"},
		{"name":"consumeMarketSwapFeeAmount","type":"uint256"}
	],"outputs":[
		{"name":"baseTokenAmount","type":"uint256"},
		{"name":"oceanFeeAmount","type":"uint256"},
		{"name":"publishMarketFeeAmount","type":"uint256"},
		{"name":"consumeMarketFeeAmount","type":"uint256"}
	]},
	{"type":"function","name":"buyDT","stateMutability":"nonpayable","inputs":[
		{"name":"exchangeId","type":"bytes32"},
		{"name":"datatokenAmount","type":"uint256"},
		{"name":"maxBaseTokenAmount","type":"uint256"},
		{"name":"consumeMarketAddress","type":"address"},
		{"name":"consumeMarketSwapFeeAmount","type":"uint256"}
	],"outputs":[]},
	{"type":"function","name":"sellDT","stateMutability":"nonpayable","inputs":[
		{"name":"exchangeId","type":"bytes32"},
		{"name":"datatokenAmount","type":"uint256"},
		{"name":"minBaseTokenAmount","type":"uint256"},
		{"name":"consumeMarketAddress","type":"address"},
		{"name":"consumeMarketSwapFeeAmount","type":"uint256"}
	],"outputs":[]},
	{"type":"function","name":"collectBT","stateMutability":"nonpayable","inputs":[{"name":"exchangeId","type":"bytes32"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"collectDT","stateMutability":"nonpayable","inputs":[{"name":"exchangeId","type":"bytes32"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"collectMarketFee","stateMutability":"nonpayable","inputs":[{"name":"exchangeId","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"collectOceanFee","stateMutability":"nonpayable","inputs":[{"name":"exchangeId","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"setRate","stateMutability":"nonpayable","inputs":[{"name":"exchangeId","type":"bytes32"},{"name":"newRate","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"toggleExchangeState","stateMutability":"nonpayable","inputs":[{"name":"exchangeId","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"toggleMintState","stateMutability":"nonpayable","inputs":[{"name":"exchangeId","type":"bytes32"},{"name":"withMint","type":"bool"}],"outputs":[]},
	{"type":"function","name":"setAllowedSwapper","stateMutability":"nonpayable","inputs":[{"name":"exchangeId","type":"bytes32"},{"name":"newAllowedSwapper","type":"address"}],"outputs":[]},
	{"type":"function","name":"updateMarketFee","stateMutability":"nonpayable","inputs":[{"name":"exchangeId","type":"bytes32"},{"name":"newMarketFee","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"updateMarketFeeCollector","stateMutability":"nonpayable","inputs":[{"name":"exchangeId","type":"bytes32"},{"name":"newMarketFeeCollector","type":"address"}],"outputs":[]},
	{"type":"event","name":"Swapped","anonymous":false,"inputs":[
		{"name":"exchangeId","type":"bytes32","indexed":true},
		{"name":"by","type":"address","indexed":true},
		{"name":"tokenOutAddress","type":"address","indexed":false},
		{"name":"baseTokenSwappedAmount","type":"uint256","indexed":false},
		{"name":"datatokenSwappedAmount","type":"uint256","indexed":false},
		{"name":"marketFeeAmount","type":"uint256","indexed":false},
		{"name":"oceanFeeAmount","type":"uint256","indexed":false},
		{"name":"consumeMarketFeeAmount","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"TokenCollected","anonymous":false,"inputs":[
		{"name":"exchangeId","type":"bytes32","indexed":true},
		{"name":"to","type":"address","indexed":true},
		{"name":"token","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"RateChanged","anonymous":false,"inputs":[
		{"name":"exchangeId","type":"bytes32","indexed":true},
		{"name":"exchangeOwner","type":"address","indexed":true},
		{"name":"newRate","type":"uint256","indexed":false}
	]}
]`

const dispenserABIJSON = `[
	{"type":"function","name":"status","stateMutability":"view","inputs":[{"name":"datatoken","type":"address"}],"outputs":[
		{"name":"active","type":"bool"},
		{"name":"owner","type":"address"},
		{"name":"isMinter","type":"bool"},
		{"name":"maxTokens","type":"uint256"},
		{"name":"maxBalance","type":"uint256"},
		{"name":"balance","type":"uint256"},
		{"name":"allowedSwapper","type":"address"}
	]},
	{"type":"function","name":"dispense","stateMutability":"nonpayable","inputs":[
		{"name":"datatoken","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"destination","type":"address"}
	],"outputs":[]},
	{"type":"function","name":"activate","stateMutability":"nonpayable","inputs":[
		{"name":"datatoken","type":"address"},
		{"name":"maxTokens","type":"uint256"},
		{"name":"maxBalance","type":"uint256"}
	],"outputs":[]},
	{"type":"function","name":"deactivate","stateMutability":"nonpayable","inputs":[{"name":"datatoken","type":"address"}],"outputs":[]},
	{"type":"function","name":"setAllowedSwapper","stateMutability":"nonpayable","inputs":[
		{"name":"datatoken","type":"address"},
		{"name":"newAllowedSwapper","type":"address"}
	],"outputs":[]},
	{"type":"event","name":"DispenserCreated","anonymous":false,"inputs":[
		{"name":"datatokenAddress","type":"address","indexed":true},
		{"name":"owner","type":"address","indexed":true},
		{"name":"maxTokens","type":"uint256","indexed":false},
		{"name":"maxBalance","type":"uint256","indexed":false},
		{"name":"allowedSwapper","type":"address","indexed":false}
	]},
	{"type":"event","name":"TokensDispensed","anonymous":false,"inputs":[
		{"name":"datatokenAddress","type":"address","indexed":true},
		{"name":"userAddress","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}
	]}
]`

var (
	parsedERC20ABI     = mustParseABI(erc20ABIJSON)
	parsedDatatokenABI = mustParseABI(datatokenABIJSON)
	parsedNFTABI       = mustParseABI(nftABIJSON)
	parsedFactoryABI   = mustParseABI(factoryABIJSON)
	parsedFixedRateABI = mustParseABI(fixedRateABIJSON)
	parsedDispenserABI = mustParseABI(dispenserABIJSON)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("chain: invalid ABI constant: " + err.Error())
	}
	return parsed
}

// ERC20ABI returns the trimmed ERC20 ABI.
func ERC20ABI() *abi.ABI { return &parsedERC20ABI }

// DatatokenABI returns the trimmed ERC20Template ABI (both template variants).
func DatatokenABI() *abi.ABI { return &parsedDatatokenABI }

// NFTABI returns the trimmed ERC721Template ABI.
func NFTABI() *abi.ABI { return &parsedNFTABI }

// FactoryABI returns the trimmed ERC721Factory ABI.
func FactoryABI() *abi.ABI { return &parsedFactoryABI }

// FixedRateABI returns the trimmed FixedRateExchange ABI.
func FixedRateABI() *abi.ABI { return &parsedFixedRateABI }

// DispenserABI returns the trimmed Dispenser ABI.
func DispenserABI() *abi.ABI { return &parsedDispenserABI }
