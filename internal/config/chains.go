package config

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/types"
)

type Chain uint

const (
	Chain_ArbitrumOne  Chain = 0
	Chain_ArbitrumNova Chain = 1
	Chain_Local        Chain = 2
)

func ParseChain(c string) Chain {
	switch c {
	case "arbitrum-nova":
		return Chain_ArbitrumNova
	case "local":
		return Chain_Local
	default:
		return Chain_ArbitrumOne
	}
}

func GetChainName(c Chain) string {
	switch c {
	case Chain_ArbitrumNova:
		return "arbitrum-nova"
	case Chain_Local:
		return "local"
	default:
		return "arbitrum-one"
	}
}

func (c Chain) String() string {
	return GetChainName(c)
}

var ChainIds = map[Chain]uint64{
	Chain_ArbitrumOne:  42161,
	Chain_ArbitrumNova: 42170,
	Chain_Local:        412346,
}

// GenesisDates is the first UTC date each chain produced blocks.
var GenesisDates = map[Chain]string{
	Chain_ArbitrumOne:  "2021-05-28",
	Chain_ArbitrumNova: "2022-07-11",
	Chain_Local:        "2023-01-01",
}

// ArbOwnerAddress is the chain-owner precompile. It lives at the same
// address on every Arbitrum chain.
var ArbOwnerAddress = common.HexToAddress("0x0000000000000000000000000000000000000070")

// OwnerActsTopic0 is keccak256("OwnerActs(bytes4,address,bytes)"), the
// event the precompile emits for every owner action.
var OwnerActsTopic0 = common.HexToHash("0x3c9e6a772755407311e3b35b3ee56799df8f87395941b3a658eee9e08a67ebda")

// RecipientRecievedTopic0 is keccak256("RecipientRecieved(address,uint256)").
// The deployed RewardDistributor contract ships with the misspelled event
// name, so the hash is pinned to the typo.
var RecipientRecievedTopic0 = common.HexToHash("0x8b2a2b28e169eb0e4f62578e9d12f747d7bd0fe1ebc935af28387c18034d7cc0")

// ScanChunkSize caps the block span of a single eth_getLogs query.
const ScanChunkSize uint64 = 10_000

// Owner-action method selectors that install fee distributors.
const (
	MethodSetNetworkFeeAccount        = "0xfcdde2b4"
	MethodSetInfraFeeAccount          = "0x57f585db"
	MethodSetL1PricingRewardRecipient = "0x934be07d"
)

// DistributorTypeByMethod maps an owner-action selector to the category
// of distributor it installs. The infra fee account collects the L2 base
// fee; the network fee account collects the L2 surplus; the L1 pricing
// reward recipient collects the L1 surplus. L1_BASE_FEE is assigned
// out-of-band and never produced by a scan.
var DistributorTypeByMethod = map[string]types.DistributorType{
	MethodSetNetworkFeeAccount:        types.DistributorType_L2SurplusFee,
	MethodSetInfraFeeAccount:          types.DistributorType_L2BaseFee,
	MethodSetL1PricingRewardRecipient: types.DistributorType_L1SurplusFee,
}

// RewardDistributorBytecodes pins, per chain, the runtime bytecode of the
// canonical RewardDistributor contract. Classification is a byte-exact
// comparison against this constant.
var RewardDistributorBytecodes = map[Chain]string{
	Chain_ArbitrumOne:  RewardDistributorRuntimeBytecode,
	Chain_ArbitrumNova: RewardDistributorRuntimeBytecode,
	Chain_Local:        RewardDistributorRuntimeBytecode,
}

// RewardDistributorRuntimeBytecode is the deployed RewardDistributor
// runtime code (solc 0.8.15).
const RewardDistributorRuntimeBytecode = "0x6080604052600436106100c25760003560e01c806379862f2f146100ce578063aff58a8c14610124578063bd8bd40e1461017a57806375fbe986146101d05780638da5cb5b14610226578063f2fde38b1461027c578063715018a6146102d257005b600080fd5bf293cb327d7e9f421fb706ac458069fda2a97c27b3e6b5350616fea6d2feaf529da5cb4b1fc793d0a65c55bff5a938468109bfe54cb32ccd7ab3e81505e6405be19235d8da054103beb269496eb9c7c495125fdc85336594b0f3ad5e60a5eb0ae83b0d96cf086339b28846853dc59cad9aba6f02869dce9ef927176b0eda95db57af21633078de12671e3e15e00242d283cbadb866c5b6de2746eb022bcf0e344cce4a3f05d38bf85866b1dc382c54c5364c55f0573821b61f44ce6a5949b14af3e0b66fb873ff348786ba8971b5a1cefe2c801640d74b019d7254ef195113832fec9c32797c8eb8672b2b127df8201995eee699ceb0e5db5040da81b86dbfd0ae4cf2e13685bb10f27875ab201e9c412eef66bf63e9aaef1e640dd1b7977d27c5f72ef0b2f408944aa28ec8bbcc8b7a017e4634ca86cadbbde9995dde4a8ede92f13ba25d340ee72841fb6677455f6ec670423bb45cc4614988f3c5b8589a9584daa8717370167e8616c86a91314572bcb2cc4375f1735f8975a4f5be2528eda84cba9071495359bc2c3317181d7137b8124763950da218ed147de2a1d556341e331c6af7a5223db27b67e17fcf1c3ad8cbeb94d34dfc273b7843060423998fdbed3aa7e39ff8bd237609da6088c286e651970416b80c889c0b40161c36267bc656f10a4d4aa0727be4fbda65a286c536eee95c96922e0fedb4f4f98eddfb9c1e8dfae06eb5397e7592c98a56bf32ba9429093d340402c8542dadf9f5e7e47f9c089713cbd48711222919d8afff225ffefe09c29dd199924894def866e0cd48f48f9d162297bd78a04a9428b75f13248093a9c1cbe458f849b8303c4c095aec7931a034a71ff448afba161fa4bf1bf4fa8db60c8eac2d782c3cdfb015d04e01a264697066735822122098da01626418fa6982bce8d31af59f7c73e81bfa7fef5f2c41f121fcabed0f7064736f6c634300080f0033"

func (c *Config) GetChainId() uint64 {
	return ChainIds[c.Chain]
}

func (c *Config) GetGenesisDate() string {
	return GenesisDates[c.Chain]
}

func (c *Config) GetRewardDistributorBytecode() string {
	return RewardDistributorBytecodes[c.Chain]
}
