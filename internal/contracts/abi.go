package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// IZorpStudy ABI, reads plus owner-only writes
const studyABI = `[
	{
		"constant": true,
		"inputs": [],
		"name": "owner",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "study_status",
		"outputs": [{"name": "", "type": "uint8"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "participant", "type": "address"}],
		"name": "participant_status",
		"outputs": [{"name": "", "type": "uint8"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "encryption_key",
		"outputs": [{"name": "", "type": "string"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "index", "type": "uint256"}],
		"name": "submitted_data",
		"outputs": [{"name": "", "type": "string"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "deposit_amount",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "participant_payout_amount",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [],
		"name": "startStudy",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [{"name": "participant", "type": "address"}],
		"name": "flagInvalidSubmission",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [{"name": "data_cid", "type": "string"}],
		"name": "submitData",
		"outputs": [],
		"type": "function"
	}
]`

// IZorpFactory ABI
const factoryABI = `[
	{
		"constant": true,
		"inputs": [
			{"name": "start", "type": "uint256"},
			{"name": "limit", "type": "uint256"}
		],
		"name": "paginateStudies",
		"outputs": [{"name": "", "type": "address[]"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "initialOwner", "type": "address"},
			{"name": "encryptionKey", "type": "string"}
		],
		"name": "createStudy",
		"outputs": [{"name": "", "type": "address"}],
		"payable": true,
		"type": "function"
	}
]`

// mustABI is a helper to parse a static ABI definition
func mustABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI: %v", err))
	}
	return parsed
}

var (
	StudyABI   = mustABI(studyABI)
	FactoryABI = mustABI(factoryABI)
)
