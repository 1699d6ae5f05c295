package contracts

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/Digital-Mercenaries/zorp/internal/config"
	"github.com/Digital-Mercenaries/zorp/internal/metrics"
)

const defaultGasLimit = 500000

// Writer sends ZORP contract write transactions signed with the configured
// relayer key. A wallet-side rejection or on-chain revert is surfaced
// verbatim to the caller and never retried.
type Writer struct {
	client     *ethclient.Client
	chainID    *big.Int
	privateKey *ecdsa.PrivateKey
	from       common.Address
	gasPrice   *big.Int // nil means use the node's suggestion
	gasLimit   uint64
	logger     *logrus.Logger
}

// NewWriter creates a new contract writer from the network configuration
func NewWriter(client *ethclient.Client, networkCfg *config.NetworkConfig, logger *logrus.Logger) (*Writer, error) {
	if networkCfg.PrivateKey == "" {
		return nil, fmt.Errorf("network %s has no signing key configured", networkCfg.Name)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(networkCfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	var gasPrice *big.Int
	if networkCfg.GasPrice != "" {
		gasPrice, _ = new(big.Int).SetString(networkCfg.GasPrice, 10)
		if gasPrice == nil {
			return nil, fmt.Errorf("unparseable gasPrice %q", networkCfg.GasPrice)
		}
	}

	gasLimit := networkCfg.GasLimit
	if gasLimit == 0 {
		gasLimit = defaultGasLimit
	}

	return &Writer{
		client:     client,
		chainID:    big.NewInt(int64(networkCfg.ChainID)),
		privateKey: privateKey,
		from:       crypto.PubkeyToAddress(privateKey.PublicKey),
		gasPrice:   gasPrice,
		gasLimit:   gasLimit,
		logger:     logger,
	}, nil
}

// From returns the relayer address transactions are signed with
func (w *Writer) From() common.Address {
	return w.from
}

// CreateStudy calls ZorpFactory.createStudy, payable with the deposit amount.
// The cid names the study owner's public key blob on the storage network.
func (w *Writer) CreateStudy(ctx context.Context, factory, owner common.Address, cid string, deposit *big.Int) (common.Hash, error) {
	data, err := FactoryABI.Pack("createStudy", owner, cid)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack createStudy: %w", err)
	}
	return w.send(ctx, "createStudy", factory, data, deposit)
}

// StartStudy calls ZorpStudy.startStudy (owner-only)
func (w *Writer) StartStudy(ctx context.Context, study common.Address) (common.Hash, error) {
	data, err := StudyABI.Pack("startStudy")
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack startStudy: %w", err)
	}
	return w.send(ctx, "startStudy", study, data, nil)
}

// SubmitData calls ZorpStudy.submitData carrying the ciphertext cid
func (w *Writer) SubmitData(ctx context.Context, study common.Address, cid string) (common.Hash, error) {
	data, err := StudyABI.Pack("submitData", cid)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack submitData: %w", err)
	}
	return w.send(ctx, "submitData", study, data, nil)
}

// FlagInvalidSubmission calls ZorpStudy.flagInvalidSubmission (owner-only)
func (w *Writer) FlagInvalidSubmission(ctx context.Context, study, participant common.Address) (common.Hash, error) {
	data, err := StudyABI.Pack("flagInvalidSubmission", participant)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack flagInvalidSubmission: %w", err)
	}
	return w.send(ctx, "flagInvalidSubmission", study, data, nil)
}

// send builds, signs, and broadcasts one legacy transaction
func (w *Writer) send(ctx context.Context, method string, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	nonce, err := w.client.PendingNonceAt(ctx, w.from)
	if err != nil {
		metrics.ContractWritesTotal.WithLabelValues(method, "error").Inc()
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice := w.gasPrice
	if gasPrice == nil {
		gasPrice, err = w.client.SuggestGasPrice(ctx)
		if err != nil {
			metrics.ContractWritesTotal.WithLabelValues(method, "error").Inc()
			return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
		}
	}

	if value == nil {
		value = big.NewInt(0)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      w.gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(w.chainID), w.privateKey)
	if err != nil {
		metrics.ContractWritesTotal.WithLabelValues(method, "error").Inc()
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := w.client.SendTransaction(ctx, signedTx); err != nil {
		metrics.ContractWritesTotal.WithLabelValues(method, "rejected").Inc()
		return common.Hash{}, fmt.Errorf("transaction rejected: %w", err)
	}

	w.logger.WithFields(logrus.Fields{
		"method": method,
		"to":     to.Hex(),
		"nonce":  nonce,
		"tx":     signedTx.Hash().Hex(),
	}).Info("📤 Contract write transaction sent")

	metrics.ContractWritesTotal.WithLabelValues(method, "sent").Inc()
	return signedTx.Hash(), nil
}

// Dial connects to the first reachable RPC endpoint of a network
func Dial(ctx context.Context, networkCfg *config.NetworkConfig) (*ethclient.Client, error) {
	var lastErr error
	for _, rpcURL := range networkCfg.RPCEndpoints {
		client, err := ethclient.DialContext(ctx, rpcURL)
		if err == nil {
			return client, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("network %s has no RPC endpoints configured", networkCfg.Name)
	}
	return nil, fmt.Errorf("failed to connect to RPC: %w", lastErr)
}
