package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Digital-Mercenaries/zorp/internal/metrics"
)

// FactoryReader reads IZorpFactory contract state
type FactoryReader struct {
	caller  ContractCaller
	factory common.Address
}

// NewFactoryReader creates a new factory reader bound to one factory address
func NewFactoryReader(caller ContractCaller, factory common.Address) *FactoryReader {
	return &FactoryReader{caller: caller, factory: factory}
}

// PaginateStudies lists study addresses starting at a 1-based index
func (r *FactoryReader) PaginateStudies(ctx context.Context, start, limit uint64) ([]common.Address, error) {
	if start < 1 {
		return nil, fmt.Errorf("paginateStudies start must be >= 1, got %d", start)
	}
	if limit < 1 {
		return nil, fmt.Errorf("paginateStudies limit must be >= 1, got %d", limit)
	}

	method := "paginateStudies"
	metrics.ContractReadsTotal.WithLabelValues(method).Inc()

	data, err := FactoryABI.Pack(method, new(big.Int).SetUint64(start), new(big.Int).SetUint64(limit))
	if err != nil {
		metrics.ContractReadErrors.WithLabelValues(method).Inc()
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{
		To:   &r.factory,
		Data: data,
	}

	result, err := r.caller.CallContract(ctx, msg, nil)
	if err != nil {
		metrics.ContractReadErrors.WithLabelValues(method).Inc()
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	var addresses []common.Address
	if err := FactoryABI.UnpackIntoInterface(&addresses, method, result); err != nil {
		metrics.ContractReadErrors.WithLabelValues(method).Inc()
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}

	return addresses, nil
}
