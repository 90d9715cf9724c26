// Package ids defines the engine's opaque identifier newtypes. Each wraps a
// string but is not interchangeable with the others, per spec.md 3 —
// the compiler rejects passing a MarketTokenId where a ConditionId is
// expected even though both are strings underneath.
package ids

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/flowstate-labs/predengine/xerrors"
	"github.com/flowstate-labs/predengine/xresult"
)

type ConditionId string
type MarketTokenId string
type ClientOrderId string
type ExchangeOrderId string

// EthAddress wraps a checksummed Ethereum address string. Construction
// validates the hex shape the way exec/client.go's signing path relies on
// go-ethereum's common package to do, but the engine core never signs
// anything — it only needs an address identifier, per spec.md 1's scoping
// of cryptographic signing primitives out.
type EthAddress string

// NewEthAddress validates s as a hex-encoded Ethereum address and returns
// its EIP-55 checksummed form.
func NewEthAddress(s string) xresult.Result[EthAddress] {
	if !common.IsHexAddress(s) {
		return xresult.Err[EthAddress](xerrors.New(xerrors.KindConfig, "ids: %q is not a valid eth address", s))
	}
	return xresult.Ok(EthAddress(common.HexToAddress(s).Hex()))
}

// NewClientOrderId mints a fresh client order id. The engine always
// generates these itself (never trusts a caller-supplied id), matching the
// executor's PB_<nanos>_<asset> scheme in execution/executor.go generalized
// to a collision-resistant UUID.
func NewClientOrderId() ClientOrderId {
	return ClientOrderId("coid_" + uuid.NewString())
}

func (c ConditionId) String() string     { return string(c) }
func (t MarketTokenId) String() string   { return string(t) }
func (c ClientOrderId) String() string   { return string(c) }
func (e ExchangeOrderId) String() string { return string(e) }
func (a EthAddress) String() string      { return string(a) }
