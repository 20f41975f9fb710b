package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"vessel/internal/domain"
)

// transferTopic is keccak256("Transfer(address,address,uint256)"), the event
// every ERC-20 transfer emits.
const transferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

// amountTolerance absorbs fixed-point rounding between the claimed and the
// on-ledger amount.
var amountTolerance = decimal.RequireFromString("0.01")

// Verifier confirms that a transaction reference represents a token transfer of
// a specific amount to a specific address. It is read-only and idempotent; it
// may be retried freely.
type Verifier struct {
	client          *Client
	tokenContract   string
	tokenDecimals   int32
	explorerBaseURL string
}

// NewVerifier constructs a verifier bound to one token contract.
func NewVerifier(client *Client, tokenContract string, tokenDecimals int, explorerBaseURL string) *Verifier {
	return &Verifier{
		client:          client,
		tokenContract:   strings.ToLower(tokenContract),
		tokenDecimals:   int32(tokenDecimals),
		explorerBaseURL: strings.TrimRight(explorerBaseURL, "/"),
	}
}

// Verify fetches the receipt for ref and confirms it moved expectedAmount of
// the token to expectedTo, within tolerance. It returns ErrTransferNotFound for
// unknown or unmined references, ErrTransferReverted for failed transactions
// and AmountMismatchError when no matching transfer event is found.
func (v *Verifier) Verify(ctx context.Context, ref, expectedTo string, expectedAmount decimal.Decimal) (*domain.VerifiedTransfer, error) {
	receipt, err := v.client.TransactionReceipt(ctx, ref)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, fmt.Errorf("reference %s: %w", ref, domain.ErrTransferNotFound)
	}
	if !receipt.Succeeded() {
		return nil, fmt.Errorf("reference %s: %w", ref, domain.ErrTransferReverted)
	}

	wantTo := normalizeAddress(expectedTo)
	var (
		from   string
		amount decimal.Decimal
		found  bool
	)
	for _, log := range receipt.Logs {
		if strings.ToLower(log.Address) != v.tokenContract {
			continue
		}
		if len(log.Topics) < 3 || !strings.EqualFold(log.Topics[0], transferTopic) {
			continue
		}
		if topicAddress(log.Topics[2]) != wantTo {
			continue
		}
		from = topicAddress(log.Topics[1])
		amount = v.parseAmount(log.Data)
		found = true
		break
	}
	if !found {
		return nil, &domain.AmountMismatchError{Expected: expectedAmount, Actual: decimal.Zero}
	}

	if amount.Sub(expectedAmount).Abs().GreaterThan(amountTolerance) {
		return nil, &domain.AmountMismatchError{Expected: expectedAmount, Actual: amount}
	}

	return &domain.VerifiedTransfer{
		Reference:   ref,
		From:        from,
		To:          wantTo,
		Amount:      amount,
		BlockNumber: receipt.Block(),
		Confirmed:   true,
		ExplorerURL: v.ExplorerURL(ref),
	}, nil
}

// ExplorerURL builds the public explorer link for a transaction reference.
func (v *Verifier) ExplorerURL(ref string) string {
	return fmt.Sprintf("%s/tx/%s", v.explorerBaseURL, ref)
}

func (v *Verifier) parseAmount(data string) decimal.Decimal {
	raw := strings.TrimPrefix(data, "0x")
	units, ok := new(big.Int).SetString(raw, 16)
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(units, -v.tokenDecimals)
}

// topicAddress extracts the 20-byte address from a 32-byte padded topic.
func topicAddress(topic string) string {
	t := strings.TrimPrefix(strings.ToLower(topic), "0x")
	if len(t) < 40 {
		return ""
	}
	return "0x" + t[len(t)-40:]
}

func normalizeAddress(addr string) string {
	a := strings.TrimPrefix(strings.ToLower(addr), "0x")
	return "0x" + a
}
