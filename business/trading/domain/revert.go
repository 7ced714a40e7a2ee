package domain

import (
	"bytes"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/fd1az/curve-arbitrage/internal/apperror"
	"github.com/fd1az/curve-arbitrage/internal/evm"
)

// RevertRule maps a known contract error to a code and message. A rule
// matches a custom error by its signature selector, or a revert reason
// string by case-insensitive substring.
type RevertRule struct {
	Signature string // custom error, e.g. "TradingLocked()"
	Reason    string // substring of an Error(string) reason
	Code      apperror.Code
	Message   string
}

// KnownReverts is consulted before any generic decoding.
var KnownReverts = []RevertRule{
	{Signature: "TradingLocked()", Reason: "trading locked", Code: apperror.CodeTradingLocked,
		Message: "Trading is locked on this curve"},
	{Signature: "TradingNotOpen()", Reason: "trading window", Code: apperror.CodeTradingWindowClosed,
		Message: "The trading window is closed"},
	{Signature: "CurveNotInitialized()", Reason: "not initialized", Code: apperror.CodeCurveNotInitialized,
		Message: "The curve has not been initialized yet"},
	{Signature: "ExceedsMaxSupply()", Reason: "exceeds max supply", Code: apperror.CodeCapacityExceeded,
		Message: "Not enough tickets left on the curve for this purchase"},
	{Signature: "SlippageExceeded(uint256,uint256)", Reason: "slippage", Code: apperror.CodeSlippageExceeded,
		Message: "Price moved beyond your slippage tolerance"},
	{Signature: "InsufficientReserves()", Reason: "insufficient reserves", Code: apperror.CodeReservesInsufficient,
		Message: "The curve does not hold enough reserves to pay out this sale"},
	{Signature: "InsufficientTickets()", Reason: "insufficient tickets", Code: apperror.CodeInsufficientTickets,
		Message: "You do not hold enough tickets for this sale"},
	{Signature: "ERC20InsufficientAllowance(address,uint256,uint256)", Reason: "insufficient allowance", Code: apperror.CodeAuthorizationFailed,
		Message: "Spending authorization is too low for this purchase"},
	{Signature: "ERC20InsufficientBalance(address,uint256,uint256)", Reason: "exceeds balance", Code: apperror.CodeInsufficientBalance,
		Message: "Wallet balance is too low for this purchase"},
}

var signerRejections = []string{"user rejected", "user denied", "denied transaction", "rejected by user"}

// Classification is the decoded meaning of a failed call.
type Classification struct {
	Code    apperror.Code
	Message string
	Reason  string // raw decoded reason, when any
	Known   bool
}

// ClassifyRevert resolves a revert payload and error text into a code. It
// tries the known table first, then the standard Error(string) decoder, then
// falls back to fallback with its generic message.
func ClassifyRevert(data []byte, errText string, fallback apperror.Code) Classification {
	if len(data) >= 4 {
		for _, r := range KnownReverts {
			if r.Signature != "" && bytes.Equal(data[:4], evm.Selector(r.Signature)) {
				return Classification{Code: r.Code, Message: r.Message, Reason: r.Signature, Known: true}
			}
		}
	}

	reason := ""
	if len(data) > 0 {
		if decoded, err := abi.UnpackRevert(data); err == nil {
			reason = decoded
		}
	}
	if reason == "" {
		reason = reasonFromText(errText)
	}

	if reason != "" {
		lower := strings.ToLower(reason)
		for _, r := range KnownReverts {
			if r.Reason != "" && strings.Contains(lower, r.Reason) {
				return Classification{Code: r.Code, Message: r.Message, Reason: reason, Known: true}
			}
		}
		return Classification{Code: fallback, Message: "Transaction reverted: " + reason, Reason: reason}
	}

	return Classification{Code: fallback, Message: apperror.Message(fallback)}
}

// IsSignerRejection reports whether the signer declined to sign.
func IsSignerRejection(errText string) bool {
	lower := strings.ToLower(errText)
	for _, s := range signerRejections {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// reasonFromText pulls the reason out of "execution reverted: <reason>".
func reasonFromText(errText string) string {
	const marker = "execution reverted:"
	i := strings.Index(strings.ToLower(errText), marker)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(errText[i+len(marker):])
}
