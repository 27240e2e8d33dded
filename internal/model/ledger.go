package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MaxStock bounds quantities and stock levels to a 32-bit integer column.
const MaxStock = math.MaxInt32

// maxStockRule is the validation rule reported when MaxStock is exceeded.
var maxStockRule = "lte=" + strconv.Itoa(MaxStock)

// ParseKind normalizes a user supplied kind ("IN", " out ") to a TransactionKind.
func ParseKind(raw string) (TransactionKind, error) {
	switch TransactionKind(strings.ToLower(strings.TrimSpace(raw))) {
	case TxIn:
		return TxIn, nil
	case TxOut:
		return TxOut, nil
	}
	return "", InvalidField("kind", "must be one of: in out")
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, err
	}
	return d, nil
}

// Delta is the signed stock effect of a movement.
func Delta(kind TransactionKind, quantity int) int {
	if kind == TxOut {
		return -quantity
	}
	return quantity
}

// ApplyMovement returns the stock after posting (kind, quantity) against
// current. A movement that would leave stock negative fails with
// ErrInsufficientStock.
func ApplyMovement(current int, kind TransactionKind, quantity int) (int, error) {
	if quantity > MaxStock {
		return current, InvalidField("quantity", maxStockRule)
	}
	next := current + Delta(kind, quantity)
	if next > MaxStock {
		return current, InvalidField("quantity", fmt.Sprintf("stock would exceed %d", MaxStock))
	}
	if next < 0 {
		return current, fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, quantity, current)
	}
	return next, nil
}

// ReverseMovement undoes a previously posted movement. Reversing an inbound
// entry whose units have since left the shelf fails with ErrInsufficientStock.
func ReverseMovement(current int, kind TransactionKind, quantity int) (int, error) {
	if quantity > MaxStock {
		return current, InvalidField("quantity", maxStockRule)
	}
	next := current - Delta(kind, quantity)
	if next > MaxStock {
		return current, InvalidField("quantity", fmt.Sprintf("stock would exceed %d", MaxStock))
	}
	if next < 0 {
		return current, fmt.Errorf("%w: reversing %d %s units leaves %d on hand", ErrInsufficientStock, quantity, kind, next)
	}
	return next, nil
}

// CorrectionFor returns the movement that brings current to target.
// ok is false when no movement is needed.
func CorrectionFor(current, target int) (kind TransactionKind, quantity int, ok bool) {
	switch {
	case target > current:
		return TxIn, target - current, true
	case target < current:
		return TxOut, current - target, true
	}
	return "", 0, false
}
