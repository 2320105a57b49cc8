package client

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/x402mcp/x402mcp"
)

// RateLimits bounds payment frequency and hourly spend, adapted from the
// teacher's budget.go.
type RateLimits struct {
	MaxPaymentsPerMinute int
	MaxAmountPerHour     string
}

// BudgetManager tracks spend against a maximum per-payment amount and
// optional RateLimits, exposing itself as an ApprovalFunc for Driver.
type BudgetManager struct {
	mu               sync.Mutex
	maxPaymentAmount *big.Int
	rateLimits       *RateLimits

	payments        []paymentRecord
	hourlySpent     *big.Int
	hourlyResetTime time.Time
	minuteCount     int
	minuteResetTime time.Time
}

type paymentRecord struct {
	timestamp time.Time
	amount    *big.Int
	resource  string
}

// BudgetMetrics is a snapshot of BudgetManager's spend tracking.
type BudgetMetrics struct {
	TotalSpent   string
	HourlySpent  string
	PaymentCount int
	MinuteCount  int
}

// NewBudgetManager builds a BudgetManager. maxPaymentAmount is a decimal
// string in the asset's smallest unit; empty means no per-payment cap.
func NewBudgetManager(maxPaymentAmount string, rateLimits *RateLimits) (*BudgetManager, error) {
	maxAmount := new(big.Int)
	if maxPaymentAmount != "" {
		if _, ok := maxAmount.SetString(maxPaymentAmount, 10); !ok {
			return nil, fmt.Errorf("invalid max payment amount: %s", maxPaymentAmount)
		}
		if maxAmount.Sign() <= 0 {
			return nil, fmt.Errorf("max payment amount must be positive: %s", maxPaymentAmount)
		}
	}

	if rateLimits != nil && rateLimits.MaxAmountPerHour != "" {
		hourlyMax := new(big.Int)
		if _, ok := hourlyMax.SetString(rateLimits.MaxAmountPerHour, 10); !ok {
			return nil, fmt.Errorf("invalid max hourly amount: %s", rateLimits.MaxAmountPerHour)
		}
		if hourlyMax.Sign() <= 0 {
			return nil, fmt.Errorf("max hourly amount must be positive: %s", rateLimits.MaxAmountPerHour)
		}
	}

	return &BudgetManager{
		maxPaymentAmount: maxAmount,
		rateLimits:       rateLimits,
		hourlySpent:      big.NewInt(0),
		hourlyResetTime:  time.Now().Add(time.Hour),
		minuteResetTime:  time.Now().Add(time.Minute),
	}, nil
}

// CanSpend reports whether a payment of amount against resource fits
// within the configured per-payment cap and rate limits.
func (bm *BudgetManager) CanSpend(amount *big.Int, resource string) error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	now := time.Now()

	if bm.maxPaymentAmount.Sign() > 0 && amount.Cmp(bm.maxPaymentAmount) > 0 {
		return fmt.Errorf("payment of %s exceeds max payment amount %s", amount, bm.maxPaymentAmount)
	}

	if bm.rateLimits == nil {
		return nil
	}

	if !now.Before(bm.hourlyResetTime) {
		bm.hourlySpent = big.NewInt(0)
		bm.hourlyResetTime = now.Add(time.Hour)
	}
	if !now.Before(bm.minuteResetTime) {
		bm.minuteCount = 0
		bm.minuteResetTime = now.Add(time.Minute)
	}

	if bm.rateLimits.MaxPaymentsPerMinute > 0 && bm.minuteCount >= bm.rateLimits.MaxPaymentsPerMinute {
		return fmt.Errorf("rate limit exceeded: %d payments this minute", bm.minuteCount)
	}

	if bm.rateLimits.MaxAmountPerHour != "" {
		maxHourly := new(big.Int)
		if _, ok := maxHourly.SetString(bm.rateLimits.MaxAmountPerHour, 10); !ok {
			return fmt.Errorf("invalid max hourly amount: %s", bm.rateLimits.MaxAmountPerHour)
		}
		newTotal := new(big.Int).Add(bm.hourlySpent, amount)
		if newTotal.Cmp(maxHourly) > 0 {
			return fmt.Errorf("hourly budget of %s exceeded", maxHourly)
		}
	}

	return nil
}

// RecordPayment records a completed payment, updating rate-limit counters
// and pruning records older than 24 hours.
func (bm *BudgetManager) RecordPayment(amount *big.Int, resource string) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	now := time.Now()
	bm.payments = append(bm.payments, paymentRecord{timestamp: now, amount: new(big.Int).Set(amount), resource: resource})

	if bm.rateLimits != nil {
		bm.minuteCount++
		bm.hourlySpent.Add(bm.hourlySpent, amount)
	}

	cutoff := now.Add(-24 * time.Hour)
	for i, p := range bm.payments {
		if p.timestamp.After(cutoff) {
			bm.payments = bm.payments[i:]
			break
		}
	}
}

// GetMetrics returns a snapshot of recorded and hourly spend. TotalSpent and
// PaymentCount cover only the payments kept by RecordPayment's 24-hour
// pruning.
func (bm *BudgetManager) GetMetrics() BudgetMetrics {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	total := big.NewInt(0)
	for _, p := range bm.payments {
		total.Add(total, p.amount)
	}

	return BudgetMetrics{
		TotalSpent:   total.String(),
		HourlySpent:  bm.hourlySpent.String(),
		PaymentCount: len(bm.payments),
		MinuteCount:  bm.minuteCount,
	}
}

// Approve implements ApprovalFunc: it checks CanSpend against
// requirement.MaxAmountRequired and, if the payment fits, records it
// immediately (the driver calls it after the payment payload is built, right
// before sending the paid retry — see spec §4.4 step 5).
func (bm *BudgetManager) Approve(_ context.Context, requirement x402mcp.PaymentRequirement, resource x402mcp.ResourceInfo) bool {
	amount, ok := new(big.Int).SetString(requirement.MaxAmountRequired, 10)
	if !ok {
		return false
	}
	if err := bm.CanSpend(amount, resource.URL); err != nil {
		return false
	}
	bm.RecordPayment(amount, resource.URL)
	return true
}
