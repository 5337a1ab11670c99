package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

type ChargeRequest struct {
	BookingID uint
	Amount    float64
	Currency  string
	CardToken string
	Email     string
}

type ChargeResult struct {
	TransactionID string
	Amount        float64
}

// PaymentGateway charges the booking advance. Refund undoes a charge when
// the booking could not be committed.
type PaymentGateway interface {
	Name() string
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	Refund(ctx context.Context, transactionID string, amount float64) error
}

// SimulatedGateway accepts every charge. It stands in for a real processor
// in demos and tests.
type SimulatedGateway struct{}

func (SimulatedGateway) Name() string { return "simulated" }

func (SimulatedGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}
	return ChargeResult{TransactionID: "demo_" + uuid.NewString(), Amount: req.Amount}, nil
}

func (SimulatedGateway) Refund(context.Context, string, float64) error { return nil }

// OmiseGateway charges a tokenized card through Omise.
type OmiseGateway struct {
	client   *omise.Client
	currency string
}

func NewOmiseGateway(publicKey, secretKey, currency string) (*OmiseGateway, error) {
	client, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("omise client: %w", err)
	}
	if currency == "" {
		currency = "bdt"
	}
	return &OmiseGateway{client: client, currency: strings.ToLower(currency)}, nil
}

func (g *OmiseGateway) Name() string { return "omise" }

// toSubunits converts taka to poisha, the unit Omise amounts are in.
func toSubunits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (g *OmiseGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if req.CardToken == "" {
		return ChargeResult{}, invalid("card_token", "কার্ডের তথ্য আবশ্যক")
	}
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}
	currency := req.Currency
	if currency == "" {
		currency = g.currency
	}
	ch := &omise.Charge{}
	op := &operations.CreateCharge{
		Amount:   toSubunits(req.Amount),
		Currency: currency,
		Card:     req.CardToken,
		Metadata: map[string]any{"booking_id": req.BookingID, "email": req.Email},
	}
	if err := g.client.Do(ch, op); err != nil {
		return ChargeResult{}, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	if string(ch.Status) != "successful" {
		msg := string(ch.Status)
		if ch.FailureMessage != nil {
			msg = *ch.FailureMessage
		}
		return ChargeResult{}, fmt.Errorf("%w: %s", ErrPaymentFailed, msg)
	}
	return ChargeResult{TransactionID: ch.ID, Amount: float64(ch.Amount) / 100}, nil
}

func (g *OmiseGateway) Refund(_ context.Context, transactionID string, amount float64) error {
	if transactionID == "" {
		return errors.New("missing charge id")
	}
	refund := &omise.Refund{}
	return g.client.Do(refund, &operations.CreateRefund{
		ChargeID: transactionID,
		Amount:   toSubunits(amount),
	})
}
