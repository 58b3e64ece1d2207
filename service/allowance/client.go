// Package allowance reconciles reimbursement amounts against a requester's
// yearly allowance. Adjustment follows the same correlation discipline as
// approver lookups; refunds on cancellation are fire-and-forget.
package allowance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skillstorm/reimbursement/model"
	"github.com/skillstorm/reimbursement/service/correlation"
	"github.com/skillstorm/reimbursement/service/messaging"
)

const (
	AdjustmentRequestQueue  = "adjustment-request-queue"
	AdjustmentResponseQueue = "adjustment-response-queue"
	CancelRequestQueue      = "cancel-request-queue"
)

// ErrAdjustmentUnavailable is returned when the user service did not answer
// an adjustment request within the configured timeout.
var ErrAdjustmentUnavailable = errors.New("allowance: adjustment unavailable")

// AdjustmentRequest asks the user service to reserve amount against
// username's yearly allowance and report what it could actually cover.
type AdjustmentRequest struct {
	CorrelationID string  `json:"correlationId"`
	ReplyTo       string  `json:"replyTo"`
	Username      string  `json:"username"`
	Amount        float64 `json:"amount"`
}

// Adjustment is the reply payload: the amount the allowance covered, which
// may be less than requested.
type Adjustment struct {
	Username string  `json:"username"`
	Amount   float64 `json:"amount"`
}

// Queues bundles the broker channels the client talks over.
type Queues struct {
	AdjustmentRequest  messaging.Queue[AdjustmentRequest]
	AdjustmentResponse messaging.Queue[correlation.Reply[Adjustment]]
	CancelRequest      messaging.Queue[model.CancellationNotice]
}

// Client issues allowance adjustments and refunds.
type Client struct {
	queues     Queues
	registry   *correlation.Registry[Adjustment]
	dispatcher *correlation.Dispatcher[Adjustment]
	timeout    time.Duration
}

// New creates an allowance client. timeout bounds every adjustment wait.
func New(queues Queues, timeout time.Duration) *Client {
	registry := correlation.NewRegistry[Adjustment]()
	return &Client{
		queues:     queues,
		registry:   registry,
		dispatcher: correlation.NewDispatcher[Adjustment](registry, queues.AdjustmentResponse),
		timeout:    timeout,
	}
}

// Start launches the reply dispatcher loop.
func (c *Client) Start(ctx context.Context) {
	c.dispatcher.Start(ctx)
}

// Adjust reserves amount against username's allowance and returns the amount
// actually covered, rounded to two decimals.
func (c *Client) Adjust(ctx context.Context, username string, amount float64) (float64, error) {
	token, waiter := c.registry.Register()
	request := AdjustmentRequest{
		CorrelationID: token,
		ReplyTo:       AdjustmentResponseQueue,
		Username:      username,
		Amount:        model.RoundMoney(amount),
	}
	if err := c.queues.AdjustmentRequest.Publish(ctx, &request); err != nil {
		c.registry.Expire(token)
		return 0, fmt.Errorf("failed to publish adjustment request: %w", err)
	}

	adjustment, err := waiter.Wait(ctx, c.timeout)
	if err != nil {
		if errors.Is(err, correlation.ErrTimeout) {
			return 0, fmt.Errorf("%w: no adjustment reply for %s", ErrAdjustmentUnavailable, username)
		}
		return 0, err
	}
	return model.RoundMoney(adjustment.Amount), nil
}

// Refund returns a previously reserved amount to username's allowance. One
// notice per cancelled pending form.
func (c *Client) Refund(ctx context.Context, username string, amount float64) error {
	notice := model.CancellationNotice{
		Username: username,
		Amount:   model.RoundMoney(amount),
	}
	return c.queues.CancelRequest.Publish(ctx, &notice)
}
