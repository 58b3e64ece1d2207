// Package directory resolves "who approves next" against the user service
// over the broker: a lookup request goes out on a role-specific queue with a
// correlation token and reply address, and the caller suspends until the
// matching reply arrives or the wait times out.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skillstorm/reimbursement/model"
	"github.com/skillstorm/reimbursement/service/correlation"
	"github.com/skillstorm/reimbursement/service/messaging"
)

// Request/response queue names, one pair per resolvable role.
const (
	UserLookupQueue           = "user-lookup-queue"
	SupervisorLookupQueue     = "supervisor-lookup-queue"
	DepartmentHeadLookupQueue = "department-head-lookup-queue"
	BencoLookupQueue          = "benco-lookup-queue"

	UserResponseQueue           = "user-response-queue"
	SupervisorResponseQueue     = "supervisor-response-queue"
	DepartmentHeadResponseQueue = "department-head-response-queue"
	BencoResponseQueue          = "benco-response-queue"
)

// ErrApproverUnavailable is returned when the user service did not answer a
// lookup within the configured timeout. Callers treat it as retryable.
var ErrApproverUnavailable = errors.New("directory: approver unavailable")

// LookupRequest asks the user service who holds the requested role for a
// username. The envelope carries the correlation token and the reply channel
// the answer must be published to.
type LookupRequest struct {
	CorrelationID string `json:"correlationId"`
	ReplyTo       string `json:"replyTo"`
	Username      string `json:"username"`
}

// Queues bundles the broker channels a client talks over.
type Queues struct {
	UserLookup           messaging.Queue[LookupRequest]
	SupervisorLookup     messaging.Queue[LookupRequest]
	DepartmentHeadLookup messaging.Queue[LookupRequest]
	BencoLookup          messaging.Queue[LookupRequest]

	UserResponse           messaging.Queue[correlation.Reply[model.Approver]]
	SupervisorResponse     messaging.Queue[correlation.Reply[model.Approver]]
	DepartmentHeadResponse messaging.Queue[correlation.Reply[model.Approver]]
	BencoResponse          messaging.Queue[correlation.Reply[model.Approver]]
}

// Client issues approver lookups and awaits replies via the correlation
// registry.
type Client struct {
	queues     Queues
	registry   *correlation.Registry[model.Approver]
	dispatcher *correlation.Dispatcher[model.Approver]
	timeout    time.Duration
}

// New creates a lookup client. timeout bounds every resolution wait.
func New(queues Queues, timeout time.Duration) *Client {
	registry := correlation.NewRegistry[model.Approver]()
	return &Client{
		queues:   queues,
		registry: registry,
		dispatcher: correlation.NewDispatcher[model.Approver](registry,
			queues.UserResponse,
			queues.SupervisorResponse,
			queues.DepartmentHeadResponse,
			queues.BencoResponse),
		timeout: timeout,
	}
}

// Start launches the reply dispatcher loops; call once per service lifetime.
func (c *Client) Start(ctx context.Context) {
	c.dispatcher.Start(ctx)
}

// ResolveApprover looks up who holds role for username. The returned
// approver's username is lower-cased so it can be used directly as a
// notification target. Nothing has been persisted when this fails; callers
// may surface the error without compensation.
func (c *Client) ResolveApprover(ctx context.Context, username string, role model.Role) (model.Approver, error) {
	requestQueue, replyTo, err := c.channel(role)
	if err != nil {
		return model.Approver{}, err
	}

	token, waiter := c.registry.Register()
	request := LookupRequest{
		CorrelationID: token,
		ReplyTo:       replyTo,
		Username:      username,
	}
	if err = requestQueue.Publish(ctx, &request); err != nil {
		c.registry.Expire(token)
		return model.Approver{}, fmt.Errorf("failed to publish %v lookup: %w", role, err)
	}

	approver, err := waiter.Wait(ctx, c.timeout)
	if err != nil {
		if errors.Is(err, correlation.ErrTimeout) {
			return model.Approver{}, fmt.Errorf("%w: no %v reply for %s", ErrApproverUnavailable, role, username)
		}
		return model.Approver{}, err
	}
	approver.Username = strings.ToLower(approver.Username)
	return approver, nil
}

func (c *Client) channel(role model.Role) (messaging.Queue[LookupRequest], string, error) {
	switch role {
	case model.RoleUser:
		return c.queues.UserLookup, UserResponseQueue, nil
	case model.RoleSupervisor:
		return c.queues.SupervisorLookup, SupervisorResponseQueue, nil
	case model.RoleDepartmentHead:
		return c.queues.DepartmentHeadLookup, DepartmentHeadResponseQueue, nil
	case model.RoleBenco:
		return c.queues.BencoLookup, BencoResponseQueue, nil
	}
	return nil, "", fmt.Errorf("no lookup channel for role %v", role)
}
