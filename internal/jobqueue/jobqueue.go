/*
Package jobqueue provides a River-based job queue for work that must survive
process restarts: paging staff about urgent messages and registering callback
URLs with the telephony provider.

For tuning parameters see queue_config.go.
*/
package jobqueue

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog/log"

	"github.com/frontdesk/internal/responder"
	"github.com/frontdesk/internal/voipms"
	"github.com/frontdesk/internal/webhooksig"
	"github.com/frontdesk/pkg/models"
)

// Webhook targets accepted by QueueWebhookInstall.
const (
	WebhookTargetSMS  = "sms"
	WebhookTargetCall = "call"
)

// MessageSender sends an outbound SMS. Satisfied by *voipms.Client.
type MessageSender interface {
	SendSMS(ctx context.Context, destination, body, from string) ([]voipms.SendResult, error)
}

// WebhookConfigurer registers callback URLs with the provider. Satisfied by
// *voipms.Client.
type WebhookConfigurer interface {
	ConfigureSMSWebhook(ctx context.Context, signedURL string) error
	ConfigureCallWebhook(ctx context.Context, signedURL string) error
}

// StaffNotifyJobArgs pages a staff phone about an inbound message that needs
// human attention.
type StaffNotifyJobArgs struct {
	PhoneNumber string `json:"phone_number"`
	Body        string `json:"body"`
	Category    string `json:"category"`
}

func (StaffNotifyJobArgs) Kind() string { return "staff_notify" }

// StaffNotifyWorker delivers staff pages over SMS.
type StaffNotifyWorker struct {
	river.WorkerDefaults[StaffNotifyJobArgs]
	sender      MessageSender
	staffNumber string
	fromDID     string
}

// Work sends the page. A missing staff number is a configuration gap, not a
// transient failure, so the job completes without retrying.
func (w *StaffNotifyWorker) Work(ctx context.Context, job *river.Job[StaffNotifyJobArgs]) error {
	args := job.Args

	if w.staffNumber == "" {
		log.Warn().
			Str("category", args.Category).
			Str("phone", args.PhoneNumber).
			Msg("no staff number configured, dropping notification")
		return nil
	}

	body := fmt.Sprintf("[%s] Message from %s: %s", args.Category, args.PhoneNumber, args.Body)
	if _, err := w.sender.SendSMS(ctx, w.staffNumber, body, w.fromDID); err != nil {
		return fmt.Errorf("send staff notification: %w", err)
	}

	log.Info().
		Str("category", args.Category).
		Str("phone", args.PhoneNumber).
		Msg("staff notified")
	return nil
}

// WebhookInstallJobArgs registers one callback URL with the provider.
type WebhookInstallJobArgs struct {
	Target      string `json:"target"` // sms or call
	CallbackURL string `json:"callback_url"`
}

func (WebhookInstallJobArgs) Kind() string { return "webhook_install" }

// WebhookInstallWorker signs the callback URL and pushes it to the provider
// account settings.
type WebhookInstallWorker struct {
	river.WorkerDefaults[WebhookInstallJobArgs]
	configurer WebhookConfigurer
	signer     *webhooksig.Signer
}

func (w *WebhookInstallWorker) Work(ctx context.Context, job *river.Job[WebhookInstallJobArgs]) error {
	args := job.Args

	signed := w.signer.Sign(args.CallbackURL)

	var err error
	switch args.Target {
	case WebhookTargetSMS:
		err = w.configurer.ConfigureSMSWebhook(ctx, signed)
	case WebhookTargetCall:
		err = w.configurer.ConfigureCallWebhook(ctx, signed)
	default:
		log.Error().Str("target", args.Target).Msg("unknown webhook target, dropping job")
		return nil
	}
	if err != nil {
		return fmt.Errorf("install %s webhook: %w", args.Target, err)
	}

	log.Info().Str("target", args.Target).Str("url", args.CallbackURL).Msg("webhook registered with provider")
	return nil
}

// Deps are the collaborators injected into queue workers.
type Deps struct {
	Sender      MessageSender
	Configurer  WebhookConfigurer
	Signer      *webhooksig.Signer
	StaffNumber string
	FromDID     string
}

// JobQueue manages the River client and its workers.
type JobQueue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	config *QueueConfig
}

// NewJobQueue opens a pgx pool on databaseURL and builds a River client with
// the gateway workers registered.
func NewJobQueue(ctx context.Context, databaseURL string, deps Deps, config *QueueConfig) (*JobQueue, error) {
	if config == nil {
		config = DefaultQueueConfig()
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &StaffNotifyWorker{
		sender:      deps.Sender,
		staffNumber: deps.StaffNumber,
		fromDID:     deps.FromDID,
	})
	river.AddWorker(workers, &WebhookInstallWorker{
		configurer: deps.Configurer,
		signer:     deps.Signer,
	})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:     config.RiverQueueConfig(),
		Workers:    workers,
		JobTimeout: config.JobTimeout,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create river client: %w", err)
	}

	return &JobQueue{client: client, pool: pool, config: config}, nil
}

// Start begins processing jobs.
func (jq *JobQueue) Start(ctx context.Context) error {
	return jq.client.Start(ctx)
}

// Stop drains workers and closes the pool.
func (jq *JobQueue) Stop(ctx context.Context) error {
	err := jq.client.Stop(ctx)
	jq.pool.Close()
	return err
}

// QueueStaffNotification enqueues a staff page. Urgent categories jump the
// queue.
func (jq *JobQueue) QueueStaffNotification(ctx context.Context, phoneNumber, body, category string) error {
	priority := priorityDefault
	if category == "emergency" || category == models.PriorityUrgent {
		priority = priorityUrgent
	}

	_, err := jq.client.Insert(ctx, StaffNotifyJobArgs{
		PhoneNumber: phoneNumber,
		Body:        body,
		Category:    category,
	}, &river.InsertOpts{
		Queue:       QueueNotifications,
		Priority:    priority,
		MaxAttempts: jq.config.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("queue staff notification: %w", err)
	}
	return nil
}

// NotifyStaff implements responder.StaffNotifier on top of the durable queue.
func (jq *JobQueue) NotifyStaff(ctx context.Context, n responder.StaffNotification) error {
	return jq.QueueStaffNotification(ctx, n.PhoneNumber, n.Body, n.Category)
}

// QueueWebhookInstall enqueues provider webhook registration for the given
// target, WebhookTargetSMS or WebhookTargetCall.
func (jq *JobQueue) QueueWebhookInstall(ctx context.Context, target, callbackURL string) error {
	_, err := jq.client.Insert(ctx, WebhookInstallJobArgs{
		Target:      target,
		CallbackURL: callbackURL,
	}, &river.InsertOpts{
		MaxAttempts: jq.config.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("queue webhook install: %w", err)
	}
	return nil
}
