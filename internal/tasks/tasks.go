package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/GhostEsso/ahoefa-backend/internal/config"
	"github.com/GhostEsso/ahoefa-backend/internal/email"
)

// Task types handled by the background worker.
const (
	TypeEmailDelivery = "email:deliver"
)

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return asynq.NewClient(clientOpt)
}

// EmailTaskPayload carries one outbound email.
type EmailTaskPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewWelcomeEmailTask builds the delivery task enqueued after registration.
func NewWelcomeEmailTask(to, firstName string) (*asynq.Task, error) {
	payload := EmailTaskPayload{
		To:      to,
		Subject: "Bienvenue sur Ahoefa",
		Body: fmt.Sprintf(
			"Bonjour %s,\n\nVotre compte Ahoefa a bien ete cree. Vous pouvez maintenant vous connecter et decouvrir les annonces.\n\nL'equipe Ahoefa",
			firstName,
		),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal email task payload: %w", err)
	}
	return asynq.NewTask(TypeEmailDelivery, data), nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg         *config.Config
	emailSender email.Sender
}

func NewTaskProcessor(cfg *config.Config, emailSender email.Sender) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		emailSender: emailSender,
	}
}

// SetupServer configures an Asynq server instance and its handler mux.
// Callers run the server and own its shutdown.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	log.Println("Registered background task handlers.")

	return srv, mux
}

// HandleEmailDeliveryTask processes email delivery tasks.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}

	fromAddress := p.cfg.SmtpFromAddress
	if fromAddress == "" {
		fromAddress = "noreply@example.com"
		log.Printf("Warning: SmtpFromAddress not configured, using fallback %s for email to %s", fromAddress, payload.To)
	}

	// Basic email structure with essential headers.
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", payload.To))
	sb.WriteString(fmt.Sprintf("From: %s\r\n", fromAddress))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", payload.Subject))
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(payload.Body)
	sb.WriteString("\r\n")

	if err := p.emailSender.Send(ctx, []string{payload.To}, payload.Subject, []byte(sb.String())); err != nil {
		log.Printf("Email sending failed for %s: %v", payload.To, err)
		return err
	}

	log.Printf("Email task processed: To=%s, Subject=%s", payload.To, payload.Subject)
	return nil
}
