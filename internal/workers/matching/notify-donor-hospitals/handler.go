// internal/workers/matching/notify-donor-hospitals/handler.go
package notifydonorhospitals

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"organmatch/internal/common/errors"
	"organmatch/internal/common/logger"
	"organmatch/internal/common/metrics"
	"organmatch/internal/common/validation"
	"organmatch/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "notify-donor-hospitals"
)

const (
	emailSubject = "Donor match for request {{requestId}}"
	emailBody    = "Hello {{hospitalName}},\n\n" +
		"Donor {{donorId}} has been matched to a {{organ}} recipient in {{receiverLocation}} " +
		"with probability {{probability}} (urgency {{urgency}}).\n" +
		"Estimated distance: {{distanceKm}} km. Transport arranged: {{transport}}.\n\n" +
		"Please confirm organ availability for request {{requestId}}."
	smsBody = "URGENT organ match {{requestId}}: donor {{donorId}} ({{organ}}) p={{probability}}. Please confirm availability."
)

var inputSchema = validation.MustCompile(validation.NotificationRequestSchema)

// Sender delivers a single message and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

// SMSSender delivers a text message and returns the provider message id.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config       *Config
	email        Sender
	sms          SMSSender
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

// NewHandler accepts nil senders for disabled channels.
func NewHandler(config *Config, email Sender, sms SMSSender, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		email:        email,
		sms:          sms,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := ParseInput(job.Variables)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func ParseInput(variables string) (*Input, error) {
	result, err := inputSchema.ValidateJSON([]byte(variables))
	if err != nil {
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err))
	}
	if !result.Valid {
		return nil, errors.NewInvalidRequestError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	output := &Output{
		NotificationID: uuid.New().String(),
		RequestID:      input.RequestID,
		Status:         StatusDisabled,
		Skipped:        []string{},
		SentAt:         time.Now().UTC().Format(time.RFC3339),
	}

	emailOn := h.config.EmailEnabled && h.email != nil
	smsOn := h.config.SMSEnabled && h.sms != nil && input.Urgency >= h.config.MinUrgency

	var lastErr error
	lastChannel := ChannelEmail
	for _, m := range input.Matches {
		data := templateData(input, m)
		attempted := false

		if emailOn && validation.ValidateEmail(m.ContactEmail) {
			attempted = true
			if err := h.sendEmail(ctx, m.ContactEmail, data); err != nil {
				lastErr, lastChannel = err, ChannelEmail
				output.Failed++
			} else {
				output.EmailsSent++
			}
		}

		if smsOn && validation.ValidatePhone(m.ContactPhone) {
			attempted = true
			if err := h.sendSMS(ctx, m.ContactPhone, data); err != nil {
				lastErr, lastChannel = err, ChannelSMS
				output.Failed++
			} else {
				output.SMSSent++
			}
		}

		if !attempted {
			output.Skipped = append(output.Skipped, m.DonorID)
		}
	}

	delivered := output.EmailsSent + output.SMSSent
	switch {
	case delivered == 0 && output.Failed > 0:
		return nil, errors.NewNotificationSendFailedError(lastChannel, lastErr)
	case output.Failed > 0:
		output.Status = StatusPartial
	case delivered > 0:
		output.Status = StatusSent
	}

	return output, nil
}

func (h *Handler) sendEmail(ctx context.Context, to string, data map[string]interface{}) error {
	id, err := h.email.Send(ctx, to, renderTemplate(emailSubject, data), renderTemplate(emailBody, data))
	if err != nil {
		metrics.NotificationsSent.WithLabelValues(ChannelEmail, "failed").Inc()
		h.logger.Error("email send failed", map[string]interface{}{
			"error":   err,
			"donorId": data["donorId"],
		})
		return err
	}
	metrics.NotificationsSent.WithLabelValues(ChannelEmail, "sent").Inc()
	h.logger.Debug("email sent", map[string]interface{}{"messageId": id, "donorId": data["donorId"]})
	return nil
}

func (h *Handler) sendSMS(ctx context.Context, phone string, data map[string]interface{}) error {
	id, err := h.sms.Send(ctx, phone, renderTemplate(smsBody, data))
	if err != nil {
		metrics.NotificationsSent.WithLabelValues(ChannelSMS, "failed").Inc()
		h.logger.Error("SMS send failed", map[string]interface{}{
			"error":   err,
			"donorId": data["donorId"],
		})
		return err
	}
	metrics.NotificationsSent.WithLabelValues(ChannelSMS, "sent").Inc()
	h.logger.Debug("SMS sent", map[string]interface{}{"messageId": id, "donorId": data["donorId"]})
	return nil
}

func templateData(input *Input, m models.MatchResult) map[string]interface{} {
	hospital := m.HospitalName
	if hospital == "" {
		hospital = "transplant coordinator"
	}
	return map[string]interface{}{
		"requestId":        input.RequestID,
		"urgency":          input.Urgency,
		"organ":            input.Organ,
		"receiverLocation": input.ReceiverLocation,
		"donorId":          m.DonorID,
		"hospitalName":     hospital,
		"probability":      fmt.Sprintf("%.2f", m.Probability),
		"distanceKm":       fmt.Sprintf("%.1f", m.DistanceKm),
		"transport":        m.TransportAvailable,
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":         job.Key,
		"notificationId": output.NotificationID,
		"status":         output.Status,
		"emailsSent":     output.EmailsSent,
		"smsSent":        output.SMSSent,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := h.errorHandler.HandleJobError(ctx, client, job, err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
}

// renderTemplate replaces {{key}} placeholders and drops any left unresolved.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		value := ""
		if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
