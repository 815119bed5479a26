// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"organmatch/internal/common/errors"
	"organmatch/internal/common/validation"
)

const registryVersion = "1.0.0"

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &reg, nil
}

// Save writes the registry as indented JSON.
func (r *ActivityRegistry) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Find returns the activity for taskType.
func (r *ActivityRegistry) Find(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// Validate reports duplicate ids or task types, unknown error codes and
// input schemas that do not compile.
func (r *ActivityRegistry) Validate() error {
	ids := map[string]bool{}
	taskTypes := map[string]bool{}
	for _, a := range r.Activities {
		if a.ID == "" || a.TaskType == "" {
			return fmt.Errorf("activity %q: id and taskType are required", a.DisplayName)
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity id %q", a.ID)
		}
		if taskTypes[a.TaskType] {
			return fmt.Errorf("duplicate task type %q", a.TaskType)
		}
		ids[a.ID], taskTypes[a.TaskType] = true, true

		if _, err := time.ParseDuration(a.Timeout); err != nil {
			return fmt.Errorf("activity %s: timeout: %w", a.ID, err)
		}
		for _, code := range a.ErrorCodes {
			if _, ok := errors.BPMNErrorMapping[errors.ErrorCode(code)]; !ok {
				return fmt.Errorf("activity %s: unknown error code %q", a.ID, code)
			}
		}
		if a.InputSchema != nil {
			raw, err := json.Marshal(a.InputSchema)
			if err != nil {
				return fmt.Errorf("activity %s: %w", a.ID, err)
			}
			if _, err := validation.Compile(string(raw)); err != nil {
				return fmt.Errorf("activity %s: input schema: %w", a.ID, err)
			}
		}
	}
	return nil
}

// Default is the catalog of the matching workers.
func Default() *ActivityRegistry {
	return &ActivityRegistry{
		Version:     registryVersion,
		LastUpdated: time.Now().UTC().Format("2006-01-02"),
		Activities: []Activity{
			{
				ID:          "find-donor-matches",
				DisplayName: "Find Donor Matches",
				Description: "Filters the donor pool for one receiver, scores eligible donors and returns the ranked matches.",
				Category:    "matching",
				TaskType:    "find-donor-matches",
				InputSchema: mustSchema(validation.MatchRequestSchema),
				Outputs:     []string{"requestId", "outcome", "hasMatches", "matches", "eligibleCount", "bestProbability", "urgency"},
				ErrorCodes: codes(errors.ErrCodeInvalidRequest, errors.ErrCodeSchemaMismatch, errors.ErrCodeOracleUnavailable,
					errors.ErrCodeOracleContract, errors.ErrCodeDonorPoolUnavailable),
				Timeout: "10s",
				Retries: errors.GetRetryCount(errors.ErrCodeDonorPoolUnavailable),
				Tags:    []string{"online", "scoring"},
			},
			{
				ID:          "check-donor-eligibility",
				DisplayName: "Check Donor Eligibility",
				Description: "Applies the hard compatibility clauses to one donor and one receiver and names the first failing clause.",
				Category:    "matching",
				TaskType:    "check-donor-eligibility",
				InputSchema: mustSchema(validation.EligibilityRequestSchema),
				Outputs:     []string{"donorId", "eligible", "failedClause", "distanceKm"},
				ErrorCodes:  codes(errors.ErrCodeInvalidRequest),
				Timeout:     "5s",
				Tags:        []string{"online"},
			},
			{
				ID:          "label-training-pairs",
				DisplayName: "Label Training Pairs",
				Description: "Joins every stored donor with every receiver needing the same organ, labels each pair and stores the batch.",
				Category:    "training",
				TaskType:    "label-training-pairs",
				Outputs:     []string{"batchId", "donors", "receivers", "rows", "positives", "negatives", "persisted"},
				ErrorCodes:  codes(errors.ErrCodeDonorPoolUnavailable, errors.ErrCodeLabelingFailed),
				Timeout:     "5m",
				Retries:     errors.GetRetryCount(errors.ErrCodeLabelingFailed),
				Tags:        []string{"batch"},
			},
			{
				ID:          "notify-donor-hospitals",
				DisplayName: "Notify Donor Hospitals",
				Description: "Emails the hospitals of matched donors and sends SMS for urgent requests.",
				Category:    "communication",
				TaskType:    "notify-donor-hospitals",
				InputSchema: mustSchema(validation.NotificationRequestSchema),
				Outputs:     []string{"notificationId", "requestId", "status", "emailsSent", "smsSent", "failed", "skipped", "sentAt"},
				ErrorCodes:  codes(errors.ErrCodeInvalidRequest, errors.ErrCodeNotificationSendFailed),
				Timeout:     "30s",
				Retries:     errors.GetRetryCount(errors.ErrCodeNotificationSendFailed),
				Tags:        []string{"aws"},
			},
		},
	}
}

func mustSchema(raw string) map[string]interface{} {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		panic(fmt.Sprintf("registry: invalid schema: %v", err))
	}
	return m
}

func codes(cs ...errors.ErrorCode) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}
