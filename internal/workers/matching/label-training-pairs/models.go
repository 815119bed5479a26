// internal/workers/matching/label-training-pairs/models.go
package labeltrainingpairs

type Input struct {
	DryRun bool `json:"dryRun,omitempty"`
}

type Output struct {
	BatchID   string `json:"batchId,omitempty"`
	Donors    int    `json:"donors"`
	Receivers int    `json:"receivers"`
	Rows      int    `json:"rows"`
	Positives int    `json:"positives"`
	Negatives int    `json:"negatives"`
	Persisted bool   `json:"persisted"`
}
