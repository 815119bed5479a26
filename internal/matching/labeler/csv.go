package labeler

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Header is the dataset column order.
var Header = []string{
	"donerid", "reciverid", "age_diff",
	"bloodgroup_donor", "bloodgroup_recipient",
	"organ", "organ_tissue_type_donor", "distance_km", "urgency",
	"hospital_transportation", "success",
}

func WriteCSV(w io.Writer, rows []LabeledPair) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		record := []string{
			r.DonorID,
			r.ReceiverID,
			strconv.Itoa(r.AgeDiff),
			r.BloodGroupDonor,
			r.BloodGroupRecipient,
			r.Organ,
			r.TissueTypeDonor,
			strconv.FormatFloat(r.DistanceKm, 'f', 2, 64),
			strconv.Itoa(r.Urgency),
			strconv.Itoa(r.HospitalTransportation),
			strconv.Itoa(r.Success),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
