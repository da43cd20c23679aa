package model

// Medication is a single line of a prescription as produced by the upstream
// extraction/editing step. All fields are free text.
type Medication struct {
	Name      string `yaml:"name" json:"name"`
	Dosage    string `yaml:"dosage" json:"dosage"`
	Frequency string `yaml:"frequency" json:"frequency"`
	Duration  string `yaml:"duration" json:"duration"`
}

// Prescription is a saved, user-named prescription.
//
// Date is whatever the prescription says; it is not guaranteed to be in any
// particular format and is only interpreted by the refill resolver.
type Prescription struct {
	ID          string       `yaml:"id" json:"id"`
	Name        string       `yaml:"name" json:"name"`
	PatientName string       `yaml:"patient_name" json:"patient_name"`
	DoctorName  string       `yaml:"doctor_name" json:"doctor_name"`
	Date        string       `yaml:"date" json:"date"`
	Diagnosis   string       `yaml:"diagnosis" json:"diagnosis"`
	Medications []Medication `yaml:"medications" json:"medications"`
}

// Medication returns the first medication with the given name.
func (p Prescription) Medication(name string) (Medication, bool) {
	for _, m := range p.Medications {
		if m.Name == name {
			return m, true
		}
	}
	return Medication{}, false
}

// ScheduleTimes is an ordered list of "HH:MM" (24h) clock times, strictly
// ascending with no duplicates. An empty value means no schedule.
type ScheduleTimes []string

// Contains reports whether hhmm is one of the scheduled times.
func (s ScheduleTimes) Contains(hhmm string) bool {
	for _, t := range s {
		if t == hhmm {
			return true
		}
	}
	return false
}

// Reminder binds one medication of a saved prescription to its daily times.
// Reminders are replaced wholesale, never edited.
type Reminder struct {
	ID               string        `yaml:"id" json:"id"`
	PrescriptionID   string        `yaml:"prescription_id" json:"prescription_id"`
	MedicationName   string        `yaml:"medication_name" json:"medication_name"`
	PrescriptionName string        `yaml:"prescription_name" json:"prescription_name"`
	Frequency        string        `yaml:"frequency" json:"frequency"`
	Times            ScheduleTimes `yaml:"times" json:"times"`
}

// RefillReminder records when a prescription needs to be refilled.
// ID is the prescription ID, so there is at most one per prescription.
type RefillReminder struct {
	ID               string `yaml:"id" json:"id"`
	PrescriptionName string `yaml:"prescription_name" json:"prescription_name"`
	RefillDate       string `yaml:"refill_date" json:"refill_date"` // YYYY-MM-DD
}

// ReminderID derives the reminder identity for a medication on a prescription.
func ReminderID(prescriptionID, medicationName string) string {
	return prescriptionID + "-" + medicationName
}
