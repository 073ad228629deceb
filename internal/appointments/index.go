package appointments

import (
	"strconv"

	"github.com/Deathstroke97/idoc/internal/directory"
)

// Index holds the id lookups derived from one State version. An Index is
// never modified after it is built.
type Index struct {
	version uint64
	clinics map[int64]directory.Clinic
	doctors map[int64]directory.Doctor
}

// NewIndex builds the clinic and doctor maps for s. When ids repeat, the last
// entry wins.
func NewIndex(s State) *Index {
	idx := &Index{
		version: s.Version,
		clinics: make(map[int64]directory.Clinic, len(s.Clinics)),
		doctors: make(map[int64]directory.Doctor, len(s.Doctors)),
	}
	for _, c := range s.Clinics {
		idx.clinics[c.ID] = c
	}
	for _, d := range s.Doctors {
		idx.doctors[d.ID] = d
	}
	return idx
}

func (i *Index) Version() uint64 { return i.version }

func (i *Index) Clinic(id int64) (directory.Clinic, bool) {
	c, ok := i.clinics[id]
	return c, ok
}

func (i *Index) Doctor(id int64) (directory.Doctor, bool) {
	d, ok := i.doctors[id]
	return d, ok
}

// ClinicLabel returns the clinic's name, or "Clinic #<id>" when the id is
// unknown or the name is blank.
func (i *Index) ClinicLabel(id int64) string {
	if c, ok := i.clinics[id]; ok && c.Name != "" {
		return c.Name
	}
	return "Clinic #" + strconv.FormatInt(id, 10)
}

// DoctorLabel returns the doctor's name, or "Doctor #<id>".
func (i *Index) DoctorLabel(id int64) string {
	if d, ok := i.doctors[id]; ok && d.Name != "" {
		return d.Name
	}
	return "Doctor #" + strconv.FormatInt(id, 10)
}

// Card is the display form of one appointment.
type Card struct {
	AppointmentID int64  `json:"appointment_id"`
	DoctorLabel   string `json:"doctor"`
	Specialty     string `json:"specialty,omitempty"`
	ClinicLabel   string `json:"clinic"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	PatientName   string `json:"patient_name"`
	PatientPhone  string `json:"patient_phone"`
}

// Cards derives one Card per appointment, in the order the backend returned
// them.
func Cards(s State, idx *Index) []Card {
	if idx == nil || idx.version != s.Version {
		idx = NewIndex(s)
	}
	cards := make([]Card, 0, len(s.Appointments))
	for _, a := range s.Appointments {
		card := Card{
			AppointmentID: a.ID,
			DoctorLabel:   idx.DoctorLabel(a.DoctorID),
			ClinicLabel:   idx.ClinicLabel(a.ClinicID),
			Date:          a.Date,
			Time:          a.Time,
			PatientName:   a.UserName,
			PatientPhone:  a.UserPhone,
		}
		if d, ok := idx.Doctor(a.DoctorID); ok {
			card.Specialty = d.Specialty
		}
		cards = append(cards, card)
	}
	return cards
}
