package directory

// Appointment is a booked date/time between a patient and a doctor at a
// clinic, as reported by the directory backend.
type Appointment struct {
	ID        int64  `json:"id"`
	ClinicID  int64  `json:"clinic_id"`
	DoctorID  int64  `json:"doctor_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	UserName  string `json:"user_name"`
	UserPhone string `json:"user_phone"`
}

// Clinic is read-only reference data. The backend nests the clinic's doctors.
type Clinic struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Doctors []Doctor `json:"doctors,omitempty"`
}

// Doctor is read-only reference data. Specialty may be empty.
type Doctor struct {
	ID        int64  `json:"id"`
	ClinicID  int64  `json:"clinic_id,omitempty"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
}
