package directory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestClient_ListAppointments_Unscoped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/appointments" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.RawQuery != "" {
			t.Errorf("expected no query, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":2,"clinic_id":1,"doctor_id":3,"date":"2025-02-15","time":"10:00","user_name":"John Doe","user_phone":"+1234567890"},{"id":1,"clinic_id":1,"doctor_id":4,"date":"2025-02-16","time":"11:00","user_name":"Jane","user_phone":"555"}]`))
	})

	appts, err := c.ListAppointments(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(appts) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(appts))
	}
	if appts[0].ID != 2 || appts[1].ID != 1 {
		t.Errorf("expected backend order preserved, got %d,%d", appts[0].ID, appts[1].ID)
	}
	if appts[0].UserName != "John Doe" || appts[0].DoctorID != 3 {
		t.Errorf("unexpected decode: %+v", appts[0])
	}
}

func TestClient_ListAppointments_PhoneFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("user_phone"); got != "+1 555-0100" {
			t.Errorf("expected user_phone '+1 555-0100', got %q", got)
		}
		w.Write([]byte(`[]`))
	})

	appts, err := c.ListAppointments(context.Background(), "+1 555-0100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(appts) != 0 {
		t.Errorf("expected no appointments, got %d", len(appts))
	}
}

func TestClient_ListClinicsAndDoctors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/clinics":
			w.Write([]byte(`[{"id":1,"name":"Downtown","doctors":[{"id":3,"name":"Dr. Lee","clinic_id":1,"specialty":"Cardiology"}]}]`))
		case "/doctors":
			w.Write([]byte(`[{"id":3,"name":"Dr. Lee","clinic_id":1,"specialty":"Cardiology"}]`))
		default:
			http.NotFound(w, r)
		}
	})

	clinics, err := c.ListClinics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clinics) != 1 || clinics[0].Name != "Downtown" || len(clinics[0].Doctors) != 1 {
		t.Errorf("unexpected clinics: %+v", clinics)
	}

	doctors, err := c.ListDoctors(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doctors) != 1 || doctors[0].Specialty != "Cardiology" || doctors[0].ClinicID != 1 {
		t.Errorf("unexpected doctors: %+v", doctors)
	}
}

func TestClient_CancelAppointment(t *testing.T) {
	var gotPath, gotMethod string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.CancelAppointment(context.Background(), 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/appointments/42" {
		t.Errorf("expected DELETE /appointments/42, got %s %s", gotMethod, gotPath)
	}
}

func TestClient_StatusError_UsesDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Appointment not found"}`))
	})

	err := c.CancelAppointment(context.Background(), 7)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "Appointment not found" {
		t.Errorf("expected detail message, got %q", err.Error())
	}
	var de *Error
	if !errors.As(err, &de) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if de.Kind != KindStatus || de.StatusCode != http.StatusNotFound {
		t.Errorf("expected status kind with 404, got %s %d", de.Kind, de.StatusCode)
	}
}

func TestClient_StatusError_ValidationListFallsBack(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":[{"loc":["path","appointment_id"],"msg":"value is not a valid integer"}]}`))
	})

	err := c.CancelAppointment(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unexpected status 422") {
		t.Errorf("expected generic status message, got %q", err.Error())
	}
}

func TestClient_DecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"a list"}`))
	})

	_, err := c.ListDoctors(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != KindDecode {
		t.Errorf("expected decode kind, got %q", KindOf(err))
	}
}

func TestClient_EmptyBodyIsDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := c.ListClinics(context.Background())
	if KindOf(err) != KindDecode {
		t.Errorf("expected decode kind, got %q (%v)", KindOf(err), err)
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, WithTimeout(time.Second))
	_, err := c.ListClinics(context.Background())
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if KindOf(err) != KindTransport {
		t.Errorf("expected transport kind, got %q", KindOf(err))
	}
	if err.Error() == "" {
		t.Error("expected a descriptive message")
	}
}

func TestClient_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})

	c := New(srv.URL, WithTimeout(50*time.Millisecond))
	_, err := c.ListDoctors(context.Background())
	if KindOf(err) != KindTransport {
		t.Errorf("expected transport kind on timeout, got %q (%v)", KindOf(err), err)
	}
}

func TestClient_PropagatesRequestID(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
		w.Write([]byte(`[]`))
	})

	ctx := WithRequestID(context.Background(), "rid-123")
	if _, err := c.ListClinics(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "rid-123" {
		t.Errorf("expected X-Request-ID rid-123, got %q", got)
	}
}

func TestClient_WithHTTPClient(t *testing.T) {
	var called bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte(`[]`))
	})
	custom := &http.Client{Timeout: time.Second}
	c2 := New(c.baseURL, WithHTTPClient(custom))
	if c2.httpClient != custom {
		t.Fatal("expected custom http client to be used")
	}
	if err := c2.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected backend to be called")
	}
}

func TestClient_WithHTTPClient_GetsTimeoutWhenUnset(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})

	custom := &http.Client{}
	c := New(srv.URL, WithHTTPClient(custom), WithTimeout(50*time.Millisecond))
	if c.httpClient.Timeout != 50*time.Millisecond {
		t.Fatalf("expected timeout applied, got %s", c.httpClient.Timeout)
	}
	if custom.Timeout != 0 {
		t.Error("expected caller's client to be left untouched")
	}
	if _, err := c.ListDoctors(context.Background()); KindOf(err) != KindTransport {
		t.Errorf("expected transport kind on timeout, got %q (%v)", KindOf(err), err)
	}
}

func TestClient_WithHTTPClient_KeepsOwnTimeout(t *testing.T) {
	custom := &http.Client{Timeout: 3 * time.Second}
	c := New("http://directory.local", WithHTTPClient(custom), WithTimeout(50*time.Millisecond))
	if c.httpClient != custom || c.httpClient.Timeout != 3*time.Second {
		t.Errorf("expected supplied client and timeout kept, got %s", c.httpClient.Timeout)
	}
}
