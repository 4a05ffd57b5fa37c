package main

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicops/clinicops/internal/config"
	"github.com/clinicops/clinicops/internal/domain/catalog"
	"github.com/clinicops/clinicops/internal/domain/identity"
	"github.com/clinicops/clinicops/internal/domain/patient"
	"github.com/clinicops/clinicops/internal/domain/scheduling"
	"github.com/clinicops/clinicops/internal/platform/auth"
	"github.com/clinicops/clinicops/internal/platform/db"
)

// seedCmd fills an empty database with demo data: an admin account, a few
// doctors with work schedules, patients, and the service catalog. Meant for
// development and demos, not production.
func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with demo data",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctors, _ := cmd.Flags().GetInt("doctors")
			patients, _ := cmd.Flags().GetInt("patients")
			return runSeed(doctors, patients)
		},
	}
	cmd.Flags().Int("doctors", 5, "Number of demo doctors")
	cmd.Flags().Int("patients", 30, "Number of demo patients")
	return cmd
}

func runSeed(doctorCount, patientCount int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	faker := gofakeit.New(0)

	identityRepo := identity.NewRepo(pool)
	patientRepo := patient.NewRepo(pool)
	catalogRepo := catalog.NewRepo(pool)
	schedRepo := scheduling.NewRepo(pool)

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminUser := &identity.User{
		Email:        "admin@clinic.local",
		PasswordHash: string(hash),
		Role:         auth.RoleAdmin,
		FirstName:    "Clinic",
		LastName:     "Admin",
		IsActive:     true,
	}
	if err := identityRepo.CreateUser(ctx, adminUser); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	fmt.Println("admin: admin@clinic.local / password123")

	specializations := []string{"Therapist", "Cardiologist", "Neurologist", "Dermatologist", "Pediatrician"}
	for i := 0; i < doctorCount; i++ {
		u := &identity.User{
			Email:        fmt.Sprintf("doctor%d@clinic.local", i+1),
			PasswordHash: string(hash),
			Role:         auth.RoleDoctor,
			FirstName:    faker.FirstName(),
			LastName:     faker.LastName(),
			IsActive:     true,
		}
		if err := identityRepo.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("seed doctor %d: %w", i+1, err)
		}
		profile := &identity.DoctorProfile{
			UserID:         u.ID,
			Specialization: specializations[i%len(specializations)],
			Phone:          faker.Phone(),
			CabinetNumber:  fmt.Sprintf("%d%02d", 1+i%3, 1+i),
		}
		if err := identityRepo.UpsertProfile(ctx, profile); err != nil {
			return fmt.Errorf("seed doctor profile %d: %w", i+1, err)
		}

		// Monday through Friday, morning and afternoon windows.
		for weekday := 1; weekday <= 5; weekday++ {
			for _, w := range []struct{ startMin, endMin int }{{9 * 60, 13 * 60}, {14 * 60, 18 * 60}} {
				ww := &scheduling.WorkWindow{
					DoctorID:    u.ID,
					Weekday:     weekday,
					StartMin:    w.startMin,
					EndMin:      w.endMin,
					SlotMinutes: 30,
				}
				if err := schedRepo.CreateWorkWindow(ctx, ww); err != nil {
					return fmt.Errorf("seed work window for doctor %d: %w", i+1, err)
				}
			}
		}
	}
	fmt.Printf("seeded %d doctors (doctorN@clinic.local / password123)\n", doctorCount)

	genders := []string{"M", "F"}
	for i := 0; i < patientCount; i++ {
		birth := faker.DateRange(
			time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2015, 12, 31, 0, 0, 0, 0, time.UTC))
		p := &patient.Patient{
			FirstName: faker.FirstName(),
			LastName:  faker.LastName(),
			BirthDate: &birth,
			Gender:    genders[i%len(genders)],
			Phone:     faker.Phone(),
			Email:     faker.Email(),
			Address:   faker.Address().Address,
		}
		if err := patientRepo.Create(ctx, p); err != nil {
			return fmt.Errorf("seed patient %d: %w", i+1, err)
		}
	}
	fmt.Printf("seeded %d patients\n", patientCount)

	services := []*catalog.Service{
		{Code: "CONSULT", NameEN: "General consultation", NameRU: "Общая консультация", NameKK: "Жалпы кеңес", DurationMinutes: 30, PriceCents: 500000, IsActive: true},
		{Code: "ECG", NameEN: "Electrocardiogram", NameRU: "ЭКГ", NameKK: "ЭКГ", DurationMinutes: 20, PriceCents: 350000, IsActive: true},
		{Code: "BLOOD-PANEL", NameEN: "Blood panel", NameRU: "Анализ крови", NameKK: "Қан анализі", DurationMinutes: 15, PriceCents: 250000, IsActive: true},
		{Code: "ULTRASOUND", NameEN: "Ultrasound", NameRU: "УЗИ", NameKK: "УДЗ", DurationMinutes: 40, PriceCents: 800000, IsActive: true},
		{Code: "VACCINE", NameEN: "Vaccination", NameRU: "Вакцинация", NameKK: "Вакцинация", DurationMinutes: 15, PriceCents: 300000, IsActive: true},
	}
	for _, s := range services {
		if err := catalogRepo.CreateService(ctx, s); err != nil {
			return fmt.Errorf("seed service %s: %w", s.Code, err)
		}
	}
	fmt.Printf("seeded %d services\n", len(services))

	for i := 1; i <= 6; i++ {
		floor := 1 + i/4
		room := &catalog.Room{
			Name:  fmt.Sprintf("Cabinet %d%02d", floor, i),
			Floor: &floor,
		}
		if err := catalogRepo.CreateRoom(ctx, room); err != nil {
			return fmt.Errorf("seed room %d: %w", i, err)
		}
	}
	fmt.Println("seeded 6 rooms")

	return nil
}
