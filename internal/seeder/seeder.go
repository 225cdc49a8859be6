// Package seeder loads demo accounts through the real registration flow so a
// fresh instance has data to poke at. Enabled with VIGORLOG_SEED_DEMO=true;
// never used in production.
package seeder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vigorlog/internal/registration"
	dErrors "vigorlog/pkg/domain-errors"
)

// RegistrationService is the slice of the registration service the seeder needs.
type RegistrationService interface {
	RegisterMinor(ctx context.Context, data registration.MinorRegistrationData) (*registration.Result, error)
}

// Seed registers the demo accounts. Conflicts are skipped silently so reseeding
// an already-seeded database is harmless.
func Seed(ctx context.Context, svc RegistrationService, logger *slog.Logger) error {
	now := time.Now()
	demos := []registration.MinorRegistrationData{
		{
			Athlete: registration.AthleteData{
				FirstName: "Max",
				LastName:  "Mustermann",
				Email:     "max@demo.vigorlog.app",
				Password:  "demo-password-1",
				BirthDate: now.AddDate(-14, 0, 0),
				Sport:     "football",
			},
			Parent: registration.ParentData{
				FirstName: "Maria",
				LastName:  "Mustermann",
				Email:     "maria@demo.vigorlog.app",
				Phone:     "+49 151 1234567",
				Password:  "demo-password-2",
			},
			Consents: registration.ConsentChoices{
				DataProcessing: true,
				MedicalData:    true,
				ParentAccess:   true,
			},
		},
		{
			Athlete: registration.AthleteData{
				FirstName: "Lena",
				LastName:  "Schmidt",
				Email:     "lena@demo.vigorlog.app",
				Password:  "demo-password-3",
				BirthDate: now.AddDate(-17, 0, 0),
				Sport:     "swimming",
			},
		},
	}

	for _, demo := range demos {
		result, err := svc.RegisterMinor(ctx, demo)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				logger.Info("demo account already seeded", "email", demo.Athlete.Email)
				continue
			}
			var vErr *registration.ValidationError
			if errors.As(err, &vErr) {
				logger.Error("demo seed data rejected", "email", demo.Athlete.Email, "errors", vErr.Errors)
				return err
			}
			return err
		}
		logger.Info("seeded demo athlete",
			"athlete_id", result.Athlete.ID,
			"email", result.Athlete.Email,
			"consent_records", len(result.Records),
		)
	}
	return nil
}
