package main

import (
	"fmt"

	"github.com/spf13/cobra"

	availabilityrepo "staybook/internal/availability/repository"
	availabilityservice "staybook/internal/availability/service"
	availabilityvalidator "staybook/internal/availability/validator"
	"staybook/internal/notifier"
	reservationrepo "staybook/internal/reservations/repository"
	"staybook/internal/reservations/scheduler"
	reservationservice "staybook/internal/reservations/service"
	reservationvalidator "staybook/internal/reservations/validator"
	"staybook/pkg/lock"
)

// sweepCmd runs the nightly maintenance jobs once. Neither job emits events.
func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Complete finished reservations and expire past availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.SetMongo()
			defer cfg.GracefulShutdown()

			locker := lock.NewMemoryLocker()
			availabilityRepo := availabilityrepo.NewMongoAvailabilityRepository(cfg)
			reservationRepo := reservationrepo.NewMongoReservationRepository(cfg)

			availabilities := availabilityservice.NewAvailabilityService(
				availabilityRepo, reservationRepo, locker, notifier.Nop{},
				availabilityvalidator.NewAvailabilityValidator(cfg.Log), cfg,
			)
			reservations := reservationservice.NewReservationService(
				reservationRepo, availabilityservice.NewAllocator(availabilityRepo), nil, locker, notifier.Nop{},
				reservationvalidator.NewReservationValidator(cfg.Log), cfg,
			)

			jobs := []scheduler.Job{
				{Name: "complete-reservations", Run: reservations.CompleteFinished},
				{Name: "expire-availabilities", Run: availabilities.ExpireStale},
			}
			results := scheduler.New(cfg.Log, jobs...).RunOnce(cmd.Context())
			if len(results) != len(jobs) {
				return fmt.Errorf("%d of %d jobs failed", len(jobs)-len(results), len(jobs))
			}
			for _, job := range jobs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", job.Name, results[job.Name])
			}
			return nil
		},
	}
}
