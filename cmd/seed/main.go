package main

import (
	"context"
	"fmt"
	"medsys/config"
	"medsys/infras/otel"
	"medsys/infras/postgres"
	"medsys/internal/domains/user/model"
	"medsys/internal/domains/user/repository"
	"medsys/shared/constant"
	"medsys/shared/logger"
	gModel "medsys/shared/model"
	"medsys/shared/password"
	gRepo "medsys/shared/repository"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const seededBy = "seed"

type options struct {
	doctors  int
	patients int
	password string
	admin    bool
	seed     uint64
}

func newUser(faker *gofakeit.Faker, role string, idx int, hashed string, now time.Time) model.User {
	fullName := faker.Name()
	username := fmt.Sprintf("%s%d", strings.ToLower(role), idx+1)

	return model.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    strings.ToLower(username + "@" + faker.DomainName()),
		Password: hashed,
		Role:     role,
		FullName: &fullName,
		Active:   true,
		Metadata: gModel.NewMetadata(seededBy, now),
	}
}

func run(ctx context.Context, opts options) error {
	cfg := config.Get()

	db := postgres.New(cfg)
	repo := repository.New(db, otel.New(cfg))
	faker := gofakeit.New(opts.seed)

	hashed, err := password.Hash(opts.password)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	now := time.Now().UTC()

	var users []model.User

	if opts.admin {
		users = append(users, newUser(faker, constant.RoleAdmin, 0, hashed, now))
	}

	for i := range opts.doctors {
		users = append(users, newUser(faker, constant.RoleDoctor, i, hashed, now))
	}

	for i := range opts.patients {
		users = append(users, newUser(faker, constant.RolePatient, i, hashed, now))
	}

	inserted := 0

	for _, user := range users {
		err := repo.Insert(ctx, user)
		if gRepo.IsUniqueViolation(err) {
			log.Debug().Str("username", user.Username).Msg("user already seeded")

			continue
		}

		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", user.Username, err)
		}

		inserted++
	}

	log.Info().Int("inserted", inserted).Int("total", len(users)).Msg("seed complete")

	return nil
}

func main() {
	logger.InitLogger()

	opts := options{}

	rootCmd := &cobra.Command{
		Use:          "seed",
		Short:        "Seed admin, doctor and patient accounts",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger.SetLogLevel(config.Get())

			return run(cmd.Context(), opts)
		},
	}

	rootCmd.Flags().IntVar(&opts.doctors, "doctors", 5, "number of doctor accounts")
	rootCmd.Flags().IntVar(&opts.patients, "patients", 20, "number of patient accounts")
	rootCmd.Flags().StringVar(&opts.password, "password", "password123", "password shared by every seeded account")
	rootCmd.Flags().BoolVar(&opts.admin, "admin", true, "also seed an admin account")
	rootCmd.Flags().Uint64Var(&opts.seed, "seed", 0, "faker seed, 0 picks a random one")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("seed failed")
		os.Exit(1)
	}
}
