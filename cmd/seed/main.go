// Command seed creates provider accounts, profiles and services in the
// configured record store. Provider profiles are keyed by the account id so
// that signing in with the seeded credentials resolves to the provider role.
package main

import (
	"context"
	"errors"
	"log"
	"time"

	"barberbook/config"
	"barberbook/database"
	customerRepo "barberbook/database/repository/customer"
	providerRepo "barberbook/database/repository/provider"
	"barberbook/models"
	"barberbook/services/identity"
	"barberbook/utils"

	"github.com/shopspring/decimal"
)

type seedService struct {
	id    string
	name  string
	price string
}

type seedProvider struct {
	email       string
	password    string
	name        string
	description string
	phone       string
	services    []seedService
}

var providers = []seedProvider{
	{
		email:       "fade@barberbook.dev",
		password:    "barber123",
		name:        "Fade Factory",
		description: "Skin fades, tapers and beard work.",
		phone:       "+1 555 0100",
		services: []seedService{
			{id: "s1", name: "Cut", price: "20"},
			{id: "s2", name: "Color", price: "50"},
		},
	},
	{
		email:       "classic@barberbook.dev",
		password:    "barber123",
		name:        "Classic Cuts",
		description: "Traditional scissor cuts and hot towel shaves.",
		phone:       "+1 555 0101",
		services: []seedService{
			{id: "s3", name: "Hot Towel Shave", price: "25.50"},
			{id: "s4", name: "Beard Trim", price: "12"},
		},
	},
}

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	if config.AppConfig.StoreBackend == config.BackendMemory {
		log.Fatalf("seed: STORE_BACKEND=memory keeps no data between processes")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	backend, err := database.OpenStore(ctx, logger)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}
	defer backend.Close(context.Background())

	provRepo := providerRepo.NewDocumentProviderRepo(backend.Store, utils.NoopCache{}, 0, logger)
	idp := identity.NewDefaultIdentityProvider(
		backend.Store,
		customerRepo.NewDocumentCustomerRepo(backend.Store),
		utils.NewMemoryCache(),
		utils.NewTokenSigner(config.AppConfig.JWTSecret),
		time.Minute,
		logger,
	)

	for _, p := range providers {
		auth, err := idp.SignUp(ctx, p.email, p.password, p.name)
		if errors.Is(err, identity.ErrEmailTaken) {
			auth, err = idp.SignIn(ctx, p.email, p.password)
		}
		if err != nil {
			log.Fatalf("Failed to obtain account for %s: %v", p.email, err)
		}

		ids := make([]string, 0, len(p.services))
		for _, s := range p.services {
			svc := models.Service{ID: s.id, Name: s.name, Price: decimal.RequireFromString(s.price)}
			if err := provRepo.CreateService(ctx, svc); err != nil {
				log.Fatalf("Failed to seed service %s: %v", s.id, err)
			}
			ids = append(ids, s.id)
		}

		profile := models.ProviderProfile{
			ID:          auth.Session.ID,
			Name:        p.name,
			Description: p.description,
			Phone:       p.phone,
			Email:       p.email,
			ServiceIDs:  ids,
		}
		if err := provRepo.Create(ctx, profile); err != nil {
			log.Fatalf("Failed to seed provider %s: %v", p.email, err)
		}
		log.Printf("Seeded provider %q (%s) with %d services", p.name, profile.ID, len(ids))
	}
}
