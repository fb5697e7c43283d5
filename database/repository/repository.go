package repository

import (
	customerRepo "barberbook/database/repository/customer"
	providerRepo "barberbook/database/repository/provider"
	reservationRepo "barberbook/database/repository/reservation"
)

// Re-export the ProviderRepository interface and constructor.
type ProviderRepository = providerRepo.ProviderRepository

var NewDocumentProviderRepo = providerRepo.NewDocumentProviderRepo

// Re-export the CustomerRepository interface and constructor.
type CustomerRepository = customerRepo.CustomerRepository

var NewDocumentCustomerRepo = customerRepo.NewDocumentCustomerRepo

// Re-export the ReservationRepository interface and constructor.
type ReservationRepository = reservationRepo.ReservationRepository

var NewDocumentReservationRepo = reservationRepo.NewDocumentReservationRepo
