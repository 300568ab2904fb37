package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	config "github.com/anjiri1684/travel_booking/configs"
	"github.com/anjiri1684/travel_booking/database"
	"github.com/anjiri1684/travel_booking/logger"
	"github.com/anjiri1684/travel_booking/middleware"
	"github.com/anjiri1684/travel_booking/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	propertyTypes = []string{
		"Cozy Apartment", "Luxury Villa", "Modern Loft", "Beach House",
		"Mountain Cabin", "City Studio", "Country Cottage", "Penthouse",
		"Townhouse", "Historic Home",
	}
	cities = []string{
		"Addis Ababa", "Bahir Dar", "Gondar", "Hawassa", "Lalibela",
		"Dire Dawa", "Mekelle", "Bishoftu", "Adama", "Arba Minch",
	}
	amenities = []string{
		"WiFi", "Kitchen", "Air conditioning", "Heating", "Parking",
		"Pool", "Gym", "Balcony", "Garden", "Hot tub", "Fireplace",
		"TV", "Washer", "Dryer",
	}
)

func main() {
	count := flag.Int("listings", 15, "number of listings to create")
	wipe := flag.Bool("clear", false, "delete every booking and payment before seeding")
	role := flag.String("role", "", "role claim of the printed development token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("🔥 Invalid configuration: %v", err)
	}
	logg := logger.New(cfg.LogLevel, logger.Text)
	if cfg.DBDriver == database.DriverMemory {
		logg.Warn("DB_DRIVER=memory: seeded data disappears when this command exits")
	}

	store, err := database.Open(cfg.DBDriver, cfg.DatabaseURL, logg)
	if err != nil {
		logg.WithError(err).Fatal("🔥 Database unavailable")
	}
	ctx := context.Background()

	if *wipe {
		n, err := store.ClearBookings(ctx)
		if err != nil {
			logg.WithError(err).Fatal("🔥 Could not clear bookings")
		}
		logg.WithField("deleted", n).Info("✓ Existing bookings cleared")
	}

	host := middleware.Principal{
		UserID:    uuid.New(),
		Email:     "host@example.com",
		Username:  "host",
		FirstName: "Sample",
		LastName:  "Host",
		Role:      *role,
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	err = store.Transaction(ctx, func(tx database.Store) error {
		for i := 0; i < *count; i++ {
			listing := sampleListing(rng, host.UserID)
			if err := tx.CreateListing(ctx, &listing); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logg.WithError(err).Fatal("🔥 Error during seeding")
	}
	logg.WithField("listings", *count).Info("✓ Database seeding completed successfully")

	token, err := middleware.IssueToken(cfg.JWTSecret, host, 72*time.Hour)
	if err != nil {
		logg.WithError(err).Fatal("🔥 Failed to create token")
	}
	fmt.Printf("user_id: %s\ntoken:   %s\n", host.UserID, token)
}

func sampleListing(rng *rand.Rand, owner uuid.UUID) models.Listing {
	kind := propertyTypes[rng.Intn(len(propertyTypes))]
	city := cities[rng.Intn(len(cities))]

	picked := rng.Perm(len(amenities))[:3+rng.Intn(4)]
	names := make([]string, 0, len(picked))
	for _, i := range picked {
		names = append(names, amenities[i])
	}

	return models.Listing{
		OwnerID: owner,
		Name:    fmt.Sprintf("%s in %s", kind, city),
		Description: fmt.Sprintf(
			"Beautiful %s located in %s. This property features %s. Perfect for travelers looking for comfort and convenience.",
			strings.ToLower(kind), city, strings.Join(names, ", "),
		),
		Location:      city,
		PricePerNight: decimal.NewFromInt(int64(50 + rng.Intn(451))),
	}
}
