package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nekogravitycat/guide-booking-backend/internal/api"
	"github.com/nekogravitycat/guide-booking-backend/internal/auth"
	"github.com/nekogravitycat/guide-booking-backend/internal/availability"
	"github.com/nekogravitycat/guide-booking-backend/internal/booking"
	"github.com/nekogravitycat/guide-booking-backend/internal/clock"
	"github.com/nekogravitycat/guide-booking-backend/internal/guide"
	"github.com/nekogravitycat/guide-booking-backend/internal/notify"
	"github.com/nekogravitycat/guide-booking-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	Logger       *zap.Logger
	JWTSecret    string
	JWTTTL       time.Duration
	BcryptCost   int
	Policy       booking.Policy
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	clk := clock.NewSystem()

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo, passwordHasher)

	// Guide Module
	guideRepo := guide.NewPgxRepository(cfg.DBPool)
	guideService := guide.NewService(guideRepo)

	// Availability Module
	availabilityRepo := availability.NewPgxRepository(cfg.DBPool)
	availabilityService := availability.NewService(availabilityRepo, guideService, clk)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	sink := notify.NewLogSink(cfg.Logger)
	bookingService := booking.NewService(bookingRepo, guideService, cfg.Policy, clk, sink)

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:        cfg.IsProduction,
		ProdOrigins:         cfg.ProdOrigins,
		UserService:         userService,
		GuideService:        guideService,
		AvailabilityService: availabilityService,
		BookingService:      bookingService,
		JWTManager:          jwtManager,
	})

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
	}
}
