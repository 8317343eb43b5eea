package bootstrap

import (
	"context"
	"log"
	"os"

	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/internal/infrastructure/database"
	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/auth"
	"github.com/orbitapp/backend/pkg/constants"
	"github.com/orbitapp/backend/pkg/utils"
)

const defaultAdminEmail = "admin@orbit.local"

// defaultBadges are seeded once. Criteria are expr predicates over the
// stats environment built by models.UserStats.Env.
var defaultBadges = []models.Badge{
	{
		Name:        "First Blood",
		Description: "Complete your first task",
		Icon:        "🎯",
		Criteria:    "stats.tasks_completed >= 1",
		Points:      10,
	},
	{
		Name:        "Workhorse",
		Description: "Complete 25 tasks",
		Icon:        "🐴",
		Criteria:    "stats.tasks_completed >= 25",
		Points:      50,
	},
	{
		Name:        "Centurion",
		Description: "Complete 100 tasks",
		Icon:        "💯",
		Criteria:    "stats.tasks_completed >= 100",
		Points:      200,
	},
	{
		Name:        "Spotless",
		Description: "Keep a 90% QC pass rate over at least 10 completed tasks",
		Icon:        "✨",
		Criteria:    "stats.tasks_completed >= 10 && stats.qc_pass_rate >= 0.9",
		Points:      75,
	},
	{
		Name:        "On Fire",
		Description: "Complete tasks on 7 consecutive days",
		Icon:        "🔥",
		Criteria:    "stats.current_streak_days >= 7",
		Points:      40,
	},
	{
		Name:        "Rainmaker",
		Description: "Earn your first 10,000 in released payouts",
		Icon:        "💰",
		Criteria:    "stats.total_earned >= 10000",
		Points:      100,
	},
	{
		Name:        "Dealmaker",
		Description: "Sign 5 contracts",
		Icon:        "🖋️",
		Criteria:    "stats.contracts_signed >= 5",
		Points:      60,
	},
}

// InitializeSystemData seeds the admin account and the default badge set.
// Both are idempotent: the admin is only created when no account holds the
// email, and badge names carry a unique index.
func InitializeSystemData(conn *database.Connection) error {
	log.Println("🔧 Initializing system data...")
	ctx := context.Background()

	users := persistence.NewUserRepository(conn.DB())
	if err := seedAdmin(ctx, users); err != nil {
		return err
	}

	badges := persistence.NewGamificationRepository(conn.DB())
	seeded := 0
	for i := range defaultBadges {
		b := defaultBadges[i]
		b.ID = utils.GenerateID()
		b.IsActive = true
		if err := badges.CreateBadge(ctx, &b); err != nil {
			// Duplicate name means an earlier run already seeded it.
			continue
		}
		seeded++
	}
	if seeded > 0 {
		log.Printf("   ✅ Seeded %d default badge(s)", seeded)
	}
	return nil
}

func seedAdmin(ctx context.Context, users *persistence.UserRepository) error {
	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = defaultAdminEmail
	}
	exists, err := users.CheckUserExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
		log.Println("⚠️  ADMIN_PASSWORD not set, using the default. Change it before exposing the server.")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &models.User{
		ID:         utils.GenerateID(),
		Email:      email,
		Name:       "Administrator",
		Role:       string(constants.RoleAdmin),
		IsActive:   true,
		R:          constants.DefaultR,
		RMin:       constants.DefaultRMin,
		RMax:       constants.DefaultRMax,
		BaseSalary: 0,
	}
	if err := users.CreateUser(ctx, admin, hash); err != nil {
		return err
	}
	log.Printf("   ✅ Seeded admin account %s", email)
	return nil
}
