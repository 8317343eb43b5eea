package services

import (
	"log"

	"github.com/orbitapp/backend/internal/infrastructure/database"
	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/expression"
)

// ServiceManager wires every repository and service together and owns the
// background workers' lifecycle.
type ServiceManager struct {
	Auth          *AuthService
	Users         *UserService
	Organizations *OrganizationService
	Projects      *ProjectService
	Tasks         *TaskService
	QC            *QCService
	Payouts       *PayoutService
	Contracts     *ContractService
	Notifications *NotificationService
	Gamification  *GamificationService
	Analytics     *AnalyticsService
	Guests        *GuestService
	Audit         *AuditService
	Scheduler     *SchedulerService

	Bus    *EventBus
	outbox *OutboxService
}

// NewServiceManager builds the full object graph on top of one database
// connection.
func NewServiceManager(conn *database.Connection) *ServiceManager {
	db := conn.DB()

	// Repositories
	userRepo := persistence.NewUserRepository(db)
	sessionRepo := persistence.NewSessionRepository(db)
	orgRepo := persistence.NewOrganizationRepository(db)
	projectRepo := persistence.NewProjectRepository(db)
	taskRepo := persistence.NewTaskRepository(db)
	qcRepo := persistence.NewQCRepository(db)
	payoutRepo := persistence.NewPayoutRepository(db)
	contractRepo := persistence.NewContractRepository(db)
	notificationRepo := persistence.NewNotificationRepository(db)
	gamificationRepo := persistence.NewGamificationRepository(db)
	guestRepo := persistence.NewGuestRepository(db)
	auditRepo := persistence.NewAuditRepository(db)
	outboxRepo := persistence.NewOutboxRepository(db)
	analyticsRepo := persistence.NewAnalyticsRepository(db)

	tm := persistence.NewTransactionManager(conn)
	engine := expression.NewEngine()
	bus := NewEventBus()

	// Services
	audit := NewAuditService(auditRepo)
	auth := NewAuthService(userRepo, sessionRepo, audit)
	users := NewUserService(userRepo, sessionRepo, payoutRepo, audit)
	orgs := NewOrganizationService(orgRepo, userRepo, outboxRepo, tm, audit)
	projects := NewProjectService(projectRepo, orgs, audit)
	tasks := NewTaskService(taskRepo, projects, outboxRepo, tm, audit)
	payouts := NewPayoutService(payoutRepo, outboxRepo, audit)
	qc := NewQCService(qcRepo, taskRepo, projectRepo, payouts, outboxRepo, tm, audit)
	contracts := NewContractService(contractRepo, userRepo, taskRepo, orgs, outboxRepo, audit)
	notifications := NewNotificationService(notificationRepo, engine)
	gamification := NewGamificationService(gamificationRepo, taskRepo, qcRepo, payoutRepo,
		contractRepo, userRepo, outboxRepo, engine)
	analytics := NewAnalyticsService(analyticsRepo, orgs, NewSecurityValidator(), audit)
	guests := NewGuestService(guestRepo, tm)
	scheduler := NewSchedulerService(guests, contracts, sessionRepo, userRepo, payoutRepo, outboxRepo)

	// Event consumers
	notifications.RegisterHandlers(bus)
	gamification.RegisterHandlers(bus)

	return &ServiceManager{
		Auth:          auth,
		Users:         users,
		Organizations: orgs,
		Projects:      projects,
		Tasks:         tasks,
		QC:            qc,
		Payouts:       payouts,
		Contracts:     contracts,
		Notifications: notifications,
		Gamification:  gamification,
		Analytics:     analytics,
		Guests:        guests,
		Audit:         audit,
		Scheduler:     scheduler,
		Bus:           bus,
		outbox:        NewOutboxService(outboxRepo, bus),
	}
}

// StartWorkers launches the outbox poller and the cron jobs.
func (m *ServiceManager) StartWorkers() error {
	m.outbox.Start()
	if err := m.Scheduler.Start(); err != nil {
		return err
	}
	log.Println("✅ Background workers running")
	return nil
}

// StopWorkers shuts the workers down in reverse order.
func (m *ServiceManager) StopWorkers() {
	m.Scheduler.Stop()
	m.outbox.Stop()
}
