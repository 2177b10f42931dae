package repository

import (
	"github.com/ovela/onboard-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User         UserRepository
	Connection   ConnectionRepository
	Integration  IntegrationRepository
	Conversation ConversationRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Connection:   NewConnectionRepository(db),
		Integration:  NewIntegrationRepository(db),
		Conversation: NewConversationRepository(db),
	}
}
