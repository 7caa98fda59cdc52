package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users         *UserRepository
	Credentials   *CredentialRepository
	Challenges    *ChallengeRepository
	BackupCodes   *BackupCodeRepository
	Sessions      *SessionRepository
	Organizations *OrganizationRepository
	Audit         *AuditRepository
	Accounts      *AccountRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(pool),
		Credentials:   NewCredentialRepository(pool),
		Challenges:    NewChallengeRepository(pool),
		BackupCodes:   NewBackupCodeRepository(pool),
		Sessions:      NewSessionRepository(pool),
		Organizations: NewOrganizationRepository(pool),
		Audit:         NewAuditRepository(pool),
		Accounts:      NewAccountRepository(pool),
	}
}
